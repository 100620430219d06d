package libvirt

import (
	"context"
	"sync"

	"github.com/digitalocean/go-libvirt"
	"github.com/jimyag/jvirt/pkg/apierror"
	"github.com/jimyag/jvirt/pkg/virt"
)

// pendingEvent 等待在 RunOneIteration 中回调的事件
type pendingEvent struct {
	cb     virt.EventCallback
	dom    libvirt.Domain
	event  int32
	detail int32
}

type eventState struct {
	mu      sync.Mutex
	nextID  int
	regs    map[int]context.CancelFunc
	pending chan pendingEvent
}

func (s *eventState) init() {
	s.regs = make(map[int]context.CancelFunc)
	s.pending = make(chan pendingEvent, pendingEventBuffer)
}

// RegisterEvent 注册事件回调
// go-libvirt 只提供域生命周期事件流，存储池类别返回 ErrNotImplemented
func (c *Client) RegisterEvent(category virt.EventCategory, cb virt.EventCallback) (int, error) {
	if category != virt.EventDomainLifecycle {
		return 0, apierror.WrapError(virt.ErrNotImplemented, category.String()+" events are not supported by go-libvirt", nil)
	}
	rpc, err := c.session()
	if err != nil {
		return 0, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := rpc.LifecycleEvents(ctx)
	if err != nil {
		cancel()
		return 0, mapError("register domain lifecycle events", err)
	}

	c.events.mu.Lock()
	c.events.nextID++
	id := c.events.nextID
	c.events.regs[id] = cancel
	c.events.mu.Unlock()

	go c.forward(ctx, ch, cb)
	c.log.Debug().Int("callback_id", id).Str("category", category.String()).Msg("event callback registered")
	return id, nil
}

// forward 把事件流转发到待回调队列，回调只在 RunOneIteration 中执行
func (c *Client) forward(ctx context.Context, ch <-chan libvirt.DomainEventLifecycleMsg, cb virt.EventCallback) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			select {
			case c.events.pending <- pendingEvent{cb: cb, dom: msg.Dom, event: msg.Event, detail: msg.Detail}:
			case <-ctx.Done():
				return
			}
		}
	}
}

// DeregisterEvent 注销回调
func (c *Client) DeregisterEvent(id int) error {
	c.events.mu.Lock()
	cancel, ok := c.events.regs[id]
	delete(c.events.regs, id)
	c.events.mu.Unlock()
	if !ok {
		return apierror.WrapError(virt.ErrInvalidArgument, "unknown event callback id", nil)
	}
	cancel()
	return nil
}

// RunOneIteration 回调一个待处理事件，没有事件时最多等待 iterationTimeout
func (c *Client) RunOneIteration(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case ev := <-c.events.pending:
		c.deliver(ev)
		return nil
	case <-c.clk.After(c.iterationTimeout):
		return nil
	}
}

// deliver 回调期间句柄是借用的，回调返回后释放
func (c *Client) deliver(ev pendingEvent) {
	h := c.domainHandle(ev.dom)
	defer func() {
		if err := c.Free(h); err != nil {
			c.log.Warn().Err(err).Msg("free event handle failed")
		}
	}()
	ev.cb(h, ev.event, ev.detail)
}
