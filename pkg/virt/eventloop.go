package virt

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"code.cloudfoundry.org/clock"
	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

// EventLoopState 事件循环状态
type EventLoopState int32

const (
	EventLoopCreated EventLoopState = iota
	EventLoopRunning
	EventLoopShuttingDown
	EventLoopStopped
)

func (s EventLoopState) String() string {
	switch s {
	case EventLoopCreated:
		return "created"
	case EventLoopRunning:
		return "running"
	case EventLoopShuttingDown:
		return "shutting-down"
	case EventLoopStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// eventSink 接收翻译后的类型化事件
type eventSink interface {
	dispatchDomainLifecycle(h Handle, ev DomainLifecycleEvent)
	dispatchPoolLifecycle(h Handle, ev PoolLifecycleEvent)
	dispatchPoolRefresh(h Handle, ev PoolRefreshEvent)
}

const (
	notAliveInitialWait = 100 * time.Millisecond
	notAliveMaxWait     = 2 * time.Second
)

// EventLoop 在独立 goroutine 中驱动原生事件循环，并把回调翻译为类型化事件
type EventLoop struct {
	drv        Driver
	sink       eventSink
	clk        clock.Clock
	log        zerolog.Logger
	categories []EventCategory

	state atomic.Int32

	mu     sync.Mutex
	regs   map[EventCategory]int
	cancel context.CancelFunc
	doneCh chan struct{}
}

func newEventLoop(drv Driver, sink eventSink, clk clock.Clock, logger zerolog.Logger, categories []EventCategory) *EventLoop {
	return &EventLoop{
		drv:        drv,
		sink:       sink,
		clk:        clk,
		log:        logger.With().Str("component", "event-loop").Logger(),
		categories: categories,
		regs:       make(map[EventCategory]int),
	}
}

// State 当前状态
func (l *EventLoop) State() EventLoopState {
	return EventLoopState(l.state.Load())
}

// Registered 注册成功的事件类别
func (l *EventLoop) Registered() []EventCategory {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]EventCategory, 0, len(l.regs))
	for _, c := range l.categories {
		if _, ok := l.regs[c]; ok {
			out = append(out, c)
		}
	}
	return out
}

// Start 注册回调并启动后台 goroutine，只能调用一次
func (l *EventLoop) Start(ctx context.Context) error {
	if !l.state.CompareAndSwap(int32(EventLoopCreated), int32(EventLoopRunning)) {
		return apierrorf(ErrInvalidArgument, "event loop already started")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// 1. 每个类别注册一个回调，单个类别失败不影响其他类别
	for _, c := range l.categories {
		category := c
		id, err := l.drv.RegisterEvent(category, func(h Handle, event, detail int32) {
			l.translate(category, h, event, detail)
		})
		if err != nil {
			l.log.Warn().Err(err).Str("category", category.String()).Msg("register event callback failed")
			continue
		}
		l.regs[category] = id
	}

	// 2. 启动唯一的后台 goroutine
	loopCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.doneCh = make(chan struct{})
	go l.run(loopCtx, l.doneCh)
	return nil
}

// Stop 取消事件循环并在 timeout 内等待退出，超时只记录日志
// 随后逐个注销回调。返回值表示 goroutine 是否在超时前退出
func (l *EventLoop) Stop(timeout time.Duration) bool {
	if l.state.CompareAndSwap(int32(EventLoopCreated), int32(EventLoopStopped)) {
		return true
	}
	if !l.state.CompareAndSwap(int32(EventLoopRunning), int32(EventLoopShuttingDown)) {
		return l.State() == EventLoopStopped
	}

	l.mu.Lock()
	cancel, doneCh := l.cancel, l.doneCh
	l.mu.Unlock()

	cancel()
	joined := true
	select {
	case <-doneCh:
	case <-l.clk.After(timeout):
		joined = false
		l.log.Error().Dur("timeout", timeout).Msg("event loop did not stop in time")
	}

	l.mu.Lock()
	for category, id := range l.regs {
		if err := l.drv.DeregisterEvent(id); err != nil {
			l.log.Warn().Err(err).Str("category", category.String()).Msg("deregister event callback failed")
		}
		delete(l.regs, category)
	}
	l.mu.Unlock()

	l.state.Store(int32(EventLoopStopped))
	return joined
}

func (l *EventLoop) run(ctx context.Context, doneCh chan struct{}) {
	defer close(doneCh)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = notAliveInitialWait
	b.MaxInterval = notAliveMaxWait
	b.MaxElapsedTime = 0
	b.RandomizationFactor = 0
	b.Reset()

	for {
		if ctx.Err() != nil {
			return
		}

		if !l.drv.IsAlive() {
			if !l.sleep(ctx, b.NextBackOff()) {
				return
			}
			continue
		}
		b.Reset()

		if err := l.iterate(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			l.log.Warn().Err(err).Msg("event loop iteration failed")
			if !l.sleep(ctx, b.NextBackOff()) {
				return
			}
		}
	}
}

// iterate 执行一次原生迭代，订阅者的 panic 在这里被恢复
func (l *EventLoop) iterate(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error().Interface("panic", r).Msg("event handler panicked")
			err = nil
		}
	}()
	return l.drv.RunOneIteration(ctx)
}

func (l *EventLoop) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-l.clk.After(d):
		return true
	}
}

// translate 提取标识并转发到类型化分发，标识无效的事件直接丢弃
func (l *EventLoop) translate(category EventCategory, h Handle, event, detail int32) {
	var (
		raw []byte
		err error
	)
	switch category {
	case EventDomainLifecycle:
		raw, err = l.drv.DomainUUID(h)
	case EventPoolLifecycle, EventPoolRefresh:
		raw, err = l.drv.StoragePoolUUID(h)
	default:
		l.log.Warn().Str("category", category.String()).Msg("drop event of unknown category")
		return
	}
	if err != nil {
		l.log.Warn().Err(err).Str("category", category.String()).Msg("drop event: get identity failed")
		return
	}
	id, ok := parseIdentity(raw)
	if !ok {
		l.log.Warn().Str("category", category.String()).Msg("drop event: empty identity")
		return
	}

	switch category {
	case EventDomainLifecycle:
		l.sink.dispatchDomainLifecycle(h, DomainLifecycleEvent{ID: id, Type: DomainEventType(event), Detail: detail})
	case EventPoolLifecycle:
		l.sink.dispatchPoolLifecycle(h, PoolLifecycleEvent{ID: id, Type: PoolEventType(event), Detail: detail})
	case EventPoolRefresh:
		l.sink.dispatchPoolRefresh(h, PoolRefreshEvent{ID: id})
	}
}
