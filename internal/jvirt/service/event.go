package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"code.cloudfoundry.org/clock"
	"github.com/google/uuid"
	"github.com/jimyag/jvirt/internal/jvirt/entity"
	"github.com/jimyag/jvirt/internal/jvirt/repository"
	"github.com/jimyag/jvirt/internal/jvirt/repository/model"
	"github.com/jimyag/jvirt/pkg/idgen"
	"github.com/jimyag/jvirt/pkg/virt"
	"github.com/jinzhu/copier"
	"github.com/rs/zerolog"
)

const (
	eventBufferSize = 256
	// 保留期清理的间隔
	retentionSweepInterval = time.Hour
	defaultListLimit       = 100
)

// EventService 把连接分发的事件写入事件日志
//
// 订阅者在事件循环 goroutine 中执行，只做非阻塞入队；
// 写库和保留期清理在 Run 中完成。
type EventService struct {
	conn      *virt.Connection
	repo      repository.EventRepository
	clk       clock.Clock
	retention time.Duration
	log       zerolog.Logger

	queue chan *model.Event

	mu         sync.Mutex
	domainSub  virt.Subscription
	poolSub    virt.Subscription
	refreshSub virt.Subscription
	cancel     context.CancelFunc
	stopped    bool
	done       chan struct{}
}

// EventOption EventService 选项
type EventOption func(*EventService)

// WithEventClock 替换时钟
func WithEventClock(clk clock.Clock) EventOption {
	return func(s *EventService) {
		s.clk = clk
	}
}

// WithRetention 事件保留期，0 表示不清理
func WithRetention(d time.Duration) EventOption {
	return func(s *EventService) {
		s.retention = d
	}
}

// WithEventLogger 替换日志
func WithEventLogger(logger zerolog.Logger) EventOption {
	return func(s *EventService) {
		s.log = logger
	}
}

// NewEventService 创建事件服务并订阅连接的三类事件
func NewEventService(conn *virt.Connection, repo repository.EventRepository, opts ...EventOption) *EventService {
	s := &EventService{
		conn:  conn,
		repo:  repo,
		clk:   clock.NewClock(),
		log:   *zerolog.Ctx(context.Background()),
		queue: make(chan *model.Event, eventBufferSize),
		done:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.domainSub = conn.SubscribeDomainEvents(func(d *virt.Domain, ev virt.DomainLifecycleEvent) {
		s.enqueue(virt.EventDomainLifecycle, ev.ID, domainName(d), ev.Type.String(), ev.Detail)
	})
	s.poolSub = conn.SubscribePoolEvents(func(p *virt.StoragePool, ev virt.PoolLifecycleEvent) {
		s.enqueue(virt.EventPoolLifecycle, ev.ID, poolName(p), ev.Type.String(), ev.Detail)
	})
	s.refreshSub = conn.SubscribePoolRefresh(func(p *virt.StoragePool, ev virt.PoolRefreshEvent) {
		s.enqueue(virt.EventPoolRefresh, ev.ID, poolName(p), "refreshed", 0)
	})
	return s
}

func domainName(d *virt.Domain) string {
	if d == nil {
		return ""
	}
	name, _ := d.Name()
	return name
}

func poolName(p *virt.StoragePool) string {
	if p == nil {
		return ""
	}
	name, _ := p.Name()
	return name
}

func (s *EventService) enqueue(category virt.EventCategory, id uuid.UUID, name, typ string, detail int32) {
	ev := &model.Event{
		Category:  category.String(),
		Identity:  id.String(),
		Name:      name,
		Type:      typ,
		Detail:    detail,
		CreatedAt: s.clk.Now().UTC(),
	}
	select {
	case s.queue <- ev:
	default:
		s.log.Warn().
			Str("category", ev.Category).
			Str("identity", ev.Identity).
			Msg("event journal queue full, drop event")
	}
}

// Run 持续写入事件，直到 ctx 取消或 Shutdown
// Shutdown 之后再调用 Run 会写完已入队的事件后立即返回
func (s *EventService) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	stopped := s.stopped
	s.mu.Unlock()
	defer close(s.done)

	if stopped {
		cancel()
		s.drain()
		return nil
	}

	var sweep <-chan time.Time
	if s.retention > 0 {
		ticker := s.clk.NewTicker(retentionSweepInterval)
		defer ticker.Stop()
		sweep = ticker.C()
		s.sweep(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			s.drain()
			return nil
		case ev := <-s.queue:
			if err := s.write(ctx, ev); err != nil {
				s.log.Error().Err(err).Str("category", ev.Category).Msg("write event journal failed")
			}
		case <-sweep:
			s.sweep(ctx)
		}
	}
}

// drain 退出前写完已入队的事件
func (s *EventService) drain() {
	ctx := context.Background()
	for {
		select {
		case ev := <-s.queue:
			if err := s.write(ctx, ev); err != nil {
				s.log.Error().Err(err).Msg("write event journal failed")
			}
		default:
			return
		}
	}
}

func (s *EventService) write(ctx context.Context, ev *model.Event) error {
	id, err := idgen.GenerateEventID()
	if err != nil {
		return err
	}
	ev.ID = id
	return s.repo.Create(ctx, ev)
}

func (s *EventService) sweep(ctx context.Context) {
	before := s.clk.Now().UTC().Add(-s.retention)
	n, err := s.repo.DeleteBefore(ctx, before)
	if err != nil {
		s.log.Error().Err(err).Msg("delete expired events failed")
		return
	}
	if n > 0 {
		s.log.Info().Int64("deleted", n).Time("before", before).Msg("expired events deleted")
	}
}

// Shutdown 取消订阅并等待 Run 退出
func (s *EventService) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.stopped = true
	s.conn.UnsubscribeDomainEvents(s.domainSub)
	s.conn.UnsubscribePoolEvents(s.poolSub)
	s.conn.UnsubscribePoolRefresh(s.refreshSub)
	cancel := s.cancel
	s.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Name 实现 grace.Grace 接口
func (s *EventService) Name() string {
	return "Event Journal"
}

// ListEvents 查询事件日志，按时间倒序
func (s *EventService) ListEvents(ctx context.Context, filter repository.EventFilter) ([]*entity.Event, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	out := make([]*entity.Event, 0, len(rows))
	if err := copier.Copy(&out, &rows); err != nil {
		return nil, fmt.Errorf("copy events: %w", err)
	}
	return out, nil
}
