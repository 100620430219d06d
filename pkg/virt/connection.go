package virt

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/jimyag/jvirt/pkg/idgen"
	"github.com/rs/zerolog"
)

// ConnectionState 连接状态
type ConnectionState int32

const (
	ConnectionOpening ConnectionState = iota
	ConnectionOpen
	ConnectionDisposing
	ConnectionDisposed
)

func (s ConnectionState) String() string {
	switch s {
	case ConnectionOpening:
		return "opening"
	case ConnectionOpen:
		return "open"
	case ConnectionDisposing:
		return "disposing"
	case ConnectionDisposed:
		return "disposed"
	default:
		return "unknown"
	}
}

// Connection 一个 hypervisor 会话，持有对象缓存、事件循环和指标 ticker
type Connection struct {
	id    string
	drv   Driver
	cfg   Config
	log   zerolog.Logger
	state atomic.Int32

	domains *ObjectCache[uuid.UUID, *Domain]
	pools   *ObjectCache[uuid.UUID, *StoragePool]
	volumes *ObjectCache[string, *StorageVolume]
	node    *Node

	// events 关闭事件时为 nil
	events *EventLoop
	cancel context.CancelFunc
	// ticker 关闭指标采样时为 nil
	ticker *MetricsTicker

	domainSubs  Subscribers[DomainEventHandler]
	poolSubs    Subscribers[PoolEventHandler]
	refreshSubs Subscribers[PoolRefreshHandler]
}

// Open 打开会话并启动事件循环与指标采样
func Open(ctx context.Context, drv Driver, opts ...Option) (*Connection, error) {
	// 1. 进程级初始化
	ensureInitialized()

	// 2. 组装配置
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	id, err := idgen.GenerateConnectionID()
	if err != nil {
		return nil, connectionError("generate connection id", err)
	}
	c := &Connection{
		id:  id,
		drv: drv,
		cfg: cfg,
	}
	c.log = cfg.Logger.With().Str("connection_id", c.id).Str("uri", cfg.URI).Logger()
	c.state.Store(int32(ConnectionOpening))

	// 3. 打开原生会话
	if err := drv.Open(ctx, cfg.URI, cfg.Credentials); err != nil {
		return nil, connectionError("open hypervisor session", err)
	}
	if cfg.KeepAliveInterval > 0 {
		if err := drv.SetKeepAlive(cfg.KeepAliveInterval, cfg.KeepAliveCount); err != nil {
			if cerr := drv.Close(); cerr != nil {
				c.log.Warn().Err(cerr).Msg("close session after keepalive failure")
			}
			return nil, connectionError("set keepalive", err)
		}
	}

	// 4. 对象缓存与宿主机对象
	c.domains = NewObjectCache[uuid.UUID, *Domain]()
	c.pools = NewObjectCache[uuid.UUID, *StoragePool]()
	c.volumes = NewObjectCache[string, *StorageVolume]()
	c.node = newNode(c)

	// 5. ticker 先以暂停状态创建，事件构造的域对象可以直接订阅
	if cfg.MetricsEnabled {
		ticker, err := NewMetricsTicker(cfg.Clock, c.log, 0)
		if err != nil {
			c.closeSession()
			return nil, err
		}
		c.ticker = ticker
	}
	c.state.Store(int32(ConnectionOpen))

	// 6. 事件循环，生命周期不跟随 ctx
	if cfg.EventsEnabled {
		loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		c.cancel = cancel
		c.events = newEventLoop(drv, c, cfg.Clock, c.log,
			[]EventCategory{EventDomainLifecycle, EventPoolLifecycle, EventPoolRefresh})
		if err := c.events.Start(loopCtx); err != nil {
			c.Dispose()
			return nil, err
		}
	}

	// 7. 开始采样
	if c.ticker != nil {
		if err := c.ticker.SetInterval(cfg.MetricsInterval); err != nil {
			c.Dispose()
			return nil, err
		}
	}

	c.log.Info().
		Bool("events", cfg.EventsEnabled).
		Bool("metrics", cfg.MetricsEnabled).
		Msg("hypervisor connection opened")
	return c, nil
}

// ID 连接 ID
func (c *Connection) ID() string {
	return c.id
}

// URI 连接地址
func (c *Connection) URI() string {
	return c.cfg.URI
}

// Config 连接配置的副本
func (c *Connection) Config() Config {
	return c.cfg
}

// State 当前状态
func (c *Connection) State() ConnectionState {
	return ConnectionState(c.state.Load())
}

// IsAlive 原生会话是否存活
func (c *Connection) IsAlive() bool {
	return c.State() == ConnectionOpen && c.drv.IsAlive()
}

// EventLoopState 事件循环状态，关闭事件时为 Stopped
func (c *Connection) EventLoopState() EventLoopState {
	if c.events == nil {
		return EventLoopStopped
	}
	return c.events.State()
}

// RegisteredEvents 注册成功的事件类别
func (c *Connection) RegisteredEvents() []EventCategory {
	if c.events == nil {
		return nil
	}
	return c.events.Registered()
}

func (c *Connection) checkOpen() error {
	if c.State() != ConnectionOpen {
		return ErrDisposed
	}
	return nil
}

// Dispose 释放连接，并发调用时只有一个调用方执行释放
func (c *Connection) Dispose() {
	if !c.state.CompareAndSwap(int32(ConnectionOpen), int32(ConnectionDisposing)) {
		return
	}

	// 1. 停止指标采样
	if c.ticker != nil {
		c.ticker.Stop()
	}

	// 2. 取消并等待事件循环
	if c.events != nil {
		c.cancel()
		if !c.events.Stop(c.cfg.JoinTimeout) {
			c.log.Warn().Dur("timeout", c.cfg.JoinTimeout).Msg("event loop still running after dispose")
		}
	}

	// 3. 按 域、存储卷、存储池 的顺序释放缓存对象
	for _, d := range c.domains.Drain() {
		d.Dispose()
	}
	for _, v := range c.volumes.Drain() {
		v.Dispose()
	}
	for _, p := range c.pools.Drain() {
		p.Dispose()
	}

	// 4. 宿主机对象与订阅者
	c.node.Dispose()
	c.domainSubs.Clear()
	c.poolSubs.Clear()
	c.refreshSubs.Clear()

	// 5. 最后关闭原生会话
	c.closeSession()
	c.state.Store(int32(ConnectionDisposed))
	c.log.Info().Msg("hypervisor connection disposed")
}

func (c *Connection) closeSession() {
	if err := c.drv.Close(); err != nil {
		c.log.Warn().Err(err).Msg("close hypervisor session failed")
	}
}

// Node 宿主机对象
func (c *Connection) Node() (*Node, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	return c.node, nil
}

// SetMetricsInterval 调整采样间隔（秒），0 暂停
func (c *Connection) SetMetricsInterval(seconds int) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	if c.ticker == nil {
		return apierrorf(ErrInvalidArgument, "metrics are disabled for this connection")
	}
	return c.ticker.SetInterval(seconds)
}

// MetricsInterval 当前采样间隔，关闭采样时为 0
func (c *Connection) MetricsInterval() int {
	if c.ticker == nil {
		return 0
	}
	return c.ticker.Interval()
}

// SubscribeDomainEvents 订阅域生命周期事件
func (c *Connection) SubscribeDomainEvents(fn DomainEventHandler) Subscription {
	return c.domainSubs.Add(fn)
}

// UnsubscribeDomainEvents 取消订阅
func (c *Connection) UnsubscribeDomainEvents(id Subscription) bool {
	return c.domainSubs.Remove(id)
}

// SubscribePoolEvents 订阅存储池生命周期事件
func (c *Connection) SubscribePoolEvents(fn PoolEventHandler) Subscription {
	return c.poolSubs.Add(fn)
}

// UnsubscribePoolEvents 取消订阅
func (c *Connection) UnsubscribePoolEvents(id Subscription) bool {
	return c.poolSubs.Remove(id)
}

// SubscribePoolRefresh 订阅存储池刷新事件
func (c *Connection) SubscribePoolRefresh(fn PoolRefreshHandler) Subscription {
	return c.refreshSubs.Add(fn)
}

// UnsubscribePoolRefresh 取消订阅
func (c *Connection) UnsubscribePoolRefresh(id Subscription) bool {
	return c.refreshSubs.Remove(id)
}

// CachedDomains 已缓存的域，不访问原生层
func (c *Connection) CachedDomains() []*Domain {
	return c.domains.Values()
}

// CachedStoragePools 已缓存的存储池
func (c *Connection) CachedStoragePools() []*StoragePool {
	return c.pools.Values()
}

// CachedStorageVolumes 已缓存的存储卷
func (c *Connection) CachedStorageVolumes() []*StorageVolume {
	return c.volumes.Values()
}
