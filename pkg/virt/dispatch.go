package virt

// DomainEventHandler 域生命周期事件订阅者，d 可能为 nil
type DomainEventHandler func(d *Domain, ev DomainLifecycleEvent)

// PoolEventHandler 存储池生命周期事件订阅者，p 可能为 nil
type PoolEventHandler func(p *StoragePool, ev PoolLifecycleEvent)

// PoolRefreshHandler 存储池刷新事件订阅者，p 可能为 nil
type PoolRefreshHandler func(p *StoragePool, ev PoolRefreshEvent)

// dispatchEvent 各事件类别共用的分发流程
//
// 移除类事件只查缓存，其余事件允许用回调句柄构造新对象。
// 订阅者先看到对象的最后状态，之后对象才被移出缓存并释放；
// 即使处理过程中发生 panic，移除和释放也会执行。
func dispatchEvent[K comparable, V Disposable](
	c *Connection,
	cache *ObjectCache[K, V],
	id K,
	h Handle,
	removal bool,
	build func(ref *handleRef) V,
	own func(v V),
	notify func(v V),
) {
	// 1. 释放过程中到达的事件直接丢弃
	if c.State() != ConnectionOpen {
		c.log.Debug().Interface("id", id).Msg("drop event: connection is not open")
		return
	}

	// 2. 解析对象
	var (
		v        V
		resolved bool
	)
	if removal {
		v, resolved = cache.Get(id)
	} else {
		var err error
		v, err = cache.GetOrCreate(id, func() (V, error) {
			// 回调句柄是借用的，缓存前先增加引用
			ref, err := refHandle(c.drv, h)
			if err != nil {
				var zero V
				return zero, err
			}
			return build(ref), nil
		})
		if err != nil && !IsNotFound(err) {
			c.log.Warn().Err(err).Interface("id", id).Msg("resolve event subject failed")
		}
		resolved = err == nil
	}

	// 5. 移除类事件最后移出缓存并释放
	if removal {
		defer func() {
			if evicted, ok := cache.Remove(id); ok {
				evicted.Dispose()
			}
			if resolved {
				v.Dispose()
			}
		}()
	}

	// 3. 对象自身的处理
	if resolved {
		own(v)
	}

	// 4. 连接级订阅者，对象可能为 nil
	notify(v)
}

// notifyAll 依次调用订阅者快照，单个订阅者 panic 只记录日志
func notifyAll[F any](c *Connection, category EventCategory, subs *Subscribers[F], call func(fn F)) {
	for _, fn := range subs.Snapshot() {
		func() {
			defer func() {
				if r := recover(); r != nil {
					c.log.Error().Interface("panic", r).Str("category", category.String()).Msg("event subscriber panicked")
				}
			}()
			call(fn)
		}()
	}
}

func (c *Connection) dispatchDomainLifecycle(h Handle, ev DomainLifecycleEvent) {
	dispatchEvent(c, c.domains, ev.ID, h, ev.removal(),
		func(ref *handleRef) *Domain { return newDomain(c, ev.ID, ref) },
		func(d *Domain) { d.handleLifecycle(ev) },
		func(d *Domain) {
			notifyAll(c, EventDomainLifecycle, &c.domainSubs, func(fn DomainEventHandler) { fn(d, ev) })
		},
	)
}

func (c *Connection) dispatchPoolLifecycle(h Handle, ev PoolLifecycleEvent) {
	dispatchEvent(c, c.pools, ev.ID, h, ev.removal(),
		func(ref *handleRef) *StoragePool { return newStoragePool(c, ev.ID, ref) },
		func(p *StoragePool) { p.handleLifecycle(ev) },
		func(p *StoragePool) {
			notifyAll(c, EventPoolLifecycle, &c.poolSubs, func(fn PoolEventHandler) { fn(p, ev) })
		},
	)
}

func (c *Connection) dispatchPoolRefresh(h Handle, ev PoolRefreshEvent) {
	dispatchEvent(c, c.pools, ev.ID, h, ev.removal(),
		func(ref *handleRef) *StoragePool { return newStoragePool(c, ev.ID, ref) },
		func(p *StoragePool) { p.handleRefresh(ev) },
		func(p *StoragePool) {
			notifyAll(c, EventPoolRefresh, &c.refreshSubs, func(fn PoolRefreshHandler) { fn(p, ev) })
		},
	)
}
