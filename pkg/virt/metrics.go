package virt

import (
	"sync"
	"time"

	"code.cloudfoundry.org/clock"
	"github.com/rs/zerolog"
)

// MetricsTicker 按间隔向订阅对象广播采样信号
type MetricsTicker struct {
	clk  clock.Clock
	log  zerolog.Logger
	subs Subscribers[func(now time.Time)]

	mu       sync.Mutex
	interval int
	stopCh   chan struct{}
	doneCh   chan struct{}
	closed   bool
}

// NewMetricsTicker 创建 ticker，seconds 为 0 时处于暂停状态
func NewMetricsTicker(clk clock.Clock, logger zerolog.Logger, seconds int) (*MetricsTicker, error) {
	t := &MetricsTicker{
		clk: clk,
		log: logger.With().Str("component", "metrics-ticker").Logger(),
	}
	if err := t.SetInterval(seconds); err != nil {
		return nil, err
	}
	return t, nil
}

// SetInterval 设置采样间隔（秒）
// 0 暂停采样但保留 ticker，之后可以重新设置为正数；负数非法
func (t *MetricsTicker) SetInterval(seconds int) error {
	if seconds < 0 {
		return apierrorf(ErrInvalidArgument, "metrics interval must not be negative: %d", seconds)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrDisposed
	}

	t.stopLocked()
	t.interval = seconds
	if seconds > 0 {
		t.startLocked(time.Duration(seconds) * time.Second)
	}
	return nil
}

// Interval 当前采样间隔（秒），0 表示暂停
func (t *MetricsTicker) Interval() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.interval
}

// Running 是否正在计时
func (t *MetricsTicker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopCh != nil
}

// Subscribe 订阅采样信号
func (t *MetricsTicker) Subscribe(fn func(now time.Time)) Subscription {
	return t.subs.Add(fn)
}

// Unsubscribe 取消订阅
func (t *MetricsTicker) Unsubscribe(id Subscription) bool {
	return t.subs.Remove(id)
}

// Subscribers 当前订阅数
func (t *MetricsTicker) Subscribers() int {
	return t.subs.Len()
}

// Stop 永久停止 ticker
func (t *MetricsTicker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.closed = true
	t.stopLocked()
}

func (t *MetricsTicker) startLocked(d time.Duration) {
	stopCh := make(chan struct{})
	doneCh := make(chan struct{})
	t.stopCh = stopCh
	t.doneCh = doneCh

	ticker := t.clk.NewTicker(d)
	go func() {
		defer close(doneCh)
		defer ticker.Stop()
		for {
			select {
			case now := <-ticker.C():
				t.broadcast(now)
			case <-stopCh:
				return
			}
		}
	}()
}

func (t *MetricsTicker) stopLocked() {
	if t.stopCh == nil {
		return
	}
	close(t.stopCh)
	<-t.doneCh
	t.stopCh = nil
	t.doneCh = nil
}

// broadcast 通知所有订阅者，单个订阅者 panic 不影响其他订阅者
func (t *MetricsTicker) broadcast(now time.Time) {
	for _, fn := range t.subs.Snapshot() {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.log.Error().Interface("panic", r).Msg("metrics subscriber panicked")
				}
			}()
			fn(now)
		}()
	}
}
