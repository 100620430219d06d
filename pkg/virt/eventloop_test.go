package virt

import (
	"sync"
	"testing"
	"time"

	"code.cloudfoundry.org/clock/fakeclock"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu      sync.Mutex
	domain  []DomainLifecycleEvent
	pool    []PoolLifecycleEvent
	refresh []PoolRefreshEvent
	panics  bool
}

func (s *recordingSink) dispatchDomainLifecycle(_ Handle, ev DomainLifecycleEvent) {
	s.mu.Lock()
	s.domain = append(s.domain, ev)
	panics := s.panics
	s.mu.Unlock()
	if panics {
		panic("sink failure")
	}
}

func (s *recordingSink) dispatchPoolLifecycle(_ Handle, ev PoolLifecycleEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pool = append(s.pool, ev)
}

func (s *recordingSink) dispatchPoolRefresh(_ Handle, ev PoolRefreshEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refresh = append(s.refresh, ev)
}

func (s *recordingSink) domainEvents() []DomainLifecycleEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]DomainLifecycleEvent(nil), s.domain...)
}

var allCategories = []EventCategory{EventDomainLifecycle, EventPoolLifecycle, EventPoolRefresh}

func newTestLoop(t *testing.T, drv *fakeDriver, sink eventSink) (*EventLoop, *fakeclock.FakeClock) {
	t.Helper()
	clk := fakeclock.NewFakeClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	return newEventLoop(drv, sink, clk, zerolog.Nop(), allCategories), clk
}

func TestEventLoop_TranslateAndDispatch(t *testing.T) {
	t.Parallel()

	drv := newFakeDriver()
	sink := &recordingSink{}
	loop, _ := newTestLoop(t, drv, sink)
	require.NoError(t, loop.Start(t.Context()))
	defer loop.Stop(time.Second)
	assert.Equal(t, EventLoopRunning, loop.State())

	domID := uuid.New()
	poolID := uuid.New()
	drv.emit(t, EventDomainLifecycle, domID, int32(DomainEventStarted), 1)
	drv.emit(t, EventPoolLifecycle, poolID, int32(PoolEventStopped), 0)
	drv.emit(t, EventPoolRefresh, poolID, 0, 0)

	assert.Equal(t, []DomainLifecycleEvent{{ID: domID, Type: DomainEventStarted, Detail: 1}}, sink.domainEvents())
	sink.mu.Lock()
	assert.Equal(t, []PoolLifecycleEvent{{ID: poolID, Type: PoolEventStopped}}, sink.pool)
	assert.Equal(t, []PoolRefreshEvent{{ID: poolID}}, sink.refresh)
	sink.mu.Unlock()
}

func TestEventLoop_DropEmptyIdentity(t *testing.T) {
	t.Parallel()

	drv := newFakeDriver()
	sink := &recordingSink{}
	loop, _ := newTestLoop(t, drv, sink)
	require.NoError(t, loop.Start(t.Context()))
	defer loop.Stop(time.Second)

	drv.emit(t, EventDomainLifecycle, uuid.Nil, int32(DomainEventDefined), 0)
	assert.Empty(t, sink.domainEvents())
	assert.Empty(t, drv.misuses())
}

func TestEventLoop_RecoversHandlerPanic(t *testing.T) {
	t.Parallel()

	drv := newFakeDriver()
	sink := &recordingSink{panics: true}
	loop, _ := newTestLoop(t, drv, sink)
	require.NoError(t, loop.Start(t.Context()))
	defer loop.Stop(time.Second)

	drv.emit(t, EventDomainLifecycle, uuid.New(), int32(DomainEventStarted), 0)
	drv.emit(t, EventDomainLifecycle, uuid.New(), int32(DomainEventStopped), 0)

	assert.Len(t, sink.domainEvents(), 2)
	assert.Equal(t, EventLoopRunning, loop.State())
	// 驱动持有的借用句柄在 panic 之后仍被释放
	assert.Equal(t, 0, drv.liveHandles())
}

func TestEventLoop_RegistrationFailureIsolated(t *testing.T) {
	t.Parallel()

	drv := newFakeDriver()
	drv.registerErr[EventPoolLifecycle] = ErrNotImplemented
	drv.registerErr[EventPoolRefresh] = ErrNotImplemented
	loop, _ := newTestLoop(t, drv, &recordingSink{})

	require.NoError(t, loop.Start(t.Context()))
	assert.Equal(t, []EventCategory{EventDomainLifecycle}, loop.Registered())
	assert.Equal(t, 1, drv.registrations())

	assert.True(t, loop.Stop(time.Second))
	assert.Equal(t, EventLoopStopped, loop.State())
	assert.Equal(t, 0, drv.registrations())
	assert.Empty(t, loop.Registered())
}

func TestEventLoop_StartStop(t *testing.T) {
	t.Parallel()

	testcases := []struct {
		name  string
		start bool
	}{
		{name: "stop before start", start: false},
		{name: "stop after start", start: true},
	}

	for _, tc := range testcases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			drv := newFakeDriver()
			loop, _ := newTestLoop(t, drv, &recordingSink{})
			if tc.start {
				require.NoError(t, loop.Start(t.Context()))
				assert.Error(t, loop.Start(t.Context()))
			}
			assert.True(t, loop.Stop(time.Second))
			assert.Equal(t, EventLoopStopped, loop.State())
			// 重复 Stop 无副作用
			assert.True(t, loop.Stop(time.Second))
			assert.Equal(t, 0, drv.registrations())
		})
	}
}

func TestEventLoop_WaitsWhileNotAlive(t *testing.T) {
	t.Parallel()

	drv := newFakeDriver()
	drv.setAlive(false)
	sink := &recordingSink{}
	loop, clk := newTestLoop(t, drv, sink)
	require.NoError(t, loop.Start(t.Context()))
	defer loop.Stop(time.Second)

	done := make(chan struct{})
	drv.queue <- fakeEvent{category: EventDomainLifecycle, id: uuid.New(), event: int32(DomainEventStarted), done: done}

	// 会话断开时事件循环在时钟上等待，不调用原生迭代
	require.Eventually(t, func() bool { return clk.WatcherCount() > 0 }, 2*time.Second, 5*time.Millisecond)
	assert.Empty(t, sink.domainEvents())

	drv.setAlive(true)
	clk.Increment(notAliveMaxWait)
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("event was not delivered after the session came back")
	}
	assert.Len(t, sink.domainEvents(), 1)
}
