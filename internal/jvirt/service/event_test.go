package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"code.cloudfoundry.org/clock/fakeclock"
	golibvirt "github.com/digitalocean/go-libvirt"
	"github.com/google/uuid"
	"github.com/jimyag/jvirt/internal/jvirt/repository"
	"github.com/jimyag/jvirt/internal/jvirt/repository/model"
	"github.com/jimyag/jvirt/pkg/virt"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEventRepo(t *testing.T) repository.EventRepository {
	t.Helper()
	repo, err := repository.New(filepath.Join(t.TempDir(), "jvirt.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repository.NewEventRepository(repo.DB())
}

func startEventService(t *testing.T, svc *EventService) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()
	t.Cleanup(func() {
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		assert.NoError(t, svc.Shutdown(shutdownCtx))
		cancel()
		assert.NoError(t, <-done)
	})
}

func TestEventService_JournalsDomainEvents(t *testing.T) {
	t.Parallel()

	conn, _, events := openConn(t, connOptions{events: true})
	repo := newEventRepo(t)
	clk := fakeclock.NewFakeClock(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	svc := NewEventService(conn, repo, WithEventClock(clk), WithEventLogger(zerolog.Nop()))
	startEventService(t, svc)

	events <- golibvirt.DomainEventLifecycleMsg{Dom: testDom, Event: int32(virt.DomainEventStarted), Detail: 1}

	var got []*model.Event
	require.Eventually(t, func() bool {
		var err error
		got, err = repo.List(context.Background(), repository.EventFilter{})
		return err == nil && len(got) == 1
	}, 5*time.Second, 10*time.Millisecond)

	out, err := svc.ListEvents(context.Background(), repository.EventFilter{Identity: testDomUUID})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, got[0].ID, out[0].ID)
	assert.Contains(t, out[0].ID, "evt-")
	assert.Equal(t, "domain-lifecycle", out[0].Category)
	assert.Equal(t, testDomUUID, out[0].Identity)
	assert.Equal(t, "vm-1", out[0].Name)
	assert.Equal(t, "started", out[0].Type)
	assert.Equal(t, int32(1), out[0].Detail)
	assert.True(t, clk.Now().Equal(out[0].CreatedAt))
}

func TestEventService_Retention(t *testing.T) {
	t.Parallel()

	conn, _, _ := openConn(t, connOptions{})
	repo := newEventRepo(t)
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	clk := fakeclock.NewFakeClock(now)

	for i, age := range []time.Duration{2 * time.Hour, 10 * time.Minute} {
		require.NoError(t, repo.Create(context.Background(), &model.Event{
			ID:        "evt-old-" + string(rune('a'+i)),
			Category:  virt.EventDomainLifecycle.String(),
			Identity:  testDomUUID,
			CreatedAt: now.Add(-age),
		}))
	}

	svc := NewEventService(conn, repo,
		WithEventClock(clk),
		WithRetention(time.Hour),
		WithEventLogger(zerolog.Nop()),
	)
	startEventService(t, svc)

	// 启动时立即清理一次
	require.Eventually(t, func() bool {
		rows, err := repo.List(context.Background(), repository.EventFilter{})
		return err == nil && len(rows) == 1 && rows[0].ID == "evt-old-b"
	}, 5*time.Second, 10*time.Millisecond)

	// 下一轮清理
	clk.WaitForWatcherAndIncrement(retentionSweepInterval)
	require.Eventually(t, func() bool {
		rows, err := repo.List(context.Background(), repository.EventFilter{})
		return err == nil && len(rows) == 0
	}, 5*time.Second, 10*time.Millisecond)
}

func TestEventService_ShutdownBeforeRun(t *testing.T) {
	t.Parallel()

	conn, _, _ := openConn(t, connOptions{})
	repo := newEventRepo(t)
	svc := NewEventService(conn, repo, WithEventLogger(zerolog.Nop()))
	// Shutdown 前已入队的事件仍会写入
	svc.enqueue(virt.EventDomainLifecycle, uuid.New(), "vm-1", "started", 0)
	assert.NoError(t, svc.Shutdown(context.Background()))
	assert.Equal(t, "Event Journal", svc.Name())

	// 父 ctx 永不取消，Run 仍应立即返回
	done := make(chan error, 1)
	go func() { done <- svc.Run(context.Background()) }()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run after Shutdown did not return")
	}

	rows, err := repo.List(context.Background(), repository.EventFilter{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "started", rows[0].Type)
}
