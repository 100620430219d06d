package virtprom

import (
	"context"
	"testing"
	"time"

	golibvirt "github.com/digitalocean/go-libvirt"
	"github.com/jimyag/jvirt/pkg/libvirt"
	"github.com/jimyag/jvirt/pkg/virt"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testDom = golibvirt.Domain{
	Name: "vm-1",
	ID:   3,
	UUID: golibvirt.UUID{0x6a, 0x1b, 0x2c, 0x3d, 0x4e, 0x5f, 0x40, 0x71, 0x82, 0x93, 0xa4, 0xb5, 0xc6, 0xd7, 0xe8, 0xf9},
}

// openConn 用 MockRPC 打开一个开启事件、关闭指标采样的连接
func openConn(t *testing.T) (*virt.Connection, *libvirt.MockRPC, chan golibvirt.DomainEventLifecycleMsg) {
	t.Helper()

	rpc := (&libvirt.MockRPC{}).ExpectSession()
	events := make(chan golibvirt.DomainEventLifecycleMsg, 1)
	rpc.On("LifecycleEvents", mock.Anything).Return((<-chan golibvirt.DomainEventLifecycleMsg)(events), nil)

	drv := libvirt.NewMockDriver(rpc,
		libvirt.WithLogger(zerolog.Nop()),
		libvirt.WithIterationTimeout(5*time.Millisecond),
	)
	conn, err := virt.Open(context.Background(), drv,
		virt.WithLogger(zerolog.Nop()),
		virt.WithMetrics(false),
		virt.WithJoinTimeout(5*time.Second),
	)
	require.NoError(t, err)
	t.Cleanup(conn.Dispose)
	return conn, rpc, events
}

func TestCollector_EventsAndDomains(t *testing.T) {
	t.Parallel()

	conn, rpc, events := openConn(t)
	rpc.On("DomainGetInfo", testDom).Return(uint8(1), uint64(4096), uint64(2048), uint16(2), uint64(0), nil)

	c := New(conn)
	defer c.Close()

	assert.Equal(t, 0, testutil.CollectAndCount(c, "jvirt_domain_memory_used_kilobytes"))

	events <- golibvirt.DomainEventLifecycleMsg{Dom: testDom, Event: int32(virt.DomainEventStarted)}
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(c.events.WithLabelValues("domain-lifecycle")) == 1
	}, 5*time.Second, 5*time.Millisecond)

	assert.Equal(t, 1, testutil.CollectAndCount(c, "jvirt_domain_memory_used_kilobytes"))
	// 关闭指标采样时不导出 CPU 利用率
	assert.Equal(t, 0, testutil.CollectAndCount(c, "jvirt_domain_cpu_utilization_percent"))
	assert.Equal(t, 3, testutil.CollectAndCount(c, "jvirt_cache_objects"))
}

func TestCollector_Close(t *testing.T) {
	t.Parallel()

	conn, _, events := openConn(t)
	rpcDomain := testDom
	rpcDomain.Name = "vm-2"

	c := New(conn)
	c.Close()
	c.Close()

	events <- golibvirt.DomainEventLifecycleMsg{Dom: rpcDomain, Event: int32(virt.DomainEventStarted)}
	require.Eventually(t, func() bool {
		return len(conn.CachedDomains()) == 1
	}, 5*time.Second, 5*time.Millisecond)
	assert.Zero(t, testutil.ToFloat64(c.events.WithLabelValues("domain-lifecycle")))
}

func TestNewRegistry(t *testing.T) {
	t.Parallel()

	conn, _, _ := openConn(t)
	c := New(conn)
	defer c.Close()

	reg, err := NewRegistry(c)
	require.NoError(t, err)
	families, err := reg.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "jvirt_cache_objects")
}
