// Package virtprom 把 virt.Connection 的缓存对象和事件计数导出为 Prometheus 指标
package virtprom

import (
	"sync"

	"github.com/jimyag/jvirt/pkg/virt"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "jvirt"

// Collector 按需读取连接缓存中的对象，不主动访问原生层以外的数据
type Collector struct {
	conn *virt.Connection

	cpuDesc     *prometheus.Desc
	memoryDesc  *prometheus.Desc
	objectsDesc *prometheus.Desc
	events      *prometheus.CounterVec

	mu         sync.Mutex
	domainSub  virt.Subscription
	poolSub    virt.Subscription
	refreshSub virt.Subscription
	closed     bool
}

var _ prometheus.Collector = (*Collector)(nil)

// New 创建 collector 并订阅连接的三类事件
func New(conn *virt.Connection) *Collector {
	c := &Collector{
		conn: conn,
		cpuDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "domain", "cpu_utilization_percent"),
			"Guest CPU utilization averaged over the window.",
			[]string{"uuid", "name", "window"}, nil,
		),
		memoryDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "domain", "memory_used_kilobytes"),
			"Memory currently used by the domain.",
			[]string{"uuid", "name"}, nil,
		),
		objectsDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "cache", "objects"),
			"Objects held in the connection cache.",
			[]string{"kind"}, nil,
		),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dispatched_total",
			Help:      "Events dispatched to subscribers.",
		}, []string{"category"}),
	}

	c.domainSub = conn.SubscribeDomainEvents(func(*virt.Domain, virt.DomainLifecycleEvent) {
		c.events.WithLabelValues(virt.EventDomainLifecycle.String()).Inc()
	})
	c.poolSub = conn.SubscribePoolEvents(func(*virt.StoragePool, virt.PoolLifecycleEvent) {
		c.events.WithLabelValues(virt.EventPoolLifecycle.String()).Inc()
	})
	c.refreshSub = conn.SubscribePoolRefresh(func(*virt.StoragePool, virt.PoolRefreshEvent) {
		c.events.WithLabelValues(virt.EventPoolRefresh.String()).Inc()
	})
	return c
}

// Close 取消事件订阅，可重复调用
func (c *Collector) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.conn.UnsubscribeDomainEvents(c.domainSub)
	c.conn.UnsubscribePoolEvents(c.poolSub)
	c.conn.UnsubscribePoolRefresh(c.refreshSub)
}

// Describe 实现 prometheus.Collector
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.cpuDesc
	ch <- c.memoryDesc
	ch <- c.objectsDesc
	c.events.Describe(ch)
}

// Collect 实现 prometheus.Collector
// 采集期间被释放的域直接跳过
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	domains := c.conn.CachedDomains()
	for _, d := range domains {
		name, err := d.Name()
		if err != nil {
			continue
		}
		id := d.UUID().String()

		if util := d.CPUUtilization(); util != nil {
			ch <- prometheus.MustNewConstMetric(c.cpuDesc, prometheus.GaugeValue, util.LastSecond(), id, name, "second")
			ch <- prometheus.MustNewConstMetric(c.cpuDesc, prometheus.GaugeValue, util.LastMinute(), id, name, "minute")
		}
		if mem, err := d.MemoryUsedKB(); err == nil {
			ch <- prometheus.MustNewConstMetric(c.memoryDesc, prometheus.GaugeValue, float64(mem), id, name)
		}
	}

	ch <- prometheus.MustNewConstMetric(c.objectsDesc, prometheus.GaugeValue, float64(len(domains)), "domain")
	ch <- prometheus.MustNewConstMetric(c.objectsDesc, prometheus.GaugeValue, float64(len(c.conn.CachedStoragePools())), "storage_pool")
	ch <- prometheus.MustNewConstMetric(c.objectsDesc, prometheus.GaugeValue, float64(len(c.conn.CachedStorageVolumes())), "storage_volume")
	c.events.Collect(ch)
}

// NewRegistry 创建只包含本 collector 与进程指标的 registry
func NewRegistry(c *Collector) (*prometheus.Registry, error) {
	reg := prometheus.NewRegistry()
	if err := reg.Register(c); err != nil {
		return nil, err
	}
	if err := reg.Register(collectors.NewGoCollector()); err != nil {
		return nil, err
	}
	return reg, nil
}
