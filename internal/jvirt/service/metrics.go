package service

import (
	"context"
	"net/http"

	"github.com/jimyag/jvirt/pkg/virt"
	"github.com/jimyag/jvirt/pkg/virt/virtprom"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// MetricsService 采样间隔调整与 Prometheus 导出
type MetricsService struct {
	conn      *virt.Connection
	collector *virtprom.Collector
	registry  *prometheus.Registry
}

// NewMetricsService 创建指标服务，collector 注册到独立的 registry
func NewMetricsService(conn *virt.Connection) (*MetricsService, error) {
	collector := virtprom.New(conn)
	registry, err := virtprom.NewRegistry(collector)
	if err != nil {
		collector.Close()
		return nil, err
	}
	return &MetricsService{
		conn:      conn,
		collector: collector,
		registry:  registry,
	}, nil
}

// SetMetricsInterval 调整采样间隔（秒），0 暂停采样
func (s *MetricsService) SetMetricsInterval(ctx context.Context, seconds int) error {
	if err := s.conn.SetMetricsInterval(seconds); err != nil {
		return err
	}
	zerolog.Ctx(ctx).Info().Int("interval", seconds).Msg("metrics interval updated")
	return nil
}

// MetricsInterval 当前采样间隔
func (s *MetricsService) MetricsInterval(ctx context.Context) int {
	return s.conn.MetricsInterval()
}

// Registry 指标 registry
func (s *MetricsService) Registry() *prometheus.Registry {
	return s.registry
}

// Handler /metrics 的 HTTP handler
func (s *MetricsService) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}

// Close 取消 collector 的事件订阅
func (s *MetricsService) Close() {
	s.collector.Close()
}
