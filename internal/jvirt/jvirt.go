// Package jvirt 提供 jvirt 服务器的主入口和初始化逻辑
package jvirt

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/jimmicro/grace"
	"github.com/jimyag/jvirt/internal/jvirt/api"
	"github.com/jimyag/jvirt/internal/jvirt/config"
	"github.com/jimyag/jvirt/internal/jvirt/repository"
	"github.com/jimyag/jvirt/internal/jvirt/service"
	"github.com/jimyag/jvirt/pkg/libvirt"
	"github.com/jimyag/jvirt/pkg/virt"
	"github.com/rs/zerolog"
)

type Server struct {
	cfg     *config.Config
	conn    *virt.Connection
	repo    *repository.Repository
	events  *service.EventService
	metrics *service.MetricsService
	api     *api.API

	closeOnce sync.Once
}

func New(cfg *config.Config) (*Server, error) {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	zerolog.DefaultContextLogger = &logger

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// 1. 打开 hypervisor 连接
	drv := libvirt.NewDriver(
		libvirt.WithLogger(logger),
		libvirt.WithKnownHosts(cfg.KnownHosts),
	)
	opts := append(cfg.VirtOptions(), virt.WithLogger(logger))
	conn, err := virt.Open(context.Background(), drv, opts...)
	if err != nil {
		return nil, fmt.Errorf("open hypervisor connection: %w", err)
	}
	logger.Info().Str("uri", conn.URI()).Strs("events", categoryNames(conn.RegisteredEvents())).Msg("Hypervisor connection opened")

	// 2. 事件日志数据库
	repo, err := repository.New(cfg.DBPath())
	if err != nil {
		conn.Dispose()
		return nil, fmt.Errorf("open event journal: %w", err)
	}

	// 3. 服务
	eventService := service.NewEventService(conn, repository.NewEventRepository(repo.DB()),
		service.WithRetention(cfg.EventRetention),
		service.WithEventLogger(logger),
	)
	metricsService, err := service.NewMetricsService(conn)
	if err != nil {
		_ = repo.Close()
		conn.Dispose()
		return nil, fmt.Errorf("create metrics service: %w", err)
	}

	// 4. API
	apiInstance, err := api.New(cfg.Address, api.Services{
		Domain:  service.NewDomainService(conn),
		Storage: service.NewStorageService(conn),
		Node:    service.NewNodeService(conn),
		Event:   eventService,
		Metrics: metricsService,
	}, logger)
	if err != nil {
		metricsService.Close()
		_ = repo.Close()
		conn.Dispose()
		return nil, err
	}

	return &Server{
		cfg:     cfg,
		conn:    conn,
		repo:    repo,
		events:  eventService,
		metrics: metricsService,
		api:     apiInstance,
	}, nil
}

func (s *Server) Run(ctx context.Context) error {
	// 使用 grace.Shepherd 管理服务生命周期
	services := []grace.Grace{
		s.api,
		s.events,
	}

	shepherd := grace.NewShepherd(
		services,
		grace.WithTimeout(30*time.Second),
		grace.WithLogger(&zerologLogger{}),
	)

	shepherd.Start(ctx)
	s.close()
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	err := s.api.Shutdown(ctx)
	if serr := s.events.Shutdown(ctx); err == nil {
		err = serr
	}
	s.close()
	return err
}

// close 服务全部停止后释放连接和数据库，可重复调用
func (s *Server) close() {
	s.closeOnce.Do(func() {
		s.metrics.Close()
		s.conn.Dispose()
		if err := s.repo.Close(); err != nil {
			zerolog.DefaultContextLogger.Warn().Err(err).Msg("Close event journal failed")
		}
	})
}

// Name 实现 grace.Grace 接口
func (s *Server) Name() string {
	return "JVirt Server"
}

func categoryNames(categories []virt.EventCategory) []string {
	out := make([]string, 0, len(categories))
	for _, c := range categories {
		out = append(out, c.String())
	}
	return out
}

// zerologLogger 实现 grace.Logger 接口
type zerologLogger struct{}

func (l *zerologLogger) Info(msg string, args ...interface{}) {
	logger := zerolog.DefaultContextLogger.Info()
	if len(args) > 0 {
		logger.Msgf(msg, args...)
	} else {
		logger.Msg(msg)
	}
}

func (l *zerologLogger) Error(msg string, args ...interface{}) {
	logger := zerolog.DefaultContextLogger.Error()
	if len(args) > 0 {
		logger.Msgf(msg, args...)
	} else {
		logger.Msg(msg)
	}
}
