// Package api 提供 jvirt 的 HTTP 接口
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jimyag/jvirt/pkg/ginx"
	"github.com/rs/zerolog"
)

// Services API 依赖的服务
type Services struct {
	Domain  DomainServiceInterface
	Storage StorageServiceInterface
	Node    NodeServiceInterface
	Event   EventServiceInterface
	Metrics MetricsServiceInterface
}

type API struct {
	engine *gin.Engine
	server *http.Server

	domain  *DomainAPI
	storage *StorageAPI
	node    *NodeAPI
	event   *EventAPI
	metrics *MetricsAPI
}

func New(addr string, svcs Services, logger zerolog.Logger) (*API, error) {
	engine := gin.New()
	engine.Use(gin.Recovery(), ginx.RequestID(), ginx.Logger(logger))

	api := &API{
		engine:  engine,
		domain:  NewDomainAPI(svcs.Domain),
		storage: NewStorageAPI(svcs.Storage),
		node:    NewNodeAPI(svcs.Node),
		event:   NewEventAPI(svcs.Event),
		metrics: NewMetricsAPI(svcs.Metrics),
	}

	group := engine.Group("/api")
	api.domain.RegisterRoutes(group)
	api.storage.RegisterRoutes(group)
	api.node.RegisterRoutes(group)
	api.event.RegisterRoutes(group)
	api.metrics.RegisterRoutes(group)
	engine.GET("/metrics", gin.WrapH(svcs.Metrics.Handler()))

	api.server = &http.Server{
		Addr:    addr,
		Handler: engine,
	}
	return api, nil
}

// Handler 路由，供测试直接调用
func (a *API) Handler() http.Handler {
	return a.engine
}

func (a *API) Run(ctx context.Context) error {
	zerolog.Ctx(ctx).Info().Str("address", a.server.Addr).Msg("api server listening")
	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *API) Shutdown(ctx context.Context) error {
	return a.server.Shutdown(ctx)
}

// Name 实现 grace.Grace 接口
func (a *API) Name() string {
	return "API Server"
}
