package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jimyag/jvirt/pkg/ginx"
)

// MetricsServiceInterface 定义指标服务的接口
type MetricsServiceInterface interface {
	SetMetricsInterval(ctx context.Context, seconds int) error
	MetricsInterval(ctx context.Context) int
	Handler() http.Handler
}

// MetricsAPI 指标 API
type MetricsAPI struct {
	metricsService MetricsServiceInterface
}

// NewMetricsAPI 创建指标 API
func NewMetricsAPI(metricsService MetricsServiceInterface) *MetricsAPI {
	return &MetricsAPI{metricsService: metricsService}
}

// RegisterRoutes 注册路由
func (a *MetricsAPI) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/set-metrics-interval", ginx.Handle(a.SetMetricsInterval))
	r.POST("/describe-metrics-interval", ginx.Query(a.DescribeMetricsInterval))
}

// SetMetricsIntervalRequest 调整采样间隔请求
type SetMetricsIntervalRequest struct {
	Interval *int `json:"interval" xml:"interval" binding:"required,min=0"` // 秒，0 暂停采样
}

// SetMetricsIntervalResponse 调整采样间隔响应
type SetMetricsIntervalResponse struct {
	Interval int `json:"interval" xml:"interval"`
}

// SetMetricsInterval 调整 CPU 利用率采样间隔
func (a *MetricsAPI) SetMetricsInterval(ctx *gin.Context, req *SetMetricsIntervalRequest) (*SetMetricsIntervalResponse, error) {
	if err := a.metricsService.SetMetricsInterval(ctx.Request.Context(), *req.Interval); err != nil {
		return nil, err
	}
	return &SetMetricsIntervalResponse{Interval: a.metricsService.MetricsInterval(ctx.Request.Context())}, nil
}

// DescribeMetricsInterval 查询当前采样间隔
func (a *MetricsAPI) DescribeMetricsInterval(ctx *gin.Context) (*SetMetricsIntervalResponse, error) {
	return &SetMetricsIntervalResponse{Interval: a.metricsService.MetricsInterval(ctx.Request.Context())}, nil
}
