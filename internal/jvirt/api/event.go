package api

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jimyag/jvirt/internal/jvirt/entity"
	"github.com/jimyag/jvirt/internal/jvirt/repository"
	"github.com/jimyag/jvirt/pkg/ginx"
	"github.com/jimyag/jvirt/pkg/virt"
)

const maxListEvents = 1000

// EventServiceInterface 定义事件日志服务的接口
type EventServiceInterface interface {
	ListEvents(ctx context.Context, filter repository.EventFilter) ([]*entity.Event, error)
}

// EventAPI 事件日志 API
type EventAPI struct {
	eventService EventServiceInterface
}

// NewEventAPI 创建事件日志 API
func NewEventAPI(eventService EventServiceInterface) *EventAPI {
	return &EventAPI{eventService: eventService}
}

// RegisterRoutes 注册路由
func (a *EventAPI) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/list-events", ginx.Handle(a.ListEvents))
}

// ListEventsRequest 查询事件请求，所有字段可选
type ListEventsRequest struct {
	Category string    `json:"category" xml:"category"` // domain-lifecycle, pool-lifecycle, pool-refresh
	Identity string    `json:"identity" xml:"identity"` // 对象 UUID
	Since    time.Time `json:"since" xml:"since"`
	Limit    int       `json:"limit" xml:"limit"`
}

func (r *ListEventsRequest) IsValid() error {
	switch r.Category {
	case "", virt.EventDomainLifecycle.String(), virt.EventPoolLifecycle.String(), virt.EventPoolRefresh.String():
	default:
		return fmt.Errorf("unknown event category %q", r.Category)
	}
	if r.Limit < 0 || r.Limit > maxListEvents {
		return fmt.Errorf("limit must be between 0 and %d", maxListEvents)
	}
	return nil
}

// ListEventsResponse 查询事件响应
type ListEventsResponse struct {
	Events []*entity.Event `json:"events" xml:"events>event"`
}

// ListEvents 按时间倒序查询事件日志
func (a *EventAPI) ListEvents(ctx *gin.Context, req *ListEventsRequest) (*ListEventsResponse, error) {
	events, err := a.eventService.ListEvents(ctx.Request.Context(), repository.EventFilter{
		Category: req.Category,
		Identity: req.Identity,
		Since:    req.Since,
		Limit:    req.Limit,
	})
	if err != nil {
		return nil, err
	}
	return &ListEventsResponse{Events: events}, nil
}
