package repository

import (
	"context"
	"time"

	"github.com/jimyag/jvirt/internal/jvirt/repository/model"
	"gorm.io/gorm"
)

// EventFilter 事件查询条件，零值字段不参与过滤
type EventFilter struct {
	Category string
	Identity string
	Since    time.Time
	Limit    int
}

// EventRepository 事件日志仓库接口
type EventRepository interface {
	Create(ctx context.Context, event *model.Event) error
	List(ctx context.Context, filter EventFilter) ([]*model.Event, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

type eventRepository struct {
	db *gorm.DB
}

// NewEventRepository 创建事件仓库
func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

// Create 写入一条事件
func (r *eventRepository) Create(ctx context.Context, event *model.Event) error {
	return r.db.WithContext(ctx).Create(event).Error
}

// List 按时间倒序列出事件
func (r *eventRepository) List(ctx context.Context, filter EventFilter) ([]*model.Event, error) {
	var events []*model.Event
	query := r.db.WithContext(ctx).Model(&model.Event{})

	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.Identity != "" {
		query = query.Where("identity = ?", filter.Identity)
	}
	if !filter.Since.IsZero() {
		query = query.Where("created_at >= ?", filter.Since)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	if err := query.Order("created_at DESC").Order("id DESC").Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

// DeleteBefore 删除早于 before 的事件，返回删除的行数
func (r *eventRepository) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("created_at < ?", before).Delete(&model.Event{})
	return result.RowsAffected, result.Error
}
