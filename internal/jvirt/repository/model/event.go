package model

import (
	"time"
)

// Event 事件日志表
type Event struct {
	ID        string    `gorm:"primaryKey;type:text;column:id" json:"id"`                                     // evt-{sonyflake}
	Category  string    `gorm:"type:text;not null;index:idx_events_category;column:category" json:"category"` // domain-lifecycle, pool-lifecycle, pool-refresh
	Identity  string    `gorm:"type:text;not null;index:idx_events_identity;column:identity" json:"identity"` // 对象 UUID
	Name      string    `gorm:"type:text;column:name" json:"name"`                                            // 事件发生时的对象名称
	Type      string    `gorm:"type:text;column:type" json:"type"`                                            // started, stopped, ...
	Detail    int32     `gorm:"type:integer;column:detail" json:"detail"`
	CreatedAt time.Time `gorm:"type:datetime;not null;index:idx_events_created_at;column:created_at" json:"created_at"`
}

// TableName 指定表名
func (Event) TableName() string {
	return "events"
}
