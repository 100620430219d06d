package entity

import "time"

// Event 事件日志条目
type Event struct {
	ID        string    `json:"id"`
	Category  string    `json:"category"`
	Identity  string    `json:"identity"`
	Name      string    `json:"name,omitempty"`
	Type      string    `json:"type,omitempty"`
	Detail    int32     `json:"detail"`
	CreatedAt time.Time `json:"created_at"`
}
