package virt

import (
	"sync"
)

// Subscription 订阅句柄，用于取消订阅
type Subscription uint64

// Subscribers 某一事件类别的订阅者列表，每个类别一把独立的锁
type Subscribers[F any] struct {
	mu   sync.Mutex
	next Subscription
	ids  []Subscription
	fns  []F
}

// Add 添加订阅者
func (s *Subscribers[F]) Add(fn F) Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	s.ids = append(s.ids, s.next)
	s.fns = append(s.fns, fn)
	return s.next
}

// Remove 移除订阅者，返回是否存在
func (s *Subscribers[F]) Remove(id Subscription) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, sid := range s.ids {
		if sid == id {
			s.ids = append(s.ids[:i:i], s.ids[i+1:]...)
			s.fns = append(s.fns[:i:i], s.fns[i+1:]...)
			return true
		}
	}
	return false
}

// Snapshot 返回订阅者快照，调用订阅者时不持有锁
func (s *Subscribers[F]) Snapshot() []F {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]F, len(s.fns))
	copy(out, s.fns)
	return out
}

// Len 订阅者数量
func (s *Subscribers[F]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.fns)
}

// Clear 移除全部订阅者
func (s *Subscribers[F]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = nil
	s.fns = nil
}
