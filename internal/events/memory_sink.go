package events

import (
	"context"
	"sync"
)

const defaultMemoryCapacity = 1024

// MemorySink 在内存中保留最近的事件，超过容量时丢弃最旧的记录。
type MemorySink struct {
	mu       sync.RWMutex
	capacity int
	events   []CommandOutcome
}

// NewMemorySink 创建内存 Sink。
func NewMemorySink(capacity int) *MemorySink {
	if capacity <= 0 {
		capacity = defaultMemoryCapacity
	}
	return &MemorySink{capacity: capacity}
}

// Name 返回 Sink 名称。
func (s *MemorySink) Name() string { return "memory" }

// Publish 追加事件。
func (s *MemorySink) Publish(_ context.Context, event CommandOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	if over := len(s.events) - s.capacity; over > 0 {
		s.events = append([]CommandOutcome(nil), s.events[over:]...)
	}
	return nil
}

// Recent 按时间倒序返回用户最近的事件，userID 为空时不过滤。
func (s *MemorySink) Recent(_ context.Context, userID string, limit int) ([]CommandOutcome, error) {
	if limit <= 0 {
		limit = 20
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]CommandOutcome, 0, limit)
	for i := len(s.events) - 1; i >= 0 && len(out) < limit; i-- {
		if userID != "" && s.events[i].UserID != userID {
			continue
		}
		out = append(out, s.events[i])
	}
	return out, nil
}

// Len 返回当前保存的事件数量。
func (s *MemorySink) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}
