package users

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryStore 仅在进程内保存用户资料，主要用于测试与本地调试。
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]Profile
}

// NewMemoryStore 创建内存存储。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{profiles: make(map[string]Profile)}
}

// Get 实现 Store。
func (s *MemoryStore) Get(_ context.Context, userID string) (Profile, bool, error) {
	if strings.TrimSpace(userID) == "" {
		return Profile{}, false, ErrEmptyUserID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	return p, ok, nil
}

// SetWallet 实现 Store。
func (s *MemoryStore) SetWallet(_ context.Context, userID, wallet string) error {
	if err := Validate(userID, wallet); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[userID] = Profile{UserID: userID, Wallet: strings.TrimSpace(wallet), UpdatedAt: time.Now().Unix()}
	return nil
}

// Close 实现 Store。
func (s *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
