package users

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	xerrors "SeiChat-Agent/internal/errors"
)

const lockRetryDelay = 50 * time.Millisecond

// FileStore 把全部用户资料保存在一个 JSON 文件中，键为用户 ID。
// 进程内使用互斥锁，跨进程使用文件锁。
type FileStore struct {
	path string
	mu   sync.Mutex
	lock *flock.Flock
}

// NewFileStore 创建文件存储，目录不存在时自动创建。
func NewFileStore(path string) (*FileStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("用户文件路径不能为空")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("创建用户数据目录失败: %w", err)
	}
	return &FileStore{path: path, lock: flock.New(path + ".lock")}, nil
}

// Get 实现 Store。
func (s *FileStore) Get(ctx context.Context, userID string) (Profile, bool, error) {
	if strings.TrimSpace(userID) == "" {
		return Profile{}, false, ErrEmptyUserID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.acquire(ctx); err != nil {
		return Profile{}, false, err
	}
	defer func() { _ = s.lock.Unlock() }()

	all, err := s.load()
	if err != nil {
		return Profile{}, false, err
	}
	p, ok := all[userID]
	if !ok {
		return Profile{}, false, nil
	}
	p.UserID = userID
	return p, true, nil
}

// SetWallet 实现 Store。
func (s *FileStore) SetWallet(ctx context.Context, userID, wallet string) error {
	if err := Validate(userID, wallet); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer func() { _ = s.lock.Unlock() }()

	all, err := s.load()
	if err != nil {
		return err
	}
	all[userID] = Profile{UserID: userID, Wallet: strings.TrimSpace(wallet), UpdatedAt: time.Now().Unix()}
	return s.save(all)
}

// Close 实现 Store。
func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) acquire(ctx context.Context) error {
	locked, err := s.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("获取用户文件锁失败: %w", err)
	}
	if !locked {
		return xerrors.New(xerrors.CodeTimeout, "获取用户文件锁超时")
	}
	return nil
}

func (s *FileStore) load() (map[string]Profile, error) {
	content, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]Profile{}, nil
	}
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "读取用户文件失败")
	}
	if len(strings.TrimSpace(string(content))) == 0 {
		return map[string]Profile{}, nil
	}
	all := map[string]Profile{}
	if err := json.Unmarshal(content, &all); err != nil {
		return nil, fmt.Errorf("解析用户文件失败: %w", err)
	}
	return all, nil
}

// save 先写临时文件再重命名，避免读到半写入的内容。
func (s *FileStore) save(all map[string]Profile) error {
	encoded, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化用户数据失败: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, encoded, 0o600); err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "写入用户文件失败")
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "替换用户文件失败")
	}
	return nil
}

var _ Store = (*FileStore)(nil)
