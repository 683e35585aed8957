package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	xerrors "SeiChat-Agent/internal/errors"
	"SeiChat-Agent/internal/users"

	"github.com/redis/go-redis/v9"
)

const (
	fieldWallet    = "wallet"
	fieldUpdatedAt = "updated_at"
)

// Config 描述 Redis 用户存储的连接参数。
type Config struct {
	Address  string
	Password string
	DB       int
	Prefix   string
}

// UserStore 将每个用户的资料保存为一个 Redis 哈希。
type UserStore struct {
	client *redis.Client
	prefix string
}

// NewUserStore 建立连接并通过 PING 校验可用性。
func NewUserStore(ctx context.Context, cfg Config) (*UserStore, error) {
	if cfg.Address == "" {
		return nil, errors.New("Redis address 不能为空")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("连接 Redis 失败: %w", err)
	}
	return NewUserStoreFromClient(client, cfg.Prefix), nil
}

// NewUserStoreFromClient 复用已有的客户端。
func NewUserStoreFromClient(client *redis.Client, prefix string) *UserStore {
	if prefix == "" {
		prefix = "seichat:user:"
	}
	return &UserStore{client: client, prefix: prefix}
}

func (s *UserStore) key(userID string) string {
	return s.prefix + strings.TrimSpace(userID)
}

// Get 读取用户资料，哈希不存在时返回 false。
func (s *UserStore) Get(ctx context.Context, userID string) (users.Profile, bool, error) {
	if strings.TrimSpace(userID) == "" {
		return users.Profile{}, false, users.ErrEmptyUserID
	}
	values, err := s.client.HGetAll(ctx, s.key(userID)).Result()
	if err != nil {
		return users.Profile{}, false, xerrors.Wrap(xerrors.CodeStorageFailure, err, "读取 Redis 用户资料失败")
	}
	return profileFromHash(strings.TrimSpace(userID), values)
}

// SetWallet 写入钱包地址并刷新更新时间。
func (s *UserStore) SetWallet(ctx context.Context, userID, wallet string) error {
	if err := users.Validate(userID, wallet); err != nil {
		return err
	}
	now := time.Now().Unix()
	if err := s.client.HSet(ctx, s.key(userID),
		fieldWallet, strings.TrimSpace(wallet),
		fieldUpdatedAt, now,
	).Err(); err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "写入 Redis 用户资料失败")
	}
	return nil
}

// Close 关闭底层连接。
func (s *UserStore) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

func profileFromHash(userID string, values map[string]string) (users.Profile, bool, error) {
	wallet := values[fieldWallet]
	if wallet == "" {
		return users.Profile{}, false, nil
	}
	p := users.Profile{UserID: userID, Wallet: wallet}
	if raw := values[fieldUpdatedAt]; raw != "" {
		ts, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return users.Profile{}, false, fmt.Errorf("解析更新时间失败: %w", err)
		}
		p.UpdatedAt = ts
	}
	return p, true, nil
}

var _ users.Store = (*UserStore)(nil)
