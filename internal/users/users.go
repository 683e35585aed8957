package users

import (
	"context"
	"errors"
	"strings"
)

// Profile 是以发送者 ID 为键的用户资料。
type Profile struct {
	UserID    string `json:"user_id"`
	Wallet    string `json:"wallet,omitempty"`
	UpdatedAt int64  `json:"updated_at,omitempty"`
}

// HasWallet 判断用户是否设置过钱包地址。
func (p Profile) HasWallet() bool {
	return strings.TrimSpace(p.Wallet) != ""
}

// Store 抽象用户资料的读写。并发写入同一用户时以最后一次为准。
type Store interface {
	// Get 返回用户资料，不存在时 ok 为 false。
	Get(ctx context.Context, userID string) (profile Profile, ok bool, err error)
	// SetWallet 设置钱包地址，用户不存在时自动创建。
	SetWallet(ctx context.Context, userID, wallet string) error
	Close() error
}

// ErrEmptyUserID 表示调用方未提供用户 ID。
var ErrEmptyUserID = errors.New("用户 ID 不能为空")

// Validate 检查写入参数。
func Validate(userID, wallet string) error {
	if strings.TrimSpace(userID) == "" {
		return ErrEmptyUserID
	}
	if strings.TrimSpace(wallet) == "" {
		return errors.New("钱包地址不能为空")
	}
	return nil
}
