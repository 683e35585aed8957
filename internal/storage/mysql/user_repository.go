package mysql

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	xerrors "SeiChat-Agent/internal/errors"
	"SeiChat-Agent/internal/users"
)

// SQLUserRepository 使用 MySQL 保存用户资料。
type SQLUserRepository struct {
	db *sql.DB
}

// NewSQLUserRepository 连接数据库并执行迁移。
func NewSQLUserRepository(ctx context.Context, cfg Config) (*SQLUserRepository, error) {
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := runMigrations(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLUserRepository{db: db}, nil
}

// NewSQLUserRepositoryFromDB 基于已有连接创建仓库，不执行迁移。
func NewSQLUserRepositoryFromDB(db *sql.DB) *SQLUserRepository {
	return &SQLUserRepository{db: db}
}

// DB 暴露底层连接，供同库的其他仓库复用。
func (r *SQLUserRepository) DB() *sql.DB {
	return r.db
}

// Get 实现 users.Store。
func (r *SQLUserRepository) Get(ctx context.Context, userID string) (users.Profile, bool, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return users.Profile{}, false, users.ErrEmptyUserID
	}
	const query = `SELECT user_id, wallet, updated_at FROM user_profiles WHERE user_id = ?`
	var p users.Profile
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&p.UserID, &p.Wallet, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return users.Profile{}, false, nil
	}
	if err != nil {
		return users.Profile{}, false, xerrors.Wrap(xerrors.CodeStorageFailure, err, "查询用户资料失败")
	}
	return p, true, nil
}

// SetWallet 实现 users.Store。
func (r *SQLUserRepository) SetWallet(ctx context.Context, userID, wallet string) error {
	if err := users.Validate(userID, wallet); err != nil {
		return err
	}
	now := time.Now().Unix()
	const upsert = `INSERT INTO user_profiles (user_id, wallet, created_at, updated_at)
    VALUES (?, ?, ?, ?)
    ON DUPLICATE KEY UPDATE wallet = VALUES(wallet), updated_at = VALUES(updated_at)`
	if _, err := r.db.ExecContext(ctx, upsert, strings.TrimSpace(userID), strings.TrimSpace(wallet), now, now); err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "保存用户资料失败")
	}
	return nil
}

// Close 释放连接池。
func (r *SQLUserRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

var _ users.Store = (*SQLUserRepository)(nil)
