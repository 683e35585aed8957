package mysql

import (
	"context"
	"database/sql"
	"fmt"
)

// OutcomeRecord 是一次命令执行结果的落库结构。
type OutcomeRecord struct {
	ID        string
	UserID    string
	Command   string
	Failed    bool
	CreatedAt int64
}

// SQLOutcomeRepository 记录命令执行历史，与用户资料共用连接。
type SQLOutcomeRepository struct {
	db *sql.DB
}

// NewSQLOutcomeRepository 基于已迁移的连接创建仓库。
func NewSQLOutcomeRepository(db *sql.DB) *SQLOutcomeRepository {
	return &SQLOutcomeRepository{db: db}
}

// Save 写入一条执行记录，ID 重复时忽略。
func (r *SQLOutcomeRepository) Save(ctx context.Context, record OutcomeRecord) error {
	const insert = `INSERT IGNORE INTO command_outcomes (id, user_id, command, failed, created_at)
    VALUES (?, ?, ?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, insert, record.ID, record.UserID, record.Command, boolToInt(record.Failed), record.CreatedAt); err != nil {
		return fmt.Errorf("保存命令记录失败: %w", err)
	}
	return nil
}

// ListRecent 按时间倒序返回某个用户最近的执行记录。
func (r *SQLOutcomeRepository) ListRecent(ctx context.Context, userID string, limit int) ([]OutcomeRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	const query = `SELECT id, user_id, command, failed, created_at FROM command_outcomes
    WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("查询命令记录失败: %w", err)
	}
	defer rows.Close()

	var out []OutcomeRecord
	for rows.Next() {
		var rec OutcomeRecord
		var failed int
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Command, &failed, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("解析命令记录失败: %w", err)
		}
		rec.Failed = failed == 1
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("遍历命令记录失败: %w", err)
	}
	return out, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
