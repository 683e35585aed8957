package events

import (
	"context"
	"time"

	"SeiChat-Agent/internal/storage/mysql"
)

// MySQLSink 将事件写入 command_outcomes 表。
type MySQLSink struct {
	repo *mysql.SQLOutcomeRepository
}

// NewMySQLSink 基于已有的仓储创建 Sink。
func NewMySQLSink(repo *mysql.SQLOutcomeRepository) *MySQLSink {
	return &MySQLSink{repo: repo}
}

// Name 返回 Sink 名称。
func (s *MySQLSink) Name() string { return "mysql" }

// Publish 写入一条记录，重复 ID 会被忽略。
func (s *MySQLSink) Publish(ctx context.Context, event CommandOutcome) error {
	return s.repo.Save(ctx, mysql.OutcomeRecord{
		ID:        event.ID,
		UserID:    event.UserID,
		Command:   event.Command,
		Failed:    event.Failed,
		CreatedAt: event.OccurredAt.Unix(),
	})
}

// Recent 读取用户最近的记录。
func (s *MySQLSink) Recent(ctx context.Context, userID string, limit int) ([]CommandOutcome, error) {
	records, err := s.repo.ListRecent(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]CommandOutcome, 0, len(records))
	for _, r := range records {
		out = append(out, CommandOutcome{
			ID:         r.ID,
			UserID:     r.UserID,
			Command:    r.Command,
			Failed:     r.Failed,
			OccurredAt: time.Unix(r.CreatedAt, 0).UTC(),
		})
	}
	return out, nil
}
