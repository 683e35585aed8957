// Package events 将每次命令执行的结果投递到日志、内存、MySQL 或 RabbitMQ。
package events

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"SeiChat-Agent/internal/observability/metrics"

	"github.com/google/uuid"
)

// CommandOutcome 描述一次已执行命令的结果。
type CommandOutcome struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	ChatID     string    `json:"chat_id,omitempty"`
	Command    string    `json:"command"`
	Failed     bool      `json:"failed"`
	Stage      string    `json:"stage,omitempty"`
	Text       string    `json:"text,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewCommandOutcome 生成带唯一 ID 与时间戳的事件。
func NewCommandOutcome(userID, chatID, command string, failed bool) CommandOutcome {
	return CommandOutcome{
		ID:         uuid.NewString(),
		UserID:     userID,
		ChatID:     chatID,
		Command:    command,
		Failed:     failed,
		OccurredAt: time.Now().UTC(),
	}
}

// Sink 表示一个事件投递目标。
type Sink interface {
	Name() string
	Publish(ctx context.Context, event CommandOutcome) error
}

// Publisher 是业务层依赖的投递接口。
type Publisher interface {
	Publish(ctx context.Context, event CommandOutcome) error
}

// History 按用户查询最近的事件。
type History interface {
	Recent(ctx context.Context, userID string, limit int) ([]CommandOutcome, error)
}

// Fanout 将事件广播给多个 Sink。
type Fanout struct {
	sinks []Sink
}

// NewFanout 创建 Fanout，忽略 nil，同名 Sink 只保留最后一个。
func NewFanout(sinks ...Sink) *Fanout {
	index := make(map[string]int, len(sinks))
	var list []Sink
	for _, s := range sinks {
		if s == nil {
			continue
		}
		if i, ok := index[s.Name()]; ok {
			list[i] = s
			continue
		}
		index[s.Name()] = len(list)
		list = append(list, s)
	}
	return &Fanout{sinks: list}
}

// Publish 将事件投递到所有 Sink，单个失败不影响其他 Sink。
func (f *Fanout) Publish(ctx context.Context, event CommandOutcome) error {
	if f == nil {
		return nil
	}
	var errs []error
	for _, sink := range f.sinks {
		if err := sink.Publish(ctx, event); err != nil {
			metrics.EventsPublished.WithLabelValues("error").Inc()
			errs = append(errs, fmt.Errorf("sink %s: %w", sink.Name(), err))
			continue
		}
		metrics.EventsPublished.WithLabelValues("ok").Inc()
	}
	return errors.Join(errs...)
}

// Sinks 返回已注册的 Sink 名称。
func (f *Fanout) Sinks() []string {
	if f == nil {
		return nil
	}
	names := make([]string, 0, len(f.sinks))
	for _, s := range f.sinks {
		names = append(names, s.Name())
	}
	return names
}

// Close 关闭实现了 io.Closer 的 Sink。
func (f *Fanout) Close() error {
	if f == nil {
		return nil
	}
	var errs []error
	for _, s := range f.sinks {
		if c, ok := s.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}
