package events

import (
	"context"
	"log/slog"

	"SeiChat-Agent/pkg/logger"
)

// LogSink 将事件写入结构化日志。
type LogSink struct {
	log *slog.Logger
}

// NewLogSink 创建日志 Sink，logger 为空时使用全局 logger。
func NewLogSink(log *slog.Logger) *LogSink {
	if log == nil {
		log = logger.Named("events")
	}
	return &LogSink{log: log}
}

// Name 返回 Sink 名称。
func (s *LogSink) Name() string { return "log" }

// Publish 输出一条 info 日志。
func (s *LogSink) Publish(ctx context.Context, event CommandOutcome) error {
	s.log.InfoContext(ctx, "命令执行完成",
		slog.String("event_id", event.ID),
		slog.String("user_id", event.UserID),
		slog.String("command", event.Command),
		slog.Bool("failed", event.Failed),
		slog.String("stage", event.Stage),
	)
	return nil
}
