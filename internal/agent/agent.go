package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	xerrors "SeiChat-Agent/internal/errors"
	"SeiChat-Agent/internal/intent"
	"SeiChat-Agent/internal/llm"
	"SeiChat-Agent/internal/observability/metrics"
	"SeiChat-Agent/pkg/logger"
)

// SystemPrompt 约束对话补全只给出简短、与 SEI 相关的回复。
const SystemPrompt = "You are a friendly Telegram assistant that helps users with Sei blockchain tasks " +
	"(get prices, send tokens, swap, buy NFTs, view NFTs, prediction markets). " +
	"If the user asks for an on-chain action, output nothing here (the bot will parse and call actions separately). " +
	"Otherwise answer conversationally and help the user. Keep replies short (1-3 sentences)."

// FallbackReply 是所有识别阶段均未命中时的固定回复。
const FallbackReply = "I didn't quite get that. You can use /help or say things like 'send 1 SEI to 0x...' or 'price of SEI'."

// 产生结果的识别阶段，用于日志与指标。
const (
	StageEmpty     = "empty"
	StageSmallTalk = "smalltalk"
	StageDelegate  = "delegate"
	StagePattern   = "pattern"
	StageCompleter = "completer"
	StageFallback  = "fallback"
)

// Delegate 是可选的委托解释器，返回 None 表示未处理。
type Delegate interface {
	Forward(ctx context.Context, msg intent.Message) intent.Result
}

// Agent 按固定顺序组合各识别阶段，把一条消息解析为命令或回复。
type Agent struct {
	delegate  Delegate
	completer llm.Completer
	log       *slog.Logger
}

// Option 定义可选的 Agent 配置。
type Option func(*Agent)

// WithDelegate 启用委托解释器。
func WithDelegate(d Delegate) Option {
	return func(a *Agent) {
		a.delegate = d
	}
}

// WithCompleter 配置对话补全兜底，未配置时直接跳到固定回复。
func WithCompleter(c llm.Completer) Option {
	return func(a *Agent) {
		a.completer = c
	}
}

// WithLogger 设置日志记录器。
func WithLogger(log *slog.Logger) Option {
	return func(a *Agent) {
		if log != nil {
			a.log = log
		}
	}
}

// New 创建一个 Agent。
func New(opts ...Option) *Agent {
	ag := &Agent{log: logger.Named("agent")}
	for _, opt := range opts {
		if opt != nil {
			opt(ag)
		}
	}
	return ag
}

// Resolve 解析一条消息。该方法不会返回错误，外部协作者的失败只会让流程
// 进入下一阶段。
func (a *Agent) Resolve(ctx context.Context, msg intent.Message) intent.Result {
	res, _ := a.ResolveStage(ctx, msg)
	return res
}

// ResolveStage 与 Resolve 相同，但额外返回产生结果的阶段名。
func (a *Agent) ResolveStage(ctx context.Context, msg intent.Message) (intent.Result, string) {
	res, stage := a.resolve(ctx, msg)
	metrics.ObserveResolution(stage)
	a.log.Debug("消息解析完成",
		slog.String("sender", msg.SenderID),
		slog.String("stage", stage),
		slog.String("kind", res.Kind.String()))
	return res, stage
}

func (a *Agent) resolve(ctx context.Context, msg intent.Message) (intent.Result, string) {
	raw := strings.TrimSpace(msg.Text)
	if raw == "" {
		return intent.None(), StageEmpty
	}
	msg.Text = raw

	if reply, ok := intent.SmallTalk(raw); ok {
		return intent.Reply(reply), StageSmallTalk
	}

	if a.delegate != nil {
		if res := a.forward(ctx, msg); !res.IsNone() {
			return res, StageDelegate
		}
	}

	if in, rule, ok := intent.Extract(raw); ok {
		a.log.Debug("模式识别命中", slog.String("rule", rule))
		return intent.FromIntent(in), StagePattern
	}

	if a.completer != nil {
		if reply, ok := a.complete(ctx, raw); ok {
			return intent.Reply(reply), StageCompleter
		}
	}

	a.log.Debug("所有识别阶段均未命中", slog.String("code", string(xerrors.CodeUnhandledInput)))
	return intent.Reply(FallbackReply), StageFallback
}

// forward 为委托解释器提供最后一道保护，panic 转换为错误回复。
func (a *Agent) forward(ctx context.Context, msg intent.Message) (res intent.Result) {
	defer func() {
		if r := recover(); r != nil {
			metrics.ObserveCollaboratorFailure("delegate")
			a.log.Error("委托解释器异常", slog.Any("panic", r))
			res = intent.Reply(intent.ErrorMarker + fmt.Sprint(r))
		}
	}()
	return a.delegate.Forward(ctx, msg)
}

func (a *Agent) complete(ctx context.Context, text string) (reply string, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			metrics.ObserveCollaboratorFailure("completer")
			a.log.Error("对话补全异常", slog.Any("panic", r))
			reply, ok = "", false
		}
	}()
	out, err := a.completer.Complete(ctx, SystemPrompt, text)
	if err != nil {
		metrics.ObserveCollaboratorFailure("completer")
		a.log.Warn("对话补全失败，使用固定回复", slog.Any("error", err))
		return "", false
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", false
	}
	return out, true
}
