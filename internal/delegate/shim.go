package delegate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	xerrors "SeiChat-Agent/internal/errors"
	"SeiChat-Agent/internal/intent"
	"SeiChat-Agent/internal/observability/metrics"
	"SeiChat-Agent/pkg/logger"
	"SeiChat-Agent/pkg/plugin"
)

// State 描述插件的加载状态。
type State int

const (
	// StateUnloaded 尚未尝试加载。
	StateUnloaded State = iota
	// StateLoaded 插件加载成功并完成能力协商。
	StateLoaded
	// StateUnavailable 加载失败或未配置，进程生命周期内不再重试。
	StateUnavailable
)

func (s State) String() string {
	switch s {
	case StateLoaded:
		return "loaded"
	case StateUnavailable:
		return "unavailable"
	default:
		return "unloaded"
	}
}

// 执行来源，会出现在回复文本中。
const (
	SourcePlugin = "plugin"
	SourceLocal  = "local"
)

// LocalWallet 是插件缺失或失败时的默认执行者，通常由链上客户端实现。
type LocalWallet interface {
	Balance(ctx context.Context, address string) (string, error)
	SendNative(ctx context.Context, to, amount string) (string, error)
	SendToken(ctx context.Context, token, to, amount string) (string, error)
}

// Option 定义可选的 Shim 配置。
type Option func(*Shim)

// WithLoader 替换默认的 Go plugin 加载器。
func WithLoader(loader plugin.Loader) Option {
	return func(s *Shim) {
		if loader != nil {
			s.loader = loader
		}
	}
}

// WithPolicy 设置插件的能力隔离策略。
func WithPolicy(policy plugin.IsolationPolicy) Option {
	return func(s *Shim) {
		s.policy = policy
	}
}

// WithLogger 设置日志记录器。
func WithLogger(log *slog.Logger) Option {
	return func(s *Shim) {
		if log != nil {
			s.log = log
		}
	}
}

// Shim 是可选的委托解释器：它先用自身的启发式规则认领消息，
// 再优先通过插件执行动作，插件不可用时回退到本地钱包。
type Shim struct {
	path   string
	loader plugin.Loader
	policy plugin.IsolationPolicy
	local  LocalWallet
	log    *slog.Logger

	once   sync.Once
	state  State
	info   plugin.Info
	grants plugin.Grants
}

// New 创建 Shim。插件在第一次 Forward 时懒加载，且只尝试一次。
func New(path string, local LocalWallet, opts ...Option) *Shim {
	s := &Shim{
		path:   strings.TrimSpace(path),
		loader: plugin.GoPluginLoader{},
		local:  local,
		log:    logger.Named("delegate"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State 返回当前加载状态，会触发懒加载。
func (s *Shim) State() State {
	s.load()
	return s.state
}

// Grants 返回协商得到的插件能力。
func (s *Shim) Grants() plugin.Grants {
	s.load()
	return s.grants
}

func (s *Shim) load() {
	s.once.Do(func() {
		if s.path == "" {
			s.state = StateUnavailable
			s.log.Info("未配置委托插件，使用本地钱包")
			return
		}
		p, err := s.loader.Load(s.path)
		if err != nil {
			s.state = StateUnavailable
			s.log.Warn("委托插件加载失败，回退到本地钱包", slog.String("path", s.path), slog.Any("error", err))
			return
		}
		grants, err := plugin.Negotiate(p, s.policy)
		if err != nil {
			s.state = StateUnavailable
			s.log.Warn("委托插件能力协商失败", slog.String("path", s.path), slog.Any("error", err))
			return
		}
		s.info = p.Info()
		s.grants = grants
		s.state = StateLoaded
		s.log.Info("委托插件已加载",
			slog.String("plugin", s.info.ID),
			slog.String("version", s.info.Version),
			slog.Any("capabilities", grants.List()))
	})
}

// Forward 尝试认领一条消息。返回 Reply 表示已完整处理，返回 Intent
// 表示交给调度器执行，返回 None 表示未处理，由调用方继续后续识别。
// 动作执行失败会被转换为错误回复，不会向上抛出。
func (s *Shim) Forward(ctx context.Context, msg intent.Message) intent.Result {
	lower := strings.ToLower(msg.Text)

	if in, ok := intent.MatchSend(lower); ok {
		to, amount := in.Arg(0), in.Arg(1)
		source, result, err := s.SendToken(ctx, plugin.SendRequest{To: to, Amount: amount})
		if err != nil {
			return intent.Reply("⚠️ Failed to send: " + xerrors.Describe(err))
		}
		return intent.Reply(fmt.Sprintf("✅ Sent %s (via %s). Result: %s", amount, source, renderResult(result)))
	}

	if addr, ok := intent.MatchBalanceOf(lower); ok {
		source, balance, err := s.Balance(ctx, addr)
		if err != nil {
			return intent.Reply("⚠️ Failed to fetch balance: " + xerrors.Describe(err))
		}
		return intent.Reply(fmt.Sprintf("💰 Balance (%s): %s", source, balance))
	}

	s.load()
	if s.grants.Interpret == nil {
		return intent.None()
	}
	return s.interpret(ctx, msg.Text)
}

// SendToken 优先调用插件的 send_token 能力，失败后回退到本地钱包。
func (s *Shim) SendToken(ctx context.Context, req plugin.SendRequest) (string, any, error) {
	s.load()
	if sender := s.grants.SendToken; sender != nil {
		res, err := guard(func() (any, error) { return sender.SendToken(ctx, req) })
		if err == nil {
			return SourcePlugin, res, nil
		}
		metrics.ObserveCollaboratorFailure("delegate_plugin")
		s.log.Error("插件 send_token 失败，回退到本地钱包", slog.Any("error", err))
	}
	if s.local == nil {
		return "", nil, xerrors.New(xerrors.CodePluginUnavailable, "未配置本地钱包")
	}
	var (
		tx  string
		err error
	)
	if req.TokenAddress == "" {
		tx, err = s.local.SendNative(ctx, req.To, req.Amount)
	} else {
		tx, err = s.local.SendToken(ctx, req.TokenAddress, req.To, req.Amount)
	}
	if err != nil {
		s.log.Error("本地发送失败", slog.Any("error", err))
		return "", nil, err
	}
	return SourceLocal, tx, nil
}

// Balance 优先调用插件的 get_balance 能力，失败后回退到本地钱包。
func (s *Shim) Balance(ctx context.Context, address string) (string, string, error) {
	s.load()
	if reader := s.grants.GetBalance; reader != nil {
		res, err := guard(func() (string, error) { return reader.GetBalance(ctx, address) })
		if err == nil {
			return SourcePlugin, res, nil
		}
		metrics.ObserveCollaboratorFailure("delegate_plugin")
		s.log.Error("插件 get_balance 失败，回退到本地钱包", slog.Any("error", err))
	}
	if s.local == nil {
		return "", "", xerrors.New(xerrors.CodePluginUnavailable, "未配置本地钱包")
	}
	balance, err := s.local.Balance(ctx, address)
	if err != nil {
		return "", "", err
	}
	return SourceLocal, balance, nil
}

func (s *Shim) interpret(ctx context.Context, text string) intent.Result {
	interpreter := s.grants.Interpret
	out, err := guard(func() (plugin.Interpretation, error) { return interpreter.Interpret(ctx, text) })
	if err != nil {
		metrics.ObserveCollaboratorFailure("delegate_plugin")
		s.log.Error("插件解析失败", slog.Any("error", err))
		return intent.Reply(intent.ErrorMarker + xerrors.Describe(err))
	}
	if reply := strings.TrimSpace(out.Reply); reply != "" {
		return intent.Reply(reply)
	}
	if cmd := strings.TrimSpace(out.Command); cmd != "" {
		return intent.FromIntent(intent.New(intent.Command(cmd), out.Args...))
	}
	return intent.None()
}

// guard 把插件调用中的 panic 转换为错误。
func guard[T any](fn func() (T, error)) (out T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = xerrors.New(xerrors.CodeCollaboratorFailure, fmt.Sprintf("插件调用异常: %v", r))
		}
	}()
	return fn()
}

func renderResult(v any) string {
	if s, ok := v.(string); ok {
		encoded, _ := json.Marshal(s)
		return string(encoded)
	}
	encoded, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(encoded)
}
