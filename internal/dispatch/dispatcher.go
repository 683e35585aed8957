package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	xerrors "SeiChat-Agent/internal/errors"
	"SeiChat-Agent/internal/intent"
	"SeiChat-Agent/internal/observability/metrics"
	"SeiChat-Agent/internal/oracle"
	"SeiChat-Agent/internal/users"
	"SeiChat-Agent/internal/web3"
	"SeiChat-Agent/pkg/logger"
)

// 固定回复文本。
const (
	UnknownCommandReply = "⚠️ Unknown command. Type /help for list of commands."
	ClearedReply        = "🧹 Chat cleared!"
	NoWalletReply       = "⚠️ No wallet set. Use /set_address <address>"
	NoNFTsReply         = "No NFTs found."
)

// 执行状态，用于指标与审计日志。
const (
	StatusOK      = "ok"
	StatusUsage   = "usage"
	StatusError   = "error"
	StatusUnknown = "unknown"
)

// Sender 标识发出命令的用户与消息。
type Sender struct {
	UserID    string
	ChatID    string
	MessageID string
}

// Outcome 是一次命令执行的唯一结果。
type Outcome struct {
	Command intent.Command
	Text    string
	Failed  bool
	Status  string
}

// MessageDeleter 由聊天传输层实现，用于 clear 命令。
type MessageDeleter interface {
	DeleteMessage(ctx context.Context, chatID, messageID string) error
}

// Dispatcher 将命令路由到对应的协作者。
type Dispatcher struct {
	wallet         web3.Wallet
	swapper        web3.Swapper
	market         web3.NFTMarket
	oracle         oracle.Oracle
	users          users.Store
	deleter        MessageDeleter
	defaultAddress string
	log            *slog.Logger
	audit          *slog.Logger
}

// Option 定义可选的 Dispatcher 配置。
type Option func(*Dispatcher)

// WithChain 同时设置钱包、兑换与 NFT 市场协作者。
func WithChain(c web3.Client) Option {
	return func(d *Dispatcher) {
		if c == nil {
			return
		}
		d.wallet, d.swapper, d.market = c, c, c
	}
}

// WithWallet 设置余额与转账协作者。
func WithWallet(w web3.Wallet) Option {
	return func(d *Dispatcher) { d.wallet = w }
}

// WithSwapper 设置兑换协作者。
func WithSwapper(s web3.Swapper) Option {
	return func(d *Dispatcher) { d.swapper = s }
}

// WithMarket 设置 NFT 市场协作者。
func WithMarket(m web3.NFTMarket) Option {
	return func(d *Dispatcher) { d.market = m }
}

// WithOracle 设置价格与预测协作者。
func WithOracle(o oracle.Oracle) Option {
	return func(d *Dispatcher) { d.oracle = o }
}

// WithUserStore 设置用户资料存储。
func WithUserStore(s users.Store) Option {
	return func(d *Dispatcher) { d.users = s }
}

// WithDeleter 设置消息删除协作者。
func WithDeleter(m MessageDeleter) Option {
	return func(d *Dispatcher) { d.deleter = m }
}

// WithDefaultAddress 设置用户未绑定钱包时使用的地址。
func WithDefaultAddress(addr string) Option {
	return func(d *Dispatcher) { d.defaultAddress = strings.TrimSpace(addr) }
}

// WithLogger 设置日志记录器。
func WithLogger(log *slog.Logger) Option {
	return func(d *Dispatcher) {
		if log != nil {
			d.log = log
		}
	}
}

// WithAuditLogger 设置审计日志记录器。
func WithAuditLogger(log *slog.Logger) Option {
	return func(d *Dispatcher) {
		if log != nil {
			d.audit = log
		}
	}
}

// New 创建 Dispatcher。
func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		log:   logger.Named("dispatch"),
		audit: logger.Audit(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Dispatch 执行一条命令。该方法总是返回一个 Outcome，不会 panic 到调用方。
func (d *Dispatcher) Dispatch(ctx context.Context, in intent.Intent, sender Sender) (out Outcome) {
	start := time.Now()
	out.Command = in.Command()
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("命令执行异常", slog.String("command", string(in.Command())), slog.Any("panic", r))
			out = failure(in.Command(), fmt.Errorf("%v", r))
		}
		d.record(in, sender, out, time.Since(start))
	}()

	h, ok := handlers[in.Command()]
	if !ok {
		return Outcome{Command: in.Command(), Text: UnknownCommandReply, Status: StatusUnknown}
	}
	return h(ctx, d, in, sender)
}

func (d *Dispatcher) record(in intent.Intent, sender Sender, out Outcome, elapsed time.Duration) {
	command := string(in.Command())
	if out.Status == StatusUnknown {
		command = "unknown"
	}
	var duration time.Duration
	if out.Status == StatusOK || out.Status == StatusError {
		duration = elapsed
	}
	metrics.ObserveCommand(command, out.Status, duration)
	d.audit.Info("command",
		slog.String("user_id", sender.UserID),
		slog.String("chat_id", sender.ChatID),
		slog.String("command", command),
		slog.Int("args", in.NumArgs()),
		slog.String("status", out.Status),
		slog.Duration("elapsed", elapsed),
	)
}

func success(cmd intent.Command, text string) Outcome {
	return Outcome{Command: cmd, Text: text, Status: StatusOK}
}

func usage(cmd intent.Command, text string) Outcome {
	return Outcome{Command: cmd, Text: text, Status: StatusUsage}
}

func failure(cmd intent.Command, err error) Outcome {
	return Outcome{Command: cmd, Text: intent.ErrorMarker + xerrors.Describe(err), Failed: true, Status: StatusError}
}

// fail 记录协作者错误并生成失败结果。
func (d *Dispatcher) fail(cmd intent.Command, collaborator string, err error) Outcome {
	metrics.ObserveCollaboratorFailure(collaborator)
	wrapped := xerrors.Wrap(xerrors.CodeCollaboratorFailure, err, collaborator+" call failed",
		xerrors.WithMetadata("command", string(cmd)))
	d.log.Warn("协作者调用失败",
		slog.String("command", string(cmd)),
		slog.String("code", string(wrapped.Code())),
		slog.Any("error", wrapped))
	return failure(cmd, err)
}

func notConfigured(what string) error {
	return xerrors.New(xerrors.CodeInitializationFailure, what+" not configured")
}

// storedWallet 读取用户绑定的钱包，读取失败只记录日志。
func (d *Dispatcher) storedWallet(ctx context.Context, userID string) string {
	if d.users == nil || strings.TrimSpace(userID) == "" {
		return ""
	}
	p, ok, err := d.users.Get(ctx, userID)
	if err != nil {
		metrics.ObserveCollaboratorFailure("users")
		d.log.Warn("读取用户资料失败", slog.String("user_id", userID), slog.Any("error", err))
		return ""
	}
	if !ok || !p.HasWallet() {
		return ""
	}
	return p.Wallet
}

// ownerAddress 按 参数、已绑定钱包、默认地址 的顺序选择地址。
func (d *Dispatcher) ownerAddress(ctx context.Context, explicit, userID string) string {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		return explicit
	}
	if w := d.storedWallet(ctx, userID); w != "" {
		return w
	}
	return d.defaultAddress
}
