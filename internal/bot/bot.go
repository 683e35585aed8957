// Package bot 将解析流水线、命令分发与事件投递组合为单条消息的处理入口，
// 供聊天传输层与 HTTP 接口共用。
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"SeiChat-Agent/internal/dispatch"
	"SeiChat-Agent/internal/events"
	"SeiChat-Agent/internal/intent"
	"SeiChat-Agent/internal/observability/metrics"
	"SeiChat-Agent/pkg/logger"
)

// WelcomeReply 是 /start 的固定回复。
const WelcomeReply = "👋 Welcome! I can perform Sei actions. Type /help or speak naturally."

// HelpText 是 /help 的固定回复。
const HelpText = `🤖 *SEI Bot Commands* 🚀

💼 *Wallet*
/set_wallet <address> – Link wallet
/myaddress – Show linked wallet
/balance [address] – SEI balance

📊 *Market*
/price <SYMBOL> – Token price
/predict <SYMBOL> – AI prediction
/signal <SYMBOL> – Trading signal

💸 *Tokens*
/send_token <to> <amt> [token] – Send
/swap_assets <in> <out> <amt> <to> – Swap

🖼️ *NFTs*
/nft_buy <market> <nft> <id> <price> – Buy NFT
/nft_sell <market> <nft> <id> <price> – Sell NFT
/nft_my <nft> [owner] – My NFTs

🧹 *Other*
/clear – Reset chat

💡 *Tip:* Natural language works too:
"price of SEI" | "send 1 SEI to 0x..." | "swap 10 USDC to SEI for 0x..."
`

// StageSlash 表示消息以斜杠命令直接进入分发。
const StageSlash = "slash"

// Resolver 把自由文本解析为命令或回复。
type Resolver interface {
	ResolveStage(ctx context.Context, msg intent.Message) (intent.Result, string)
}

// Executor 执行一条已解析的命令。
type Executor interface {
	Dispatch(ctx context.Context, in intent.Intent, sender dispatch.Sender) dispatch.Outcome
}

// Response 是对一条消息的处理结果。
type Response struct {
	Text    string
	Stage   string
	Command intent.Command
	Failed  bool
}

// Empty 表示无需回复。
func (r Response) Empty() bool {
	return r.Text == ""
}

// Pipeline 处理单条入站消息。
type Pipeline struct {
	resolver  Resolver
	executor  Executor
	publisher events.Publisher
	log       *slog.Logger
}

// Option 定义可选的 Pipeline 配置。
type Option func(*Pipeline)

// WithPublisher 设置命令结果事件的投递方式。
func WithPublisher(p events.Publisher) Option {
	return func(pl *Pipeline) { pl.publisher = p }
}

// WithLogger 设置日志记录器。
func WithLogger(log *slog.Logger) Option {
	return func(pl *Pipeline) {
		if log != nil {
			pl.log = log
		}
	}
}

// NewPipeline 创建 Pipeline。
func NewPipeline(resolver Resolver, executor Executor, opts ...Option) *Pipeline {
	p := &Pipeline{resolver: resolver, executor: executor, log: logger.Named("bot")}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Handle 处理一条消息并返回需要发送的回复。任何 panic 都会被转换为
// 带错误前缀的回复，调用方无需再做保护。
func (p *Pipeline) Handle(ctx context.Context, msg intent.Message) (resp Response) {
	defer func() {
		if r := recover(); r != nil {
			metrics.ObserveCollaboratorFailure("pipeline")
			p.log.Error("消息处理异常", slog.String("sender", msg.SenderID), slog.Any("panic", r))
			resp = Response{Text: intent.ErrorMarker + fmt.Sprint(r), Failed: true}
		}
	}()

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return Response{}
	}

	if in, ok := intent.ParseSlash(text); ok {
		switch in.Command() {
		case "start":
			return Response{Text: WelcomeReply, Stage: StageSlash}
		case "help":
			return Response{Text: HelpText, Stage: StageSlash}
		}
		return p.execute(ctx, msg, in, StageSlash)
	}

	res, stage := p.resolver.ResolveStage(ctx, msg)
	switch res.Kind {
	case intent.KindReply:
		return Response{Text: res.Text, Stage: stage}
	case intent.KindIntent:
		return p.execute(ctx, msg, res.Intent, stage)
	default:
		return Response{Stage: stage}
	}
}

func (p *Pipeline) execute(ctx context.Context, msg intent.Message, in intent.Intent, stage string) Response {
	out := p.executor.Dispatch(ctx, in, dispatch.Sender{
		UserID:    msg.SenderID,
		ChatID:    msg.ChatID,
		MessageID: msg.MessageID,
	})
	p.publish(ctx, msg, out, stage)
	return Response{Text: out.Text, Stage: stage, Command: out.Command, Failed: out.Failed}
}

// publish 投递命令结果事件，失败只记录日志。
func (p *Pipeline) publish(ctx context.Context, msg intent.Message, out dispatch.Outcome, stage string) {
	if p.publisher == nil {
		return
	}
	event := events.NewCommandOutcome(msg.SenderID, msg.ChatID, string(out.Command), out.Failed)
	event.Stage = stage
	event.Text = out.Text
	if err := p.publisher.Publish(ctx, event); err != nil {
		p.log.Warn("投递命令事件失败", slog.String("event_id", event.ID), slog.Any("error", err))
	}
}
