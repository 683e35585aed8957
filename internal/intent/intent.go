package intent

import (
	"strings"
)

// Command 枚举所有可执行的命令。
type Command string

const (
	CommandPrice      Command = "price"
	CommandBalance    Command = "balance"
	CommandSendToken  Command = "send_token"
	CommandSwapAssets Command = "swap_assets"
	CommandNFTBuy     Command = "nft_buy"
	CommandNFTSell    Command = "nft_sell"
	CommandNFTMy      Command = "nft_my"
	CommandPredict    Command = "predict"
	CommandMyAddress  Command = "myaddress"
	CommandSetAddress Command = "set_address"
	CommandSetWallet  Command = "set_wallet"
	CommandClear      Command = "clear"
	CommandSignal     Command = "signal"
)

// ErrorMarker 是所有失败回复的固定前缀，调用方据此区分成功与失败。
const ErrorMarker = "⚠️ Error: "

// Message 是进入解析流水线的一条聊天消息。
type Message struct {
	Text      string
	SenderID  string
	ChatID    string
	MessageID string
}

// Intent 是从文本中解析出的结构化命令，参数按位置排列。
type Intent struct {
	command Command
	args    []string
}

// New 构造 Intent，参数会被复制，之后不可修改。
func New(command Command, args ...string) Intent {
	copied := make([]string, len(args))
	copy(copied, args)
	return Intent{command: Command(strings.ToLower(string(command))), args: copied}
}

// Command 返回命令名。
func (i Intent) Command() Command {
	return i.command
}

// Args 返回参数的副本。
func (i Intent) Args() []string {
	copied := make([]string, len(i.args))
	copy(copied, i.args)
	return copied
}

// Arg 返回第 idx 个参数，不存在时返回空字符串。
func (i Intent) Arg(idx int) string {
	if idx < 0 || idx >= len(i.args) {
		return ""
	}
	return i.args[idx]
}

// NumArgs 返回参数个数。
func (i Intent) NumArgs() int {
	return len(i.args)
}

// Equal 判断两个 Intent 是否完全一致。
func (i Intent) Equal(other Intent) bool {
	if i.command != other.command || len(i.args) != len(other.args) {
		return false
	}
	for idx := range i.args {
		if i.args[idx] != other.args[idx] {
			return false
		}
	}
	return true
}

// Kind 标识解析结果的类型。
type Kind int

const (
	KindNone Kind = iota
	KindIntent
	KindReply
)

func (k Kind) String() string {
	switch k {
	case KindIntent:
		return "intent"
	case KindReply:
		return "reply"
	default:
		return "none"
	}
}

// Result 是解析流水线的输出：无结果、命令或直接回复三者之一。
type Result struct {
	Kind   Kind
	Intent Intent
	Text   string
}

// None 表示没有任何识别器给出结果。
func None() Result {
	return Result{Kind: KindNone}
}

// FromIntent 包装一个命令结果。
func FromIntent(in Intent) Result {
	return Result{Kind: KindIntent, Intent: in}
}

// Reply 包装一个文本回复。
func Reply(text string) Result {
	return Result{Kind: KindReply, Text: text}
}

// IsNone 判断结果是否为空。
func (r Result) IsNone() bool {
	return r.Kind == KindNone
}

// Equal 判断两个结果是否一致。
func (r Result) Equal(other Result) bool {
	if r.Kind != other.Kind {
		return false
	}
	switch r.Kind {
	case KindIntent:
		return r.Intent.Equal(other.Intent)
	case KindReply:
		return r.Text == other.Text
	default:
		return true
	}
}

// ParseSlash 将 "/cmd a b" 形式的文本直接解析为 Intent。
// 不以 "/" 开头或命令为空时返回 false。
func ParseSlash(text string) (Intent, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return Intent{}, false
	}
	parts := strings.Fields(text[1:])
	if len(parts) == 0 {
		return Intent{}, false
	}
	command := strings.ToLower(parts[0])
	// Discord/Telegram 群组里的 "/cmd@botname" 形式。
	if at := strings.IndexByte(command, '@'); at > 0 {
		command = command[:at]
	}
	return New(Command(command), parts[1:]...), true
}
