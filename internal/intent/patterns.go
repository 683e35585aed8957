package intent

import (
	"regexp"
	"strings"
)

const (
	addressExpr = `(0x[a-f0-9]{40}|sei1[a-z0-9]{38,})`
	amountExpr  = `(\d+(?:\.\d+)?)`
	symbolExpr  = `([a-z0-9_-]+)`
)

// Recognizer 是单条模式规则，命中时产出 Intent。
type Recognizer struct {
	Name  string
	match func(lower string) (Intent, bool)
}

// Match 在已转为小写的文本上执行识别。
func (r Recognizer) Match(lower string) (Intent, bool) {
	return r.match(lower)
}

func recognizer(name, expr string, build func(m []string) Intent) Recognizer {
	re := regexp.MustCompile(`(?i)` + expr)
	return Recognizer{
		Name: name,
		match: func(lower string) (Intent, bool) {
			m := re.FindStringSubmatch(lower)
			if m == nil {
				return Intent{}, false
			}
			return build(m), true
		},
	}
}

// 识别顺序固定，先命中者胜出。
var recognizers = []Recognizer{
	recognizer("send", `send\s+`+amountExpr+`\s+\w*\s+to\s+`+addressExpr, func(m []string) Intent {
		return New(CommandSendToken, m[2], m[1])
	}),
	{
		Name: "price",
		match: func(lower string) (Intent, bool) {
			if m := pricePattern.FindStringSubmatch(lower); m != nil {
				return New(CommandPrice, strings.ToUpper(m[1])), true
			}
			if m := priceQuestionPattern.FindStringSubmatch(lower); m != nil {
				return New(CommandPrice, strings.ToUpper(m[2])), true
			}
			return Intent{}, false
		},
	},
	recognizer("swap", `swap\s+`+amountExpr+`\s+`+symbolExpr+`\s+to\s+`+symbolExpr+`\s+for\s+`+addressExpr, func(m []string) Intent {
		return New(CommandSwapAssets, m[2], m[3], m[1], m[4])
	}),
	recognizer("nft_buy", `buy\s+nft\s+(\d+)\s+from\s+`+addressExpr+`\s+`+addressExpr+`\s+for\s+`+amountExpr, func(m []string) Intent {
		return New(CommandNFTBuy, m[2], m[3], m[1], m[4])
	}),
	recognizer("nft_my", `my\s+nfts\s+in\s+`+addressExpr+`\s+for\s+`+addressExpr, func(m []string) Intent {
		return New(CommandNFTMy, m[1], m[2])
	}),
	recognizer("predict", `predict\s+(\d+)\s+on\s+`+addressExpr+`\s+choose\s+(\w+)\s+with\s+`+amountExpr, func(m []string) Intent {
		return New(CommandPredict, m[2], m[1], m[3], m[4])
	}),
}

var (
	pricePattern         = regexp.MustCompile(`(?i)price\s+of\s+` + symbolExpr)
	priceQuestionPattern = regexp.MustCompile(`(?i)what('?s| is) the price of\s+` + symbolExpr)
)

// Recognizers 返回按尝试顺序排列的识别器名称。
func Recognizers() []string {
	names := make([]string, 0, len(recognizers))
	for _, r := range recognizers {
		names = append(names, r.Name)
	}
	return names
}

// Extract 依次尝试所有识别器，返回第一个命中的 Intent 及其识别器名称。
func Extract(text string) (Intent, string, bool) {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return Intent{}, "", false
	}
	for _, r := range recognizers {
		if in, ok := r.Match(lower); ok {
			return in, r.Name, true
		}
	}
	return Intent{}, "", false
}

// MatchSend 只执行 send 识别器，供外部解释插件复用同一语法。
func MatchSend(text string) (Intent, bool) {
	return recognizers[0].Match(strings.ToLower(strings.TrimSpace(text)))
}

var balanceOfPattern = regexp.MustCompile(`(?i)balance of\s+` + addressExpr)

// MatchBalanceOf 识别 "balance of <address>"，返回地址。
func MatchBalanceOf(text string) (string, bool) {
	m := balanceOfPattern.FindStringSubmatch(strings.ToLower(strings.TrimSpace(text)))
	if m == nil {
		return "", false
	}
	return m[1], true
}
