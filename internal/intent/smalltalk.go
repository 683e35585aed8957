package intent

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var greetings = []string{
	"hi", "hello", "hey", "hii", "hiya", "good morning", "good afternoon", "good evening",
}

var (
	thanksPattern   = regexp.MustCompile(`(?i)\b(thanks|thank you|thx)\b`)
	farewellPattern = regexp.MustCompile(`(?i)\b(bye|goodbye|see ya|see you)\b`)
)

const (
	greetingSuffix = "! I can help with SEI actions (try /help) — or just tell me what you'd like to do."
	// GreetingMarker 是所有问候回复的固定前缀。
	GreetingMarker = "👋 "
	ThanksReply    = "You’re welcome! 😊 Anything else I can do?"
	FarewellReply  = "Bye 👋 — ping me anytime."
)

// SmallTalk 识别问候、感谢与告别，命中时返回固定回复。
// raw 必须是已经去除首尾空白的原始文本。
func SmallTalk(raw string) (string, bool) {
	if raw == "" {
		return "", false
	}
	lower := strings.ToLower(raw)

	for _, g := range greetings {
		if lower == g || strings.HasPrefix(lower, g+" ") || lower == g+"!" {
			return GreetingMarker + capitalizeFirst(raw) + greetingSuffix, true
		}
	}

	if thanksPattern.MatchString(lower) {
		return ThanksReply, true
	}
	if farewellPattern.MatchString(lower) {
		return FarewellReply, true
	}
	return "", false
}

// capitalizeFirst 将首个输入词的首字母大写，其余部分原样保留。
func capitalizeFirst(raw string) string {
	r, size := utf8.DecodeRuneInString(raw)
	if r == utf8.RuneError {
		return raw
	}
	return string(unicode.ToUpper(r)) + raw[size:]
}
