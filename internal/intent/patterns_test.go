package intent

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	hexAddr   = "0xabcdef0123456789abcdef0123456789abcdef01"
	hexAddr2  = "0x1111111111111111111111111111111111111111"
	seiAddr   = "sei1qy352eufqy352eufqy352eufqy352eufqy352e"
	upperAddr = "0xABCDEF0123456789ABCDEF0123456789ABCDEF01"
)

func TestExtractRecognizers(t *testing.T) {
	cases := []struct {
		name    string
		text    string
		command Command
		args    []string
		rule    string
	}{
		{"send hex", "send 1.5 SEI to " + hexAddr, CommandSendToken, []string{hexAddr, "1.5"}, "send"},
		{"send bech32", "please send 2 usdc to " + seiAddr, CommandSendToken, []string{seiAddr, "2"}, "send"},
		{"send lowers address", "Send 3 SEI to " + upperAddr, CommandSendToken, []string{strings.ToLower(upperAddr), "3"}, "send"},
		{"price of", "price of sei", CommandPrice, []string{"SEI"}, "price"},
		{"price question", "What's the price of btc?", CommandPrice, []string{"BTC"}, "price"},
		{"swap", "swap 10 USDC to SEI for " + hexAddr, CommandSwapAssets, []string{"usdc", "sei", "10", hexAddr}, "swap"},
		{"nft buy", "buy nft 7 from " + hexAddr + " " + hexAddr2 + " for 100", CommandNFTBuy, []string{hexAddr, hexAddr2, "7", "100"}, "nft_buy"},
		{"nft my", "my nfts in " + hexAddr + " for " + hexAddr2, CommandNFTMy, []string{hexAddr, hexAddr2}, "nft_my"},
		{"predict", "predict 1 on " + hexAddr + " choose yes with 50.5", CommandPredict, []string{hexAddr, "1", "yes", "50.5"}, "predict"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, rule, ok := Extract(tc.text)
			require.True(t, ok)
			assert.Equal(t, tc.rule, rule)
			assert.Equal(t, tc.command, got.Command())
			assert.Equal(t, tc.args, got.Args())
		})
	}
}

func TestExtractRejectsPartialMatches(t *testing.T) {
	inputs := []string{
		"",
		"send 1 SEI to someone",
		"send SEI to " + hexAddr,
		"swap 10 usdc to sei",
		"buy nft 1 from " + hexAddr + " for 5",
		"my nfts in " + hexAddr,
		"predict 1 on " + hexAddr + " choose yes",
		"send 1 sei to 0x1234",
		"tell me a joke",
	}
	for _, text := range inputs {
		_, _, ok := Extract(text)
		assert.False(t, ok, "expected no intent for %q", text)
	}
}

func TestExtractTrialOrder(t *testing.T) {
	assert.Equal(t, []string{"send", "price", "swap", "nft_buy", "nft_my", "predict"}, Recognizers())

	// Both the send and the price grammar match; send is tried first.
	got, rule, ok := Extract("send 1 sei to " + hexAddr + " and tell me the price of btc")
	require.True(t, ok)
	assert.Equal(t, "send", rule)
	assert.Equal(t, []string{hexAddr, "1"}, got.Args())

	// price precedes swap.
	got, rule, ok = Extract("swap 10 usdc to sei for " + hexAddr + " at the price of eth")
	require.True(t, ok)
	assert.Equal(t, "price", rule)
	assert.Equal(t, []string{"ETH"}, got.Args())
}

func TestExtractIsDeterministic(t *testing.T) {
	text := "price of sei"
	first, _, _ := Extract(text)
	second, _, _ := Extract(text)
	assert.True(t, first.Equal(second))
}

func TestMatchBalanceOf(t *testing.T) {
	addr, ok := MatchBalanceOf("balance of " + hexAddr)
	require.True(t, ok)
	assert.Equal(t, hexAddr, addr)

	_, ok = MatchBalanceOf("balance of nobody")
	assert.False(t, ok)
}

func TestParseSlash(t *testing.T) {
	in, ok := ParseSlash("/Send_Token@seibot " + hexAddr + " 1")
	require.True(t, ok)
	assert.Equal(t, CommandSendToken, in.Command())
	assert.Equal(t, []string{hexAddr, "1"}, in.Args())

	_, ok = ParseSlash("/")
	assert.False(t, ok)
	_, ok = ParseSlash("price of sei")
	assert.False(t, ok)
}

func TestIntentIsImmutable(t *testing.T) {
	args := []string{"a", "b"}
	in := New(CommandPrice, args...)
	args[0] = "changed"
	got := in.Args()
	got[1] = "changed"
	assert.Equal(t, []string{"a", "b"}, in.Args())
	assert.Equal(t, "", in.Arg(5))
}
