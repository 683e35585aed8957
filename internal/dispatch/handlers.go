package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"SeiChat-Agent/internal/intent"
	"SeiChat-Agent/internal/observability/metrics"
)

type handlerFunc func(ctx context.Context, d *Dispatcher, in intent.Intent, sender Sender) Outcome

// MinArgs 是各命令的最小参数个数。
var MinArgs = map[intent.Command]int{
	intent.CommandPrice:      1,
	intent.CommandBalance:    0,
	intent.CommandSendToken:  2,
	intent.CommandSwapAssets: 4,
	intent.CommandNFTBuy:     4,
	intent.CommandNFTSell:    4,
	intent.CommandNFTMy:      1,
	intent.CommandPredict:    1,
	intent.CommandMyAddress:  0,
	intent.CommandSetAddress: 1,
	intent.CommandSetWallet:  1,
	intent.CommandClear:      0,
	intent.CommandSignal:     1,
}

// Usage 返回命令的用法提示。
func Usage(cmd intent.Command) string {
	switch cmd {
	case intent.CommandPrice:
		return "Usage: /price <SYMBOL>"
	case intent.CommandBalance:
		return "Usage: /balance <address>"
	case intent.CommandSendToken:
		return "Usage: /send_token <to> <amount> [tokenAddress]"
	case intent.CommandSwapAssets:
		return "Usage: /swap_assets <tokenIn> <tokenOut> <amount> <recipient>"
	case intent.CommandNFTBuy:
		return "Usage: /nft_buy <market> <nftContract> <tokenId> <priceSEI>"
	case intent.CommandNFTSell:
		return "Usage: /nft_sell <market> <nftContract> <tokenId> <priceSEI>"
	case intent.CommandNFTMy:
		return "Usage: /nft_my <nftContract> [walletAddress]"
	case intent.CommandPredict:
		return "Usage: /predict <coinGeckoTokenId>"
	case intent.CommandSetAddress, intent.CommandSetWallet:
		return fmt.Sprintf("Usage: /%s <walletAddress>", cmd)
	case intent.CommandSignal:
		return "Usage: /signal <SYMBOL>"
	default:
		return ""
	}
}

var handlers = map[intent.Command]handlerFunc{
	intent.CommandPrice:      guarded(handlePrice),
	intent.CommandBalance:    guarded(handleBalance),
	intent.CommandSendToken:  guarded(handleSendToken),
	intent.CommandSwapAssets: guarded(handleSwap),
	intent.CommandNFTBuy:     guarded(handleNFTBuy),
	intent.CommandNFTSell:    guarded(handleNFTSell),
	intent.CommandNFTMy:      guarded(handleNFTMy),
	intent.CommandPredict:    guarded(handlePredict),
	intent.CommandMyAddress:  guarded(handleMyAddress),
	intent.CommandSetAddress: guarded(handleSetAddress),
	intent.CommandSetWallet:  guarded(handleSetAddress),
	intent.CommandClear:      guarded(handleClear),
	intent.CommandSignal:     guarded(handleSignal),
}

// guarded 在调用处理函数前检查最小参数个数。空白参数不计入。
func guarded(h handlerFunc) handlerFunc {
	return func(ctx context.Context, d *Dispatcher, in intent.Intent, sender Sender) Outcome {
		if countArgs(in) < MinArgs[in.Command()] {
			return usage(in.Command(), Usage(in.Command()))
		}
		return h(ctx, d, in, sender)
	}
}

func countArgs(in intent.Intent) int {
	n := 0
	for _, a := range in.Args() {
		if strings.TrimSpace(a) == "" {
			break
		}
		n++
	}
	return n
}

func formatPrice(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}

func handlePrice(ctx context.Context, d *Dispatcher, in intent.Intent, _ Sender) Outcome {
	cmd := in.Command()
	if d.oracle == nil {
		return failure(cmd, notConfigured("price oracle"))
	}
	price, err := d.oracle.Price(ctx, in.Arg(0))
	if err != nil {
		return d.fail(cmd, "oracle", err)
	}
	return success(cmd, fmt.Sprintf("💰 %s price: $%s", strings.ToUpper(in.Arg(0)), formatPrice(price)))
}

func handleBalance(ctx context.Context, d *Dispatcher, in intent.Intent, sender Sender) Outcome {
	cmd := in.Command()
	addr := d.ownerAddress(ctx, in.Arg(0), sender.UserID)
	if addr == "" {
		return usage(cmd, Usage(cmd))
	}
	if d.wallet == nil {
		return failure(cmd, notConfigured("wallet"))
	}
	bal, err := d.wallet.Balance(ctx, addr)
	if err != nil {
		return d.fail(cmd, "wallet", err)
	}
	return success(cmd, fmt.Sprintf("💰 Balance of %s: %s SEI", addr, bal))
}

func handleSendToken(ctx context.Context, d *Dispatcher, in intent.Intent, _ Sender) Outcome {
	cmd := in.Command()
	if d.wallet == nil {
		return failure(cmd, notConfigured("wallet"))
	}
	to, amount, token := in.Arg(0), in.Arg(1), strings.TrimSpace(in.Arg(2))
	if token == "" {
		tx, err := d.wallet.SendNative(ctx, to, amount)
		if err != nil {
			return d.fail(cmd, "wallet", err)
		}
		return success(cmd, fmt.Sprintf("✅ Sent %s SEI. Tx: %s", amount, tx))
	}
	tx, err := d.wallet.SendToken(ctx, token, to, amount)
	if err != nil {
		return d.fail(cmd, "wallet", err)
	}
	return success(cmd, fmt.Sprintf("✅ Sent %s tokens to %s. Tx: %s", amount, to, tx))
}

func handleSwap(ctx context.Context, d *Dispatcher, in intent.Intent, _ Sender) Outcome {
	cmd := in.Command()
	if d.swapper == nil {
		return failure(cmd, notConfigured("swap router"))
	}
	tx, err := d.swapper.SwapExactTokens(ctx, in.Arg(0), in.Arg(1), in.Arg(2), in.Arg(3))
	if err != nil {
		return d.fail(cmd, "swapper", err)
	}
	return success(cmd, "🔄 Swap submitted. Tx: "+tx)
}

func handleNFTBuy(ctx context.Context, d *Dispatcher, in intent.Intent, _ Sender) Outcome {
	cmd := in.Command()
	if d.market == nil {
		return failure(cmd, notConfigured("nft market"))
	}
	tx, err := d.market.BuyNFT(ctx, in.Arg(0), in.Arg(1), in.Arg(2), in.Arg(3))
	if err != nil {
		return d.fail(cmd, "market", err)
	}
	return success(cmd, "🛒 NFT bought. Tx: "+tx)
}

func handleNFTSell(ctx context.Context, d *Dispatcher, in intent.Intent, _ Sender) Outcome {
	cmd := in.Command()
	if d.market == nil {
		return failure(cmd, notConfigured("nft market"))
	}
	tx, err := d.market.ListNFT(ctx, in.Arg(0), in.Arg(1), in.Arg(2), in.Arg(3))
	if err != nil {
		return d.fail(cmd, "market", err)
	}
	return success(cmd, "📤 NFT listed. Tx: "+tx)
}

func handleNFTMy(ctx context.Context, d *Dispatcher, in intent.Intent, sender Sender) Outcome {
	cmd := in.Command()
	owner := d.ownerAddress(ctx, in.Arg(1), sender.UserID)
	if owner == "" {
		return usage(cmd, Usage(cmd))
	}
	if d.market == nil {
		return failure(cmd, notConfigured("nft market"))
	}
	ids, err := d.market.OwnedNFTs(ctx, in.Arg(0), owner)
	if err != nil {
		return d.fail(cmd, "market", err)
	}
	if len(ids) == 0 {
		return success(cmd, NoNFTsReply)
	}
	return success(cmd, "🖼️ NFTs: "+strings.Join(ids, ", "))
}

func handlePredict(ctx context.Context, d *Dispatcher, in intent.Intent, _ Sender) Outcome {
	cmd := in.Command()
	if d.oracle == nil {
		return failure(cmd, notConfigured("price oracle"))
	}
	token := strings.ToLower(in.Arg(0))
	p, err := d.oracle.Predict(ctx, token)
	if err != nil {
		return d.fail(cmd, "oracle", err)
	}
	if !p.HasPrice || p.Price == 0 {
		return success(cmd, p.Text)
	}
	return success(cmd, fmt.Sprintf("💰 %s price: $%s\n🔮 Prediction: %s", token, formatPrice(p.Price), p.Text))
}

func handleMyAddress(ctx context.Context, d *Dispatcher, _ intent.Intent, sender Sender) Outcome {
	cmd := intent.CommandMyAddress
	addr := d.ownerAddress(ctx, "", sender.UserID)
	if addr == "" {
		return usage(cmd, NoWalletReply)
	}
	return success(cmd, fmt.Sprintf("🏦 Your wallet: `%s`", addr))
}

func handleSetAddress(ctx context.Context, d *Dispatcher, in intent.Intent, sender Sender) Outcome {
	cmd := in.Command()
	if d.users == nil {
		return failure(cmd, notConfigured("user store"))
	}
	wallet := strings.TrimSpace(in.Arg(0))
	if err := d.users.SetWallet(ctx, sender.UserID, wallet); err != nil {
		return d.fail(cmd, "users", err)
	}
	return success(cmd, "✅ Wallet set: "+wallet)
}

func handleClear(ctx context.Context, d *Dispatcher, in intent.Intent, sender Sender) Outcome {
	cmd := in.Command()
	if d.deleter != nil {
		if err := d.deleteMessage(ctx, sender); err != nil {
			metrics.ObserveCollaboratorFailure("transport")
			d.log.Warn("清理消息失败", slog.String("chat_id", sender.ChatID), slog.Any("error", err))
		}
	}
	return success(cmd, ClearedReply)
}

func (d *Dispatcher) deleteMessage(ctx context.Context, sender Sender) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("delete message panicked: %v", r)
		}
	}()
	return d.deleter.DeleteMessage(ctx, sender.ChatID, sender.MessageID)
}

func handleSignal(ctx context.Context, d *Dispatcher, in intent.Intent, _ Sender) Outcome {
	cmd := in.Command()
	symbol := strings.ToUpper(strings.TrimSpace(in.Arg(0)))
	if d.oracle == nil {
		return failure(cmd, notConfigured("price oracle"))
	}
	signal, err := d.oracle.Signal(ctx, symbol)
	if err != nil {
		out := d.fail(cmd, "oracle", err)
		out.Text = "⚠️ Error fetching signal for " + symbol
		return out
	}
	return success(cmd, fmt.Sprintf("📊 Signal for %s: %s", symbol, signal))
}
