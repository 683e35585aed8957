package web3

import "context"

// ChainSnapshot represents summarized network metadata for health reporting.
type ChainSnapshot struct {
	ChainID     string
	BlockNumber string
	Notes       string
}

// Wallet covers native balance reads and token transfers signed by the
// configured account. Amounts are human readable decimal strings.
type Wallet interface {
	Balance(ctx context.Context, address string) (string, error)
	SendNative(ctx context.Context, to, amount string) (string, error)
	SendToken(ctx context.Context, token, to, amount string) (string, error)
}

// Swapper executes token swaps through a Uniswap V2 style router.
type Swapper interface {
	SwapExactTokens(ctx context.Context, tokenIn, tokenOut, amount, recipient string) (string, error)
}

// NFTMarket buys, lists and enumerates ERC721 tokens.
type NFTMarket interface {
	BuyNFT(ctx context.Context, market, nft, tokenID, price string) (string, error)
	ListNFT(ctx context.Context, market, nft, tokenID, price string) (string, error)
	OwnedNFTs(ctx context.Context, nft, owner string) ([]string, error)
}

// Client defines the common interface that any chain implementation must
// provide so higher layers can interact with different networks uniformly.
type Client interface {
	Wallet
	Swapper
	NFTMarket
	FetchChainSnapshot(ctx context.Context) (ChainSnapshot, error)
	Close()
}
