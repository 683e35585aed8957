package ethereum

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"SeiChat-Agent/internal/web3"

	gethcore "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/accounts/abi/bind/backends"
	"github.com/ethereum/go-ethereum/common"
	coretypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
)

const (
	// MaxOwnedScan caps ERC721 enumeration per request.
	MaxOwnedScan = 200

	defaultReceiptTimeout = 2 * time.Minute
	swapDeadline          = 20 * time.Minute
)

// ErrNoSigner is returned by write operations when no private key is configured.
var ErrNoSigner = errors.New("no signer available (set SEI_PRIVATE_KEY)")

// ErrNoRouter is returned by swaps when the DEX router address is not configured.
var ErrNoRouter = errors.New("DEX_ROUTER not set")

// Config describes how to construct an EVM compatible client.
type Config struct {
	Name           string
	RPCURL         string
	ChainID        int64
	PrivateKey     string
	DexRouter      string
	WrappedNative  string
	ReceiptTimeout time.Duration
	Notes          string
}

// backend is the subset of RPC methods the client relies on. Both
// ethclient.Client and the simulated backend satisfy it.
type backend interface {
	bind.ContractBackend
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*coretypes.Receipt, error)
}

// Client implements web3.Client for EVM compatible chains.
type Client struct {
	name           string
	notes          string
	rpcClient      *gethrpc.Client
	eth            *ethclient.Client
	backend        backend
	chainID        *big.Int
	key            *ecdsa.PrivateKey
	from           common.Address
	router         common.Address
	wrapped        common.Address
	receiptTimeout time.Duration
	pollInterval   time.Duration

	// sendMu serializes signed submissions so pending nonces do not collide.
	sendMu sync.Mutex
	mu     sync.Mutex
}

// NewClient dials the configured RPC endpoint and returns a ready-to-use client.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	rpcURL := strings.TrimSpace(cfg.RPCURL)
	if rpcURL == "" {
		return nil, errors.New("未配置 Sei EVM RPC 地址")
	}

	rpcClient, err := gethrpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("连接 Sei EVM 节点失败: %w", err)
	}
	eth := ethclient.NewClient(rpcClient)

	chainID := big.NewInt(cfg.ChainID)
	if cfg.ChainID == 0 {
		chainID, err = eth.ChainID(ctx)
		if err != nil {
			rpcClient.Close()
			return nil, fmt.Errorf("获取链 ID 失败: %w", err)
		}
	}

	c, err := newClient(cfg, eth, chainID)
	if err != nil {
		rpcClient.Close()
		return nil, err
	}
	c.rpcClient = rpcClient
	c.eth = eth
	c.pollInterval = time.Second
	return c, nil
}

// NewSimulatedClient wraps a go-ethereum simulated backend for testing purposes.
func NewSimulatedClient(chainID *big.Int, sim *backends.SimulatedBackend, cfg Config) (*Client, error) {
	if cfg.Notes == "" {
		cfg.Notes = "simulated backend"
	}
	c, err := newClient(cfg, sim, new(big.Int).Set(chainID))
	if err != nil {
		return nil, err
	}
	c.pollInterval = 50 * time.Millisecond
	return c, nil
}

func newClient(cfg Config, b backend, chainID *big.Int) (*Client, error) {
	c := &Client{
		name:           cfg.Name,
		notes:          cfg.Notes,
		backend:        b,
		chainID:        chainID,
		receiptTimeout: cfg.ReceiptTimeout,
	}
	if c.receiptTimeout <= 0 {
		c.receiptTimeout = defaultReceiptTimeout
	}

	if pk := strings.TrimSpace(cfg.PrivateKey); pk != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(pk, "0x"))
		if err != nil {
			return nil, fmt.Errorf("解析私钥失败: %w", err)
		}
		c.key = key
		c.from = crypto.PubkeyToAddress(key.PublicKey)
	}
	if router := strings.TrimSpace(cfg.DexRouter); router != "" {
		addr, err := parseAddress(router)
		if err != nil {
			return nil, fmt.Errorf("DEX 路由地址无效: %w", err)
		}
		c.router = addr
	}
	if wrapped := strings.TrimSpace(cfg.WrappedNative); wrapped != "" {
		addr, err := parseAddress(wrapped)
		if err != nil {
			return nil, fmt.Errorf("WSEI 地址无效: %w", err)
		}
		c.wrapped = addr
	}
	return c, nil
}

// Name returns the chain name from configuration.
func (c *Client) Name() string { return c.name }

// Address returns the signer address, or an empty string without a key.
func (c *Client) Address() string {
	if c.key == nil {
		return ""
	}
	return c.from.Hex()
}

// Close releases network connections held by the client.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.eth != nil {
		c.eth.Close()
		c.eth = nil
	}
	c.rpcClient = nil
}

// FetchChainSnapshot gathers lightweight metadata from the chain.
func (c *Client) FetchChainSnapshot(ctx context.Context) (web3.ChainSnapshot, error) {
	header, err := c.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return web3.ChainSnapshot{}, fmt.Errorf("fetch latest header: %w", err)
	}
	return web3.ChainSnapshot{
		ChainID:     toHexBig(c.chainID),
		BlockNumber: toHexBig(header.Number),
		Notes:       c.notes,
	}, nil
}

// Balance returns the native balance of address as a decimal string.
func (c *Client) Balance(ctx context.Context, address string) (string, error) {
	addr, err := parseAddress(address)
	if err != nil {
		return "", err
	}
	wei, err := c.backend.BalanceAt(ctx, addr, nil)
	if err != nil {
		return "", fmt.Errorf("fetch balance: %w", err)
	}
	return web3.FormatEther(wei), nil
}

// SendNative transfers amount of the native token and waits for the receipt.
func (c *Client) SendNative(ctx context.Context, to, amount string) (string, error) {
	if c.key == nil {
		return "", ErrNoSigner
	}
	toAddr, err := parseAddress(to)
	if err != nil {
		return "", err
	}
	value, err := web3.ParseEther(amount)
	if err != nil {
		return "", err
	}

	c.sendMu.Lock()
	hash, err := c.sendValue(ctx, toAddr, value)
	c.sendMu.Unlock()
	if err != nil {
		return "", err
	}
	return c.waitMined(ctx, hash)
}

func (c *Client) sendValue(ctx context.Context, to common.Address, value *big.Int) (common.Hash, error) {
	nonce, err := c.backend.PendingNonceAt(ctx, c.from)
	if err != nil {
		return common.Hash{}, fmt.Errorf("fetch nonce: %w", err)
	}
	tip, err := c.backend.SuggestGasTipCap(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("suggest gas tip: %w", err)
	}
	head, err := c.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return common.Hash{}, fmt.Errorf("fetch latest header: %w", err)
	}
	feeCap := new(big.Int).Set(tip)
	if head.BaseFee != nil {
		feeCap.Add(feeCap, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))
	}
	gas, err := c.backend.EstimateGas(ctx, gethcore.CallMsg{From: c.from, To: &to, Value: value})
	if err != nil {
		return common.Hash{}, fmt.Errorf("estimate gas: %w", err)
	}

	tx := coretypes.NewTx(&coretypes.DynamicFeeTx{
		ChainID:   c.chainID,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        &to,
		Value:     value,
	})
	signed, err := coretypes.SignTx(tx, coretypes.LatestSignerForChainID(c.chainID), c.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("sign transaction: %w", err)
	}
	if err := c.backend.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, fmt.Errorf("send transaction: %w", err)
	}
	return signed.Hash(), nil
}

// SendToken transfers amount of an ERC20 token, scaled by its decimals.
func (c *Client) SendToken(ctx context.Context, token, to, amount string) (string, error) {
	if c.key == nil {
		return "", ErrNoSigner
	}
	tokenAddr, err := parseAddress(token)
	if err != nil {
		return "", err
	}
	toAddr, err := parseAddress(to)
	if err != nil {
		return "", err
	}
	value, err := web3.ParseUnits(amount, c.decimals(ctx, tokenAddr))
	if err != nil {
		return "", err
	}
	return c.transact(ctx, tokenAddr, erc20ABI, nil, "transfer", toAddr, value)
}

// SwapExactTokens swaps amount of tokenIn for tokenOut through the router.
// A tokenIn of "SEI" swaps the native token via the wrapped native address.
func (c *Client) SwapExactTokens(ctx context.Context, tokenIn, tokenOut, amount, recipient string) (string, error) {
	if c.router == (common.Address{}) {
		return "", ErrNoRouter
	}
	if c.key == nil {
		return "", ErrNoSigner
	}
	outAddr, err := parseAddress(tokenOut)
	if err != nil {
		return "", err
	}
	recipientAddr, err := parseAddress(recipient)
	if err != nil {
		return "", err
	}
	deadline := big.NewInt(time.Now().Add(swapDeadline).Unix())

	if isNative(tokenIn) {
		if c.wrapped == (common.Address{}) {
			return "", errors.New("WSEI not set")
		}
		value, err := web3.ParseEther(amount)
		if err != nil {
			return "", err
		}
		path := []common.Address{c.wrapped, outAddr}
		return c.transact(ctx, c.router, routerABI, value, "swapExactETHForTokens", new(big.Int), path, recipientAddr, deadline)
	}

	inAddr, err := parseAddress(tokenIn)
	if err != nil {
		return "", err
	}
	amountIn, err := web3.ParseUnits(amount, c.decimals(ctx, inAddr))
	if err != nil {
		return "", err
	}
	out, err := c.call(ctx, inAddr, erc20ABI, "allowance", c.from, c.router)
	if err != nil {
		return "", fmt.Errorf("read allowance: %w", err)
	}
	if allowance := bigAt(out, 0); allowance.Cmp(amountIn) < 0 {
		if _, err := c.transact(ctx, inAddr, erc20ABI, nil, "approve", c.router, amountIn); err != nil {
			return "", err
		}
	}
	path := []common.Address{inAddr, outAddr}
	return c.transact(ctx, c.router, routerABI, nil, "swapExactTokensForTokens", amountIn, new(big.Int), path, recipientAddr, deadline)
}

// BuyNFT pays price in the native token to buy tokenID from the marketplace.
func (c *Client) BuyNFT(ctx context.Context, market, nft, tokenID, price string) (string, error) {
	marketAddr, nftAddr, id, value, err := c.marketArgs(market, nft, tokenID, price)
	if err != nil {
		return "", err
	}
	return c.transact(ctx, marketAddr, marketABI, value, "buy", nftAddr, id)
}

// ListNFT lists tokenID for sale on the marketplace at price.
func (c *Client) ListNFT(ctx context.Context, market, nft, tokenID, price string) (string, error) {
	marketAddr, nftAddr, id, value, err := c.marketArgs(market, nft, tokenID, price)
	if err != nil {
		return "", err
	}
	return c.transact(ctx, marketAddr, marketABI, nil, "list", nftAddr, id, value)
}

func (c *Client) marketArgs(market, nft, tokenID, price string) (common.Address, common.Address, *big.Int, *big.Int, error) {
	var zero common.Address
	if c.key == nil {
		return zero, zero, nil, nil, ErrNoSigner
	}
	marketAddr, err := parseAddress(market)
	if err != nil {
		return zero, zero, nil, nil, err
	}
	nftAddr, err := parseAddress(nft)
	if err != nil {
		return zero, zero, nil, nil, err
	}
	id, ok := new(big.Int).SetString(strings.TrimSpace(tokenID), 10)
	if !ok || id.Sign() < 0 {
		return zero, zero, nil, nil, fmt.Errorf("invalid token id %q", tokenID)
	}
	value, err := web3.ParseEther(price)
	if err != nil {
		return zero, zero, nil, nil, err
	}
	return marketAddr, nftAddr, id, value, nil
}

// OwnedNFTs enumerates the ERC721 token ids held by owner, up to MaxOwnedScan.
// Contracts without enumeration support yield an empty list.
func (c *Client) OwnedNFTs(ctx context.Context, nft, owner string) ([]string, error) {
	nftAddr, err := parseAddress(nft)
	if err != nil {
		return nil, err
	}
	ownerAddr, err := parseAddress(owner)
	if err != nil {
		return nil, err
	}

	count := 0
	if out, err := c.call(ctx, nftAddr, erc721ABI, "balanceOf", ownerAddr); err == nil {
		balance := bigAt(out, 0)
		if balance.IsInt64() {
			count = int(min(balance.Int64(), MaxOwnedScan))
		} else if balance.Sign() > 0 {
			count = MaxOwnedScan
		}
	}

	ids := make([]string, 0, count)
	for i := 0; i < count; i++ {
		out, err := c.call(ctx, nftAddr, erc721ABI, "tokenOfOwnerByIndex", ownerAddr, big.NewInt(int64(i)))
		if err != nil {
			break
		}
		ids = append(ids, bigAt(out, 0).String())
	}
	return ids, nil
}

func (c *Client) decimals(ctx context.Context, token common.Address) int {
	out, err := c.call(ctx, token, erc20ABI, "decimals")
	if err != nil || len(out) == 0 {
		return web3.NativeDecimals
	}
	if d, ok := out[0].(uint8); ok {
		return int(d)
	}
	return web3.NativeDecimals
}

func (c *Client) call(ctx context.Context, contract common.Address, parsed abi.ABI, method string, args ...any) ([]any, error) {
	bound := bind.NewBoundContract(contract, parsed, c.backend, c.backend, c.backend)
	var out []any
	if err := bound.Call(&bind.CallOpts{Context: ctx}, &out, method, args...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) transact(ctx context.Context, contract common.Address, parsed abi.ABI, value *big.Int, method string, args ...any) (string, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(c.key, c.chainID)
	if err != nil {
		return "", fmt.Errorf("build transactor: %w", err)
	}
	opts.Context = ctx
	opts.Value = value

	bound := bind.NewBoundContract(contract, parsed, c.backend, c.backend, c.backend)
	c.sendMu.Lock()
	tx, err := bound.Transact(opts, method, args...)
	c.sendMu.Unlock()
	if err != nil {
		return "", fmt.Errorf("%s: %w", method, err)
	}
	return c.waitMined(ctx, tx.Hash())
}

// waitMined polls for the receipt and reports reverted transactions as errors.
func (c *Client) waitMined(ctx context.Context, hash common.Hash) (string, error) {
	sim, simulated := c.backend.(*backends.SimulatedBackend)
	if simulated {
		sim.Commit()
	}

	ctx, cancel := context.WithTimeout(ctx, c.receiptTimeout)
	defer cancel()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.backend.TransactionReceipt(ctx, hash)
		if err == nil && receipt != nil {
			if receipt.Status != coretypes.ReceiptStatusSuccessful {
				return "", fmt.Errorf("transaction %s reverted", hash.Hex())
			}
			return hash.Hex(), nil
		}
		if err != nil && !errors.Is(err, gethcore.NotFound) {
			return "", fmt.Errorf("fetch receipt: %w", err)
		}

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("waiting for %s: %w", hash.Hex(), ctx.Err())
		case <-ticker.C:
			if simulated {
				sim.Commit()
			}
		}
	}
}

func parseAddress(raw string) (common.Address, error) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(strings.ToLower(raw), "sei1") {
		return common.Address{}, fmt.Errorf("bech32 address %s is not supported on the EVM endpoint, use the 0x address", raw)
	}
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("invalid address %q", raw)
	}
	return common.HexToAddress(raw), nil
}

func isNative(token string) bool {
	token = strings.TrimSpace(token)
	return strings.EqualFold(token, "sei") || strings.EqualFold(token, "native")
}

func bigAt(out []any, idx int) *big.Int {
	if idx < len(out) {
		if v, ok := out[idx].(*big.Int); ok && v != nil {
			return v
		}
	}
	return new(big.Int)
}

func toHexBig(n *big.Int) string {
	if n == nil {
		return "0x0"
	}
	return "0x" + n.Text(16)
}

var _ web3.Client = (*Client)(nil)
