package provider

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"SeiChat-Agent/internal/config"
	"SeiChat-Agent/internal/web3"
	"SeiChat-Agent/internal/web3/ethereum"
)

// Factory builds a chain client for one definition.
type Factory func(ctx context.Context, cfg ethereum.Config) (web3.Client, error)

// Registry manages a set of chain clients keyed by human readable names.
type Registry struct {
	defaultChain string
	clients      map[string]web3.Client
}

// NewRegistry loads chain definitions and instantiates concrete clients.
func NewRegistry(ctx context.Context, cfg config.Web3Config) (*Registry, error) {
	return NewRegistryWithFactory(ctx, cfg, func(ctx context.Context, c ethereum.Config) (web3.Client, error) {
		return ethereum.NewClient(ctx, c)
	})
}

// NewRegistryWithFactory is NewRegistry with a custom client constructor.
// Top-level signer and contract settings apply to every chain unless the
// chain definition overrides them.
func NewRegistryWithFactory(ctx context.Context, cfg config.Web3Config, factory Factory) (*Registry, error) {
	defs, err := web3.LoadChainDefinitions(cfg.ChainConfig)
	if err != nil {
		return nil, err
	}

	clients := make(map[string]web3.Client)
	closeAll := func() {
		for _, c := range clients {
			c.Close()
		}
	}
	for name, chain := range defs.Chains {
		chainType := strings.ToLower(strings.TrimSpace(chain.Type))
		if chainType == "" {
			chainType = "evm"
		}
		if chainType != "evm" {
			closeAll()
			return nil, fmt.Errorf("链 %s 使用了不支持的类型 %s", name, chain.Type)
		}
		timeout, err := parseTimeout(chain.ReceiptTimeout)
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("链 %s 的 receipt_timeout 无效: %w", name, err)
		}
		client, err := factory(ctx, ethereum.Config{
			Name:           name,
			RPCURL:         firstNonEmpty(chain.RPCURL, cfg.RPCURL),
			ChainID:        chain.ChainID,
			PrivateKey:     cfg.PrivateKey,
			DexRouter:      firstNonEmpty(chain.DexRouter, cfg.DexRouter),
			WrappedNative:  firstNonEmpty(chain.WrappedNative, cfg.WrappedNative),
			ReceiptTimeout: timeout,
			Notes:          chain.Description,
		})
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("初始化链 %s 失败: %w", name, err)
		}
		clients[name] = client
	}

	if len(clients) == 0 && strings.TrimSpace(cfg.RPCURL) != "" {
		client, err := factory(ctx, ethereum.Config{
			Name:          "default",
			RPCURL:        cfg.RPCURL,
			PrivateKey:    cfg.PrivateKey,
			DexRouter:     cfg.DexRouter,
			WrappedNative: cfg.WrappedNative,
		})
		if err != nil {
			return nil, err
		}
		clients["default"] = client
		if cfg.DefaultChain == "" {
			cfg.DefaultChain = "default"
		}
	}

	if len(clients) == 0 {
		return nil, errors.New("未配置任何链的 RPC 端点")
	}

	defaultChain := cfg.DefaultChain
	if defaultChain == "" {
		names := make([]string, 0, len(clients))
		for name := range clients {
			names = append(names, name)
		}
		sort.Strings(names)
		defaultChain = names[0]
	}
	if _, ok := clients[defaultChain]; !ok {
		closeAll()
		return nil, fmt.Errorf("默认链 %s 未在配置中找到", defaultChain)
	}

	return &Registry{defaultChain: defaultChain, clients: clients}, nil
}

// DefaultClient returns the client configured as default chain.
func (r *Registry) DefaultClient() (web3.Client, error) {
	if r == nil {
		return nil, errors.New("未初始化的链客户端注册表")
	}
	client, ok := r.clients[r.defaultChain]
	if !ok {
		return nil, fmt.Errorf("默认链 %s 未在注册表中", r.defaultChain)
	}
	return client, nil
}

// DefaultChain returns the name of the default chain.
func (r *Registry) DefaultChain() string {
	if r == nil {
		return ""
	}
	return r.defaultChain
}

// Client returns the chain client identified by name.
func (r *Registry) Client(name string) (web3.Client, bool) {
	if r == nil {
		return nil, false
	}
	client, ok := r.clients[name]
	return client, ok
}

// Close releases all clients managed by the registry.
func (r *Registry) Close() {
	if r == nil {
		return
	}
	for name, client := range r.clients {
		if client != nil {
			client.Close()
		}
		delete(r.clients, name)
	}
}

// Chains returns the list of registered chain names.
func (r *Registry) Chains() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.clients))
	for name := range r.clients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func parseTimeout(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	return time.ParseDuration(raw)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
