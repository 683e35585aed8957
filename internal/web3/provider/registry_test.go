package provider

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"SeiChat-Agent/internal/config"
	"SeiChat-Agent/internal/web3"
	"SeiChat-Agent/internal/web3/ethereum"
)

type fakeClient struct {
	web3.Client
	cfg    ethereum.Config
	closed bool
}

func (f *fakeClient) Close() { f.closed = true }

func recordingFactory(built *[]*fakeClient) Factory {
	return func(_ context.Context, cfg ethereum.Config) (web3.Client, error) {
		c := &fakeClient{cfg: cfg}
		*built = append(*built, c)
		return c, nil
	}
}

func writeChains(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chain.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write chain config: %v", err)
	}
	return path
}

func TestRegistryFromChainFile(t *testing.T) {
	path := writeChains(t, `
chains:
  sei-testnet:
    chain_id: 1328
    rpc_url: https://evm-rpc-testnet.sei-apis.com
    dex_router: "0x00000000000000000000000000000000000000aa"
    receipt_timeout: 90s
  sei-mainnet:
    rpc_url: https://evm-rpc.sei-apis.com
`)
	var built []*fakeClient
	reg, err := NewRegistryWithFactory(context.Background(), config.Web3Config{
		ChainConfig:   path,
		DefaultChain:  "sei-testnet",
		PrivateKey:    "0xkey",
		DexRouter:     "0x00000000000000000000000000000000000000bb",
		WrappedNative: "0x00000000000000000000000000000000000000cc",
	}, recordingFactory(&built))
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}

	if got := reg.Chains(); len(got) != 2 || got[0] != "sei-mainnet" {
		t.Fatalf("unexpected chains %v", got)
	}
	client, err := reg.DefaultClient()
	if err != nil {
		t.Fatalf("default client: %v", err)
	}
	testnet := client.(*fakeClient).cfg
	if testnet.ChainID != 1328 || testnet.ReceiptTimeout != 90*time.Second {
		t.Fatalf("unexpected testnet config %+v", testnet)
	}
	if testnet.DexRouter != "0x00000000000000000000000000000000000000aa" || testnet.PrivateKey != "0xkey" {
		t.Fatalf("chain overrides not applied: %+v", testnet)
	}
	mainnet, _ := reg.Client("sei-mainnet")
	if mainnet.(*fakeClient).cfg.DexRouter != "0x00000000000000000000000000000000000000bb" {
		t.Fatalf("top-level router should apply to chains without override")
	}

	reg.Close()
	for _, c := range built {
		if !c.closed {
			t.Fatalf("client %s not closed", c.cfg.Name)
		}
	}
}

func TestRegistryFallsBackToRPCURL(t *testing.T) {
	var built []*fakeClient
	reg, err := NewRegistryWithFactory(context.Background(), config.Web3Config{RPCURL: "http://localhost:8545"}, recordingFactory(&built))
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	if reg.DefaultChain() != "default" || len(built) != 1 {
		t.Fatalf("expected single default client, got %v", reg.Chains())
	}
}

func TestRegistryErrors(t *testing.T) {
	var built []*fakeClient
	if _, err := NewRegistryWithFactory(context.Background(), config.Web3Config{}, recordingFactory(&built)); err == nil {
		t.Fatal("expected error without any endpoint")
	}

	path := writeChains(t, "chains:\n  cosmos:\n    type: cosmwasm\n    rpc_url: http://x\n")
	if _, err := NewRegistryWithFactory(context.Background(), config.Web3Config{ChainConfig: path}, recordingFactory(&built)); err == nil {
		t.Fatal("expected unsupported chain type error")
	}

	path = writeChains(t, "chains:\n  a:\n    rpc_url: http://x\n")
	built = nil
	if _, err := NewRegistryWithFactory(context.Background(), config.Web3Config{ChainConfig: path, DefaultChain: "b"}, recordingFactory(&built)); err == nil {
		t.Fatal("expected missing default chain error")
	}
	if len(built) != 1 || !built[0].closed {
		t.Fatal("clients must be closed when construction fails")
	}

	failing := func(context.Context, ethereum.Config) (web3.Client, error) { return nil, errors.New("dial failed") }
	if _, err := NewRegistryWithFactory(context.Background(), config.Web3Config{RPCURL: "http://x"}, failing); err == nil {
		t.Fatal("expected factory error")
	}
}
