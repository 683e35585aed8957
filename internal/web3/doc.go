// Package web3 houses blockchain connectivity for the Sei EVM: wallet,
// swap and NFT marketplace abstractions, decimal unit helpers, and the
// chain definition file loaded from configs/chain.yaml.
package web3
