// Package chaintypes holds the small wire-level types shared by
// pkg/contractclient and pkg/txlistener: transaction-send modes and
// receipt shapes.
package chaintypes

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// SendMode selects how pkg/contractclient.Client.Send builds the underlying
// transaction. Standard covers the common case (EIP-1559 dynamic-fee tx with
// gas estimated or supplied by the caller); the engine's execution package
// layers its own gas-strategy decisions on top rather than adding modes
// here.
type SendMode uint8

const (
	// Standard sends a dynamic-fee (EIP-1559) transaction.
	Standard SendMode = iota
	// Legacy sends a legacy (pre-EIP-1559) transaction, used against RPC
	// endpoints that reject type-2 transactions.
	Legacy
)

// TxReceipt is a JSON-friendly transaction receipt. GasUsed and
// EffectiveGasPrice are kept as hex/decimal strings (as returned over RPC)
// rather than *big.Int so callers can defer parsing to where it matters.
type TxReceipt struct {
	TxHash            common.Hash    `json:"transactionHash"`
	BlockNumber       uint64         `json:"blockNumber"`
	Status            uint64         `json:"status"`
	GasUsed           string         `json:"gasUsed"`
	EffectiveGasPrice string         `json:"effectiveGasPrice"`
	ContractAddress   common.Address `json:"contractAddress"`
	Logs              []Log          `json:"logs"`
}

// Log is a minimal event-log record, enough to support
// ContractClient.ParseReceipt's event decoding.
type Log struct {
	Address common.Address `json:"address"`
	Topics  []common.Hash  `json:"topics"`
	Data    []byte         `json:"data"`
}

// Success reports whether the receipt indicates the transaction succeeded.
func (r *TxReceipt) Success() bool {
	return r != nil && r.Status == 1
}

// GasUsedInt parses GasUsed into a *big.Int, returning zero if unset or
// malformed.
func (r *TxReceipt) GasUsedInt() *big.Int {
	return parseBigIntString(r.GasUsed)
}

// EffectiveGasPriceInt parses EffectiveGasPrice into a *big.Int.
func (r *TxReceipt) EffectiveGasPriceInt() *big.Int {
	return parseBigIntString(r.EffectiveGasPrice)
}

func parseBigIntString(s string) *big.Int {
	out := new(big.Int)
	if s == "" {
		return out
	}
	if _, ok := out.SetString(s, 0); !ok {
		return new(big.Int)
	}
	return out
}

// DecodedTransaction is the result of ContractClient.DecodeTransaction: the
// method that was called and its argument values keyed by ABI parameter
// name.
type DecodedTransaction struct {
	MethodName string                 `json:"methodName"`
	Parameters map[string]interface{} `json:"parameters"`
}
