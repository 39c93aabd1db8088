// Package txlistener implements a generic receipt poller: block until a
// transaction is mined (or a deadline elapses), polling
// eth_getTransactionReceipt at a configurable interval.
package txlistener

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/shadowline-labs/monadarb/pkg/chaintypes"
)

// ErrTimeout is returned by WaitForTransaction when the deadline elapses
// before a receipt is found.
var ErrTimeout = errors.New("txlistener: timed out waiting for receipt")

const (
	defaultPollInterval = 2 * time.Second
	defaultTimeout      = 5 * time.Minute
)

// TxListener waits for a submitted transaction to be mined.
type TxListener interface {
	WaitForTransaction(hash common.Hash) (*chaintypes.TxReceipt, error)
	WaitForTransactionContext(ctx context.Context, hash common.Hash) (*chaintypes.TxReceipt, error)
}

type listener struct {
	eth          *ethclient.Client
	pollInterval time.Duration
	timeout      time.Duration
}

// Option configures a TxListener built by NewTxListener.
type Option func(*listener)

// WithPollInterval overrides the default 2s poll interval.
func WithPollInterval(d time.Duration) Option {
	return func(l *listener) { l.pollInterval = d }
}

// WithTimeout overrides the default 5m deadline.
func WithTimeout(d time.Duration) Option {
	return func(l *listener) { l.timeout = d }
}

// NewTxListener returns a TxListener polling eth over RPC.
func NewTxListener(eth *ethclient.Client, opts ...Option) TxListener {
	l := &listener{eth: eth, pollInterval: defaultPollInterval, timeout: defaultTimeout}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// WaitForTransaction blocks until hash is mined or the listener's
// configured timeout elapses.
func (l *listener) WaitForTransaction(hash common.Hash) (*chaintypes.TxReceipt, error) {
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()
	return l.WaitForTransactionContext(ctx, hash)
}

// WaitForTransactionContext is WaitForTransaction with caller-supplied
// cancellation, for execution paths that need their own (often much
// shorter) deadline.
func (l *listener) WaitForTransactionContext(ctx context.Context, hash common.Hash) (*chaintypes.TxReceipt, error) {
	ticker := time.NewTicker(l.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := l.eth.TransactionReceipt(ctx, hash)
		if err == nil {
			return toTxReceipt(receipt), nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("txlistener: fetch receipt %s: %w", hash.Hex(), err)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s", ErrTimeout, hash.Hex())
		case <-ticker.C:
		}
	}
}

func toTxReceipt(r *types.Receipt) *chaintypes.TxReceipt {
	logs := make([]chaintypes.Log, len(r.Logs))
	for i, l := range r.Logs {
		logs[i] = chaintypes.Log{Address: l.Address, Topics: l.Topics, Data: l.Data}
	}
	var contractAddr common.Address
	if r.ContractAddress != (common.Address{}) {
		contractAddr = r.ContractAddress
	}
	return &chaintypes.TxReceipt{
		TxHash:            r.TxHash,
		BlockNumber:       r.BlockNumber.Uint64(),
		Status:            r.Status,
		GasUsed:           fmt.Sprintf("0x%x", r.GasUsed),
		EffectiveGasPrice: effectiveGasPriceHex(r),
		ContractAddress:   contractAddr,
		Logs:              logs,
	}
}

func effectiveGasPriceHex(r *types.Receipt) string {
	if r.EffectiveGasPrice == nil {
		return "0x0"
	}
	return fmt.Sprintf("0x%x", r.EffectiveGasPrice)
}
