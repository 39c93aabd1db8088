// Package nonce implements the process-wide monotonic transaction-nonce
// counter: one wallet, one counter, seeded once from the chain's
// transaction count and incremented atomically by every caller after.
//
// Next called before Seed returns ErrNotSeeded rather than panicking: a
// bot process that races ahead of its own startup sequence should fail
// the one request that tripped over it, not crash the whole engine.
package nonce

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// ErrNotSeeded is returned by Next and Reset when Seed has not yet
// completed successfully.
var ErrNotSeeded = errors.New("nonce: manager not seeded")

// Manager hands out a strictly increasing sequence of nonces for one
// wallet address, backed by the chain's pending transaction count at
// startup.
type Manager struct {
	eth     *ethclient.Client
	address common.Address

	mu      sync.Mutex
	seeded  atomic.Bool
	counter atomic.Uint64
}

// New returns a Manager for address; it does nothing on-chain until Seed
// is called.
func New(eth *ethclient.Client, address common.Address) *Manager {
	return &Manager{eth: eth, address: address}
}

// Seed fetches the current pending transaction count from the chain and
// initializes the counter to it. Seed is idempotent once it succeeds:
// later calls are no-ops. Unlike a bare sync.Once, a failed fetch leaves
// the Manager unseeded so a later call can retry.
func (m *Manager) Seed(ctx context.Context) error {
	if m.seeded.Load() {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seeded.Load() {
		return nil
	}

	count, err := m.eth.PendingNonceAt(ctx, m.address)
	if err != nil {
		return err
	}
	m.counter.Store(count)
	m.seeded.Store(true)
	return nil
}

// Next returns the next nonce to use and atomically advances the counter.
// Concurrent callers observe distinct, strictly increasing values.
func (m *Manager) Next() (uint64, error) {
	if !m.seeded.Load() {
		return 0, ErrNotSeeded
	}
	return m.counter.Add(1) - 1, nil
}

// Current returns the next nonce that Next would hand out, without
// advancing the counter.
func (m *Manager) Current() (uint64, error) {
	if !m.seeded.Load() {
		return 0, ErrNotSeeded
	}
	return m.counter.Load(), nil
}

// Reset re-fetches the pending transaction count from the chain and
// re-seeds the counter from it, for recovering after a nonce-gap error
// (e.g. a dropped transaction) desynchronizes the local counter from the
// chain's view.
func (m *Manager) Reset(ctx context.Context) error {
	if !m.seeded.Load() {
		return ErrNotSeeded
	}
	count, err := m.eth.PendingNonceAt(ctx, m.address)
	if err != nil {
		return err
	}
	m.counter.Store(count)
	return nil
}
