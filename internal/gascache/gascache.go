// Package gascache implements the spread-aware gas-estimate cache: cache
// TTL and invalidation both key off the spread observed when the estimate
// was captured, since a widening spread means the pool state (and
// therefore the gas cost of acting on it) is moving fast enough that a
// stale estimate risks an out-of-gas revert.
package gascache

import (
	"sync"
	"time"
)

// Spread-tier TTLs and thresholds.
const (
	ttlLow    = 30 * time.Second
	ttlMedium = 10 * time.Second

	spreadDeltaThresholdBps = 20
	lowSpreadBps            = 15
	mediumSpreadBps         = 30
)

// RouteKey identifies a sell-venue/buy-venue pair by their configured
// small-integer venue IDs.
type RouteKey struct {
	SellVenue uint8
	BuyVenue  uint8
}

// Entry is one cached gas estimate, tagged with the spread at capture time.
type Entry struct {
	GasEstimate      uint64
	CapturedAt       time.Time
	SpreadBpsAtCache int32
}

// Source distinguishes how a cached estimate was buffered before use.
type Source uint8

const (
	SourceCached Source = iota
	SourceCachedWithBuffer
)

// Decision is the outcome of Strategy: either use a buffered cached
// estimate, or fetch a fresh one with the given buffer percentage applied
// by the caller.
type Decision struct {
	UseCached      bool
	GasLimit       uint64
	Source         Source
	BufferPercent  uint64 // only meaningful when UseCached is false
}

// Cache holds gas estimates per RouteKey until their spread-tier TTL expires.
// High-spread estimates are never stored: they're too volatile to reuse.
type Cache struct {
	mu      sync.RWMutex
	entries map[RouteKey]Entry
	now     func() time.Time
}

// New returns an empty Cache.
func New() *Cache {
	return &Cache{entries: make(map[RouteKey]Entry), now: time.Now}
}

// Get returns a cached gas estimate for route if it's still valid against
// currentSpreadBps, per isValid's TTL-and-delta rule.
func (c *Cache) Get(route RouteKey, currentSpreadBps int32) (uint64, bool) {
	c.mu.RLock()
	entry, ok := c.entries[route]
	c.mu.RUnlock()
	if !ok {
		return 0, false
	}
	if !c.isValid(entry, currentSpreadBps) {
		return 0, false
	}
	return entry.GasEstimate, true
}

// Store records a gas estimate for route, unless spreadBps is already at
// or above the high-spread threshold (such estimates would never pass
// isValid's TTL check anyway, since high-spread entries get TTL=0).
func (c *Cache) Store(route RouteKey, gasEstimate uint64, spreadBps int32) {
	if spreadBps >= mediumSpreadBps {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[route] = Entry{
		GasEstimate:      gasEstimate,
		CapturedAt:       c.now(),
		SpreadBpsAtCache: spreadBps,
	}
}

// Clear empties the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[RouteKey]Entry)
}

func (c *Cache) isValid(entry Entry, currentSpreadBps int32) bool {
	var ttl time.Duration
	switch {
	case entry.SpreadBpsAtCache < lowSpreadBps:
		ttl = ttlLow
	case entry.SpreadBpsAtCache < mediumSpreadBps:
		ttl = ttlMedium
	default:
		ttl = 0
	}

	if c.now().Sub(entry.CapturedAt) > ttl {
		return false
	}

	if currentSpreadBps-entry.SpreadBpsAtCache > spreadDeltaThresholdBps {
		return false
	}

	return true
}

// Strategy decides how to source a gas limit for route given the current
// spread: low spread leans on the cache with an 8%
// buffer, medium spread uses a 15% buffer with a shorter TTL window
// (enforced by isValid, not here), and high spread always fetches fresh
// with a 20% buffer since that's where the competitive execution race is.
func (c *Cache) Strategy(route RouteKey, spreadBps int32) Decision {
	switch {
	case spreadBps < lowSpreadBps:
		if cached, ok := c.Get(route, spreadBps); ok {
			return Decision{UseCached: true, GasLimit: cached * 108 / 100, Source: SourceCached}
		}
		return Decision{BufferPercent: 10}

	case spreadBps < mediumSpreadBps:
		if cached, ok := c.Get(route, spreadBps); ok {
			return Decision{UseCached: true, GasLimit: cached * 115 / 100, Source: SourceCachedWithBuffer}
		}
		return Decision{BufferPercent: 15}

	default:
		return Decision{BufferPercent: 20}
	}
}

// CalculateGasPrice derives (maxFeePerGas, priorityFeePerGas) from the base
// gas price and the current spread: priority fee is 10% of base, plus 1
// gwei per 10bps of spread (wider spread implies more bot competition for
// the same block).
func CalculateGasPrice(baseGasPrice uint64, spreadBps int32) (maxFee, priorityFee uint64) {
	basePriority := baseGasPrice / 10
	priorityBoost := uint64(spreadBps/10) * 1_000_000_000
	priorityFee = basePriority + priorityBoost
	maxFee = baseGasPrice + priorityFee
	return maxFee, priorityFee
}
