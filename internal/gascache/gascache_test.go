package gascache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStrategyLowSpreadNoCacheFetchesFresh(t *testing.T) {
	c := New()
	route := RouteKey{SellVenue: 0, BuyVenue: 1}

	decision := c.Strategy(route, 10)
	assert.False(t, decision.UseCached)
	assert.Equal(t, uint64(10), decision.BufferPercent)
}

func TestStrategyHighSpreadAlwaysFresh(t *testing.T) {
	c := New()
	route := RouteKey{SellVenue: 0, BuyVenue: 1}
	c.Store(route, 100_000, 10) // cache something first

	decision := c.Strategy(route, 50)
	assert.False(t, decision.UseCached)
	assert.Equal(t, uint64(20), decision.BufferPercent)
}

func TestStrategyUsesCacheWithinLowSpreadBuffer(t *testing.T) {
	c := New()
	route := RouteKey{SellVenue: 0, BuyVenue: 1}
	c.Store(route, 100_000, 10)

	decision := c.Strategy(route, 10)
	assert.True(t, decision.UseCached)
	assert.Equal(t, uint64(108_000), decision.GasLimit)
	assert.Equal(t, SourceCached, decision.Source)
}

func TestStrategyMediumSpreadUsesLargerBuffer(t *testing.T) {
	c := New()
	route := RouteKey{SellVenue: 0, BuyVenue: 1}
	c.Store(route, 100_000, 20)

	decision := c.Strategy(route, 20)
	assert.True(t, decision.UseCached)
	assert.Equal(t, uint64(115_000), decision.GasLimit)
}

func TestHighSpreadNeverCached(t *testing.T) {
	c := New()
	route := RouteKey{SellVenue: 0, BuyVenue: 1}
	c.Store(route, 100_000, 35)

	_, ok := c.Get(route, 35)
	assert.False(t, ok)
}

func TestCacheExpiresAfterTTL(t *testing.T) {
	fixed := time.Now()
	c := New()
	c.now = func() time.Time { return fixed }
	route := RouteKey{SellVenue: 0, BuyVenue: 1}
	c.Store(route, 100_000, 10)

	c.now = func() time.Time { return fixed.Add(31 * time.Second) }
	_, ok := c.Get(route, 10)
	assert.False(t, ok)
}

func TestCacheInvalidatesOnSpreadJump(t *testing.T) {
	c := New()
	route := RouteKey{SellVenue: 0, BuyVenue: 1}
	c.Store(route, 100_000, 10)

	_, ok := c.Get(route, 35) // delta of 25 > 20bps threshold
	assert.False(t, ok)
}

func TestCalculateGasPrice(t *testing.T) {
	maxFee, priority := CalculateGasPrice(1_000_000_000, 30)
	assert.Equal(t, uint64(100_000_000+3_000_000_000), priority)
	assert.Equal(t, uint64(1_000_000_000)+priority, maxFee)
}
