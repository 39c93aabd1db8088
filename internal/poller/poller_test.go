package poller

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"

	"github.com/shadowline-labs/monadarb/internal/cycle"
	"github.com/shadowline-labs/monadarb/internal/dex"
	"github.com/shadowline-labs/monadarb/internal/simulation"
	"github.com/shadowline-labs/monadarb/internal/spread"
)

// newTestPoller builds a Poller with no live chain/adapter dependencies, for
// exercising Lookup/Liquidity/ShouldExecute against directly-seeded state —
// the same manual-seed style internal/nonce's tests use to avoid needing a
// real RPC endpoint.
func newTestPoller() *Poller {
	return New(nil, nil, nil, nil, 4, 10, simulation.DefaultCalculator(), spread.DefaultFilterConfig(), uint256.NewInt(1_000_000))
}

func TestLookupReturnsStoredPool(t *testing.T) {
	p := newTestPoller()
	addr := common.HexToAddress("0x1111111111111111111111111111111111111111")
	info := dex.PoolInfo{Address: addr, Variant: dex.VariantV3ConstantFee}

	p.pools[addr] = poolEntry{info: info}

	got, _, ok := p.Lookup(addr)
	assert.True(t, ok)
	assert.Equal(t, info, got)
}

func TestLookupUnknownPoolReturnsFalse(t *testing.T) {
	p := newTestPoller()
	_, _, ok := p.Lookup(common.HexToAddress("0x2222222222222222222222222222222222222222"))
	assert.False(t, ok)
}

func TestLiquidityReturnsStoredValue(t *testing.T) {
	p := newTestPoller()
	addr := common.HexToAddress("0x3333333333333333333333333333333333333333")
	p.pools[addr] = poolEntry{info: dex.PoolInfo{Liquidity: uint256.NewInt(500)}}

	liq, ok := p.Liquidity(addr)
	assert.True(t, ok)
	assert.Equal(t, uint256.NewInt(500), liq)
}

func TestLiquidityMissingPoolReturnsFalse(t *testing.T) {
	p := newTestPoller()
	_, ok := p.Liquidity(common.HexToAddress("0x4444444444444444444444444444444444444444"))
	assert.False(t, ok)
}

func TestShouldExecuteWithNoTrackerSkips(t *testing.T) {
	p := newTestPoller()
	execute, reason := p.ShouldExecute(1, 50)
	assert.False(t, execute)
	assert.Equal(t, "no tracked spread history yet", reason)
}

func TestShouldExecuteWithOneSnapshotSkips(t *testing.T) {
	p := newTestPoller()
	tracker := spread.NewTracker(trackerCapacity)
	tracker.Record(spread.Snapshot{Timestamp: time.Now(), NetSpreadBps: 20})
	p.trackers["a->b"] = tracker
	p.lastPairKey = "a->b"

	execute, reason := p.ShouldExecute(1, 20)
	assert.False(t, execute)
	assert.Equal(t, "no tracked spread history yet", reason)
}

func TestShouldExecuteAppliesFilterConfig(t *testing.T) {
	p := newTestPoller()
	tracker := spread.NewTracker(trackerCapacity)
	now := time.Now()
	// Spread climbing from 2 to 15bps over 1s (13 bps/s): below MinVelocity,
	// but not a dead spread since it moved off the window minimum; clears
	// MinFinalSpread/MaxBaseline and stays under MaxVelocity.
	tracker.Record(spread.Snapshot{Timestamp: now, NetSpreadBps: 2})
	tracker.Record(spread.Snapshot{Timestamp: now.Add(time.Second), NetSpreadBps: 15})
	p.trackers["a->b"] = tracker
	p.lastPairKey = "a->b"

	execute, reason := p.ShouldExecute(1, 15)
	assert.True(t, execute)
	assert.Empty(t, reason)
}

func TestShouldExecuteSkipsDeadSpread(t *testing.T) {
	p := newTestPoller()
	tracker := spread.NewTracker(trackerCapacity)
	now := time.Now()
	tracker.Record(spread.Snapshot{Timestamp: now, NetSpreadBps: 10})
	tracker.Record(spread.Snapshot{Timestamp: now.Add(time.Second), NetSpreadBps: 10})
	p.trackers["a->b"] = tracker
	p.lastPairKey = "a->b"

	execute, reason := p.ShouldExecute(1, 10)
	assert.False(t, execute)
	assert.Equal(t, "dead spread - no momentum", reason)
}

func TestRecordSpreadTracksLastPairKey(t *testing.T) {
	p := newTestPoller()
	buy := common.HexToAddress("0x5555555555555555555555555555555555555555").Hex()
	sell := common.HexToAddress("0x6666666666666666666666666666666666666666").Hex()

	c := cycle.ArbitrageCycle{Prices: []float64{1.0, 1.01}}
	p.recordSpread(buy, sell, c, simulation.Result{NetProfitBps: 42, GrossProfitBps: 50})

	assert.Equal(t, buy+"->"+sell, p.lastPairKey)
	tracker, ok := p.trackers[buy+"->"+sell]
	assert.True(t, ok)
	snaps := tracker.Snapshots()
	assert.Len(t, snaps, 1)
	assert.Equal(t, float64(42), snaps[0].NetSpreadBps)
}
