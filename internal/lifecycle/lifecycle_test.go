package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// Block N proposed 18bps / finalized 7bps -> Decayed; block N+1 proposed
// 20 / finalized 22 -> Grew.
func TestClassifyDecayedAndGrew(t *testing.T) {
	assert.Equal(t, OutcomeDecayed, Classify(18, 7))
	assert.Equal(t, OutcomeGrew, Classify(20, 22))
}

func TestClassifyNotActionableBelowTenProposed(t *testing.T) {
	assert.Equal(t, OutcomeNotActionable, Classify(9, 50))
}

func TestClassifyPersistedAndCaptured(t *testing.T) {
	assert.Equal(t, OutcomePersisted, Classify(15, 12))
	assert.Equal(t, OutcomeCaptured, Classify(15, 4))
}

func TestParseCommitStateRoundTrip(t *testing.T) {
	for _, s := range []CommitState{StateProposed, StateVoted, StateFinalized, StateVerified} {
		parsed, ok := ParseCommitState(s.String())
		assert.True(t, ok)
		assert.Equal(t, s, parsed)
	}
	_, ok := ParseCommitState("bogus")
	assert.False(t, ok)
}

func TestBlockHeaderBlockNumberParsesHex(t *testing.T) {
	h := BlockHeader{Number: "0x2a"}
	assert.Equal(t, uint64(42), h.BlockNumber())
}

func TestBlockLifecycleRecordComputesAnalysisOnlyWhenComplete(t *testing.T) {
	b := NewBlockLifecycle(100)
	assert.False(t, b.IsComplete())

	t0 := time.Now()
	b.Record(PriceSnapshot{CommitState: StateProposed, ObservedAt: t0, BestSpreadBps: 18})
	assert.False(t, b.IsComplete())
	assert.Equal(t, int32(0), b.SpreadAtProposedBps)

	b.Record(PriceSnapshot{CommitState: StateFinalized, ObservedAt: t0.Add(420 * time.Millisecond), BestSpreadBps: 7})
	assert.True(t, b.IsComplete())
	assert.Equal(t, int32(18), b.SpreadAtProposedBps)
	assert.Equal(t, int32(7), b.SpreadAtFinalizedBps)
	assert.Equal(t, OutcomeDecayed, b.Outcome)
	assert.Equal(t, 420*time.Millisecond, b.ProposedToFinalized)
}

func TestSpreadTierFromBpsBuckets(t *testing.T) {
	assert.Equal(t, TierNoise, SpreadTierFromBps(4))
	assert.Equal(t, TierSubThreshold, SpreadTierFromBps(8))
	assert.Equal(t, TierMarginal, SpreadTierFromBps(12))
	assert.Equal(t, TierActionable, SpreadTierFromBps(20))
	assert.Equal(t, TierCritical, SpreadTierFromBps(30))
	assert.False(t, TierNoise.IsActionable())
	assert.True(t, TierActionable.IsActionable())
}

type fakeSnapshotter struct {
	bps      int32
	buyPool  string
	sellPool string
	err      error
}

func (f fakeSnapshotter) Snapshot(ctx context.Context, blockNumber uint64) (int32, string, string, error) {
	return f.bps, f.buyPool, f.sellPool, f.err
}

type fakeFilter struct {
	execute bool
	reason  string
}

func (f fakeFilter) ShouldExecute(blockNumber uint64, proposedSpreadBps int32) (bool, string) {
	return f.execute, f.reason
}

func TestObserverHandleHeaderTriggersOnActionableProposedSpread(t *testing.T) {
	o := NewObserver("wss://example", fakeSnapshotter{bps: 25, buyPool: "P", sellPool: "Q"}, fakeFilter{execute: true}, 10, nil)

	o.handleHeader(context.Background(), BlockHeader{Number: "0x1", CommitState: "Proposed"})

	select {
	case tr := <-o.Triggers:
		assert.Equal(t, uint64(1), tr.BlockNumber)
		assert.Equal(t, int32(25), tr.ProposedSpreadBps)
	default:
		t.Fatal("expected a trigger")
	}
}

func TestObserverHandleHeaderSkipsBelowThreshold(t *testing.T) {
	o := NewObserver("wss://example", fakeSnapshotter{bps: 5}, fakeFilter{execute: true}, 10, nil)

	o.handleHeader(context.Background(), BlockHeader{Number: "0x1", CommitState: "Proposed"})

	select {
	case <-o.Triggers:
		t.Fatal("did not expect a trigger below threshold")
	default:
	}
}

func TestObserverHandleHeaderRespectsFilterVeto(t *testing.T) {
	o := NewObserver("wss://example", fakeSnapshotter{bps: 50}, fakeFilter{execute: false, reason: "dead spread"}, 10, nil)

	o.handleHeader(context.Background(), BlockHeader{Number: "0x1", CommitState: "Proposed"})

	select {
	case <-o.Triggers:
		t.Fatal("did not expect a trigger when filter vetoes")
	default:
	}
}

func TestObserverVotedAndVerifiedAreTimestampOnly(t *testing.T) {
	o := NewObserver("wss://example", fakeSnapshotter{bps: 50}, fakeFilter{execute: true}, 10, nil)

	o.handleHeader(context.Background(), BlockHeader{Number: "0x1", CommitState: "Voted"})

	o.mu.Lock()
	rec, ok := o.blocks[1]
	o.mu.Unlock()
	assert.True(t, ok)
	if assert.NotNil(t, rec.Voted) {
		assert.False(t, rec.Voted.ObservedAt.IsZero())
		assert.Equal(t, int32(0), rec.Voted.BestSpreadBps) // no price snapshot taken
	}
}

func TestObserverCompletedDrainsEachRecordOnce(t *testing.T) {
	o := NewObserver("wss://example", fakeSnapshotter{bps: 50}, fakeFilter{execute: false}, 100, nil)

	o.handleHeader(context.Background(), BlockHeader{Number: "0x1", CommitState: "Proposed"})
	o.handleHeader(context.Background(), BlockHeader{Number: "0x1", CommitState: "Finalized"})

	first := o.Completed()
	assert.Len(t, first, 1)
	assert.Empty(t, o.Completed())
}

func TestObserverEvictsOldestBlockPastWindow(t *testing.T) {
	o := NewObserver("wss://example", fakeSnapshotter{bps: 1}, fakeFilter{execute: false}, 100, nil)

	for i := uint64(1); i <= maxTrackedBlocks+5; i++ {
		o.recordFor(i)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	assert.Len(t, o.blocks, maxTrackedBlocks)
	_, stillTracked := o.blocks[1]
	assert.False(t, stillTracked)
}
