// Package lifecycle tracks each block through Monad's four-state commit
// lifecycle (Proposed, Voted, Finalized, Verified) via the chain's
// commitState-tagged new-heads subscription, and classifies what happened
// to the best spread observed between a block's Proposed and Finalized
// snapshots.
package lifecycle

import (
	"strconv"
	"strings"
	"time"
)

// CommitState is one of the four stages a Monad block passes through
// before it is considered durably final.
type CommitState uint8

const (
	StateProposed CommitState = iota
	StateVoted
	StateFinalized
	StateVerified
)

// ParseCommitState maps the wire string carried on a new-heads
// notification to a CommitState. ok is false for any unrecognized value.
func ParseCommitState(s string) (CommitState, bool) {
	switch s {
	case "Proposed":
		return StateProposed, true
	case "Voted":
		return StateVoted, true
	case "Finalized":
		return StateFinalized, true
	case "Verified":
		return StateVerified, true
	default:
		return 0, false
	}
}

func (s CommitState) String() string {
	switch s {
	case StateProposed:
		return "Proposed"
	case StateVoted:
		return "Voted"
	case StateFinalized:
		return "Finalized"
	case StateVerified:
		return "Verified"
	default:
		return "Unknown"
	}
}

// SpreadTier buckets a spread reading taken at Proposed time into a
// coarse actionability band.
type SpreadTier uint8

const (
	TierNoise SpreadTier = iota
	TierSubThreshold
	TierMarginal
	TierActionable
	TierCritical
)

// SpreadTierFromBps classifies bps into a SpreadTier: <5 Noise, 5-9
// SubThreshold, 10-14 Marginal, 15-24 Actionable, >=25 Critical.
func SpreadTierFromBps(bps int32) SpreadTier {
	switch {
	case bps < 5:
		return TierNoise
	case bps < 10:
		return TierSubThreshold
	case bps < 15:
		return TierMarginal
	case bps < 25:
		return TierActionable
	default:
		return TierCritical
	}
}

// IsActionable reports whether this tier is worth acting on.
func (t SpreadTier) IsActionable() bool {
	return t == TierMarginal || t == TierActionable || t == TierCritical
}

func (t SpreadTier) String() string {
	switch t {
	case TierNoise:
		return "noise"
	case TierSubThreshold:
		return "sub-threshold"
	case TierMarginal:
		return "marginal"
	case TierActionable:
		return "actionable"
	case TierCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// SpreadOutcome classifies what an actionable spread observed at
// Proposed time turned into by the time the block was Finalized.
type SpreadOutcome uint8

const (
	// OutcomeNotActionable means the spread was never worth tracking
	// (proposedBps < 10).
	OutcomeNotActionable SpreadOutcome = iota
	// OutcomePersisted means it stayed actionable (>= 10bps).
	OutcomePersisted
	// OutcomeDecayed dropped below actionable but stayed positive (5-9bps).
	OutcomeDecayed
	// OutcomeCaptured vanished entirely (< 5bps) — a competitor took it.
	OutcomeCaptured
	// OutcomeGrew held or increased between Proposed and Finalized
	// (finalized >= proposed).
	OutcomeGrew
)

// Classify determines the outcome of a spread first observed as
// proposedBps and re-observed as finalizedBps. The Grew check runs
// before the Persisted check: a spread that grew is reported as Grew
// even though it also satisfies >= 10bps.
func Classify(proposedBps, finalizedBps int32) SpreadOutcome {
	if proposedBps < 10 {
		return OutcomeNotActionable
	}
	switch {
	case finalizedBps >= proposedBps:
		return OutcomeGrew
	case finalizedBps >= 10:
		return OutcomePersisted
	case finalizedBps >= 5:
		return OutcomeDecayed
	default:
		return OutcomeCaptured
	}
}

func (o SpreadOutcome) String() string {
	switch o {
	case OutcomeNotActionable:
		return "not-actionable"
	case OutcomePersisted:
		return "persisted"
	case OutcomeDecayed:
		return "decayed"
	case OutcomeCaptured:
		return "captured"
	case OutcomeGrew:
		return "grew"
	default:
		return "unknown"
	}
}

// BlockHeader is the subset of a commitState-tagged new-heads
// notification this package cares about.
type BlockHeader struct {
	Number      string `json:"number"`
	Hash        string `json:"hash"`
	CommitState string `json:"commitState"`
	Timestamp   string `json:"timestamp"`
}

// BlockNumber parses the header's hex-encoded block number.
func (h BlockHeader) BlockNumber() uint64 {
	n, err := strconv.ParseUint(strings.TrimPrefix(h.Number, "0x"), 16, 64)
	if err != nil {
		return 0
	}
	return n
}

// State parses the header's commitState string.
func (h BlockHeader) State() (CommitState, bool) {
	return ParseCommitState(h.CommitState)
}

// PriceSnapshot is the best spread seen across tracked pool pairs at one
// commit-state observation of one block.
type PriceSnapshot struct {
	BlockNumber   uint64
	CommitState   CommitState
	ObservedAt    time.Time
	BestSpreadBps int32
	BuyPool       string
	SellPool      string
}

// BlockLifecycle accumulates the snapshots taken for one block as it
// advances through Proposed -> Voted -> Finalized -> Verified.
type BlockLifecycle struct {
	BlockNumber uint64
	Proposed    *PriceSnapshot
	Voted       *PriceSnapshot
	Finalized   *PriceSnapshot
	Verified    *PriceSnapshot

	ProposedToFinalized time.Duration
	SpreadAtProposedBps int32
	SpreadAtFinalizedBps int32
	SpreadDeltaBps       int32
	Outcome              SpreadOutcome

	// drained marks a record already handed to persistence.
	drained bool
}

// NewBlockLifecycle starts tracking blockNumber.
func NewBlockLifecycle(blockNumber uint64) *BlockLifecycle {
	return &BlockLifecycle{BlockNumber: blockNumber}
}

// Record attaches a snapshot for the state it was taken at, and — once
// both Proposed and Finalized are present — computes the derived timing
// and spread-outcome fields.
func (b *BlockLifecycle) Record(snap PriceSnapshot) {
	switch snap.CommitState {
	case StateProposed:
		s := snap
		b.Proposed = &s
	case StateVoted:
		s := snap
		b.Voted = &s
	case StateFinalized:
		s := snap
		b.Finalized = &s
	case StateVerified:
		s := snap
		b.Verified = &s
	}
	b.computeAnalysis()
}

// IsComplete reports whether both a Proposed and a Finalized snapshot
// have been recorded.
func (b *BlockLifecycle) IsComplete() bool {
	return b.Proposed != nil && b.Finalized != nil
}

func (b *BlockLifecycle) computeAnalysis() {
	if !b.IsComplete() {
		return
	}
	b.ProposedToFinalized = b.Finalized.ObservedAt.Sub(b.Proposed.ObservedAt)
	b.SpreadAtProposedBps = b.Proposed.BestSpreadBps
	b.SpreadAtFinalizedBps = b.Finalized.BestSpreadBps
	b.SpreadDeltaBps = b.Finalized.BestSpreadBps - b.Proposed.BestSpreadBps
	b.Outcome = Classify(b.SpreadAtProposedBps, b.SpreadAtFinalizedBps)
}
