// Package spread tracks the recent history of observed spreads between a
// buy pool and a sell pool, derives velocity/acceleration from that
// history, and applies a rule-based filter that decides whether a given
// snapshot is actionable or should be skipped.
package spread

import "time"

// Snapshot is one observed spread reading between two pools at a point in
// time.
type Snapshot struct {
	Timestamp    time.Time
	BuyPool      string
	SellPool     string
	BuyPrice     float64
	SellPrice    float64
	GrossSpreadBps float64
	NetSpreadBps   float64
}

// Velocity summarizes how a window of Snapshots is moving: direction and
// rate of change of the net spread, and whether that rate looks like a
// sudden spike.
type Velocity struct {
	Snapshots        []Snapshot
	VelocityBpsPerSec float64
	Acceleration      float64
	IsSpike           bool
	SpreadAtTrigger   float64
	MaxSpreadInWindow float64
	MinSpreadInWindow float64
	WindowDuration    time.Duration
}

// spikeVelocityBps marks a rate of change implausible for organic market
// movement.
const spikeVelocityBps = 100.0

// Tracker is a bounded ring buffer of Snapshots for one pool pair,
// dropping the oldest entry once Capacity is reached.
type Tracker struct {
	Capacity  int
	snapshots []Snapshot
}

// NewTracker returns a Tracker that retains at most capacity snapshots.
func NewTracker(capacity int) *Tracker {
	return &Tracker{Capacity: capacity}
}

// Record appends snap, evicting the oldest snapshot if the tracker is at
// capacity.
func (t *Tracker) Record(snap Snapshot) {
	t.snapshots = append(t.snapshots, snap)
	if len(t.snapshots) > t.Capacity {
		t.snapshots = t.snapshots[1:]
	}
}

// Snapshots returns the tracker's current window, oldest first.
func (t *Tracker) Snapshots() []Snapshot {
	return t.snapshots
}

// Analyze computes velocity and acceleration over the current window.
// Returns false if fewer than two snapshots have been recorded — there's
// no rate of change to compute from a single point.
func (t *Tracker) Analyze() (Velocity, bool) {
	n := len(t.snapshots)
	if n < 2 {
		return Velocity{}, false
	}

	first := t.snapshots[0]
	last := t.snapshots[n-1]
	windowDuration := last.Timestamp.Sub(first.Timestamp)

	windowSecs := windowDuration.Seconds()
	var velocityBpsPerSec float64
	if windowSecs > 0 {
		velocityBpsPerSec = (last.NetSpreadBps - first.NetSpreadBps) / windowSecs
	}

	var acceleration float64
	if n >= 3 {
		mid := t.snapshots[n/2]

		t1 := mid.Timestamp.Sub(first.Timestamp).Seconds()
		t2 := last.Timestamp.Sub(mid.Timestamp).Seconds()

		if t1 > 0 && t2 > 0 {
			v1 := (mid.NetSpreadBps - first.NetSpreadBps) / t1
			v2 := (last.NetSpreadBps - mid.NetSpreadBps) / t2
			acceleration = (v2 - v1) / ((t1 + t2) / 2)
		}
	}

	maxSpread, minSpread := first.NetSpreadBps, first.NetSpreadBps
	for _, s := range t.snapshots {
		if s.NetSpreadBps > maxSpread {
			maxSpread = s.NetSpreadBps
		}
		if s.NetSpreadBps < minSpread {
			minSpread = s.NetSpreadBps
		}
	}

	v := Velocity{
		Snapshots:         append([]Snapshot{}, t.snapshots...),
		VelocityBpsPerSec: velocityBpsPerSec,
		Acceleration:      acceleration,
		IsSpike:           velocityBpsPerSec > spikeVelocityBps || velocityBpsPerSec < -spikeVelocityBps,
		SpreadAtTrigger:   last.NetSpreadBps,
		MaxSpreadInWindow: maxSpread,
		MinSpreadInWindow: minSpread,
		WindowDuration:    windowDuration,
	}
	return v, true
}
