package spread

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func snap(t time.Time, netBps float64) Snapshot {
	return Snapshot{Timestamp: t, NetSpreadBps: netBps}
}

func TestAnalyzeRequiresTwoSnapshots(t *testing.T) {
	tr := NewTracker(10)
	tr.Record(snap(time.Now(), 10))
	_, ok := tr.Analyze()
	assert.False(t, ok)
}

func TestAnalyzeVelocity(t *testing.T) {
	base := time.Now()
	tr := NewTracker(10)
	tr.Record(snap(base, 10))
	tr.Record(snap(base.Add(2*time.Second), 20))

	v, ok := tr.Analyze()
	assert.True(t, ok)
	assert.InDelta(t, 5.0, v.VelocityBpsPerSec, 1e-9) // (20-10)/2s
}

func TestAnalyzeAccelerationNeedsThreePoints(t *testing.T) {
	base := time.Now()
	tr := NewTracker(10)
	tr.Record(snap(base, 10))
	tr.Record(snap(base.Add(1*time.Second), 15))
	tr.Record(snap(base.Add(2*time.Second), 25))

	v, ok := tr.Analyze()
	assert.True(t, ok)
	// v1 = (15-10)/1 = 5, v2 = (25-15)/1 = 10, accel = (10-5)/1 = 5
	assert.InDelta(t, 5.0, v.Acceleration, 1e-9)
}

func TestTrackerEvictsOldestAtCapacity(t *testing.T) {
	tr := NewTracker(2)
	base := time.Now()
	tr.Record(snap(base, 1))
	tr.Record(snap(base.Add(time.Second), 2))
	tr.Record(snap(base.Add(2*time.Second), 3))

	assert.Len(t, tr.Snapshots(), 2)
	assert.Equal(t, float64(2), tr.Snapshots()[0].NetSpreadBps)
}

func TestFilterSkipsHighVelocity(t *testing.T) {
	cfg := DefaultFilterConfig()
	d := cfg.Evaluate(Velocity{VelocityBpsPerSec: 150, SpreadAtTrigger: 20, MinSpreadInWindow: 5})
	assert.False(t, d.Execute)
	assert.Contains(t, d.Reason, "bot signature")
}

func TestFilterSkipsDeadSpread(t *testing.T) {
	cfg := DefaultFilterConfig()
	d := cfg.Evaluate(Velocity{VelocityBpsPerSec: 1, SpreadAtTrigger: 20, MinSpreadInWindow: 20})
	assert.False(t, d.Execute)
	assert.Contains(t, d.Reason, "dead spread")
}

func TestFilterSkipsThinSpread(t *testing.T) {
	cfg := DefaultFilterConfig()
	d := cfg.Evaluate(Velocity{VelocityBpsPerSec: 20, SpreadAtTrigger: 5, MinSpreadInWindow: 1})
	assert.False(t, d.Execute)
	assert.Contains(t, d.Reason, "too thin")
}

func TestFilterSkipsElevatedBaseline(t *testing.T) {
	cfg := DefaultFilterConfig()
	d := cfg.Evaluate(Velocity{VelocityBpsPerSec: 20, SpreadAtTrigger: 20, MinSpreadInWindow: 10})
	assert.False(t, d.Execute)
	assert.Contains(t, d.Reason, "late to opportunity")
}

func TestFilterExecutes(t *testing.T) {
	cfg := DefaultFilterConfig()
	d := cfg.Evaluate(Velocity{VelocityBpsPerSec: 20, SpreadAtTrigger: 20, MinSpreadInWindow: 1})
	assert.True(t, d.Execute)
}
