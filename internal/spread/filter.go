package spread

// FilterConfig tunes Evaluate's four skip/execute rules.
type FilterConfig struct {
	MinVelocity    float64 // skip dead spreads below this |bps/sec|
	MaxVelocity    float64 // skip bot-signature spikes above this bps/sec
	MinFinalSpread int32   // require at least this much margin, in bps
	MaxBaseline    int32   // only act on spreads that were recently near zero
}

// DefaultFilterConfig returns the tuned default thresholds.
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		MinVelocity:    15.0,
		MaxVelocity:    100.0,
		MinFinalSpread: 9,
		MaxBaseline:    2,
	}
}

// Decision is the outcome of Evaluate.
type Decision struct {
	Execute bool
	Reason  string // populated only when Execute is false
}

// Evaluate applies four rules, in order, to decide whether v represents an
// actionable spread worth executing against:
//  1. velocity above MaxVelocity looks like another bot's arb already
//     moving the market — skip.
//  2. velocity below MinVelocity with no change from the window's minimum
//     is a dead, directionless spread — skip.
//  3. the current spread itself is too thin to clear fees and slippage —
//     skip.
//  4. the window's minimum spread was already elevated, meaning this is a
//     late entry into an opportunity that started before we saw it — skip.
//
// Anything surviving all four is Execute.
func (c FilterConfig) Evaluate(v Velocity) Decision {
	velocity := v.VelocityBpsPerSec
	baseline := v.MinSpreadInWindow
	finalSpread := v.SpreadAtTrigger

	if velocity > c.MaxVelocity {
		return Decision{Execute: false, Reason: "velocity too high - bot signature detected"}
	}

	if absFloat(velocity) < c.MinVelocity && baseline == finalSpread {
		return Decision{Execute: false, Reason: "dead spread - no momentum"}
	}

	if finalSpread < float64(c.MinFinalSpread) {
		return Decision{Execute: false, Reason: "spread too thin for margin"}
	}

	if baseline > float64(c.MaxBaseline) {
		return Decision{Execute: false, Reason: "baseline elevated - late to opportunity"}
	}

	return Decision{Execute: true}
}

func absFloat(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
