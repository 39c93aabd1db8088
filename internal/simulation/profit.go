// Package simulation computes, per candidate cycle, whether executing it
// would be profitable after DEX fees, flash-loan fees, and gas cost — and
// at what confidence, given what could and couldn't be verified on-chain
// before committing to it.
package simulation

import (
	"math/big"

	"github.com/holiman/uint256"
)

// FlashLoanProvider selects which flash-loan fee schedule to deduct.
type FlashLoanProvider uint8

const (
	// FlashLoanNeverland charges 9bps, this engine's default provider.
	FlashLoanNeverland FlashLoanProvider = iota
	// FlashLoanAaveV3 charges 5bps.
	FlashLoanAaveV3
	// FlashLoanNone models using the bot's own capital: no fee.
	FlashLoanNone
)

// FeeBps returns the provider's flash-loan fee in basis points.
func (p FlashLoanProvider) FeeBps() uint32 {
	switch p {
	case FlashLoanNeverland:
		return 9
	case FlashLoanAaveV3:
		return 5
	default:
		return 0
	}
}

// Name returns the config-facing provider name
// ("native"/"aave-like"/"none").
func (p FlashLoanProvider) Name() string {
	switch p {
	case FlashLoanNeverland:
		return "native"
	case FlashLoanAaveV3:
		return "aave-like"
	default:
		return "none"
	}
}

// ProfitBreakdown is the full cost accounting for one simulated execution.
type ProfitBreakdown struct {
	InputAmount    *uint256.Int
	GrossOutput    *uint256.Int
	TotalDexFees   *uint256.Int
	TotalDexFeesBps uint32
	FlashLoanFee    *uint256.Int
	FlashLoanFeeBps uint32
	GasCost         *uint256.Int
	GasPrice        *uint256.Int
	GasUnits        uint64
	NetOutput       *uint256.Int

	GrossProfit    *big.Int // signed
	NetProfit      *big.Int // signed
	GrossProfitBps int32
	NetProfitBps   int32

	IsProfitable          bool
	MinProfitThresholdBps uint32
	AboveThreshold        bool
}

// EffectiveReturn is NetOutput/InputAmount as a float64 multiplier.
func (b ProfitBreakdown) EffectiveReturn() float64 {
	if b.InputAmount == nil || b.InputAmount.IsZero() {
		return 0
	}
	in := new(big.Float).SetInt(b.InputAmount.ToBig())
	out := new(big.Float).SetInt(b.NetOutput.ToBig())
	ratio, _ := new(big.Float).Quo(out, in).Float64()
	return ratio
}

// Calculator turns a quoted swap path into a ProfitBreakdown.
type Calculator struct {
	FlashLoanProvider FlashLoanProvider
	MinProfitBps      uint32
	SafetyMarginBps   uint32
}

// DefaultCalculator returns the tuned defaults: Neverland flash loans,
// 10bps minimum profit, 5bps safety margin.
func DefaultCalculator() Calculator {
	return Calculator{
		FlashLoanProvider: FlashLoanNeverland,
		MinProfitBps:      10,
		SafetyMarginBps:   5,
	}
}

// Calculate computes the full cost breakdown for borrowing inputAmount,
// receiving grossOutput from the swap path (DEX fees already deducted by
// the quoters, but reported separately here via totalDexFeesBps for
// visibility), and paying gasUnits*gasPrice in gas plus the configured
// flash-loan fee.
func (c Calculator) Calculate(inputAmount, grossOutput *uint256.Int, totalDexFeesBps uint32, gasUnits uint64, gasPrice *uint256.Int) ProfitBreakdown {
	totalDexFees := mulDivU256(inputAmount, uint256.NewInt(uint64(totalDexFeesBps)), uint256.NewInt(10000))

	flashLoanFeeBps := c.FlashLoanProvider.FeeBps()
	flashLoanFee := mulDivU256(inputAmount, uint256.NewInt(uint64(flashLoanFeeBps)), uint256.NewInt(10000))

	gasCost := new(uint256.Int).Mul(uint256.NewInt(gasUnits), gasPrice)

	netOutput := saturatingSub(saturatingSub(grossOutput, flashLoanFee), gasCost)

	grossProfit := signedDiff(grossOutput, inputAmount)
	netProfit := signedDiff(netOutput, inputAmount)

	inputBig := new(big.Int).SetUint64(0)
	if inputAmount != nil {
		inputBig = inputAmount.ToBig()
	}

	grossProfitBps := bpsOf(grossProfit, inputBig)
	netProfitBps := bpsOf(netProfit, inputBig)

	minThreshold := c.MinProfitBps + c.SafetyMarginBps

	return ProfitBreakdown{
		InputAmount:           inputAmount,
		GrossOutput:           grossOutput,
		TotalDexFees:          totalDexFees,
		TotalDexFeesBps:       totalDexFeesBps,
		FlashLoanFee:          flashLoanFee,
		FlashLoanFeeBps:       flashLoanFeeBps,
		GasCost:               gasCost,
		GasPrice:              gasPrice,
		GasUnits:              gasUnits,
		NetOutput:             netOutput,
		GrossProfit:           grossProfit,
		NetProfit:             netProfit,
		GrossProfitBps:        grossProfitBps,
		NetProfitBps:          netProfitBps,
		IsProfitable:          netProfit.Sign() > 0,
		MinProfitThresholdBps: minThreshold,
		AboveThreshold:        netProfitBps >= int32(minThreshold),
	}
}

// MinimumOutputForProfit returns the gross output inputAmount would need to
// clear the configured profit threshold, given an expected gasCost.
func (c Calculator) MinimumOutputForProfit(inputAmount, gasCost *uint256.Int) *uint256.Int {
	flashLoanFee := mulDivU256(inputAmount, uint256.NewInt(uint64(c.FlashLoanProvider.FeeBps())), uint256.NewInt(10000))
	minProfit := mulDivU256(inputAmount, uint256.NewInt(uint64(c.MinProfitBps+c.SafetyMarginBps)), uint256.NewInt(10000))

	out := new(uint256.Int).Add(inputAmount, flashLoanFee)
	out.Add(out, gasCost)
	out.Add(out, minProfit)
	return out
}

// BreakevenOutput returns the gross output at which net profit is exactly
// zero for inputAmount given gasCost.
func (c Calculator) BreakevenOutput(inputAmount, gasCost *uint256.Int) *uint256.Int {
	flashLoanFee := mulDivU256(inputAmount, uint256.NewInt(uint64(c.FlashLoanProvider.FeeBps())), uint256.NewInt(10000))
	out := new(uint256.Int).Add(inputAmount, flashLoanFee)
	out.Add(out, gasCost)
	return out
}

// RequiredGrossProfitBps estimates the gross profit (in bps) a path needs
// to clear before fees and margin eat it away, given an estimated gas cost
// expressed in bps of the input amount.
func (c Calculator) RequiredGrossProfitBps(gasCostBps uint32) uint32 {
	return c.FlashLoanProvider.FeeBps() + gasCostBps + c.MinProfitBps + c.SafetyMarginBps
}

func mulDivU256(a, b, d *uint256.Int) *uint256.Int {
	if a == nil || b == nil || d == nil || d.IsZero() {
		return new(uint256.Int)
	}
	product := new(big.Int).Mul(a.ToBig(), b.ToBig())
	product.Div(product, d.ToBig())
	out := new(uint256.Int)
	out.SetFromBig(product)
	return out
}

func saturatingSub(a, b *uint256.Int) *uint256.Int {
	if a.Cmp(b) <= 0 {
		return new(uint256.Int)
	}
	return new(uint256.Int).Sub(a, b)
}

// signedDiff returns a-b as a signed big.Int, since uint256 has no native
// signed representation and profit can be negative.
func signedDiff(a, b *uint256.Int) *big.Int {
	return new(big.Int).Sub(a.ToBig(), b.ToBig())
}

// bpsOf returns profit*10000/input as an int32, or 0 if input is zero.
func bpsOf(profit, input *big.Int) int32 {
	if input.Sign() == 0 {
		return 0
	}
	bps := new(big.Int).Mul(profit, big.NewInt(10000))
	bps.Div(bps, input)
	return int32(bps.Int64())
}
