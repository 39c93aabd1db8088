// Package bigmath implements precision-preserving conversions between
// 256-bit on-chain integers and float64, and a handful of big.Float helpers
// used throughout the pool and simulation layers.
package bigmath

import (
	"math/big"

	"github.com/holiman/uint256"
)

// U256ToFloat64 converts a 256-bit unsigned integer to float64 while
// preserving as much of the mantissa as float64 can hold (53 bits).
//
// Values that fit in 64 bits convert directly. Larger values are shifted
// right until only 64 significant bits remain, converted, then scaled back
// up by 2^shift. This avoids the precision collapse of naively truncating a
// uint256 to uint64 before converting.
func U256ToFloat64(v *uint256.Int) float64 {
	if v == nil || v.IsZero() {
		return 0
	}
	if v.BitLen() <= 64 {
		return float64(v.Uint64())
	}

	shift := uint(v.BitLen() - 64)
	mantissa := new(uint256.Int).Rsh(v, shift)
	return float64(mantissa.Uint64()) * pow2(int(shift))
}

// Q128ToFloat64 converts a Q128.128 fixed-point value (an integer equal to
// the real number times 2^128) to float64 using the same shift-then-scale
// approach as U256ToFloat64, folding the final division by 2^128 into the
// exponent.
func Q128ToFloat64(v *uint256.Int) float64 {
	if v == nil || v.IsZero() {
		return 0
	}
	if v.BitLen() <= 64 {
		return float64(v.Uint64()) / pow2(128)
	}

	shift := uint(v.BitLen() - 64)
	mantissa := new(uint256.Int).Rsh(v, shift)
	exponent := int(shift) - 128
	return float64(mantissa.Uint64()) * pow2(exponent)
}

// pow2 returns 2^n for any integer n (positive or negative), computed
// without repeated multiplication loops so large shifts stay cheap.
func pow2(n int) float64 {
	// math.Ldexp(1, n) is the textbook way to do this, but this package
	// avoids importing math just for one call by doing the exponentiation
	// via big.Float, which also sidesteps float64 overflow for the
	// shift magnitudes this package ever sees (at most a few hundred).
	f := new(big.Float).SetMantExp(big.NewFloat(1), n)
	out, _ := f.Float64()
	return out
}

// SqrtPriceX96ToFloat converts a Uniswap-V3-style sqrtPriceX96 (Q64.96) into
// the corresponding price ratio as a big.Float, i.e. (sqrtPriceX96/2^96)^2.
// Kept in big.Float rather than float64 end-to-end because the square of a
// Q64.96 value can exceed float64's usable range before the final divide.
func SqrtPriceX96ToFloat(sqrtPriceX96 *big.Int) *big.Float {
	if sqrtPriceX96 == nil || sqrtPriceX96.Sign() == 0 {
		return new(big.Float)
	}
	ratio := new(big.Float).SetInt(sqrtPriceX96)
	q96 := new(big.Float).SetMantExp(big.NewFloat(1), 96)
	ratio.Quo(ratio, q96)
	return ratio.Mul(ratio, ratio)
}

// DecimalAdjust multiplies price by 10^(decimals0-decimals1), the scaling
// needed whenever two tokens of differing decimals are compared.
func DecimalAdjust(price float64, decimals0, decimals1 uint8) float64 {
	exp := int(decimals0) - int(decimals1)
	return price * tenPow(exp)
}

func tenPow(exp int) float64 {
	f := new(big.Float).SetInt64(1)
	ten := new(big.Float).SetInt64(10)
	if exp >= 0 {
		for i := 0; i < exp; i++ {
			f.Mul(f, ten)
		}
	} else {
		for i := 0; i < -exp; i++ {
			f.Quo(f, ten)
		}
	}
	out, _ := f.Float64()
	return out
}

// U256FromBigInt converts a *big.Int (as returned by go-ethereum ABI
// unpacking) into a *uint256.Int, clamping negative inputs to zero since
// every on-chain quantity this engine handles is unsigned.
func U256FromBigInt(v *big.Int) *uint256.Int {
	out := new(uint256.Int)
	if v == nil || v.Sign() < 0 {
		return out
	}
	out.SetFromBig(v)
	return out
}
