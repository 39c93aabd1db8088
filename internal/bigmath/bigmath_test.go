package bigmath

import (
	"math"
	"math/big"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
)

func TestU256ToFloat64Zero(t *testing.T) {
	assert.Equal(t, float64(0), U256ToFloat64(nil))
	assert.Equal(t, float64(0), U256ToFloat64(new(uint256.Int)))
}

func TestU256ToFloat64SmallExact(t *testing.T) {
	v := uint256.NewInt(123456789)
	assert.Equal(t, float64(123456789), U256ToFloat64(v))
}

func TestU256ToFloat64RoundTripLargeMagnitude(t *testing.T) {
	// 2^200 plus a low-order value far below float64 resolution at that
	// magnitude, exercising the shift-then-scale path.
	base := new(big.Int).Lsh(big.NewInt(1), 200)
	extra := big.NewInt(0)
	extra.SetString("123456789012345", 10)
	big200 := new(big.Int).Add(base, extra)

	v, overflow := uint256.FromBig(big200)
	assert.False(t, overflow)

	f := U256ToFloat64(v)
	want, _ := new(big.Float).SetInt(big200).Float64()

	// within a relative 1e-12 of the big.Float reference conversion
	assert.InEpsilon(t, want, f, 1e-12)
}

func TestQ128ToFloat64Zero(t *testing.T) {
	assert.Equal(t, float64(0), Q128ToFloat64(nil))
}

func TestQ128ToFloat64OneHalf(t *testing.T) {
	// 0.5 * 2^128
	half := new(uint256.Int).Lsh(uint256.NewInt(1), 127)
	assert.InEpsilon(t, 0.5, Q128ToFloat64(half), 1e-12)
}

func TestQ128ToFloat64LargeMagnitude(t *testing.T) {
	// price = 14.49, represented as Q128.128
	price := new(big.Float).SetFloat64(14.49)
	scale := new(big.Float).SetMantExp(big.NewFloat(1), 128)
	scaled := new(big.Float).Mul(price, scale)
	scaledInt, _ := scaled.Int(nil)

	v, overflow := uint256.FromBig(scaledInt)
	assert.False(t, overflow)

	got := Q128ToFloat64(v)
	assert.InEpsilon(t, 14.49, got, 1e-6)
}

func TestSqrtPriceX96ToFloat(t *testing.T) {
	// sqrtPriceX96 for price = 1.0 is exactly 2^96
	sqrtP := new(big.Int).Lsh(big.NewInt(1), 96)
	price := SqrtPriceX96ToFloat(sqrtP)
	f, _ := price.Float64()
	assert.InDelta(t, 1.0, f, 1e-9)
}

func TestSqrtPriceX96ToFloatZero(t *testing.T) {
	price := SqrtPriceX96ToFloat(big.NewInt(0))
	f, _ := price.Float64()
	assert.Equal(t, float64(0), f)
}

func TestDecimalAdjust(t *testing.T) {
	got := DecimalAdjust(1.0, 18, 6)
	assert.InEpsilon(t, math.Pow(10, 12), got, 1e-9)
}

func TestU256FromBigIntNegativeClampsToZero(t *testing.T) {
	v := U256FromBigInt(big.NewInt(-5))
	assert.True(t, v.IsZero())
}
