// Package pool implements the canonical pool representation shared by every
// DEX adapter: address, token pair, fee, liquidity, and the derived price
// fields the graph and simulation layers consume.
package pool

import (
	"math"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/shadowline-labs/monadarb/internal/bigmath"
	"github.com/shadowline-labs/monadarb/internal/dex"
	"github.com/shadowline-labs/monadarb/internal/token"
)

// PriceEpsilon is the default round-trip tolerance for price_0_to_1 *
// price_1_to_0 ≈ 1.
const PriceEpsilon = 0.01

// minPrice and maxPrice bound a "valid" price: 1e-18 < price < 1e18.
const (
	minPrice = 1e-18
	maxPrice = 1e18
)

// Pool is the canonical, immutable-per-poll representation of one AMM pool.
// Token0 always sorts before Token1 (byte-lexicographic address order).
type Pool struct {
	Address      common.Address
	Token0       token.Token
	Token1       token.Token
	FeeRaw       uint32 // hundredths of a bp; 1bp = 100 raw units
	Dex          dex.Variant
	Liquidity    *uint256.Int // V3-style: concentrated-liquidity L, not a reserve
	SqrtPriceX96 *uint256.Int
	Decimals0    uint8
	Decimals1    uint8
}

// New builds a Pool, reordering token0/token1 into canonical order if the
// caller passed them reversed.
func New(address common.Address, t0, t1 token.Token, feeRaw uint32, variant dex.Variant, liquidity, sqrtPriceX96 *uint256.Int) Pool {
	a, b := token.Sorted(t0, t1)
	return Pool{
		Address:      address,
		Token0:       a,
		Token1:       b,
		FeeRaw:       feeRaw,
		Dex:          variant,
		Liquidity:    liquidity,
		SqrtPriceX96: sqrtPriceX96,
		Decimals0:    a.Decimals,
		Decimals1:    b.Decimals,
	}
}

// Price0to1 returns (sqrtPriceX96/2^96)^2 scaled by 10^(decimals0-decimals1).
func (p Pool) Price0to1() float64 {
	if p.SqrtPriceX96 == nil || p.SqrtPriceX96.IsZero() {
		return 0
	}
	ratio := bigmath.SqrtPriceX96ToFloat(p.SqrtPriceX96.ToBig())
	f, _ := ratio.Float64()
	return bigmath.DecimalAdjust(f, p.Decimals0, p.Decimals1)
}

// Price1to0 is the reciprocal of Price0to1.
func (p Pool) Price1to0() float64 {
	p01 := p.Price0to1()
	if p01 == 0 {
		return 0
	}
	return 1 / p01
}

// EffectivePrice0to1 deducts the pool's swap fee from Price0to1.
func (p Pool) EffectivePrice0to1() float64 {
	return p.Price0to1() * (1 - float64(p.FeeRaw)/1_000_000)
}

// EffectivePrice1to0 deducts the pool's swap fee from Price1to0.
func (p Pool) EffectivePrice1to0() float64 {
	return p.Price1to0() * (1 - float64(p.FeeRaw)/1_000_000)
}

// IsActive reports whether the pool has been initialized (non-zero sqrt price).
func (p Pool) IsActive() bool {
	return p.SqrtPriceX96 != nil && !p.SqrtPriceX96.IsZero()
}

// IsPriceValid enforces finiteness and the magnitude bounds above, plus
// the round-trip check price_0_to_1 * price_1_to_0 ∈ [1-ε, 1+ε].
func (p Pool) IsPriceValid() bool {
	price := p.Price0to1()
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return false
	}
	if price <= minPrice || price >= maxPrice {
		return false
	}
	roundTrip := price * p.Price1to0()
	return roundTrip >= 1-PriceEpsilon && roundTrip <= 1+PriceEpsilon
}

// HasSufficientLiquidity reports whether Liquidity meets min, compared
// directly (reserve-style quantities, e.g. liquidity-book pools).
func (p Pool) HasSufficientLiquidity(min *uint256.Int) bool {
	if p.Liquidity == nil {
		return false
	}
	return p.Liquidity.Cmp(min) >= 0
}

// HasSufficientLiquidityNormalized divides Liquidity by 1000 before
// comparing, making V3-style concentrated-liquidity L values commensurable
// with token-quantity thresholds.
func (p Pool) HasSufficientLiquidityNormalized(min *uint256.Int) bool {
	if p.Liquidity == nil {
		return false
	}
	normalized := new(uint256.Int).Div(p.Liquidity, uint256.NewInt(1000))
	return normalized.Cmp(min) >= 0
}

// OtherToken returns the token on the opposite side of in, or false if in is
// not one of this pool's two tokens.
func (p Pool) OtherToken(in token.Token) (token.Token, bool) {
	switch {
	case in.Equal(p.Token0):
		return p.Token1, true
	case in.Equal(p.Token1):
		return p.Token0, true
	default:
		return token.Token{}, false
	}
}

// ZeroForOne reports whether swapping tokenIn for the pool's other token
// moves from token0 to token1.
func (p Pool) ZeroForOne(tokenIn token.Token) bool {
	return tokenIn.Equal(p.Token0)
}
