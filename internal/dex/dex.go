// Package dex defines the DEX-variant tagged union and the adapter
// interface each family implements for pool discovery and quoting.
package dex

import (
	"context"
	"errors"
	"math"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/shadowline-labs/monadarb/internal/bigmath"
	"github.com/shadowline-labs/monadarb/internal/token"
)

// Variant tags which DEX family a pool belongs to. Dispatch to
// discovery/state-read/quote/swap-encode stays a flat switch over this
// enum rather than an interface hierarchy, keeping each family's encoding
// local to its own file.
type Variant uint8

const (
	VariantV3ConstantFee Variant = iota
	VariantV3Variant
	VariantLiquidityBook
	VariantV4Singleton
	VariantKuru
)

func (v Variant) String() string {
	switch v {
	case VariantV3ConstantFee:
		return "v3-constant-fee"
	case VariantV3Variant:
		return "v3-variant"
	case VariantLiquidityBook:
		return "liquidity-book"
	case VariantV4Singleton:
		return "v4-singleton"
	case VariantKuru:
		return "kuru"
	default:
		return "unknown"
	}
}

// ErrNotImplemented is returned by the Kuru adapter's QuoteExactIn; Kuru is
// declared but has no working integration (its Enumerate reports no pools).
var ErrNotImplemented = errors.New("dex: not implemented")

// PoolInfo is a discovered pool: enough to read state and build quote/swap
// calldata against, plus the raw liquidity and sqrt-price-x96 fields the
// discovery layer needs to build pool.Pool (and from there graph.Build)
// without every adapter depending on the pool package directly.
type PoolInfo struct {
	Address      common.Address
	Token0       token.Token
	Token1       token.Token
	FeeRaw       uint32 // hundredths of a bp
	Variant      Variant
	BinStep      uint32 // liquidity-book only; 0 otherwise
	TickSpacing  int32  // v4-singleton only; part of the pool key
	PoolID       [32]byte
	Liquidity    *uint256.Int // V3/V4: concentrated-liquidity L; LB: reserveX+reserveY
	SqrtPriceX96 *uint256.Int
}

// Quote is the result of a single-hop exact-input quote.
type Quote struct {
	AmountOut      *uint256.Int
	GasEstimate    uint64
	SqrtPriceAfter *uint256.Int
	FeeBps         uint32 // actual fee charged, read from the quoter response
}

// Adapter is implemented once per DEX family.
type Adapter interface {
	// Variant identifies which family this adapter serves.
	Variant() Variant

	// Enumerate discovers pools among the given tokens (and, for families
	// with a fee/bin-step dimension, the given fee tiers or bin steps),
	// returning only initialized pools with token0 < token1.
	Enumerate(ctx context.Context, tokens []token.Token) ([]PoolInfo, error)

	// QuoteExactIn prices a single hop through a pool discovered by
	// Enumerate.
	QuoteExactIn(ctx context.Context, pool PoolInfo, tokenIn common.Address, amountIn *uint256.Int) (Quote, error)
}

// poolPriceValid enforces the finiteness and magnitude bounds a pool's
// price must satisfy, directly off sqrtPriceX96 rather than via a
// constructed pool.Pool: the dex package cannot import internal/pool (pool
// already imports dex for the Variant tag), so every adapter's discovery-time
// validity check shares this helper instead.
func poolPriceValid(sqrtPriceX96 *uint256.Int, decimals0, decimals1 uint8) bool {
	if sqrtPriceX96 == nil || sqrtPriceX96.IsZero() {
		return false
	}
	ratio := bigmath.SqrtPriceX96ToFloat(sqrtPriceX96.ToBig())
	price, _ := ratio.Float64()
	price = bigmath.DecimalAdjust(price, decimals0, decimals1)
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return false
	}
	return price > 1e-18 && price < 1e18
}
