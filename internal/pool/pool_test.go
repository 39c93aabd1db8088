package pool

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"

	"github.com/shadowline-labs/monadarb/internal/dex"
	"github.com/shadowline-labs/monadarb/internal/token"
)

func sqrtPriceX96For(price float64) *uint256.Int {
	// sqrtPriceX96 = sqrt(price) * 2^96
	sq := new(big.Float).Sqrt(big.NewFloat(price))
	scaled := new(big.Float).Mul(sq, new(big.Float).SetInt(new(big.Int).Lsh(big.NewInt(1), 96)))
	i, _ := scaled.Int(nil)
	out := new(uint256.Int)
	out.SetFromBig(i)
	return out
}

func equalDecimalsPool(price float64, feeRaw uint32) Pool {
	t0 := token.Token{Address: common.HexToAddress("0x1"), Symbol: "A", Decimals: 18}
	t1 := token.Token{Address: common.HexToAddress("0x2"), Symbol: "B", Decimals: 18}
	return New(common.HexToAddress("0xPOOL"), t0, t1, feeRaw, dex.VariantV3ConstantFee, uint256.NewInt(1_000_000), sqrtPriceX96For(price))
}

// |price_0_to_1 * price_1_to_0 - 1| must stay below epsilon.
func TestPriceRoundTripWithinEpsilon(t *testing.T) {
	p := equalDecimalsPool(1.5, 3000)
	roundTrip := p.Price0to1() * p.Price1to0()
	assert.InDelta(t, 1.0, roundTrip, PriceEpsilon)
}

func TestIsPriceValidAcceptsReasonablePrice(t *testing.T) {
	p := equalDecimalsPool(2.0, 3000)
	assert.True(t, p.IsPriceValid())
}

func TestIsPriceValidRejectsZeroSqrtPrice(t *testing.T) {
	t0 := token.Token{Address: common.HexToAddress("0x1"), Decimals: 18}
	t1 := token.Token{Address: common.HexToAddress("0x2"), Decimals: 18}
	p := New(common.HexToAddress("0xPOOL"), t0, t1, 3000, dex.VariantV3ConstantFee, uint256.NewInt(0), uint256.NewInt(0))
	assert.False(t, p.IsActive())
	assert.False(t, p.IsPriceValid())
}

func TestEffectivePriceDeductsFeeInHundredthsOfBp(t *testing.T) {
	// 30bp fee stored as 3000 raw units (hundredths of a bp).
	p := equalDecimalsPool(1.0, 3000)
	assert.InDelta(t, 0.997, p.EffectivePrice0to1(), 1e-9)
}

func TestNewCanonicalizesTokenOrder(t *testing.T) {
	lo := token.Token{Address: common.HexToAddress("0x01")}
	hi := token.Token{Address: common.HexToAddress("0x02")}

	p := New(common.Address{}, hi, lo, 0, dex.VariantV3ConstantFee, uint256.NewInt(1), uint256.NewInt(1))
	assert.Equal(t, lo.Address, p.Token0.Address)
	assert.Equal(t, hi.Address, p.Token1.Address)
}

func TestHasSufficientLiquidity(t *testing.T) {
	p := equalDecimalsPool(1.0, 0)
	p.Liquidity = uint256.NewInt(500)
	assert.True(t, p.HasSufficientLiquidity(uint256.NewInt(100)))
	assert.False(t, p.HasSufficientLiquidity(uint256.NewInt(1000)))
}

func TestHasSufficientLiquidityNormalizedDividesBy1000(t *testing.T) {
	p := equalDecimalsPool(1.0, 0)
	p.Liquidity = uint256.NewInt(500_000)
	assert.True(t, p.HasSufficientLiquidityNormalized(uint256.NewInt(400)))
	assert.False(t, p.HasSufficientLiquidityNormalized(uint256.NewInt(600)))
}

func TestOtherTokenAndZeroForOne(t *testing.T) {
	p := equalDecimalsPool(1.0, 0)
	other, ok := p.OtherToken(p.Token0)
	assert.True(t, ok)
	assert.Equal(t, p.Token1.Address, other.Address)
	assert.True(t, p.ZeroForOne(p.Token0))
	assert.False(t, p.ZeroForOne(p.Token1))

	_, ok = p.OtherToken(token.Token{Address: common.HexToAddress("0xdead")})
	assert.False(t, ok)
}
