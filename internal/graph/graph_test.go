package graph

import (
	"math"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shadowline-labs/monadarb/internal/dex"
	"github.com/shadowline-labs/monadarb/internal/pool"
	"github.com/shadowline-labs/monadarb/internal/token"
)

func sqrtPriceX96For(price float64) *uint256.Int {
	sq := new(big.Float).Sqrt(big.NewFloat(price))
	scaled := new(big.Float).Mul(sq, new(big.Float).SetInt(new(big.Int).Lsh(big.NewInt(1), 96)))
	i, _ := scaled.Int(nil)
	out := new(uint256.Int)
	out.SetFromBig(i)
	return out
}

func testPool(price float64, feeRaw uint32) pool.Pool {
	t0 := token.Token{Address: common.HexToAddress("0x01"), Decimals: 18}
	t1 := token.Token{Address: common.HexToAddress("0x02"), Decimals: 18}
	return pool.New(common.HexToAddress("0xP1"), t0, t1, feeRaw, dex.VariantV3ConstantFee, uint256.NewInt(1_000_000), sqrtPriceX96For(price))
}

// weight + ln(effective_price) must vanish within f64 tolerance.
func TestBuildEdgeWeightMatchesNegativeLogPrice(t *testing.T) {
	p := testPool(1.2, 3000)
	g := Build([]pool.Pool{p})

	edges := g.Edges(p.Token0)
	require.Len(t, edges, 1)
	e := edges[0]
	assert.InDelta(t, 0.0, e.Weight+math.Log(e.EffectivePrice), 1e-9)
}

func TestBuildCreatesTwoDirectedEdgesPerPool(t *testing.T) {
	p := testPool(1.0, 0)
	g := Build([]pool.Pool{p})

	assert.Len(t, g.Edges(p.Token0), 1)
	assert.Len(t, g.Edges(p.Token1), 1)
	assert.Len(t, g.Nodes, 2)
}

func TestEmptyPoolSetYieldsEmptyGraph(t *testing.T) {
	g := Build(nil)
	assert.Empty(t, g.Nodes)
	_, ok := g.IndexOf(token.Token{})
	assert.False(t, ok)
}

func TestBuildIsDeterministicAcrossRebuilds(t *testing.T) {
	p := testPool(1.3, 3000)
	g1 := Build([]pool.Pool{p})
	g2 := Build([]pool.Pool{p})

	assert.ElementsMatch(t, g1.Nodes, g2.Nodes)
	assert.Equal(t, len(g1.Edges(p.Token0)), len(g2.Edges(p.Token0)))
}

func TestIndexOfUnknownTokenIsAbsent(t *testing.T) {
	g := Build([]pool.Pool{testPool(1.0, 0)})
	_, ok := g.IndexOf(token.Token{Address: common.HexToAddress("0xdead")})
	assert.False(t, ok)
}
