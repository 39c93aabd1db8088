package simulation

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shadowline-labs/monadarb/internal/cycle"
	"github.com/shadowline-labs/monadarb/internal/dex"
	"github.com/shadowline-labs/monadarb/internal/token"
)

type fakeAdapter struct {
	amountOut   *uint256.Int
	gasEstimate uint64
	feeBps      uint32
	err         error
}

func (f fakeAdapter) Variant() dex.Variant { return dex.VariantV3ConstantFee }

func (f fakeAdapter) Enumerate(ctx context.Context, tokens []token.Token) ([]dex.PoolInfo, error) {
	return nil, nil
}

func (f fakeAdapter) QuoteExactIn(ctx context.Context, p dex.PoolInfo, tokenIn common.Address, amountIn *uint256.Int) (dex.Quote, error) {
	if f.err != nil {
		return dex.Quote{}, f.err
	}
	return dex.Quote{AmountOut: f.amountOut, GasEstimate: f.gasEstimate, FeeBps: f.feeBps}, nil
}

type fakeLookup struct {
	pools     map[common.Address]dex.PoolInfo
	adapters  map[common.Address]dex.Adapter
	liquidity map[common.Address]*uint256.Int
}

func (l fakeLookup) Lookup(addr common.Address) (dex.PoolInfo, dex.Adapter, bool) {
	p, ok := l.pools[addr]
	if !ok {
		return dex.PoolInfo{}, nil, false
	}
	return p, l.adapters[addr], true
}

func (l fakeLookup) Liquidity(addr common.Address) (*uint256.Int, bool) {
	liq, ok := l.liquidity[addr]
	return liq, ok
}

type fakeGasPricer struct {
	price uint64
	err   error
}

func (g fakeGasPricer) SuggestGasPrice(ctx context.Context) (uint64, error) {
	return g.price, g.err
}

func mkTokens(addrs ...string) []token.Token {
	toks := make([]token.Token, len(addrs))
	for i, a := range addrs {
		toks[i] = token.Token{Address: common.HexToAddress(a)}
	}
	return toks
}

func oneHopCycle(pool common.Address, a, b token.Token) cycle.ArbitrageCycle {
	return cycle.ArbitrageCycle{
		Path:  []token.Token{a, b, a},
		Pools: []common.Address{pool, pool},
		Dexes: []dex.Variant{dex.VariantV3ConstantFee, dex.VariantV3ConstantFee},
	}
}

func TestSimulateCycleProfitable(t *testing.T) {
	pool := common.HexToAddress("0x1")
	toks := mkTokens("0xAAA", "0xBBB")
	c := oneHopCycle(pool, toks[0], toks[1])

	lookup := fakeLookup{
		pools:     map[common.Address]dex.PoolInfo{pool: {Address: pool, Variant: dex.VariantV3ConstantFee}},
		adapters:  map[common.Address]dex.Adapter{pool: fakeAdapter{amountOut: uint256.NewInt(1_050_000_000_000_000_000), gasEstimate: 100_000, feeBps: 30}},
		liquidity: map[common.Address]*uint256.Int{pool: uint256.NewInt(5_000_000)},
	}

	sim := New(lookup, fakeGasPricer{price: 1_000_000_000})
	input := uint256.NewInt(1_000_000_000_000_000_000)

	res, err := sim.SimulateCycle(context.Background(), c, input)
	require.NoError(t, err)
	assert.Empty(t, res.RejectionReason)
	assert.Equal(t, ConfidenceMedium, res.Confidence)
}

func TestSimulateCycleRejectsHighGas(t *testing.T) {
	pool := common.HexToAddress("0x1")
	toks := mkTokens("0xAAA", "0xBBB")
	c := oneHopCycle(pool, toks[0], toks[1])

	lookup := fakeLookup{
		pools:     map[common.Address]dex.PoolInfo{pool: {Address: pool}},
		adapters:  map[common.Address]dex.Adapter{pool: fakeAdapter{amountOut: uint256.NewInt(1_050_000), gasEstimate: 2_000_000, feeBps: 30}},
		liquidity: map[common.Address]*uint256.Int{pool: uint256.NewInt(5_000_000)},
	}

	sim := New(lookup, fakeGasPricer{price: 1_000_000_000})
	input := uint256.NewInt(1_000_000)

	res, err := sim.SimulateCycle(context.Background(), c, input)
	require.NoError(t, err)
	assert.Contains(t, res.RejectionReason, "Gas estimate too high")
	assert.Equal(t, ConfidenceFailed, res.Confidence)
}

func TestSimulateCycleRejectsBadQuote(t *testing.T) {
	pool := common.HexToAddress("0x1")
	toks := mkTokens("0xAAA", "0xBBB")
	c := oneHopCycle(pool, toks[0], toks[1])

	lookup := fakeLookup{
		pools:     map[common.Address]dex.PoolInfo{pool: {Address: pool}},
		adapters:  map[common.Address]dex.Adapter{pool: fakeAdapter{amountOut: uint256.NewInt(100), gasEstimate: 100_000, feeBps: 30}},
		liquidity: map[common.Address]*uint256.Int{pool: uint256.NewInt(5_000_000)},
	}

	sim := New(lookup, fakeGasPricer{price: 1_000_000_000})
	input := uint256.NewInt(1_000_000)

	res, err := sim.SimulateCycle(context.Background(), c, input)
	require.NoError(t, err)
	assert.Contains(t, res.RejectionReason, "Gross output too low")
}

func TestSimulateCycleLowConfidenceOnZeroLiquidity(t *testing.T) {
	pool := common.HexToAddress("0x1")
	toks := mkTokens("0xAAA", "0xBBB")
	c := oneHopCycle(pool, toks[0], toks[1])

	lookup := fakeLookup{
		pools:     map[common.Address]dex.PoolInfo{pool: {Address: pool}},
		adapters:  map[common.Address]dex.Adapter{pool: fakeAdapter{amountOut: uint256.NewInt(1_050_000), gasEstimate: 100_000, feeBps: 30}},
		liquidity: map[common.Address]*uint256.Int{pool: uint256.NewInt(0)},
	}

	sim := New(lookup, fakeGasPricer{price: 1_000_000_000})
	input := uint256.NewInt(1_000_000)

	res, err := sim.SimulateCycle(context.Background(), c, input)
	require.NoError(t, err)
	assert.Equal(t, ConfidenceLow, res.Confidence)
}

func TestSimulateCycleFallsBackOnGasPriceError(t *testing.T) {
	pool := common.HexToAddress("0x1")
	toks := mkTokens("0xAAA", "0xBBB")
	c := oneHopCycle(pool, toks[0], toks[1])

	lookup := fakeLookup{
		pools:     map[common.Address]dex.PoolInfo{pool: {Address: pool}},
		adapters:  map[common.Address]dex.Adapter{pool: fakeAdapter{amountOut: uint256.NewInt(1_050_000), gasEstimate: 100_000, feeBps: 30}},
		liquidity: map[common.Address]*uint256.Int{pool: uint256.NewInt(5_000_000)},
	}

	sim := New(lookup, fakeGasPricer{err: assert.AnError})
	input := uint256.NewInt(1_000_000)

	res, err := sim.SimulateCycle(context.Background(), c, input)
	require.NoError(t, err)
	assert.NotNil(t, res.GasCostWei)
}

func TestSimulateCycleUnknownPool(t *testing.T) {
	pool := common.HexToAddress("0x1")
	toks := mkTokens("0xAAA", "0xBBB")
	c := oneHopCycle(pool, toks[0], toks[1])

	lookup := fakeLookup{pools: map[common.Address]dex.PoolInfo{}, adapters: map[common.Address]dex.Adapter{}, liquidity: map[common.Address]*uint256.Int{}}
	sim := New(lookup, fakeGasPricer{price: 1_000_000_000})

	res, err := sim.SimulateCycle(context.Background(), c, uint256.NewInt(1_000_000))
	require.NoError(t, err)
	assert.Contains(t, res.RejectionReason, "Quote failed")
}
