package dex

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/holiman/uint256"

	"github.com/shadowline-labs/monadarb/internal/bigmath"
	"github.com/shadowline-labs/monadarb/internal/multicall"
	"github.com/shadowline-labs/monadarb/internal/token"
	"github.com/shadowline-labs/monadarb/pkg/contractclient"
)

// MinNormalizedLiquidity is the discovery-time floor applied to V3-style
// concentrated liquidity after dividing by 1000 (mirroring
// pool.Pool.HasSufficientLiquidityNormalized). V3's L is not a reserve
// quantity, so the quoter remains the only reliable feasibility check; this
// threshold only prunes pools with effectively no liquidity at all.
var MinNormalizedLiquidity = uint256.NewInt(1000)

// V3Client adapts constant-fee-tier concentrated-liquidity DEXes (Uniswap
// V3, PancakeSwap V3, and lookalikes) to the Adapter interface. The same
// struct serves both VariantV3ConstantFee and VariantV3Variant; only the
// addresses, fee tiers and variant tag passed to NewV3Client differ.
type V3Client struct {
	eth      *ethclient.Client
	factory  contractclient.ContractClient
	quoter   contractclient.ContractClient
	poolABI  abi.ABI
	batcher  *multicall.Batcher
	variant  Variant
	feeTiers []uint32
}

// NewV3Client builds a V3-family adapter bound to factory and quoter,
// batching discovery-time reads through batcher.
func NewV3Client(eth *ethclient.Client, factory, quoter common.Address, feeTiers []uint32, variant Variant, batcher *multicall.Batcher) *V3Client {
	return &V3Client{
		eth:      eth,
		factory:  contractclient.NewContractClient(eth, factory, mustParseABI(v3FactoryABI)),
		quoter:   contractclient.NewContractClient(eth, quoter, mustParseABI(v3QuoterV2ABI)),
		poolABI:  mustParseABI(v3PoolABI),
		batcher:  batcher,
		variant:  variant,
		feeTiers: feeTiers,
	}
}

func (c *V3Client) Variant() Variant { return c.variant }

type v3Candidate struct {
	t0, t1 token.Token
	fee    uint32
}

// Enumerate walks every unordered token pair across every configured fee
// tier, batching both the factory.getPool lookups and the per-pool
// liquidity/slot0 reads through a single Batcher.Aggregate3 round trip each,
// keeping only pools that exist, are initialized, and clear the normalized
// liquidity floor. L is concentrated liquidity, not a reserve — the quoter
// remains the authority on whether a given swap size is actually feasible.
func (c *V3Client) Enumerate(ctx context.Context, tokens []token.Token) ([]PoolInfo, error) {
	var candidates []v3Candidate
	for i := 0; i < len(tokens); i++ {
		for j := i + 1; j < len(tokens); j++ {
			t0, t1 := token.Sorted(tokens[i], tokens[j])
			for _, fee := range c.feeTiers {
				candidates = append(candidates, v3Candidate{t0: t0, t1: t1, fee: fee})
			}
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	addrs, err := c.resolvePoolAddresses(ctx, candidates)
	if err != nil {
		return nil, err
	}

	var liveCandidates []v3Candidate
	var liveAddrs []common.Address
	for i, addr := range addrs {
		if addr == (common.Address{}) {
			continue
		}
		liveCandidates = append(liveCandidates, candidates[i])
		liveAddrs = append(liveAddrs, addr)
	}
	if len(liveAddrs) == 0 {
		return nil, nil
	}

	states, err := c.batchPoolState(ctx, liveAddrs)
	if err != nil {
		return nil, err
	}

	var found []PoolInfo
	for i, cand := range liveCandidates {
		state := states[i]
		if state.liquidity == nil || state.sqrtPriceX96 == nil || state.liquidity.IsZero() {
			continue
		}
		if !poolPriceValid(state.sqrtPriceX96, cand.t0.Decimals, cand.t1.Decimals) {
			continue
		}
		normalized := new(uint256.Int).Div(state.liquidity, uint256.NewInt(1000))
		if normalized.Cmp(MinNormalizedLiquidity) < 0 {
			continue
		}

		found = append(found, PoolInfo{
			Address:      liveAddrs[i],
			Token0:       cand.t0,
			Token1:       cand.t1,
			FeeRaw:       cand.fee,
			Variant:      c.variant,
			Liquidity:    state.liquidity,
			SqrtPriceX96: state.sqrtPriceX96,
		})
	}

	return found, nil
}

// resolvePoolAddresses batches factory.getPool across every candidate not
// already resolved in the batcher's per-poll address cache.
func (c *V3Client) resolvePoolAddresses(ctx context.Context, candidates []v3Candidate) ([]common.Address, error) {
	addrs := make([]common.Address, len(candidates))
	var pending []int
	var calls []multicall.Call3

	for i, cand := range candidates {
		if addr, ok := c.batcher.CachedPairAddress(cand.t0.Address, cand.t1.Address, cand.fee); ok {
			addrs[i] = addr
			continue
		}

		data, err := c.factory.Abi().Pack("getPool", cand.t0.Address, cand.t1.Address, big.NewInt(int64(cand.fee)))
		if err != nil {
			return nil, fmt.Errorf("v3 pack getPool: %w", err)
		}
		pending = append(pending, i)
		calls = append(calls, multicall.Call3{Target: c.factory.ContractAddress(), AllowFailure: true, CallData: data})
	}

	if len(calls) == 0 {
		return addrs, nil
	}

	results, err := c.batcher.Aggregate3(ctx, calls)
	if err != nil {
		return nil, fmt.Errorf("v3 batch getPool: %w", err)
	}

	for k, res := range results {
		i := pending[k]
		if !res.Success {
			continue
		}
		values, err := c.factory.Abi().Unpack("getPool", res.ReturnData)
		if err != nil {
			continue
		}
		addr, ok := values[0].(common.Address)
		if !ok || addr == (common.Address{}) {
			continue
		}
		addrs[i] = addr
		c.batcher.StorePairAddress(candidates[i].t0.Address, candidates[i].t1.Address, candidates[i].fee, addr)
	}
	return addrs, nil
}

type v3State struct {
	liquidity    *uint256.Int
	sqrtPriceX96 *uint256.Int
}

// batchPoolState reads liquidity() and slot0() for every resolved pool
// address in one Aggregate3 round trip (two sub-calls per pool).
func (c *V3Client) batchPoolState(ctx context.Context, addrs []common.Address) ([]v3State, error) {
	liqData, err := c.poolABI.Pack("liquidity")
	if err != nil {
		return nil, fmt.Errorf("v3 pack liquidity: %w", err)
	}
	slot0Data, err := c.poolABI.Pack("slot0")
	if err != nil {
		return nil, fmt.Errorf("v3 pack slot0: %w", err)
	}

	calls := make([]multicall.Call3, 0, len(addrs)*2)
	for _, addr := range addrs {
		calls = append(calls,
			multicall.Call3{Target: addr, AllowFailure: true, CallData: liqData},
			multicall.Call3{Target: addr, AllowFailure: true, CallData: slot0Data},
		)
	}

	results, err := c.batcher.Aggregate3(ctx, calls)
	if err != nil {
		return nil, fmt.Errorf("v3 batch pool state: %w", err)
	}

	states := make([]v3State, len(addrs))
	for i := range addrs {
		liqRes, slot0Res := results[2*i], results[2*i+1]
		if !liqRes.Success || !slot0Res.Success {
			continue
		}

		liqValues, err := c.poolABI.Unpack("liquidity", liqRes.ReturnData)
		if err != nil {
			continue
		}
		slot0Values, err := c.poolABI.Unpack("slot0", slot0Res.ReturnData)
		if err != nil {
			continue
		}

		states[i] = v3State{
			liquidity:    bigmath.U256FromBigInt(liqValues[0].(*big.Int)),
			sqrtPriceX96: bigmath.U256FromBigInt(slot0Values[0].(*big.Int)),
		}
	}
	return states, nil
}

// QuoteExactIn prices one hop via IQuoterV2.quoteExactInputSingle.
// quoteExactInputSingle is a non-view function on-chain (it reverts to
// surface its return data), so it must be invoked with eth_call just like
// a view call; ContractClient.Call does exactly that regardless of the
// ABI's declared mutability.
func (c *V3Client) QuoteExactIn(ctx context.Context, p PoolInfo, tokenIn common.Address, amountIn *uint256.Int) (Quote, error) {
	tokenOut := p.Token1.Address
	if tokenIn == p.Token1.Address {
		tokenOut = p.Token0.Address
	}

	params := struct {
		TokenIn           common.Address
		TokenOut          common.Address
		AmountIn          *big.Int
		Fee               *big.Int
		SqrtPriceLimitX96 *big.Int
	}{
		TokenIn:           tokenIn,
		TokenOut:          tokenOut,
		AmountIn:          amountIn.ToBig(),
		Fee:               big.NewInt(int64(p.FeeRaw)),
		SqrtPriceLimitX96: big.NewInt(0),
	}

	out, err := c.quoter.Call(nil, "quoteExactInputSingle", params)
	if err != nil {
		return Quote{}, fmt.Errorf("v3 quoteExactInputSingle: %w", err)
	}

	amountOut := bigmath.U256FromBigInt(out[0].(*big.Int))
	sqrtPriceAfter := bigmath.U256FromBigInt(out[1].(*big.Int))
	gasEstimate := out[3].(*big.Int).Uint64()

	return Quote{
		AmountOut:      amountOut,
		GasEstimate:    gasEstimate,
		SqrtPriceAfter: sqrtPriceAfter,
		FeeBps:         p.FeeRaw / 100,
	}, nil
}
