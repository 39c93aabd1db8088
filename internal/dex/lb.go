package dex

import (
	"context"
	"fmt"
	"math"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/holiman/uint256"

	"github.com/shadowline-labs/monadarb/internal/bigmath"
	"github.com/shadowline-labs/monadarb/internal/multicall"
	"github.com/shadowline-labs/monadarb/internal/token"
	"github.com/shadowline-labs/monadarb/pkg/contractclient"
)

// LBBinSteps are the bin-step tiers LFJ's factory actually deploys;
// anything else never resolves to a pair.
var LBBinSteps = []uint32{1, 2, 5, 10, 15, 20}

// MinLBReserve is the discovery-time floor on reserveX+reserveY. Unlike
// V3's concentrated liquidity, LB reserves ARE spendable token quantities,
// so this threshold is compared directly rather than normalized.
var MinLBReserve = uint256.NewInt(0)

// twoPow96 is 2^96, used to convert the active bin's decimal price into
// its sqrtPriceX96 equivalent.
var twoPow96 = new(big.Float).SetFloat64(math.Pow(2, 96))

// lbSwapGasEstimate is the fixed per-hop gas figure for an LB swap:
// getSwapOut simulates the swap but exposes no gas estimate, so hops
// through an LB pair are costed at this flat amount.
const lbSwapGasEstimate = 150_000

// LBClient adapts LFJ-style liquidity-book pools (bin-stepped, per-bin
// reserves, dynamic per-swap fee) to the Adapter interface.
type LBClient struct {
	eth      *ethclient.Client
	factory  contractclient.ContractClient
	pairABI  contractclient.ContractClient
	batcher  *multicall.Batcher
	binSteps []uint32
}

// NewLBClient builds a liquidity-book adapter bound to factory, batching
// discovery-time pair reads through batcher.
func NewLBClient(eth *ethclient.Client, factory common.Address, binSteps []uint32, batcher *multicall.Batcher) *LBClient {
	return &LBClient{
		eth:      eth,
		factory:  contractclient.NewContractClient(eth, factory, mustParseABI(lbFactoryABI)),
		pairABI:  contractclient.NewContractClient(eth, common.Address{}, mustParseABI(lbPairABI)),
		batcher:  batcher,
		binSteps: binSteps,
	}
}

func (c *LBClient) Variant() Variant { return VariantLiquidityBook }

type lbCandidate struct {
	t0, t1  token.Token
	binStep uint32
}

// Enumerate walks every unordered token pair across every configured bin
// step, keeping pairs the factory reports as routable whose combined
// reserveX+reserveY exceeds MinLBReserve (one side may be empty), and
// priced via the active bin's getActiveId /
// getPriceFromId. Pool-level price validity is a discovery-time sanity
// check only: the fee charged on any given swap is dynamic and is always
// re-read from getSwapOut at quote time, never cached here.
func (c *LBClient) Enumerate(ctx context.Context, tokens []token.Token) ([]PoolInfo, error) {
	var candidates []lbCandidate
	for i := 0; i < len(tokens); i++ {
		for j := i + 1; j < len(tokens); j++ {
			t0, t1 := token.Sorted(tokens[i], tokens[j])
			for _, binStep := range c.binSteps {
				candidates = append(candidates, lbCandidate{t0: t0, t1: t1, binStep: binStep})
			}
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	addrs, err := c.resolvePairAddresses(ctx, candidates)
	if err != nil {
		return nil, err
	}

	var liveCandidates []lbCandidate
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

	states, err := c.batchPairState(ctx, liveAddrs)
	if err != nil {
		return nil, err
	}

	var found []PoolInfo
	for i, cand := range liveCandidates {
		state := states[i]
		if state.reserveX == nil || state.reserveY == nil || state.activeID == nil || state.priceX128 == nil {
			continue
		}
		total := new(uint256.Int).Add(state.reserveX, state.reserveY)
		if total.Cmp(MinLBReserve) <= 0 {
			continue
		}

		sqrtPriceX96 := lbSqrtPriceX96(state.priceX128)
		if !poolPriceValid(sqrtPriceX96, cand.t0.Decimals, cand.t1.Decimals) {
			continue
		}

		found = append(found, PoolInfo{
			Address:      liveAddrs[i],
			Token0:       cand.t0,
			Token1:       cand.t1,
			FeeRaw:       cand.binStep * 100, // nominal fee; actual fee is dynamic per swap
			Variant:      VariantLiquidityBook,
			BinStep:      cand.binStep,
			Liquidity:    total,
			SqrtPriceX96: sqrtPriceX96,
		})
	}

	return found, nil
}

// lbSqrtPriceX96 converts a Q128.128 getPriceFromId result into its
// sqrtPriceX96 equivalent: sqrt(price) * 2^96.
func lbSqrtPriceX96(priceX128 *uint256.Int) *uint256.Int {
	price := bigmath.Q128ToFloat64(priceX128)
	if price <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return uint256.NewInt(0)
	}
	sqrtPrice := math.Sqrt(price)
	scaled := new(big.Float).Mul(big.NewFloat(sqrtPrice), twoPow96)
	asInt, _ := scaled.Int(nil)
	if asInt == nil || asInt.Sign() <= 0 {
		return uint256.NewInt(0)
	}
	u, overflow := uint256.FromBig(asInt)
	if overflow {
		return uint256.NewInt(0)
	}
	return u
}

func (c *LBClient) resolvePairAddresses(ctx context.Context, candidates []lbCandidate) ([]common.Address, error) {
	addrs := make([]common.Address, len(candidates))
	var pending []int
	var calls []multicall.Call3

	for i, cand := range candidates {
		if addr, ok := c.batcher.CachedPairAddress(cand.t0.Address, cand.t1.Address, cand.binStep); ok {
			addrs[i] = addr
			continue
		}

		data, err := c.factory.Abi().Pack("getLBPairInformation", cand.t0.Address, cand.t1.Address, big.NewInt(int64(cand.binStep)))
		if err != nil {
			return nil, fmt.Errorf("lb pack getLBPairInformation: %w", err)
		}
		pending = append(pending, i)
		calls = append(calls, multicall.Call3{Target: c.factory.ContractAddress(), AllowFailure: true, CallData: data})
	}

	if len(calls) == 0 {
		return addrs, nil
	}

	results, err := c.batcher.Aggregate3(ctx, calls)
	if err != nil {
		return nil, fmt.Errorf("lb batch getLBPairInformation: %w", err)
	}

	for k, res := range results {
		i := pending[k]
		if !res.Success {
			continue
		}
		values, err := c.factory.Abi().Unpack("getLBPairInformation", res.ReturnData)
		if err != nil {
			continue
		}
		addr, ok := values[1].(common.Address)
		if !ok || addr == (common.Address{}) {
			continue
		}
		ignoredForRouting, ok := values[3].(bool)
		if !ok || ignoredForRouting {
			continue
		}
		addrs[i] = addr
		c.batcher.StorePairAddress(candidates[i].t0.Address, candidates[i].t1.Address, candidates[i].binStep, addr)
	}
	return addrs, nil
}

type lbState struct {
	reserveX  *uint256.Int
	reserveY  *uint256.Int
	activeID  *uint256.Int
	priceX128 *uint256.Int
}

// batchPairState reads getReserves and getActiveId for every resolved pair
// in one Aggregate3 round trip, then getPriceFromId(activeId) for each in a
// second round trip (the active id for each pair must be known first).
func (c *LBClient) batchPairState(ctx context.Context, addrs []common.Address) ([]lbState, error) {
	reservesData, err := c.pairABI.Abi().Pack("getReserves")
	if err != nil {
		return nil, fmt.Errorf("lb pack getReserves: %w", err)
	}
	activeIDData, err := c.pairABI.Abi().Pack("getActiveId")
	if err != nil {
		return nil, fmt.Errorf("lb pack getActiveId: %w", err)
	}

	calls := make([]multicall.Call3, 0, len(addrs)*2)
	for _, addr := range addrs {
		calls = append(calls,
			multicall.Call3{Target: addr, AllowFailure: true, CallData: reservesData},
			multicall.Call3{Target: addr, AllowFailure: true, CallData: activeIDData},
		)
	}

	results, err := c.batcher.Aggregate3(ctx, calls)
	if err != nil {
		return nil, fmt.Errorf("lb batch reserves/activeId: %w", err)
	}

	states := make([]lbState, len(addrs))
	for i := range addrs {
		reservesRes, activeIDRes := results[2*i], results[2*i+1]
		if !reservesRes.Success || !activeIDRes.Success {
			continue
		}

		reserveValues, err := c.pairABI.Abi().Unpack("getReserves", reservesRes.ReturnData)
		if err != nil {
			continue
		}
		activeIDValues, err := c.pairABI.Abi().Unpack("getActiveId", activeIDRes.ReturnData)
		if err != nil {
			continue
		}

		states[i] = lbState{
			reserveX: bigmath.U256FromBigInt(reserveValues[0].(*big.Int)),
			reserveY: bigmath.U256FromBigInt(reserveValues[1].(*big.Int)),
			activeID: bigmath.U256FromBigInt(activeIDValues[0].(*big.Int)),
		}
	}

	return c.batchPriceFromID(ctx, addrs, states)
}

// batchPriceFromID reads getPriceFromId(activeId) for every pair whose
// active id was resolved above.
func (c *LBClient) batchPriceFromID(ctx context.Context, addrs []common.Address, states []lbState) ([]lbState, error) {
	var pending []int
	var calls []multicall.Call3

	for i, s := range states {
		if s.activeID == nil {
			continue
		}
		data, err := c.pairABI.Abi().Pack("getPriceFromId", new(big.Int).SetUint64(s.activeID.Uint64()))
		if err != nil {
			return nil, fmt.Errorf("lb pack getPriceFromId: %w", err)
		}
		pending = append(pending, i)
		calls = append(calls, multicall.Call3{Target: addrs[i], AllowFailure: true, CallData: data})
	}

	if len(calls) == 0 {
		return states, nil
	}

	results, err := c.batcher.Aggregate3(ctx, calls)
	if err != nil {
		return nil, fmt.Errorf("lb batch getPriceFromId: %w", err)
	}

	for k, res := range results {
		i := pending[k]
		if !res.Success {
			continue
		}
		values, err := c.pairABI.Abi().Unpack("getPriceFromId", res.ReturnData)
		if err != nil {
			continue
		}
		states[i].priceX128 = bigmath.U256FromBigInt(values[0].(*big.Int))
	}
	return states, nil
}

// QuoteExactIn calls getSwapOut on the pair directly, which both simulates
// the swap across whatever bins it crosses and returns the fee actually
// charged — the only correct source for LB fees, since they vary by bin
// occupancy and volatility accumulator state at the moment of the call.
func (c *LBClient) QuoteExactIn(ctx context.Context, p PoolInfo, tokenIn common.Address, amountIn *uint256.Int) (Quote, error) {
	pairClient := contractclient.NewContractClient(c.eth, p.Address, mustParseABI(lbPairABI))

	swapForY := tokenIn == p.Token0.Address

	out, err := pairClient.Call(nil, "getSwapOut", amountIn.ToBig(), swapForY)
	if err != nil {
		return Quote{}, fmt.Errorf("lb getSwapOut: %w", err)
	}

	amountOut := bigmath.U256FromBigInt(out[1].(*big.Int))
	feeRaw := bigmath.U256FromBigInt(out[2].(*big.Int))

	var feeBps uint32
	if !amountIn.IsZero() {
		// fee is denominated in token-in units; convert to bps of the input.
		feeBpsInt := new(uint256.Int).Mul(feeRaw, uint256.NewInt(10000))
		feeBpsInt.Div(feeBpsInt, amountIn)
		feeBps = uint32(feeBpsInt.Uint64())
	}

	return Quote{
		AmountOut:   amountOut,
		GasEstimate: lbSwapGasEstimate,
		FeeBps:      feeBps,
	}, nil
}
