package dex

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/holiman/uint256"

	"github.com/shadowline-labs/monadarb/internal/bigmath"
	"github.com/shadowline-labs/monadarb/internal/multicall"
	"github.com/shadowline-labs/monadarb/internal/token"
	"github.com/shadowline-labs/monadarb/pkg/contractclient"
)

// DynamicFeeFlag marks a V4 fee value as dynamic (hook-controlled) rather
// than constant; such pools are skipped at discovery because a hook may
// manipulate pricing in ways this engine cannot model.
const DynamicFeeFlag uint32 = 0x800000

// MinV4Liquidity is the discovery-time floor for singleton-pool liquidity:
// a thousand tokens in 18-decimal-scaled units.
var MinV4Liquidity = new(uint256.Int).Mul(uint256.NewInt(1000), uint256.NewInt(1_000_000_000_000_000_000))

// DefaultTickSpacings covers every spacing isValidFeeTickCombo accepts for a
// standard fee tier, for callers that don't configure their own list.
var DefaultTickSpacings = []int32{1, 10, 60, 200}

// poolKeyTupleArgs describes PoolKey for abi.Arguments.Pack, used only to
// compute the keccak256 pool id exactly as the PoolManager does on-chain.
var poolKeyTupleArgs = abi.Arguments{
	{Type: mustType("address")},
	{Type: mustType("address")},
	{Type: mustType("uint24")},
	{Type: mustType("int24")},
	{Type: mustType("address")},
}

func mustType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic("dex: invalid abi type " + t + ": " + err.Error())
	}
	return typ
}

// V4Client adapts Uniswap-V4-style singleton-pool-manager DEXes to the
// Adapter interface via the read-only StateView helper contract. Only
// constant-fee, hookless pools are queried: hooks can rewrite pricing
// arbitrarily, and a dynamic fee can't be priced without simulating the
// hook itself, so both are skipped.
type V4Client struct {
	eth          *ethclient.Client
	stateView    contractclient.ContractClient
	quoter       contractclient.ContractClient
	batcher      *multicall.Batcher
	feeTiers     []uint32
	tickSpacings []int32
}

// NewV4Client builds a V4-family adapter bound to stateView and quoter,
// batching discovery-time StateView reads through batcher.
func NewV4Client(eth *ethclient.Client, stateView, quoter common.Address, feeTiers []uint32, tickSpacings []int32, batcher *multicall.Batcher) *V4Client {
	return &V4Client{
		eth:          eth,
		stateView:    contractclient.NewContractClient(eth, stateView, mustParseABI(v4StateViewABI)),
		quoter:       contractclient.NewContractClient(eth, quoter, mustParseABI(v4QuoterABI)),
		batcher:      batcher,
		feeTiers:     feeTiers,
		tickSpacings: tickSpacings,
	}
}

func (c *V4Client) Variant() Variant { return VariantV4Singleton }

type v4Candidate struct {
	t0, t1      token.Token
	tickSpacing int32
	poolID      [32]byte
}

// Enumerate walks every unordered token pair across every valid fee/tick
// spacing combination, batching getSlot0 for every candidate pool id, then
// getLiquidity for the candidates that passed the slot0 filter, through one
// Aggregate3 round trip each.
// Only hookless pools with a non-zero sqrt price, a constant fee, and
// sufficient liquidity are kept.
func (c *V4Client) Enumerate(ctx context.Context, tokens []token.Token) ([]PoolInfo, error) {
	var candidates []v4Candidate
	for i := 0; i < len(tokens); i++ {
		for j := i + 1; j < len(tokens); j++ {
			t0, t1 := token.Sorted(tokens[i], tokens[j])
			for _, fee := range c.feeTiers {
				for _, spacing := range c.tickSpacings {
					if !isValidFeeTickCombo(fee, spacing) {
						continue
					}
					candidates = append(candidates, v4Candidate{t0: t0, t1: t1, tickSpacing: spacing, poolID: computePoolID(t0.Address, t1.Address, fee, spacing)})
				}
			}
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	slot0s, err := c.batchSlot0(ctx, candidates)
	if err != nil {
		return nil, err
	}

	var liveIdx []int
	for i, s := range slot0s {
		if s.sqrtPriceX96 == nil || s.sqrtPriceX96.IsZero() || isDynamicFee(s.lpFee) {
			continue
		}
		liveIdx = append(liveIdx, i)
	}
	if len(liveIdx) == 0 {
		return nil, nil
	}

	liquidities, err := c.batchLiquidity(ctx, candidates, liveIdx)
	if err != nil {
		return nil, err
	}

	var found []PoolInfo
	for k, i := range liveIdx {
		liquidity := liquidities[k]
		if liquidity == nil || liquidity.IsZero() {
			continue
		}
		cand := candidates[i]
		sqrtPriceX96, lpFee := slot0s[i].sqrtPriceX96, slot0s[i].lpFee

		if !poolPriceValid(sqrtPriceX96, cand.t0.Decimals, cand.t1.Decimals) {
			continue
		}
		if liquidity.Cmp(MinV4Liquidity) < 0 {
			continue
		}

		found = append(found, PoolInfo{
			Address:      common.BytesToAddress(cand.poolID[12:32]),
			Token0:       cand.t0,
			Token1:       cand.t1,
			FeeRaw:       lpFee,
			Variant:      VariantV4Singleton,
			TickSpacing:  cand.tickSpacing,
			PoolID:       cand.poolID,
			Liquidity:    liquidity,
			SqrtPriceX96: sqrtPriceX96,
		})
	}

	return found, nil
}

type v4Slot0 struct {
	sqrtPriceX96 *uint256.Int
	lpFee        uint32
}

func (c *V4Client) batchSlot0(ctx context.Context, candidates []v4Candidate) ([]v4Slot0, error) {
	calls := make([]multicall.Call3, len(candidates))
	for i, cand := range candidates {
		data, err := c.stateView.Abi().Pack("getSlot0", cand.poolID)
		if err != nil {
			return nil, fmt.Errorf("v4 pack getSlot0: %w", err)
		}
		calls[i] = multicall.Call3{Target: c.stateView.ContractAddress(), AllowFailure: true, CallData: data}
	}

	results, err := c.batcher.Aggregate3(ctx, calls)
	if err != nil {
		return nil, fmt.Errorf("v4 batch getSlot0: %w", err)
	}

	out := make([]v4Slot0, len(candidates))
	for i, res := range results {
		if !res.Success {
			continue
		}
		values, err := c.stateView.Abi().Unpack("getSlot0", res.ReturnData)
		if err != nil {
			continue
		}
		out[i] = v4Slot0{
			sqrtPriceX96: bigmath.U256FromBigInt(values[0].(*big.Int)),
			lpFee:        uint32(values[3].(*big.Int).Uint64()),
		}
	}
	return out, nil
}

// batchLiquidity reads getLiquidity only for the candidates in liveIdx
// (those that already passed the slot0 filter), returning results aligned
// to liveIdx rather than to the full candidate list.
func (c *V4Client) batchLiquidity(ctx context.Context, candidates []v4Candidate, liveIdx []int) ([]*uint256.Int, error) {
	calls := make([]multicall.Call3, len(liveIdx))
	for k, i := range liveIdx {
		data, err := c.stateView.Abi().Pack("getLiquidity", candidates[i].poolID)
		if err != nil {
			return nil, fmt.Errorf("v4 pack getLiquidity: %w", err)
		}
		calls[k] = multicall.Call3{Target: c.stateView.ContractAddress(), AllowFailure: true, CallData: data}
	}

	results, err := c.batcher.Aggregate3(ctx, calls)
	if err != nil {
		return nil, fmt.Errorf("v4 batch getLiquidity: %w", err)
	}

	out := make([]*uint256.Int, len(liveIdx))
	for k, res := range results {
		if !res.Success {
			continue
		}
		values, err := c.stateView.Abi().Unpack("getLiquidity", res.ReturnData)
		if err != nil {
			continue
		}
		out[k] = bigmath.U256FromBigInt(values[0].(*big.Int))
	}
	return out, nil
}

func isValidFeeTickCombo(fee uint32, spacing int32) bool {
	switch fee {
	case 100:
		return spacing == 1 || spacing == 10
	case 500:
		return spacing == 10 || spacing == 1
	case 3000:
		return spacing == 60 || spacing == 10
	case 10000:
		return spacing == 200 || spacing == 60
	case 100000:
		return spacing == 200
	default:
		return true
	}
}

func isDynamicFee(fee uint32) bool {
	return fee&DynamicFeeFlag != 0
}

// computePoolID reproduces the PoolManager's pool id: keccak256 of the
// abi-encoded PoolKey struct, with hooks always zeroed (only hookless
// pools are ever queried).
func computePoolID(currency0, currency1 common.Address, fee uint32, tickSpacing int32) [32]byte {
	encoded, err := poolKeyTupleArgs.Pack(
		currency0,
		currency1,
		big.NewInt(int64(fee)),
		big.NewInt(int64(tickSpacing)),
		common.Address{},
	)
	if err != nil {
		// Arguments are compile-time-fixed-shape; packing cannot fail.
		panic("dex: pack v4 pool key: " + err.Error())
	}
	return crypto.Keccak256Hash(encoded)
}

// QuoteExactIn prices one hop via the V4 periphery Quoter, which simulates
// the swap through the PoolManager without needing a signed transaction.
func (c *V4Client) QuoteExactIn(ctx context.Context, p PoolInfo, tokenIn common.Address, amountIn *uint256.Int) (Quote, error) {
	zeroForOne := tokenIn == p.Token0.Address

	type v4PoolKey struct {
		Currency0   common.Address
		Currency1   common.Address
		Fee         *big.Int
		TickSpacing *big.Int
		Hooks       common.Address
	}
	params := struct {
		PoolKey     v4PoolKey
		ZeroForOne  bool
		ExactAmount *big.Int
		HookData    []byte
	}{
		PoolKey: v4PoolKey{
			Currency0:   p.Token0.Address,
			Currency1:   p.Token1.Address,
			Fee:         big.NewInt(int64(p.FeeRaw)),
			TickSpacing: big.NewInt(int64(p.TickSpacing)),
			Hooks:       common.Address{},
		},
		ZeroForOne:  zeroForOne,
		ExactAmount: amountIn.ToBig(),
		HookData:    []byte{},
	}

	out, err := c.quoter.Call(nil, "quoteExactInputSingle", params)
	if err != nil {
		return Quote{}, fmt.Errorf("v4 quoteExactInputSingle: %w", err)
	}

	amountOut := bigmath.U256FromBigInt(out[0].(*big.Int))
	gasEstimate := out[1].(*big.Int).Uint64()

	return Quote{
		AmountOut:   amountOut,
		GasEstimate: gasEstimate,
		FeeBps:      p.FeeRaw / 100,
	}, nil
}
