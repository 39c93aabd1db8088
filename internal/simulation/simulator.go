package simulation

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/shadowline-labs/monadarb/internal/cycle"
	"github.com/shadowline-labs/monadarb/internal/dex"
	"github.com/shadowline-labs/monadarb/internal/token"
)

// MaxReasonableGas bounds a path's total estimated gas. eth_estimateGas
// returns absurdly large values when the underlying call would revert; a
// typical 2-3 hop swap uses 300-500k gas, so anything above this is
// treated as "the quoter is telling us this would fail", not "this swap
// is just expensive".
const MaxReasonableGas = 1_000_000

// Confidence classifies how much to trust a SimulationResult.
type Confidence uint8

const (
	// ConfidenceHigh would require an eth_call simulation against the
	// actual arb contract; not implemented in this version.
	ConfidenceHigh Confidence = iota
	ConfidenceMedium
	ConfidenceLow
	ConfidenceFailed
)

func (c Confidence) String() string {
	switch c {
	case ConfidenceHigh:
		return "high"
	case ConfidenceMedium:
		return "medium"
	case ConfidenceLow:
		return "low"
	default:
		return "failed"
	}
}

// PathQuote is one hop's QuoteExactIn result plus the request that
// produced it, captured for logging/diagnostics.
type PathQuote struct {
	PoolAddress common.Address
	Dex         dex.Variant
	TokenIn     common.Address
	TokenOut    common.Address
	AmountIn    *uint256.Int
	dex.Quote
}

// LiquidityInfo is a diagnostic-only liquidity reading for one hop; it is
// never used to reject a cycle, since V3-style liquidity is not a reserve
// and the quoter response is the only reliable feasibility signal.
type LiquidityInfo struct {
	PoolAddress    common.Address
	TotalLiquidity *uint256.Int
}

// Result is the full outcome of simulating one cycle at one input amount.
type Result struct {
	Path            []token.Token
	Pools           []common.Address
	Dexes           []dex.Variant
	InputAmount     *uint256.Int
	OutputAmount    *uint256.Int
	GrossProfitBps  int32
	NetProfitBps    int32
	TotalDexFeesBps uint32
	FlashLoanFeeBps uint32
	GasCostWei      *uint256.Int
	GasUnits        uint64
	IsProfitable    bool
	AboveThreshold  bool
	Confidence      Confidence
	BlockNumber     uint64
	ProfitBreakdown ProfitBreakdown
	LiquidityInfo   []LiquidityInfo
	Quotes          []PathQuote
	RejectionReason string
}

// PoolLookup resolves a pool address (as recorded in an ArbitrageCycle) to
// the dex.PoolInfo + Adapter needed to request a quote for it. The
// simulator has no opinion on how pools are indexed; the graph/discovery
// layer owns that.
type PoolLookup interface {
	Lookup(addr common.Address) (dex.PoolInfo, dex.Adapter, bool)
	// Liquidity returns a diagnostic liquidity reading for addr, used only
	// for logging — never a rejection gate.
	Liquidity(addr common.Address) (*uint256.Int, bool)
}

// GasPricer supplies the current network gas price; Simulator falls back
// to a conservative default if it errors.
type GasPricer interface {
	SuggestGasPrice(ctx context.Context) (uint64, error)
}

// BlockNumberer reports the current chain tip, captured once per simulation
// so every hop's quote is attributed to the same block. Optional; a nil
// Blocks leaves Result.BlockNumber zero.
type BlockNumberer interface {
	BlockNumber(ctx context.Context) (uint64, error)
}

const fallbackGasPriceWei = 50_000_000_000 // 50 gwei
const flashLoanGasBuffer = 50_000

// Simulator resolves an ArbitrageCycle's hops into real quotes against the
// node's latest state, applies sanity gates, and runs profit accounting.
type Simulator struct {
	Pools      PoolLookup
	GasPrice   GasPricer
	Blocks     BlockNumberer
	Calculator Calculator
}

// New builds a Simulator using DefaultCalculator.
func New(pools PoolLookup, gasPrice GasPricer) *Simulator {
	return &Simulator{Pools: pools, GasPrice: gasPrice, Calculator: DefaultCalculator()}
}

// SimulateCycle quotes c's hops in order, feeding each hop's output into the
// next hop's input, then runs the sanity gates and profit accounting. Each
// adapter's QuoteExactIn reads the node's latest state when it is called;
// no block is pinned, so hops quoted on either side of a new block see
// different states. Result.BlockNumber is the tip read before the first
// quote.
func (s *Simulator) SimulateCycle(ctx context.Context, c cycle.ArbitrageCycle, inputAmount *uint256.Int) (Result, error) {
	if len(c.Pools) == 0 {
		return Result{}, fmt.Errorf("simulate cycle: empty pool list")
	}

	liquidityInfo := s.checkLiquidity(c.Pools)

	// Captured before the first quote so every hop is attributed to the
	// tip at the moment the path walk began.
	var blockNumber uint64
	if s.Blocks != nil {
		if n, err := s.Blocks.BlockNumber(ctx); err == nil {
			blockNumber = n
		}
	}

	quotes, err := s.getPathQuotes(ctx, c, inputAmount)
	if err != nil {
		return s.rejectedResult(c, inputAmount, liquidityInfo, fmt.Sprintf("Quote failed: %v", err)), nil
	}

	var totalDexFeesBps uint32
	var totalGasEstimate uint64
	for _, q := range quotes {
		totalDexFeesBps += q.FeeBps
		totalGasEstimate += q.GasEstimate
	}

	gasPrice := s.gasPriceOrFallback(ctx)
	gasUnits := totalGasEstimate + flashLoanGasBuffer

	if gasUnits > MaxReasonableGas {
		return s.rejectedResult(c, inputAmount, liquidityInfo, fmt.Sprintf(
			"Gas estimate too high (%d > %d), likely swap would revert", gasUnits, uint64(MaxReasonableGas))), nil
	}

	grossOutput := quotes[len(quotes)-1].AmountOut

	minReasonableOutput := new(uint256.Int).Div(inputAmount, uint256.NewInt(2))
	if grossOutput.Cmp(minReasonableOutput) < 0 {
		lossBps := int32(10000)
		if !grossOutput.IsZero() {
			lossBps = bpsOf(signedDiff(inputAmount, grossOutput), inputAmount.ToBig())
		}
		return s.rejectedResult(c, inputAmount, liquidityInfo, fmt.Sprintf(
			"Gross output too low (-%d bps), likely pool returned bad quote", lossBps)), nil
	}

	breakdown := s.Calculator.Calculate(inputAmount, grossOutput, totalDexFeesBps, gasUnits, gasPrice)

	confidence := determineConfidence(quotes, liquidityInfo)

	var rejectionReason string
	if !breakdown.AboveThreshold {
		rejectionReason = buildRejectionReason(breakdown)
	}

	return Result{
		Path:            c.Path,
		Pools:           c.Pools,
		Dexes:           c.Dexes,
		InputAmount:     inputAmount,
		OutputAmount:    breakdown.NetOutput,
		GrossProfitBps:  breakdown.GrossProfitBps,
		NetProfitBps:    breakdown.NetProfitBps,
		TotalDexFeesBps: totalDexFeesBps,
		FlashLoanFeeBps: breakdown.FlashLoanFeeBps,
		GasCostWei:      breakdown.GasCost,
		GasUnits:        gasUnits,
		IsProfitable:    breakdown.IsProfitable,
		AboveThreshold:  breakdown.AboveThreshold,
		Confidence:      confidence,
		BlockNumber:     blockNumber,
		ProfitBreakdown: breakdown,
		LiquidityInfo:   liquidityInfo,
		Quotes:          quotes,
		RejectionReason: rejectionReason,
	}, nil
}

// getPathQuotes resolves each hop's (token_in, token_out) direction from
// the cycle's path and feeds each hop's output into the next hop's input,
// exactly as the funds would actually flow through a real execution.
func (s *Simulator) getPathQuotes(ctx context.Context, c cycle.ArbitrageCycle, inputAmount *uint256.Int) ([]PathQuote, error) {
	quotes := make([]PathQuote, 0, len(c.Pools))
	amountIn := inputAmount

	for i, poolAddr := range c.Pools {
		poolInfo, adapter, ok := s.Pools.Lookup(poolAddr)
		if !ok {
			return nil, fmt.Errorf("hop %d: unknown pool %s", i, poolAddr.Hex())
		}

		tokenIn := c.Path[i].Address
		tokenOut := c.Path[i+1].Address

		q, err := adapter.QuoteExactIn(ctx, poolInfo, tokenIn, amountIn)
		if err != nil {
			return nil, fmt.Errorf("hop %d (%s): %w", i, poolAddr.Hex(), err)
		}
		if q.AmountOut == nil || q.AmountOut.IsZero() {
			return nil, fmt.Errorf("hop %d (%s): zero amount out", i, poolAddr.Hex())
		}

		quotes = append(quotes, PathQuote{
			PoolAddress: poolAddr,
			Dex:         poolInfo.Variant,
			TokenIn:     tokenIn,
			TokenOut:    tokenOut,
			AmountIn:    amountIn,
			Quote:       q,
		})

		amountIn = q.AmountOut
	}

	return quotes, nil
}

func (s *Simulator) checkLiquidity(pools []common.Address) []LiquidityInfo {
	info := make([]LiquidityInfo, 0, len(pools))
	for _, addr := range pools {
		liquidity, ok := s.Pools.Liquidity(addr)
		if !ok || liquidity == nil {
			liquidity = new(uint256.Int)
		}
		info = append(info, LiquidityInfo{PoolAddress: addr, TotalLiquidity: liquidity})
	}
	return info
}

func (s *Simulator) gasPriceOrFallback(ctx context.Context) *uint256.Int {
	if s.GasPrice != nil {
		if price, err := s.GasPrice.SuggestGasPrice(ctx); err == nil {
			return uint256.NewInt(price)
		}
	}
	return uint256.NewInt(fallbackGasPriceWei)
}

func (s *Simulator) rejectedResult(c cycle.ArbitrageCycle, inputAmount *uint256.Int, liquidityInfo []LiquidityInfo, reason string) Result {
	return Result{
		Path:            c.Path,
		Pools:           c.Pools,
		Dexes:           c.Dexes,
		InputAmount:     inputAmount,
		OutputAmount:    new(uint256.Int),
		GasCostWei:      new(uint256.Int),
		Confidence:      ConfidenceFailed,
		LiquidityInfo:   liquidityInfo,
		RejectionReason: reason,
	}
}

// determineConfidence is Low if any quote returned zero output or any
// pool's diagnostic liquidity reading was zero; otherwise Medium. High
// would require simulating the actual arb contract via eth_call, which
// nothing does yet.
func determineConfidence(quotes []PathQuote, liquidityInfo []LiquidityInfo) Confidence {
	for _, q := range quotes {
		if q.AmountOut == nil || q.AmountOut.IsZero() {
			return ConfidenceLow
		}
	}
	for _, l := range liquidityInfo {
		if l.TotalLiquidity == nil || l.TotalLiquidity.IsZero() {
			return ConfidenceLow
		}
	}
	return ConfidenceMedium
}

func buildRejectionReason(b ProfitBreakdown) string {
	if b.NetProfitBps < 0 {
		return fmt.Sprintf("Net loss of %d bps (DEX fees: %d bps, flash loan: %d bps, gas: %s wei)",
			-b.NetProfitBps, b.TotalDexFeesBps, b.FlashLoanFeeBps, b.GasCost.Dec())
	}
	return fmt.Sprintf("Profit %d bps below threshold %d bps", b.NetProfitBps, b.MinProfitThresholdBps)
}
