package execution

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/holiman/uint256"

	"github.com/shadowline-labs/monadarb/internal/nonce"
	"github.com/shadowline-labs/monadarb/pkg/contractclient"
	"github.com/shadowline-labs/monadarb/pkg/txlistener"
)

// SwapLeg is one hop of a sequential arbitrage: a router call bound to a
// specific contract, parameterized by whatever amount is actually known at
// send time (the quoted amount for the first leg, the balance actually
// received for the second).
type SwapLeg struct {
	Venue     Venue
	Contract  contractclient.ContractClient
	Method    string
	BuildArgs func(amountIn, minOut *big.Int) []interface{}
	TokenIn   common.Address
	TokenOut  common.Address
}

// SequentialParams describes one sell-then-buy-back attempt: borrow
// nothing, just round-trip the wallet's own InputAmount of TokenIn through
// Leg1 into TokenOut and back through Leg2.
type SequentialParams struct {
	Leg1, Leg2 SwapLeg

	InputAmount          *uint256.Int
	ExpectedIntermediate *uint256.Int // sell-side quote: what Leg1 should return
	ExpectedFinalOutput  *uint256.Int // buy-side quote: what Leg2 should return
	SlippageBps          uint32

	Wallet     common.Address
	PrivateKey *ecdsa.PrivateKey
}

// SequentialReport is the settled outcome of both legs, with actual
// amounts measured from balance deltas rather than trusted from the
// pre-trade quote. The final balance delta is the true profit or loss.
type SequentialReport struct {
	Swap1, Swap2 SwapStepReport

	InputAmount              *uint256.Int
	IntermediateAmountActual *uint256.Int
	FinalAmountActual        *uint256.Int

	TotalGasCostWei *big.Int
	ProfitWei       *big.Int
	ProfitBps       int32

	Success bool
	Error   string
}

// SequentialExecutor drives the two-swap path: snapshot balances, send leg
// 1 with a gas-buffered estimate, measure what actually came back, haircut
// it by the dust buffer, send leg 2 sized off that real number, and measure
// the real final balance. Each leg follows the same shape: balance
// snapshot, send, wait receipt, extract gas cost.
type SequentialExecutor struct {
	Eth      *ethclient.Client
	Balances BalanceReader
	Nonce    *nonce.Manager
	Listener txlistener.TxListener
	ChainID  *big.Int

	GasBufferPercent uint64
	ReceiptTimeout   time.Duration
}

// NewSequentialExecutor builds an executor with the defaults: a 15% gas
// buffer and a 10s receipt deadline per leg.
func NewSequentialExecutor(eth *ethclient.Client, balances BalanceReader, nonceMgr *nonce.Manager, chainID *big.Int) *SequentialExecutor {
	return &SequentialExecutor{
		Eth:              eth,
		Balances:         balances,
		Nonce:            nonceMgr,
		Listener:         txlistener.NewTxListener(eth, txlistener.WithPollInterval(5*time.Millisecond), txlistener.WithTimeout(10*time.Second)),
		ChainID:          chainID,
		GasBufferPercent: GasBufferPercent,
		ReceiptTimeout:   10 * time.Second,
	}
}

// Execute runs both legs to completion (or to the first failure) and
// returns the full balance-measured report.
func (e *SequentialExecutor) Execute(ctx context.Context, p SequentialParams) (*SequentialReport, error) {
	report := &SequentialReport{InputAmount: p.InputAmount}

	intermediateBefore, err := e.Balances.BalanceOf(ctx, p.Leg1.TokenOut, p.Wallet)
	if err != nil {
		return nil, fmt.Errorf("execution: snapshot pre-swap1 balance: %w", err)
	}

	minOut1 := applySlippage(p.ExpectedIntermediate, p.SlippageBps)
	step1, err := e.sendLeg(ctx, p.Leg1, p.InputAmount.ToBig(), minOut1, p.Wallet, p.PrivateKey)
	report.Swap1 = step1
	if err != nil {
		report.Error = err.Error()
		return report, nil
	}
	if !step1.Success {
		report.Error = "swap1 reverted"
		report.TotalGasCostWei = new(big.Int).Set(step1.GasCostWei)
		return report, nil
	}

	intermediateAfter, err := e.Balances.BalanceOf(ctx, p.Leg1.TokenOut, p.Wallet)
	if err != nil {
		return nil, fmt.Errorf("execution: snapshot post-swap1 balance: %w", err)
	}
	actualIntermediate := saturatingSubU256(intermediateAfter, intermediateBefore)
	report.IntermediateAmountActual = actualIntermediate
	report.Swap1.SlippageBps = slippageBpsOf(p.ExpectedIntermediate, actualIntermediate)

	swap2Input := ApplyDustBuffer(actualIntermediate)
	expectedFinal := scaleByRatio(p.ExpectedFinalOutput, swap2Input, p.ExpectedIntermediate)
	minOut2 := applySlippage(expectedFinal, p.SlippageBps)

	finalBefore, err := e.Balances.BalanceOf(ctx, p.Leg2.TokenOut, p.Wallet)
	if err != nil {
		return nil, fmt.Errorf("execution: snapshot pre-swap2 balance: %w", err)
	}

	step2, err := e.sendLeg(ctx, p.Leg2, swap2Input.ToBig(), minOut2, p.Wallet, p.PrivateKey)
	report.Swap2 = step2
	report.TotalGasCostWei = new(big.Int).Add(step1.GasCostWei, step2.GasCostWei)
	if err != nil {
		report.Error = err.Error()
		return report, nil
	}
	if !step2.Success {
		report.Error = "swap2 reverted"
		return report, nil
	}

	finalAfter, err := e.Balances.BalanceOf(ctx, p.Leg2.TokenOut, p.Wallet)
	if err != nil {
		return nil, fmt.Errorf("execution: snapshot post-swap2 balance: %w", err)
	}
	actualFinal := saturatingSubU256(finalAfter, finalBefore)
	report.FinalAmountActual = actualFinal
	report.Swap2.SlippageBps = slippageBpsOf(expectedFinal, actualFinal)

	report.ProfitWei = new(big.Int).Sub(actualFinal.ToBig(), p.InputAmount.ToBig())
	report.ProfitBps = bpsOfSigned(report.ProfitWei, p.InputAmount.ToBig())
	report.Success = true
	return report, nil
}

func (e *SequentialExecutor) sendLeg(ctx context.Context, leg SwapLeg, amountIn, minOut *big.Int, wallet common.Address, pk *ecdsa.PrivateKey) (SwapStepReport, error) {
	data, err := leg.Contract.Abi().Pack(leg.Method, leg.BuildArgs(amountIn, minOut)...)
	if err != nil {
		return SwapStepReport{Venue: leg.Venue, State: StateSendError}, fmt.Errorf("execution: pack %s: %w", leg.Method, err)
	}

	gasLimit, err := e.estimateGasWithBuffer(ctx, wallet, leg.Contract.ContractAddress(), data)
	if err != nil {
		return SwapStepReport{Venue: leg.Venue, State: StateSendError}, err
	}

	n, err := e.Nonce.Next()
	if err != nil {
		return SwapStepReport{Venue: leg.Venue, State: StateSendError}, fmt.Errorf("execution: next nonce: %w", err)
	}

	gasPrice, err := e.Eth.SuggestGasPrice(ctx)
	if err != nil {
		return SwapStepReport{Venue: leg.Venue, State: StateSendError}, fmt.Errorf("execution: suggest gas price: %w", err)
	}
	priorityFee := new(big.Int).Div(gasPrice, big.NewInt(10))
	maxFee := new(big.Int).Add(gasPrice, priorityFee)

	addr := leg.Contract.ContractAddress()
	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   e.ChainID,
		Nonce:     n,
		To:        &addr,
		Gas:       gasLimit,
		GasFeeCap: maxFee,
		GasTipCap: priorityFee,
		Data:      data,
	})

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(e.ChainID), pk)
	if err != nil {
		return SwapStepReport{Venue: leg.Venue, State: StateSendError}, fmt.Errorf("execution: sign %s: %w", leg.Method, err)
	}

	sendCtx, cancel := context.WithTimeout(ctx, e.ReceiptTimeout)
	defer cancel()
	if err := e.Eth.SendTransaction(sendCtx, signed); err != nil {
		return SwapStepReport{Venue: leg.Venue, TxHash: signed.Hash(), State: StateSendError}, fmt.Errorf("execution: send %s: %w", leg.Method, err)
	}

	receipt, err := e.Listener.WaitForTransactionContext(sendCtx, signed.Hash())
	if err != nil {
		return SwapStepReport{Venue: leg.Venue, TxHash: signed.Hash(), State: StateReceiptTimeout, GasLimit: gasLimit}, fmt.Errorf("execution: wait for %s receipt: %w", leg.Method, err)
	}

	effectivePrice := receipt.EffectiveGasPriceInt()
	cost := GasCostWei(gasLimit, effectivePrice)

	return SwapStepReport{
		Venue:                leg.Venue,
		TxHash:               signed.Hash(),
		State:                StateConfirmed,
		Success:              receipt.Success(),
		GasLimit:             gasLimit,
		EffectiveGasPriceWei: effectivePrice,
		GasCostWei:           cost,
	}, nil
}

func (e *SequentialExecutor) estimateGasWithBuffer(ctx context.Context, from, to common.Address, data []byte) (uint64, error) {
	est, err := e.Eth.EstimateGas(ctx, ethereum.CallMsg{From: from, To: &to, Data: data})
	if err != nil {
		return 0, fmt.Errorf("execution: estimate gas: %w", err)
	}
	buffered := est * (100 + e.bufferPercent()) / 100
	return buffered, nil
}

func (e *SequentialExecutor) bufferPercent() uint64 {
	if e.GasBufferPercent == 0 {
		return GasBufferPercent
	}
	return e.GasBufferPercent
}

func applySlippage(expected *uint256.Int, slippageBps uint32) *big.Int {
	if expected == nil {
		return new(big.Int)
	}
	num := uint256.NewInt(uint64(10000 - slippageBps))
	out := new(uint256.Int).Mul(expected, num)
	out.Div(out, uint256.NewInt(10000))
	return out.ToBig()
}

func scaleByRatio(value, numerator, denominator *uint256.Int) *uint256.Int {
	if value == nil || denominator == nil || denominator.IsZero() {
		return new(uint256.Int)
	}
	product := value.ToBig()
	product.Mul(product, numerator.ToBig())
	product.Div(product, denominator.ToBig())
	out := new(uint256.Int)
	out.SetFromBig(product)
	return out
}

func saturatingSubU256(a, b *uint256.Int) *uint256.Int {
	if a.Cmp(b) <= 0 {
		return new(uint256.Int)
	}
	return new(uint256.Int).Sub(a, b)
}

func slippageBpsOf(expected, actual *uint256.Int) int32 {
	if expected == nil || expected.IsZero() {
		return 0
	}
	diff := new(big.Int).Sub(expected.ToBig(), actual.ToBig())
	return bpsOfSigned(diff, expected.ToBig())
}

func bpsOfSigned(diff, base *big.Int) int32 {
	if base.Sign() == 0 {
		return 0
	}
	bps := new(big.Int).Mul(diff, big.NewInt(10000))
	bps.Div(bps, base)
	return int32(bps.Int64())
}
