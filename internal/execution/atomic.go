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

	"github.com/shadowline-labs/monadarb/internal/gascache"
	"github.com/shadowline-labs/monadarb/internal/nonce"
	"github.com/shadowline-labs/monadarb/pkg/contractclient"
	"github.com/shadowline-labs/monadarb/pkg/txlistener"
)

// MonadChainID is the default chain ID used when the caller's config does
// not override it.
const MonadChainID = 143

// executeArb/executeArbUnchecked method names on the on-chain arb
// contract: the checked variant reverts if min profit isn't met, the
// unchecked variant skips that guard (used once the simulator is trusted
// enough that the revert-protection gas cost isn't worth paying).
const (
	MethodExecuteArb          = "executeArb"
	MethodExecuteArbUnchecked = "executeArbUnchecked"
)

// AtomicParams describes one single-transaction arbitrage call: the
// sell-side router calldata is built off-chain and passed opaquely; the
// contract performs the buy-back leg itself against BuyVenue's pool at
// BuyPoolFee.
type AtomicParams struct {
	Contract      contractclient.ContractClient
	SellVenue     Venue
	Swap1Calldata []byte
	BuyVenue      Venue
	BuyPoolFee    uint32 // hundredths of a bp, as the buy pool stores it
	MinOutput     *uint256.Int
	MinProfit     *uint256.Int
	Unchecked     bool

	Wallet     common.Address
	PrivateKey *ecdsa.PrivateKey

	SpreadBps    int32
	BaseGasPrice uint64
}

// AtomicReport is the settled outcome of an atomic executeArb/
// executeArbUnchecked call. ActualProfitWei is left nil until a caller runs
// VerifyProfit against a pre-call balance snapshot — the atomic path's
// profit confirmation happens asynchronously, after the transaction has
// already settled.
type AtomicReport struct {
	TxHash               common.Hash
	State                State
	Success              bool
	Unchecked            bool
	GasLimit             uint64
	EffectiveGasPriceWei *big.Int
	GasCostWei           *big.Int
	ActualProfitWei      *big.Int
	Error                string
}

// AtomicExecutor drives the single-call path: build executeArb calldata,
// apply the spread-aware gas strategy from internal/gascache, send with an
// explicit nonce from internal/nonce, and poll for a receipt at the 5ms/10s
// cadence the original atomic executor used.
type AtomicExecutor struct {
	Nonce    *nonce.Manager
	GasCache *gascache.Cache
	Listener txlistener.TxListener
	ChainID  *big.Int
}

// NewAtomicExecutor builds an executor using listener for receipt polling;
// callers typically build listener via txlistener.NewTxListener with the
// atomic path's 5ms/10s cadence.
func NewAtomicExecutor(listener txlistener.TxListener, nonceMgr *nonce.Manager, gasCache *gascache.Cache, chainID *big.Int) *AtomicExecutor {
	return &AtomicExecutor{
		Nonce:    nonceMgr,
		GasCache: gasCache,
		Listener: listener,
		ChainID:  chainID,
	}
}

// Execute sends one executeArb/executeArbUnchecked call and waits for its
// receipt.
func (e *AtomicExecutor) Execute(ctx context.Context, sender TxSender, p AtomicParams) (*AtomicReport, error) {
	method := MethodExecuteArb
	args := []interface{}{
		uint8(p.SellVenue),
		p.Swap1Calldata,
		uint8(p.BuyVenue),
		big.NewInt(int64(p.BuyPoolFee)),
		p.MinOutput.ToBig(),
		p.MinProfit.ToBig(),
	}
	if p.Unchecked {
		// The unchecked variant drops the trailing on-chain profit guard.
		method = MethodExecuteArbUnchecked
		args = args[:len(args)-1]
	}
	data, err := p.Contract.Abi().Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("execution: pack %s: %w", method, err)
	}

	route := gascache.RouteKey{SellVenue: uint8(p.SellVenue), BuyVenue: uint8(p.BuyVenue)}
	decision := e.GasCache.Strategy(route, p.SpreadBps)

	gasLimit := decision.GasLimit
	if !decision.UseCached {
		est, err := sender.EstimateGas(ctx, p.Wallet, p.Contract.ContractAddress(), data)
		if err != nil {
			return &AtomicReport{State: StateSendError, Error: err.Error()}, nil
		}
		gasLimit = est * (100 + decision.BufferPercent) / 100
	}

	maxFee, priorityFee := gascache.CalculateGasPrice(p.BaseGasPrice, p.SpreadBps)

	n, err := e.Nonce.Next()
	if err != nil {
		return &AtomicReport{State: StateSendError, Error: err.Error()}, nil
	}

	addr := p.Contract.ContractAddress()
	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   e.ChainID,
		Nonce:     n,
		To:        &addr,
		Gas:       gasLimit,
		GasFeeCap: new(big.Int).SetUint64(maxFee),
		GasTipCap: new(big.Int).SetUint64(priorityFee),
		Data:      data,
	})

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(e.ChainID), p.PrivateKey)
	if err != nil {
		return &AtomicReport{State: StateSendError, Error: err.Error()}, nil
	}

	sendCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := sender.SendTransaction(sendCtx, signed); err != nil {
		return &AtomicReport{TxHash: signed.Hash(), State: StateSendError, Unchecked: p.Unchecked, Error: err.Error()}, nil
	}

	receipt, err := e.Listener.WaitForTransactionContext(sendCtx, signed.Hash())
	if err != nil {
		return &AtomicReport{TxHash: signed.Hash(), State: StateReceiptTimeout, Unchecked: p.Unchecked, GasLimit: gasLimit, Error: err.Error()}, nil
	}

	effectivePrice := receipt.EffectiveGasPriceInt()
	cost := GasCostWei(gasLimit, effectivePrice)
	success := receipt.Success()

	if success {
		spreadForCache := p.SpreadBps
		if spreadForCache < 30 {
			e.GasCache.Store(route, gasLimit, spreadForCache)
		}
	}

	return &AtomicReport{
		TxHash:               signed.Hash(),
		State:                StateConfirmed,
		Success:              success,
		Unchecked:            p.Unchecked,
		GasLimit:             gasLimit,
		EffectiveGasPriceWei: effectivePrice,
		GasCostWei:           cost,
	}, nil
}

// VerifyProfit measures the actual profit realized by an atomic call by
// diffing a balance taken before submission against one taken after the
// receipt settled. The atomic path's own return value is never trusted as
// the final profit figure.
func VerifyProfit(ctx context.Context, balances BalanceReader, token, wallet common.Address, before *uint256.Int, report *AtomicReport) error {
	after, err := balances.BalanceOf(ctx, token, wallet)
	if err != nil {
		return fmt.Errorf("execution: verify profit balance: %w", err)
	}
	report.ActualProfitWei = new(big.Int).Sub(after.ToBig(), before.ToBig())
	return nil
}

// TxSender is the subset of ethclient.Client the atomic path needs to send
// a transaction and estimate its gas; kept as an interface so callers can
// substitute a mock in tests.
type TxSender interface {
	EstimateGas(ctx context.Context, from, to common.Address, data []byte) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// ethTxSender adapts *ethclient.Client to TxSender.
type ethTxSender struct {
	eth *ethclient.Client
}

// NewEthTxSender wraps eth as a TxSender.
func NewEthTxSender(eth *ethclient.Client) TxSender {
	return &ethTxSender{eth: eth}
}

func (s *ethTxSender) EstimateGas(ctx context.Context, from, to common.Address, data []byte) (uint64, error) {
	return s.eth.EstimateGas(ctx, ethereum.CallMsg{From: from, To: &to, Data: data})
}

func (s *ethTxSender) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	return s.eth.SendTransaction(ctx, tx)
}
