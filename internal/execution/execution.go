// Package execution drives a detected arbitrage cycle from a priced
// opportunity through to a settled transaction, along either of two
// paths: a sequential two-swap path that snapshots
// real balances between legs, or an atomic single-call path through a
// purpose-built contract. Both paths report gas_limit * effective_gas_price
// as the cost figure, since that is what the sender is actually billed —
// never gas_used.
package execution

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// State is one stage of an execution attempt's lifecycle:
// Triggered -> Ready -> Priced -> Pending -> a terminal state.
type State uint8

const (
	StateTriggered State = iota
	StateReady
	StatePriced
	StatePending
	StateConfirmed
	StateSendError
	StateReceiptTimeout
	StateReceiptError
)

func (s State) String() string {
	switch s {
	case StateTriggered:
		return "triggered"
	case StateReady:
		return "ready"
	case StatePriced:
		return "priced"
	case StatePending:
		return "pending"
	case StateConfirmed:
		return "confirmed"
	case StateSendError:
		return "send-error"
	case StateReceiptTimeout:
		return "receipt-timeout"
	case StateReceiptError:
		return "receipt-error"
	default:
		return "unknown"
	}
}

// RequiresNonceReset reports whether reaching this terminal state means the
// local nonce counter no longer matches the chain's view and must be
// re-seeded via nonce.Manager.Reset before the next send. A plain revert
// (StateConfirmed with a failed receipt) still consumed the nonce normally
// and does not require a reset.
func (s State) RequiresNonceReset() bool {
	return s == StateSendError || s == StateReceiptTimeout || s == StateReceiptError
}

// Venue identifies which router contract a swap leg targets, matching the
// ContractRouter venue IDs the atomic contract expects as its sell/buy
// venue arguments.
type Venue uint8

const (
	VenueUniswap Venue = iota
	VenuePancakeSwap
	VenueMondayTrade
	VenueLFJ
)

func (v Venue) String() string {
	switch v {
	case VenueUniswap:
		return "uniswap"
	case VenuePancakeSwap:
		return "pancakeswap"
	case VenueMondayTrade:
		return "monday-trade"
	case VenueLFJ:
		return "lfj"
	default:
		return "unknown"
	}
}

// GasBufferPercent is the default buffer applied over a fresh gas estimate
// before submitting, matching the original sequential executor's tuning.
const GasBufferPercent = 15

// DustBufferNumerator/Denominator apply the 0.1% haircut to an
// actually-received intermediate balance before using it as the next leg's
// input, guarding against the leg reverting on a one-wei rounding deficit.
const (
	DustBufferNumerator   = 999
	DustBufferDenominator = 1000
)

// GasCostWei returns gasLimit * effectiveGasPrice, the sender's actual
// billed cost — this chain charges for the limit reserved, not gas_used.
func GasCostWei(gasLimit uint64, effectiveGasPrice *big.Int) *big.Int {
	if effectiveGasPrice == nil {
		return new(big.Int)
	}
	return new(big.Int).Mul(new(big.Int).SetUint64(gasLimit), effectiveGasPrice)
}

// ApplyDustBuffer returns amount * 999/1000, the conservative input used for
// a second leg sized off an actually-observed balance delta rather than a
// quoter estimate.
func ApplyDustBuffer(amount *uint256.Int) *uint256.Int {
	out := new(uint256.Int).Mul(amount, uint256.NewInt(DustBufferNumerator))
	return out.Div(out, uint256.NewInt(DustBufferDenominator))
}

// BalanceReader reads an ERC20 balance, used to measure the actual amount
// received by a leg instead of trusting the pre-trade quote.
type BalanceReader interface {
	BalanceOf(ctx context.Context, token, owner common.Address) (*uint256.Int, error)
}

// SwapStepReport is the settled outcome of one on-chain swap transaction.
type SwapStepReport struct {
	Venue                Venue
	TxHash                common.Hash
	State                State
	Success              bool
	GasLimit             uint64
	EffectiveGasPriceWei *big.Int
	GasCostWei           *big.Int
	SlippageBps          int32
	Error                string
}
