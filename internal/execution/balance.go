package execution

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/holiman/uint256"
)

const erc20BalanceOfABI = `[
	{"name":"balanceOf","type":"function","stateMutability":"view",
	 "inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}]}
]`

// ERC20Balances is the BalanceReader the executors use to snapshot a
// wallet's token balance before and after each swap leg.
type ERC20Balances struct {
	eth *ethclient.Client
	abi abi.ABI
}

// NewERC20Balances builds a BalanceReader over eth.
func NewERC20Balances(eth *ethclient.Client) (*ERC20Balances, error) {
	parsed, err := abi.JSON(strings.NewReader(erc20BalanceOfABI))
	if err != nil {
		return nil, fmt.Errorf("execution: parse erc20 abi: %w", err)
	}
	return &ERC20Balances{eth: eth, abi: parsed}, nil
}

// BalanceOf returns owner's balance of token.
func (b *ERC20Balances) BalanceOf(ctx context.Context, token, owner common.Address) (*uint256.Int, error) {
	data, err := b.abi.Pack("balanceOf", owner)
	if err != nil {
		return nil, fmt.Errorf("execution: pack balanceOf: %w", err)
	}
	out, err := b.eth.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("execution: balanceOf %s for %s: %w", token.Hex(), owner.Hex(), err)
	}
	values, err := b.abi.Unpack("balanceOf", out)
	if err != nil {
		return nil, fmt.Errorf("execution: unpack balanceOf: %w", err)
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("execution: balanceOf returned %d values", len(values))
	}
	amount, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("execution: balanceOf returned unexpected type %T", values[0])
	}
	result, overflow := uint256.FromBig(amount)
	if overflow {
		return nil, fmt.Errorf("execution: balanceOf overflow for %s", token.Hex())
	}
	return result, nil
}
