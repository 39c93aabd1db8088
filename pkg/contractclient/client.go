// Package contractclient provides a thin, ABI-bound wrapper around
// ethclient.Client for calling and sending transactions to a single
// contract, plus decoding calldata back into method name and arguments.
package contractclient

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/shadowline-labs/monadarb/pkg/chaintypes"
)

// ContractClient binds one ABI to one deployed address and exposes
// call/send/decode operations against it.
type ContractClient interface {
	Call(from *common.Address, method string, args ...interface{}) ([]interface{}, error)
	Send(mode chaintypes.SendMode, gasLimit *big.Int, from *common.Address, pk *ecdsa.PrivateKey, method string, args ...interface{}) (common.Hash, error)
	Abi() abi.ABI
	ContractAddress() common.Address
	ParseReceipt(receipt *chaintypes.TxReceipt) (string, error)
	TransactionData(hash common.Hash) ([]byte, error)
	DecodeTransaction(data []byte) (*chaintypes.DecodedTransaction, error)
}

type client struct {
	eth     *ethclient.Client
	address common.Address
	abi     abi.ABI
}

// NewContractClient binds abi to address using eth for all RPC calls.
func NewContractClient(eth *ethclient.Client, address common.Address, contractAbi abi.ABI) ContractClient {
	return &client{eth: eth, address: address, abi: contractAbi}
}

func (c *client) Abi() abi.ABI                      { return c.abi }
func (c *client) ContractAddress() common.Address   { return c.address }

// Call performs a read-only eth_call against method, unpacking the result
// into Go values per the ABI's output types. from is optional; nil leaves
// the call unsigned (msg.sender defaults to the zero address).
func (c *client) Call(from *common.Address, method string, args ...interface{}) ([]interface{}, error) {
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	msg := ethereum.CallMsg{To: &c.address, Data: data}
	if from != nil {
		msg.From = *from
	}

	out, err := c.eth.CallContract(context.Background(), msg, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}

	values, err := c.abi.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return values, nil
}

// Send builds, signs and broadcasts a transaction invoking method. gasLimit
// may be nil to estimate automatically.
func (c *client) Send(mode chaintypes.SendMode, gasLimit *big.Int, from *common.Address, pk *ecdsa.PrivateKey, method string, args ...interface{}) (common.Hash, error) {
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return common.Hash{}, fmt.Errorf("pack %s: %w", method, err)
	}

	ctx := context.Background()

	var sender common.Address
	if from != nil {
		sender = *from
	} else {
		sender = crypto.PubkeyToAddress(pk.PublicKey)
	}

	nonce, err := c.eth.PendingNonceAt(ctx, sender)
	if err != nil {
		return common.Hash{}, fmt.Errorf("fetch nonce for %s: %w", method, err)
	}

	if gasLimit == nil {
		est, err := c.eth.EstimateGas(ctx, ethereum.CallMsg{From: sender, To: &c.address, Data: data})
		if err != nil {
			return common.Hash{}, fmt.Errorf("estimate gas for %s: %w", method, err)
		}
		gasLimit = new(big.Int).SetUint64(est)
	}

	chainID, err := c.eth.ChainID(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("fetch chain id: %w", err)
	}

	var tx *types.Transaction
	switch mode {
	case chaintypes.Legacy:
		gasPrice, err := c.eth.SuggestGasPrice(ctx)
		if err != nil {
			return common.Hash{}, fmt.Errorf("suggest gas price for %s: %w", method, err)
		}
		tx = types.NewTx(&types.LegacyTx{
			Nonce:    nonce,
			To:       &c.address,
			Gas:      gasLimit.Uint64(),
			GasPrice: gasPrice,
			Data:     data,
		})
	default:
		tip, err := c.eth.SuggestGasTipCap(ctx)
		if err != nil {
			return common.Hash{}, fmt.Errorf("suggest gas tip for %s: %w", method, err)
		}
		head, err := c.eth.HeaderByNumber(ctx, nil)
		if err != nil {
			return common.Hash{}, fmt.Errorf("fetch head for %s: %w", method, err)
		}
		feeCap := new(big.Int).Add(tip, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))
		tx = types.NewTx(&types.DynamicFeeTx{
			ChainID:   chainID,
			Nonce:     nonce,
			To:        &c.address,
			Gas:       gasLimit.Uint64(),
			GasTipCap: tip,
			GasFeeCap: feeCap,
			Data:      data,
		})
	}

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), pk)
	if err != nil {
		return common.Hash{}, fmt.Errorf("sign %s: %w", method, err)
	}

	if err := c.eth.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, fmt.Errorf("broadcast %s: %w", method, err)
	}
	return signed.Hash(), nil
}

// ParseReceipt decodes every log in receipt that matches an event in this
// contract's ABI, returning a JSON array of decoded events.
func (c *client) ParseReceipt(receipt *chaintypes.TxReceipt) (string, error) {
	events := make([]map[string]interface{}, 0, len(receipt.Logs))
	for _, l := range receipt.Logs {
		if l.Address != c.address || len(l.Topics) == 0 {
			continue
		}
		ev, err := c.abi.EventByID(l.Topics[0])
		if err != nil {
			continue // not one of ours, or anonymous
		}
		values := make(map[string]interface{})
		if err := c.abi.UnpackIntoMap(values, ev.Name, l.Data); err != nil {
			return "", fmt.Errorf("unpack event %s: %w", ev.Name, err)
		}
		values["__event"] = ev.Name
		events = append(events, values)
	}
	return marshalJSON(events)
}

// TransactionData fetches the raw input calldata of a mined transaction.
func (c *client) TransactionData(hash common.Hash) ([]byte, error) {
	tx, _, err := c.eth.TransactionByHash(context.Background(), hash)
	if err != nil {
		return nil, fmt.Errorf("fetch tx %s: %w", hash.Hex(), err)
	}
	return tx.Data(), nil
}

// DecodeTransaction matches calldata's 4-byte selector against this
// contract's ABI and unpacks the arguments by parameter name.
func (c *client) DecodeTransaction(data []byte) (*chaintypes.DecodedTransaction, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("decode transaction: calldata too short (%d bytes)", len(data))
	}

	method, err := c.abi.MethodById(data[:4])
	if err != nil {
		return nil, fmt.Errorf("decode transaction: %w", err)
	}

	args := make(map[string]interface{})
	if err := method.Inputs.UnpackIntoMap(args, data[4:]); err != nil {
		return nil, fmt.Errorf("unpack args for %s: %w", method.Name, err)
	}

	return &chaintypes.DecodedTransaction{MethodName: method.Name, Parameters: args}, nil
}

func marshalJSON(v interface{}) (string, error) {
	out, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal: %w", err)
	}
	return string(out), nil
}
