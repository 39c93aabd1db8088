package contractclient

import (
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"

	"github.com/shadowline-labs/monadarb/pkg/chaintypes"
)

const testABI = `[
	{"type":"function","name":"transfer","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"event","name":"Transfer","inputs":[{"name":"from","type":"address","indexed":true},{"name":"to","type":"address","indexed":true},{"name":"value","type":"uint256","indexed":false}]}
]`

func mustABI(t *testing.T) abi.ABI {
	t.Helper()
	parsed, err := abi.JSON(strings.NewReader(testABI))
	if err != nil {
		t.Fatalf("parse abi: %v", err)
	}
	return parsed
}

func TestDecodeTransaction(t *testing.T) {
	contractAbi := mustABI(t)
	cc := NewContractClient(nil, common.HexToAddress("0x1111111111111111111111111111111111111111"), contractAbi)

	to := common.HexToAddress("0x2222222222222222222222222222222222222222")
	data, err := contractAbi.Pack("transfer", to, big_100())
	assert.NoError(t, err)

	decoded, err := cc.DecodeTransaction(data)
	assert.NoError(t, err)
	assert.Equal(t, "transfer", decoded.MethodName)
	assert.Equal(t, to, decoded.Parameters["to"])
}

func TestDecodeTransactionTooShort(t *testing.T) {
	cc := NewContractClient(nil, common.Address{}, mustABI(t))
	_, err := cc.DecodeTransaction([]byte{0x01, 0x02})
	assert.Error(t, err)
}

func TestDecodeTransactionUnknownSelector(t *testing.T) {
	cc := NewContractClient(nil, common.Address{}, mustABI(t))
	_, err := cc.DecodeTransaction([]byte{0xde, 0xad, 0xbe, 0xef, 0x00})
	assert.Error(t, err)
}

func TestParseReceiptFiltersForeignAndUnknownLogs(t *testing.T) {
	contractAbi := mustABI(t)
	addr := common.HexToAddress("0x1111111111111111111111111111111111111111")
	cc := NewContractClient(nil, addr, contractAbi)

	event := contractAbi.Events["Transfer"]
	from := common.HexToAddress("0x3333333333333333333333333333333333333333")
	to := common.HexToAddress("0x4444444444444444444444444444444444444444")
	data, err := event.Inputs.NonIndexed().Pack(big_100())
	assert.NoError(t, err)

	matching := chaintypes.Log{
		Address: addr,
		Topics: []common.Hash{
			event.ID,
			common.BytesToHash(from.Bytes()),
			common.BytesToHash(to.Bytes()),
		},
		Data: data,
	}
	foreign := chaintypes.Log{
		Address: common.HexToAddress("0x9999999999999999999999999999999999999999"),
		Topics:  []common.Hash{event.ID},
		Data:    data,
	}

	out, err := cc.ParseReceipt(&chaintypes.TxReceipt{Logs: []chaintypes.Log{matching, foreign}})
	assert.NoError(t, err)
	assert.Contains(t, out, "Transfer")
	assert.Equal(t, 1, strings.Count(out, "__event"))
}

func TestContractAddressAndAbi(t *testing.T) {
	contractAbi := mustABI(t)
	addr := common.HexToAddress("0x1111111111111111111111111111111111111111")
	cc := NewContractClient(nil, addr, contractAbi)
	assert.Equal(t, addr, cc.ContractAddress())
	assert.Equal(t, contractAbi.Methods["transfer"].Sig, cc.Abi().Methods["transfer"].Sig)
}

func big_100() *big.Int { return big.NewInt(100) }
