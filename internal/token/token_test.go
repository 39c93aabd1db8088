package token

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
)

func TestSorted(t *testing.T) {
	a := Token{Address: common.HexToAddress("0x0000000000000000000000000000000000000002")}
	b := Token{Address: common.HexToAddress("0x0000000000000000000000000000000000000001")}

	t0, t1 := Sorted(a, b)
	assert.Equal(t, b, t0)
	assert.Equal(t, a, t1)
	assert.True(t, t0.Less(t1))
}

func TestEqual(t *testing.T) {
	a := Token{Address: common.HexToAddress("0x0000000000000000000000000000000000000001"), Symbol: "A"}
	b := Token{Address: common.HexToAddress("0x0000000000000000000000000000000000000001"), Symbol: "different-symbol-same-address"}
	assert.True(t, a.Equal(b))
}
