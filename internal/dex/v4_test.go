package dex

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
)

func TestIsValidFeeTickCombo(t *testing.T) {
	assert.True(t, isValidFeeTickCombo(500, 10))
	assert.True(t, isValidFeeTickCombo(3000, 60))
	assert.False(t, isValidFeeTickCombo(500, 60))
	assert.True(t, isValidFeeTickCombo(42, 7)) // unknown fee tiers are lenient
}

func TestIsDynamicFee(t *testing.T) {
	assert.False(t, isDynamicFee(3000))
	assert.True(t, isDynamicFee(3000|DynamicFeeFlag))
}

func TestComputePoolIDDeterministic(t *testing.T) {
	a := common.HexToAddress("0x1111111111111111111111111111111111111111")
	b := common.HexToAddress("0x2222222222222222222222222222222222222222")

	id1 := computePoolID(a, b, 3000, 60)
	id2 := computePoolID(a, b, 3000, 60)
	assert.Equal(t, id1, id2)

	id3 := computePoolID(a, b, 500, 10)
	assert.NotEqual(t, id1, id3)
}
