package dex

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMustParseABIParsesEmbeddedFragments(t *testing.T) {
	assert.NotPanics(t, func() { mustParseABI(v3FactoryABI) })
	assert.NotPanics(t, func() { mustParseABI(v3PoolABI) })
	assert.NotPanics(t, func() { mustParseABI(v3QuoterV2ABI) })
	assert.NotPanics(t, func() { mustParseABI(lbFactoryABI) })
	assert.NotPanics(t, func() { mustParseABI(lbPairABI) })
	assert.NotPanics(t, func() { mustParseABI(v4StateViewABI) })
	assert.NotPanics(t, func() { mustParseABI(v4QuoterABI) })
}

func TestMustParseABIPanicsOnMalformedFragment(t *testing.T) {
	assert.Panics(t, func() { mustParseABI("not json") })
}
