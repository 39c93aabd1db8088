package configs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
rpc_url: "https://rpc.example/v1"
ws_url: "wss://rpc.example/ws"
chain_id: 143
poll:
  interval_ms: 1000
engine:
  max_hops: 3
  min_profit_bps: 10
  safety_margin_bps: 5
  flash_loan_provider: "aave-like"
spread:
  min_velocity_bps_per_sec: 20
  trigger_threshold_bps: 12
execution:
  gas_buffer_percent: 20
  receipt_poll_ms: 5
  receipt_timeout_ms: 10000
tokens:
  - address: "0x0000000000000000000000000000000000000A"
    symbol: "WMON"
    decimals: 18
  - address: "0x0000000000000000000000000000000000000B"
    symbol: "USDC"
    decimals: 6
contracts:
  aggregator: "0x0000000000000000000000000000000000000C"
`

func writeSampleConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o644))
	return path
}

func TestLoadConfigParsesAllSections(t *testing.T) {
	path := writeSampleConfig(t)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "https://rpc.example/v1", cfg.RPC)
	assert.Equal(t, uint64(143), cfg.ChainID)
	assert.Equal(t, 1000, cfg.PollYAMLData.IntervalMs)
	assert.Len(t, cfg.Tokens, 2)
}

func TestLoadConfigMissingFileReturnsError(t *testing.T) {
	_, err := LoadConfig("/nonexistent/config.yml")
	assert.Error(t, err)
}

func TestToCycleDetectorArgsUsesConfiguredValues(t *testing.T) {
	cfg, err := LoadConfig(writeSampleConfig(t))
	require.NoError(t, err)

	maxHops, minProfitBps := cfg.ToCycleDetectorArgs()
	assert.Equal(t, 3, maxHops)
	assert.Equal(t, uint32(10), minProfitBps)
}

func TestToCycleDetectorArgsDefaultsMaxHops(t *testing.T) {
	cfg := &Config{}
	maxHops, _ := cfg.ToCycleDetectorArgs()
	assert.Equal(t, defaultMaxHops, maxHops)
}

func TestToProfitCalculatorMapsFlashLoanProvider(t *testing.T) {
	cfg, err := LoadConfig(writeSampleConfig(t))
	require.NoError(t, err)

	calc := cfg.ToProfitCalculator()
	assert.Equal(t, uint32(5), calc.FlashLoanProvider.FeeBps())
	assert.Equal(t, uint32(10), calc.MinProfitBps)
	assert.Equal(t, uint32(5), calc.SafetyMarginBps)
}

func TestToSpreadFilterConfigFallsBackToDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeSampleConfig(t))
	require.NoError(t, err)

	filter := cfg.ToSpreadFilterConfig()
	assert.Equal(t, 20.0, filter.MinVelocity)
	assert.Equal(t, 100.0, filter.MaxVelocity) // default, unset in sample
	assert.Equal(t, int32(12), cfg.TriggerThresholdBps())
}

func TestToTokensConvertsAddressesAndDecimals(t *testing.T) {
	cfg, err := LoadConfig(writeSampleConfig(t))
	require.NoError(t, err)

	tokens := cfg.ToTokens()
	require.Len(t, tokens, 2)
	assert.Equal(t, "WMON", tokens[0].Symbol)
	assert.Equal(t, uint8(18), tokens[0].Decimals)
}

func TestExecutionTimeoutDefaults(t *testing.T) {
	cfg := &Config{}
	assert.Equal(t, uint64(15), cfg.GasBufferPercent())
	assert.Equal(t, "10s", cfg.SendTimeout().String())
}
