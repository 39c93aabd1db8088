// Package configs reads config.yml into a Config struct tree and converts
// it into the engine-facing config types each internal package expects.
// Signing keys and environment secrets are the CLI layer's problem; this
// package only turns config.yml into values.
package configs

import (
	"fmt"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"gopkg.in/yaml.v3"

	"github.com/shadowline-labs/monadarb/internal/simulation"
	"github.com/shadowline-labs/monadarb/internal/spread"
	"github.com/shadowline-labs/monadarb/internal/token"
)

// Config represents the entire configuration structure from config.yml.
type Config struct {
	RPC             string             `yaml:"rpc_url"`
	WS              string             `yaml:"ws_url"`
	ChainID         uint64             `yaml:"chain_id"`
	PollYAMLData    PollYAMLData       `yaml:"poll"`
	EngineYAMLData  EngineYAMLData     `yaml:"engine"`
	SpreadYAMLData  SpreadYAMLData     `yaml:"spread"`
	ExecYAMLData    ExecutionYAMLData  `yaml:"execution"`
	PoolFeedYAML    PoolFeedYAMLData   `yaml:"pool_feed"`
	Tokens          []TokenYAMLData    `yaml:"tokens"`
	Contracts       map[string]string  `yaml:"contracts"`

	// MySQLDSN, when set, enables internal/persistence.ExecutionRecorder as
	// a supplemental queryable sink alongside the canonical JSONL recorder
	// (JSONL stays authoritative; this is optional). Format:
	// "user:password@tcp(host:port)/dbname?charset=utf8mb4&parseTime=True&loc=Local".
	MySQLDSN string `yaml:"mysql_dsn"`

	// InputAmountWei is the probe trade size SimulateCycle quotes against,
	// as a base-10 string (uint256 doesn't round-trip through YAML's native
	// number types). Defaults to 10^18 when unset.
	InputAmountWei string `yaml:"input_amount_wei"`
}

// PollYAMLData sets the fixed interval at which completed block-lifecycle
// records are drained to persistence. Polls are driven by block
// notifications, not by this interval, and the interval does not adapt.
type PollYAMLData struct {
	IntervalMs int `yaml:"interval_ms"`
}

// EngineYAMLData configures cycle detection and profit accounting.
type EngineYAMLData struct {
	MaxHops                int     `yaml:"max_hops"`
	MinProfitBps           uint32  `yaml:"min_profit_bps"`
	SafetyMarginBps        uint32  `yaml:"safety_margin_bps"`
	MinLiquidityNative     string  `yaml:"min_liquidity_native"`
	MinActiveLiquidity     string  `yaml:"min_active_liquidity"`
	MinNormalizedLiquidity string  `yaml:"min_normalized_liquidity"`
	MaxRoundTripDeviation  float64 `yaml:"max_round_trip_deviation"`
	SlippageBps            uint32  `yaml:"slippage_bps"`
	FlashLoanProvider      string  `yaml:"flash_loan_provider"` // none | aave-like | native
}

// SpreadYAMLData configures internal/spread.FilterConfig. The thresholds
// are tuning parameters, not contracts, so they live in config.yml.
type SpreadYAMLData struct {
	MinVelocity    float64 `yaml:"min_velocity_bps_per_sec"`
	MaxVelocity    float64 `yaml:"max_velocity_bps_per_sec"`
	MinFinalSpread int32   `yaml:"min_final_spread_bps"`
	MaxBaseline    int32   `yaml:"max_baseline_bps"`
	TriggerThresholdBps int32 `yaml:"trigger_threshold_bps"`
}

// ExecutionYAMLData configures internal/execution's gas buffer and
// timeout/poll cadence.
type ExecutionYAMLData struct {
	GasBufferPercent uint64 `yaml:"gas_buffer_percent"`
	ReceiptPollMs    int    `yaml:"receipt_poll_ms"`
	ReceiptTimeoutMs int    `yaml:"receipt_timeout_ms"`
	SendTimeoutMs    int    `yaml:"send_timeout_ms"`
}

// PoolFeedYAMLData configures what internal/multicall's batch fetcher
// discovers: which fee tiers / bin steps to probe per DEX family.
type PoolFeedYAMLData struct {
	V3FeeTiers  []uint32 `yaml:"v3_fee_tiers"`
	LBBinSteps  []uint32 `yaml:"lb_bin_steps"`
	V4FeeTiers  []uint32 `yaml:"v4_fee_tiers"`
}

// TokenYAMLData is one entry of the monitored token list.
type TokenYAMLData struct {
	Address  string `yaml:"address"`
	Symbol   string `yaml:"symbol"`
	Decimals uint8  `yaml:"decimals"`
}

// LoadConfig reads and parses path into a Config struct.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}

	return &config, nil
}

// PollInterval returns the configured poll interval as a time.Duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollYAMLData.IntervalMs) * time.Millisecond
}

// ToSpreadFilterConfig converts the YAML spread section into
// spread.FilterConfig, falling back to the filter defaults for any
// zero-valued field.
func (c *Config) ToSpreadFilterConfig() spread.FilterConfig {
	d := spread.DefaultFilterConfig()
	cfg := c.SpreadYAMLData
	if cfg.MinVelocity != 0 {
		d.MinVelocity = cfg.MinVelocity
	}
	if cfg.MaxVelocity != 0 {
		d.MaxVelocity = cfg.MaxVelocity
	}
	if cfg.MinFinalSpread != 0 {
		d.MinFinalSpread = cfg.MinFinalSpread
	}
	if cfg.MaxBaseline != 0 {
		d.MaxBaseline = cfg.MaxBaseline
	}
	return d
}

// TriggerThresholdBps returns the configured observer trigger threshold.
func (c *Config) TriggerThresholdBps() int32 {
	return c.SpreadYAMLData.TriggerThresholdBps
}

// defaultMaxHops bounds the DFS walk length when config.yml leaves
// max_hops unset.
const defaultMaxHops = 4

// ToCycleDetectorArgs returns the (maxHops, minProfitBps) pair
// internal/cycle.NewDetector expects.
func (c *Config) ToCycleDetectorArgs() (int, uint32) {
	maxHops := c.EngineYAMLData.MaxHops
	if maxHops == 0 {
		maxHops = defaultMaxHops
	}
	return maxHops, c.EngineYAMLData.MinProfitBps
}

// ToProfitCalculator converts the YAML engine section into a
// simulation.Calculator, defaulting the flash-loan provider to Neverland
// (native) per simulation.DefaultCalculator when unset or unrecognized.
func (c *Config) ToProfitCalculator() simulation.Calculator {
	calc := simulation.DefaultCalculator()
	calc.MinProfitBps = c.EngineYAMLData.MinProfitBps
	calc.SafetyMarginBps = c.EngineYAMLData.SafetyMarginBps
	switch c.EngineYAMLData.FlashLoanProvider {
	case "none":
		calc.FlashLoanProvider = simulation.FlashLoanNone
	case "aave-like":
		calc.FlashLoanProvider = simulation.FlashLoanAaveV3
	case "native":
		calc.FlashLoanProvider = simulation.FlashLoanNeverland
	}
	return calc
}

// ToTokens converts the configured token list into token.Token values.
func (c *Config) ToTokens() []token.Token {
	out := make([]token.Token, 0, len(c.Tokens))
	for _, t := range c.Tokens {
		out = append(out, token.Token{
			Address:  common.HexToAddress(t.Address),
			Symbol:   t.Symbol,
			Decimals: t.Decimals,
		})
	}
	return out
}

// ReceiptPollInterval returns the configured receipt-poll cadence,
// defaulting to 5ms when unset.
func (c *Config) ReceiptPollInterval() time.Duration {
	if c.ExecYAMLData.ReceiptPollMs == 0 {
		return 5 * time.Millisecond
	}
	return time.Duration(c.ExecYAMLData.ReceiptPollMs) * time.Millisecond
}

// ReceiptTimeout returns the configured receipt deadline, defaulting to
// 10s when unset.
func (c *Config) ReceiptTimeout() time.Duration {
	if c.ExecYAMLData.ReceiptTimeoutMs == 0 {
		return 10 * time.Second
	}
	return time.Duration(c.ExecYAMLData.ReceiptTimeoutMs) * time.Millisecond
}

// SendTimeout returns the configured send timeout, defaulting to 10s when
// unset.
func (c *Config) SendTimeout() time.Duration {
	if c.ExecYAMLData.SendTimeoutMs == 0 {
		return 10 * time.Second
	}
	return time.Duration(c.ExecYAMLData.SendTimeoutMs) * time.Millisecond
}

// GasBufferPercent returns the configured gas buffer, defaulting to 15%
// when unset.
func (c *Config) GasBufferPercent() uint64 {
	if c.ExecYAMLData.GasBufferPercent == 0 {
		return 15
	}
	return c.ExecYAMLData.GasBufferPercent
}

// defaultInputAmountWei is one whole unit of an 18-decimal token.
var defaultInputAmountWei = new(uint256.Int).Mul(uint256.NewInt(1), uint256.NewInt(1_000_000_000_000_000_000))

// ToInputAmount parses InputAmountWei, falling back to defaultInputAmountWei
// when unset or malformed.
func (c *Config) ToInputAmount() *uint256.Int {
	if c.InputAmountWei == "" {
		return defaultInputAmountWei
	}
	amount := new(uint256.Int)
	if err := amount.SetFromDecimal(c.InputAmountWei); err != nil {
		return defaultInputAmountWei
	}
	return amount
}

// ContractAddress looks up a configured contract address by name (e.g.
// "aggregator", "arb", "v3_factory"), returning the zero address if unset.
func (c *Config) ContractAddress(name string) common.Address {
	addr, ok := c.Contracts[name]
	if !ok {
		return common.Address{}
	}
	return common.HexToAddress(addr)
}
