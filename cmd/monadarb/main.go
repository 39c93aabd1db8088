// Command monadarb is the minimal wiring entrypoint for the arbitrage
// engine: it loads configuration, dials the chain, builds the per-DEX
// adapters, and starts the poller-driven block-lifecycle observer.
// Signing-key management, the terminal dashboard, and the CLI flag surface
// live outside this module; this entrypoint wires the core only.
package main

import (
	"context"
	"fmt"
	"log"
	"math/big"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/shadowline-labs/monadarb/configs"
	"github.com/shadowline-labs/monadarb/internal/dex"
	"github.com/shadowline-labs/monadarb/internal/lifecycle"
	"github.com/shadowline-labs/monadarb/internal/multicall"
	"github.com/shadowline-labs/monadarb/internal/persistence"
	"github.com/shadowline-labs/monadarb/internal/poller"
)

func main() {
	configPath := "configs/config.yml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := configs.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	eth, err := ethclient.Dial(cfg.RPC)
	if err != nil {
		log.Fatalf("dial rpc: %v", err)
	}
	defer eth.Close()

	chainID := new(big.Int).SetUint64(cfg.ChainID)
	fmt.Printf("✓ connected to chain %s\n", chainID)

	aggregator := cfg.ContractAddress("aggregator")
	batcher := multicall.New(eth, aggregator)

	startedAt := time.Now()
	recorder, err := persistence.NewRecorder(".", startedAt)
	if err != nil {
		log.Fatalf("open persistence: %v", err)
	}
	defer recorder.Close()

	var dbRecorder *persistence.ExecutionRecorder
	if cfg.MySQLDSN != "" {
		dbRecorder, err = persistence.NewExecutionRecorder(cfg.MySQLDSN)
		if err != nil {
			log.Fatalf("open mysql recorder: %v", err)
		}
		defer dbRecorder.Close()
		log.Printf("mysql recorder ready")
	}

	adapters := buildAdapters(eth, cfg, batcher)

	maxHops, minProfitBps := cfg.ToCycleDetectorArgs()
	pollr := poller.New(
		eth,
		adapters,
		cfg.ToTokens(),
		batcher,
		maxHops,
		minProfitBps,
		cfg.ToProfitCalculator(),
		cfg.ToSpreadFilterConfig(),
		cfg.ToInputAmount(),
	)

	obs := lifecycle.NewObserver(
		cfg.WS,
		pollr,
		pollr,
		cfg.TriggerThresholdBps(),
		[]interface{}{"newHeads", map[string]bool{"commitState": true}},
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("⚠ shutdown signal received")
		cancel()
	}()

	go func() {
		for t := range obs.Triggers {
			fmt.Printf("✓ trigger: block %d spread %dbps (%s -> %s)\n", t.BlockNumber, t.ProposedSpreadBps, t.BuyPool, t.SellPool)
		}
	}()

	go drainCompletedLifecycles(ctx, obs, recorder, dbRecorder, cfg.PollInterval())

	if err := obs.Run(ctx); err != nil && ctx.Err() == nil {
		log.Printf("⚠ observer stopped: %v", err)
	}
}

// buildAdapters constructs one dex.Adapter per configured DEX family,
// batching all of their discovery-time reads through the shared batcher.
// Contract addresses are read from config.yml's contracts map under the
// family-specific keys below; a family whose address is unconfigured (zero
// address) is skipped rather than wired against a dead contract.
func buildAdapters(eth *ethclient.Client, cfg *configs.Config, batcher *multicall.Batcher) []dex.Adapter {
	var adapters []dex.Adapter

	if factory := cfg.ContractAddress("v3_factory"); factory != (common.Address{}) {
		quoter := cfg.ContractAddress("v3_quoter")
		adapters = append(adapters, dex.NewV3Client(eth, factory, quoter, cfg.PoolFeedYAML.V3FeeTiers, dex.VariantV3ConstantFee, batcher))
	}

	if factory := cfg.ContractAddress("lb_factory"); factory != (common.Address{}) {
		adapters = append(adapters, dex.NewLBClient(eth, factory, cfg.PoolFeedYAML.LBBinSteps, batcher))
	}

	if stateView := cfg.ContractAddress("v4_state_view"); stateView != (common.Address{}) {
		quoter := cfg.ContractAddress("v4_quoter")
		adapters = append(adapters, dex.NewV4Client(eth, stateView, quoter, cfg.PoolFeedYAML.V4FeeTiers, dex.DefaultTickSpacings, batcher))
	}

	return adapters
}

// drainCompletedLifecycles periodically flushes finished BlockLifecycle
// records to the canonical JSONL sink and to the optional MySQL secondary
// sink when configured.
func drainCompletedLifecycles(ctx context.Context, obs *lifecycle.Observer, recorder *persistence.Recorder, dbRecorder *persistence.ExecutionRecorder, interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, rec := range obs.Completed() {
				if err := recorder.RecordLifecycle(rec); err != nil {
					log.Printf("⚠ record lifecycle: %v", err)
				}
				if dbRecorder != nil {
					if err := dbRecorder.RecordLifecycle(rec); err != nil {
						log.Printf("⚠ record lifecycle (mysql): %v", err)
					}
				}
			}
		}
	}
}
