// Package poller runs the engine's poll loop: one task that snapshots pool
// state across every configured DEX adapter, rebuilds the token graph,
// walks it for profitable cycles, and simulates the best one at the
// current block. It implements internal/lifecycle's Snapshotter and Filter
// interfaces so the block-lifecycle observer can drive it directly.
package poller

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/holiman/uint256"

	"github.com/shadowline-labs/monadarb/internal/cycle"
	"github.com/shadowline-labs/monadarb/internal/dex"
	"github.com/shadowline-labs/monadarb/internal/graph"
	"github.com/shadowline-labs/monadarb/internal/multicall"
	"github.com/shadowline-labs/monadarb/internal/pool"
	"github.com/shadowline-labs/monadarb/internal/simulation"
	"github.com/shadowline-labs/monadarb/internal/spread"
	"github.com/shadowline-labs/monadarb/internal/token"
)

// trackerCapacity bounds each pool-pair spread.Tracker's ring buffer. It
// has the same value as internal/lifecycle's maxTrackedBlocks, so both of
// the engine's bounded-history windows are the same size; the two are
// separate constants.
const trackerCapacity = 20

// poolEntry pairs a discovered pool with the adapter that discovered it, so
// Lookup can hand the simulator back a working (dex.PoolInfo, dex.Adapter)
// for quoting.
type poolEntry struct {
	info    dex.PoolInfo
	adapter dex.Adapter
}

// Poller owns the pool snapshot and graph; the simulator reads them only
// through Lookup/Liquidity. The pools map is replaced wholesale under mu
// on every poll rather than mutated in place.
type Poller struct {
	adapters     []dex.Adapter
	tokens       []token.Token
	batcher      *multicall.Batcher
	maxHops      int
	minProfitBps uint32
	inputAmount  *uint256.Int
	filterCfg    spread.FilterConfig
	simulator    *simulation.Simulator

	mu          sync.Mutex
	pools       map[common.Address]poolEntry
	trackers    map[string]*spread.Tracker
	lastPairKey string
}

// New builds a Poller that discovers pools via adapters across tokens,
// batching discovery RPCs through batcher, detecting cycles up to maxHops
// deep with at least minProfitBps expected return, and simulating the best
// cycle found each poll with inputAmount using calc for profit accounting.
func New(eth *ethclient.Client, adapters []dex.Adapter, tokens []token.Token, batcher *multicall.Batcher, maxHops int, minProfitBps uint32, calc simulation.Calculator, filterCfg spread.FilterConfig, inputAmount *uint256.Int) *Poller {
	p := &Poller{
		adapters:     adapters,
		tokens:       tokens,
		batcher:      batcher,
		maxHops:      maxHops,
		minProfitBps: minProfitBps,
		inputAmount:  inputAmount,
		filterCfg:    filterCfg,
		pools:        make(map[common.Address]poolEntry),
		trackers:     make(map[string]*spread.Tracker),
	}
	p.simulator = &simulation.Simulator{
		Pools:      p,
		Calculator: calc,
	}
	if eth != nil {
		p.simulator.GasPrice = &ethGasPricer{eth: eth}
		p.simulator.Blocks = eth
	}
	return p
}

// ethGasPricer adapts *ethclient.Client.SuggestGasPrice's *big.Int return to
// the uint64 simulation.GasPricer expects.
type ethGasPricer struct {
	eth *ethclient.Client
}

func (g *ethGasPricer) SuggestGasPrice(ctx context.Context) (uint64, error) {
	price, err := g.eth.SuggestGasPrice(ctx)
	if err != nil {
		return 0, err
	}
	return price.Uint64(), nil
}

// Lookup implements simulation.PoolLookup against the most recent poll's
// snapshot.
func (p *Poller) Lookup(addr common.Address) (dex.PoolInfo, dex.Adapter, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	entry, ok := p.pools[addr]
	if !ok {
		return dex.PoolInfo{}, nil, false
	}
	return entry.info, entry.adapter, true
}

// Liquidity implements simulation.PoolLookup's diagnostic liquidity read.
func (p *Poller) Liquidity(addr common.Address) (*uint256.Int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	entry, ok := p.pools[addr]
	if !ok || entry.info.Liquidity == nil {
		return nil, false
	}
	return entry.info.Liquidity, true
}

// poll runs one full discovery -> graph -> cycle-detection pass: every
// adapter's Enumerate batches its discovery RPCs through the shared batcher,
// each accepted PoolInfo becomes a pool.Pool, and the resulting graph is
// walked for cycles. An adapter whose
// Enumerate fails (e.g. a failed Aggregate3 batch) is logged and
// skipped rather than aborting the whole poll — one unintegrated DEX family
// should not block arbitrage across the others.
func (p *Poller) poll(ctx context.Context) ([]cycle.ArbitrageCycle, error) {
	p.batcher.Reset()

	var pools []pool.Pool
	entries := make(map[common.Address]poolEntry)

	for _, adapter := range p.adapters {
		infos, err := adapter.Enumerate(ctx, p.tokens)
		if err != nil {
			log.Printf("poller: %s enumerate: %v", adapter.Variant(), err)
			continue
		}
		for _, info := range infos {
			pl := pool.New(info.Address, info.Token0, info.Token1, info.FeeRaw, info.Variant, info.Liquidity, info.SqrtPriceX96)
			if !pl.IsActive() || !pl.IsPriceValid() {
				continue
			}
			pools = append(pools, pl)
			entries[info.Address] = poolEntry{info: info, adapter: adapter}
		}
	}

	p.mu.Lock()
	p.pools = entries
	p.mu.Unlock()

	g := graph.Build(pools)
	det := cycle.NewDetector(g, p.maxHops, p.minProfitBps)
	return det.FindAllCycles(p.tokens), nil
}

// Snapshot implements internal/lifecycle.Snapshotter: it runs one poll,
// simulates the best cycle found (if any) at the configured input amount,
// and records the result into that pool pair's spread.Tracker so a later
// ShouldExecute call has history to evaluate. blockNumber is accepted to
// satisfy the interface; the underlying RPC reads always hit latest state.
func (p *Poller) Snapshot(ctx context.Context, blockNumber uint64) (int32, string, string, error) {
	cycles, err := p.poll(ctx)
	if err != nil {
		return 0, "", "", err
	}
	if len(cycles) == 0 {
		return 0, "", "", nil
	}

	best := cycles[0]
	result, err := p.simulator.SimulateCycle(ctx, best, p.inputAmount)
	if err != nil {
		return 0, "", "", fmt.Errorf("simulate best cycle: %w", err)
	}

	buyPool := best.Pools[0].Hex()
	sellPool := best.Pools[len(best.Pools)-1].Hex()

	p.recordSpread(buyPool, sellPool, best, result)

	return result.NetProfitBps, buyPool, sellPool, nil
}

func (p *Poller) recordSpread(buyPool, sellPool string, c cycle.ArbitrageCycle, result simulation.Result) {
	key := buyPool + "->" + sellPool

	p.mu.Lock()
	defer p.mu.Unlock()

	tracker, ok := p.trackers[key]
	if !ok {
		tracker = spread.NewTracker(trackerCapacity)
		p.trackers[key] = tracker
	}

	var buyPrice, sellPrice float64
	if len(c.Prices) > 0 {
		buyPrice = c.Prices[0]
		sellPrice = c.Prices[len(c.Prices)-1]
	}

	tracker.Record(spread.Snapshot{
		Timestamp:      time.Now(),
		BuyPool:        buyPool,
		SellPool:       sellPool,
		BuyPrice:       buyPrice,
		SellPrice:      sellPrice,
		GrossSpreadBps: float64(result.GrossProfitBps),
		NetSpreadBps:   float64(result.NetProfitBps),
	})
	p.lastPairKey = key
}

// ShouldExecute implements internal/lifecycle.Filter: it evaluates the
// spread.Tracker for the pair the most recent Snapshot call found, falling
// back to a skip when there isn't a tracker yet or it doesn't hold enough
// history for Analyze to compute a velocity.
func (p *Poller) ShouldExecute(blockNumber uint64, proposedSpreadBps int32) (bool, string) {
	p.mu.Lock()
	tracker, ok := p.trackers[p.lastPairKey]
	p.mu.Unlock()
	if !ok {
		return false, "no tracked spread history yet"
	}

	velocity, ok := tracker.Analyze()
	if !ok {
		return false, "no tracked spread history yet"
	}

	decision := p.filterCfg.Evaluate(velocity)
	return decision.Execute, decision.Reason
}
