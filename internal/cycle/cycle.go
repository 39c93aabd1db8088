// Package cycle implements the bounded depth-first search that finds
// profitable arbitrage cycles in a graph.Graph: a closed walk whose edge
// weights (each -ln(effective_price)) sum to a negative total, i.e. whose
// expected_return = exp(-total_weight) exceeds 1.
package cycle

import (
	"math"
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"github.com/shadowline-labs/monadarb/internal/dex"
	"github.com/shadowline-labs/monadarb/internal/graph"
	"github.com/shadowline-labs/monadarb/internal/token"
)

// ArbitrageCycle is one validated, closed walk through the graph.
type ArbitrageCycle struct {
	Path          []token.Token
	Pools         []common.Address
	Dexes         []dex.Variant
	TotalWeight   float64
	ExpectedReturn float64
	Prices        []float64
	Fees          []uint32
}

// ProfitPercentage expresses ExpectedReturn as a signed percentage.
func (c ArbitrageCycle) ProfitPercentage() float64 {
	return (c.ExpectedReturn - 1.0) * 100.0
}

// ProfitBps expresses ExpectedReturn in whole basis points, truncated. A
// tiny epsilon absorbs float64 representation error so that, e.g., 1.015
// yields 150 rather than 149.
func (c ArbitrageCycle) ProfitBps() uint32 {
	return uint32(math.Floor((c.ExpectedReturn-1.0)*10000.0 + 1e-6))
}

// HopCount is the number of pool hops in the cycle.
func (c ArbitrageCycle) HopCount() int { return len(c.Pools) }

// IsCrossDex reports whether the cycle crosses more than one DEX family.
func (c ArbitrageCycle) IsCrossDex() bool {
	if len(c.Dexes) == 0 {
		return false
	}
	first := c.Dexes[0]
	for _, d := range c.Dexes {
		if d != first {
			return true
		}
	}
	return false
}

// AvgFeeBps is the mean of Fees, converted from hundredths-of-a-bp to bps.
func (c ArbitrageCycle) AvgFeeBps() float64 {
	if len(c.Fees) == 0 {
		return 0
	}
	var sum float64
	for _, f := range c.Fees {
		sum += float64(f)
	}
	return sum / float64(len(c.Fees)) / 100.0
}

// Bounds on a validated cycle's expected return: below
// minReturnFloor it's noise, above maxReturnCeiling it's almost certainly a
// stale-price artifact rather than a real opportunity.
const (
	minReturnFloor   = 1.0001
	maxReturnCeiling = 1.5
)

// IsValid checks the cycle's structural invariants: a closed
// walk of unique intermediates and unique pools, with a finite expected
// return inside the plausible range.
func (c ArbitrageCycle) IsValid() bool {
	if len(c.Path) < 3 {
		return false
	}
	if c.Path[0] != c.Path[len(c.Path)-1] {
		return false
	}
	if len(c.Path) != len(c.Pools)+1 {
		return false
	}

	intermediate := c.Path[1 : len(c.Path)-1]
	seen := make(map[token.Token]struct{}, len(intermediate))
	for _, t := range intermediate {
		if _, dup := seen[t]; dup {
			return false
		}
		seen[t] = struct{}{}
	}
	if _, ok := seen[c.Path[0]]; ok {
		return false
	}

	seenPools := make(map[common.Address]struct{}, len(c.Pools))
	for _, p := range c.Pools {
		if _, dup := seenPools[p]; dup {
			return false
		}
		seenPools[p] = struct{}{}
	}

	if c.ExpectedReturn <= 0 || math.IsInf(c.ExpectedReturn, 0) || math.IsNaN(c.ExpectedReturn) {
		return false
	}
	if c.ExpectedReturn > maxReturnCeiling {
		return false
	}
	if c.ExpectedReturn < minReturnFloor {
		return false
	}

	return true
}

// Detector enumerates profitable closed walks by bounded DFS.
type Detector struct {
	graph     *graph.Graph
	maxHops   int
	minReturn float64
}

// NewDetector builds a Detector bound to g, exploring paths up to maxHops
// edges and only emitting cycles whose expected return clears
// 1+minProfitBps/10000.
func NewDetector(g *graph.Graph, maxHops int, minProfitBps uint32) *Detector {
	return &Detector{
		graph:     g,
		maxHops:   maxHops,
		minReturn: 1.0 + float64(minProfitBps)/10000.0,
	}
}

type dfsFrame struct {
	path   []token.Token
	pools  []common.Address
	dexes  []dex.Variant
	prices []float64
	fees   []uint32
}

// FindCyclesFrom runs the bounded DFS starting and ending at start.
func (d *Detector) FindCyclesFrom(start token.Token) []ArbitrageCycle {
	var cycles []ArbitrageCycle
	if _, ok := d.graph.IndexOf(start); !ok {
		return cycles
	}

	visited := map[token.Token]struct{}{}
	d.dfs(start, start, dfsFrame{}, visited, 0.0, &cycles, 1)
	return cycles
}

func (d *Detector) dfs(start, current token.Token, frame dfsFrame, visited map[token.Token]struct{}, totalWeight float64, cycles *[]ArbitrageCycle, depth int) {
	path := append(append([]token.Token{}, frame.path...), current)
	frame.path = path

	if depth > 1 {
		// Only copy-on-write what changes; the caller's visited set for
		// sibling branches must stay untouched.
		next := make(map[token.Token]struct{}, len(visited)+1)
		for k := range visited {
			next[k] = struct{}{}
		}
		next[current] = struct{}{}
		visited = next
	}

	if depth > d.maxHops {
		return
	}

	for _, edge := range d.graph.Edges(current) {
		newWeight := totalWeight + edge.Weight

		if edge.TokenOut == start && depth >= 2 {
			expectedReturn := math.Exp(-newWeight)
			if expectedReturn < d.minReturn {
				continue
			}

			finalPath := append(append([]token.Token{}, path...), start)
			finalPools := append(append([]common.Address{}, frame.pools...), edge.Pool.Address)
			finalDexes := append(append([]dex.Variant{}, frame.dexes...), edge.Pool.Dex)
			finalPrices := append(append([]float64{}, frame.prices...), edge.EffectivePrice)
			finalFees := append(append([]uint32{}, frame.fees...), edge.Pool.FeeRaw)

			c := ArbitrageCycle{
				Path:           finalPath,
				Pools:          finalPools,
				Dexes:          finalDexes,
				TotalWeight:    newWeight,
				ExpectedReturn: expectedReturn,
				Prices:         finalPrices,
				Fees:           finalFees,
			}
			if c.IsValid() {
				*cycles = append(*cycles, c)
			}
			continue
		}

		if _, already := visited[edge.TokenOut]; already || depth >= d.maxHops {
			continue
		}

		nextFrame := dfsFrame{
			path:   path,
			pools:  append(append([]common.Address{}, frame.pools...), edge.Pool.Address),
			dexes:  append(append([]dex.Variant{}, frame.dexes...), edge.Pool.Dex),
			prices: append(append([]float64{}, frame.prices...), edge.EffectivePrice),
			fees:   append(append([]uint32{}, frame.fees...), edge.Pool.FeeRaw),
		}
		d.dfs(start, edge.TokenOut, nextFrame, visited, newWeight, cycles, depth+1)
	}
}

// FindAllCycles runs FindCyclesFrom for each base token, dedups by
// signature (the sorted set of pool addresses — independent of which base
// token the walk happened to start from), and returns the unique cycles
// sorted by descending expected return.
func (d *Detector) FindAllCycles(baseTokens []token.Token) []ArbitrageCycle {
	var all []ArbitrageCycle
	seen := make(map[string]struct{})

	for _, t := range baseTokens {
		for _, c := range d.FindCyclesFrom(t) {
			sig := signature(c)
			if _, dup := seen[sig]; dup {
				continue
			}
			seen[sig] = struct{}{}
			all = append(all, c)
		}
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].ExpectedReturn > all[j].ExpectedReturn
	})
	return all
}

// signature canonicalizes a cycle by its sorted pool addresses, so the same
// physical loop discovered from two different base tokens (or walked in
// either direction) produces the same signature.
func signature(c ArbitrageCycle) string {
	addrs := make([]string, len(c.Pools))
	for i, p := range c.Pools {
		addrs[i] = p.Hex()
	}
	sort.Strings(addrs)

	out := ""
	for i, a := range addrs {
		if i > 0 {
			out += "-"
		}
		out += a
	}
	return out
}
