// Package graph builds the directed token-swap graph the cycle detector
// walks: one node per token, two directed edges per accepted pool, weighted
// by -ln(effective price) so that a profitable cycle is a negative-weight
// cycle.
package graph

import (
	"math"

	"github.com/shadowline-labs/monadarb/internal/pool"
	"github.com/shadowline-labs/monadarb/internal/token"
)

// Edge is one directed hop: swapping TokenIn for TokenOut through Pool at
// EffectivePrice (after fees), weighted by -ln(EffectivePrice).
type Edge struct {
	TokenIn        token.Token
	TokenOut       token.Token
	Pool           pool.Pool
	EffectivePrice float64
	Weight         float64
}

// Graph is a rebuilt-per-cycle adjacency list over the token set implied by
// the accepted pools.
type Graph struct {
	Nodes []token.Token
	// Adjacency maps a token's index in Nodes to its outgoing edges.
	Adjacency [][]Edge

	index map[token.Token]int
}

// Build constructs a fresh Graph from scratch from the given pools. Each
// pool contributes up to two directed edges (one per direction); an edge
// whose effective price is non-finite or outside (0, ∞) is dropped rather
// than included with a garbage weight, since a single bad edge can corrupt
// every cycle that crosses it.
func Build(pools []pool.Pool) *Graph {
	g := &Graph{index: make(map[token.Token]int)}

	nodeIndex := func(t token.Token) int {
		if idx, ok := g.index[t]; ok {
			return idx
		}
		idx := len(g.Nodes)
		g.index[t] = idx
		g.Nodes = append(g.Nodes, t)
		g.Adjacency = append(g.Adjacency, nil)
		return idx
	}

	for _, p := range pools {
		i0 := nodeIndex(p.Token0)
		i1 := nodeIndex(p.Token1)

		if edge, ok := buildEdge(p, p.Token0, p.Token1, p.EffectivePrice0to1()); ok {
			g.Adjacency[i0] = append(g.Adjacency[i0], edge)
		}
		if edge, ok := buildEdge(p, p.Token1, p.Token0, p.EffectivePrice1to0()); ok {
			g.Adjacency[i1] = append(g.Adjacency[i1], edge)
		}
	}

	return g
}

func buildEdge(p pool.Pool, tokenIn, tokenOut token.Token, effectivePrice float64) (Edge, bool) {
	if math.IsNaN(effectivePrice) || math.IsInf(effectivePrice, 0) || effectivePrice <= 0 {
		return Edge{}, false
	}
	weight := -math.Log(effectivePrice)
	if math.IsNaN(weight) || math.IsInf(weight, 0) {
		return Edge{}, false
	}
	return Edge{
		TokenIn:        tokenIn,
		TokenOut:       tokenOut,
		Pool:           p,
		EffectivePrice: effectivePrice,
		Weight:         weight,
	}, true
}

// IndexOf returns t's node index and whether it is present in the graph.
func (g *Graph) IndexOf(t token.Token) (int, bool) {
	idx, ok := g.index[t]
	return idx, ok
}

// Edges returns the outgoing edges from t, or nil if t is not a node.
func (g *Graph) Edges(t token.Token) []Edge {
	idx, ok := g.index[t]
	if !ok {
		return nil
	}
	return g.Adjacency[idx]
}
