// Package multicall batches read-only contract calls through a
// Multicall3-style aggregator contract, so pool discovery can check
// hundreds of candidate (pair, fee) combinations in one round trip instead
// of one eth_call per candidate.
package multicall

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

const aggregate3ABI = `[
	{"name":"aggregate3","type":"function","stateMutability":"payable",
	 "inputs":[{"name":"calls","type":"tuple[]","components":[
		{"name":"target","type":"address"},
		{"name":"allowFailure","type":"bool"},
		{"name":"callData","type":"bytes"}]}],
	 "outputs":[{"name":"returnData","type":"tuple[]","components":[
		{"name":"success","type":"bool"},
		{"name":"returnData","type":"bytes"}]}]}
]`

// Call3 is one sub-call of an aggregate3 batch.
type Call3 struct {
	Target       common.Address
	AllowFailure bool
	CallData     []byte
}

// Result is the outcome of one Call3.
type Result struct {
	Success    bool
	ReturnData []byte
}

type call3Tuple struct {
	Target       common.Address
	AllowFailure bool
	CallData     []byte
}

// Batcher executes Call3 batches against a single deployed aggregator
// contract and reports how many sub-calls were served from its per-poll
// address cache.
type Batcher struct {
	eth     *ethclient.Client
	address common.Address
	abi     abi.ABI

	mu    sync.Mutex
	cache map[cacheKey]common.Address
	hits  uint64
	miss  uint64
}

type cacheKey struct {
	pair [40]byte // token0[20] || token1[20], already sorted by caller
	fee  uint32
}

// New binds a Batcher to the aggregator deployed at address.
func New(eth *ethclient.Client, address common.Address) *Batcher {
	parsed, err := abi.JSON(strings.NewReader(aggregate3ABI))
	if err != nil {
		panic("multicall: invalid embedded abi: " + err.Error())
	}
	return &Batcher{
		eth:     eth,
		address: address,
		abi:     parsed,
		cache:   make(map[cacheKey]common.Address),
	}
}

// Aggregate3 packs calls into one aggregate3 eth_call and decodes the
// per-call results, preserving order. A failed sub-call (allowFailure=true
// and it reverted) is reported as Result{Success: false} rather than an
// error, matching aggregate3's own semantics; Aggregate3 only returns an
// error if the batch call itself could not be made (e.g. RPC failure).
func (b *Batcher) Aggregate3(ctx context.Context, calls []Call3) ([]Result, error) {
	if len(calls) == 0 {
		return nil, nil
	}

	tuples := make([]call3Tuple, len(calls))
	for i, c := range calls {
		tuples[i] = call3Tuple{Target: c.Target, AllowFailure: c.AllowFailure, CallData: c.CallData}
	}

	data, err := b.abi.Pack("aggregate3", tuples)
	if err != nil {
		return nil, fmt.Errorf("multicall: pack aggregate3: %w", err)
	}

	out, err := b.eth.CallContract(ctx, ethereum.CallMsg{To: &b.address, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("multicall: aggregate3 call: %w", err)
	}

	values, err := b.abi.Unpack("aggregate3", out)
	if err != nil {
		return nil, fmt.Errorf("multicall: unpack aggregate3: %w", err)
	}

	// The abi package materializes the result tuple as a struct type with
	// json tags, so the assertion must carry them too.
	raw, ok := values[0].([]struct {
		Success    bool   `json:"success"`
		ReturnData []byte `json:"returnData"`
	})
	if !ok {
		return nil, fmt.Errorf("multicall: unexpected aggregate3 return shape")
	}

	results := make([]Result, len(raw))
	for i, r := range raw {
		results[i] = Result{Success: r.Success, ReturnData: r.ReturnData}
	}
	return results, nil
}

// CachedPairAddress returns a previously discovered (pair, fee) → address
// mapping from this poll's cache, reporting a cache hit.
func (b *Batcher) CachedPairAddress(token0, token1 common.Address, fee uint32) (common.Address, bool) {
	key := pairKey(token0, token1, fee)

	b.mu.Lock()
	defer b.mu.Unlock()

	addr, ok := b.cache[key]
	if ok {
		b.hits++
	} else {
		b.miss++
	}
	return addr, ok
}

// StorePairAddress records a freshly resolved (pair, fee) → address mapping
// for the remainder of this poll.
func (b *Batcher) StorePairAddress(token0, token1 common.Address, fee uint32, addr common.Address) {
	key := pairKey(token0, token1, fee)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.cache[key] = addr
}

// Stats returns cumulative (hits, misses) against the per-poll cache since
// the Batcher was created or last reset.
func (b *Batcher) Stats() (hits, misses uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hits, b.miss
}

// Reset clears the per-poll cache and hit/miss counters; call once per
// polling cycle so stale pair resolutions never leak across cycles.
func (b *Batcher) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cache = make(map[cacheKey]common.Address)
	b.hits = 0
	b.miss = 0
}

func pairKey(token0, token1 common.Address, fee uint32) cacheKey {
	var k cacheKey
	copy(k.pair[:20], token0.Bytes())
	copy(k.pair[20:], token1.Bytes())
	k.fee = fee
	return k
}
