package lifecycle

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// maxTrackedBlocks bounds how many in-flight BlockLifecycle records the
// observer keeps; older blocks are evicted.
const maxTrackedBlocks = 20

// readTimeout is the per-message WebSocket read deadline. Expiry does not
// tear down the connection; only a write/read error does. Persistent
// silence is the outer orchestration layer's reconnect signal.
const readTimeout = 5 * time.Second

// subscribeRequest is a raw JSON-RPC 2.0 eth_subscribe call. The observer
// speaks the wire protocol directly rather than using an ethclient typed
// subscription, because the commitState tag on this chain's new-heads
// payload is non-standard and go-ethereum's header type has no field for
// it.
type subscribeRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

// subscriptionNotification is the envelope wrapping each new-heads push
// once the subscription is live.
type subscriptionNotification struct {
	Method string `json:"method"`
	Params struct {
		Subscription string          `json:"subscription"`
		Result       json.RawMessage `json:"result"`
	} `json:"params"`
}

// subscribeResponse is the one-shot reply to the initial eth_subscribe
// call, carrying the subscription id used to match later notifications.
type subscribeResponse struct {
	ID     int    `json:"id"`
	Result string `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Snapshotter takes a best-cross-venue-spread reading for a block at the
// moment a commit-state notification for it arrives. It is supplied by the
// caller and backed by the poller's pool snapshot + graph infrastructure,
// which batches its RPC reads.
type Snapshotter interface {
	Snapshot(ctx context.Context, blockNumber uint64) (bestSpreadBps int32, buyPool, sellPool string, err error)
}

// Filter decides whether a Proposed-state spread should trigger execution,
// matching internal/spread.FilterConfig.Evaluate's Decision shape without
// importing that package directly (the observer only needs the boolean
// gate, keeping this package's dependency surface small).
type Filter interface {
	ShouldExecute(blockNumber uint64, proposedSpreadBps int32) (execute bool, reason string)
}

// Trigger is emitted when a Proposed-state spread clears both the
// configured threshold and the spread filter.
type Trigger struct {
	BlockNumber       uint64
	ProposedSpreadBps int32
	BuyPool           string
	SellPool          string
	ObservedAt        time.Time
}

// Observer dials a chain WebSocket endpoint, subscribes to the
// commitState-tagged new-heads channel, and maintains one BlockLifecycle
// record per in-flight block. A Proposed notification whose spread clears
// TriggerThresholdBps and the supplied Filter is pushed onto Triggers.
type Observer struct {
	URL                 string
	SubscribeMethod     string // e.g. "eth_subscribe"; params is ["newHeads"] chain-specific variant
	SubscribeParams     []interface{}
	Snap                Snapshotter
	Filt                Filter
	TriggerThresholdBps int32

	Triggers chan Trigger

	mu     sync.Mutex
	blocks map[uint64]*BlockLifecycle
	order  []uint64 // insertion order, oldest first, for eviction
}

// NewObserver builds an Observer against url, using snap to take spread
// snapshots and filt to gate triggers. subscribeParams are passed verbatim
// as the eth_subscribe params array (chain-specific — e.g.
// ["newHeads", map[string]bool{"commitState": true}]).
func NewObserver(url string, snap Snapshotter, filt Filter, triggerThresholdBps int32, subscribeParams []interface{}) *Observer {
	return &Observer{
		URL:                 url,
		SubscribeMethod:     "eth_subscribe",
		SubscribeParams:     subscribeParams,
		Snap:                snap,
		Filt:                filt,
		TriggerThresholdBps: triggerThresholdBps,
		Triggers:            make(chan Trigger, 16),
		blocks:              make(map[uint64]*BlockLifecycle),
	}
}

// Run dials the WebSocket endpoint, subscribes, and processes
// notifications until ctx is cancelled or the connection fails. Callers
// that want automatic reconnect should call Run in a loop from the outer
// orchestration layer; this method does not reconnect on its own.
func (o *Observer) Run(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, o.URL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", o.URL, err)
	}
	defer conn.Close()

	req := subscribeRequest{JSONRPC: "2.0", ID: 1, Method: o.SubscribeMethod, Params: o.SubscribeParams}
	if err := conn.WriteJSON(req); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	var resp subscribeResponse
	if err := conn.ReadJSON(&resp); err != nil {
		return fmt.Errorf("read subscribe response: %w", err)
	}
	if resp.Error != nil {
		return fmt.Errorf("subscribe rejected: %s", resp.Error.Message)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ne, ok := err.(interface{ Timeout() bool }); ok && ne.Timeout() {
				// A read timeout does not tear the loop down.
				continue
			}
			return fmt.Errorf("read: %w", err)
		}

		var note subscriptionNotification
		if err := json.Unmarshal(raw, &note); err != nil {
			log.Printf("lifecycle: malformed notification: %v", err)
			continue
		}
		var hdr BlockHeader
		if err := json.Unmarshal(note.Params.Result, &hdr); err != nil {
			log.Printf("lifecycle: malformed block header: %v", err)
			continue
		}

		o.handleHeader(ctx, hdr)
	}
}

func (o *Observer) handleHeader(ctx context.Context, hdr BlockHeader) {
	state, ok := hdr.State()
	if !ok {
		return
	}
	blockNumber := hdr.BlockNumber()

	rec := o.recordFor(blockNumber)

	if state == StateVoted || state == StateVerified {
		// Voted and Verified are timestamp-only: no price snapshot is taken.
		o.mu.Lock()
		rec.Record(PriceSnapshot{BlockNumber: blockNumber, CommitState: state, ObservedAt: time.Now()})
		o.mu.Unlock()
		return
	}

	bestBps, buyPool, sellPool, err := o.Snap.Snapshot(ctx, blockNumber)
	if err != nil {
		log.Printf("lifecycle: snapshot block %d at %s: %v", blockNumber, state, err)
		return
	}

	// Records are read concurrently by Completed's drain loop, so every
	// mutation happens under o.mu.
	o.mu.Lock()
	rec.Record(PriceSnapshot{
		BlockNumber:   blockNumber,
		CommitState:   state,
		ObservedAt:    time.Now(),
		BestSpreadBps: bestBps,
		BuyPool:       buyPool,
		SellPool:      sellPool,
	})
	o.mu.Unlock()

	if state != StateProposed {
		return
	}
	if bestBps < o.TriggerThresholdBps {
		return
	}
	execute, reason := o.Filt.ShouldExecute(blockNumber, bestBps)
	if !execute {
		log.Printf("lifecycle: block %d spread %dbps vetoed: %s", blockNumber, bestBps, reason)
		return
	}
	select {
	case o.Triggers <- Trigger{BlockNumber: blockNumber, ProposedSpreadBps: bestBps, BuyPool: buyPool, SellPool: sellPool, ObservedAt: time.Now()}:
	default:
		// A trigger dropped under backpressure is logged, not queued.
		log.Printf("lifecycle: trigger dropped for block %d under backpressure", blockNumber)
	}
}

// recordFor returns the BlockLifecycle for blockNumber, creating it if
// absent, and evicts the oldest tracked record once more than
// maxTrackedBlocks are in flight.
func (o *Observer) recordFor(blockNumber uint64) *BlockLifecycle {
	o.mu.Lock()
	defer o.mu.Unlock()

	rec, ok := o.blocks[blockNumber]
	if !ok {
		rec = NewBlockLifecycle(blockNumber)
		o.blocks[blockNumber] = rec
		o.order = append(o.order, blockNumber)
		for len(o.order) > maxTrackedBlocks {
			delete(o.blocks, o.order[0])
			o.order = o.order[1:]
		}
	}
	return rec
}

// Completed returns a snapshot copy of every complete (both Proposed and
// Finalized observed) BlockLifecycle not yet drained, marking each as
// drained so a record is handed to persistence exactly once. The record
// itself stays tracked so late Voted/Verified notifications still merge.
func (o *Observer) Completed() []*BlockLifecycle {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]*BlockLifecycle, 0, len(o.blocks))
	for _, n := range o.order {
		rec := o.blocks[n]
		if !rec.IsComplete() || rec.drained {
			continue
		}
		rec.drained = true
		cp := *rec
		out = append(out, &cp)
	}
	return out
}
