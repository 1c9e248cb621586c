package changefeed

import (
	"context"
	"sync"
	"time"

	"vinflow/internal/stages"
)

// Kind names the class of ledger change an event describes.
type Kind string

const (
	KindUnitCreated     Kind = "unit_created"
	KindStageChanged    Kind = "stage_changed"
	KindPriorityChanged Kind = "priority_changed"
	KindNoteAdded       Kind = "note_added"
	KindPartsHold       Kind = "parts_hold"
	KindCostChanged     Kind = "cost_changed"
)

// Event is one ledger change published to the feed.
type Event struct {
	Sequence    uint64       `json:"seq"`
	Timestamp   time.Time    `json:"ts"`
	Kind        Kind         `json:"kind"`
	UnitID      string       `json:"unit_id"`
	StockNumber string       `json:"stock_number,omitempty"`
	UnitName    string       `json:"unit_name,omitempty"`
	Actor       string       `json:"actor,omitempty"`
	FromStage   stages.Stage `json:"from_stage,omitempty"`
	ToStage     stages.Stage `json:"to_stage,omitempty"`
	Priority    string       `json:"priority,omitempty"`
	Detail      string       `json:"detail,omitempty"`
}

// Sink receives every published event synchronously.
type Sink interface {
	Append(Event)
}

// Feed stores recent ledger change events and wakes waiters when new
// events arrive. The buffer is bounded; consumers detect dropped events
// through sequence gaps and resynchronize from the ledger.
type Feed struct {
	mu       sync.Mutex
	cond     *sync.Cond
	capacity int
	buffer   []Event
	nextSeq  uint64
	sinks    []Sink
}

// New constructs a bounded in-memory change fan-out buffer.
func New(capacity int) *Feed {
	if capacity <= 0 {
		capacity = 512
	}
	f := &Feed{capacity: capacity}
	f.cond = sync.NewCond(&f.mu)
	return f
}

// AddSink wires an additional sink that receives every published event.
func (f *Feed) AddSink(sink Sink) {
	if f == nil || sink == nil {
		return
	}
	f.mu.Lock()
	f.sinks = append(f.sinks, sink)
	f.mu.Unlock()
}

// Publish appends a new event to the feed and delivers it to sinks.
func (f *Feed) Publish(evt Event) {
	if f == nil {
		return
	}
	f.mu.Lock()
	f.nextSeq++
	evt.Sequence = f.nextSeq
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}

	if len(f.buffer) == f.capacity {
		copy(f.buffer, f.buffer[1:])
		f.buffer = f.buffer[:f.capacity-1]
	}
	f.buffer = append(f.buffer, evt)
	sinks := append([]Sink(nil), f.sinks...)
	f.cond.Broadcast()
	f.mu.Unlock()

	for _, sink := range sinks {
		sink.Append(evt)
	}
}

// Fetch returns all events with sequence greater than since. When wait is
// true, Fetch blocks until at least one event is available or the context
// ends. Callers detect missed events by comparing the first returned
// sequence against since+1.
func (f *Feed) Fetch(ctx context.Context, since uint64, limit int, wait bool) ([]Event, uint64, error) {
	if f == nil {
		return nil, since, nil
	}
	if limit <= 0 || limit > f.capacity {
		limit = f.capacity
	}

	cancelWait := make(chan struct{})
	if wait && ctx != nil && ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				f.cond.Broadcast()
			case <-cancelWait:
			}
		}()
	}
	defer close(cancelWait)

	f.mu.Lock()
	defer f.mu.Unlock()

	for {
		events, next := f.snapshotLocked(since, limit)
		if len(events) > 0 || !wait {
			return events, next, contextError(ctx)
		}
		if err := contextError(ctx); err != nil {
			return nil, next, err
		}
		f.cond.Wait()
		if err := contextError(ctx); err != nil {
			return nil, next, err
		}
	}
}

// Tail returns the most recent limit events without blocking.
func (f *Feed) Tail(limit int) ([]Event, uint64) {
	if f == nil {
		return nil, 0
	}
	if limit <= 0 || limit > f.capacity {
		limit = f.capacity
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.buffer) == 0 {
		return nil, f.nextSeq
	}
	start := len(f.buffer) - limit
	if start < 0 {
		start = 0
	}
	out := make([]Event, len(f.buffer)-start)
	copy(out, f.buffer[start:])
	return out, f.nextSeq
}

// FirstSequence reports the smallest sequence number still buffered.
func (f *Feed) FirstSequence() uint64 {
	if f == nil {
		return 0
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.buffer) == 0 {
		return f.nextSeq
	}
	return f.buffer[0].Sequence
}

func (f *Feed) snapshotLocked(since uint64, limit int) ([]Event, uint64) {
	if len(f.buffer) == 0 {
		return nil, f.nextSeq
	}
	startIdx := 0
	for i, evt := range f.buffer {
		if evt.Sequence > since {
			startIdx = i
			break
		}
		if i == len(f.buffer)-1 {
			return nil, f.nextSeq
		}
	}
	end := startIdx + limit
	if end > len(f.buffer) {
		end = len(f.buffer)
	}
	out := make([]Event, end-startIdx)
	copy(out, f.buffer[startIdx:end])
	return out, f.nextSeq
}

func contextError(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	return ctx.Err()
}
