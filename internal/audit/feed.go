package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	EventDecision    = "decision"
	EventWriteFailed = "write_failed"
)

// Event is what operator subscribers see: every decision that was
// recorded, plus every failed attempt to record one.
type Event struct {
	Type  string `json:"type"`
	Entry Entry  `json:"entry"`
	Error string `json:"error,omitempty"`
}

// Feed wraps a Sink and fans out every record (and record failure) to
// subscribers. Sink errors still propagate to the caller.
type Feed struct {
	sink Sink

	mu     sync.Mutex
	nextID int
	subs   map[int]chan Event
	onDrop func()
}

func NewFeed(sink Sink) *Feed {
	return &Feed{
		sink: sink,
		subs: make(map[int]chan Event),
	}
}

// SetDropHook registers a callback invoked whenever a slow subscriber
// causes an event to be dropped.
func (f *Feed) SetDropHook(hook func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onDrop = hook
}

// Subscribe returns a buffered event channel and a cancel func. The
// channel is closed on cancel.
func (f *Feed) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 64
	}
	ch := make(chan Event, buffer)

	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.subs[id] = ch
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if sub, ok := f.subs[id]; ok {
			delete(f.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

func (f *Feed) Record(ctx context.Context, entry Entry) error {
	// Fill the identity here so subscribers see the same id and timestamp
	// the sink persists; sinks keep their own defaults as a fallback.
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	err := f.sink.Record(ctx, entry)
	if err != nil {
		f.publish(Event{Type: EventWriteFailed, Entry: entry, Error: err.Error()})
		return err
	}
	f.publish(Event{Type: EventDecision, Entry: entry})
	return nil
}

func (f *Feed) Recent(ctx context.Context, limit int) ([]Entry, error) {
	return f.sink.Recent(ctx, limit)
}

func (f *Feed) Close() error {
	f.mu.Lock()
	for id, ch := range f.subs {
		delete(f.subs, id)
		close(ch)
	}
	f.mu.Unlock()
	return f.sink.Close()
}

func (f *Feed) publish(ev Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.subs {
		select {
		case ch <- ev:
		default:
			// Never let a stuck operator connection block the recommendation path.
			if f.onDrop != nil {
				f.onDrop()
			}
		}
	}
}
