package activity

import (
	"time"

	"github.com/google/uuid"
)

// Sink receives every recorded entry. Publish must not block.
type Sink interface {
	Publish(e Entry)
}

// Recorder accumulates the ordered activity of a single request.
// It is owned by one goroutine and is not safe for concurrent use.
// A nil *Recorder discards everything.
type Recorder struct {
	actor   string
	sink    Sink
	entries []Entry
	now     func() time.Time
}

// NewRecorder creates a recorder. sink may be nil.
func NewRecorder(actor string, sink Sink) *Recorder {
	return &Recorder{actor: actor, sink: sink, now: time.Now}
}

// Record appends an entry and forwards it to the sink. Never fails.
func (r *Recorder) Record(kind Kind, title string, opts ...Option) Entry {
	if r == nil {
		return Entry{}
	}
	e := Entry{
		id:        uuid.NewString(),
		timestamp: r.now().UTC(),
		kind:      kind,
		title:     title,
		actor:     r.actor,
	}
	for _, opt := range opts {
		opt(&e)
	}
	r.entries = append(r.entries, e)
	if r.sink != nil {
		r.sink.Publish(e)
	}
	return e
}

// Entries returns a copy of the recorded entries in order.
func (r *Recorder) Entries() []Entry {
	if r == nil {
		return nil
	}
	return append([]Entry(nil), r.entries...)
}

// Count returns how many entries of the given kind were recorded.
func (r *Recorder) Count(kind Kind) int {
	if r == nil {
		return 0
	}
	n := 0
	for i := range r.entries {
		if r.entries[i].kind == kind {
			n++
		}
	}
	return n
}
