package activity

import (
	"sync/atomic"
	"testing"
	"time"
)

type captureSink struct{ got []Entry }

func (s *captureSink) Publish(e Entry) { s.got = append(s.got, e) }

func TestRecorder_OrderAndFields(t *testing.T) {
	sink := &captureSink{}
	rec := NewRecorder("direct", sink)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("PST", -8*3600))
	rec.now = func() time.Time { return fixed }

	rec.Record(Search, "Category filter: Apparel",
		WithSQL("SELECT ... FROM products WHERE category = 'Apparel'"),
		WithDuration(12*time.Millisecond))
	rec.Record(Result, "Found 3 products", WithDetail("price ascending"), WithActor("supervisor"))

	entries := rec.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	first, second := entries[0], entries[1]
	if first.Kind() != Search || second.Kind() != Result {
		t.Errorf("order not preserved: %s, %s", first.Kind(), second.Kind())
	}
	if first.ID() == "" || first.ID() == second.ID() {
		t.Errorf("ids must be unique and non-empty: %q %q", first.ID(), second.ID())
	}
	if first.Timestamp().Location() != time.UTC || !first.Timestamp().Equal(fixed) {
		t.Errorf("timestamp must be UTC: %v", first.Timestamp())
	}
	if d, ok := first.Duration(); !ok || d != 12*time.Millisecond {
		t.Errorf("Duration() = %v, %v", d, ok)
	}
	if _, ok := second.Duration(); ok {
		t.Error("untimed entry reports a duration")
	}
	if first.Actor() != "direct" || second.Actor() != "supervisor" {
		t.Errorf("actors = %q, %q", first.Actor(), second.Actor())
	}
	if len(sink.got) != 2 || sink.got[1].Title() != "Found 3 products" {
		t.Errorf("sink got %d entries", len(sink.got))
	}
}

func TestRecorder_NilIsNoop(t *testing.T) {
	var rec *Recorder
	rec.Record(Error, "ignored")
	if rec.Entries() != nil || rec.Count(Error) != 0 {
		t.Error("nil recorder must record nothing")
	}
}

func TestRecorder_EntriesIsCopy(t *testing.T) {
	rec := NewRecorder("", nil)
	rec.Record(Search, "a")
	got := rec.Entries()
	got[0] = Entry{}
	if rec.Entries()[0].Title() != "a" {
		t.Error("Entries() exposed internal slice")
	}
}

func TestRecorder_Count(t *testing.T) {
	rec := NewRecorder("", nil)
	rec.Record(Search, "a")
	rec.Record(Error, "b")
	rec.Record(Error, "c")
	if rec.Count(Error) != 2 || rec.Count(Order) != 0 {
		t.Errorf("Count() = %d/%d", rec.Count(Error), rec.Count(Order))
	}
}

func TestKind_IsValid(t *testing.T) {
	for _, k := range []Kind{Search, Inventory, Order, Embedding, MCP, Delegation, Error, Result} {
		if !k.IsValid() {
			t.Errorf("%q should be valid", k)
		}
	}
	if Kind("debug").IsValid() {
		t.Error("unknown kind accepted")
	}
}

func TestHub_FanOut(t *testing.T) {
	hub := NewHub(4, nil)
	a, cancelA := hub.Subscribe()
	b, cancelB := hub.Subscribe()
	defer cancelA()
	defer cancelB()

	rec := NewRecorder("", hub)
	rec.Record(Search, "hello")

	for _, ch := range []<-chan Entry{a, b} {
		select {
		case e := <-ch:
			if e.Title() != "hello" {
				t.Errorf("got %q", e.Title())
			}
		default:
			t.Fatal("subscriber did not receive entry")
		}
	}
}

func TestHub_SlowSubscriberDropsWithoutBlocking(t *testing.T) {
	var dropped atomic.Int64
	hub := NewHub(1, func() { dropped.Add(1) })
	ch, cancel := hub.Subscribe()
	defer cancel()

	rec := NewRecorder("", hub)
	for i := 0; i < 5; i++ {
		rec.Record(Search, "step")
	}

	if len(ch) != 1 {
		t.Errorf("expected 1 buffered entry, got %d", len(ch))
	}
	if dropped.Load() != 4 {
		t.Errorf("expected 4 drops, got %d", dropped.Load())
	}
	if len(rec.Entries()) != 5 {
		t.Error("recorder must keep every entry regardless of subscribers")
	}
}

func TestHub_CancelClosesAndUnsubscribes(t *testing.T) {
	hub := NewHub(0, nil)
	ch, cancel := hub.Subscribe()
	if hub.Subscribers() != 1 {
		t.Fatalf("Subscribers() = %d", hub.Subscribers())
	}
	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Error("channel should be closed")
	}
	if hub.Subscribers() != 0 {
		t.Errorf("Subscribers() = %d after cancel", hub.Subscribers())
	}
	hub.Publish(Entry{})
}
