package activity

import "time"

// Kind classifies an activity entry.
type Kind string

// Activity kinds.
const (
	Search     Kind = "search"
	Inventory  Kind = "inventory"
	Order      Kind = "order"
	Embedding  Kind = "embedding"
	MCP        Kind = "mcp"
	Delegation Kind = "delegation"
	Error      Kind = "error"
	Result     Kind = "result"
)

// IsValid checks if the kind is one of the supported values.
func (k Kind) IsValid() bool {
	switch k {
	case Search, Inventory, Order, Embedding, MCP, Delegation, Error, Result:
		return true
	}
	return false
}

// Entry is one recorded step of a request (immutable value object).
type Entry struct {
	id         string
	timestamp  time.Time
	kind       Kind
	title      string
	detail     string
	displaySQL string
	duration   time.Duration
	timed      bool
	actor      string
}

// ID returns the unique entry identifier.
func (e *Entry) ID() string { return e.id }

// Timestamp returns when the step was recorded, in UTC.
func (e *Entry) Timestamp() time.Time { return e.timestamp }

// Kind returns the entry classification.
func (e *Entry) Kind() Kind { return e.kind }

// Title returns the one-line summary.
func (e *Entry) Title() string { return e.title }

// Detail returns the optional longer description.
func (e *Entry) Detail() string { return e.detail }

// DisplaySQL returns the audit rendering of a query. It is never executed.
func (e *Entry) DisplaySQL() string { return e.displaySQL }

// Duration returns how long the step took, if it was timed.
func (e *Entry) Duration() (time.Duration, bool) { return e.duration, e.timed }

// Actor returns who performed the step (backend or delegated agent).
func (e *Entry) Actor() string { return e.actor }

// Option sets an optional entry attribute.
type Option func(*Entry)

// WithDetail attaches a longer description.
func WithDetail(detail string) Option {
	return func(e *Entry) { e.detail = detail }
}

// WithSQL attaches the display form of a query.
func WithSQL(sql string) Option {
	return func(e *Entry) { e.displaySQL = sql }
}

// WithDuration attaches the step duration.
func WithDuration(d time.Duration) Option {
	return func(e *Entry) {
		e.duration = d
		e.timed = true
	}
}

// WithActor overrides the recorder's actor for one entry.
func WithActor(actor string) Option {
	return func(e *Entry) { e.actor = actor }
}
