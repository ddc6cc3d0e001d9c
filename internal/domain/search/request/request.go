package request

import (
	"fmt"
	"strings"

	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/domain"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed search query length.
	MaxQueryLength = 4096
	DefaultLimit   = 5
	MaxLimit       = 50
)

// Request is a validated shopper query.
type Request struct {
	query string
	limit int
}

// Limits bounds result counts for one deployment. Zero fields fall back to
// DefaultLimit and MaxLimit.
type Limits struct {
	Default int
	Max     int
}

func (l Limits) resolved() Limits {
	if l.Default <= 0 {
		l.Default = DefaultLimit
	}
	if l.Max <= 0 {
		l.Max = MaxLimit
	}
	return l
}

// New validates and normalizes search parameters with the package defaults.
// A zero limit means DefaultLimit.
func New(query string, limit int) (Request, error) {
	return NewWithLimits(query, limit, Limits{})
}

// NewWithLimits is New with configured bounds.
func NewWithLimits(query string, limit int, lim Limits) (Request, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return Request{}, fmt.Errorf("%w: query is required", domain.ErrInvalidRequest)
	}
	if len(q) > MaxQueryLength {
		return Request{}, fmt.Errorf("%w: query too long (max %d chars)", domain.ErrInvalidRequest, MaxQueryLength)
	}
	lim = lim.resolved()
	l, err := ResolveLimit(limit, lim.Default, lim.Max)
	if err != nil {
		return Request{}, err
	}
	return Request{query: q, limit: l}, nil
}

// ResolveLimit applies the limit policy: zero takes def, negative is
// rejected, anything above max is clamped.
func ResolveLimit(limit, def, maxLimit int) (int, error) {
	switch {
	case limit < 0:
		return 0, fmt.Errorf("%w: limit must not be negative, got %d", domain.ErrInvalidRequest, limit)
	case limit == 0:
		limit = def
	}
	if maxLimit > 0 && limit > maxLimit {
		limit = maxLimit
	}
	return limit, nil
}

// Query returns the trimmed query text.
func (r *Request) Query() string { return r.query }

// Limit returns the maximum results to return.
func (r *Request) Limit() int { return r.limit }
