package search

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/domain"
	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/domain/activity"
	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/domain/product"
	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/domain/search/intent"
	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/domain/search/mode"
	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/domain/search/request"
	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/logger"
	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/metrics"
)

// Execution path label values.
const (
	PathParameterized = "parameterized"
	PathLiteral       = "literal"
	PathRanked        = "ranked"
)

// Outcome is an ordered result set plus how it was produced.
type Outcome struct {
	Mode     mode.Mode
	Products []product.Scored
	Display  string
	// Degradation is set when hybrid ranking fell back to fuzzy matching.
	Degradation *domain.RankingDegradation
}

// Executor runs keyword-planned product searches.
type Executor struct {
	products     ProductFinder
	defaultLimit int
	maxLimit     int
}

// NewExecutor creates a strategy executor.
func NewExecutor(products ProductFinder, defaultLimit, maxLimit int) *Executor {
	if defaultLimit <= 0 {
		defaultLimit = request.DefaultLimit
	}
	if maxLimit <= 0 {
		maxLimit = request.MaxLimit
	}
	return &Executor{products: products, defaultLimit: defaultLimit, maxLimit: maxLimit}
}

// Plan selects the strategy for in and builds its statement.
func (e *Executor) Plan(in intent.Intent, limit int) (Plan, error) {
	limit, err := request.ResolveLimit(limit, e.defaultLimit, e.maxLimit)
	if err != nil {
		return Plan{}, err
	}
	return newPlan(&in, limit, false), nil
}

// Search runs the plan with bound parameters.
func (e *Executor) Search(ctx context.Context, in intent.Intent, limit int, rec *activity.Recorder) (Outcome, error) {
	p, err := e.Plan(in, limit)
	if err != nil {
		return Outcome{}, err
	}
	return e.run(ctx, p, PathParameterized, rec)
}

// SearchLiteral runs the plan as interpolated SQL text.
func (e *Executor) SearchLiteral(ctx context.Context, in intent.Intent, limit int, rec *activity.Recorder) (Outcome, error) {
	p, err := e.Plan(in, limit)
	if err != nil {
		return Outcome{}, err
	}
	return e.run(ctx, p, PathLiteral, rec)
}

// Fuzzy forces text matching on the parameterized path.
func (e *Executor) Fuzzy(ctx context.Context, in intent.Intent, limit int, rec *activity.Recorder) (Outcome, error) {
	limit, err := request.ResolveLimit(limit, e.defaultLimit, e.maxLimit)
	if err != nil {
		return Outcome{}, err
	}
	return e.run(ctx, newPlan(&in, limit, true), PathParameterized, rec)
}

func (e *Executor) run(ctx context.Context, p Plan, path string, rec *activity.Recorder) (Outcome, error) {
	start := time.Now()
	var (
		found []product.Product
		err   error
		kind  = activity.Search
	)
	if path == PathLiteral {
		kind = activity.MCP
		found, err = e.products.FindLiteral(ctx, p.Literal)
	} else {
		found, err = e.products.Find(ctx, p.SQL, p.Args...)
	}
	elapsed := time.Since(start)
	metrics.SearchRequestsTotal.WithLabelValues(string(p.Mode), path, metrics.Status(err)).Inc()
	if err != nil {
		logger.FromContext(ctx).Warn("product search failed",
			zap.String("strategy", string(p.Mode)),
			zap.String("path", path),
			zap.Error(err),
		)
		return Outcome{}, fmt.Errorf("%s search: %w", p.Mode, err)
	}

	rec.Record(kind, p.Title,
		activity.WithSQL(p.Display),
		activity.WithDuration(elapsed),
		activity.WithDetail(fmt.Sprintf("Found %d products", len(found))),
	)
	return Outcome{Mode: p.Mode, Products: product.Plain(found), Display: p.Display}, nil
}
