// Package assistant answers shopper messages by routing them to a search
// backend or placing an order, and reports every step as activity.
package assistant

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/domain"
	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/domain/activity"
	domorder "github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/domain/order"
	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/domain/product"
	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/domain/search/intent"
	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/domain/search/mode"
	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/domain/search/request"
	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/logger"
	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/usecase/search"
)

// Backend selects how a message is answered.
type Backend string

// Backends.
const (
	// Direct binds parameters through the Data API.
	Direct Backend = "direct"
	// MCP sends interpolated SQL to the database tool server.
	MCP Backend = "mcp"
	// Hybrid delegates to a search agent that ranks semantically.
	Hybrid Backend = "hybrid"
)

// IsValid checks if the backend is one of the supported values.
func (b Backend) IsValid() bool {
	return b == Direct || b == MCP || b == Hybrid
}

// NoResultsText is the reply when the search itself failed.
const NoResultsText = "No results, please try again."

// Request is one shopper turn.
type Request struct {
	Message    string
	Backend    Backend
	CustomerID string
	Limit      int
	// Items, with CustomerID, turn the message into an order.
	Items []domorder.Item
}

// Response is the reply and everything that happened to produce it.
type Response struct {
	Text        string
	Mode        mode.Mode
	Products    []product.Scored
	Order       *domorder.Confirmation
	Suggestions []string
	Degraded    bool
	Activities  []activity.Entry
}

// Service answers shopper messages.
type Service struct {
	keyword  KeywordSearcher
	ranked   RankedSearcher
	orders   OrderPlacer
	keywords intent.Keywords
	limits   request.Limits
	suggest  *Suggester
}

// New creates an assistant. ranked may be nil when no embedder is configured;
// hybrid requests then fail validation. limits should match the bounds the
// searchers were built with.
func New(
	keyword KeywordSearcher, ranked RankedSearcher, orders OrderPlacer,
	keywords intent.Keywords, limits request.Limits,
) *Service {
	return &Service{
		keyword:  keyword,
		ranked:   ranked,
		orders:   orders,
		keywords: keywords,
		limits:   limits,
		suggest:  NewSuggester(keywords),
	}
}

// Handle answers one message. sink, when non-nil, receives entries live.
// Search failures are answered, not returned; only invalid requests and
// order failures surface as errors.
func (s *Service) Handle(ctx context.Context, req Request, sink activity.Sink) (Response, error) {
	if req.Backend == "" {
		req.Backend = Direct
	}
	if !req.Backend.IsValid() {
		return Response{}, fmt.Errorf("%w: unknown backend %q", domain.ErrInvalidRequest, req.Backend)
	}
	if req.Backend == Hybrid && s.ranked == nil {
		return Response{}, fmt.Errorf("%w: hybrid backend requires an embedding provider", domain.ErrInvalidRequest)
	}

	ctx = logger.With(ctx, zap.String("backend", string(req.Backend)))
	rec := activity.NewRecorder(string(req.Backend)+"-agent", sink)
	var (
		resp Response
		err  error
	)
	if len(req.Items) > 0 {
		resp, err = s.placeOrder(ctx, req, rec)
	} else {
		resp, err = s.search(ctx, req, rec)
	}
	if err != nil {
		return Response{}, err
	}

	rec.Record(activity.Result, "Response ready", activity.WithDetail(summary(resp)))
	resp.Activities = rec.Entries()
	return resp, nil
}

func (s *Service) search(ctx context.Context, req Request, rec *activity.Recorder) (Response, error) {
	sr, err := request.NewWithLimits(req.Message, req.Limit, s.limits)
	if err != nil {
		return Response{}, err
	}
	in := intent.Parse(sr.Query(), s.keywords)

	var out search.Outcome
	switch req.Backend {
	case MCP:
		out, err = s.keyword.SearchLiteral(ctx, in, sr.Limit(), rec)
	case Hybrid:
		rec.Record(activity.Delegation, "Supervisor delegated to search agent",
			activity.WithDetail(sr.Query()),
			activity.WithActor("supervisor"),
		)
		out, err = s.ranked.Search(ctx, in, sr.Limit(), rec)
	default:
		out, err = s.keyword.Search(ctx, in, sr.Limit(), rec)
	}
	if err != nil {
		logger.FromContext(ctx).Warn("search failed", zap.Error(err))
		rec.Record(activity.Error, "Search failed", activity.WithDetail(err.Error()))
		return Response{Text: NoResultsText}, nil
	}

	resp := Response{
		Mode:     out.Mode,
		Products: out.Products,
		Degraded: out.Degradation != nil,
	}
	if len(out.Products) == 0 {
		resp.Suggestions = s.suggest.Suggest(sr.Query())
		resp.Text = fmt.Sprintf("I couldn't find products matching %q.", sr.Query())
		if len(resp.Suggestions) > 0 {
			resp.Text += " Try: " + strings.Join(resp.Suggestions, ", ") + "."
		}
		return resp, nil
	}
	resp.Text = describe(sr.Query(), out.Products)
	return resp, nil
}

func (s *Service) placeOrder(ctx context.Context, req Request, rec *activity.Recorder) (Response, error) {
	if s.orders == nil {
		return Response{}, fmt.Errorf("%w: ordering is not enabled", domain.ErrInvalidRequest)
	}
	if req.Backend == Hybrid {
		rec.Record(activity.Delegation, "Supervisor delegated to order agent",
			activity.WithDetail(fmt.Sprintf("%d items", len(req.Items))),
			activity.WithActor("supervisor"),
		)
	}
	c, err := s.orders.Place(ctx, req.CustomerID, req.Items, rec)
	if err != nil {
		return Response{}, fmt.Errorf("place order: %w", err)
	}
	text := fmt.Sprintf("Order %s confirmed. Total $%s, arriving by %s.",
		c.OrderID, c.Quote.Total.StringFixed(2), c.EstimatedDelivery.Format("Monday, January 2"))
	return Response{Text: text, Order: &c}, nil
}

func describe(query string, products []product.Scored) string {
	first := products[0].Product
	if len(products) == 1 {
		return fmt.Sprintf("Found 1 product for %q: %s at $%s.", query, first.Name(), first.Price().StringFixed(2))
	}
	return fmt.Sprintf("Found %d products for %q. Top pick: %s at $%s.",
		len(products), query, first.Name(), first.Price().StringFixed(2))
}

func summary(r Response) string {
	switch {
	case r.Order != nil:
		return "order " + r.Order.OrderID
	case len(r.Products) > 0:
		return fmt.Sprintf("%d products", len(r.Products))
	default:
		return "no products"
	}
}
