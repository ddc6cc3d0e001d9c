package assistant

import (
	"context"

	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/domain/activity"
	domorder "github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/domain/order"
	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/domain/search/intent"
	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/usecase/search"
)

// KeywordSearcher runs keyword-planned searches on either execution path.
type KeywordSearcher interface {
	Search(ctx context.Context, in intent.Intent, limit int, rec *activity.Recorder) (search.Outcome, error)
	SearchLiteral(ctx context.Context, in intent.Intent, limit int, rec *activity.Recorder) (search.Outcome, error)
}

// RankedSearcher runs hybrid semantic + lexical searches.
type RankedSearcher interface {
	Search(ctx context.Context, in intent.Intent, limit int, rec *activity.Recorder) (search.Outcome, error)
}

// OrderPlacer prices and writes orders.
type OrderPlacer interface {
	Place(ctx context.Context, customerID string, items []domorder.Item, rec *activity.Recorder) (domorder.Confirmation, error)
}
