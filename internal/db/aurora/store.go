// Package aurora executes SQL through the RDS Data API.
package aurora

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/rdsdata"
	"github.com/aws/aws-sdk-go-v2/service/rdsdata/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"

	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/db"
	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/db/codec"
	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/domain"
	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/logger"
	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/metrics"
)

var (
	_ db.Executor = (*Store)(nil)
	_ db.Pinger   = (*Store)(nil)
)

// API is the subset of the Data API client the store uses.
type API interface {
	ExecuteStatement(ctx context.Context, in *rdsdata.ExecuteStatementInput, optFns ...func(*rdsdata.Options)) (*rdsdata.ExecuteStatementOutput, error)
}

// Config identifies the cluster and credentials.
type Config struct {
	ResourceARN string
	SecretARN   string
	Database    string
	Region      string
	Endpoint    string // optional, for local emulators
}

// Store implements db.Executor over the Data API. Every call is stateless.
type Store struct {
	api     API
	cfg     Config
	decoder *codec.Decoder
}

// NewStore loads AWS credentials and creates a Data API backed store.
func NewStore(ctx context.Context, cfg Config, decoder *codec.Decoder) (*Store, error) {
	if cfg.ResourceARN == "" || cfg.SecretARN == "" {
		return nil, fmt.Errorf("resource ARN and secret ARN are required")
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := rdsdata.NewFromConfig(awsCfg, func(o *rdsdata.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return NewStoreWithAPI(client, cfg, decoder), nil
}

// NewStoreWithAPI creates a store over an existing client.
func NewStoreWithAPI(api API, cfg Config, decoder *codec.Decoder) *Store {
	if decoder == nil {
		decoder = codec.NewDecoder(codec.DefaultJSONColumns()...)
	}
	return &Store{api: api, cfg: cfg, decoder: decoder}
}

// Execute binds args to the ? markers in sql and runs it.
// Encoding problems are returned as *domain.EncodeError; remote failures as
// *domain.DataAccessError. Undecodable fields are logged and read as nil.
func (s *Store) Execute(ctx context.Context, sql string, args ...any) ([]db.Row, error) {
	params, err := codec.Encode(args)
	if err != nil {
		return nil, fmt.Errorf("encode parameters: %w", err)
	}
	stmt, err := codec.RewritePlaceholders(sql, len(params))
	if err != nil {
		return nil, fmt.Errorf("rewrite placeholders: %w", err)
	}

	start := time.Now()
	out, err := s.api.ExecuteStatement(ctx, &rdsdata.ExecuteStatementInput{
		ResourceArn:           aws.String(s.cfg.ResourceARN),
		SecretArn:             aws.String(s.cfg.SecretARN),
		Database:              aws.String(s.cfg.Database),
		Sql:                   aws.String(stmt),
		Parameters:            params,
		IncludeResultMetadata: true,
	})
	metrics.StatementDuration.WithLabelValues("rdsdata", metrics.Status(err)).Observe(time.Since(start).Seconds())
	if err != nil {
		logUpstream(ctx, err)
		return nil, domain.NewDataAccess(db.OpExecuteStatement, err)
	}

	rows, problems := s.decoder.Decode(out.Records, columnNames(out.ColumnMetadata))
	if len(problems) > 0 {
		log := logger.FromContext(ctx)
		for _, p := range problems {
			metrics.DecodeErrorsTotal.WithLabelValues(p.Column).Inc()
			log.Warn("field decoded as null", zap.Error(p))
		}
	}
	return rows, nil
}

// Ping runs a trivial statement.
func (s *Store) Ping(ctx context.Context) error {
	if _, err := s.Execute(ctx, "SELECT 1"); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

func columnNames(meta []types.ColumnMetadata) []string {
	names := make([]string, len(meta))
	for i, m := range meta {
		// label carries the AS alias; name is the source column.
		switch {
		case m.Label != nil && *m.Label != "":
			names[i] = *m.Label
		case m.Name != nil:
			names[i] = *m.Name
		}
	}
	return names
}

func logUpstream(ctx context.Context, err error) {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		logger.FromContext(ctx).Error("data api statement failed",
			zap.String("code", apiErr.ErrorCode()),
			zap.String("upstream", apiErr.ErrorMessage()),
		)
		return
	}
	logger.FromContext(ctx).Error("data api statement failed", zap.Error(err))
}
