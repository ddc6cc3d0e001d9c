// Package mcpquery runs literal SQL through an MCP database server's
// run_query tool.
package mcpquery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/db"
	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/db/codec"
	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/domain"
	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/metrics"
	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/version"
)

var _ db.QueryRunner = (*Runner)(nil)

// Tool names exposed by the postgres MCP server.
const (
	ToolRunQuery          = "run_query"
	ToolConnectToDatabase = "connect_to_database"
)

// ToolCaller is the subset of the MCP client the runner uses.
type ToolCaller interface {
	CallTool(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

// Config describes how to start the server and which database it targets.
type Config struct {
	Command           string
	Args              []string
	Env               []string
	ConnectionMethod  string // rdsapi, pgwire or pgwire_iam
	DatabaseType      string
	Database          string
	ClusterIdentifier string
	DBEndpoint        string
	Region            string
}

// Runner implements db.QueryRunner over an MCP tool call.
type Runner struct {
	caller  ToolCaller
	cfg     Config
	decoder *codec.Decoder
}

// NewRunner creates a runner over an initialized MCP client.
func NewRunner(caller ToolCaller, cfg Config, decoder *codec.Decoder) *Runner {
	if decoder == nil {
		decoder = codec.NewDecoder(codec.DefaultJSONColumns()...)
	}
	return &Runner{caller: caller, cfg: cfg, decoder: decoder}
}

// Dial starts the MCP server over stdio, initializes the session and
// connects it to the database. The returned close func stops the server.
func Dial(ctx context.Context, cfg Config, decoder *codec.Decoder) (*Runner, func() error, error) {
	if cfg.Command == "" {
		return nil, nil, fmt.Errorf("mcp command is required")
	}
	c, err := client.NewStdioMCPClient(cfg.Command, cfg.Env, cfg.Args...)
	if err != nil {
		return nil, nil, fmt.Errorf("start mcp server: %w", err)
	}

	init := mcp.InitializeRequest{}
	init.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	init.Params.ClientInfo = mcp.Implementation{Name: "clickshop", Version: version.Version}
	if _, err := c.Initialize(ctx, init); err != nil {
		_ = c.Close()
		return nil, nil, fmt.Errorf("initialize mcp session: %w", err)
	}

	r := NewRunner(c, cfg, decoder)
	if err := r.connect(ctx); err != nil {
		_ = c.Close()
		return nil, nil, err
	}
	return r, c.Close, nil
}

func (r *Runner) connect(ctx context.Context) error {
	req := mcp.CallToolRequest{}
	req.Params.Name = ToolConnectToDatabase
	req.Params.Arguments = map[string]any{
		"database":           r.cfg.Database,
		"database_type":      r.cfg.DatabaseType,
		"connection_method":  r.cfg.ConnectionMethod,
		"region":             r.cfg.Region,
		"cluster_identifier": r.cfg.ClusterIdentifier,
		"db_endpoint":        r.cfg.DBEndpoint,
		"port":               5432,
	}
	res, err := r.caller.CallTool(ctx, req)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	if res.IsError {
		return fmt.Errorf("connect to database: %s", firstText(res))
	}
	return nil
}

// RunQuery sends sql verbatim. Callers are responsible for quoting.
func (r *Runner) RunQuery(ctx context.Context, sql string) ([]db.Row, error) {
	req := mcp.CallToolRequest{}
	req.Params.Name = ToolRunQuery
	req.Params.Arguments = r.queryArgs(sql)

	start := time.Now()
	res, err := r.caller.CallTool(ctx, req)
	if err == nil && res.IsError {
		err = errors.New(firstText(res))
	}
	metrics.StatementDuration.WithLabelValues("mcp", metrics.Status(err)).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, domain.NewDataAccess(db.OpRunQuery, err)
	}

	rows, err := parseRows(firstText(res))
	if err != nil {
		return nil, domain.NewDataAccess(db.OpRunQuery, err)
	}
	for _, row := range rows {
		r.decoder.Normalize(row)
	}
	return rows, nil
}

func (r *Runner) queryArgs(sql string) map[string]any {
	args := map[string]any{
		"sql":               sql,
		"connection_method": r.cfg.ConnectionMethod,
		"database":          r.cfg.Database,
	}
	if r.cfg.ClusterIdentifier != "" || r.cfg.ConnectionMethod != "rdsapi" {
		args["cluster_identifier"] = r.cfg.ClusterIdentifier
	}
	if r.cfg.DBEndpoint != "" || r.cfg.ConnectionMethod != "rdsapi" {
		args["db_endpoint"] = r.cfg.DBEndpoint
	}
	return args
}

func firstText(res *mcp.CallToolResult) string {
	for _, c := range res.Content {
		if tc, ok := mcp.AsTextContent(c); ok {
			return tc.Text
		}
	}
	return ""
}

// parseRows accepts a bare list or a {rows}, {data} or {result} wrapper
// around one. Any other object is a single row.
func parseRows(text string) ([]db.Row, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	var raw any
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, fmt.Errorf("parse tool output: %w", err)
	}
	return unwrap(raw)
}

func unwrap(v any) ([]db.Row, error) {
	switch x := v.(type) {
	case []any:
		rows := make([]db.Row, 0, len(x))
		for i, el := range x {
			m, ok := el.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("row %d is %T, not an object", i, el)
			}
			rows = append(rows, m)
		}
		return rows, nil
	case map[string]any:
		if list, ok := wrapped(x); ok {
			return unwrap(list)
		}
		if len(x) == 0 {
			return nil, nil
		}
		return []db.Row{x}, nil
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("unexpected tool output %T", v)
	}
}

// wrapped returns the row list held under a wrapper key, looking through
// nested wrappers. Keys holding anything else are ordinary columns.
func wrapped(m map[string]any) ([]any, bool) {
	for _, key := range []string{"rows", "data", "result"} {
		switch inner := m[key].(type) {
		case []any:
			return inner, true
		case map[string]any:
			if list, ok := wrapped(inner); ok {
				return list, true
			}
		}
	}
	return nil, false
}
