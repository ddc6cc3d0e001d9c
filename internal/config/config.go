package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/domain"
	domorder "github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/domain/order"
	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/domain/product"
	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/domain/search/intent"
)

// Embedding providers.
const (
	ProviderNone    = "none"
	ProviderBedrock = "bedrock"
	ProviderOpenAI  = "openai"
)

// Config holds the ClickShop API configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	MCP       MCPConfig       `yaml:"mcp"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Cache     CacheConfig     `yaml:"cache"`
	Search    SearchConfig    `yaml:"search"`
	Order     OrderConfig     `yaml:"order"`
	Upload    UploadConfig    `yaml:"upload"`
	Activity  ActivityConfig  `yaml:"activity"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port           int `yaml:"port"`
	ReadTimeoutSec int `yaml:"read_timeout_sec"`
	IdleTimeoutSec int `yaml:"idle_timeout_sec"`
	ShutdownSec    int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig identifies the Aurora cluster reached through the Data API.
type DatabaseConfig struct {
	ClusterARN string `yaml:"cluster_arn"`
	SecretARN  string `yaml:"secret_arn"`
	Name       string `yaml:"name"`
	Region     string `yaml:"region"`
	Endpoint   string `yaml:"endpoint"`
}

// MCPConfig starts the database tool server used by the mcp backend.
type MCPConfig struct {
	Enabled           bool     `yaml:"enabled"`
	Command           string   `yaml:"command"`
	Args              []string `yaml:"args"`
	Env               []string `yaml:"env"`
	ConnectionMethod  string   `yaml:"connection_method"` // rdsapi, pgwire, pgwire_iam
	ClusterIdentifier string   `yaml:"cluster_identifier"`
	DBEndpoint        string   `yaml:"db_endpoint"`
}

// EmbeddingConfig selects the embedding provider.
type EmbeddingConfig struct {
	Provider         string `yaml:"provider"` // bedrock, openai, none
	Model            string `yaml:"model"`
	Dimensions       int    `yaml:"dimensions"`
	Region           string `yaml:"region"`
	APIKey           string `yaml:"api_key"`
	BaseURL          string `yaml:"base_url"`
	QueryInstruction string `yaml:"query_instruction"`
}

// CacheConfig enables the embedding cache when addrs are set.
type CacheConfig struct {
	Addrs               []string `yaml:"addrs"`
	Username            string   `yaml:"username"`
	Password            string   `yaml:"password"`
	KeyPrefix           string   `yaml:"key_prefix"`
	TTLSec              int      `yaml:"ttl_sec"`
	ReadinessTimeoutSec int      `yaml:"readiness_timeout_sec"`
}

// KeywordConfig is one entry of the ordered phrase table.
type KeywordConfig struct {
	Phrase   string `yaml:"phrase"`
	Category string `yaml:"category"`
}

// SearchConfig holds retrieval tuning.
type SearchConfig struct {
	DefaultLimit        int             `yaml:"default_limit"`
	MaxLimit            int             `yaml:"max_limit"`
	SemanticWeight      *float64        `yaml:"semantic_weight"`
	LexicalWeight       *float64        `yaml:"lexical_weight"`
	CandidateMultiplier int             `yaml:"candidate_multiplier"`
	JSONColumns         []string        `yaml:"json_columns"`
	CategoryKeywords    []KeywordConfig `yaml:"category_keywords"`
}

// OrderConfig holds pricing rules. Amounts are decimal strings.
type OrderConfig struct {
	TaxRate               string `yaml:"tax_rate"`
	ShippingFee           string `yaml:"shipping_fee"`
	FreeShippingThreshold string `yaml:"free_shipping_threshold"`
	DeliveryDaysMin       int    `yaml:"delivery_days_min"`
	DeliveryDaysMax       int    `yaml:"delivery_days_max"`
}

// UploadConfig bounds image search uploads.
type UploadConfig struct {
	MaxImageBytes int64    `yaml:"max_image_bytes"`
	AllowedTypes  []string `yaml:"allowed_types"`
}

// ActivityConfig tunes the live activity stream.
type ActivityConfig struct {
	SubscriberBuffer int `yaml:"subscriber_buffer"`
	HeartbeatSec     int `yaml:"heartbeat_sec"`
}

// LoadDotEnv loads KEY=VALUE files into the process environment.
// Missing files are skipped; variables already set are kept.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse expands environment references in data, decodes it and applies
// defaults before validating.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8000
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.IdleTimeoutSec <= 0 {
		c.HTTP.IdleTimeoutSec = 120
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Name == "" {
		c.Database.Name = "postgres"
	}
	if c.Database.Region == "" {
		c.Database.Region = "us-east-1"
	}
	if c.MCP.ConnectionMethod == "" {
		c.MCP.ConnectionMethod = "rdsapi"
	}

	r := domain.DefaultRetrievalConfig()
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = ProviderBedrock
	}
	if c.Embedding.Model == "" && c.Embedding.Provider == ProviderBedrock {
		c.Embedding.Model = r.Model
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = r.Dimensions
	}
	if c.Embedding.Region == "" {
		c.Embedding.Region = c.Database.Region
	}
	// Unset ${VAR} references leave empty list entries behind.
	c.Cache.Addrs = nonEmpty(c.Cache.Addrs)
	if c.Cache.KeyPrefix == "" {
		c.Cache.KeyPrefix = "clickshop:"
	}
	if c.Cache.TTLSec <= 0 {
		c.Cache.TTLSec = 24 * 60 * 60
	}
	if c.Cache.ReadinessTimeoutSec <= 0 {
		c.Cache.ReadinessTimeoutSec = 10
	}

	if c.Search.DefaultLimit <= 0 {
		c.Search.DefaultLimit = r.DefaultLimit
	}
	if c.Search.MaxLimit <= 0 {
		c.Search.MaxLimit = r.MaxLimit
	}
	if c.Search.SemanticWeight == nil && c.Search.LexicalWeight == nil {
		sem, lex := r.SemanticWeight, r.LexicalWeight
		c.Search.SemanticWeight, c.Search.LexicalWeight = &sem, &lex
	}
	if c.Search.CandidateMultiplier <= 0 {
		c.Search.CandidateMultiplier = r.CandidateMultiplier
	}
	if len(c.Search.CategoryKeywords) == 0 {
		for _, kw := range intent.DefaultKeywords() {
			c.Search.CategoryKeywords = append(c.Search.CategoryKeywords,
				KeywordConfig{Phrase: kw.Phrase, Category: string(kw.Category)})
		}
	}

	p := domorder.DefaultPricing()
	if c.Order.TaxRate == "" {
		c.Order.TaxRate = p.TaxRate.String()
	}
	if c.Order.ShippingFee == "" {
		c.Order.ShippingFee = p.ShippingFee.String()
	}
	if c.Order.FreeShippingThreshold == "" {
		c.Order.FreeShippingThreshold = p.FreeShippingThreshold.String()
	}
	if c.Order.DeliveryDaysMin <= 0 {
		c.Order.DeliveryDaysMin = p.DeliveryDaysMin
	}
	if c.Order.DeliveryDaysMax <= 0 {
		c.Order.DeliveryDaysMax = p.DeliveryDaysMax
	}

	if c.Upload.MaxImageBytes <= 0 {
		c.Upload.MaxImageBytes = 5 << 20
	}
	if len(c.Upload.AllowedTypes) == 0 {
		c.Upload.AllowedTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}
	}
	if c.Activity.SubscriberBuffer <= 0 {
		c.Activity.SubscriberBuffer = 64
	}
	if c.Activity.HeartbeatSec <= 0 {
		c.Activity.HeartbeatSec = 15
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Database.ClusterARN == "" {
		return fmt.Errorf("database.cluster_arn is required")
	}
	if c.Database.SecretARN == "" {
		return fmt.Errorf("database.secret_arn is required")
	}

	if c.MCP.Enabled {
		if c.MCP.Command == "" {
			return fmt.Errorf("mcp.command is required when mcp is enabled")
		}
		switch c.MCP.ConnectionMethod {
		case "rdsapi", "pgwire", "pgwire_iam":
		default:
			return fmt.Errorf("mcp.connection_method must be rdsapi, pgwire or pgwire_iam, got %q", c.MCP.ConnectionMethod)
		}
	}

	switch c.Embedding.Provider {
	case ProviderNone, ProviderBedrock:
	case ProviderOpenAI:
		if c.Embedding.Model == "" {
			return fmt.Errorf("embedding.model is required for the openai provider")
		}
	default:
		return fmt.Errorf("embedding.provider must be bedrock, openai or none, got %q", c.Embedding.Provider)
	}

	if err := c.validateSearch(); err != nil {
		return err
	}
	if _, err := c.Pricing(); err != nil {
		return err
	}
	for _, t := range c.Upload.AllowedTypes {
		if _, ok := imageFormat(t); !ok {
			return fmt.Errorf("upload.allowed_types: unsupported type %q", t)
		}
	}
	return nil
}

func (c *Config) validateSearch() error {
	s := c.Search
	if s.DefaultLimit > s.MaxLimit {
		return fmt.Errorf("search.default_limit %d exceeds search.max_limit %d", s.DefaultLimit, s.MaxLimit)
	}
	if s.SemanticWeight == nil || s.LexicalWeight == nil {
		return fmt.Errorf("search.semantic_weight and search.lexical_weight must be set together")
	}
	sem, lex := *s.SemanticWeight, *s.LexicalWeight
	if sem < 0 || lex < 0 {
		return fmt.Errorf("search weights must be non-negative, got %g and %g", sem, lex)
	}
	if math.Abs(sem+lex-1) > 1e-9 {
		return fmt.Errorf("search weights must sum to 1, got %g + %g", sem, lex)
	}
	if err := c.Keywords().Validate(); err != nil {
		return fmt.Errorf("search.category_keywords: %w", err)
	}
	return nil
}

// Retrieval returns the ranking settings. Call after Validate.
func (c *Config) Retrieval() domain.RetrievalConfig {
	return domain.RetrievalConfig{
		Model:               c.Embedding.Model,
		Dimensions:          c.Embedding.Dimensions,
		SemanticWeight:      *c.Search.SemanticWeight,
		LexicalWeight:       *c.Search.LexicalWeight,
		CandidateMultiplier: c.Search.CandidateMultiplier,
		DefaultLimit:        c.Search.DefaultLimit,
		MaxLimit:            c.Search.MaxLimit,
	}
}

// Keywords returns the phrase table in configured order.
func (c *Config) Keywords() intent.Keywords {
	out := make(intent.Keywords, 0, len(c.Search.CategoryKeywords))
	for _, kw := range c.Search.CategoryKeywords {
		out = append(out, intent.Keyword{
			Phrase:   strings.ToLower(strings.TrimSpace(kw.Phrase)),
			Category: product.Category(kw.Category),
		})
	}
	return out
}

// Pricing parses the order rules.
func (c *Config) Pricing() (domorder.Pricing, error) {
	o := c.Order
	var p domorder.Pricing
	for _, f := range []struct {
		name string
		raw  string
		dst  *decimal.Decimal
	}{
		{"order.tax_rate", o.TaxRate, &p.TaxRate},
		{"order.shipping_fee", o.ShippingFee, &p.ShippingFee},
		{"order.free_shipping_threshold", o.FreeShippingThreshold, &p.FreeShippingThreshold},
	} {
		d, err := decimal.NewFromString(f.raw)
		if err != nil {
			return domorder.Pricing{}, fmt.Errorf("%s: %w", f.name, err)
		}
		if d.IsNegative() {
			return domorder.Pricing{}, fmt.Errorf("%s must not be negative", f.name)
		}
		*f.dst = d
	}
	if o.DeliveryDaysMin > o.DeliveryDaysMax {
		return domorder.Pricing{}, fmt.Errorf("order.delivery_days_min exceeds order.delivery_days_max")
	}
	p.DeliveryDaysMin, p.DeliveryDaysMax = o.DeliveryDaysMin, o.DeliveryDaysMax
	return p, nil
}

// ImageFormats maps each allowed content type to the provider image format.
func (c *Config) ImageFormats() map[string]string {
	out := make(map[string]string, len(c.Upload.AllowedTypes))
	for _, t := range c.Upload.AllowedTypes {
		if f, ok := imageFormat(t); ok {
			out[strings.ToLower(t)] = f
		}
	}
	return out
}

func imageFormat(contentType string) (string, bool) {
	switch strings.ToLower(contentType) {
	case "image/jpeg", "image/jpg":
		return "jpeg", true
	case "image/png":
		return "png", true
	case "image/gif":
		return "gif", true
	case "image/webp":
		return "webp", true
	}
	return "", false
}

func nonEmpty(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// Relative to the source file, for tests run from package dirs.
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b)))
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
