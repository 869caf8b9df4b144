package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/alvmarrod/graph-weaver/internal/analysis"
	"github.com/alvmarrod/graph-weaver/internal/ingest"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// DefaultPath is the config file looked up when none is given
const DefaultPath = "graphweaver.yaml"

// EnvPrefix prefixes environment overrides, e.g. GRAPHWEAVER_PAGERANK_ITERATIONS
const EnvPrefix = "GRAPHWEAVER"

// Config holds all runtime configuration parameters
type Config struct {
	Input            string `mapstructure:"input"`
	CommentPrefix    string `mapstructure:"comment_prefix"`
	Delimiter        string `mapstructure:"delimiter"`
	SkipSelfLoops    bool   `mapstructure:"skip_self_loops"`
	RequestTimeoutMs int    `mapstructure:"request_timeout_ms"`
	DBPath           string `mapstructure:"db_path"`
	OutputDir        string `mapstructure:"output_dir"`
	MetricsPath      string `mapstructure:"metrics_path"`
	TopK             int    `mapstructure:"top_k"`
	Workers          int    `mapstructure:"workers"`
	LogLevel         string `mapstructure:"log_level"`
	LogFile          string `mapstructure:"log_file"`
	MaxLogSizeMB     int    `mapstructure:"max_log_size"`
	MaxLogAgeDays    int    `mapstructure:"max_log_age"`

	PageRank   PageRankConfig   `mapstructure:"pagerank"`
	Components ComponentsConfig `mapstructure:"components"`
}

// PageRankConfig holds the PageRank parameters
type PageRankConfig struct {
	Damping            float64 `mapstructure:"damping"`
	Iterations         int     `mapstructure:"iterations"`
	Tolerance          float64 `mapstructure:"tolerance"`
	ScaleToVertexCount bool    `mapstructure:"scale_to_vertex_count"`
}

// ComponentsConfig holds the label propagation parameters
type ComponentsConfig struct {
	// MaxRounds of zero derives the cap from the vertex count
	MaxRounds int `mapstructure:"max_rounds"`
}

// defaults are registered with viper so environment overrides apply to
// keys that the file leaves out
var defaults = map[string]any{
	"input":                          "wiki-Vote.txt",
	"comment_prefix":                 "#",
	"delimiter":                      "",
	"skip_self_loops":                false,
	"request_timeout_ms":             30000,
	"db_path":                        "graphweaver.db",
	"output_dir":                     "results",
	"metrics_path":                   "metrics.json",
	"top_k":                          analysis.DefaultTopK,
	"workers":                        0,
	"log_level":                      "info",
	"log_file":                       "",
	"max_log_size":                   100,
	"max_log_age":                    28,
	"pagerank.damping":               analysis.DefaultDampingFactor,
	"pagerank.iterations":            analysis.DefaultMaxIterations,
	"pagerank.tolerance":             0.0,
	"pagerank.scale_to_vertex_count": false,
	"components.max_rounds":          0,
}

// LoadConfig reads and validates configuration from a JSON, YAML or TOML
// file with environment overrides. An absent file at DefaultPath is not an
// error; defaults apply.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = DefaultPath
	}
	v.SetConfigFile(path)

	if _, err := os.Stat(path); path == DefaultPath && errors.Is(err, fs.ErrNotExist) {
		logrus.Debugf("No config file at %s, using defaults", path)
	} else if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	// Apply defaults for missing values
	applyDefaults(&cfg)

	// Validate configuration
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for unspecified fields
func applyDefaults(cfg *Config) {
	if cfg.RequestTimeoutMs == 0 {
		cfg.RequestTimeoutMs = 30000
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "graphweaver.db"
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "results"
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "metrics.json"
	}
	if cfg.TopK == 0 {
		cfg.TopK = analysis.DefaultTopK
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.MaxLogSizeMB == 0 {
		cfg.MaxLogSizeMB = 100
	}
	if cfg.MaxLogAgeDays == 0 {
		cfg.MaxLogAgeDays = 28
	}
	if cfg.PageRank.Iterations == 0 {
		cfg.PageRank.Iterations = analysis.DefaultMaxIterations
	}
}

// validate checks that values are sensible
func validate(cfg *Config) error {
	if cfg.TopK < 1 {
		return fmt.Errorf("top_k must be >= 1")
	}
	if cfg.Workers < 0 {
		return fmt.Errorf("workers must be >= 0")
	}
	if cfg.PageRank.Damping < 0 || cfg.PageRank.Damping > 1 {
		return fmt.Errorf("pagerank.damping must be in [0, 1]")
	}
	if cfg.PageRank.Iterations < 1 {
		return fmt.Errorf("pagerank.iterations must be >= 1")
	}
	if cfg.PageRank.Tolerance < 0 {
		return fmt.Errorf("pagerank.tolerance must be >= 0")
	}
	if cfg.Components.MaxRounds < 0 {
		return fmt.Errorf("components.max_rounds must be >= 0")
	}
	if cfg.RequestTimeoutMs < 1000 {
		return fmt.Errorf("request_timeout_ms must be >= 1000")
	}
	if len(cfg.Delimiter) > 1 {
		return fmt.Errorf("delimiter must be a single character or empty")
	}
	if cfg.MaxLogSizeMB < 0 || cfg.MaxLogAgeDays < 0 {
		return fmt.Errorf("max_log_size and max_log_age must be >= 0")
	}
	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	return nil
}

// RequestTimeout returns the download timeout for URL inputs
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMs) * time.Millisecond
}

// IngestOptions returns the record parsing options
func (c *Config) IngestOptions() ingest.Options {
	return ingest.Options{
		CommentPrefix: c.CommentPrefix,
		Delimiter:     c.Delimiter,
		SkipSelfLoops: c.SkipSelfLoops,
	}
}

// AnalysisOptions returns the options of a full analysis run
func (c *Config) AnalysisOptions() analysis.Options {
	return analysis.Options{
		TopK:    c.TopK,
		Workers: c.Workers,
		PageRank: analysis.PageRankOptions{
			DampingFactor:      c.PageRank.Damping,
			MaxIterations:      c.PageRank.Iterations,
			Tolerance:          c.PageRank.Tolerance,
			ScaleToVertexCount: c.PageRank.ScaleToVertexCount,
		},
		Components: analysis.ComponentsOptions{
			MaxRounds: c.Components.MaxRounds,
		},
	}
}

// EffectiveWorkers resolves a zero worker count to GOMAXPROCS, for logging
func (c *Config) EffectiveWorkers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.GOMAXPROCS(0)
}
