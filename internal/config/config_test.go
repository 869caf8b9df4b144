package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/alvmarrod/graph-weaver/internal/analysis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig_DefaultsWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "wiki-Vote.txt", cfg.Input)
	assert.Equal(t, "#", cfg.CommentPrefix)
	assert.Equal(t, analysis.DefaultTopK, cfg.TopK)
	assert.Equal(t, analysis.DefaultDampingFactor, cfg.PageRank.Damping)
	assert.Equal(t, analysis.DefaultMaxIterations, cfg.PageRank.Iterations)
	assert.Zero(t, cfg.PageRank.Tolerance)
	assert.Zero(t, cfg.Components.MaxRounds)
	assert.Equal(t, "metrics.json", cfg.MetricsPath)
	assert.Empty(t, cfg.LogFile)
	assert.Equal(t, 100, cfg.MaxLogSizeMB)
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadConfig_YAML(t *testing.T) {
	path := writeConfig(t, "graphweaver.yaml", `
input: soc-Epinions1.txt.gz
top_k: 10
workers: 4
pagerank:
  damping: 0.9
  iterations: 25
  tolerance: 0.000001
  scale_to_vertex_count: true
components:
  max_rounds: 200
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "soc-Epinions1.txt.gz", cfg.Input)
	assert.Equal(t, 10, cfg.TopK)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 0.9, cfg.PageRank.Damping)
	assert.Equal(t, 25, cfg.PageRank.Iterations)
	assert.True(t, cfg.PageRank.ScaleToVertexCount)
	assert.Equal(t, 200, cfg.Components.MaxRounds)
	// keys absent from the file keep their defaults
	assert.Equal(t, "#", cfg.CommentPrefix)
	assert.Equal(t, "graphweaver.db", cfg.DBPath)
}

func TestLoadConfig_JSON(t *testing.T) {
	path := writeConfig(t, "config.json", `{"delimiter": ",", "skip_self_loops": true, "output_dir": "out"}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ",", cfg.Delimiter)
	assert.True(t, cfg.SkipSelfLoops)
	assert.Equal(t, "out", cfg.OutputDir)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	path := writeConfig(t, "graphweaver.yaml", "pagerank:\n  iterations: 15\n")
	t.Setenv("GRAPHWEAVER_PAGERANK_ITERATIONS", "30")
	t.Setenv("GRAPHWEAVER_TOP_K", "3")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.PageRank.Iterations)
	assert.Equal(t, 3, cfg.TopK)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"damping above one", "pagerank:\n  damping: 1.5\n"},
		{"negative tolerance", "pagerank:\n  tolerance: -1\n"},
		{"negative top_k", "top_k: -2\n"},
		{"negative workers", "workers: -1\n"},
		{"negative max_rounds", "components:\n  max_rounds: -5\n"},
		{"long delimiter", "delimiter: \"::\"\n"},
		{"unknown log level", "log_level: chatty\n"},
		{"short timeout", "request_timeout_ms: 10\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, "graphweaver.yaml", tt.content))
			assert.Error(t, err)
		})
	}
}

func TestConfig_Options(t *testing.T) {
	cfg := &Config{
		CommentPrefix: "%",
		Delimiter:     "\t",
		SkipSelfLoops: true,
		TopK:          7,
		Workers:       2,
		PageRank:      PageRankConfig{Damping: 0.8, Iterations: 12, Tolerance: 1e-9},
		Components:    ComponentsConfig{MaxRounds: 99},
	}

	in := cfg.IngestOptions()
	assert.Equal(t, "%", in.CommentPrefix)
	assert.Equal(t, "\t", in.Delimiter)
	assert.True(t, in.SkipSelfLoops)

	opts := cfg.AnalysisOptions()
	assert.Equal(t, 7, opts.TopK)
	assert.Equal(t, 2, opts.Workers)
	assert.Equal(t, 0.8, opts.PageRank.DampingFactor)
	assert.Equal(t, 12, opts.PageRank.MaxIterations)
	assert.Equal(t, 99, opts.Components.MaxRounds)
	assert.Equal(t, 2, cfg.EffectiveWorkers())
}
