package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/polyrisk/polyrisk-api/interactions"
)

func TestLoadValidConfig(t *testing.T) {
	t.Setenv("PORT", "8002")
	t.Setenv("ADDRESS", "127.0.0.1")
	t.Setenv("ENV", "production")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("DATABASE_PATH", "/tmp/polyrisk.db")
	t.Setenv("DATASET_REFRESH_AT", "04:30")
	t.Setenv("AI_TIMEOUT_SECONDS", "30")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if cfg.Port != "8002" {
		t.Errorf("Expected port 8002, got %s", cfg.Port)
	}
	if cfg.Env != EnvProduction {
		t.Errorf("Expected env prod, got %s", cfg.Env)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("Expected log level debug, got %s", cfg.LogLevel)
	}
	if cfg.DatabasePath != "/tmp/polyrisk.db" {
		t.Errorf("Expected database path /tmp/polyrisk.db, got %s", cfg.DatabasePath)
	}
	if cfg.DatasetRefreshAt != "04:30" {
		t.Errorf("Expected refresh at 04:30, got %s", cfg.DatasetRefreshAt)
	}
	if cfg.AITimeout() != 30*time.Second {
		t.Errorf("Expected AI timeout 30s, got %v", cfg.AITimeout())
	}
}

func TestLoadWithDefaults(t *testing.T) {
	for _, name := range GetEnvVars() {
		t.Setenv(name, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if cfg.Port != "8000" {
		t.Errorf("Expected default port 8000, got %s", cfg.Port)
	}
	if cfg.Address != "127.0.0.1" {
		t.Errorf("Expected default address 127.0.0.1, got %s", cfg.Address)
	}
	if cfg.Env != EnvDevelopment {
		t.Errorf("Expected default env dev, got %s", cfg.Env)
	}
	if cfg.DatabasePath != "data/polyrisk.db" {
		t.Errorf("Expected default database path, got %s", cfg.DatabasePath)
	}
	if cfg.PipelineConfig != "" {
		t.Errorf("Expected no pipeline config, got %s", cfg.PipelineConfig)
	}
	if cfg.AIModel != "gemini-2.5-flash" || cfg.AICacheSize != 128 || cfg.AITimeoutSeconds != 90 {
		t.Errorf("Unexpected AI defaults: %s %d %d", cfg.AIModel, cfg.AICacheSize, cfg.AITimeoutSeconds)
	}
}

func TestInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
		want  string
	}{
		{"non numeric port", "PORT", "abc", "invalid PORT"},
		{"privileged port", "PORT", "80", "privileged"},
		{"out of range port", "PORT", "70000", "between 1 and 65535"},
		{"bad address", "ADDRESS", "not-an-ip", "invalid ADDRESS"},
		{"public address", "ADDRESS", "8.8.8.8", "public IP"},
		{"bad env", "ENV", "qa", "invalid ENV"},
		{"bad log level", "LOG_LEVEL", "verbose", "invalid LOG_LEVEL"},
		{"huge body", "MAX_REQUEST_BODY", "1073741824", "too large"},
		{"retention", "LOG_RETENTION_WEEKS", "60", "LOG_RETENTION_WEEKS"},
		{"small log file", "MAX_LOG_FILE_SIZE", "1000", "too small"},
		{"refresh clock", "DATASET_REFRESH_AT", "25:00", "DATASET_REFRESH_AT"},
		{"ai url", "AI_API_URL", "ftp://example.com", "AI_API_URL"},
		{"ai timeout", "AI_TIMEOUT_SECONDS", "0", "AI_TIMEOUT_SECONDS"},
		{"cache size", "AI_CACHE_SIZE", "-1", "AI_CACHE_SIZE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			if err == nil {
				t.Fatalf("Expected error for %s=%s", tt.key, tt.value)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestParseEnvironment(t *testing.T) {
	tests := []struct {
		input    string
		expected Environment
		hasError bool
	}{
		{"dev", EnvDevelopment, false},
		{"development", EnvDevelopment, false},
		{"staging", EnvStaging, false},
		{"prod", EnvProduction, false},
		{"Production", EnvProduction, false},
		{"test", EnvTest, false},
		{"invalid", EnvDevelopment, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			env, err := ParseEnvironment(tt.input)
			if tt.hasError {
				if err == nil {
					t.Errorf("Expected error for %s, got none", tt.input)
				}
				return
			}
			if err != nil {
				t.Errorf("Unexpected error for %s: %v", tt.input, err)
			}
			if env != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, env)
			}
		})
	}
}

func TestParsePipelineDefaults(t *testing.T) {
	opts, err := ParsePipeline([]byte(`
sources:
  compounds:
    path: data/chemicals.csv
  individual:
    path: data/sider.csv
  pairwise:
    path: data/twosides.csv.gz
    url: https://example.org/twosides.csv.gz
`))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if opts.CompoundColumns.ID != DefaultCompoundIDColumn || opts.PairwiseColumns.Label != DefaultPairLabel {
		t.Errorf("Expected default columns, got %+v %+v", opts.CompoundColumns, opts.PairwiseColumns)
	}
	if opts.Pairwise.URL != "https://example.org/twosides.csv.gz" {
		t.Errorf("Expected pairwise url to be kept, got %q", opts.Pairwise.URL)
	}
	if opts.OutputPath != DefaultOutputPath {
		t.Errorf("Expected default output, got %s", opts.OutputPath)
	}
	if opts.ChunkSize != interactions.DefaultChunkSize {
		t.Errorf("Expected default chunk size, got %d", opts.ChunkSize)
	}
	if opts.Aggregate.Mode != interactions.ModeAllPairs || opts.Aggregate.SubsetSize != interactions.DefaultSubsetSize {
		t.Errorf("Unexpected aggregate defaults %+v", opts.Aggregate)
	}
	if opts.FetchTimeout != DefaultFetchTimeout {
		t.Errorf("Expected default fetch timeout, got %v", opts.FetchTimeout)
	}
}

func TestLoadPipelineOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	content := `
output: out/rows.csv
chunk_size: 500
fetch_timeout: 30s
aggregate:
  mode: co_occurring
  subset_size: 0
sources:
  compounds:
    path: c.tsv
    id_column: cid
    name_column: label
  individual:
    path: i.csv
    id_column: sid
    label_column: term
  pairwise:
    path: p.csv
    first_column: a
    second_column: b
    label_column: effect
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	opts, err := LoadPipeline(path)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if opts.OutputPath != "out/rows.csv" || opts.ChunkSize != 500 || opts.FetchTimeout != 30*time.Second {
		t.Errorf("Unexpected top-level options %+v", opts)
	}
	if opts.Aggregate.Mode != interactions.ModeCoOccurring || opts.Aggregate.SubsetSize != 0 {
		t.Errorf("Unexpected aggregate options %+v", opts.Aggregate)
	}
	if opts.CompoundColumns != (interactions.CompoundColumns{ID: "cid", Name: "label"}) {
		t.Errorf("Unexpected compound columns %+v", opts.CompoundColumns)
	}
	if opts.PairwiseColumns != (interactions.PairwiseColumns{First: "a", Second: "b", Label: "effect"}) {
		t.Errorf("Unexpected pairwise columns %+v", opts.PairwiseColumns)
	}
}

func TestParsePipelineErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"missing source", "sources:\n  compounds:\n    path: c.csv\n", "cannot be empty"},
		{"bad mode", "aggregate:\n  mode: random\nsources:\n  compounds: {path: a}\n  individual: {path: b}\n  pairwise: {path: c}\n", "aggregate.mode"},
		{"bad yaml", "sources: [", "failed to parse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePipeline([]byte(tt.content))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error containing %q, got %v", tt.want, err)
			}
		})
	}

	if _, err := LoadPipeline(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
}
