// Package config loads and validates kbsearch configuration.
//
// Configuration is resolved in priority order:
//  1. Environment variables (KBSEARCH_*) - highest priority
//  2. Project config (.kbsearch.yaml)
//  3. Built-in defaults
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// SourceWeights is a weight triple applied to the three retrieval sources
// for one intent tag.
type SourceWeights struct {
	Vector     float64 `yaml:"vector" json:"vector"`
	Web        float64 `yaml:"web" json:"web"`
	Structured float64 `yaml:"structured" json:"structured"`
}

// Config represents the complete kbsearch configuration.
type Config struct {
	Version  int            `yaml:"version" json:"version"`
	Analyzer AnalyzerConfig `yaml:"analyzer" json:"analyzer"`
	Vector   VectorConfig   `yaml:"vector" json:"vector"`
	Web      WebConfig      `yaml:"web" json:"web"`
	Records  RecordsConfig  `yaml:"records" json:"records"`
	Fusion   FusionConfig   `yaml:"fusion" json:"fusion"`
	Pipeline PipelineConfig `yaml:"pipeline" json:"pipeline"`
	Logging  LoggingConfig  `yaml:"logging" json:"logging"`
}

// AnalyzerConfig configures query analysis.
type AnalyzerConfig struct {
	// MaxQueryVariants caps expanded queries per request, original included.
	MaxQueryVariants int `yaml:"max_query_variants" json:"max_query_variants"`
	// CacheSize is the LRU cache size for analysis results.
	CacheSize int `yaml:"cache_size" json:"cache_size"`
}

// VectorConfig configures the vector similarity provider.
type VectorConfig struct {
	// EmbeddingHost is an OpenAI-compatible embeddings endpoint.
	EmbeddingHost string `yaml:"embedding_host" json:"embedding_host"`
	// EmbeddingModel is the embedding model name.
	EmbeddingModel string `yaml:"embedding_model" json:"embedding_model"`
	// Dimensions is the embedding dimension count.
	Dimensions int `yaml:"dimensions" json:"dimensions"`
	// TopK is how many neighbors each similarity call returns.
	TopK int `yaml:"top_k" json:"top_k"`
}

// WebConfig configures the web search provider and adapter.
type WebConfig struct {
	// Endpoint is the search API base URL (SearxNG-compatible JSON API).
	Endpoint string `yaml:"endpoint" json:"endpoint"`
	// APIKey authenticates against the search API. Empty for open instances.
	APIKey string `yaml:"api_key" json:"api_key"`
	// MinRelevance is the keep threshold for combined relevance*trust score.
	MinRelevance float64 `yaml:"min_relevance" json:"min_relevance"`
	// MaxResults caps results returned by the web adapter.
	MaxResults int `yaml:"max_results" json:"max_results"`
	// TrustedDomains score 1.0 trust.
	TrustedDomains []string `yaml:"trusted_domains" json:"trusted_domains"`
	// BlockedDomains are discarded outright.
	BlockedDomains []string `yaml:"blocked_domains" json:"blocked_domains"`
	// SpamKeywords discard a result when found in title+snippet.
	SpamKeywords []string `yaml:"spam_keywords" json:"spam_keywords"`
}

// RecordsConfig configures the structured record provider and adapter.
type RecordsConfig struct {
	// DBPath is the SQLite database path.
	DBPath string `yaml:"db_path" json:"db_path"`
	// Collections lists the record collections to search.
	Collections []string `yaml:"collections" json:"collections"`
	// SearchableProperties lists the record properties keyword queries run against.
	SearchableProperties []string `yaml:"searchable_properties" json:"searchable_properties"`
	// RelationName is the relation link followed during enrichment.
	RelationName string `yaml:"relation_name" json:"relation_name"`
	// RelationDepth bounds relation traversal (hard cap MaxRelationDepth).
	RelationDepth int `yaml:"relation_depth" json:"relation_depth"`
}

// FusionConfig configures result fusion.
type FusionConfig struct {
	// MaxResults is the final ranked-list cap.
	MaxResults int `yaml:"max_results" json:"max_results"`
	// DedupSimilarityThreshold is the fuzzy content dedup cutoff.
	// An empirical constant; tune per corpus rather than trusting the default.
	DedupSimilarityThreshold float64 `yaml:"dedup_similarity_threshold" json:"dedup_similarity_threshold"`
	// Weights maps intent tag -> source weight triple. Missing intents
	// fall back to the built-in table.
	Weights map[string]SourceWeights `yaml:"weights_table" json:"weights_table"`
}

// PipelineConfig configures pipeline orchestration.
type PipelineConfig struct {
	// AdapterTimeout is the per-adapter ceiling for one request.
	AdapterTimeout time.Duration `yaml:"adapter_timeout" json:"adapter_timeout"`
}

// LoggingConfig configures logging output.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
}

// MaxRelationDepth is the hard cap on relation traversal depth,
// regardless of configuration. Guards against cycles and fan-out explosion.
const MaxRelationDepth = 3

// ConfigFileName is the project config file name.
const ConfigFileName = ".kbsearch.yaml"

// Default returns the built-in default configuration.
func Default() *Config {
	return &Config{
		Version: 1,
		Analyzer: AnalyzerConfig{
			MaxQueryVariants: 4,
			CacheSize:        1024,
		},
		Vector: VectorConfig{
			EmbeddingHost:  "http://localhost:11434/v1",
			EmbeddingModel: "nomic-embed-text",
			Dimensions:     768,
			TopK:           10,
		},
		Web: WebConfig{
			Endpoint:     "http://localhost:8888",
			MinRelevance: 0.6,
			MaxResults:   10,
		},
		Records: RecordsConfig{
			DBPath:               "kbsearch.db",
			Collections:          []string{"repairs", "shops", "parts"},
			SearchableProperties: []string{"title", "content", "category"},
			RelationName:         "related",
			RelationDepth:        1,
		},
		Fusion: FusionConfig{
			MaxResults:               10,
			DedupSimilarityThreshold: 0.85,
		},
		Pipeline: PipelineConfig{
			AdapterTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from path (empty means ConfigFileName in the
// working directory), overlays it on defaults, applies env overrides,
// and validates. A missing file is not an error; defaults are used.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = ConfigFileName
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// Defaults apply.
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies KBSEARCH_* environment variables.
// Env vars have the highest priority.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("KBSEARCH_WEB_ENDPOINT"); v != "" {
		cfg.Web.Endpoint = v
	}
	if v := os.Getenv("KBSEARCH_WEB_API_KEY"); v != "" {
		cfg.Web.APIKey = v
	}
	if v := os.Getenv("KBSEARCH_EMBEDDING_HOST"); v != "" {
		cfg.Vector.EmbeddingHost = v
	}
	if v := os.Getenv("KBSEARCH_EMBEDDING_MODEL"); v != "" {
		cfg.Vector.EmbeddingModel = v
	}
	if v := os.Getenv("KBSEARCH_DB_PATH"); v != "" {
		cfg.Records.DBPath = v
	}
	if v := os.Getenv("KBSEARCH_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("KBSEARCH_MAX_RESULTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Fusion.MaxResults = n
		}
	}
	if v := os.Getenv("KBSEARCH_ADAPTER_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Pipeline.AdapterTimeout = d
		}
	}
	if v := os.Getenv("KBSEARCH_MIN_WEB_RELEVANCE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Web.MinRelevance = f
		}
	}
	if v := os.Getenv("KBSEARCH_DEDUP_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Fusion.DedupSimilarityThreshold = f
		}
	}
}

// Validate checks config values and clamps soft limits.
func (c *Config) Validate() error {
	var problems []string

	if c.Analyzer.MaxQueryVariants < 1 {
		problems = append(problems, "analyzer.max_query_variants must be >= 1")
	}
	if c.Fusion.MaxResults < 1 {
		problems = append(problems, "fusion.max_results must be >= 1")
	}
	if c.Fusion.DedupSimilarityThreshold <= 0 || c.Fusion.DedupSimilarityThreshold > 1 {
		problems = append(problems, "fusion.dedup_similarity_threshold must be in (0, 1]")
	}
	if c.Web.MinRelevance < 0 || c.Web.MinRelevance > 1 {
		problems = append(problems, "web.min_relevance must be in [0, 1]")
	}
	if c.Pipeline.AdapterTimeout <= 0 {
		problems = append(problems, "pipeline.adapter_timeout must be positive")
	}
	for intent, w := range c.Fusion.Weights {
		if w.Vector < 0 || w.Vector > 1 || w.Web < 0 || w.Web > 1 || w.Structured < 0 || w.Structured > 1 {
			problems = append(problems, fmt.Sprintf("fusion.weights_table[%s]: weights must be in [0, 1]", intent))
		}
	}

	if c.Records.RelationDepth < 0 {
		c.Records.RelationDepth = 0
	}
	if c.Records.RelationDepth > MaxRelationDepth {
		c.Records.RelationDepth = MaxRelationDepth
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Save writes the configuration to path as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
