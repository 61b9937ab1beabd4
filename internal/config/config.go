// Package config provides configuration loading and structs for the kubun server and CLI.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Archive   ArchiveConfig   `yaml:"archive"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Grobid    GrobidConfig    `yaml:"grobid"`
	Extract   ExtractConfig   `yaml:"extract"`
	Search    SearchConfig    `yaml:"search"`
	Watch     WatchConfig     `yaml:"watch"`
	Sections  SectionsConfig  `yaml:"sections"`
}

// WatchConfig holds inbox directory watch settings.
type WatchConfig struct {
	Directories []string `yaml:"directories"`
	Extensions  []string `yaml:"extensions"`
	Recursive   *bool    `yaml:"recursive"`
	Workers     int      `yaml:"workers"`
	DebounceMS  int      `yaml:"debounce_ms"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host                  string `yaml:"host"`
	Port                  int    `yaml:"port"`
	RequestTimeoutSeconds int    `yaml:"request_timeout_seconds"`
	MaxUploadMB           int    `yaml:"max_upload_mb"`
}

// StorageConfig selects the extraction store and index locations.
type StorageConfig struct {
	Driver          string `yaml:"driver"` // sqlite or postgres
	DatabasePath    string `yaml:"database_path"`
	DatabaseURL     string `yaml:"database_url"`
	BleveIndexPath  string `yaml:"bleve_index_path"`
	VectorIndexPath string `yaml:"vector_index_path"`
}

// ArchiveConfig selects where JSON/TXT outputs and source files are written.
type ArchiveConfig struct {
	Driver       string `yaml:"driver"` // local, s3, or none
	Directory    string `yaml:"directory"`
	S3Bucket     string `yaml:"s3_bucket"`
	S3Region     string `yaml:"s3_region"`
	S3Prefix     string `yaml:"s3_prefix"`
	AWSAccessKey string `yaml:"aws_access_key"`
	AWSSecretKey string `yaml:"aws_secret_key"`
	KeepSource   bool   `yaml:"keep_source"`
}

// EmbeddingConfig selects the heading similarity scorer.
type EmbeddingConfig struct {
	Provider     string `yaml:"provider"` // onnx, gemini, or hash
	ModelPath    string `yaml:"model_path"`
	VocabPath    string `yaml:"vocab_path"`
	OutputName   string `yaml:"output_name"`
	Pooling      string `yaml:"pooling"` // mean or none
	Dimensions   int    `yaml:"dimensions"`
	MaxTokens    int    `yaml:"max_tokens"`
	CacheSize    int    `yaml:"cache_size"`
	GeminiModel  string `yaml:"gemini_model"`
	GeminiAPIKey string `yaml:"gemini_api_key"`
}

// GrobidConfig configures the PDF to TEI conversion service.
type GrobidConfig struct {
	Disabled          bool   `yaml:"disabled"` // read PDFs locally only
	URL               string `yaml:"url"`
	TimeoutSeconds    int    `yaml:"timeout_seconds"`
	MaxRetries        int    `yaml:"max_retries"`
	Concurrency       int    `yaml:"concurrency"`
	ConsolidateHeader bool   `yaml:"consolidate_header"`
}

// ExtractConfig holds per-document extraction settings.
type ExtractConfig struct {
	TimeoutSeconds int  `yaml:"timeout_seconds"`
	FlatMethods    bool `yaml:"flat_methods"`
}

// SearchConfig holds search settings over extracted sections.
type SearchConfig struct {
	DefaultLimit   int     `yaml:"default_limit"`
	MaxLimit       int     `yaml:"max_limit"`
	TopKCandidates int     `yaml:"top_k_candidates"`
	KeywordWeight  float64 `yaml:"keyword_weight"`
	SemanticWeight float64 `yaml:"semantic_weight"`
}

// SectionsConfig overrides the built-in phrase sets and thresholds per section type.
// Empty fields keep the built-in values.
type SectionsConfig struct {
	Methods            SectionOverride `yaml:"methods"`
	ResultsDiscussion  SectionOverride `yaml:"results_discussion"`
	AbstractAlternates []string        `yaml:"abstract_alternates"`
	AbstractThreshold  float64         `yaml:"abstract_threshold"`
}

// SectionOverride replaces parts of one section's match configuration.
type SectionOverride struct {
	Anchors           []string `yaml:"anchors"`
	Stopwords         []string `yaml:"stopwords"`
	FallbackKeywords  []string `yaml:"fallback_keywords"`
	TypeHintMarkers   []string `yaml:"type_hint_markers"`
	AnchorThreshold   float64  `yaml:"anchor_threshold"`
	FallbackThreshold float64  `yaml:"fallback_threshold"`
	StopwordThreshold float64  `yaml:"stopword_threshold"`
}

// Load reads and parses the config file at path, applies defaults and environment
// overrides, expands paths, and validates the result. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	applyEnv(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.BleveIndexPath = expandPath(cfg.Storage.BleveIndexPath, configDir)
	cfg.Storage.VectorIndexPath = expandPath(cfg.Storage.VectorIndexPath, configDir)
	cfg.Archive.Directory = expandPath(cfg.Archive.Directory, configDir)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	if cfg.Embedding.VocabPath != "" {
		cfg.Embedding.VocabPath = expandPath(cfg.Embedding.VocabPath, configDir)
	}
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

// Default returns a config with every default applied, for runs without a config file.
func Default() *Config {
	var cfg Config
	ApplyDefaults(&cfg)
	applyEnv(&cfg)
	return &cfg
}

// Save writes the config to path. Used for persisting watch directory add/remove.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "sqlite":
	case "postgres":
		if c.Storage.DatabaseURL == "" {
			return fmt.Errorf("storage.database_url is required for the postgres driver")
		}
	default:
		return fmt.Errorf("storage.driver %q: want sqlite or postgres", c.Storage.Driver)
	}
	switch c.Archive.Driver {
	case "none", "local":
	case "s3":
		if c.Archive.S3Bucket == "" {
			return fmt.Errorf("archive.s3_bucket is required for the s3 driver")
		}
	default:
		return fmt.Errorf("archive.driver %q: want local, s3, or none", c.Archive.Driver)
	}
	switch c.Embedding.Provider {
	case "onnx", "gemini", "hash":
	default:
		return fmt.Errorf("embedding.provider %q: want onnx, gemini, or hash", c.Embedding.Provider)
	}
	switch c.Embedding.Pooling {
	case "mean", "none":
	default:
		return fmt.Errorf("embedding.pooling %q: want mean or none", c.Embedding.Pooling)
	}
	if u, err := url.Parse(c.Grobid.URL); !c.Grobid.Disabled && (err != nil || u.Scheme == "" || u.Host == "") {
		return fmt.Errorf("grobid.url %q is not an absolute URL", c.Grobid.URL)
	}
	if c.Search.KeywordWeight < 0 || c.Search.SemanticWeight < 0 {
		return fmt.Errorf("search weights must not be negative")
	}
	for name, o := range map[string]SectionOverride{
		"methods":            c.Sections.Methods,
		"results_discussion": c.Sections.ResultsDiscussion,
	} {
		for field, v := range map[string]float64{
			"anchor_threshold":   o.AnchorThreshold,
			"fallback_threshold": o.FallbackThreshold,
			"stopword_threshold": o.StopwordThreshold,
		} {
			if v < 0 || v > 1 {
				return fmt.Errorf("sections.%s.%s = %v: must be in (0,1]", name, field, v)
			}
		}
	}
	if t := c.Sections.AbstractThreshold; t < 0 || t > 1 {
		return fmt.Errorf("sections.abstract_threshold = %v: must be in (0,1]", t)
	}
	return nil
}

// applyEnv lets secrets and deployment endpoints come from the environment (or a .env file).
func applyEnv(cfg *Config) {
	if v := os.Getenv("KUBUN_DATABASE_URL"); v != "" {
		cfg.Storage.DatabaseURL = v
	}
	if v := os.Getenv("GROBID_URL"); v != "" {
		cfg.Grobid.URL = v
	}
	if cfg.Embedding.GeminiAPIKey == "" {
		cfg.Embedding.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.Archive.S3Bucket == "" {
		cfg.Archive.S3Bucket = os.Getenv("KUBUN_S3_BUCKET")
	}
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
