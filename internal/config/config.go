// Package config loads and saves the application configuration from YAML.
package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// PathsConfig holds the directory layout of the document library.
type PathsConfig struct {
	// Source is where raw, unclassified PDFs arrive.
	Source string `yaml:"source"`
	// Classified is the root of the vendor/doc_type/topic/topology tree.
	Classified string `yaml:"classified"`
	// KB is the knowledge-base directory holding the SQLite database.
	KB string `yaml:"kb"`
	// Pack is the base directory for query pack output.
	Pack string `yaml:"pack"`
}

// ClassifierConfig tunes the taxonomy classifier.
type ClassifierConfig struct {
	// HeadPages is how many leading pages are extracted for classification.
	HeadPages int `yaml:"head_pages"`
	// ConfidenceThreshold gates the doc_type dimension; below it a document
	// is routed to the low-confidence bucket.
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
	// MinTextChars is the extracted-text length below which classification
	// is flagged as filename-only.
	MinTextChars int `yaml:"min_text_chars"`
	// RulesFile optionally overrides the built-in rule tables.
	RulesFile string `yaml:"rules_file,omitempty"`
}

// IngestConfig tunes the ingestion worker pool and file settling.
type IngestConfig struct {
	Workers        int `yaml:"workers"`
	StableChecks   int `yaml:"stable_checks"`
	StableWindowMS int `yaml:"stable_window_ms"`
	// ExtractTimeoutSecs bounds text extraction per document.
	ExtractTimeoutSecs int `yaml:"extract_timeout_secs"`
}

// ChunkerConfig configures how document text is split for indexing.
type ChunkerConfig struct {
	ChunkSize int `yaml:"chunk_size"`
	Overlap   int `yaml:"overlap"`
	// MaxPages caps full-text extraction per document at index time.
	MaxPages int `yaml:"max_pages"`
}

// EmbedderConfig configures the sentence-embedding backend.
type EmbedderConfig struct {
	OllamaURL string `yaml:"ollama_url"`
	Model     string `yaml:"model"`
	Dimension int    `yaml:"dimension"`
	BatchSize int    `yaml:"batch_size"`
	// Disabled forces lexical-only indexing and retrieval.
	Disabled bool `yaml:"disabled,omitempty"`
}

// SearchConfig tunes retrieval.
type SearchConfig struct {
	// TopK is how many chunk hits each channel fetches before fusion.
	TopK int `yaml:"top_k"`
	// MaxDocs is the default diversity-selection cap.
	MaxDocs int `yaml:"max_docs"`
	// TranslateModel is the chat model used to translate non-English
	// queries; empty disables translation.
	TranslateModel string `yaml:"translate_model,omitempty"`
}

// Config is the root application configuration.
type Config struct {
	Paths      PathsConfig      `yaml:"paths"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Ingest     IngestConfig     `yaml:"ingest"`
	Chunker    ChunkerConfig    `yaml:"chunker"`
	Embedder   EmbedderConfig   `yaml:"embedder"`
	Search     SearchConfig     `yaml:"search"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			Source:     "data/inbox",
			Classified: "data/classified",
			KB:         "data/kb",
			Pack:       "data/pack",
		},
		Classifier: ClassifierConfig{
			HeadPages:           3,
			ConfidenceThreshold: 0.6,
			MinTextChars:        100,
		},
		Ingest: IngestConfig{
			Workers:            4,
			StableChecks:       3,
			StableWindowMS:     10000,
			ExtractTimeoutSecs: 60,
		},
		Chunker: ChunkerConfig{
			ChunkSize: 500,
			Overlap:   50,
			MaxPages:  50,
		},
		Embedder: EmbedderConfig{
			OllamaURL: "http://localhost:11434",
			Model:     "nomic-embed-text",
			Dimension: 768,
			BatchSize: 64,
		},
		Search: SearchConfig{
			TopK:    100,
			MaxDocs: 20,
		},
	}
}

// Load reads a config from path. If the file does not exist, defaults are
// returned.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	return cfg, nil
}

// Save writes the config to path, creating directories as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// applyDefaults fills zero values left by a partial config file.
func applyDefaults(cfg *Config) {
	def := Default()
	if cfg.Classifier.HeadPages <= 0 {
		cfg.Classifier.HeadPages = def.Classifier.HeadPages
	}
	if cfg.Classifier.ConfidenceThreshold <= 0 {
		cfg.Classifier.ConfidenceThreshold = def.Classifier.ConfidenceThreshold
	}
	if cfg.Classifier.MinTextChars <= 0 {
		cfg.Classifier.MinTextChars = def.Classifier.MinTextChars
	}
	if cfg.Ingest.Workers <= 0 {
		cfg.Ingest.Workers = def.Ingest.Workers
	}
	if cfg.Ingest.StableChecks <= 0 {
		cfg.Ingest.StableChecks = def.Ingest.StableChecks
	}
	if cfg.Ingest.StableWindowMS <= 0 {
		cfg.Ingest.StableWindowMS = def.Ingest.StableWindowMS
	}
	if cfg.Ingest.ExtractTimeoutSecs <= 0 {
		cfg.Ingest.ExtractTimeoutSecs = def.Ingest.ExtractTimeoutSecs
	}
	if cfg.Chunker.ChunkSize <= 0 {
		cfg.Chunker.ChunkSize = def.Chunker.ChunkSize
	}
	if cfg.Chunker.Overlap < 0 || cfg.Chunker.Overlap >= cfg.Chunker.ChunkSize {
		cfg.Chunker.Overlap = cfg.Chunker.ChunkSize / 10
	}
	if cfg.Chunker.MaxPages <= 0 {
		cfg.Chunker.MaxPages = def.Chunker.MaxPages
	}
	if cfg.Embedder.OllamaURL == "" {
		cfg.Embedder.OllamaURL = def.Embedder.OllamaURL
	}
	if cfg.Embedder.Model == "" {
		cfg.Embedder.Model = def.Embedder.Model
	}
	if cfg.Embedder.Dimension <= 0 {
		cfg.Embedder.Dimension = def.Embedder.Dimension
	}
	if cfg.Embedder.BatchSize <= 0 {
		cfg.Embedder.BatchSize = def.Embedder.BatchSize
	}
	if cfg.Search.TopK <= 0 {
		cfg.Search.TopK = def.Search.TopK
	}
	if cfg.Search.MaxDocs <= 0 {
		cfg.Search.MaxDocs = def.Search.MaxDocs
	}
	if cfg.Paths.Source == "" {
		cfg.Paths.Source = def.Paths.Source
	}
	if cfg.Paths.Classified == "" {
		cfg.Paths.Classified = def.Paths.Classified
	}
	if cfg.Paths.KB == "" {
		cfg.Paths.KB = def.Paths.KB
	}
	if cfg.Paths.Pack == "" {
		cfg.Paths.Pack = def.Paths.Pack
	}
}
