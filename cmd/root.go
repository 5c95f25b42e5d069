// Package cmd wires the CLI commands around the ingestion, indexing, and
// retrieval internals.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"alaidocs/internal/config"
	"alaidocs/internal/embedder"
	"alaidocs/internal/llm"
	"alaidocs/internal/logger"
	"alaidocs/internal/search"
	"alaidocs/internal/store"
)

var (
	flagConfig  string
	flagVerbose bool
	flagOllama  string
)

var rootCmd = &cobra.Command{
	Use:   "alaidocs",
	Short: "Classify, index, and search a PDF document library",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.SetVerbose(flagVerbose)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI()
	},
}

func Execute() {
	// Optional .env next to the binary; flags and config still win.
	_ = godotenv.Load()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "alaidocs.yaml", "configuration file")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "verbose logging")
	rootCmd.PersistentFlags().StringVar(&flagOllama, "ollama", "", "ollama base URL (overrides config)")
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", flagConfig, err)
	}
	if flagOllama != "" {
		cfg.Embedder.OllamaURL = flagOllama
	} else if url := os.Getenv("OLLAMA_URL"); url != "" {
		cfg.Embedder.OllamaURL = url
	}
	return cfg, nil
}

func kbPath(cfg *config.Config) string {
	return filepath.Join(cfg.Paths.KB, "kb.db")
}

func openStore(cfg *config.Config) (*store.SQLiteStore, error) {
	if err := os.MkdirAll(cfg.Paths.KB, 0o755); err != nil {
		return nil, fmt.Errorf("create kb directory: %w", err)
	}
	return store.Open(kbPath(cfg), cfg.Embedder.Dimension)
}

// newEmbedder returns nil when vector indexing is disabled; callers treat
// nil as lexical-only.
func newEmbedder(cfg *config.Config) embedder.Embedder {
	if cfg.Embedder.Disabled {
		return nil
	}
	return embedder.NewOllama(cfg.Embedder.OllamaURL, cfg.Embedder.Model, cfg.Embedder.Dimension)
}

func newTranslator(cfg *config.Config) search.Translator {
	if cfg.Search.TranslateModel == "" {
		return nil
	}
	return llm.NewOllamaChat(cfg.Embedder.OllamaURL, cfg.Search.TranslateModel)
}

func newRetriever(cfg *config.Config, st store.Store) *search.Retriever {
	return search.NewRetriever(st, newEmbedder(cfg), newTranslator(cfg), cfg.Search.TopK)
}
