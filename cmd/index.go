package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"alaidocs/internal/index"
	"alaidocs/internal/logger"
	"alaidocs/internal/pdfio"
)

var flagLexicalOnly bool

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build the search index over classified documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if flagLexicalOnly {
			cfg.Embedder.Disabled = true
		}

		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		ext := pdfio.NewExtractor()
		if !ext.Available() {
			return fmt.Errorf("pdftotext not found on PATH; install poppler-utils to index documents")
		}

		b := index.New(cfg, st, ext, newEmbedder(cfg))

		fmt.Println("Building index...")
		start := time.Now()
		stats, err := b.Build(cmd.Context())
		if stats != nil {
			fmt.Printf("\nDone in %s\n", time.Since(start).Round(time.Millisecond))
			fmt.Printf("  Documents: %d pending, %d indexed, %d failed\n",
				stats.DocsPending, stats.DocsIndexed, stats.DocsFailed)
			fmt.Printf("  Chunks:    %d new, %d embedded\n", stats.Chunks, stats.Embedded)
			if stats.LexicalOnly {
				logger.Warn("index is lexical-only; vector search is unavailable until embedding succeeds")
			}
		}
		return err
	},
}

func init() {
	indexCmd.Flags().BoolVar(&flagLexicalOnly, "lexical-only", false, "skip embedding, build the FTS index only")
	rootCmd.AddCommand(indexCmd)
}
