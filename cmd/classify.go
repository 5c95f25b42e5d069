package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"alaidocs/internal/classify"
	"alaidocs/internal/ingest"
	"alaidocs/internal/logger"
	"alaidocs/internal/pdfio"
	"alaidocs/internal/rules"
)

var (
	flagDryRun  bool
	flagSource  string
	flagWorkers int
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Classify PDFs from the source directory into the library tree",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if flagSource != "" {
			cfg.Paths.Source = flagSource
		}
		if flagWorkers > 0 {
			cfg.Ingest.Workers = flagWorkers
		}

		tables := rules.Defaults()
		if cfg.Classifier.RulesFile != "" {
			tables, err = rules.Load(cfg.Classifier.RulesFile)
			if err != nil {
				return err
			}
		}

		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		ext := pdfio.NewExtractor()
		if !ext.Available() {
			logger.Warn("pdftotext not found on PATH, classifying on filenames only")
		}

		p := ingest.New(cfg, classify.New(tables), ext, st)
		p.DryRun = flagDryRun
		p.OnResult = printResult

		fmt.Printf("Classifying %s...\n", cfg.Paths.Source)
		start := time.Now()
		stats, err := p.Run(cmd.Context())
		if stats != nil {
			fmt.Printf("\nDone in %s\n", time.Since(start).Round(time.Millisecond))
			fmt.Printf("  Total:          %d\n", stats.Total)
			fmt.Printf("  Ingested:       %d\n", stats.Ingested)
			fmt.Printf("  Duplicates:     %d\n", stats.Duplicates)
			fmt.Printf("  Quarantined:    %d\n", stats.Quarantined)
			fmt.Printf("  Low confidence: %d\n", stats.LowConfidence)
			fmt.Printf("  Skipped:        %d\n", stats.Skipped)
			fmt.Printf("  Failed:         %d\n", stats.Failed)
		}
		return err
	},
}

func printResult(r ingest.Result) {
	switch r.Status {
	case ingest.StatusIngested:
		fmt.Printf("  %-14s %s -> %s/%s/%s/%s (%.2f)\n", r.Status, r.Source,
			r.Doc.Vendor, r.Doc.DocType, r.Doc.Topic, r.Doc.Topology, r.Doc.Confidence)
	case ingest.StatusFailed:
		fmt.Printf("  %-14s %s: %v\n", r.Status, r.Source, r.Err)
	default:
		fmt.Printf("  %-14s %s\n", r.Status, r.Source)
	}
}

func init() {
	classifyCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "report classifications without moving files or writing the store")
	classifyCmd.Flags().StringVar(&flagSource, "source", "", "source directory (overrides config)")
	classifyCmd.Flags().IntVar(&flagWorkers, "workers", 0, "parallel workers (overrides config)")
	rootCmd.AddCommand(classifyCmd)
}
