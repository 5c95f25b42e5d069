package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"alaidocs/internal/search"
)

var packCmd = &cobra.Command{
	Use:   "pack <text>",
	Short: "Search and copy the best documents into a handoff directory",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if flagMaxDocs > 0 {
			cfg.Search.MaxDocs = flagMaxDocs
		}

		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		text := strings.Join(args, " ")
		results, _, err := newRetriever(cfg, st).Search(cmd.Context(), text)
		if err != nil {
			return err
		}
		results = filterMinScore(results, flagMinScore)
		results = search.SelectDiverse(results, cfg.Search.MaxDocs)
		if len(results) == 0 {
			return fmt.Errorf("no results for %q", text)
		}

		dir, err := search.Pack(results, cfg.Paths.Pack, text)
		if err != nil {
			return err
		}
		fmt.Printf("Packed %d documents into %s\n", len(results), dir)
		return nil
	},
}

func init() {
	packCmd.Flags().IntVar(&flagMaxDocs, "max", 0, "maximum documents to pack (overrides config)")
	packCmd.Flags().Float64Var(&flagMinScore, "min-score", 0, "drop results below this score")
	rootCmd.AddCommand(packCmd)
}
