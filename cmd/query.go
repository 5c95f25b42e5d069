package cmd

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"alaidocs/internal/search"
)

var (
	flagMaxDocs  int
	flagMinScore float64
)

var (
	scoreHigh = color.New(color.FgGreen, color.Bold)
	scoreMid  = color.New(color.FgYellow)
	scoreLow  = color.New(color.FgRed)
	methodFmt = color.New(color.FgCyan)
	pathFmt   = color.New(color.Faint)
)

var queryCmd = &cobra.Command{
	Use:   "query <text>",
	Short: "Search the knowledge base and print ranked documents",
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
		results, q, err := newRetriever(cfg, st).Search(cmd.Context(), text)
		if err != nil {
			return err
		}
		results = filterMinScore(results, flagMinScore)
		results = search.SelectDiverse(results, cfg.Search.MaxDocs)

		if len(results) == 0 {
			fmt.Printf("No results for %q.\n", text)
			return nil
		}

		if q.Text != q.Original {
			fmt.Printf("Query translated to: %s\n", q.Text)
		}
		fmt.Printf("Keywords: %s\n\n", strings.Join(q.Keywords, ", "))

		for i, r := range results {
			title := r.Title
			if title == "" {
				title = filepath.Base(r.Path)
			}
			fmt.Printf("%2d. %s %s %s\n", i+1,
				scoreColor(r.Score).Sprintf("%.2f", r.Score),
				methodFmt.Sprintf("[%s]", r.Method),
				title)
			pathFmt.Printf("    %s/%s · p.%d · %s\n", r.Vendor, r.DocType, r.PageStart, r.Path)
		}

		printCoverage(results)
		return nil
	},
}

func scoreColor(s float64) *color.Color {
	switch {
	case s > 0.7:
		return scoreHigh
	case s > 0.4:
		return scoreMid
	default:
		return scoreLow
	}
}

func filterMinScore(results []search.DocResult, min float64) []search.DocResult {
	if min <= 0 {
		return results
	}
	var out []search.DocResult
	for _, r := range results {
		if r.Score >= min {
			out = append(out, r)
		}
	}
	return out
}

// printCoverage summarizes the result set: distinct vendors and the mean
// score.
func printCoverage(results []search.DocResult) {
	vendors := map[string]bool{}
	var sum float64
	for _, r := range results {
		vendors[r.Vendor] = true
		sum += r.Score
	}
	names := make([]string, 0, len(vendors))
	for v := range vendors {
		names = append(names, v)
	}
	sort.Strings(names)
	fmt.Printf("\n%d documents · %d vendors (%s) · mean score %.2f\n",
		len(results), len(names), strings.Join(names, ", "), sum/float64(len(results)))
}

func init() {
	queryCmd.Flags().IntVar(&flagMaxDocs, "max", 0, "maximum documents to return (overrides config)")
	queryCmd.Flags().Float64Var(&flagMinScore, "min-score", 0, "drop results below this score")
	rootCmd.AddCommand(queryCmd)
}
