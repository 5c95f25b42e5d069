package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var repairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Drop and rebuild the full-text index from stored chunks",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.RepairFTS(); err != nil {
			return fmt.Errorf("repair fts index: %w", err)
		}
		stats, err := st.Stats()
		if err != nil {
			return err
		}
		fmt.Printf("Rebuilt full-text index over %d chunks.\n", stats.Chunks)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(repairCmd)
}
