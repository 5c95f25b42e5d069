package cmd

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"alaidocs/internal/tui"
)

// runTUI starts the interactive search screen. It is the default action
// when the binary is invoked without a subcommand.
func runTUI() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if _, err := os.Stat(kbPath(cfg)); os.IsNotExist(err) {
		return fmt.Errorf("knowledge base not found at %s\nRun 'alaidocs classify' and 'alaidocs index' first", kbPath(cfg))
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	m := tui.New(newRetriever(cfg, st))
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
