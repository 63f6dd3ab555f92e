package main

import (
	"context"
	"fmt"
	"log"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"studyhub/internal/ui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the interactive task list",
	RunE:  runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	return withApp(func(ctx context.Context, a *app) error {
		// the screen owns stdout while the program runs
		f, err := tea.LogToFile(a.cfg.LogPath, "studyhub ")
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer f.Close()
		log.Printf("[tui] start db=%s", a.cfg.DBPath)

		if err := ui.Run(ctx, a.store, a.cfg); err != nil {
			return fmt.Errorf("error running program: %w", err)
		}
		return nil
	})
}
