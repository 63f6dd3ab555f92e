package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"studyhub/internal/account"
	"studyhub/internal/config"
	"studyhub/internal/mail"
	"studyhub/internal/storage"
)

var (
	configPath string
	envFile    string
)

var rootCmd = &cobra.Command{
	Use:           "studyhub",
	Short:         "Student planner: subjects, to-dos and due dates",
	Long:          `StudyHub keeps your to-do list, subjects and account on this machine. Run without a subcommand to open the interactive list.`,
	RunE:          runTUI,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: user config dir/studyhub/config.toml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "dotenv file with SMTP secrets")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// app bundles what every command needs.
type app struct {
	cfg   config.Config
	store *storage.Store
}

func openApp() (*app, error) {
	path := configPath
	if path == "" {
		path = config.ResolveConfigPath()
	}
	cfg, err := config.LoadOrCreate(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.ApplyEnv(envFile); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", envFile, err)
	}
	store, err := storage.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return &app{cfg: cfg, store: store}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

func (a *app) accounts() *account.Service {
	return account.NewService(a.store, mail.FromConfig(a.cfg.Email), a.cfg.PhotoDir)
}

// withApp opens the app for the duration of fn.
func withApp(fn func(ctx context.Context, a *app) error) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(context.Background(), a)
}

func notFound(err error, what string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%s not found", what)
	}
	return err
}
