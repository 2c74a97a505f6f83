package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/finansage/finansage/internal/config"
	"github.com/finansage/finansage/internal/money"
)

func newInitCommand(a *app) *cobra.Command {
	var currency string
	var provider string

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new FinanSage data directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			return a.runInit(cmd, absDir, currency, provider)
		},
	}

	cmd.Flags().StringVar(&currency, "currency", money.DefaultCurrency, "primary currency")
	cmd.Flags().StringVar(&provider, "ai", config.ProviderNone, "insight provider: none, gemini or openai")

	return cmd
}

func (a *app) runInit(cmd *cobra.Command, dir, currency, provider string) error {
	path := filepath.Join(dir, config.FileName)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}

	cfg := config.Default()
	cfg.Currency = strings.ToUpper(currency)
	cfg.AI.Provider = provider
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Create directory structure.
	for _, d := range []string{dir, filepath.Join(dir, cfg.Import.Dir)} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	// Write finansage.yaml.
	if err := config.Save(path, cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	// Write .gitignore so the database and secrets stay local.
	gitignore := "*.db\n*.db-journal\n.env\nexports/\n"
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(gitignore), 0o644); err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}

	// Seed the database with default categories and settings.
	a.cfg.DataPath = filepath.Join(dir, cfg.DataPath)
	if a.dbPath != "" {
		a.cfg.DataPath = a.dbPath
	}
	a.cfg.Currency = cfg.Currency
	s, err := a.open(cmd.Context())
	if err != nil {
		return err
	}
	if err := s.Flush(cmd.Context()); err != nil {
		return fmt.Errorf("seeding database: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Initialized FinanSage at %s (currency %s, %d categories)\n",
		dir, cfg.Currency, len(s.Snapshot().Categories))
	return nil
}
