package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/finansage/finansage/internal/config"
	"github.com/finansage/finansage/internal/insight"
	"github.com/finansage/finansage/internal/insight/gemini"
	"github.com/finansage/finansage/internal/insight/openai"
	"github.com/finansage/finansage/internal/insight/page"
	"github.com/finansage/finansage/internal/logging"
	"github.com/finansage/finansage/internal/storage"
	"github.com/finansage/finansage/internal/store"
	"github.com/finansage/finansage/internal/version"
)

// deps are the seams tests replace.
type deps struct {
	now       func() time.Time
	generator insight.Generator // used instead of the configured provider when set
	fetcher   insight.PageFetcher
}

// app is the state shared by every command of one invocation.
type app struct {
	deps

	configPath string
	dbPath     string
	memory     bool
	logLevel   string
	logFormat  string

	cfg   *config.Config
	log   zerolog.Logger
	store *store.Store
}

// Execute runs the CLI with the process arguments and releases the store afterwards.
func Execute(ctx context.Context) error {
	root, a := newRoot(deps{})
	err := root.ExecuteContext(ctx)
	if cerr := a.close(); err == nil {
		err = cerr
	}
	return err
}

// newRoot creates the root CLI command with all subcommands registered.
func newRoot(d deps) (*cobra.Command, *app) {
	if d.now == nil {
		d.now = time.Now
	}
	a := &app{deps: d}

	rootCmd := &cobra.Command{
		Use:     "finansage",
		Short:   "Personal finance tracker with AI insights",
		Version: version.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.configure(cmd)
		},
	}

	f := rootCmd.PersistentFlags()
	f.StringVar(&a.configPath, "config", config.FileName, "config file")
	f.StringVar(&a.dbPath, "db", "", "database file (overrides config)")
	f.BoolVar(&a.memory, "memory", false, "keep data in memory only")
	f.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	f.StringVar(&a.logFormat, "log-format", "", "log format: console or json")

	rootCmd.AddCommand(
		newInitCommand(a),
		newAccountCommand(a),
		newCategoryCommand(a),
		newBudgetCommand(a),
		newTxCommand(a),
		newGoalCommand(a),
		newAssetCommand(a),
		newAssetCategoryCommand(a),
		newInvestmentCommand(a),
		newSavingsCommand(a),
		newSubscriptionCommand(a),
		newNetWorthCommand(a),
		newDashboardCommand(a),
		newExportCommand(a),
		newInsightCommand(a),
		newSuggestCommand(a),
		newReceiptCommand(a),
		newReportCommand(a),
		newSettingsCommand(a),
	)

	return rootCmd, a
}

// configure loads configuration and builds the logger. Flags beat environment
// variables, which beat the config file.
func (a *app) configure(cmd *cobra.Command) error {
	if err := config.LoadEnvFile(filepath.Dir(a.configPath)); err != nil {
		return err
	}
	cfg, err := config.LoadOrDefault(a.configPath)
	if err != nil {
		return err
	}
	cfg.ApplyEnv()
	if a.dbPath != "" {
		cfg.DataPath = a.dbPath
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Log.Format = a.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := logging.New(cmd.ErrOrStderr(), logging.Options{Level: cfg.Log.Level, Format: logging.Format(cfg.Log.Format)})
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = logging.Component(log, logging.ComponentApp)
	return nil
}

// open returns the store, opening it on first use.
func (a *app) open(ctx context.Context) (*store.Store, error) {
	if a.store != nil {
		return a.store, nil
	}

	var kv storage.KV
	if a.memory {
		kv = storage.NewMemory()
	} else {
		db, err := storage.OpenSQLite(a.cfg.DataPath)
		if err != nil {
			return nil, err
		}
		kv = db
	}

	s, err := store.Open(ctx, kv, store.Options{Logger: a.log, Now: a.now, Currency: a.cfg.Currency})
	if err != nil {
		_ = kv.Close()
		return nil, err
	}
	a.log.Debug().Str("path", a.cfg.DataPath).Bool("memory", a.memory).Msg("store opened")
	a.store = s
	return s, nil
}

func (a *app) close() error {
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	return err
}

// insights builds the insight service for the configured provider.
func (a *app) insights(ctx context.Context, currency string) (*insight.Service, error) {
	gen := a.generator
	if gen == nil {
		var err error
		gen, err = a.newGenerator(ctx)
		if err != nil {
			return nil, err
		}
	}
	fetcher := a.fetcher
	if fetcher == nil {
		fetcher = page.New(a.cfg.AI.Timeout)
	}
	return insight.NewService(gen, insight.Options{
		Logger:   a.log,
		Timeout:  a.cfg.AI.Timeout,
		Now:      a.now,
		Fetcher:  fetcher,
		Currency: currency,
	}), nil
}

func (a *app) newGenerator(ctx context.Context) (insight.Generator, error) {
	switch a.cfg.AI.Provider {
	case config.ProviderGemini:
		g, err := gemini.New(ctx, a.cfg.APIKey(), a.cfg.AI.Model)
		if err != nil {
			return nil, err
		}
		return g, nil
	case config.ProviderOpenAI:
		g, err := openai.New(a.cfg.APIKey(), a.cfg.AI.BaseURL, a.cfg.AI.Model)
		if err != nil {
			return nil, err
		}
		return g, nil
	case config.ProviderNone:
		return nil, nil
	}
	return nil, fmt.Errorf("unknown ai provider %q", a.cfg.AI.Provider)
}
