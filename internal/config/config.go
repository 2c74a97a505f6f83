package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/finansage/finansage/internal/logging"
	"github.com/finansage/finansage/internal/money"
)

// FileName is the configuration file looked up in the working directory.
const FileName = "finansage.yaml"

// AI providers.
const (
	ProviderNone   = "none"
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

var providers = []string{ProviderNone, ProviderGemini, ProviderOpenAI}

// Config represents the top-level finansage.yaml configuration.
type Config struct {
	DataPath string       `yaml:"data_path"`
	Currency string       `yaml:"currency"`
	Log      LogConfig    `yaml:"log"`
	AI       AIConfig     `yaml:"ai"`
	Import   ImportConfig `yaml:"import"`
}

// LogConfig controls the logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// AIConfig selects the insight backend.
type AIConfig struct {
	Provider  string        `yaml:"provider"`
	Model     string        `yaml:"model,omitempty"`
	BaseURL   string        `yaml:"base_url,omitempty"` // OpenAI-compatible servers only
	APIKeyEnv string        `yaml:"api_key_env,omitempty"`
	Timeout   time.Duration `yaml:"timeout"`
}

// ImportConfig controls inbox imports.
type ImportConfig struct {
	Dir string `yaml:"dir"`
}

// Default returns a Config with sensible defaults for a new data directory.
func Default() *Config {
	return &Config{
		DataPath: "finansage.db",
		Currency: money.DefaultCurrency,
		Log: LogConfig{
			Level:  "info",
			Format: string(logging.FormatConsole),
		},
		AI: AIConfig{
			Provider: ProviderNone,
			Timeout:  60 * time.Second,
		},
		Import: ImportConfig{
			Dir: "inbox",
		},
	}
}

// Load reads a finansage.yaml file from disk on top of Default. A relative data path
// or import dir is resolved against the file's directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	dir := filepath.Dir(path)
	cfg.DataPath = resolve(dir, cfg.DataPath)
	cfg.Import.Dir = resolve(dir, cfg.Import.Dir)
	return cfg, nil
}

// LoadOrDefault is Load, except that a missing file yields Default.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

func resolve(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// LoadEnvFile loads dir/.env into the process environment if it exists. Variables
// already set win.
func LoadEnvFile(dir string) error {
	path := filepath.Join(dir, ".env")
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides fields from FINANSAGE_* environment variables.
func (c *Config) ApplyEnv() {
	c.DataPath = getEnv("FINANSAGE_DB", c.DataPath)
	c.Currency = getEnv("FINANSAGE_CURRENCY", c.Currency)
	c.AI.Provider = getEnv("FINANSAGE_AI_PROVIDER", c.AI.Provider)
	c.AI.Model = getEnv("FINANSAGE_AI_MODEL", c.AI.Model)
	c.AI.BaseURL = getEnv("FINANSAGE_AI_BASE_URL", c.AI.BaseURL)
	c.Log.Level = getEnv("FINANSAGE_LOG_LEVEL", c.Log.Level)
	if v := getEnv("FINANSAGE_AI_TIMEOUT", ""); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.AI.Timeout = d
		}
	}
}

// APIKey returns the provider's key from the environment.
func (c *Config) APIKey() string {
	name := c.AI.APIKeyEnv
	if name == "" {
		switch c.AI.Provider {
		case ProviderGemini:
			name = "GEMINI_API_KEY"
		case ProviderOpenAI:
			name = "OPENAI_API_KEY"
		default:
			return ""
		}
	}
	return os.Getenv(name)
}

// Validate validates the configuration and returns every problem found.
func (c *Config) Validate() error {
	var problems []string

	if !slices.Contains(providers, c.AI.Provider) {
		problems = append(problems, fmt.Sprintf("invalid ai provider %q: must be one of %v", c.AI.Provider, providers))
	}
	if c.AI.Timeout <= 0 {
		problems = append(problems, fmt.Sprintf("invalid ai timeout %v: must be positive", c.AI.Timeout))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		problems = append(problems, err.Error())
	}
	switch logging.Format(c.Log.Format) {
	case logging.FormatConsole, logging.FormatJSON, "":
	default:
		problems = append(problems, fmt.Sprintf("unknown log format %q", c.Log.Format))
	}
	if len(c.Currency) != 3 || !money.ValidCurrency(c.Currency) {
		problems = append(problems, fmt.Sprintf("invalid currency %q: must be a 3-letter ISO code", c.Currency))
	}
	if strings.TrimSpace(c.DataPath) == "" {
		problems = append(problems, "data path cannot be empty")
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
