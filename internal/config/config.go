// Package config loads the household-budget YAML configuration and applies
// environment overrides on top of it.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	yaml "gopkg.in/yaml.v2"
)

// Store backends.
const (
	BackendBigQuery = "bigquery"
	BackendFlatFile = "flatfile"
	BackendBolt     = "bolt"
	BackendMemory   = "memory"
)

// Suggestion providers.
const (
	ProviderBayes  = "bayes"
	ProviderGemini = "gemini"
	ProviderClaude = "claude"
)

// Config is the whole application configuration.
type Config struct {
	Log     LogConfig     `yaml:"log"`
	Store   StoreConfig   `yaml:"store"`
	Import  ImportConfig  `yaml:"import"`
	Budget  BudgetConfig  `yaml:"budget"`
	Notify  NotifyConfig  `yaml:"notify"`
	Suggest SuggestConfig `yaml:"suggest"`
	Notion  NotionConfig  `yaml:"notion"`
	API     APIConfig     `yaml:"api"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// StoreConfig selects the persistence backend. Only the fields of the
// chosen backend are read.
type StoreConfig struct {
	Backend   string `yaml:"backend"`
	ProjectID string `yaml:"project_id"`
	Dataset   string `yaml:"dataset"`
	// DataDir is a local directory or a gs://bucket/prefix URI.
	DataDir  string `yaml:"data_dir"`
	BoltPath string `yaml:"bolt_path"`
}

type ImportConfig struct {
	FuzzyWindowDays int             `yaml:"fuzzy_window_days"`
	ReviewMarkers   []string        `yaml:"review_markers"`
	DefaultKeywords []KeywordConfig `yaml:"default_keywords"`
}

// KeywordConfig is one built-in keyword rule. Order in the file is match order.
type KeywordConfig struct {
	Keyword  string `yaml:"keyword"`
	Category string `yaml:"category"`
}

type BudgetConfig struct {
	Defaults []CategoryConfig `yaml:"defaults"`
}

// CategoryConfig seeds one budget category on first run.
type CategoryConfig struct {
	Group    string `yaml:"group"`
	Category string `yaml:"category"`
	Budget   string `yaml:"budget"`
}

// Amount parses the configured budget. Validate guarantees it parses.
func (c CategoryConfig) Amount() decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(c.Budget))
	if err != nil {
		return decimal.Zero
	}
	return d.Round(2)
}

type NotifyConfig struct {
	SMTP SMTPConfig `yaml:"smtp"`
}

// SMTPConfig configures report delivery. An empty Host means reports are
// only logged.
type SMTPConfig struct {
	Host     string   `yaml:"host"`
	Port     int      `yaml:"port"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	From     string   `yaml:"from"`
	To       []string `yaml:"to"`
}

type SuggestConfig struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	APIKey   string `yaml:"api_key"`
}

type NotionConfig struct {
	Token      string `yaml:"token"`
	DatabaseID string `yaml:"database_id"`
}

type APIConfig struct {
	Port          string `yaml:"port"`
	Password      string `yaml:"password"`
	ArchiveBucket string `yaml:"archive_bucket"`
}

// DefaultPath returns $HOME/.household-budget/config.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".household-budget", "config.yaml")
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Log: LogConfig{Level: "info", Pretty: true},
		Store: StoreConfig{
			Backend:  BackendFlatFile,
			Dataset:  "household_budget",
			DataDir:  "data",
			BoltPath: "budget.db",
		},
		Import: ImportConfig{
			FuzzyWindowDays: 2,
			ReviewMarkers:   []string{"amazon", "amzn", "target"},
			DefaultKeywords: []KeywordConfig{
				{Keyword: "donut", Category: "Eating Out"},
				{Keyword: "starbucks", Category: "Eating Out"},
				{Keyword: "shell", Category: "Gas"},
				{Keyword: "heb", Category: "Groceries"},
				{Keyword: "walmart", Category: "Groceries"},
				{Keyword: "netflix", Category: "Entertainment"},
			},
		},
		Budget: BudgetConfig{
			Defaults: []CategoryConfig{
				{Group: "Giving", Category: "Tithe", Budget: "500"},
				{Group: "Housing", Category: "Mortgage/Rent", Budget: "1500"},
				{Group: "Food", Category: "Groceries", Budget: "600"},
				{Group: "Food", Category: "Eating Out", Budget: "150"},
				{Group: "Transportation", Category: "Gas", Budget: "200"},
				{Group: "Lifestyle", Category: "Entertainment", Budget: "100"},
				{Group: "Savings", Category: "Emergency Fund", Budget: "200"},
				{Group: "Business", Category: "Business/Cru", Budget: "0"},
			},
		},
		Notify:  NotifyConfig{SMTP: SMTPConfig{Port: 587}},
		Suggest: SuggestConfig{Provider: ProviderBayes},
		API:     APIConfig{Port: "8080"},
	}
}

// Load reads the YAML file at path over the defaults and applies environment
// overrides. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("Load: unmarshal %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return Config{}, fmt.Errorf("Load: read %s: %w", path, err)
	}

	cfg.applyEnv(os.Getenv)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	set(&c.Store.Backend, "BUDGET_STORE")
	set(&c.Store.ProjectID, "BUDGET_BQ_PROJECT")
	set(&c.Store.Dataset, "BUDGET_BQ_DATASET")
	set(&c.Store.DataDir, "BUDGET_DATA_DIR")
	set(&c.Store.BoltPath, "BUDGET_BOLT_PATH")
	set(&c.API.ArchiveBucket, "GCS_BUCKET")
	set(&c.Notify.SMTP.Password, "SMTP_PASSWORD")
	set(&c.Notion.Token, "NOTION_TOKEN")
	set(&c.API.Password, "APP_PASSWORD")
	set(&c.API.Port, "PORT")

	switch c.Suggest.Provider {
	case ProviderGemini:
		set(&c.Suggest.APIKey, "GEMINI_API_KEY")
	case ProviderClaude:
		set(&c.Suggest.APIKey, "ANTHROPIC_API_KEY")
	}
}

// Validate rejects configurations the application cannot run with.
func (c Config) Validate() error {
	switch c.Store.Backend {
	case BackendBigQuery:
		if c.Store.ProjectID == "" || c.Store.Dataset == "" {
			return fmt.Errorf("Validate: bigquery backend needs project_id and dataset")
		}
	case BackendFlatFile:
		if c.Store.DataDir == "" {
			return fmt.Errorf("Validate: flatfile backend needs data_dir")
		}
	case BackendBolt:
		if c.Store.BoltPath == "" {
			return fmt.Errorf("Validate: bolt backend needs bolt_path")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("Validate: unknown store backend %q", c.Store.Backend)
	}

	switch c.Suggest.Provider {
	case "", ProviderBayes, ProviderGemini, ProviderClaude:
	default:
		return fmt.Errorf("Validate: unknown suggest provider %q", c.Suggest.Provider)
	}

	if c.Import.FuzzyWindowDays < 0 {
		return fmt.Errorf("Validate: fuzzy_window_days must be >= 0, got %d", c.Import.FuzzyWindowDays)
	}

	seen := make(map[string]bool, len(c.Budget.Defaults))
	for _, d := range c.Budget.Defaults {
		if strings.TrimSpace(d.Category) == "" {
			return fmt.Errorf("Validate: default category with empty name")
		}
		if seen[d.Category] {
			return fmt.Errorf("Validate: default category %q listed twice", d.Category)
		}
		seen[d.Category] = true
		amt, err := decimal.NewFromString(strings.TrimSpace(d.Budget))
		if err != nil || amt.IsNegative() {
			return fmt.Errorf("Validate: default category %q has invalid budget %q", d.Category, d.Budget)
		}
	}

	for _, k := range c.Import.DefaultKeywords {
		if strings.TrimSpace(k.Keyword) == "" {
			return fmt.Errorf("Validate: default keyword for %q is empty", k.Category)
		}
	}

	if c.Notify.SMTP.Host != "" {
		if c.Notify.SMTP.From == "" || len(c.Notify.SMTP.To) == 0 {
			return fmt.Errorf("Validate: smtp needs from and to")
		}
		if c.Notify.SMTP.Port <= 0 {
			return fmt.Errorf("Validate: smtp port %d is invalid", c.Notify.SMTP.Port)
		}
	}
	return nil
}
