package config

import (
	"fmt"
	"time"

	"github.com/jackzampolin/bindery/internal/library"
	"github.com/jackzampolin/bindery/internal/loan"
)

// Config holds bindery configuration.
// Stored at: {home}/config.yaml
type Config struct {
	LogLevel  string       `mapstructure:"log_level" yaml:"log_level"`
	Library   LibraryCfg   `mapstructure:"library" yaml:"library"`
	Loan      LoanCfg      `mapstructure:"loan" yaml:"loan"`
	OCR       OCRCfg       `mapstructure:"ocr" yaml:"ocr"`
	OCRServer OCRServerCfg `mapstructure:"ocr_server" yaml:"ocr_server"`
}

// LibraryCfg locates the archive and reading roots and tunes the index.
type LibraryCfg struct {
	ArchiveRoot    string `mapstructure:"archive_root" yaml:"archive_root"`       // Empty: {home}/binding
	ReadingRoot    string `mapstructure:"reading_root" yaml:"reading_root"`       // Empty: {home}/reading
	HistoryRoot    string `mapstructure:"history_root" yaml:"history_root"`       // Empty: {home}/history
	AggregateOrder string `mapstructure:"aggregate_order" yaml:"aggregate_order"` // "lexical" or "listing"
	ShelfFilter    string `mapstructure:"shelf_filter" yaml:"shelf_filter"`       // "case-sensitive" or "case-insensitive"
	ReadingFilter  string `mapstructure:"reading_filter" yaml:"reading_filter"`
	WatchDebounce  string `mapstructure:"watch_debounce" yaml:"watch_debounce"` // Go duration, e.g. "200ms"
}

// LoanCfg selects the check-out/return policy.
type LoanCfg struct {
	Policy string `mapstructure:"policy" yaml:"policy"` // "copy-out/move-back" or "always-move"
}

// OCRCfg configures the recognizers available to review sessions.
type OCRCfg struct {
	Default   string                    `mapstructure:"default" yaml:"default"`
	Providers map[string]OCRProviderCfg `mapstructure:"providers" yaml:"providers"`
}

// OCRProviderCfg configures one recognizer.
type OCRProviderCfg struct {
	Type       string `mapstructure:"type" yaml:"type"`               // "paddle", "vision", "tesseract"
	URL        string `mapstructure:"url" yaml:"url"`                 // Base URL (paddle, vision)
	Model      string `mapstructure:"model" yaml:"model"`             // Model name (vision)
	APIKey     string `mapstructure:"api_key" yaml:"api_key"`         // Supports ${ENV_VAR} syntax
	Language   string `mapstructure:"language" yaml:"language"`       // Tesseract language, e.g. "chi_sim"
	Timeout    string `mapstructure:"timeout" yaml:"timeout"`         // Go duration
	MaxRetries int    `mapstructure:"max_retries" yaml:"max_retries"` // Transport retries
	Enabled    bool   `mapstructure:"enabled" yaml:"enabled"`
}

// OCRServerCfg holds the PaddleOCR serving container configuration.
type OCRServerCfg struct {
	ContainerName string `mapstructure:"container_name" yaml:"container_name"` // Empty: derived from the home path
	Image         string `mapstructure:"image" yaml:"image"`
	Port          string `mapstructure:"port" yaml:"port"`
}

// Enumerated values as they appear in the config file.
const (
	OrderLexical = string(library.OrderLexical)
	OrderListing = string(library.OrderListing)

	FilterCaseSensitive   = string(library.CaseSensitive)
	FilterCaseInsensitive = string(library.CaseInsensitive)

	PolicyCopyOutMoveBack = string(loan.PolicyCopyOutMoveBack)
	PolicyAlwaysMove      = string(loan.PolicyAlwaysMove)
)

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Library: LibraryCfg{
			AggregateOrder: OrderLexical,
			ShelfFilter:    FilterCaseSensitive,
			ReadingFilter:  FilterCaseInsensitive,
			WatchDebounce:  "200ms",
		},
		Loan: LoanCfg{
			Policy: PolicyCopyOutMoveBack,
		},
		OCR: OCRCfg{
			Default: "paddle",
			Providers: map[string]OCRProviderCfg{
				"paddle": {
					Type:       "paddle",
					URL:        "http://localhost:8868",
					Timeout:    "120s",
					MaxRetries: 3,
					Enabled:    true,
				},
				"vision": {
					Type:       "vision",
					URL:        "https://api.openai.com/v1",
					Model:      "gpt-4o-mini",
					APIKey:     "${OPENAI_API_KEY}",
					Timeout:    "120s",
					MaxRetries: 2,
					Enabled:    false,
				},
				"tesseract": {
					Type:     "tesseract",
					Language: "chi_sim",
					Enabled:  false,
				},
			},
		},
		OCRServer: OCRServerCfg{
			Image: "paddlecloud/paddleocr:2.6-cpu-latest",
			Port:  "8868",
		},
	}
}

// Validate checks enumerated fields and durations.
func (c *Config) Validate() error {
	if !library.Order(c.Library.AggregateOrder).Valid() {
		return fmt.Errorf("library.aggregate_order: unknown order %q", c.Library.AggregateOrder)
	}
	for key, v := range map[string]string{
		"library.shelf_filter":   c.Library.ShelfFilter,
		"library.reading_filter": c.Library.ReadingFilter,
	} {
		if !library.FilterMode(v).Valid() {
			return fmt.Errorf("%s: unknown filter mode %q", key, v)
		}
	}
	if !loan.Policy(c.Loan.Policy).Valid() {
		return fmt.Errorf("loan.policy: unknown policy %q", c.Loan.Policy)
	}
	if _, err := parseDuration(c.Library.WatchDebounce); err != nil {
		return fmt.Errorf("library.watch_debounce: %w", err)
	}
	for name, p := range c.OCR.Providers {
		if _, err := parseDuration(p.Timeout); err != nil {
			return fmt.Errorf("ocr.providers.%s.timeout: %w", name, err)
		}
	}
	return nil
}

// Debounce returns the parsed watch debounce interval.
func (l LibraryCfg) Debounce() time.Duration {
	d, _ := parseDuration(l.WatchDebounce)
	return d
}

// TimeoutDuration returns the parsed provider timeout, zero when unset.
func (p OCRProviderCfg) TimeoutDuration() time.Duration {
	d, _ := parseDuration(p.Timeout)
	return d
}

// GetOCRProvider returns a provider config by name.
func (c *Config) GetOCRProvider(name string) (OCRProviderCfg, bool) {
	cfg, ok := c.OCR.Providers[name]
	return cfg, ok
}

// EnabledOCRProviders returns only enabled OCR providers.
func (c *Config) EnabledOCRProviders() map[string]OCRProviderCfg {
	result := make(map[string]OCRProviderCfg)
	for name, cfg := range c.OCR.Providers {
		if cfg.Enabled {
			result[name] = cfg
		}
	}
	return result
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}
