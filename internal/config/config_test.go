package config

import (
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackzampolin/bindery/internal/library"
	"github.com/jackzampolin/bindery/internal/loan"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configFile := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configFile, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return configFile
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Loan.Policy != PolicyCopyOutMoveBack {
		t.Errorf("expected default loan policy %q, got %q", PolicyCopyOutMoveBack, cfg.Loan.Policy)
	}
	if cfg.Library.ShelfFilter != FilterCaseSensitive {
		t.Errorf("expected case-sensitive shelf filter, got %q", cfg.Library.ShelfFilter)
	}
	if cfg.Library.ReadingFilter != FilterCaseInsensitive {
		t.Errorf("expected case-insensitive reading filter, got %q", cfg.Library.ReadingFilter)
	}
	if cfg.OCR.Providers["vision"].APIKey != "${OPENAI_API_KEY}" {
		t.Error("expected vision API key placeholder")
	}
	if cfg.Library.Debounce() != 200*time.Millisecond {
		t.Errorf("expected 200ms debounce, got %s", cfg.Library.Debounce())
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"bad order", func(c *Config) { c.Library.AggregateOrder = "random" }, "aggregate_order"},
		{"bad shelf filter", func(c *Config) { c.Library.ShelfFilter = "fuzzy" }, "shelf_filter"},
		{"bad policy", func(c *Config) { c.Loan.Policy = "lend" }, "loan.policy"},
		{"bad debounce", func(c *Config) { c.Library.WatchDebounce = "soon" }, "watch_debounce"},
		{"bad timeout", func(c *Config) {
			p := c.OCR.Providers["paddle"]
			p.Timeout = "forever"
			c.OCR.Providers["paddle"] = p
		}, "ocr.providers.paddle.timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q should mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_ValidateAcceptsDomainValues(t *testing.T) {
	for _, o := range []library.Order{library.OrderLexical, library.OrderListing} {
		cfg := DefaultConfig()
		cfg.Library.AggregateOrder = string(o)
		if err := cfg.Validate(); err != nil {
			t.Errorf("order %q rejected: %v", o, err)
		}
	}
	for _, m := range []library.FilterMode{library.CaseSensitive, library.CaseInsensitive} {
		cfg := DefaultConfig()
		cfg.Library.ShelfFilter = string(m)
		cfg.Library.ReadingFilter = string(m)
		if err := cfg.Validate(); err != nil {
			t.Errorf("filter mode %q rejected: %v", m, err)
		}
	}
	for _, p := range []loan.Policy{loan.PolicyCopyOutMoveBack, loan.PolicyAlwaysMove} {
		cfg := DefaultConfig()
		cfg.Loan.Policy = string(p)
		if err := cfg.Validate(); err != nil {
			t.Errorf("policy %q rejected: %v", p, err)
		}
	}
	if library.Order("random").Valid() || library.FilterMode("fuzzy").Valid() || loan.Policy("lend").Valid() {
		t.Error("unknown values should not be valid")
	}
}

func TestResolveEnvVars(t *testing.T) {
	t.Run("resolves environment variable", func(t *testing.T) {
		t.Setenv("TEST_API_KEY", "secret123")

		result := ResolveEnvVars("${TEST_API_KEY}")
		if result != "secret123" {
			t.Errorf("expected secret123, got %s", result)
		}
	})

	t.Run("returns empty for missing env var", func(t *testing.T) {
		result := ResolveEnvVars("${DEFINITELY_NOT_SET_12345}")
		if result != "" {
			t.Errorf("expected empty string, got %s", result)
		}
	})

	t.Run("leaves literal values unchanged", func(t *testing.T) {
		result := ResolveEnvVars("literal-value")
		if result != "literal-value" {
			t.Errorf("expected literal-value, got %s", result)
		}
	})
}

func TestNewManager(t *testing.T) {
	t.Run("loads from config file", func(t *testing.T) {
		configFile := writeConfig(t, `
library:
  archive_root: /srv/books
loan:
  policy: always-move
`)

		mgr, err := NewManager(configFile, "")
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}

		cfg := mgr.Get()
		if cfg.Library.ArchiveRoot != "/srv/books" {
			t.Errorf("expected /srv/books, got %s", cfg.Library.ArchiveRoot)
		}
		if cfg.Loan.Policy != PolicyAlwaysMove {
			t.Errorf("expected always-move, got %s", cfg.Loan.Policy)
		}
		// Untouched keys keep defaults
		if cfg.Library.AggregateOrder != OrderLexical {
			t.Errorf("expected default aggregate order, got %s", cfg.Library.AggregateOrder)
		}
	})

	t.Run("missing config file in search path uses defaults", func(t *testing.T) {
		t.Chdir(t.TempDir())
		mgr, err := NewManager("", t.TempDir())
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}
		if mgr.Get().OCR.Default != "paddle" {
			t.Errorf("expected default OCR paddle, got %s", mgr.Get().OCR.Default)
		}
	})

	t.Run("rejects invalid values", func(t *testing.T) {
		configFile := writeConfig(t, "loan:\n  policy: borrow\n")
		if _, err := NewManager(configFile, ""); err == nil {
			t.Fatal("expected error for invalid loan policy")
		}
	})
}

func TestManager_OnChange_Multiple(t *testing.T) {
	configFile := writeConfig(t, "log_level: info\n")

	mgr, err := NewManager(configFile, "")
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	mgr.OnChange(func(cfg *Config) {})
	mgr.OnChange(func(cfg *Config) {})
	mgr.OnChange(func(cfg *Config) {})

	mgr.mu.RLock()
	if len(mgr.callbacks) != 3 {
		t.Errorf("expected 3 callbacks, got %d", len(mgr.callbacks))
	}
	mgr.mu.RUnlock()
}

func TestManager_Get_ThreadSafe(t *testing.T) {
	configFile := writeConfig(t, "log_level: debug\n")

	mgr, err := NewManager(configFile, "")
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				_ = mgr.Get().LogLevel
			}
			done <- struct{}{}
		}()
	}

	for i := 0; i < 10; i++ {
		<-done
	}
}

func TestManager_WatchConfig(t *testing.T) {
	configFile := writeConfig(t, "loan:\n  policy: copy-out/move-back\n")

	mgr, err := NewManager(configFile, "")
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	var callbackCount atomic.Int32
	var lastValue atomic.Value

	mgr.OnChange(func(cfg *Config) {
		callbackCount.Add(1)
		lastValue.Store(cfg.Loan.Policy)
	})

	mgr.WatchConfig()

	// Give fsnotify time to set up the watcher
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(configFile, []byte("loan:\n  policy: always-move\n"), 0644); err != nil {
		t.Fatalf("failed to write updated config file: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if v, _ := lastValue.Load().(string); v == PolicyAlwaysMove {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	if callbackCount.Load() == 0 {
		t.Fatal("callback was not invoked after config file change")
	}
	if got := mgr.Get().Loan.Policy; got != PolicyAlwaysMove {
		t.Errorf("config not updated: expected always-move, got %s", got)
	}
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}

	mgr, err := NewManager(path, "")
	if err != nil {
		t.Fatalf("written default config should load: %v", err)
	}
	cfg := mgr.Get()
	if cfg.OCRServer.Port != "8868" {
		t.Errorf("expected ocr_server.port 8868, got %q", cfg.OCRServer.Port)
	}
	if p, ok := cfg.GetOCRProvider("paddle"); !ok || p.URL != "http://localhost:8868" {
		t.Errorf("expected paddle provider from written config, got %+v", p)
	}
}
