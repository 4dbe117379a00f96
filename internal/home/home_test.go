package home

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNew(t *testing.T) {
	t.Run("with explicit path", func(t *testing.T) {
		dir, err := New("/tmp/test-bindery")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if dir.Path() != "/tmp/test-bindery" {
			t.Errorf("expected path /tmp/test-bindery, got %s", dir.Path())
		}
	})

	t.Run("with empty path uses default", func(t *testing.T) {
		dir, err := New("")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		home, _ := os.UserHomeDir()
		expected := filepath.Join(home, DefaultDirName)
		if dir.Path() != expected {
			t.Errorf("expected path %s, got %s", expected, dir.Path())
		}
	})
}

func TestDir_Paths(t *testing.T) {
	dir, _ := New("/tmp/test-bindery")

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"BindingPath", dir.BindingPath(), "/tmp/test-bindery/binding"},
		{"ReadingPath", dir.ReadingPath(), "/tmp/test-bindery/reading"},
		{"HistoryPath", dir.HistoryPath(), "/tmp/test-bindery/history"},
		{"ConfigPath", dir.ConfigPath(), "/tmp/test-bindery/config.yaml"},
		{"SettingsPath", dir.SettingsPath(), "/tmp/test-bindery/settings.json"},
		{"CropDir", dir.CropDir("", "/scans/page 3.jpg"), "/tmp/test-bindery/history/page 3"},
		{"CropDir custom root", dir.CropDir("/crops", "a.png"), "/crops/a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, tt.got)
			}
		})
	}
}

func TestDir_Resolve(t *testing.T) {
	dir, _ := New("/tmp/test-bindery")

	if got := dir.Resolve("", "/fallback"); got != "/fallback" {
		t.Errorf("empty path: got %s", got)
	}
	if got := dir.Resolve("/abs/books", "/fallback"); got != "/abs/books" {
		t.Errorf("absolute path: got %s", got)
	}
	if got := dir.Resolve("books", "/fallback"); got != "/tmp/test-bindery/books" {
		t.Errorf("relative path: got %s", got)
	}
}

func TestDir_EnsureExists(t *testing.T) {
	tmpDir := t.TempDir()
	root := filepath.Join(tmpDir, "bindery-test")

	dir, err := New(root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if dir.Exists() {
		t.Error("directory should not exist before EnsureExists")
	}

	if err := dir.EnsureExists(); err != nil {
		t.Fatalf("EnsureExists failed: %v", err)
	}

	if !dir.Exists() {
		t.Error("directory should exist after EnsureExists")
	}

	for _, p := range []string{dir.BindingPath(), dir.ReadingPath(), dir.HistoryPath()} {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			t.Errorf("%s should exist after EnsureExists", p)
		}
	}
}

func TestDir_ConfigExists(t *testing.T) {
	tmpDir := t.TempDir()
	dir, _ := New(tmpDir)

	if dir.ConfigExists() {
		t.Error("config should not exist initially")
	}

	if err := os.WriteFile(dir.ConfigPath(), []byte("log_level: info\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}

	if !dir.ConfigExists() {
		t.Error("config should exist after creation")
	}
}
