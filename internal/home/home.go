package home

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// DefaultDirName is the default name for the bindery home directory.
	DefaultDirName = ".bindery"

	// BindingDirName holds shelved books (the archive root).
	BindingDirName = "binding"

	// ReadingDirName holds checked-out books.
	ReadingDirName = "reading"

	// HistoryDirName holds per-image region crops produced during review.
	HistoryDirName = "history"

	// ExportsDirName holds exported PDFs.
	ExportsDirName = "exports"

	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"

	// SettingsFileName is the user settings record.
	SettingsFileName = "settings.json"
)

// Dir represents the bindery home directory structure.
type Dir struct {
	path string
}

// New creates a new Dir with the given path.
// If path is empty, uses the default (~/.bindery).
func New(path string) (*Dir, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(home, DefaultDirName)
	}

	return &Dir{path: path}, nil
}

// Path returns the root path of the home directory.
func (d *Dir) Path() string {
	return d.path
}

// BindingPath returns the default archive root.
func (d *Dir) BindingPath() string {
	return filepath.Join(d.path, BindingDirName)
}

// ReadingPath returns the default reading root.
func (d *Dir) ReadingPath() string {
	return filepath.Join(d.path, ReadingDirName)
}

// HistoryPath returns the root for region crops.
func (d *Dir) HistoryPath() string {
	return filepath.Join(d.path, HistoryDirName)
}

// ExportsPath returns the directory for exported files.
func (d *Dir) ExportsPath() string {
	return filepath.Join(d.path, ExportsDirName)
}

// ConfigPath returns the path to the default config file.
func (d *Dir) ConfigPath() string {
	return filepath.Join(d.path, ConfigFileName)
}

// SettingsPath returns the path to the settings record.
func (d *Dir) SettingsPath() string {
	return filepath.Join(d.path, SettingsFileName)
}

// CropDir returns the crop directory for a source image, keyed by its file stem.
func (d *Dir) CropDir(root, imagePath string) string {
	if root == "" {
		root = d.HistoryPath()
	}
	base := filepath.Base(imagePath)
	return filepath.Join(root, strings.TrimSuffix(base, filepath.Ext(base)))
}

// Resolve returns p unchanged when set, otherwise fallback. Relative
// paths are taken relative to the home directory.
func (d *Dir) Resolve(p, fallback string) string {
	if p == "" {
		return fallback
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(d.path, p)
}

// EnsureExists creates the home directory and the binding, reading and
// history subdirectories if they don't exist.
func (d *Dir) EnsureExists() error {
	for _, p := range []string{d.BindingPath(), d.ReadingPath(), d.HistoryPath()} {
		if err := os.MkdirAll(p, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", p, err)
		}
	}
	return nil
}

// Exists returns true if the home directory exists.
func (d *Dir) Exists() bool {
	_, err := os.Stat(d.path)
	return err == nil
}

// ConfigExists returns true if the config file exists in the home directory.
func (d *Dir) ConfigExists() bool {
	_, err := os.Stat(d.ConfigPath())
	return err == nil
}
