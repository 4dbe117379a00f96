// Package svcctx bundles the long-lived services a command needs and
// carries them through context.Context.
package svcctx

import (
	"context"
	"log/slog"

	"github.com/jackzampolin/bindery/internal/archive"
	"github.com/jackzampolin/bindery/internal/config"
	"github.com/jackzampolin/bindery/internal/home"
	"github.com/jackzampolin/bindery/internal/library"
	"github.com/jackzampolin/bindery/internal/loan"
	"github.com/jackzampolin/bindery/internal/recognition"
	"github.com/jackzampolin/bindery/internal/settings"
)

// Services holds all core services that flow through context.
// Components extract what they need via the individual extractors.
type Services struct {
	Config      *config.Manager
	Settings    settings.Store
	Home        *home.Dir
	Logger      *slog.Logger
	Recognizers *recognition.Registry
	Shelf       *library.Index
	Reading     *library.Index
	Loans       *loan.Machine
	Archive     *archive.Writer

	// HistoryRoot receives region crops, ExportsRoot exported PDFs.
	HistoryRoot string
	ExportsRoot string
}

type servicesKey struct{}

// WithServices returns a new context with services attached.
func WithServices(ctx context.Context, s *Services) context.Context {
	return context.WithValue(ctx, servicesKey{}, s)
}

// ServicesFrom extracts the full Services struct from context.
// Returns nil if not present.
func ServicesFrom(ctx context.Context) *Services {
	s, _ := ctx.Value(servicesKey{}).(*Services)
	return s
}

// ConfigFrom extracts the config manager from context.
func ConfigFrom(ctx context.Context) *config.Manager {
	if s := ServicesFrom(ctx); s != nil {
		return s.Config
	}
	return nil
}

// SettingsFrom extracts the settings store from context.
func SettingsFrom(ctx context.Context) settings.Store {
	if s := ServicesFrom(ctx); s != nil {
		return s.Settings
	}
	return nil
}

// HomeFrom extracts the home directory from context.
func HomeFrom(ctx context.Context) *home.Dir {
	if s := ServicesFrom(ctx); s != nil {
		return s.Home
	}
	return nil
}

// LoggerFrom extracts the logger from context, falling back to slog.Default.
func LoggerFrom(ctx context.Context) *slog.Logger {
	if s := ServicesFrom(ctx); s != nil && s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// RecognizersFrom extracts the recognizer registry from context.
func RecognizersFrom(ctx context.Context) *recognition.Registry {
	if s := ServicesFrom(ctx); s != nil {
		return s.Recognizers
	}
	return nil
}

// ShelfFrom extracts the archive-root index from context.
func ShelfFrom(ctx context.Context) *library.Index {
	if s := ServicesFrom(ctx); s != nil {
		return s.Shelf
	}
	return nil
}

// ReadingFrom extracts the reading-root index from context.
func ReadingFrom(ctx context.Context) *library.Index {
	if s := ServicesFrom(ctx); s != nil {
		return s.Reading
	}
	return nil
}

// LoansFrom extracts the loan state machine from context.
func LoansFrom(ctx context.Context) *loan.Machine {
	if s := ServicesFrom(ctx); s != nil {
		return s.Loans
	}
	return nil
}

// ArchiveFrom extracts the archive writer from context.
func ArchiveFrom(ctx context.Context) *archive.Writer {
	if s := ServicesFrom(ctx); s != nil {
		return s.Archive
	}
	return nil
}
