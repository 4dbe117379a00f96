package svcctx

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackzampolin/bindery/internal/archive"
	"github.com/jackzampolin/bindery/internal/config"
	"github.com/jackzampolin/bindery/internal/home"
	"github.com/jackzampolin/bindery/internal/library"
	"github.com/jackzampolin/bindery/internal/loan"
	"github.com/jackzampolin/bindery/internal/recognition"
	"github.com/jackzampolin/bindery/internal/settings"
)

// Options are the inputs New resolves everything else from.
type Options struct {
	Home        *home.Dir
	Config      *config.Manager
	Logger      *slog.Logger
	Recognizers *recognition.Registry
}

// New resolves the library roots and builds the services. The archive
// root comes from the path setting when set, then library.archive_root,
// then {home}/binding. Both roots are created when missing and must not
// overlap.
func New(ctx context.Context, opts Options) (*Services, error) {
	if opts.Home == nil || opts.Config == nil {
		return nil, fmt.Errorf("home and config are required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	recognizers := opts.Recognizers
	if recognizers == nil {
		recognizers = recognition.NewRegistry()
	}

	store, err := settings.NewFileStore(opts.Home.SettingsPath())
	if err != nil {
		return nil, err
	}
	st, err := settings.Load(ctx, store)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	h := opts.Home
	cfg := opts.Config.Get()
	archiveRoot := h.Resolve(cfg.Library.ArchiveRoot, h.BindingPath())
	if st.Path != "" {
		archiveRoot = h.Resolve(st.Path, archiveRoot)
	}
	readingRoot := h.Resolve(cfg.Library.ReadingRoot, h.ReadingPath())
	if err := loan.CheckRoots(archiveRoot, readingRoot); err != nil {
		return nil, err
	}
	for _, root := range []string{archiveRoot, readingRoot} {
		if err := os.MkdirAll(root, 0o755); err != nil {
			return nil, &archive.DirectoryCreateError{Path: root, Cause: err}
		}
	}

	shelf, err := library.NewIndex(archiveRoot, library.Shelved, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to index archive: %w", err)
	}
	reading, err := library.NewIndex(readingRoot, library.CheckedOut, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to index reading root: %w", err)
	}

	logger.Debug("services ready", "archive", archiveRoot, "reading", readingRoot,
		"recognizers", recognizers.Names())

	return &Services{
		Config:      opts.Config,
		Settings:    store,
		Home:        h,
		Logger:      logger,
		Recognizers: recognizers,
		Shelf:       shelf,
		Reading:     reading,
		Loans:       loan.New(archiveRoot, readingRoot, loan.Policy(cfg.Loan.Policy), logger),
		Archive:     archive.NewWriter(archiveRoot, logger),
		HistoryRoot: h.Resolve(cfg.Library.HistoryRoot, h.HistoryPath()),
		ExportsRoot: h.ExportsPath(),
	}, nil
}
