package library

import (
	"log/slog"
	"sync"
)

// Index caches the books of one root and keeps the cache in step with
// disk through Refresh. It is safe for concurrent use.
type Index struct {
	root     string
	location Location
	logger   *slog.Logger

	mu   sync.RWMutex
	snap Snapshot
}

// NewIndex creates an index over root and performs the initial scan.
func NewIndex(root string, loc Location, logger *slog.Logger) (*Index, error) {
	if logger == nil {
		logger = slog.Default()
	}
	snap, err := Scan(root, loc)
	if err != nil {
		return nil, err
	}
	return &Index{
		root:     root,
		location: loc,
		logger:   logger.With("root", root),
		snap:     snap,
	}, nil
}

// Root returns the scanned directory.
func (x *Index) Root() string { return x.root }

// Location returns the location assigned to books in this index.
func (x *Index) Location() Location { return x.location }

// Refresh reconciles the cache against disk and returns what changed.
// On error the cache is left as it was.
func (x *Index) Refresh() (Diff, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	diff, snap, err := Reconcile(x.snap, x.root, x.location)
	if err != nil {
		return Diff{}, err
	}
	x.snap = snap
	if !diff.Empty() {
		x.logger.Debug("library reconciled", "added", len(diff.Added), "removed", len(diff.Removed))
	}
	return diff, nil
}

// Books returns the cached books sorted by name.
func (x *Index) Books() []Book {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.snap.Books()
}

// Book looks up a cached book by name.
func (x *Index) Book(name string) (Book, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	b, ok := x.snap[name]
	return b, ok
}

// Len returns the number of cached books.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.snap)
}
