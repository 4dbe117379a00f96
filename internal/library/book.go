// Package library is the read side of the archive: it discovers books on
// disk, reconciles cached views against the filesystem, aggregates
// transcripts and builds the reading tree.
package library

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Location is where a book currently lives.
type Location string

const (
	Shelved    Location = "shelved"
	CheckedOut Location = "checked-out"
)

// Book is a folder directly under a library root.
type Book struct {
	Name     string   `json:"name" yaml:"name"`
	Path     string   `json:"path" yaml:"path"`
	Location Location `json:"location" yaml:"location"`
}

// Snapshot is the set of books found in one root, keyed by folder name.
type Snapshot map[string]Book

// Names returns the book names in sorted order.
func (s Snapshot) Names() []string {
	names := make([]string, 0, len(s))
	for n := range s {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Books returns the books sorted by name.
func (s Snapshot) Books() []Book {
	out := make([]Book, 0, len(s))
	for _, n := range s.Names() {
		out = append(out, s[n])
	}
	return out
}

// Diff is the result of reconciling a snapshot against disk.
type Diff struct {
	Added   []Book `json:"added" yaml:"added"`
	Removed []Book `json:"removed" yaml:"removed"`
}

// Empty reports whether nothing changed.
func (d Diff) Empty() bool { return len(d.Added) == 0 && len(d.Removed) == 0 }

// Scan lists the immediate subdirectories of root as books. Files at the
// root are ignored and a missing root yields an empty snapshot. A symlink
// to a folder counts as a book.
func Scan(root string, loc Location) (Snapshot, error) {
	entries, err := os.ReadDir(root)
	if os.IsNotExist(err) {
		return Snapshot{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}
	snap := make(Snapshot, len(entries))
	for _, e := range entries {
		if !isDirEntry(root, e) {
			continue
		}
		snap[e.Name()] = Book{Name: e.Name(), Path: filepath.Join(root, e.Name()), Location: loc}
	}
	return snap, nil
}

// isDirEntry reports whether e is a folder, following a symlink entry to
// its target.
func isDirEntry(dir string, e fs.DirEntry) bool {
	if e.Type()&fs.ModeSymlink == 0 {
		return e.IsDir()
	}
	fi, err := os.Stat(filepath.Join(dir, e.Name()))
	return err == nil && fi.IsDir()
}

// Reconcile rescans root and returns the names gained and lost since
// previous, along with the new snapshot. Books present in both are not
// reported.
func Reconcile(previous Snapshot, root string, loc Location) (Diff, Snapshot, error) {
	current, err := Scan(root, loc)
	if err != nil {
		return Diff{}, previous, err
	}
	var d Diff
	for _, name := range current.Names() {
		if _, ok := previous[name]; !ok {
			d.Added = append(d.Added, current[name])
		}
	}
	for _, name := range previous.Names() {
		if _, ok := current[name]; !ok {
			d.Removed = append(d.Removed, previous[name])
		}
	}
	return d, current, nil
}

// FilterMode selects how Filter compares names.
type FilterMode string

const (
	CaseSensitive   FilterMode = "case-sensitive"
	CaseInsensitive FilterMode = "case-insensitive"
)

func (m FilterMode) Valid() bool { return m == CaseSensitive || m == CaseInsensitive }

// Matches reports whether name contains sub under the mode. An empty sub
// matches everything.
func (m FilterMode) Matches(name, sub string) bool {
	if sub == "" {
		return true
	}
	if m == CaseInsensitive {
		return strings.Contains(strings.ToLower(name), strings.ToLower(sub))
	}
	return strings.Contains(name, sub)
}

// Filter returns the books whose names contain sub, keeping input order.
func Filter(books []Book, sub string, mode FilterMode) []Book {
	out := make([]Book, 0, len(books))
	for _, b := range books {
		if mode.Matches(b.Name, sub) {
			out = append(out, b)
		}
	}
	return out
}
