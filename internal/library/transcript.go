package library

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Order selects how directory entries are sequenced when aggregating.
type Order string

const (
	// OrderLexical sorts entries by name, giving the same output on every
	// platform.
	OrderLexical Order = "lexical"
	// OrderListing keeps whatever order the filesystem returns.
	OrderListing Order = "listing"
)

// Valid reports whether o is a known order.
func (o Order) Valid() bool { return o == OrderLexical || o == OrderListing }

// AggregateTranscript concatenates every .txt file under the book. Within
// each folder its own transcripts come first, then its sub-folders are
// visited in turn.
func AggregateTranscript(book Book, order Order) (string, error) {
	var b strings.Builder
	if err := aggregate(&b, book.Path, order, true); err != nil {
		return "", err
	}
	return b.String(), nil
}

// DirTranscript concatenates only the .txt files directly inside dir.
func DirTranscript(dir string, order Order) (string, error) {
	var b strings.Builder
	if err := aggregate(&b, dir, order, false); err != nil {
		return "", err
	}
	return b.String(), nil
}

func aggregate(b *strings.Builder, dir string, order Order, recurse bool) error {
	entries, err := readDir(dir, order)
	if err != nil {
		return err
	}
	var subdirs []string
	for _, e := range entries {
		if e.IsDir() {
			subdirs = append(subdirs, filepath.Join(dir, e.Name()))
			continue
		}
		if !isTranscript(e.Name()) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return fmt.Errorf("failed to read transcript: %w", err)
		}
		b.Write(data)
	}
	if !recurse {
		return nil
	}
	for _, sub := range subdirs {
		if err := aggregate(b, sub, order, true); err != nil {
			return err
		}
	}
	return nil
}

// readDir returns the entries of dir in the requested order. os.ReadDir
// always sorts, so listing order reads the raw directory stream.
func readDir(dir string, order Order) ([]os.DirEntry, error) {
	f, err := os.Open(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", dir, err)
	}
	defer f.Close()
	entries, err := f.ReadDir(-1)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	if order != OrderListing {
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	}
	return entries, nil
}

func isTranscript(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".txt")
}

var imageExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".bmp": true,
	".gif": true, ".tif": true, ".tiff": true, ".webp": true,
}

// IsImage reports whether name has a page-image extension.
func IsImage(name string) bool {
	return imageExts[strings.ToLower(filepath.Ext(name))]
}
