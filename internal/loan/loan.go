// Package loan moves books between the archive root (shelved) and the
// reading root (checked out).
package loan

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/jackzampolin/bindery/internal/archive"
	"github.com/jackzampolin/bindery/internal/library"
)

// Policy decides whether check-out copies or moves.
type Policy string

const (
	// PolicyCopyOutMoveBack leaves a shelf copy on check-out; return moves
	// the reading copy back over it.
	PolicyCopyOutMoveBack Policy = "copy-out/move-back"
	// PolicyAlwaysMove moves in both directions.
	PolicyAlwaysMove Policy = "always-move"
)

// Valid reports whether p is a known policy.
func (p Policy) Valid() bool { return p == PolicyCopyOutMoveBack || p == PolicyAlwaysMove }

var (
	// ErrUnknownBook is returned when a book is in neither root.
	ErrUnknownBook = errors.New("book not found")
	// ErrInvalidBookName is returned for names that are not a single folder.
	ErrInvalidBookName = errors.New("invalid book name")
	// ErrOverlappingRoots is returned when the archive and reading roots are
	// the same folder or one contains the other.
	ErrOverlappingRoots = errors.New("archive and reading roots overlap")
)

// SourceMissingError reports a transition whose source folder does not exist.
type SourceMissingError struct {
	Path string
}

func (e *SourceMissingError) Error() string {
	return fmt.Sprintf("source folder missing: %s", e.Path)
}

// TransferError wraps an I/O failure during a transition.
type TransferError struct {
	Op    string
	Path  string
	Cause error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Cause)
}

func (e *TransferError) Unwrap() error { return e.Cause }

// Machine performs check-out and return between two roots.
type Machine struct {
	ArchiveRoot string
	ReadingRoot string
	Policy      Policy
	Logger      *slog.Logger
}

// New creates a machine. An empty policy means PolicyCopyOutMoveBack.
func New(archiveRoot, readingRoot string, policy Policy, logger *slog.Logger) *Machine {
	if policy == "" {
		policy = PolicyCopyOutMoveBack
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Machine{ArchiveRoot: archiveRoot, ReadingRoot: readingRoot, Policy: policy, Logger: logger}
}

func (m *Machine) logger() *slog.Logger {
	if m.Logger == nil {
		return slog.Default()
	}
	return m.Logger
}

// CheckOut places the book in the reading root, replacing any reading copy.
func (m *Machine) CheckOut(ctx context.Context, name string) (library.Book, error) {
	move := m.Policy == PolicyAlwaysMove
	if err := m.transfer(ctx, name, m.ArchiveRoot, m.ReadingRoot, move); err != nil {
		return library.Book{}, err
	}
	m.logger().Info("book checked out", "book", name, "policy", string(m.Policy))
	return library.Book{Name: name, Path: filepath.Join(m.ReadingRoot, name), Location: library.CheckedOut}, nil
}

// Return moves the book back to the archive root, replacing the shelf copy.
func (m *Machine) Return(ctx context.Context, name string) (library.Book, error) {
	if err := m.transfer(ctx, name, m.ReadingRoot, m.ArchiveRoot, true); err != nil {
		return library.Book{}, err
	}
	m.logger().Info("book returned", "book", name)
	return library.Book{Name: name, Path: filepath.Join(m.ArchiveRoot, name), Location: library.Shelved}, nil
}

// Location reports where the book is on disk. A book present in both roots
// is checked out.
func (m *Machine) Location(name string) (library.Location, error) {
	if err := validName(name); err != nil {
		return "", err
	}
	if isDir(filepath.Join(m.ReadingRoot, name)) {
		return library.CheckedOut, nil
	}
	if isDir(filepath.Join(m.ArchiveRoot, name)) {
		return library.Shelved, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownBook, name)
}

func (m *Machine) transfer(ctx context.Context, name, fromRoot, toRoot string, move bool) error {
	if err := validName(name); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := CheckRoots(fromRoot, toRoot); err != nil {
		return err
	}
	src := filepath.Join(fromRoot, name)
	dst := filepath.Join(toRoot, name)
	if !isDir(src) {
		return &SourceMissingError{Path: src}
	}
	if err := os.MkdirAll(toRoot, 0o755); err != nil {
		return &archive.DirectoryCreateError{Path: toRoot, Cause: err}
	}
	if err := os.RemoveAll(dst); err != nil {
		return &TransferError{Op: "remove", Path: dst, Cause: err}
	}

	if move {
		return moveDir(src, dst)
	}
	if err := copyDir(src, dst); err != nil {
		os.RemoveAll(dst)
		return err
	}
	return nil
}

// CheckRoots fails with ErrOverlappingRoots when a and b name the same
// folder or one is nested inside the other. Symlinks are resolved for the
// parts of each path that exist.
func CheckRoots(a, b string) error {
	ra, err := canonical(a)
	if err != nil {
		return err
	}
	rb, err := canonical(b)
	if err != nil {
		return err
	}
	if ra == rb || within(ra, rb) || within(rb, ra) {
		return fmt.Errorf("%w: %s and %s", ErrOverlappingRoots, a, b)
	}
	return nil
}

func within(parent, child string) bool {
	rel, err := filepath.Rel(parent, child)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// canonical returns the absolute path with symlinks resolved in its longest
// existing prefix.
func canonical(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	rest := ""
	cur := abs
	for {
		if resolved, err := filepath.EvalSymlinks(cur); err == nil {
			return filepath.Join(resolved, rest), nil
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return abs, nil
		}
		rest = filepath.Join(filepath.Base(cur), rest)
		cur = parent
	}
}

func validName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidBookName, name)
	}
	return nil
}

func isDir(p string) bool {
	fi, err := os.Stat(p)
	return err == nil && fi.IsDir()
}

// moveDir renames src to dst, copying and deleting when they are on
// different filesystems.
func moveDir(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return &TransferError{Op: "move", Path: src, Cause: err}
	}
	if err := copyDir(src, dst); err != nil {
		os.RemoveAll(dst)
		return err
	}
	if err := os.RemoveAll(src); err != nil {
		return &TransferError{Op: "remove", Path: src, Cause: err}
	}
	return nil
}

func copyDir(src, dst string) error {
	// A symlinked book is copied as the folder it points to.
	if resolved, err := filepath.EvalSymlinks(src); err == nil {
		src = resolved
	}
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return &TransferError{Op: "copy", Path: path, Cause: err}
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return &TransferError{Op: "copy", Path: path, Cause: err}
		}
		target := filepath.Join(dst, rel)
		info, err := d.Info()
		if err != nil {
			return &TransferError{Op: "copy", Path: path, Cause: err}
		}
		if d.IsDir() {
			if err := os.MkdirAll(target, info.Mode().Perm()|0o700); err != nil {
				return &TransferError{Op: "copy", Path: target, Cause: err}
			}
			return nil
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		if err := copyFile(path, target, info.Mode().Perm()); err != nil {
			return &TransferError{Op: "copy", Path: path, Cause: err}
		}
		return nil
	})
}

func copyFile(src, dst string, perm fs.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
