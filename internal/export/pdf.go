// Package export renders a bound book's page images into a single PDF.
package export

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/jackzampolin/bindery/internal/library"
)

// ErrNoPages is returned when a book holds no page images.
var ErrNoPages = errors.New("book has no page images")

// formats pdfcpu can import directly; anything else is converted to PNG.
var direct = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".tif": true, ".tiff": true, ".webp": true}

// Report describes a finished export.
type Report struct {
	Book  string `json:"book" yaml:"book"`
	File  string `json:"file" yaml:"file"`
	Pages int    `json:"pages" yaml:"pages"`
}

// PageImages lists the book's images in path order, recursing into
// sub-folders.
func PageImages(book library.Book) ([]string, error) {
	// WalkDir does not follow a symlinked root.
	root, err := filepath.EvalSymlinks(book.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to list pages of %s: %w", book.Name, err)
	}
	var pages []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && library.IsImage(d.Name()) {
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			pages = append(pages, filepath.Join(book.Path, rel))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list pages of %s: %w", book.Name, err)
	}
	sort.Strings(pages)
	return pages, nil
}

// BookPDF writes every page image of book, one per PDF page, to outFile.
// An existing outFile is replaced.
func BookPDF(book library.Book, outFile string, logger *slog.Logger) (*Report, error) {
	if logger == nil {
		logger = slog.Default()
	}
	pages, err := PageImages(book)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoPages, book.Name)
	}

	tmp, err := os.MkdirTemp("", "bindery-export-")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmp)

	files := make([]string, 0, len(pages))
	for i, p := range pages {
		if direct[strings.ToLower(filepath.Ext(p))] {
			files = append(files, p)
			continue
		}
		img, err := imaging.Open(p)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", p, err)
		}
		conv := filepath.Join(tmp, fmt.Sprintf("page-%04d.png", i))
		if err := imaging.Save(img, conv); err != nil {
			return nil, fmt.Errorf("failed to convert %s: %w", p, err)
		}
		files = append(files, conv)
	}

	if err := os.MkdirAll(filepath.Dir(outFile), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}
	// pdfcpu appends to an existing file.
	if err := os.Remove(outFile); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to replace %s: %w", outFile, err)
	}

	conf := model.NewDefaultConfiguration()
	if err := api.ImportImagesFile(files, outFile, pdfcpu.DefaultImportConfig(), conf); err != nil {
		return nil, fmt.Errorf("failed to build pdf: %w", err)
	}

	count, err := pageCount(outFile)
	if err != nil {
		return nil, err
	}
	logger.Info("book exported", "book", book.Name, "file", outFile, "pages", count)
	return &Report{Book: book.Name, File: outFile, Pages: count}, nil
}

func pageCount(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open pdf: %w", err)
	}
	defer f.Close()
	n, err := api.PageCount(f, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count pages: %w", err)
	}
	return n, nil
}
