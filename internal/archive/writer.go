// Package archive binds a verified recognition session into the archive
// root as an image file and a transcript file sharing one base name.
package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/jackzampolin/bindery/internal/ledger"
	"github.com/jackzampolin/bindery/internal/recognition"

	// Decoders for scans that are not PNG or JPEG.
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	ImageExt = ".png"
	TextExt  = ".txt"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

// Page is the pair of files produced by one bind.
type Page struct {
	ImagePath string `json:"image" yaml:"image"`
	TextPath  string `json:"text" yaml:"text"`
}

// Outcome reports each half of a bind separately. A nil error means that
// half was written.
type Outcome struct {
	Page     Page
	ImageErr error
	TextErr  error
}

// OK reports whether both halves were written.
func (o *Outcome) OK() bool { return o.ImageErr == nil && o.TextErr == nil }

// Err joins the failures of both halves.
func (o *Outcome) Err() error { return errors.Join(o.ImageErr, o.TextErr) }

// Writer binds pages under Root.
type Writer struct {
	Root   string
	Logger *slog.Logger
}

// NewWriter creates a writer for the archive root.
func NewWriter(root string, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{Root: root, Logger: logger}
}

func (w *Writer) logger() *slog.Logger {
	if w.Logger == nil {
		return slog.Default()
	}
	return w.Logger
}

// Bind persists a verified result. Preconditions are checked in order and
// nothing is written when one fails: the result must have regions and the
// ledger must be complete. After that the image and the transcript are
// written independently; a blank transcript is reported as
// ErrEmptyTranscript while the image is still written. The returned error
// is Outcome.Err().
func (w *Writer) Bind(ctx context.Context, res *recognition.Result, l *ledger.Ledger, text, base string) (*Outcome, error) {
	if res.Empty() {
		return nil, ErrNothingToBind
	}
	if l == nil || !l.AllVerified() {
		idx := 0
		if l != nil {
			idx, _ = l.FirstUnverified()
		}
		return nil, &VerificationIncompleteError{Index: idx}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	page, err := w.page(base)
	if err != nil {
		return nil, err
	}
	if err := w.ensureDir(page.ImagePath); err != nil {
		return nil, err
	}

	out := &Outcome{Page: page}
	out.ImageErr = w.writeImage(res.Source(), page.ImagePath)
	out.TextErr = w.writeText(text, page.TextPath)

	log := w.logger().With("base", base)
	if out.OK() {
		log.Info("page bound", "image", page.ImagePath, "text", page.TextPath, "regions", res.Len())
	} else {
		log.Warn("page partially bound", "image_error", out.ImageErr, "text_error", out.TextErr)
	}
	return out, out.Err()
}

// BindImage writes only the image half, for retrying after a BindImageError.
func (w *Writer) BindImage(ctx context.Context, imagePath, base string) (Page, error) {
	if err := ctx.Err(); err != nil {
		return Page{}, err
	}
	page, err := w.page(base)
	if err != nil {
		return Page{}, err
	}
	if err := w.ensureDir(page.ImagePath); err != nil {
		return page, err
	}
	return page, w.writeImage(imagePath, page.ImagePath)
}

// BindText writes only the transcript half, for retrying after a BindTextError.
func (w *Writer) BindText(ctx context.Context, text, base string) (Page, error) {
	if err := ctx.Err(); err != nil {
		return Page{}, err
	}
	page, err := w.page(base)
	if err != nil {
		return Page{}, err
	}
	if err := w.ensureDir(page.TextPath); err != nil {
		return page, err
	}
	return page, w.writeText(text, page.TextPath)
}

// Exists reports whether binding base would overwrite an existing file.
func (w *Writer) Exists(base string) bool {
	page, err := w.page(base)
	if err != nil {
		return false
	}
	for _, p := range []string{page.ImagePath, page.TextPath} {
		if _, err := os.Stat(p); err == nil {
			return true
		}
	}
	return false
}

// page resolves base to the two destination paths. base may contain
// sub-folders and may carry a .png or .txt extension, which is dropped.
func (w *Writer) page(base string) (Page, error) {
	b := strings.TrimSpace(filepath.FromSlash(base))
	switch strings.ToLower(filepath.Ext(b)) {
	case ImageExt, TextExt:
		b = strings.TrimSuffix(b, filepath.Ext(b))
	}
	if b == "" || filepath.IsAbs(b) {
		return Page{}, fmt.Errorf("%w: %q", ErrInvalidName, base)
	}
	clean := filepath.Clean(b)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return Page{}, fmt.Errorf("%w: %q", ErrInvalidName, base)
	}
	stem := filepath.Join(w.Root, clean)
	return Page{ImagePath: stem + ImageExt, TextPath: stem + TextExt}, nil
}

func (w *Writer) ensureDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &DirectoryCreateError{Path: dir, Cause: err}
	}
	return nil
}

func (w *Writer) writeImage(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return &BindImageError{Path: dst, Cause: err}
	}
	data, err = normalizePNG(data)
	if err != nil {
		return &BindImageError{Path: dst, Cause: err}
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return &BindImageError{Path: dst, Cause: err}
	}
	return nil
}

func (w *Writer) writeText(text, dst string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyTranscript
	}
	if err := os.WriteFile(dst, []byte(text), 0o644); err != nil {
		return &BindTextError{Path: dst, Cause: err}
	}
	return nil
}

// normalizePNG returns PNG bytes unchanged and re-encodes anything else.
func normalizePNG(data []byte) ([]byte, error) {
	if bytes.HasPrefix(data, pngMagic) {
		return data, nil
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode source image: %w", err)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
