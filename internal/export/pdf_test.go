package export

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jackzampolin/bindery/internal/library"
	"github.com/jackzampolin/bindery/internal/testutil"
)

func TestPageImages(t *testing.T) {
	root := t.TempDir()
	testutil.MakeTree(t, root, map[string]string{
		"Book/p2.png":     "x",
		"Book/p1.png":     "x",
		"Book/p1.txt":     "text",
		"Book/vol2/a.jpg": "x",
	})
	pages, err := PageImages(library.Book{Name: "Book", Path: filepath.Join(root, "Book")})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"p1.png", "p2.png", filepath.Join("vol2", "a.jpg")}
	if len(pages) != len(want) {
		t.Fatalf("pages = %v", pages)
	}
	for i, w := range want {
		if pages[i] != filepath.Join(root, "Book", w) {
			t.Errorf("pages[%d] = %s, want %s", i, pages[i], w)
		}
	}
}

func TestPageImages_SymlinkedBook(t *testing.T) {
	dir := t.TempDir()
	testutil.MakeTree(t, dir, map[string]string{"elsewhere/Book/p1.png": "x"})
	link := filepath.Join(dir, "Book")
	if err := os.Symlink(filepath.Join(dir, "elsewhere", "Book"), link); err != nil {
		t.Skipf("symlink: %v", err)
	}
	pages, err := PageImages(library.Book{Name: "Book", Path: link})
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{filepath.Join(link, "p1.png")}; len(pages) != 1 || pages[0] != want[0] {
		t.Errorf("pages = %v, want %v", pages, want)
	}
}

func TestBookPDF(t *testing.T) {
	root := t.TempDir()
	bookDir := filepath.Join(root, "Book")
	testutil.WritePNG(t, filepath.Join(bookDir, "p1.png"), 60, 80)
	testutil.WriteJPEG(t, filepath.Join(bookDir, "p2.jpg"), 60, 80)
	book := library.Book{Name: "Book", Path: bookDir}
	out := filepath.Join(root, "exports", "Book.pdf")

	report, err := BookPDF(book, out, testutil.Logger())
	if err != nil {
		t.Fatalf("BookPDF() error = %v", err)
	}
	if report.Pages != 2 || report.File != out {
		t.Errorf("report = %+v", report)
	}

	// Exporting again replaces rather than appends.
	report, err = BookPDF(book, out, testutil.Logger())
	if err != nil {
		t.Fatal(err)
	}
	if report.Pages != 2 {
		t.Errorf("re-export pages = %d, want 2", report.Pages)
	}
}

func TestBookPDF_NoPages(t *testing.T) {
	root := t.TempDir()
	testutil.MakeTree(t, root, map[string]string{"Book/only.txt": "text"})
	_, err := BookPDF(library.Book{Name: "Book", Path: filepath.Join(root, "Book")}, filepath.Join(root, "out.pdf"), nil)
	if !errors.Is(err, ErrNoPages) {
		t.Errorf("error = %v, want ErrNoPages", err)
	}
}
