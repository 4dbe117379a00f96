package review

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jackzampolin/bindery/internal/archive"
	"github.com/jackzampolin/bindery/internal/ledger"
	"github.com/jackzampolin/bindery/internal/recognition"
	"github.com/jackzampolin/bindery/internal/testutil"
)

type fakeRecognizer struct {
	regions []recognition.Region
	err     error
}

func (f *fakeRecognizer) Name() string { return "fake" }

func (f *fakeRecognizer) Recognize(ctx context.Context, imagePath string) (*recognition.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return recognition.NewResult(imagePath, "fake", f.regions), nil
}

var poem = []recognition.Region{
	{Quad: recognition.RectQuad(2, 2, 60, 12), Text: "床前明月光", Confidence: 0.99},
	{Quad: recognition.RectQuad(2, 14, 60, 24), Text: "疑是地上霜", Confidence: 0.62},
	{Quad: recognition.RectQuad(2, 26, 60, 36), Text: "举头望明月", Confidence: 0.95},
}

func startSession(t *testing.T) (*Session, string) {
	t.Helper()
	dir := t.TempDir()
	img := filepath.Join(dir, "poem.png")
	testutil.WritePNG(t, img, 64, 40)

	s, err := Start(t.Context(), &fakeRecognizer{regions: poem}, img, Options{
		CropDir:   filepath.Join(dir, "history", "poem"),
		Threshold: 0.9,
		Logger:    testutil.Logger(),
	})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	return s, dir
}

func TestStart(t *testing.T) {
	s, dir := startSession(t)

	if s.Transcript != "床前明月光\n疑是地上霜\n举头望明月\n" {
		t.Errorf("Transcript = %q", s.Transcript)
	}
	if s.Ledger.Len() != 3 || s.Ledger.AllVerified() {
		t.Errorf("ledger = %d entries, all verified %v", s.Ledger.Len(), s.Ledger.AllVerified())
	}
	if len(s.Crops) != 3 {
		t.Fatalf("Crops = %v", s.Crops)
	}
	if want := filepath.Join(dir, "history", "poem", "cropped_serial_2.jpg"); s.Crops[1] != want {
		t.Errorf("Crops[1] = %s, want %s", s.Crops[1], want)
	}

	rows := s.Rows()
	if rows[0].Serial != 1 || rows[0].LowConfidence || !rows[1].LowConfidence {
		t.Errorf("rows = %+v", rows)
	}
	if rows[2].Crop != s.Crops[2] || rows[2].Status != ledger.Unverified {
		t.Errorf("row 3 = %+v", rows[2])
	}
}

func TestStart_RecognitionFailure(t *testing.T) {
	_, err := Start(t.Context(), &fakeRecognizer{err: errors.New("model not loaded")}, "x.png", Options{})
	if !errors.Is(err, recognition.ErrRecognition) {
		t.Errorf("Start() error = %v, want ErrRecognition", err)
	}
}

func TestSession_BindScenario(t *testing.T) {
	s, dir := startSession(t)
	w := archive.NewWriter(filepath.Join(dir, "binding"), testutil.Logger())

	_ = s.Ledger.Verify(0)
	_ = s.Ledger.Verify(2)
	_, err := s.Bind(t.Context(), w, "静夜思/p1")
	var vi *archive.VerificationIncompleteError
	if !errors.As(err, &vi) || vi.Index != 1 {
		t.Fatalf("Bind() error = %v, want VerificationIncomplete(1)", err)
	}

	_ = s.Ledger.Verify(1)
	s.Transcript = "床前明月光\n疑是地上霜\n举头望明月\n低头思故乡\n"
	out, err := s.Bind(t.Context(), w, "静夜思/p1")
	if err != nil {
		t.Fatalf("Bind() error = %v", err)
	}
	data, err := os.ReadFile(out.Page.TextPath)
	if err != nil || string(data) != s.Transcript {
		t.Errorf("text = %q, %v", data, err)
	}
}

func runConsole(t *testing.T, s *Session, w *archive.Writer, script string) string {
	t.Helper()
	var out strings.Builder
	c := &Console{Session: s, Writer: w, In: strings.NewReader(script), Out: &out}
	if err := c.Run(t.Context()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	return out.String()
}

func TestConsole_ReviewAndBind(t *testing.T) {
	s, dir := startSession(t)
	w := archive.NewWriter(filepath.Join(dir, "binding"), testutil.Logger())
	edited := filepath.Join(dir, "edited.txt")
	testutil.WriteFile(t, edited, "corrected\n")

	script := strings.Join([]string{
		"verify 1",
		"verify 3",
		"bind Poems/p1",
		"next",
		"verify 2",
		"next",
		"edit " + edited,
		"bind Poems/p1",
		"quit",
		"verify 1",
	}, "\n")
	out := runConsole(t, s, w, script)

	for _, want := range []string{
		"ROW",
		"row 1 verified (1/3)",
		"error: row 2 needs review",
		"row 2 [unverified]",
		"all rows verified",
		"transcript replaced",
		"text saved:",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	data, err := os.ReadFile(filepath.Join(dir, "binding", "Poems", "p1.txt"))
	if err != nil || string(data) != "corrected\n" {
		t.Errorf("bound text = %q, %v", data, err)
	}
}

func TestConsole_Errors(t *testing.T) {
	s, _ := startSession(t)
	out := runConsole(t, s, nil, "verify 9\nverify x\nfrobnicate\nbind\nbind Book/p\nunverify 0\n")

	for _, want := range []string{
		"error: index 8 out of range [0,3)",
		`error: row number expected, got "x"`,
		`error: unknown command "frobnicate"`,
		"error: usage: bind NAME",
		"error: no archive configured",
		"error: index -1 out of range",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if s.Ledger.VerifiedCount() != 0 {
		t.Error("failed commands must not change the ledger")
	}
}

func TestConsole_AbandonHasNoSideEffects(t *testing.T) {
	s, dir := startSession(t)
	w := archive.NewWriter(filepath.Join(dir, "binding"), testutil.Logger())
	runConsole(t, s, w, "verify all\n")

	if testutil.ReadTree(t, filepath.Join(dir, "binding")) != nil {
		t.Error("nothing should be bound when the session is abandoned")
	}
}

func TestConsole_CancelledContext(t *testing.T) {
	s, _ := startSession(t)
	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	c := &Console{Session: s, In: strings.NewReader("list\n"), Out: &strings.Builder{}}
	if err := c.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}
