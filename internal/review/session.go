// Package review drives one verification session: recognize an image,
// track which rows the user has checked, hold the corrected transcript and
// hand everything to the archive writer.
package review

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/jackzampolin/bindery/internal/archive"
	"github.com/jackzampolin/bindery/internal/ledger"
	"github.com/jackzampolin/bindery/internal/recognition"
)

// Options configures a session.
type Options struct {
	// CropDir receives one crop per region. Empty disables cropping.
	CropDir string
	// Threshold flags rows whose confidence is below it.
	Threshold float64
	Logger    *slog.Logger
}

// Session is the single in-progress review. Nothing touches the archive
// until Bind is called; abandoning a session has no side effects beyond
// the crops.
type Session struct {
	ID         string
	Result     *recognition.Result
	Ledger     *ledger.Ledger
	Transcript string
	Crops      []string
	Threshold  float64

	logger *slog.Logger
}

// Row is one line of the review table. Serial is 1-based.
type Row struct {
	Serial        int              `json:"serial" yaml:"serial"`
	Text          string           `json:"text" yaml:"text"`
	Confidence    float64          `json:"confidence" yaml:"confidence"`
	LowConfidence bool             `json:"low_confidence" yaml:"low_confidence"`
	Status        ledger.Status    `json:"status" yaml:"status"`
	Quad          recognition.Quad `json:"quad" yaml:"quad"`
	Crop          string           `json:"crop,omitempty" yaml:"crop,omitempty"`
}

// Start recognizes imagePath and opens a session over the result.
func Start(ctx context.Context, rec recognition.Recognizer, imagePath string, opts Options) (*Session, error) {
	res, err := recognition.Run(ctx, rec, imagePath)
	if err != nil {
		return nil, err
	}
	return New(res, opts), nil
}

// New opens a session over an existing result.
func New(res *recognition.Result, opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{
		ID:         uuid.New().String(),
		Result:     res,
		Ledger:     ledger.New(res.Len()),
		Transcript: res.Transcript(),
		Threshold:  opts.Threshold,
	}
	s.logger = logger.With("session", s.ID, "image", res.Source())

	if opts.CropDir != "" && !res.Empty() {
		crops, err := recognition.CropRegions(res, opts.CropDir)
		if err != nil {
			s.logger.Warn("failed to crop regions", "error", err)
		}
		s.Crops = crops
	}
	s.logger.Info("review started", "regions", res.Len(), "engine", res.Engine())
	return s
}

// Rows returns the review table.
func (s *Session) Rows() []Row {
	rows := make([]Row, 0, s.Result.Len())
	for i, reg := range s.Result.Regions() {
		st, _ := s.Ledger.Status(i)
		r := Row{
			Serial:        i + 1,
			Text:          reg.Text,
			Confidence:    reg.Confidence,
			LowConfidence: reg.Confidence < s.Threshold,
			Status:        st,
			Quad:          reg.Quad,
		}
		if i < len(s.Crops) {
			r.Crop = s.Crops[i]
		}
		rows = append(rows, r)
	}
	return rows
}

// Bind writes the session into the archive under base.
func (s *Session) Bind(ctx context.Context, w *archive.Writer, base string) (*archive.Outcome, error) {
	out, err := w.Bind(ctx, s.Result, s.Ledger, s.Transcript, base)
	if err != nil {
		s.logger.Warn("bind failed", "base", base, "error", err)
	}
	return out, err
}
