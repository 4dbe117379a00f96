//go:build tesseract

// Package tesseract recognizes text with a local Tesseract install through
// gosseract. It needs cgo and libtesseract, so it is only built with
// -tags tesseract.
package tesseract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/jackzampolin/bindery/internal/recognition"
)

const (
	Name            = "tesseract"
	DefaultLanguage = "chi_sim"
)

// Config holds configuration for the Tesseract engine.
type Config struct {
	Languages []string
	Logger    *slog.Logger
}

// Engine implements recognition.Recognizer with one gosseract client per call.
type Engine struct {
	languages     []string
	clientFactory func() *gosseract.Client
	logger        *slog.Logger
}

// New constructs a Tesseract-backed recognizer.
func New(cfg Config) *Engine {
	if len(cfg.Languages) == 0 {
		cfg.Languages = []string{DefaultLanguage}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		languages:     cfg.Languages,
		clientFactory: gosseract.NewClient,
		logger:        logger.With("recognizer", Name),
	}
}

// ParseLanguages splits "chi_sim+eng" or "chi_sim,eng" into language codes.
func ParseLanguages(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == '+' || r == ',' || r == ' ' })
	if len(fields) == 0 {
		return nil
	}
	return fields
}

func (e *Engine) Name() string { return Name }

// Recognize returns one region per text line, with axis-aligned quads.
func (e *Engine) Recognize(ctx context.Context, imagePath string) (*recognition.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c := e.clientFactory()
	defer c.Close()

	if err := c.SetLanguage(e.languages...); err != nil {
		return nil, fmt.Errorf("set languages: %w", err)
	}
	if err := c.SetImage(imagePath); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}
	boxes, err := c.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, fmt.Errorf("recognize lines: %w", err)
	}

	regions := make([]recognition.Region, 0, len(boxes))
	for _, b := range boxes {
		text := strings.TrimSpace(b.Word)
		if text == "" {
			continue
		}
		regions = append(regions, recognition.Region{
			Quad: recognition.RectQuad(
				float64(b.Box.Min.X), float64(b.Box.Min.Y),
				float64(b.Box.Max.X), float64(b.Box.Max.Y),
			),
			Text:       text,
			Confidence: b.Confidence / 100.0,
		})
	}
	e.logger.Debug("ocr complete", "image", imagePath, "regions", len(regions))
	return recognition.NewResult(imagePath, Name, regions), nil
}

var _ recognition.Recognizer = (*Engine)(nil)
