package settings

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Known keys of the settings record.
const (
	KeyFontFamily = "font_family"
	KeyFontSize   = "font_size"
	KeyColor      = "color"
	KeyConfidence = "confidence"
	KeyOCRSource  = "ocrs"
	KeyClassic    = "status_C"
	KeyModern     = "status_M"
	KeyPath       = "path"
)

var descriptions = map[string]string{
	KeyFontFamily: "Font family used by the reading and review views",
	KeyFontSize:   "Font size in points",
	KeyColor:      "Highlight color for low-confidence regions (#rrggbb)",
	KeyConfidence: "Regions below this confidence are highlighted",
	KeyOCRSource:  "Selected OCR source (recognizer name)",
	KeyClassic:    "Read in classic vertical-column layout",
	KeyModern:     "Read in modern horizontal layout",
	KeyPath:       "Archive root override used when binding",
}

// ReadingMode selects how the reading view lays out a transcript.
type ReadingMode string

const (
	ModeClassic ReadingMode = "classic"
	ModeModern  ReadingMode = "modern"
)

// Settings is the typed view of the record with defaults applied.
type Settings struct {
	FontFamily    string  `json:"font_family" yaml:"font_family"`
	FontSize      int     `json:"font_size" yaml:"font_size"`
	Color         string  `json:"color" yaml:"color"`
	Confidence    float64 `json:"confidence" yaml:"confidence"`
	OCRSource     string  `json:"ocrs" yaml:"ocrs"`
	StatusClassic bool    `json:"status_C" yaml:"status_C"`
	StatusModern  bool    `json:"status_M" yaml:"status_M"`
	Path          string  `json:"path" yaml:"path"`
}

// Defaults returns the values used for missing keys.
func Defaults() Settings {
	return Settings{
		FontFamily:    "Microsoft YaHei UI",
		FontSize:      9,
		Color:         "#009faa",
		Confidence:    1.0,
		StatusClassic: true,
		StatusModern:  false,
	}
}

// ReadingMode reports classic unless only the modern flag is set.
func (s Settings) ReadingMode() ReadingMode {
	if !s.StatusClassic && s.StatusModern {
		return ModeModern
	}
	return ModeClassic
}

// Load reads every known key from the store, falling back to Defaults.
func Load(ctx context.Context, store Store) (Settings, error) {
	s := Defaults()
	all, err := store.GetAll(ctx)
	if err != nil {
		return s, err
	}

	if e, ok := all[KeyFontFamily]; ok {
		if v := fontFamily(e.Value); v != "" {
			s.FontFamily = v
		}
	}
	if e, ok := all[KeyFontSize]; ok {
		if v, ok := toInt(e.Value); ok {
			s.FontSize = v
		}
	}
	if e, ok := all[KeyColor]; ok {
		if v, ok := e.Value.(string); ok {
			s.Color = v
		}
	}
	if e, ok := all[KeyConfidence]; ok {
		if v, ok := toFloat(e.Value); ok {
			s.Confidence = v
		}
	}
	if e, ok := all[KeyOCRSource]; ok {
		if v, ok := e.Value.(string); ok {
			s.OCRSource = v
		}
	}
	if e, ok := all[KeyClassic]; ok {
		if v, ok := e.Value.(bool); ok {
			s.StatusClassic = v
		}
	}
	if e, ok := all[KeyModern]; ok {
		if v, ok := e.Value.(bool); ok {
			s.StatusModern = v
		}
	}
	if e, ok := all[KeyPath]; ok {
		if v, ok := e.Value.(string); ok {
			s.Path = v
		}
	}
	return s, nil
}

// SetReadingMode writes both status flags so they never disagree.
func SetReadingMode(ctx context.Context, store Store, mode ReadingMode) error {
	switch mode {
	case ModeClassic, ModeModern:
	default:
		return fmt.Errorf("%w: unknown reading mode %q", ErrInvalidValue, mode)
	}
	if err := store.Set(ctx, KeyClassic, mode == ModeClassic); err != nil {
		return err
	}
	return store.Set(ctx, KeyModern, mode == ModeModern)
}

// ParseValue converts a command-line string into the Go type expected for key.
// Unknown keys are stored as strings.
func ParseValue(key, raw string) (any, error) {
	switch key {
	case KeyFontSize:
		v, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s must be an integer", ErrInvalidValue, key)
		}
		return v, nil
	case KeyConfidence:
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s must be a number", ErrInvalidValue, key)
		}
		return v, nil
	case KeyClassic, KeyModern:
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s must be true or false", ErrInvalidValue, key)
		}
		return v, nil
	}
	return raw, nil
}

// fontFamily accepts both a plain string and the legacy one-element list.
func fontFamily(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case []any:
		if len(t) > 0 {
			if s, ok := t[0].(string); ok {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}

func toInt(v any) (int, bool) {
	switch t := v.(type) {
	case int64:
		return int(t), true
	case int:
		return t, true
	case float64:
		return int(t), true
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int64:
		return float64(t), true
	case int:
		return float64(t), true
	}
	return 0, false
}
