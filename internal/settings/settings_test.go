package settings

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	store, err := NewFileStore(filepath.Join(t.TempDir(), "settings.json"))
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	return store
}

func TestLoad_Defaults(t *testing.T) {
	store := newTestStore(t)

	s, err := Load(t.Context(), store)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s != Defaults() {
		t.Errorf("Load() on missing file = %+v, want defaults", s)
	}
	if s.FontSize != 9 || s.Confidence != 1.0 || !s.StatusClassic || s.StatusModern || s.Path != "" {
		t.Errorf("unexpected defaults: %+v", s)
	}
	if s.ReadingMode() != ModeClassic {
		t.Errorf("ReadingMode() = %s, want classic", s.ReadingMode())
	}
}

func TestLoad_LegacyFile(t *testing.T) {
	store := newTestStore(t)
	legacy := `{
    "font_family": ["KaiTi"],
    "font_size": 14,
    "color": "#ff0000",
    "confidence": 0.9,
    "ocrs": "paddle",
    "status_C": false,
    "status_M": true,
    "path": "/books"
}`
	if err := os.WriteFile(store.Path(), []byte(legacy), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := Load(t.Context(), store)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := Settings{
		FontFamily:    "KaiTi",
		FontSize:      14,
		Color:         "#ff0000",
		Confidence:    0.9,
		OCRSource:     "paddle",
		StatusClassic: false,
		StatusModern:  true,
		Path:          "/books",
	}
	if s != want {
		t.Errorf("Load() = %+v, want %+v", s, want)
	}
	if s.ReadingMode() != ModeModern {
		t.Errorf("ReadingMode() = %s, want modern", s.ReadingMode())
	}
}

func TestFileStore_SetGetDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := t.Context()

	if err := store.Set(ctx, KeyFontSize, 12); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := store.Set(ctx, KeyColor, "#00ff00"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	entry, err := store.Get(ctx, KeyFontSize)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if entry == nil || entry.Value != int64(12) {
		t.Fatalf("Get(font_size) = %+v, want 12", entry)
	}
	if entry.Description == "" {
		t.Error("expected description for known key")
	}

	missing, err := store.Get(ctx, KeyPath)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if missing != nil {
		t.Errorf("Get(path) = %+v, want nil", missing)
	}

	if err := store.Delete(ctx, KeyFontSize); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	all, err := store.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll() error = %v", err)
	}
	if _, ok := all[KeyFontSize]; ok {
		t.Error("font_size should be deleted")
	}
	if all[KeyColor].Value != "#00ff00" {
		t.Errorf("color = %v, want #00ff00", all[KeyColor].Value)
	}

	if err := store.Delete(ctx, "never_set"); err != nil {
		t.Errorf("Delete() of missing key should be nil, got %v", err)
	}
}

func TestFileStore_RejectsInvalid(t *testing.T) {
	store := newTestStore(t)
	ctx := t.Context()

	tests := []struct {
		name  string
		key   string
		value any
	}{
		{"confidence above one", KeyConfidence, 1.5},
		{"font size not integer", KeyFontSize, 9.5},
		{"color not hex", KeyColor, "teal"},
		{"classic not bool", KeyClassic, "yes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.Set(ctx, tt.key, tt.value)
			if !errors.Is(err, ErrInvalidValue) {
				t.Errorf("Set(%s, %v) error = %v, want ErrInvalidValue", tt.key, tt.value, err)
			}
		})
	}

	if err := store.Set(ctx, "bad key!", "x"); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("Set() with bad key error = %v, want ErrInvalidKey", err)
	}

	// Nothing invalid reached the disk
	if _, err := os.Stat(store.Path()); !os.IsNotExist(err) {
		t.Errorf("settings file should not exist after rejected writes, stat err = %v", err)
	}
}

func TestFileStore_CorruptFile(t *testing.T) {
	store := newTestStore(t)
	if err := os.WriteFile(store.Path(), []byte(`{"confidence": 3}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(t.Context(), store); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("Load() error = %v, want ErrInvalidValue", err)
	}
}

func TestSetReadingMode(t *testing.T) {
	store := newTestStore(t)
	ctx := t.Context()

	if err := SetReadingMode(ctx, store, ModeModern); err != nil {
		t.Fatalf("SetReadingMode() error = %v", err)
	}
	s, err := Load(ctx, store)
	if err != nil {
		t.Fatal(err)
	}
	if s.StatusClassic || !s.StatusModern {
		t.Errorf("after modern: status_C=%v status_M=%v", s.StatusClassic, s.StatusModern)
	}

	if err := SetReadingMode(ctx, store, "scroll"); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("SetReadingMode(scroll) error = %v, want ErrInvalidValue", err)
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		key     string
		raw     string
		want    any
		wantErr bool
	}{
		{KeyFontSize, "12", 12, false},
		{KeyFontSize, "big", nil, true},
		{KeyConfidence, "0.85", 0.85, false},
		{KeyClassic, "true", true, false},
		{KeyModern, "maybe", nil, true},
		{KeyColor, "#123456", "#123456", false},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.raw, func(t *testing.T) {
			got, err := ParseValue(tt.key, tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseValue() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseValue() = %v, want %v", got, tt.want)
			}
		})
	}
}
