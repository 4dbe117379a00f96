package main

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jackzampolin/bindery/internal/config"
	"github.com/jackzampolin/bindery/internal/recognition"
	"github.com/jackzampolin/bindery/internal/testutil"
)

// run executes the root command against a throwaway home.
func run(t *testing.T, home string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(""))
	full := append([]string{
		"--home", home,
		"--config", filepath.Join(home, "config.yaml"),
		"--log-level", "error",
		"-o", "text",
	}, args...)
	rootCmd.SetArgs(full)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func newHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	if _, err := run(t, home, "config", "init"); err != nil {
		t.Fatalf("config init: %v", err)
	}
	t.Cleanup(func() {
		shelfFilter = ""
		readFilter = ""
		configForce = false
	})
	return home
}

func TestConfigInit_RefusesOverwrite(t *testing.T) {
	home := newHome(t)
	if _, err := run(t, home, "config", "init"); err == nil {
		t.Error("expected error for existing config")
	}
	if _, err := run(t, home, "config", "init", "--force"); err != nil {
		t.Errorf("config init --force: %v", err)
	}
}

func TestSettingsCommands(t *testing.T) {
	home := newHome(t)

	out, err := run(t, home, "settings", "set", "confidence", "0.5")
	if err != nil {
		t.Fatal(err)
	}
	if out != "confidence = 0.5\n" {
		t.Errorf("set output = %q", out)
	}
	if out, _ := run(t, home, "settings", "get", "confidence"); out != "0.5\n" {
		t.Errorf("get output = %q", out)
	}
	if _, err := run(t, home, "settings", "set", "font_size", "big"); err == nil {
		t.Error("expected error for non-numeric font_size")
	}
	if out, _ := run(t, home, "settings", "mode", "modern"); out != "modern\n" {
		t.Errorf("mode output = %q", out)
	}
	out, err = run(t, home, "settings", "list")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"confidence: 0.5\n", "status_C: false\n", "status_M: true\n"} {
		if !strings.Contains(out, want) {
			t.Errorf("list output missing %q:\n%s", want, out)
		}
	}
	if _, err := run(t, home, "settings", "get", "path"); err == nil {
		t.Error("expected error for unset key")
	}
}

func TestLibraryCommands(t *testing.T) {
	home := newHome(t)
	testutil.MakeTree(t, filepath.Join(home, "binding"), map[string]string{
		"Poems/p1.txt":      "line one\n",
		"Poems/vol2/p2.txt": "line two\n",
		"Essays/e1.txt":     "essay\n",
	})
	testutil.WritePNG(t, filepath.Join(home, "binding", "Poems", "p1.png"), 8, 8)

	out, err := run(t, home, "shelf", "list")
	if err != nil {
		t.Fatal(err)
	}
	if out != "Essays\nPoems\n" {
		t.Errorf("shelf list = %q", out)
	}
	if out, _ := run(t, home, "shelf", "list", "--filter", "poe"); out != "" {
		t.Errorf("case-sensitive filter matched: %q", out)
	}
	if out, _ := run(t, home, "shelf", "list", "--filter", "Poe"); out != "Poems\n" {
		t.Errorf("filter = %q", out)
	}
	shelfFilter = ""

	if out, _ := run(t, home, "read", "transcript", "Poems"); out != "line one\nline two\n" {
		t.Errorf("transcript = %q", out)
	}

	if _, err := run(t, home, "checkout", "Poems"); err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if out, _ := run(t, home, "where", "Poems"); out != "checked-out\n" {
		t.Errorf("where = %q", out)
	}
	if out, _ := run(t, home, "read", "tree"); out != "reading/\n  Poems/\n    p1.png\n    vol2/\n" {
		t.Errorf("tree = %q", out)
	}
	if out, _ := run(t, home, "read", "transcript", "Poems", "vol2"); out != "line two\n" {
		t.Errorf("folder transcript = %q", out)
	}

	if _, err := run(t, home, "return", "Poems"); err != nil {
		t.Fatalf("return: %v", err)
	}
	if out, _ := run(t, home, "where", "Poems"); out != "shelved\n" {
		t.Errorf("where after return = %q", out)
	}
	if _, err := run(t, home, "checkout", "Missing"); err == nil {
		t.Error("expected error for missing book")
	}
}

func TestExportCommand(t *testing.T) {
	home := newHome(t)
	testutil.WritePNG(t, filepath.Join(home, "binding", "Poems", "p1.png"), 20, 30)

	out, err := run(t, home, "export", "Poems")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	want := "exported Poems: 1 pages to " + filepath.Join(home, "exports", "Poems.pdf") + "\n"
	if out != want {
		t.Errorf("export = %q, want %q", out, want)
	}
}

type fakeRecognizer struct{}

func (fakeRecognizer) Name() string { return "fake" }

func (fakeRecognizer) Recognize(context.Context, string) (*recognition.Result, error) {
	return recognition.NewResult("", "fake", nil), nil
}

func TestBuildRecognizers(t *testing.T) {
	recognizerFactories["fake"] = func(config.OCRProviderCfg, *slog.Logger) (recognition.Recognizer, error) {
		return fakeRecognizer{}, nil
	}
	defer delete(recognizerFactories, "fake")

	cfg := &config.Config{OCR: config.OCRCfg{Providers: map[string]config.OCRProviderCfg{
		"local":   {Type: "fake", Enabled: true},
		"fake":    {Enabled: true},
		"paddle":  {Type: "paddle", URL: "http://127.0.0.1:1", Enabled: true},
		"vision":  {Type: "vision", Enabled: false},
		"unknown": {Type: "abacus", Enabled: true},
	}}}
	reg := buildRecognizers(cfg, testutil.Logger())

	got := reg.Names()
	want := []string{"fake", "local", "paddle"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Names() = %v, want %v", got, want)
	}
	rec, err := reg.Get("local")
	if err != nil || rec.Name() != "fake" {
		t.Errorf("Get(local) = %v, %v", rec, err)
	}
}

func TestInvalidOutputFormat(t *testing.T) {
	home := newHome(t)
	rootCmd.SetArgs([]string{"--home", home, "-o", "xml", "version"})
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	if err := rootCmd.Execute(); err == nil {
		t.Error("expected error for unknown output format")
	}
	outputFormat = "text"
}
