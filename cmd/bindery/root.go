package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/bindery/internal/api"
	"github.com/jackzampolin/bindery/internal/config"
	"github.com/jackzampolin/bindery/internal/home"
	"github.com/jackzampolin/bindery/internal/svcctx"
	"github.com/jackzampolin/bindery/version"
)

// annotationStandalone marks commands that run without loading services.
const annotationStandalone = "bindery/standalone"

var (
	cfgFile      string
	homeDir      string
	outputFormat string
	logLevel     string
)

var rootCmd = &cobra.Command{
	Use:   "bindery",
	Short: "Transcribe, verify and shelve scanned book pages",
	Long: `Bindery turns scanned page images into a shelf of verified transcripts.

A page is recognized by an OCR engine, reviewed row by row, and bound into
the archive as an image plus a transcript. Books can then be checked out
into a reading folder, read as aggregated transcripts, and returned.

Examples:
  bindery review scans/p1.jpg          # recognize, review and bind a page
  bindery shelf list                   # list shelved books
  bindery checkout Poems               # copy a book into the reading folder
  bindery read transcript Poems        # print a book's transcript`,
	Version:           version.GitRelease,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.bindery/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "bindery home directory (default: ~/.bindery)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", string(api.DefaultOutput), "output format: text, yaml or json",
	)
	rootCmd.PersistentFlags().StringVar(
		&logLevel, "log-level", "", "log level: debug, info, warn or error (default from config)",
	)
}

// setup runs before every command: it fixes the output format, loads
// config, and attaches the services to the command context.
func setup(cmd *cobra.Command, args []string) error {
	format, err := api.ParseOutputFormat(outputFormat)
	if err != nil {
		return err
	}
	api.SetOutputFormat(string(format))
	api.SetWriter(cmd.OutOrStdout())

	if cmd.Annotations[annotationStandalone] == "true" {
		return nil
	}

	h, err := getHome()
	if err != nil {
		return err
	}
	mgr, err := config.NewManager(cfgFile, h.Path())
	if err != nil {
		return err
	}

	level := logLevel
	if level == "" {
		level = mgr.Get().LogLevel
	}
	logger, err := newLogger(level)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	svc, err := svcctx.New(cmd.Context(), svcctx.Options{
		Home:        h,
		Config:      mgr,
		Logger:      logger,
		Recognizers: buildRecognizers(mgr.Get(), logger),
	})
	if err != nil {
		return err
	}
	cmd.SetContext(svcctx.WithServices(cmd.Context(), svc))
	return nil
}

// getHome returns the home directory, creating its layout on first use.
func getHome() (*home.Dir, error) {
	h, err := home.New(homeDir)
	if err != nil {
		return nil, err
	}
	if err := h.EnsureExists(); err != nil {
		return nil, fmt.Errorf("failed to create home directory: %w", err)
	}
	return h, nil
}

func newLogger(level string) (*slog.Logger, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})), nil
}

// services returns the bundle attached by setup.
func services(cmd *cobra.Command) (*svcctx.Services, error) {
	svc := svcctx.ServicesFrom(cmd.Context())
	if svc == nil {
		return nil, fmt.Errorf("services not initialized")
	}
	return svc, nil
}

// say prints a progress line unless structured output was requested.
func say(cmd *cobra.Command, format string, args ...any) {
	if api.IsStructuredOutput() {
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), format+"\n", args...)
}
