package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/bindery/internal/api"
	"github.com/jackzampolin/bindery/internal/recognition"
	"github.com/jackzampolin/bindery/internal/review"
	"github.com/jackzampolin/bindery/internal/settings"
	"github.com/jackzampolin/bindery/internal/svcctx"
)

var (
	ocrSource  string
	bindText   string
	bindVerify bool
)

var recognizeCmd = &cobra.Command{
	Use:   "recognize IMAGE",
	Short: "Run OCR on a page image and print the regions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := services(cmd)
		if err != nil {
			return err
		}
		rec, err := selectRecognizer(cmd, svc)
		if err != nil {
			return err
		}
		res, err := recognition.Run(cmd.Context(), rec, args[0])
		if err != nil {
			return err
		}
		return api.Output(resultOutput{res})
	},
}

var reviewCmd = &cobra.Command{
	Use:   "review IMAGE",
	Short: "Recognize a page and review it interactively",
	Long: `Recognize a page image and open the review console.

Each recognized line is a row. Mark rows reviewed with 'verify N' (or
'verify all'), fix the transcript with 'edit FILE', and archive the page
with 'bind Book/page'. Binding is refused until every row is reviewed.
Type 'help' in the console for all commands.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		svc, err := services(cmd)
		if err != nil {
			return err
		}
		session, err := startSession(cmd, svc, args[0])
		if err != nil {
			return err
		}
		console := &review.Console{
			Session: session,
			Writer:  svc.Archive,
			In:      cmd.InOrStdin(),
			Out:     cmd.OutOrStdout(),
		}
		if err := console.Run(ctx); err != nil {
			return err
		}
		if _, err := svc.Shelf.Refresh(); err != nil {
			svc.Logger.Warn("failed to refresh shelf", "error", err)
		}
		return nil
	},
}

var bindCmd = &cobra.Command{
	Use:   "bind IMAGE NAME",
	Short: "Recognize a page and bind it without the console",
	Long: `Recognize a page image and bind it into the archive as NAME.

NAME may contain folders, e.g. Poems/vol1/page-01. Without --verify-all
the bind is refused, since no row has been reviewed. --text replaces the
recognized transcript with the contents of a file.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		svc, err := services(cmd)
		if err != nil {
			return err
		}
		session, err := startSession(cmd, svc, args[0])
		if err != nil {
			return err
		}
		if bindText != "" {
			data, err := os.ReadFile(bindText)
			if err != nil {
				return fmt.Errorf("failed to read transcript: %w", err)
			}
			session.Transcript = string(data)
		}
		if bindVerify {
			session.Ledger.VerifyAll()
		}

		out, bindErr := session.Bind(ctx, svc.Archive, args[1])
		if out == nil {
			return bindErr
		}
		if _, err := svc.Shelf.Refresh(); err != nil {
			svc.Logger.Warn("failed to refresh shelf", "error", err)
		}
		if err := api.Output(newBindReport(out)); err != nil {
			return err
		}
		return bindErr
	},
}

func init() {
	for _, c := range []*cobra.Command{recognizeCmd, reviewCmd, bindCmd} {
		c.Flags().StringVar(&ocrSource, "ocr", "", "OCR provider (default: ocrs setting, then ocr.default)")
		rootCmd.AddCommand(c)
	}
	bindCmd.Flags().StringVar(&bindText, "text", "", "file holding the corrected transcript")
	bindCmd.Flags().BoolVar(&bindVerify, "verify-all", false, "mark every row reviewed before binding")
}

// selectRecognizer honors --ocr, then the ocrs setting, then ocr.default.
func selectRecognizer(cmd *cobra.Command, svc *svcctx.Services) (recognition.Recognizer, error) {
	st, err := settings.Load(cmd.Context(), svc.Settings)
	if err != nil {
		return nil, err
	}
	return svc.Recognizers.Select(ocrSource, st.OCRSource, svc.Config.Get().OCR.Default)
}

func startSession(cmd *cobra.Command, svc *svcctx.Services, image string) (*review.Session, error) {
	rec, err := selectRecognizer(cmd, svc)
	if err != nil {
		return nil, err
	}
	st, err := settings.Load(cmd.Context(), svc.Settings)
	if err != nil {
		return nil, err
	}
	return review.Start(cmd.Context(), rec, image, review.Options{
		CropDir:   svc.Home.CropDir(svc.HistoryRoot, image),
		Threshold: st.Confidence,
		Logger:    svc.Logger,
	})
}
