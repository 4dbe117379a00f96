package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/bindery/internal/api"
	"github.com/jackzampolin/bindery/internal/export"
)

var exportFile string

var exportCmd = &cobra.Command{
	Use:   "export BOOK",
	Short: "Export a book's page images as a PDF",
	Long: `Export every page image of a book, in path order, as one PDF.
The file defaults to {home}/exports/BOOK.pdf and is replaced if present.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := services(cmd)
		if err != nil {
			return err
		}
		book, err := findBook(svc, args[0])
		if err != nil {
			return err
		}
		out := exportFile
		if out == "" {
			out = filepath.Join(svc.ExportsRoot, book.Name+".pdf")
		}
		report, err := export.BookPDF(book, out, svc.Logger)
		if err != nil {
			return err
		}
		return api.Output(reportOutput(*report))
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFile, "file", "", "output PDF path")
	rootCmd.AddCommand(exportCmd)
}
