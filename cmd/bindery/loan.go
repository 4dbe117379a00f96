package main

import (
	"github.com/spf13/cobra"

	"github.com/jackzampolin/bindery/internal/api"
	"github.com/jackzampolin/bindery/internal/library"
	"github.com/jackzampolin/bindery/internal/svcctx"
)

var checkoutCmd = &cobra.Command{
	Use:   "checkout BOOK",
	Short: "Move a book from the archive into the reading folder",
	Long: `Check a book out into the reading folder. Under the default
copy-out/move-back policy the shelf keeps its copy; under always-move it
is moved. An existing reading copy is replaced.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := services(cmd)
		if err != nil {
			return err
		}
		book, err := svc.Loans.CheckOut(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		refresh(svc)
		return api.Output(bookOutput{book})
	},
}

var returnCmd = &cobra.Command{
	Use:   "return BOOK",
	Short: "Move a book from the reading folder back to the archive",
	Long: `Return a checked-out book. The reading copy is moved back and
replaces the shelf copy, so edits made while reading are kept.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := services(cmd)
		if err != nil {
			return err
		}
		book, err := svc.Loans.Return(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		refresh(svc)
		return api.Output(bookOutput{book})
	},
}

var whereCmd = &cobra.Command{
	Use:   "where BOOK",
	Short: "Report whether a book is shelved or checked out",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := services(cmd)
		if err != nil {
			return err
		}
		loc, err := svc.Loans.Location(args[0])
		if err != nil {
			return err
		}
		return api.Output(loc)
	},
}

func init() {
	rootCmd.AddCommand(checkoutCmd)
	rootCmd.AddCommand(returnCmd)
	rootCmd.AddCommand(whereCmd)
}

// refresh brings both indexes in step after a transfer.
func refresh(svc *svcctx.Services) {
	for _, idx := range []*library.Index{svc.Shelf, svc.Reading} {
		if _, err := idx.Refresh(); err != nil {
			svc.Logger.Warn("failed to refresh library", "root", idx.Root(), "error", err)
		}
	}
}
