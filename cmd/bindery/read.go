package main

import (
	"bytes"
	"fmt"
	"path"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/bindery/internal/api"
	"github.com/jackzampolin/bindery/internal/library"
	"github.com/jackzampolin/bindery/internal/svcctx"
)

var readFilter string

var readCmd = &cobra.Command{
	Use:   "read",
	Short: "Browse checked-out books",
}

var readTreeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Show the reading folder as an outline",
	Long: `Show folders and page images under the reading root. With --filter
only matching entries and their parent folders are shown; matching follows
library.reading_filter (case-insensitive by default).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := services(cmd)
		if err != nil {
			return err
		}
		lib := svc.Config.Get().Library
		tree, err := library.BuildTree(svc.Reading.Root(), library.Order(lib.AggregateOrder))
		if err != nil {
			return err
		}
		if api.IsStructuredOutput() {
			return api.Output(tree)
		}
		var vis map[int]bool
		if readFilter != "" {
			vis = tree.Visible(readFilter, library.FilterMode(lib.ReadingFilter))
		}
		var buf bytes.Buffer
		if err := tree.Render(&buf, vis); err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(buf.Bytes())
		return err
	},
}

var readTranscriptCmd = &cobra.Command{
	Use:   "transcript BOOK [FOLDER]",
	Short: "Print a book's transcript",
	Long: `Print the transcript of a book: every .txt file in the book,
folder by folder. With FOLDER, print only that folder's own pages.
Checked-out books are read from the reading root, others from the shelf.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := services(cmd)
		if err != nil {
			return err
		}
		book, err := findBook(svc, args[0])
		if err != nil {
			return err
		}
		order := library.Order(svc.Config.Get().Library.AggregateOrder)

		if len(args) == 1 {
			text, err := library.AggregateTranscript(book, order)
			if err != nil {
				return err
			}
			return api.Output(transcriptOutput{Book: book.Name, Transcript: text})
		}

		root := svc.Shelf.Root()
		if book.Location == library.CheckedOut {
			root = svc.Reading.Root()
		}
		tree, err := library.BuildTree(root, order)
		if err != nil {
			return err
		}
		rel := path.Join(book.Name, args[1])
		i, ok := tree.Find(rel)
		if !ok || tree.Nodes[i].Kind != library.KindDir {
			return fmt.Errorf("no folder %s in %s", args[1], book.Name)
		}
		return api.Output(transcriptOutput{Book: book.Name, Path: args[1], Transcript: tree.TranscriptOf(i)})
	},
}

func init() {
	readTreeCmd.Flags().StringVar(&readFilter, "filter", "", "only entries whose name contains this text")
	readCmd.AddCommand(readTreeCmd)
	readCmd.AddCommand(readTranscriptCmd)
	rootCmd.AddCommand(readCmd)
}

// findBook prefers the reading copy of a book over the shelf copy.
func findBook(svc *svcctx.Services, name string) (library.Book, error) {
	if b, ok := svc.Reading.Book(name); ok {
		return b, nil
	}
	if b, ok := svc.Shelf.Book(name); ok {
		return b, nil
	}
	return library.Book{}, fmt.Errorf("no book named %q", name)
}
