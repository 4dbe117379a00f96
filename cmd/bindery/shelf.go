package main

import (
	"fmt"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jackzampolin/bindery/internal/api"
	"github.com/jackzampolin/bindery/internal/config"
	"github.com/jackzampolin/bindery/internal/library"
)

var shelfFilter string

var shelfCmd = &cobra.Command{
	Use:   "shelf",
	Short: "Browse the archive",
}

var shelfListCmd = &cobra.Command{
	Use:   "list",
	Short: "List shelved books",
	Long: `List the books in the archive root, optionally filtered by a
substring. Matching follows library.shelf_filter (case-sensitive by default).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := services(cmd)
		if err != nil {
			return err
		}
		mode := library.FilterMode(svc.Config.Get().Library.ShelfFilter)
		return api.Output(bookList(library.Filter(svc.Shelf.Books(), shelfFilter, mode)))
	},
}

var shelfWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the archive and reading roots and report changes",
	Long: `Watch both library roots and print books as they appear or disappear.
Bursts of filesystem events are coalesced into a single reconcile. The
config file is reloaded on change. Stop with Ctrl+C.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		svc, err := services(cmd)
		if err != nil {
			return err
		}
		cfg := svc.Config.Get()
		out := cmd.OutOrStdout()

		svc.Config.OnChange(func(c *config.Config) {
			svc.Logger.Info("config reloaded", "file", svc.Config.ConfigFile(), "log_level", c.LogLevel)
		})
		svc.Config.WatchConfig()

		var mu sync.Mutex
		report := func(diff library.Diff) {
			mu.Lock()
			defer mu.Unlock()
			for _, b := range diff.Added {
				fmt.Fprintf(out, "+ %s (%s)\n", b.Name, b.Location)
			}
			for _, b := range diff.Removed {
				fmt.Fprintf(out, "- %s (%s)\n", b.Name, b.Location)
			}
		}

		// The first watcher to fail stops the other one.
		g, ctx := errgroup.WithContext(ctx)
		for _, idx := range []*library.Index{svc.Shelf, svc.Reading} {
			w := library.NewWatcher(idx, report,
				library.WithDebounce(cfg.Library.Debounce()),
				library.WithLogger(svc.Logger),
			)
			g.Go(func() error { return w.Run(ctx) })
		}
		return g.Wait()
	},
}

func init() {
	shelfListCmd.Flags().StringVar(&shelfFilter, "filter", "", "only books whose name contains this text")
	shelfCmd.AddCommand(shelfListCmd)
	shelfCmd.AddCommand(shelfWatchCmd)
	rootCmd.AddCommand(shelfCmd)
}
