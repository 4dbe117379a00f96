package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/bindery/internal/api"
	"github.com/jackzampolin/bindery/internal/settings"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "View and change user settings",
	Long: `View and change the user settings record ({home}/settings.json).

Known keys: ` + strings.Join(settings.Keys(), ", ") + `

Examples:
  bindery settings list
  bindery settings set confidence 0.85
  bindery settings set path /srv/books
  bindery settings mode modern`,
}

var settingsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show all settings with defaults applied",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := services(cmd)
		if err != nil {
			return err
		}
		st, err := settings.Load(cmd.Context(), svc.Settings)
		if err != nil {
			return err
		}
		return api.Output(settingsOutput(st))
	},
}

var settingsGetCmd = &cobra.Command{
	Use:   "get KEY",
	Short: "Show one stored setting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := services(cmd)
		if err != nil {
			return err
		}
		e, err := svc.Settings.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if e == nil {
			return fmt.Errorf("%s is not set", args[0])
		}
		return api.Output(entryOutput(*e))
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Store a setting",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := services(cmd)
		if err != nil {
			return err
		}
		v, err := settings.ParseValue(args[0], args[1])
		if err != nil {
			return err
		}
		if err := svc.Settings.Set(cmd.Context(), args[0], v); err != nil {
			return err
		}
		say(cmd, "%s = %v", args[0], v)
		return nil
	},
}

var settingsDeleteCmd = &cobra.Command{
	Use:   "delete KEY",
	Short: "Remove a stored setting so its default applies",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := services(cmd)
		if err != nil {
			return err
		}
		return svc.Settings.Delete(cmd.Context(), args[0])
	},
}

var settingsModeCmd = &cobra.Command{
	Use:   "mode [classic|modern]",
	Short: "Show or set the reading mode",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		svc, err := services(cmd)
		if err != nil {
			return err
		}
		if len(args) == 1 {
			if err := settings.SetReadingMode(ctx, svc.Settings, settings.ReadingMode(args[0])); err != nil {
				return err
			}
		}
		st, err := settings.Load(ctx, svc.Settings)
		if err != nil {
			return err
		}
		return api.Output(st.ReadingMode())
	},
}

func init() {
	settingsCmd.AddCommand(settingsListCmd)
	settingsCmd.AddCommand(settingsGetCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsDeleteCmd)
	settingsCmd.AddCommand(settingsModeCmd)
	rootCmd.AddCommand(settingsCmd)
}

type settingsOutput settings.Settings

func (s settingsOutput) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s\n", settings.KeyFontFamily, s.FontFamily)
	fmt.Fprintf(&b, "%s: %d\n", settings.KeyFontSize, s.FontSize)
	fmt.Fprintf(&b, "%s: %s\n", settings.KeyColor, s.Color)
	fmt.Fprintf(&b, "%s: %g\n", settings.KeyConfidence, s.Confidence)
	fmt.Fprintf(&b, "%s: %s\n", settings.KeyOCRSource, s.OCRSource)
	fmt.Fprintf(&b, "%s: %t\n", settings.KeyClassic, s.StatusClassic)
	fmt.Fprintf(&b, "%s: %t\n", settings.KeyModern, s.StatusModern)
	fmt.Fprintf(&b, "%s: %s\n", settings.KeyPath, s.Path)
	return b.String()
}

type entryOutput settings.Entry

func (e entryOutput) Text() string { return fmt.Sprintf("%v", e.Value) }
