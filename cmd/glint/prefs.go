package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kestrelsoft/glint/internal/config"
	"github.com/kestrelsoft/glint/internal/item"
	"github.com/kestrelsoft/glint/internal/prefs"
)

var prefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "Inspect or change which suggestion categories are enabled",
}

var prefsGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the enabled state of every category",
	Args:  cobra.NoArgs,
	RunE:  runPrefsGet,
}

var prefsSetCmd = &cobra.Command{
	Use:   "set <category> <on|off>",
	Short: "Enable or disable one category",
	Args:  cobra.ExactArgs(2),
	RunE:  runPrefsSet,
}

func init() {
	prefsCmd.AddCommand(prefsGetCmd)
	prefsCmd.AddCommand(prefsSetCmd)
}

func loadPrefStore() (*prefs.Store, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	store := prefs.New(prefs.WithPath(cfg.PrefsPath()))
	if err := store.Load(); err != nil {
		return nil, fmt.Errorf("load preferences: %w", err)
	}
	return store, nil
}

func runPrefsGet(cmd *cobra.Command, args []string) error {
	store, err := loadPrefStore()
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	for _, c := range item.Categories() {
		fmt.Fprintf(tw, "%s\t%s\n", c, onOff(store.Enabled(c)))
	}
	return tw.Flush()
}

func runPrefsSet(cmd *cobra.Command, args []string) error {
	category, ok := item.ParseCategory(args[0])
	if !ok {
		return fmt.Errorf("unknown category %q", args[0])
	}

	var enabled bool
	switch strings.ToLower(args[1]) {
	case "on", "true", "1":
		enabled = true
	case "off", "false", "0":
		enabled = false
	default:
		return fmt.Errorf("state must be on or off, got %q", args[1])
	}

	store, err := loadPrefStore()
	if err != nil {
		return err
	}
	store.SetEnabled(category, enabled)
	if err := store.Save(); err != nil {
		return fmt.Errorf("save preferences: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", category, onOff(enabled))
	return nil
}

func onOff(enabled bool) string {
	if enabled {
		return "on"
	}
	return "off"
}
