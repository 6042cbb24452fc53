// Command glint aggregates launcher suggestions from local and remote
// sources and serves them over a small HTTP API.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "glint",
	Short: "Ranked launcher suggestions from calendar, files, tabs, weather and release notes",
	Long: `glint collects calendar events, recently used files, tabs from other
devices, the current weather and product release notes into a single
ranked suggestion list.

The serve command runs it as a daemon with an HTTP API and websocket
push; fetch runs one cycle and prints the results.`,
	Version: fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
}

var (
	configPath string
	debug      bool
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ~/.glint/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(itemsCmd)
	rootCmd.AddCommand(prefsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newLogger builds the process logger. One-shot commands stay quiet on
// stderr unless --debug is set; the daemon always logs.
func newLogger(daemon bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	if !daemon {
		return zap.NewNop(), nil
	}
	return zap.NewProduction()
}
