package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kestrelsoft/glint/internal/httpapi"
)

var fetchJSON bool

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Run one fetch cycle and print the ranked suggestions",
	Args:  cobra.NoArgs,
	RunE:  runFetch,
}

func init() {
	fetchCmd.Flags().BoolVar(&fetchJSON, "json", false, "print items as JSON")
}

func runFetch(cmd *cobra.Command, args []string) error {
	a, err := buildApp(false)
	if err != nil {
		return err
	}
	defer a.close()

	done := make(chan struct{})
	a.model.RequestDataFetch(true, func() { close(done) })
	<-done

	items := httpapi.Render(a.model.GetItemsForDisplay())
	if fetchJSON {
		return printJSON(cmd.OutOrStdout(), items)
	}
	printTable(cmd.OutOrStdout(), items)
	return nil
}

// printJSON writes the same wire form the HTTP API serves.
func printJSON(w io.Writer, items []httpapi.Payload) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(items)
}

func printTable(w io.Writer, items []httpapi.Payload) {
	if len(items) == 0 {
		fmt.Fprintln(w, "no suggestions")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tCATEGORY\tTITLE\tKEY")
	for _, it := range items {
		ranking := "-"
		if it.Ranking != nil {
			ranking = strconv.FormatFloat(*it.Ranking, 'f', 1, 64)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", ranking, it.Category, it.Title, it.Key)
	}
	tw.Flush()
}
