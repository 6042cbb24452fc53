package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/kestrelsoft/glint/internal/config"
	"github.com/kestrelsoft/glint/internal/httpapi"
)

var (
	itemsAll  bool
	itemsJSON bool
	itemsAddr string
)

var itemsCmd = &cobra.Command{
	Use:   "items",
	Short: "Print the suggestions a running daemon is serving",
	Args:  cobra.NoArgs,
	RunE:  runItems,
}

func init() {
	itemsCmd.Flags().BoolVar(&itemsAll, "all", false, "include unranked items from every category")
	itemsCmd.Flags().BoolVar(&itemsJSON, "json", false, "print items as JSON")
	itemsCmd.Flags().StringVar(&itemsAddr, "addr", "", "daemon address (default from config)")
}

func runItems(cmd *cobra.Command, args []string) error {
	addr := itemsAddr
	if addr == "" {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		addr = cfg.Listen
	}

	path := "/v1/items"
	if itemsAll {
		path = "/v1/items/all"
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get("http://" + addr + path)
	if err != nil {
		return fmt.Errorf("query daemon at %s: %w", addr, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("daemon returned %s: %s", resp.Status, body)
	}

	var payload struct {
		Items []httpapi.Payload `json:"items"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	if itemsJSON {
		return printJSON(cmd.OutOrStdout(), payload.Items)
	}
	printTable(cmd.OutOrStdout(), payload.Items)
	return nil
}
