package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kalambet/nasagw/internal/config"
)

// --- status ---

type healthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check that a running gateway answers its health check",
	RunE: func(cmd *cobra.Command, args []string) error {
		baseURL, _ := cmd.Flags().GetString("url")
		return showStatus(cmd.Context(), newAPIClient(baseURL))
	},
}

func init() {
	statusCmd.Flags().String("url", "http://127.0.0.1:5000", "gateway base URL")
}

func showStatus(ctx context.Context, client *apiClient) error {
	resp, err := client.get(ctx, "/api/health")
	if err != nil {
		field("Server", "unreachable")
		return err
	}

	var health healthResponse
	if err := decodeJSON(resp, &health); err != nil {
		field("Server", "error")
		return err
	}

	field("Server", "%s at %s", health.Status, client.baseURL)
	if health.Message != "" {
		field("Message", "%s", health.Message)
	}
	return nil
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration with secrets masked",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Inspect()
		for _, k := range config.ShowAll(cfg) {
			fmt.Fprintf(out, "  %s = %s  %s\n", colorize(colorBold, k.Key), k.Value, colorize(colorCyan, "($"+k.EnvVar+")"))
		}
		if err != nil {
			notice(noticeWarn, "configuration is not valid: %v", err)
			return err
		}
		notice(noticeOK, "configuration is valid")
		return nil
	},
}

// --- version ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the nasagw version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(out, "nasagw version %s\n", version)
	},
}
