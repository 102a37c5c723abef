package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

var (
	healthcheckAddr    string
	healthcheckTimeout time.Duration
)

var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Probe a running daemon's /healthz endpoint",
	Long:  "Intended for container HEALTHCHECK directives: exits non-zero unless /healthz returns 200.",
	RunE:  runHealthcheck,
}

func init() {
	healthcheckCmd.Flags().StringVar(&healthcheckAddr, "addr", "localhost:8080", "daemon listen address to probe")
	healthcheckCmd.Flags().DurationVar(&healthcheckTimeout, "timeout", 5*time.Second, "probe timeout")
}

func runHealthcheck(cmd *cobra.Command, args []string) error {
	client := http.Client{Timeout: healthcheckTimeout}

	resp, err := client.Get(fmt.Sprintf("http://%s/healthz", healthcheckAddr))
	if err != nil {
		return fmt.Errorf("healthcheck: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("healthcheck: unhealthy status %d %s", resp.StatusCode, resp.Status)
	}

	fmt.Println("healthy")
	return nil
}
