package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/m3undle/lineup/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "lineupd",
	Short: "Self-hosted IPTV lineup manager daemon",
	Long: `lineupd ingests upstream M3U playlists and optional EPG documents,
lets an operator curate which channels and groups get republished, and
serves the result on stable, credential-free playlist, guide, and stream
endpoints.`,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(healthcheckCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("lineupd %s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
