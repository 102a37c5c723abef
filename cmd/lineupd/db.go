package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/m3undle/lineup/internal/config"
	"github.com/m3undle/lineup/internal/persistence/sqlite"
)

var (
	dbConfigPath string
	dbVerifyMode string
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Inspect the catalog database on disk",
}

var dbVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check the catalog database for structural corruption",
	Long:  "Runs SQLite's quick_check or integrity_check PRAGMA against the catalog database without the daemon running.",
	RunE:  runDBVerify,
}

func init() {
	dbVerifyCmd.Flags().StringVarP(&dbConfigPath, "config", "c", "", "path to config file (YAML), to locate the database path")
	dbVerifyCmd.Flags().StringVar(&dbVerifyMode, "mode", "quick", "check depth: quick or full")

	dbCmd.AddCommand(dbVerifyCmd)
	rootCmd.AddCommand(dbCmd)
}

func runDBVerify(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(dbConfigPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	mode := strings.ToLower(strings.TrimSpace(dbVerifyMode))
	if mode != "quick" && mode != "full" {
		return fmt.Errorf("unsupported mode %q (use quick or full)", dbVerifyMode)
	}

	problems, err := sqlite.VerifyIntegrity(cfg.DatabasePath, mode)
	if err != nil {
		return fmt.Errorf("verify %s: %w", cfg.DatabasePath, err)
	}
	if len(problems) == 0 {
		fmt.Printf("%s: ok\n", cfg.DatabasePath)
		return nil
	}

	fmt.Printf("%s: %d issue(s) found\n", cfg.DatabasePath, len(problems))
	for _, p := range problems {
		fmt.Printf("  - %s\n", p)
	}
	return fmt.Errorf("database integrity check failed")
}
