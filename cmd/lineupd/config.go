package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/m3undle/lineup/internal/config"
)

var (
	configValidateFile string
	configDumpFile     string
	configDumpFormat   string
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and validate the bootstrap config file",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Parse a config file and report whether it loads cleanly",
	RunE:  runConfigValidate,
}

var configDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print the effective configuration (defaults + file + environment)",
	RunE:  runConfigDump,
}

func init() {
	configValidateCmd.Flags().StringVarP(&configValidateFile, "file", "f", "", "path to YAML configuration file")
	configDumpCmd.Flags().StringVarP(&configDumpFile, "file", "f", "", "path to YAML configuration file")
	configDumpCmd.Flags().StringVar(&configDumpFormat, "format", "yaml", "output format: yaml or json")

	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configDumpCmd)
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	if _, err := config.Load(configValidateFile); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	fmt.Printf("%s is valid\n", displayConfigPath(configValidateFile))
	return nil
}

func runConfigDump(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configDumpFile)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(configDumpFormat)) {
	case "yaml", "yml":
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(cfg)
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(cfg)
	default:
		return fmt.Errorf("unsupported format %q (use yaml or json)", configDumpFormat)
	}
}

func displayConfigPath(path string) string {
	if path == "" {
		return "(defaults + environment)"
	}
	return path
}
