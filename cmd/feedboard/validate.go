package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/feedboard/config"
)

// validateCmd validates a config file without opening the reader.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate a feedboard configuration file without opening the reader.

This command parses the YAML, expands environment variables, and validates
all fields.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  feedboard validate -c config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	if configFile == "" {
		return fmt.Errorf("--config is required")
	}
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	categories := "none"
	if names := config.Categories(cfg); len(names) > 0 {
		categories = strings.Join(names, ", ")
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Config is valid!\n")
	fmt.Fprintf(out, "  Refresh interval: %s (auto refresh %t)\n", cfg.RefreshInterval.Duration(), cfg.AutoRefresh)
	fmt.Fprintf(out, "  Domain delay:     %s\n", cfg.DomainDelay.Duration())
	fmt.Fprintf(out, "  Feeds:            %d\n", len(cfg.Feeds))
	fmt.Fprintf(out, "  Categories:       %s\n", categories)
	return nil
}
