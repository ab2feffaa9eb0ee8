package main

import (
	"fmt"

	"github.com/jpalmerr/coursestore/config"
	"github.com/spf13/cobra"
)

// validateCmd validates a config file without starting the server.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate a coursestore configuration file without starting the server.

This command parses the YAML, expands environment variables, and validates
all fields. It's useful for CI/CD pipelines or pre-deployment checks.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  coursestore validate -c config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = validateCmd.MarkFlagRequired("config")
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Config is valid!\n")
	fmt.Fprintf(out, "  Port:    %d\n", cfg.Port)
	fmt.Fprintf(out, "  API URL: %s\n", cfg.API.URL)
	fmt.Fprintf(out, "  Timeout: %s\n", cfg.API.Timeout.Duration())
	fmt.Fprintf(out, "  Headers: %d\n", len(cfg.API.Headers))
	fmt.Fprintf(out, "  Log:     %s (%s)\n", cfg.Log.Level, cfg.Log.Format)

	return nil
}
