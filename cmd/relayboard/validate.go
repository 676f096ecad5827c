package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/relayboard/config"
)

// validateCmd validates a config file without starting the server.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate a RelayBoard configuration file without starting the server.

This command parses the YAML, expands environment variables, and validates
all fields. It's useful for CI/CD pipelines or pre-deployment checks.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  relayboard validate -c relay.yaml
  relayboard validate --config /etc/relayboard/relay.yaml`,
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
	fmt.Fprintf(out, "  Port:          %d\n", cfg.Port)
	fmt.Fprintf(out, "  History:       %s coordinates, %s images, %s banners\n",
		limitString(cfg.History.CoordinateLimit),
		limitString(cfg.History.ImageLimit),
		limitString(cfg.History.BannerLimit))
	fmt.Fprintf(out, "  Push:          sse=%t websocket=%t ping=%s\n",
		cfg.Push.SSE, cfg.Push.WebSocket, cfg.Push.PingInterval.Duration())
	if cfg.HTTP.WriteRateLimit > 0 {
		fmt.Fprintf(out, "  Write limit:   %g/s burst %d\n", cfg.HTTP.WriteRateLimit, cfg.HTTP.WriteBurst)
	} else {
		fmt.Fprintf(out, "  Write limit:   off\n")
	}

	return nil
}

// limitString renders a history bound, where 0 means unbounded.
func limitString(n int) string {
	if n == 0 {
		return "unbounded"
	}
	return fmt.Sprintf("%d", n)
}
