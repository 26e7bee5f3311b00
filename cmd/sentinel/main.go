package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information (set at build time)
var (
	Version = "dev"
	Build   = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "sentinel",
	Short: "Security-header and session-refresh gateway",
	Long: `sentinel - security headers and session gate for a backend-for-frontend

Stamps a per-request nonce CSP and the hardening headers onto every
response, keeps OIDC sessions fresh with a single refresh per session, and
guards API routes with JSON 401/403 responses.

Commands:
  serve    Run the gateway with a demo application behind it
  policy   Print the headers a response would carry
  check    Validate a configuration file

Environment Variables:
  SENTINEL_CONFIG          Config path (default: sentinel.toml)
  SERVER_LISTEN_ADDRESS    Listen address (default: :4000)
  SENTRY_DSN               Enables error reporting when set

Examples:
  sentinel check --config ./sentinel.toml
  sentinel policy --nonce test
  sentinel serve`,
	Run: func(cmd *cobra.Command, args []string) {
		if v, _ := cmd.Flags().GetBool("version"); v {
			fmt.Printf("sentinel version %s (%s)\n", Version, Build)
			return
		}
		_ = cmd.Help()
	},
}

var configPath string

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Print version information")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default $SENTINEL_CONFIG or sentinel.toml)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
