package main

import (
	"fmt"
	"io"

	"github.com/joeydtaylor/steeze-sentinel/pkg/core"
	"github.com/joeydtaylor/steeze-sentinel/pkg/serverfx"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate a configuration file",
	Long: `Parse and validate the configuration without starting anything.

Unknown keys, malformed CSP overrides and guards without restrictions are
reported with the file path.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCheck(cmd.OutOrStdout(), resolveConfig())
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(w io.Writer, path string) error {
	cfg, err := core.LoadConfig(path)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s: ok\n", path)
	fmt.Fprintf(w, "  headers:   enabled=%t hsts=%t overrides=%d\n",
		cfg.Headers.Enabled, cfg.Headers.EnableHsts, len(cfg.Headers.CustomCspDirectives))
	fmt.Fprintf(w, "  session:   store=%s skew=%s\n", cfg.Session.Store, cfg.Session.ExpirySkew())
	fmt.Fprintf(w, "  guards:    %d\n", len(cfg.EffectiveGuards()))
	return nil
}

func resolveConfig() string {
	opts := serverfx.DefaultOptions()
	serverfx.WithConfigPath(configPath)(&opts)
	return opts.ResolveConfigPath()
}
