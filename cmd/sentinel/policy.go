package main

import (
	"fmt"
	"io"
	"net/http"
	"sort"

	"github.com/joeydtaylor/steeze-sentinel/pkg/core"
	"github.com/joeydtaylor/steeze-sentinel/pkg/manifest"
	"github.com/joeydtaylor/steeze-sentinel/pkg/middleware/headers"
	"github.com/spf13/cobra"
)

var (
	policyNonce  string
	policySecure bool
)

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Print the headers a response would carry",
	Long: `Render the security headers for one response from the configuration.

A fresh nonce is generated unless --nonce is given. HSTS appears only with
--secure, matching a request that arrived over TLS.

Examples:
  sentinel policy
  sentinel policy --nonce abc --secure`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := core.LoadConfig(resolveConfig())
		if err != nil {
			return err
		}
		return runPolicy(cmd.OutOrStdout(), cfg.Headers, policyNonce, policySecure)
	},
}

func init() {
	policyCmd.Flags().StringVar(&policyNonce, "nonce", "", "fixed nonce instead of a random one")
	policyCmd.Flags().BoolVar(&policySecure, "secure", false, "render as if served over TLS")
	rootCmd.AddCommand(policyCmd)
}

func runPolicy(w io.Writer, cfg manifest.SecurityHeaders, nonce string, secure bool) error {
	if !cfg.Enabled {
		fmt.Fprintln(w, "# header emission disabled")
		return nil
	}
	n := headers.Nonce(nonce)
	if n == "" {
		var err error
		if n, err = (headers.RandomNonceSource{}).Generate(); err != nil {
			return err
		}
	}

	h := http.Header{}
	headers.Apply(h, cfg, n, secure)
	names := make([]string, 0, len(h))
	for k := range h {
		if k != "Content-Security-Policy" {
			names = append(names, k)
		}
	}
	sort.Strings(names)
	for _, k := range names {
		fmt.Fprintf(w, "%s: %s\n", k, h.Get(k))
	}

	fmt.Fprintln(w, "Content-Security-Policy:")
	for _, d := range headers.Build(cfg, n) {
		fmt.Fprintf(w, "  %s;\n", d)
	}
	return nil
}
