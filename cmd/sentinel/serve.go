package main

import (
	"html/template"
	"net/http"

	"github.com/joeydtaylor/steeze-sentinel/pkg/middleware/auth"
	"github.com/joeydtaylor/steeze-sentinel/pkg/middleware/headers"
	"github.com/joeydtaylor/steeze-sentinel/pkg/serverfx"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the gateway with a demo application behind it",
	Long: `Start the HTTP server. The config file is watched and [headers]
changes apply to the next request; other sections need a restart.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fx.New(
			serverfx.Module(
				serverfx.WithService("sentinel@"+Version),
				serverfx.WithConfigPath(configPath),
			),
			fx.Provide(fx.Annotate(newDemoApp, fx.ResultTags(`name:"upstream"`))),
		).Run()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

var demoPage = template.Must(template.New("demo").Parse(`<!doctype html>
<html>
<head><title>sentinel</title></head>
<body>
<h1>{{if .User}}Signed in as {{.User}}{{else}}Anonymous{{end}}</h1>
<p>Session state: {{.State}}</p>
<script nonce="{{.Nonce}}">document.body.dataset.ready = "1";</script>
</body>
</html>
`))

type demoView struct {
	User  string
	State string
	Nonce string
}

// newDemoApp renders a page whose only inline script is allowed by the
// per-request nonce.
func newDemoApp(a *auth.Middleware) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nonce, _ := headers.NonceFromContext(r.Context())
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = demoPage.Execute(w, demoView{
			User:  a.GetUser(r.Context()).Username,
			State: auth.StateFromContext(r.Context()).String(),
			Nonce: nonce,
		})
	})
}
