package core

import (
	"net/http"

	"github.com/joeydtaylor/steeze-sentinel/pkg/middleware/auth"
	"github.com/joeydtaylor/steeze-sentinel/pkg/middleware/headers"
	"github.com/joeydtaylor/steeze-sentinel/pkg/middleware/logger"
	httpx "github.com/joeydtaylor/steeze-sentinel/pkg/transport/httpx"
)

type BuildDeps struct {
	Headers *headers.Middleware
	Auth    *auth.Middleware
	LogMW   *logger.Middleware
	Metrics http.Handler
	Router  httpx.Router
	App     http.Handler // the protected application; nil = 404 for everything
}
