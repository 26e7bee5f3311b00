package bundlefx

import (
	"github.com/joeydtaylor/steeze-sentinel/pkg/middleware/auth"
	"github.com/joeydtaylor/steeze-sentinel/pkg/middleware/headers"
	"github.com/joeydtaylor/steeze-sentinel/pkg/middleware/logger"
	"github.com/joeydtaylor/steeze-sentinel/pkg/middleware/metrics"
	"go.uber.org/fx"
)

// Module bundles the middleware providers for hosts that build their own
// router. The host supplies manifest.Config and a headers.ConfigSource.
var Module = fx.Options(
	headers.Module,
	auth.Module,
	logger.Module,
	metrics.Module,
)
