package logger

import (
	"github.com/joeydtaylor/steeze-sentinel/pkg/manifest"
	"go.uber.org/zap"
)

type Middleware struct{}

func ProvideLoggerMiddleware(cfg manifest.Config) *Middleware {
	AddBodyLogPaths(cfg.Server.LogBodyPaths...)
	return &Middleware{}
}

func ProvideLogger() *zap.Logger { return NewLog("system.log") }
