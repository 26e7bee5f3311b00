package report

import (
	"os"
	"runtime"
	"time"

	"github.com/getsentry/sentry-go"
)

// Setup initialises the global Sentry client from SENTRY_DSN. With no DSN
// the client stays disabled and every Report call is a no-op.
func Setup(release string) error {
	dsn := os.Getenv("SENTRY_DSN")
	if dsn == "" {
		return nil
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: os.Getenv("SENTRY_ENVIRONMENT"),
		Release:     release,
	}); err != nil {
		return err
	}
	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("go_version", runtime.Version())
		scope.SetContext("host_info", map[string]interface{}{
			"hostname": hostname(),
		})
	})
	return nil
}

func Flush() {
	sentry.Flush(2 * time.Second)
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return h
}

// Error reports err with the given tags at error level.
func Error(err error, tags map[string]string) {
	capture(err, sentry.LevelError, tags)
}

// Fatal reports err at fatal level and flushes.
func Fatal(err error, tags map[string]string) {
	capture(err, sentry.LevelFatal, tags)
	Flush()
}

func capture(err error, level sentry.Level, tags map[string]string) {
	if err == nil {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(level)
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		sentry.CaptureException(err)
	})
}
