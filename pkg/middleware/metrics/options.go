package metrics

import (
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
)

// settings is replaced whole on every change so Collect reads one
// consistent snapshot per request without locking.
type settings struct {
	skip map[string]struct{}
	uri  func(*http.Request) string
}

var (
	writeMu sync.Mutex
	current atomic.Pointer[settings]
)

func init() {
	current.Store(&settings{
		skip: map[string]struct{}{"/metrics": {}},
		uri:  func(r *http.Request) string { return r.URL.Path },
	})
}

func update(fn func(next *settings)) {
	writeMu.Lock()
	defer writeMu.Unlock()
	prev := current.Load()
	next := &settings{skip: make(map[string]struct{}, len(prev.skip)+1), uri: prev.uri}
	for p := range prev.skip {
		next.skip[p] = struct{}{}
	}
	fn(next)
	current.Store(next)
}

// AddMetricsSkipPaths excludes exact paths from collection. "/metrics" is
// always excluded.
func AddMetricsSkipPaths(paths ...string) {
	update(func(s *settings) {
		for _, p := range paths {
			if p = strings.TrimSpace(p); p != "" {
				s.skip[p] = struct{}{}
			}
		}
	})
}

// SetPathNormalizer sets how the uri label is derived. The router installs
// the matched chi route pattern so ids in paths never become labels.
func SetPathNormalizer(fn func(*http.Request) string) {
	if fn == nil {
		return
	}
	update(func(s *settings) { s.uri = fn })
}

func isSkipPath(r *http.Request) bool {
	_, ok := current.Load().skip[r.URL.Path]
	return ok
}

func normalizePath(r *http.Request) string {
	return current.Load().uri(r)
}
