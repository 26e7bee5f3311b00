package logger

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"sync"
)

const maxLoggedBody = 64 << 10

// Request bodies are redacted unless their exact path is listed in
// [server] log_body_paths.
var (
	bodyLogMu    sync.RWMutex
	bodyLogPaths = map[string]struct{}{}
)

func AddBodyLogPaths(paths ...string) {
	bodyLogMu.Lock()
	defer bodyLogMu.Unlock()
	for _, p := range paths {
		if p = strings.TrimSpace(p); p != "" {
			bodyLogPaths[p] = struct{}{}
		}
	}
}

func bodyLoggable(r *http.Request) bool {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
	default:
		return false
	}
	if r.Body == nil || r.ContentLength > maxLoggedBody {
		return false
	}
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		return false
	}
	bodyLogMu.RLock()
	_, ok := bodyLogPaths[r.URL.Path]
	bodyLogMu.RUnlock()
	return ok
}

// captureBody reads up to maxLoggedBody bytes of an allowlisted request and
// puts them back in front of the remaining stream. It returns nil when the
// body is not loggable or turned out larger than the cap.
func captureBody(r *http.Request) []byte {
	if !bodyLoggable(r) {
		return nil
	}
	head, err := io.ReadAll(io.LimitReader(r.Body, maxLoggedBody+1))
	r.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(head), r.Body), r.Body}
	if err != nil || len(head) == 0 || len(head) > maxLoggedBody {
		return nil
	}
	return head
}
