package headers

import "net/http"

// serverStripWriter deletes the Server header right before the final status
// line goes out, so values set by the application or a proxied upstream
// never reach the client.
type serverStripWriter struct {
	http.ResponseWriter
	wrote bool
}

func (w *serverStripWriter) WriteHeader(code int) {
	if !w.wrote {
		w.Header().Del("Server")
		if code >= http.StatusOK {
			w.wrote = true
		}
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *serverStripWriter) Write(b []byte) (int, error) {
	if !w.wrote {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

func (w *serverStripWriter) Flush() {
	if !w.wrote {
		w.WriteHeader(http.StatusOK)
	}
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *serverStripWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
