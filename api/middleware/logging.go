package middleware

import (
	"net/http"
	"time"

	"github.com/convexa-app/backoffice-backend/pkg/logger"
)

// outcomeWriter captures the status code and body size for the access log.
type outcomeWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *outcomeWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *outcomeWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(p)
	w.bytes += n
	return n, err
}

// Logging emits one access-log line per request and seeds the method/path
// fields into the context for every downstream log line.
func Logging(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if logg == nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := logg.WithFields(r.Context(), map[string]any{
				"method": r.Method,
				"path":   r.URL.Path,
			})

			writer := &outcomeWriter{ResponseWriter: w}
			started := time.Now()

			next.ServeHTTP(writer, r.WithContext(ctx))

			if writer.status == 0 {
				writer.status = http.StatusOK
			}
			ctx = logg.WithFields(ctx, map[string]any{
				"status":      writer.status,
				"bytes":       writer.bytes,
				"duration_ms": time.Since(started).Milliseconds(),
			})
			logg.Info(ctx, "request handled")
		})
	}
}
