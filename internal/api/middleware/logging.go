package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

type responseRecorder struct {
	http.ResponseWriter
	status   int
	bytesOut int
}

func (r *responseRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Write(p []byte) (int, error) {
	n, err := r.ResponseWriter.Write(p)
	r.bytesOut += n
	return n, err
}

// Logger logs one line per request. The key slot is filled by the auth
// middleware further down the chain, so the authenticated key name is known
// by the time the request completes.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
		slot := &keySlot{}
		ctx := context.WithValue(r.Context(), keySlotKey, slot)

		next.ServeHTTP(rec, r.WithContext(ctx))

		attrs := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"bytes_out", rec.bytesOut,
			"duration_ms", time.Since(start).Milliseconds(),
			"remote_addr", r.RemoteAddr,
		}
		if slot.name != "" {
			attrs = append(attrs, "key", slot.name)
		}
		slog.Info("request", attrs...)
	})
}
