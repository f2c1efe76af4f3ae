package server

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/richardpark-msft/rawdump/internal/logging"
)

const HeaderRequestID = "X-Request-Id"

// prepareLogger gives each request an id, and a logger that includes it.
func (s *Server) prepareLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.New().String()
		w.Header().Set(HeaderRequestID, requestID)

		ctx := logging.ContextWithSlogger(r.Context(), s.options.Slogger.With("request-id", requestID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, slogger := logging.ContextWithSloggerAndValues(r.Context(), "method", r.Method, "uri", r.RequestURI, "remote-addr", r.RemoteAddr)
		slogger.Info("Incoming request")

		rw := &logResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(rw, r.WithContext(ctx))

		slogger.Info("Finished request", "response-code", rw.statusCode, "duration", time.Since(start), "response-body-size", rw.size)
	})
}

type logResponseWriter struct {
	http.ResponseWriter
	statusCode int
	size       int
}

func (w *logResponseWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *logResponseWriter) Write(body []byte) (int, error) {
	n, err := w.ResponseWriter.Write(body)
	w.size += n
	return n, err
}

// Unwrap lets http.ResponseController reach the underlying writer, for flushing.
func (w *logResponseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
