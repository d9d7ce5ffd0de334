package handlers

import (
	"net/http"
	"time"

	"moodwave/internal/logger"
	"moodwave/internal/metrics"

	"github.com/sirupsen/logrus"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Instrument records request count and latency under the route pattern path
func Instrument(m *metrics.Metrics, path string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		elapsed := time.Since(start)
		if m != nil {
			m.RecordHTTPRequest(r.Method, path, rec.status, elapsed.Seconds())
		}
		logger.Log.WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        path,
			"status":      rec.status,
			"duration_ms": elapsed.Milliseconds(),
		}).Debug("Request handled")
	}
}
