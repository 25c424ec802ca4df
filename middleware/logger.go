package middleware

import (
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"ocdify-go/logcolors"
)

// ResponseRecorder wraps an http.ResponseWriter to capture the status code
// and body size for request logging.
type ResponseRecorder struct {
	http.ResponseWriter
	StatusCode int
	BodySize   int
}

// NewResponseRecorder creates a recorder with a default 200 status.
func NewResponseRecorder(w http.ResponseWriter) *ResponseRecorder {
	return &ResponseRecorder{ResponseWriter: w, StatusCode: http.StatusOK}
}

func (r *ResponseRecorder) WriteHeader(statusCode int) {
	r.StatusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

func (r *ResponseRecorder) Write(data []byte) (int, error) {
	n, err := r.ResponseWriter.Write(data)
	r.BodySize += n
	return n, err
}

// getStatusColor maps a status code class to an ANSI color.
func getStatusColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return "\033[32m" // green
	case statusCode >= 300 && statusCode < 400:
		return "\033[36m" // cyan
	case statusCode >= 400 && statusCode < 500:
		return "\033[33m" // yellow
	case statusCode >= 500:
		return "\033[31m" // red
	default:
		return "\033[0m"
	}
}

// LoggingMiddleware logs every request with method, path, colored status,
// duration and response size.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := NewResponseRecorder(w)

		next.ServeHTTP(rec, r)

		statusColor := getStatusColor(rec.StatusCode)
		log.Infof("%s %s %s %s%d%s %s %dB",
			logcolors.LogHTTP,
			r.Method,
			r.URL.Path,
			statusColor, rec.StatusCode, logcolors.Reset,
			time.Since(start).Round(time.Millisecond),
			rec.BodySize,
		)
	})
}
