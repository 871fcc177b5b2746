// internal/middleware/logging.go

package middleware

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// statusRecorder captures the response status for logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// LogMiddleware logs each HTTP request with method, path, status, and
// duration via Logrus.
func LogMiddleware(logger *logrus.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			logger.WithFields(logrus.Fields{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   rec.status,
				"duration": time.Since(start),
				"remote":   r.RemoteAddr,
			}).Info("HTTP Request")
		})
	}
}

// LogWebSocketConnect logs a lobby websocket upgrade.
func LogWebSocketConnect(logger *logrus.Logger, remoteAddr, lobbyName, playerName string) {
	logger.WithFields(logrus.Fields{
		"remote": remoteAddr,
		"lobby":  lobbyName,
		"player": playerName,
	}).Info("WebSocket connected")
}

// LogWebSocketDisconnect logs a lobby websocket teardown.
func LogWebSocketDisconnect(logger *logrus.Logger, remoteAddr, lobbyName, playerName string, err error) {
	fields := logrus.Fields{
		"remote": remoteAddr,
		"lobby":  lobbyName,
		"player": playerName,
	}
	if err != nil {
		fields["error"] = err
	}
	logger.WithFields(fields).Info("WebSocket disconnected")
}
