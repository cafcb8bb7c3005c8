// internal/middleware/logging.go
package middleware

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// Logging logs the method, path, remote address, and duration of each request.
func Logging(logger *logrus.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			next.ServeHTTP(w, r)

			logger.WithFields(logrus.Fields{
				"method":   r.Method,
				"path":     r.URL.Path,
				"remote":   r.RemoteAddr,
				"duration": time.Since(start),
			}).Info("http request")
		})
	}
}

// LogSocketConnect records a websocket client attaching to a room.
func LogSocketConnect(logger *logrus.Logger, remoteAddr, roomID, identity string) {
	logger.WithFields(logrus.Fields{
		"remote":   remoteAddr,
		"room_id":  roomID,
		"identity": identity,
	}).Info("websocket connected")
}

// LogSocketDisconnect records a websocket client detaching from a room.
func LogSocketDisconnect(logger *logrus.Logger, remoteAddr, roomID string, err error) {
	fields := logrus.Fields{
		"remote":  remoteAddr,
		"room_id": roomID,
	}
	if err != nil {
		fields["error"] = err
	}
	logger.WithFields(fields).Info("websocket disconnected")
}
