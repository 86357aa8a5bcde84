package handlers

import (
	"context"
	"net/http"
	"time"

	"videotube/internal/api"
	"videotube/internal/utils"
)

// HandleHealth reports liveness plus whether the store answers a ping
func (s *Server) HandleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), s.RequestTimeout)
		defer cancel()

		if err := s.Store.Ping(ctx); err != nil {
			s.Log.Error("health check: store ping failed", "error", err)
			api.WriteJSON(w, http.StatusServiceUnavailable, api.ErrorResponse{
				StatusCode: http.StatusServiceUnavailable,
				Message:    "Database unavailable",
			})
			return
		}

		var uptime time.Duration
		if s.Metrics != nil {
			uptime = s.Metrics.Uptime()
		}
		api.WriteSuccess(w, http.StatusOK, map[string]interface{}{
			"status":      "healthy",
			"uptime":      uptime.Round(time.Second).String(),
			"server_time": time.Now().UTC(),
		}, "OK")
	}
}

// currentUserID is only valid behind the auth middleware
func currentUserID(r *http.Request) (string, error) {
	id, ok := userIDFromRequest(r)
	if !ok {
		return "", utils.NewAppError(utils.ErrUnauthorized, "Unauthorized request", nil)
	}
	return id, nil
}
