package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"videotube/internal/api"
)

// HandleChannelProfile serves /c/{username} with subscription counts
func (s *Server) HandleChannelProfile() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewerID, err := currentUserID(r)
		if err != nil {
			api.WriteError(w, s.Log, err)
			return
		}

		profile, err := s.Profiles.ChannelProfile(r.Context(), chi.URLParam(r, "username"), viewerID)
		if err != nil {
			api.WriteError(w, s.Log, err)
			return
		}

		api.WriteSuccess(w, http.StatusOK, profile, "User channel fetched successfully")
	}
}

func (s *Server) HandleWatchHistory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			api.WriteError(w, s.Log, err)
			return
		}

		history, err := s.Profiles.WatchHistory(r.Context(), userID)
		if err != nil {
			api.WriteError(w, s.Log, err)
			return
		}

		api.WriteSuccess(w, http.StatusOK, history, "Watch history fetched successfully")
	}
}

func (s *Server) HandleToggleSubscription() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			api.WriteError(w, s.Log, err)
			return
		}

		subscribed, err := s.Profiles.ToggleSubscription(r.Context(), userID, chi.URLParam(r, "channelId"))
		if err != nil {
			api.WriteError(w, s.Log, err)
			return
		}

		message := "Unsubscribed successfully"
		if subscribed {
			message = "Subscribed successfully"
		}
		api.WriteSuccess(w, http.StatusOK, map[string]bool{"subscribed": subscribed}, message)
	}
}

func (s *Server) HandleRecordWatch() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			api.WriteError(w, s.Log, err)
			return
		}

		if err := s.Profiles.RecordWatch(r.Context(), userID, chi.URLParam(r, "videoId")); err != nil {
			api.WriteError(w, s.Log, err)
			return
		}

		api.WriteSuccess(w, http.StatusOK, map[string]interface{}{}, "Watch history updated")
	}
}
