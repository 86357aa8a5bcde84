package handlers

import (
	"context"
	"net/http"

	"videotube/internal/api"
	"videotube/internal/auth"
	"videotube/internal/models"
	"videotube/internal/services"
	"videotube/internal/utils"
)

// HandleRegister handles multipart registration with an avatar and optional cover image
func (s *Server) HandleRegister() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := parseMultipart(w, r); err != nil {
			api.WriteError(w, s.Log, err)
			return
		}
		defer r.MultipartForm.RemoveAll()

		staged := &stagedFiles{}
		defer staged.cleanup()

		var files services.UploadResult
		var err error
		if files.AvatarPath, err = staged.stage(r, "avatar", s.Config.Server.UploadDir); err != nil {
			api.WriteError(w, s.Log, err)
			return
		}
		if files.CoverImagePath, err = staged.stage(r, "coverImage", s.Config.Server.UploadDir); err != nil {
			api.WriteError(w, s.Log, err)
			return
		}

		user, err := s.Sessions.Register(r.Context(), services.RegisterInput{
			Fullname: r.FormValue("fullname"),
			Username: r.FormValue("username"),
			Email:    r.FormValue("email"),
			Password: r.FormValue("password"),
		}, files)
		if err != nil {
			api.WriteError(w, s.Log, err)
			return
		}

		// 201 on the wire, 200 inside the envelope
		api.WriteJSON(w, http.StatusCreated, api.NewResponse(http.StatusOK, user, "User registered successfully"))
	}
}

// HandleLogin handles requests to log in a user
func (s *Server) HandleLogin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req services.LoginInput
		if err := decodeBody(w, r, &req, map[string]*string{
			"username": &req.Username,
			"email":    &req.Email,
			"password": &req.Password,
		}); err != nil {
			api.WriteError(w, s.Log, err)
			return
		}

		result, err := s.Sessions.Login(r.Context(), req)
		if err != nil {
			api.WriteError(w, s.Log, err)
			return
		}

		s.setSessionCookies(w, result.TokenPair)
		api.WriteSuccess(w, http.StatusOK, result, "User logged in successfully")
	}
}

func (s *Server) HandleLogout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			api.WriteError(w, s.Log, err)
			return
		}

		if err := s.Sessions.Logout(r.Context(), userID); err != nil {
			api.WriteError(w, s.Log, err)
			return
		}

		s.clearSessionCookies(w)
		api.WriteSuccess(w, http.StatusOK, map[string]interface{}{}, "User logged out")
	}
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// HandleRefreshToken accepts the refresh token from its cookie or the body.
// A cookie that fails verification does not hide a token sent in the body:
// clients that rotated through the body may still carry an older cookie.
func (s *Server) HandleRefreshToken() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var candidates []string
		if cookie, err := r.Cookie(refreshTokenCookie); err == nil && cookie.Value != "" {
			candidates = append(candidates, cookie.Value)
		}

		var req refreshRequest
		if err := decodeBody(w, r, &req, map[string]*string{"refreshToken": &req.RefreshToken}); err != nil && len(candidates) == 0 {
			api.WriteError(w, s.Log, err)
			return
		}
		if req.RefreshToken != "" && (len(candidates) == 0 || candidates[0] != req.RefreshToken) {
			candidates = append(candidates, req.RefreshToken)
		}
		if len(candidates) == 0 {
			candidates = append(candidates, "")
		}

		var (
			pair *auth.TokenPair
			err  error
		)
		for _, presented := range candidates {
			pair, err = s.Sessions.Refresh(r.Context(), presented)
			if err == nil || !utils.IsAuthError(err) {
				break
			}
		}
		if err != nil {
			api.WriteError(w, s.Log, err)
			return
		}

		s.setSessionCookies(w, *pair)
		api.WriteSuccess(w, http.StatusOK, pair, "Access token refreshed")
	}
}

func (s *Server) HandleChangePassword() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			api.WriteError(w, s.Log, err)
			return
		}

		var req services.ChangePasswordInput
		if err := decodeBody(w, r, &req, map[string]*string{
			"oldPassword": &req.OldPassword,
			"newPassword": &req.NewPassword,
		}); err != nil {
			api.WriteError(w, s.Log, err)
			return
		}

		if err := s.Sessions.ChangePassword(r.Context(), userID, req); err != nil {
			api.WriteError(w, s.Log, err)
			return
		}

		api.WriteSuccess(w, http.StatusOK, map[string]interface{}{}, "Password changed successfully")
	}
}

func (s *Server) HandleCurrentUser() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			api.WriteError(w, s.Log, err)
			return
		}

		user, err := s.Sessions.CurrentUser(r.Context(), userID)
		if err != nil {
			api.WriteError(w, s.Log, err)
			return
		}

		api.WriteSuccess(w, http.StatusOK, user, "Current user fetched successfully")
	}
}

func (s *Server) HandleUpdateAccount() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			api.WriteError(w, s.Log, err)
			return
		}

		var req services.UpdateAccountInput
		if err := decodeBody(w, r, &req, map[string]*string{
			"fullname": &req.Fullname,
			"email":    &req.Email,
		}); err != nil {
			api.WriteError(w, s.Log, err)
			return
		}

		user, err := s.Sessions.UpdateAccount(r.Context(), userID, req)
		if err != nil {
			api.WriteError(w, s.Log, err)
			return
		}

		api.WriteSuccess(w, http.StatusOK, user, "Account details updated successfully")
	}
}

func (s *Server) HandleUpdateAvatar() http.HandlerFunc {
	return s.handleMediaUpdate("avatar", s.Sessions.UpdateAvatar, "Avatar image updated successfully")
}

func (s *Server) HandleUpdateCoverImage() http.HandlerFunc {
	return s.handleMediaUpdate("coverImage", s.Sessions.UpdateCoverImage, "Cover image updated successfully")
}

type mediaUpdater func(ctx context.Context, userID, localPath string) (*models.PublicUser, error)

func (s *Server) handleMediaUpdate(field string, update mediaUpdater, message string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			api.WriteError(w, s.Log, err)
			return
		}

		if err := parseMultipart(w, r); err != nil {
			api.WriteError(w, s.Log, err)
			return
		}
		defer r.MultipartForm.RemoveAll()

		staged := &stagedFiles{}
		defer staged.cleanup()

		path, err := staged.stage(r, field, s.Config.Server.UploadDir)
		if err != nil {
			api.WriteError(w, s.Log, err)
			return
		}
		var localPath string
		if path != nil {
			localPath = *path
		}

		user, err := update(r.Context(), userID, localPath)
		if err != nil {
			api.WriteError(w, s.Log, err)
			return
		}

		api.WriteSuccess(w, http.StatusOK, user, message)
	}
}
