package handlers

import (
	"net/http"

	"videotube/internal/auth"
	"videotube/internal/middleware"
)

const refreshTokenCookie = "refreshToken"

func (s *Server) sessionCookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.Config.Auth.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (s *Server) setSessionCookies(w http.ResponseWriter, pair auth.TokenPair) {
	http.SetCookie(w, s.sessionCookie(middleware.AccessTokenCookie, pair.AccessToken, int(s.Tokens.AccessTTL().Seconds())))
	http.SetCookie(w, s.sessionCookie(refreshTokenCookie, pair.RefreshToken, int(s.Tokens.RefreshTTL().Seconds())))
}

func (s *Server) clearSessionCookies(w http.ResponseWriter) {
	http.SetCookie(w, s.sessionCookie(middleware.AccessTokenCookie, "", -1))
	http.SetCookie(w, s.sessionCookie(refreshTokenCookie, "", -1))
}
