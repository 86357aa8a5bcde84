package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"videotube/internal/utils"
)

// Response is the envelope every endpoint answers with.
type Response struct {
	StatusCode int         `json:"statusCode"`
	Data       interface{} `json:"data"`
	Message    string      `json:"message"`
	Success    bool        `json:"success"`
}

// ErrorResponse never carries internal detail, only the public message.
type ErrorResponse struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

func NewResponse(statusCode int, data interface{}, message string) Response {
	return Response{
		StatusCode: statusCode,
		Data:       data,
		Message:    message,
		Success:    statusCode < http.StatusBadRequest,
	}
}

// WriteJSON writes body with the given HTTP status.
func WriteJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// WriteSuccess writes a success envelope whose statusCode mirrors the HTTP status.
func WriteSuccess(w http.ResponseWriter, status int, data interface{}, message string) {
	WriteJSON(w, status, NewResponse(status, data, message))
}

// WriteError maps err onto the error envelope. Anything that is not an
// AppError, and any 5xx, is logged and reported generically.
func WriteError(w http.ResponseWriter, log *slog.Logger, err error) {
	status := http.StatusInternalServerError
	message := "Internal server error"

	if appErr, ok := asAppError(err); ok {
		status = utils.AppErrorToHTTPStatus(appErr.Code)
		if status < http.StatusInternalServerError {
			message = appErr.Message
		}
	}

	if status >= http.StatusInternalServerError && log != nil {
		log.Error("request failed", "error", err)
	}

	WriteJSON(w, status, ErrorResponse{
		StatusCode: status,
		Message:    message,
		Success:    false,
	})
}

func asAppError(err error) (*utils.AppError, bool) {
	var appErr *utils.AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
