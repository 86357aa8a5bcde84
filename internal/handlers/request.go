package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"

	"videotube/internal/middleware"
	"videotube/internal/utils"
)

const maxJSONBody = 1 << 20

func userIDFromRequest(r *http.Request) (string, bool) {
	return middleware.GetUserIDFromContext(r.Context())
}

// decodeBody fills dst from a JSON body, or from form values keyed by the
// json field names for urlencoded and multipart requests.
func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}, fields map[string]*string) error {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch mediaType {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		if err := r.ParseMultipartForm(maxMultipartMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			return utils.NewAppError(utils.ErrInvalidInput, "Invalid form body", err)
		}
		for name, target := range fields {
			*target = r.FormValue(name)
		}
		return nil
	default:
		r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
		if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
			return utils.NewAppError(utils.ErrInvalidInput, "Invalid request body", err)
		}
		return nil
	}
}
