package handlers

import (
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"videotube/internal/utils"
)

const (
	maxMultipartMemory = 10 << 20
	maxUploadBody      = 25 << 20
)

// stagedFiles tracks temp files written for one request. cleanup is safe to
// call after the media store already removed them.
type stagedFiles struct {
	paths []string
}

func (sf *stagedFiles) cleanup() {
	for _, p := range sf.paths {
		_ = os.Remove(p)
	}
}

// parseMultipart limits and parses a multipart body.
func parseMultipart(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return utils.NewValidationError("Upload is too large")
		}
		return utils.NewAppError(utils.ErrInvalidInput, "Expected a multipart form", err)
	}
	return nil
}

// stage copies the named form file into dir. It returns nil when the field
// was not sent and rejects anything that does not sniff as an image.
func (sf *stagedFiles) stage(r *http.Request, field, dir string) (*string, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, utils.NewAppError(utils.ErrInvalidInput, "Invalid "+field+" upload", err)
	}
	defer file.Close()

	sniff := make([]byte, 512)
	n, _ := io.ReadFull(file, sniff)
	if !strings.HasPrefix(http.DetectContentType(sniff[:n]), "image/") {
		return nil, utils.NewValidationError(field + " must be an image")
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, utils.NewAppError(utils.ErrInternal, "failed to rewind upload", err)
	}

	ext := strings.ToLower(filepath.Ext(filepath.Base(header.Filename)))
	if len(ext) > 8 {
		ext = ""
	}
	dst, err := os.CreateTemp(dir, "upload-*"+ext)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrInternal, "failed to stage upload", err)
	}
	sf.paths = append(sf.paths, dst.Name())

	_, copyErr := io.Copy(dst, file)
	closeErr := dst.Close()
	if copyErr != nil || closeErr != nil {
		return nil, utils.NewAppError(utils.ErrInternal, "failed to stage upload", errors.Join(copyErr, closeErr))
	}

	path := dst.Name()
	return &path, nil
}
