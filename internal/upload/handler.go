package upload

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
)

const formField = "file"

type Handler struct {
	store *Store
}

func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

// Upload accepts one multipart file under the "file" field. The body size
// ceiling is enforced by the router before this handler runs; an oversized
// body surfaces here as *http.MaxBytesError while parsing.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(h.store.MaxBytes()); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, ErrTooLarge)
			return
		}
		writeError(w, http.StatusBadRequest, ErrNoFile)
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile(formField)
	if err != nil {
		// A part sent with filename="" is parsed as a plain value, not a file.
		if _, asValue := r.MultipartForm.Value[formField]; asValue {
			writeError(w, http.StatusBadRequest, ErrEmptyFilename)
			return
		}
		writeError(w, http.StatusBadRequest, ErrNoFile)
		return
	}
	defer file.Close()

	stored, err := h.store.Save(header.Filename, header.Header.Get("Content-Type"), file)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, stored)
	case errors.Is(err, ErrTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, err)
	case errors.Is(err, ErrNoFile), errors.Is(err, ErrEmptyFilename), errors.Is(err, ErrTypeNotAllowed):
		writeError(w, http.StatusBadRequest, err)
	default:
		slog.Error("store upload failed", "file", header.Filename, "err", err)
		writeError(w, http.StatusInternalServerError, err)
	}
}

// Files serves stored uploads read-only. Mount it with the route prefix
// stripped. Directory paths answer 404 so uploads cannot be listed.
func (h *Handler) Files() http.Handler {
	files := http.FileServer(http.Dir(h.store.Root()))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		files.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("write json response failed", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": Message(err)})
}
