package httpapi

import (
	"net/http"
	"path/filepath"
	"regexp"

	"citymap-backend-go/internal/services"

	"github.com/go-chi/chi/v5"
)

var storageKeyPattern = regexp.MustCompile(`^[0-9a-f-]{36}\.(jpg|png|webp|gif)$`)

// UploadPhoto takes a multipart "file" part and charges its size against
// the uploader's monthly photo budget.
func (s *Server) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	if s.Config.PhotoMaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.Config.PhotoMaxUploadBytes+1<<20)
	}
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		WriteError(w, http.StatusBadRequest, "Upload is empty")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "Upload is empty")
		return
	}
	defer file.Close()
	asset, err := s.Photos.Save(r.Context(), CurrentActor(r), header.Header.Get("Content-Type"), file)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, asset)
}

func (s *Server) PhotoContent(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "storageKey")
	if !storageKeyPattern.MatchString(key) {
		WriteError(w, http.StatusNotFound, "Not found")
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=86400")
	http.ServeFile(w, r, filepath.Join(s.Config.MediaStoragePath, services.BucketPhotos, key))
}
