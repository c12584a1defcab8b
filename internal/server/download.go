package server

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// handleDownload streams an object from the download store.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	if s.files == nil {
		writeFailure(w, http.StatusNotFound, msgNoFile)
		return
	}

	obj, err := s.files.Get(r.Context(), chi.URLParam(r, "*"))
	if err != nil {
		s.writeError(w, r, "download", err)
		return
	}
	defer obj.Close()

	info := obj.Info()
	h := w.Header()
	if info.ContentType != "" {
		h.Set("Content-Type", info.ContentType)
	} else {
		h.Set("Content-Type", "application/octet-stream")
	}
	if info.Size >= 0 {
		h.Set("Content-Length", strconv.FormatInt(info.Size, 10))
	}
	if info.ETag != "" {
		h.Set("ETag", `"`+info.ETag+`"`)
	}
	if !info.LastModified.IsZero() {
		h.Set("Last-Modified", info.LastModified.UTC().Format(http.TimeFormat))
	}
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, obj); err != nil {
		// Headers are gone; all we can do is log.
		s.log.WarnWith("download interrupted", err, map[string]any{"key": info.Key})
	}
}
