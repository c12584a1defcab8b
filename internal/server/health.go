package server

import (
	"net/http"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.log.WarnWith("health check failed", err, map[string]any{"dependency": "database"})
		writeFailure(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	if s.files != nil {
		if err := s.files.Ping(r.Context()); err != nil {
			s.log.WarnWith("health check failed", err, map[string]any{"dependency": "downloads"})
			writeFailure(w, http.StatusServiceUnavailable, "download store unavailable")
			return
		}
	}
	writeOK(w, http.StatusOK, "ok", nil)
}
