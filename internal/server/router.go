package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeFailure(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeFailure(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/message", s.handleMessage)

		r.Get("/tables", s.handleListTables)
		r.Route("/tables/{table}", func(r chi.Router) {
			r.Get("/columns", s.handleListColumns)
			r.Post("/columns", s.handleAddColumn)

			r.Get("/rows", s.handleQueryRows)
			r.Post("/rows", s.handleInsertRow)
			r.Patch("/rows", s.handleUpdateRows)
		})
	})

	r.Get("/download/*", s.handleDownload)

	return r
}
