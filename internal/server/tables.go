package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleListTables(w http.ResponseWriter, r *http.Request) {
	tables, err := s.store.ListTables(r.Context())
	if err != nil {
		s.writeError(w, r, "list tables", err)
		return
	}
	writeOK(w, http.StatusOK, "", tables)
}

func (s *Server) handleListColumns(w http.ResponseWriter, r *http.Request) {
	cols, err := s.store.ListColumns(r.Context(), chi.URLParam(r, "table"))
	if err != nil {
		s.writeError(w, r, "list columns", err)
		return
	}
	writeOK(w, http.StatusOK, "", cols)
}

type addColumnRequest struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

func (s *Server) handleAddColumn(w http.ResponseWriter, r *http.Request) {
	var req addColumnRequest
	if err := decodeObject(r, &req); err != nil {
		writeBadBody(w, err)
		return
	}

	if err := s.store.AddColumn(r.Context(), chi.URLParam(r, "table"), req.Name, req.Type); err != nil {
		s.writeError(w, r, "add column", err)
		return
	}
	writeOK(w, http.StatusCreated, "column added", nil)
}

func (s *Server) handleQueryRows(w http.ResponseWriter, r *http.Request) {
	rows, err := s.store.QueryTable(r.Context(), chi.URLParam(r, "table"))
	if err != nil {
		s.writeError(w, r, "query table", err)
		return
	}
	writeOK(w, http.StatusOK, "", rows)
}

func (s *Server) handleInsertRow(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := decodeObject(r, &body); err != nil {
		writeBadBody(w, err)
		return
	}
	if body == nil {
		writeFailure(w, http.StatusBadRequest, msgBadJSON)
		return
	}

	res, err := s.store.InsertData(r.Context(), chi.URLParam(r, "table"), mutation(body))
	if err != nil {
		s.writeError(w, r, "insert data", err)
		return
	}

	resp := Response{Success: true, Message: "row inserted"}
	if res.Generated {
		resp.ID = &res.ID
	}
	writeJSON(w, http.StatusCreated, resp)
}

type updateRequest struct {
	Set   map[string]any `json:"set"`
	Where map[string]any `json:"where"`
}

func (s *Server) handleUpdateRows(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := decodeObject(r, &req); err != nil {
		writeBadBody(w, err)
		return
	}

	n, err := s.store.UpdateData(r.Context(), chi.URLParam(r, "table"), mutation(req.Set), mutation(req.Where))
	if err != nil {
		s.writeError(w, r, "update data", err)
		return
	}
	writeOK(w, http.StatusOK, "rows updated", map[string]int64{"affected": n})
}
