package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/koustreak/tabula/internal/database"
	"github.com/koustreak/tabula/internal/errs"
)

// Response is the JSON envelope of every endpoint.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	ID      *int64 `json:"id,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// Client-facing messages, fixed per error kind.
const (
	msgInternal      = "internal server error"
	msgBadIdentifier = "invalid table or column name"
	msgBadRequest    = "invalid request data"
	msgNoTable       = "table not found"
	msgNoFile        = "file not found"
	msgDuplicate     = "duplicate entry"
	msgColumnExists  = "column already exists"
	msgBusy          = "server busy, try again later"
	msgBadJSON       = "request body must be a JSON object"
	msgTooLarge      = "request body too large"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck // best-effort write; the client may be gone
	json.NewEncoder(w).Encode(v)
}

func writeOK(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, Response{Success: true, Message: message, Data: data})
}

func writeFailure(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Response{Success: false, Message: message})
}

// statusOf maps an error kind to an HTTP status and a fixed message.
func statusOf(err error) (int, string) {
	switch errs.KindOf(err) {
	case errs.ErrKindIdentifier:
		return http.StatusBadRequest, msgBadIdentifier
	case errs.ErrKindValidation:
		return http.StatusBadRequest, msgBadRequest
	case errs.ErrKindNoSuchTable:
		return http.StatusNotFound, msgNoTable
	case errs.ErrKindNoSuchObject:
		return http.StatusNotFound, msgNoFile
	case errs.ErrKindDuplicateEntry:
		return http.StatusConflict, msgDuplicate
	case errs.ErrKindColumnAlreadyExists:
		return http.StatusConflict, msgColumnExists
	case errs.ErrKindPoolExhausted:
		return http.StatusServiceUnavailable, msgBusy
	}
	return http.StatusInternalServerError, msgInternal
}

// writeError logs err in full and sends the client only the fixed message.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, msg := statusOf(err)
	fields := map[string]any{
		"op":         op,
		"kind":       errs.KindOf(err).String(),
		"status":     status,
		"request_id": middleware.GetReqID(r.Context()),
	}
	if errs.IsClientError(err) {
		s.log.WarnWith("request rejected", err, fields)
	} else {
		s.log.ErrorWith("request failed", err, fields)
	}
	writeFailure(w, status, msg)
}

// writeBadBody answers a body that decodeObject rejected.
func writeBadBody(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeFailure(w, http.StatusRequestEntityTooLarge, msgTooLarge)
		return
	}
	writeFailure(w, http.StatusBadRequest, msgBadJSON)
}

// decodeObject reads a single JSON object from the body. Numbers become
// int64 when integral, float64 otherwise.
func decodeObject(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("trailing data after JSON object")
	}
	return nil
}

// mutation converts decoded JSON values into bindable scalars. Nested
// objects and arrays are left alone; the pool rejects them.
func mutation(m map[string]any) database.Mutation {
	out := make(database.Mutation, len(m))
	for k, v := range m {
		if n, ok := v.(json.Number); ok {
			if i, err := n.Int64(); err == nil {
				v = i
			} else if f, err := n.Float64(); err == nil {
				v = f
			}
		}
		out[k] = v
	}
	return out
}
