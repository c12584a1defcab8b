package server

import (
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/koustreak/tabula/internal/database"
)

// maxMessageLength bounds the trimmed content of a guestbook message.
const maxMessageLength = 1000

type messageRequest struct {
	Name    string `json:"name"`
	Contact string `json:"contact"`
	Content string `json:"content"`
}

// handleMessage stores a guestbook entry in the messages table.
func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := decodeObject(r, &req); err != nil {
		writeBadBody(w, err)
		return
	}

	name := strings.TrimSpace(req.Name)
	content := strings.TrimSpace(req.Content)
	if name == "" {
		writeFailure(w, http.StatusBadRequest, "please enter a valid name")
		return
	}
	if n := utf8.RuneCountInString(content); n < 1 || n > maxMessageLength {
		writeFailure(w, http.StatusBadRequest, "message content must be 1 to 1000 characters")
		return
	}

	res, err := s.store.InsertData(r.Context(), s.cfg.MessagesTable, database.Mutation{
		"name":       name,
		"contact":    strings.TrimSpace(req.Contact),
		"content":    content,
		"created_at": time.Now().UTC(),
	})
	if err != nil {
		s.writeError(w, r, "save message", err)
		return
	}

	resp := Response{Success: true, Message: "message saved"}
	if res.Generated {
		resp.ID = &res.ID
	}
	writeJSON(w, http.StatusOK, resp)
}
