package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/ent0n29/deadliner/internal/chat"
	"github.com/ent0n29/deadliner/internal/protocol"
	"github.com/ent0n29/deadliner/internal/tasks"
)

type messageResponse struct {
	Replies []protocol.Reply `json:"replies"`
}

func (s *Server) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	if s.handler == nil {
		respondError(w, http.StatusNotImplemented, "unavailable", "message handler not configured")
		return
	}
	var req chat.Message
	if err := decodeJSON(r, &req); err != nil {
		if errors.Is(err, errEmptyBody) {
			respondError(w, http.StatusBadRequest, "invalid_request", "request body is required")
			return
		}
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.ActorID) == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "actor_id is required")
		return
	}

	replies, err := s.handler.Handle(r.Context(), req)
	if err != nil {
		s.logger.Error("handle message failed", "actor_id", req.ActorID, "err", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "message could not be processed")
		return
	}
	if replies == nil {
		replies = []protocol.Reply{}
	}
	respondJSON(w, http.StatusOK, messageResponse{Replies: replies})
}

type taskView struct {
	tasks.Task
	Urgency      tasks.Urgency `json:"urgency"`
	UrgencyLabel string        `json:"urgency_label"`
}

type listTasksResponse struct {
	Tasks          []taskView `json:"tasks"`
	NeedsAttention int        `json:"needs_attention"`
}

// handleListTasks returns every task, or only those whose name contains the
// keyword query parameter.
func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		respondError(w, http.StatusNotImplemented, "unavailable", "task store not configured")
		return
	}
	all, err := s.store.LoadAll(r.Context())
	if err != nil {
		s.logger.Error("list tasks failed", "err", err)
		respondError(w, http.StatusInternalServerError, "store_error", "tasks could not be loaded")
		return
	}
	if keyword := strings.TrimSpace(r.URL.Query().Get("keyword")); keyword != "" {
		all = tasks.Match(all, keyword).Matches
	}

	loc := s.cfg.Location
	if loc == nil {
		loc = time.Local
	}
	now := time.Now().In(loc)
	out := listTasksResponse{Tasks: make([]taskView, 0, len(all))}
	for _, t := range all {
		u := tasks.Classify(t.Deadline, now)
		if u.NeedsAttention() {
			out.NeedsAttention++
		}
		out.Tasks = append(out.Tasks, taskView{Task: t.Clone(), Urgency: u, UrgencyLabel: u.Label()})
	}
	respondJSON(w, http.StatusOK, out)
}
