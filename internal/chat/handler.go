// Package chat routes inbound chat messages to the pending conversation flow,
// a task command or announcement ingestion, and renders the replies.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ent0n29/deadliner/internal/conversation"
	"github.com/ent0n29/deadliner/internal/ingest"
	"github.com/ent0n29/deadliner/internal/observability"
	"github.com/ent0n29/deadliner/internal/protocol"
	"github.com/ent0n29/deadliner/internal/tasks"
)

var listKeywords = []string{"!jadwal", "!schedule", "!list", "!tugas"}

const (
	editPrefix   = "!edit "
	snoozePrefix = "!snooze "
)

var donePrefixes = []string{"done ", "selesai "}

type Message struct {
	ActorID   string `json:"actor_id"`
	ChannelID string `json:"channel_id,omitempty"`
	Text      string `json:"text"`
}

type Config struct {
	Location *time.Location
}

type Handler struct {
	store    tasks.Store
	sessions *conversation.Sessions
	pipeline *ingest.Pipeline
	metrics  *observability.Metrics
	logger   *slog.Logger
	loc      *time.Location
	now      func() time.Time
}

func NewHandler(cfg Config, store tasks.Store, sessions *conversation.Sessions, pipeline *ingest.Pipeline, metrics *observability.Metrics, logger *slog.Logger) *Handler {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if sessions == nil {
		sessions = conversation.NewSessions(0)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		store:    store,
		sessions: sessions,
		pipeline: pipeline,
		metrics:  metrics,
		logger:   logger,
		loc:      cfg.Location,
		now:      time.Now,
	}
}

// Handle processes one message and returns the replies to send back, in
// order. A nil slice with a nil error means the message was not addressed to
// the bot. Errors are reserved for store failures.
func (h *Handler) Handle(ctx context.Context, msg Message) ([]protocol.Reply, error) {
	defer func() { h.metrics.SetActiveConversations(h.sessions.ActiveCount()) }()

	text := strings.TrimSpace(msg.Text)
	lower := strings.ToLower(text)
	actor := msg.ActorID
	now := h.now().In(h.loc)

	if flow, ok := h.sessions.Delete(actor); ok {
		h.metrics.ObserveMessage("delete_flow")
		next, effects := flow.Next(text)
		h.sessions.PutDelete(actor, next)
		h.metrics.ObserveConversation("delete", flowEvent(next == nil, next != nil && next.State != flow.State, effects))
		return h.apply(ctx, actor, effects)
	}
	if flow, ok := h.sessions.Edit(actor); ok {
		h.metrics.ObserveMessage("edit_flow")
		next, effects := flow.Next(text)
		h.sessions.PutEdit(actor, next)
		h.metrics.ObserveConversation("edit", flowEvent(next == nil, next != nil && next.State != flow.State, effects))
		return h.apply(ctx, actor, effects)
	}

	switch {
	case containsAny(lower, listKeywords):
		h.metrics.ObserveMessage("list")
		all, err := h.store.LoadAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("load tasks: %w", err)
		}
		return []protocol.Reply{listView(all, now)}, nil

	case strings.HasPrefix(lower, editPrefix):
		h.metrics.ObserveMessage("edit")
		task, replies, err := h.resolve(ctx, strings.TrimSpace(text[len(editPrefix):]))
		if err != nil || replies != nil {
			return replies, err
		}
		flow, effects := conversation.StartEdit(task)
		h.sessions.PutEdit(actor, flow)
		h.metrics.ObserveConversation("edit", "start")
		return h.apply(ctx, actor, effects)

	case strings.HasPrefix(lower, snoozePrefix):
		h.metrics.ObserveMessage("snooze")
		return h.snooze(ctx, strings.TrimSpace(text[len(snoozePrefix):]), now)

	case hasAnyPrefix(lower, donePrefixes):
		h.metrics.ObserveMessage("done")
		keyword := ""
		if _, rest, ok := strings.Cut(text, " "); ok {
			keyword = strings.TrimSpace(rest)
		}
		task, replies, err := h.resolve(ctx, keyword)
		if err != nil || replies != nil {
			return replies, err
		}
		flow, effects := conversation.StartDelete(task)
		h.sessions.PutDelete(actor, flow)
		h.metrics.ObserveConversation("delete", "start")
		return h.apply(ctx, actor, effects)

	case h.pipeline != nil && h.pipeline.Eligible(text):
		h.metrics.ObserveMessage("ingest")
		return h.ingest(ctx, text, now)
	}

	h.metrics.ObserveMessage("ignored")
	return nil, nil
}

// resolve applies the keyword disambiguation policy. Exactly one match
// returns the task with nil replies; otherwise the replies explain why.
func (h *Handler) resolve(ctx context.Context, keyword string) (tasks.Task, []protocol.Reply, error) {
	all, err := h.store.LoadAll(ctx)
	if err != nil {
		return tasks.Task{}, nil, fmt.Errorf("load tasks: %w", err)
	}
	res := tasks.Match(all, keyword)
	if task, ok := res.Single(); ok {
		return task, nil, nil
	}
	if res.NotFound() {
		return tasks.Task{}, []protocol.Reply{notFoundView(keyword)}, nil
	}
	return tasks.Task{}, []protocol.Reply{ambiguousView(res.Matches)}, nil
}

func (h *Handler) snooze(ctx context.Context, args string, now time.Time) ([]protocol.Reply, error) {
	idx := strings.LastIndex(args, " ")
	if idx < 0 {
		return []protocol.Reply{protocol.TextReply(msgSnoozeUsage)}, nil
	}
	keyword, durationText := strings.TrimSpace(args[:idx]), args[idx+1:]
	if _, err := conversation.ParseDuration(durationText); err != nil {
		return []protocol.Reply{protocol.TextReply(msgBadDuration)}, nil
	}

	task, replies, err := h.resolve(ctx, keyword)
	if err != nil || replies != nil {
		return replies, err
	}
	patch, next, err := conversation.Snooze(task, durationText, now, h.loc)
	if err != nil {
		return []protocol.Reply{protocol.TextReply(msgBadDuration)}, nil
	}
	ok, err := h.store.UpdatePartial(ctx, task.ID, patch)
	if err != nil {
		return nil, fmt.Errorf("snooze task %s: %w", task.ID, err)
	}
	if !ok {
		return []protocol.Reply{protocol.TextReply(msgNotFound)}, nil
	}
	h.logger.Info("task snoozed", "task_id", task.ID, "from", task.Deadline.String(), "to", next.String())
	return []protocol.Reply{snoozedView(task, next)}, nil
}

func (h *Handler) ingest(ctx context.Context, text string, now time.Time) ([]protocol.Reply, error) {
	res, err := h.pipeline.Ingest(ctx, text, now)
	if err != nil {
		var collabErr *ingest.CollaboratorError
		if errors.As(err, &collabErr) {
			return []protocol.Reply{protocol.TextReply(msgExtractFailed)}, nil
		}
		return nil, err
	}
	if res.Empty() {
		return []protocol.Reply{protocol.TextReply(msgNothingFound)}, nil
	}
	return []protocol.Reply{ingestedView(res)}, nil
}

// apply runs flow effects against the store and collects the replies.
func (h *Handler) apply(ctx context.Context, actor string, effects []conversation.Effect) ([]protocol.Reply, error) {
	var replies []protocol.Reply
	for _, eff := range effects {
		switch e := eff.(type) {
		case conversation.Reply:
			replies = append(replies, e.Message)
		case conversation.DeleteTask:
			ok, err := h.store.DeleteByID(ctx, e.ID)
			if err != nil {
				return replies, fmt.Errorf("delete task %s: %w", e.ID, err)
			}
			if !ok {
				h.notFound(actor, e.ID)
				replies = append(replies, protocol.TextReply(msgNotFound))
				continue
			}
			h.logger.Info("task deleted", "task_id", e.ID, "actor_id", actor)
			replies = append(replies, conversation.DeletedReply(e.Name))
		case conversation.PatchTask:
			ok, err := h.store.UpdatePartial(ctx, e.ID, e.Patch)
			if err != nil {
				return replies, fmt.Errorf("update task %s: %w", e.ID, err)
			}
			if !ok {
				h.notFound(actor, e.ID)
				replies = append(replies, protocol.TextReply(msgNotFound))
				continue
			}
			h.logger.Info("task updated", "task_id", e.ID, "field", string(e.Field), "actor_id", actor)
			replies = append(replies, conversation.UpdatedReply(e.Field, e.Name))
		}
	}
	return replies, nil
}

// notFound drops whatever flow still points at a vanished task.
func (h *Handler) notFound(actor, taskID string) {
	h.sessions.ClearDelete(actor)
	h.sessions.ClearEdit(actor)
	h.logger.Warn("task vanished during conversation", "task_id", taskID, "actor_id", actor, "err", tasks.ErrTaskNotFound)
}

func flowEvent(ended, advanced bool, effects []conversation.Effect) string {
	for _, e := range effects {
		switch e.(type) {
		case conversation.DeleteTask, conversation.PatchTask:
			return "complete"
		}
	}
	switch {
	case ended:
		return "cancel"
	case advanced:
		return "advance"
	default:
		return "reprompt"
	}
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
