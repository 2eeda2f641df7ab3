package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/ent0n29/deadliner/internal/chat"
	"github.com/ent0n29/deadliner/internal/config"
	"github.com/ent0n29/deadliner/internal/observability"
	"github.com/ent0n29/deadliner/internal/protocol"
	"github.com/ent0n29/deadliner/internal/tasks"
)

// MessageHandler answers one inbound chat message.
type MessageHandler interface {
	Handle(ctx context.Context, msg chat.Message) ([]protocol.Reply, error)
}

type Server struct {
	cfg      config.Config
	handler  MessageHandler
	store    tasks.Store
	hub      *Hub
	metrics  *observability.Metrics
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu               sync.RWMutex
	schedulerRunning func() bool
}

func New(cfg config.Config, handler MessageHandler, store tasks.Store, hub *Hub, metrics *observability.Metrics, logger *slog.Logger) *Server {
	if hub == nil {
		hub = NewHub(metrics)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:     cfg,
		handler: handler,
		store:   store,
		hub:     hub,
		metrics: metrics,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Browsers may only connect from the same origin unless explicitly opened up.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

// Hub returns the websocket channel registry that reminders are delivered
// through.
func (s *Server) Hub() *Hub { return s.hub }

// SetSchedulerProbe reports the reminder scheduler state on /readyz.
func (s *Server) SetSchedulerProbe(running func() bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schedulerRunning = running
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/v1/messages", s.handlePostMessage)
	r.Get("/v1/tasks", s.handleListTasks)
	r.Get("/v1/channels/{id}/ws", s.handleChannelWS)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"task_store_mode": s.taskStoreMode(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	probe := s.schedulerRunning
	s.mu.RUnlock()

	running := probe != nil && probe()
	channelID := strings.TrimSpace(s.cfg.ReminderChannelID)
	respondJSON(w, http.StatusOK, map[string]any{
		"status":              "ready",
		"task_store_mode":     s.taskStoreMode(),
		"scheduler_running":   running,
		"reminder_channel_id": channelID,
		"reminder_listeners":  s.hub.Subscribers(channelID),
	})
}

func (s *Server) taskStoreMode() string {
	if s.store == nil {
		return "disabled"
	}
	return s.store.Mode()
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
