package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ent0n29/deadliner/internal/chat"
	"github.com/ent0n29/deadliner/internal/config"
	"github.com/ent0n29/deadliner/internal/conversation"
	"github.com/ent0n29/deadliner/internal/extract"
	"github.com/ent0n29/deadliner/internal/httpapi"
	"github.com/ent0n29/deadliner/internal/ingest"
	"github.com/ent0n29/deadliner/internal/observability"
	"github.com/ent0n29/deadliner/internal/reminder"
	"github.com/ent0n29/deadliner/internal/tasks"
)

type BuildResult struct {
	Config    config.Config
	API       *httpapi.Server
	Store     tasks.Store
	Sessions  *conversation.Sessions
	Handler   *chat.Handler
	Scheduler *reminder.Scheduler
	Metrics   *observability.Metrics

	// Cleanup should be called on shutdown to release the task store.
	Cleanup func() error
}

// OpenStore opens the task store selected by cfg.
func OpenStore(ctx context.Context, cfg config.Config) (tasks.Store, error) {
	store, err := tasks.NewStore(ctx, tasks.StoreConfig{
		Mode:        cfg.TaskStore,
		FilePath:    cfg.TaskFilePath,
		DatabaseURL: cfg.DatabaseURL,
		SQLitePath:  cfg.SQLitePath,
	})
	if err != nil {
		return nil, fmt.Errorf("task store init failed: %w", err)
	}
	return store, nil
}

// Build wires the service. The scheduler and session janitor are returned
// unstarted.
func Build(ctx context.Context, cfg config.Config, logger *slog.Logger) (*BuildResult, error) {
	if logger == nil {
		logger = slog.Default()
	}
	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if cfg.GroqAPIKey == "" {
		logger.Warn("GROQ_API_KEY is not set; free-text messages will not be turned into tasks")
	}
	extractor := extract.NewGroq(extract.GroqConfig{
		APIKey:  cfg.GroqAPIKey,
		URL:     cfg.GroqURL,
		Model:   cfg.GroqModel,
		Timeout: cfg.ExtractionTimeout,
	})
	pipeline := ingest.New(extractor, store, metrics, logger, ingest.Options{
		MinChars: cfg.IngestMinChars,
		Timeout:  cfg.ExtractionTimeout,
	})

	sessions := conversation.NewSessions(cfg.SessionIdleTimeout)
	sessions.SetExpireHook(func(e conversation.Expired) {
		if e.Delete != nil {
			metrics.ObserveConversation("delete", "expired")
		}
		if e.Edit != nil {
			metrics.ObserveConversation("edit", "expired")
		}
		metrics.SetActiveConversations(sessions.ActiveCount())
		logger.Info("conversation expired", "actor_id", e.ActorID)
	})

	handler := chat.NewHandler(chat.Config{Location: cfg.Location}, store, sessions, pipeline, metrics, logger)

	hub := httpapi.NewHub(metrics)
	api := httpapi.New(cfg, handler, store, hub, metrics, logger)

	scheduler := reminder.New(reminder.Config{
		ChannelID: cfg.ReminderChannelID,
		Interval:  cfg.ReminderInterval,
		Location:  cfg.Location,
	}, store, hub, metrics, logger)
	api.SetSchedulerProbe(scheduler.Running)

	return &BuildResult{
		Config:    cfg,
		API:       api,
		Store:     store,
		Sessions:  sessions,
		Handler:   handler,
		Scheduler: scheduler,
		Metrics:   metrics,
		Cleanup: func() error {
			scheduler.Stop()
			return store.Close()
		},
	}, nil
}
