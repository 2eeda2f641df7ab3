package reminder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ent0n29/deadliner/internal/observability"
	"github.com/ent0n29/deadliner/internal/protocol"
	"github.com/ent0n29/deadliner/internal/tasks"
)

const defaultInterval = 60 * time.Second

// Channel delivers reminder events to one destination.
type Channel interface {
	SendReminder(ctx context.Context, ev protocol.ReminderEvent) error
}

// Notifier resolves a configured channel id. ok is false when the channel is
// unknown or not currently reachable.
type Notifier interface {
	Channel(id string) (Channel, bool)
}

type Config struct {
	ChannelID string
	Interval  time.Duration
	Location  *time.Location
}

// Sent records one delivered reminder.
type Sent struct {
	TaskID    string
	Threshold string
}

type CycleResult struct {
	// Skipped is set when no channel was configured or resolvable.
	Skipped bool
	Scanned int
	Sent    []Sent
}

type Scheduler struct {
	cfg      Config
	store    tasks.Store
	notifier Notifier
	metrics  *observability.Metrics
	logger   *slog.Logger
	now      func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func New(cfg Config, store tasks.Store, notifier Notifier, metrics *observability.Metrics, logger *slog.Logger) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if logger == nil {
		logger = slog.Default()
	}
	cfg.ChannelID = strings.TrimSpace(cfg.ChannelID)
	return &Scheduler{
		cfg:      cfg,
		store:    store,
		notifier: notifier,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// Start launches the background loop. The first cycle runs immediately, then
// one per interval until ctx ends or Stop is called. Calling Start on a
// running scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.loop(runCtx, s.done)
	s.logger.Info("reminder scheduler started", "interval", s.cfg.Interval, "channel_id", s.cfg.ChannelID)
}

// Stop ends the loop and waits for an in-flight cycle to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.logger.Info("reminder scheduler stopped")
}

func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		s.runLogged(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) runLogged(ctx context.Context) {
	res, err := s.RunCycle(ctx, s.now().In(s.cfg.Location))
	switch {
	case err != nil:
		if errors.Is(err, context.Canceled) {
			return
		}
		s.metrics.ObserveCycle("error")
		s.logger.Error("reminder cycle failed", "err", err, "sent", len(res.Sent))
	case res.Skipped:
		s.metrics.ObserveCycle("skipped")
	default:
		s.metrics.ObserveCycle("ok")
		if len(res.Sent) > 0 {
			s.logger.Info("reminder cycle", "scanned", res.Scanned, "sent", len(res.Sent))
		}
	}
}

// RunCycle performs one scan at now. Reminders already delivered are
// persisted even when a later delivery in the same cycle fails.
func (s *Scheduler) RunCycle(ctx context.Context, now time.Time) (CycleResult, error) {
	var res CycleResult
	if s.cfg.ChannelID == "" || s.notifier == nil {
		res.Skipped = true
		return res, nil
	}
	ch, ok := s.notifier.Channel(s.cfg.ChannelID)
	if !ok {
		res.Skipped = true
		return res, nil
	}

	all, err := s.store.LoadAll(ctx)
	if err != nil {
		return res, fmt.Errorf("load tasks: %w", err)
	}
	res.Scanned = len(all)

	var sendErr error
	for i := range all {
		th, ok := Due(all[i], now)
		if !ok {
			continue
		}
		ev := BuildEvent(s.cfg.ChannelID, all[i], th)
		if err := ch.SendReminder(ctx, ev); err != nil {
			sendErr = fmt.Errorf("send reminder for task %s: %w", all[i].ID, err)
			break
		}
		all[i].Reminded = append(all[i].Reminded, th.Key)
		res.Sent = append(res.Sent, Sent{TaskID: all[i].ID, Threshold: th.Key})
		s.metrics.ObserveReminder(th.Key)
	}

	if len(res.Sent) > 0 {
		if err := s.store.SaveAll(ctx, all); err != nil {
			return res, errors.Join(sendErr, fmt.Errorf("save tasks: %w", err))
		}
	}
	return res, sendErr
}
