package conversation

import (
	"context"
	"sync"
	"time"
)

// Expired describes a session dropped by the idle janitor.
type Expired struct {
	ActorID string
	Delete  *DeleteFlow
	Edit    *EditFlow
}

type session struct {
	delete         *DeleteFlow
	edit           *EditFlow
	lastActivityAt time.Time
}

func (s *session) empty() bool {
	return s.delete == nil && s.edit == nil
}

// Sessions keeps each actor's pending flows, at most one per flow family.
type Sessions struct {
	mu          sync.Mutex
	byActor     map[string]*session
	idleTimeout time.Duration
	onExpire    func(Expired)
	now         func() time.Time
}

// NewSessions returns an empty store. A zero idleTimeout keeps sessions
// until they complete or are cancelled.
func NewSessions(idleTimeout time.Duration) *Sessions {
	if idleTimeout < 0 {
		idleTimeout = 0
	}
	return &Sessions{
		byActor:     make(map[string]*session),
		idleTimeout: idleTimeout,
		now:         time.Now,
	}
}

func (s *Sessions) SetExpireHook(hook func(Expired)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onExpire = hook
}

func (s *Sessions) Delete(actorID string) (DeleteFlow, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.liveLocked(actorID)
	if sess == nil || sess.delete == nil {
		return DeleteFlow{}, false
	}
	return *sess.delete, true
}

func (s *Sessions) Edit(actorID string) (EditFlow, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.liveLocked(actorID)
	if sess == nil || sess.edit == nil {
		return EditFlow{}, false
	}
	return *sess.edit, true
}

// PutDelete stores f, or clears the delete flow when f is nil.
func (s *Sessions) PutDelete(actorID string, f *DeleteFlow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.touchLocked(actorID)
	if f == nil {
		sess.delete = nil
	} else {
		c := *f
		sess.delete = &c
	}
	s.pruneLocked(actorID, sess)
}

// PutEdit stores f, or clears the edit flow when f is nil.
func (s *Sessions) PutEdit(actorID string, f *EditFlow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.touchLocked(actorID)
	if f == nil {
		sess.edit = nil
	} else {
		c := *f
		sess.edit = &c
	}
	s.pruneLocked(actorID, sess)
}

func (s *Sessions) ClearDelete(actorID string) { s.PutDelete(actorID, nil) }

func (s *Sessions) ClearEdit(actorID string) { s.PutEdit(actorID, nil) }

// Pending reports whether the actor has any flow in progress.
func (s *Sessions) Pending(actorID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.liveLocked(actorID) != nil
}

func (s *Sessions) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byActor)
}

func (s *Sessions) StartJanitor(ctx context.Context, interval time.Duration) {
	if s.idleTimeout == 0 {
		return
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.expireIdle()
			}
		}
	}()
}

func (s *Sessions) expireIdle() {
	now := s.now()
	var expired []Expired

	s.mu.Lock()
	for actorID, sess := range s.byActor {
		if !s.idleLocked(sess, now) {
			continue
		}
		expired = append(expired, Expired{ActorID: actorID, Delete: sess.delete, Edit: sess.edit})
		delete(s.byActor, actorID)
	}
	hook := s.onExpire
	s.mu.Unlock()

	if hook != nil {
		for _, e := range expired {
			hook(e)
		}
	}
}

func (s *Sessions) idleLocked(sess *session, now time.Time) bool {
	return s.idleTimeout > 0 && now.Sub(sess.lastActivityAt) >= s.idleTimeout
}

// liveLocked returns the actor's session, dropping it first if it has been
// idle past the timeout and the janitor has not caught it yet.
func (s *Sessions) liveLocked(actorID string) *session {
	sess, ok := s.byActor[actorID]
	if !ok {
		return nil
	}
	if s.idleLocked(sess, s.now()) {
		delete(s.byActor, actorID)
		return nil
	}
	return sess
}

func (s *Sessions) touchLocked(actorID string) *session {
	sess := s.liveLocked(actorID)
	if sess == nil {
		sess = &session{}
		s.byActor[actorID] = sess
	}
	sess.lastActivityAt = s.now()
	return sess
}

func (s *Sessions) pruneLocked(actorID string, sess *session) {
	if sess.empty() {
		delete(s.byActor, actorID)
	}
}
