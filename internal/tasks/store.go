package tasks

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrTaskNotFound = errors.New("task not found")

// Store persists the task collection. File and relational backends satisfy
// the same contract; see storeContract in store_contract_test.go.
type Store interface {
	// LoadAll returns every task. Relational backends order by due instant
	// with tasks lacking one last; the file backend keeps insertion order.
	LoadAll(ctx context.Context) ([]Task, error)
	// SaveAll writes back the given tasks. The file backend replaces the whole
	// collection; relational backends write only each task's reminded keys.
	SaveAll(ctx context.Context, tasks []Task) error
	// AddMany persists candidates as new tasks and returns them in input order.
	AddMany(ctx context.Context, candidates []Candidate) ([]Task, error)
	DeleteByID(ctx context.Context, id string) (bool, error)
	UpdatePartial(ctx context.Context, id string, patch Patch) (bool, error)
	Mode() string
	Close() error
}

// newTask turns a candidate into a fresh task record.
func newTask(c Candidate, now time.Time) Task {
	c = normalizeCandidate(c)
	return Task{
		ID:          NewID(),
		Name:        c.Name,
		Description: c.Description,
		Deadline:    c.Deadline,
		Links:       c.Links,
		Reminded:    []string{},
		CreatedAt:   now.Format(DateTimeLayout),
	}
}

// NewID returns a short opaque task id.
func NewID() string {
	return uuid.NewString()[:8]
}
