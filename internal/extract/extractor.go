// Package extract turns free-text announcements into candidate tasks through
// an external language model.
//
// Every Extractor is expected to collapse one announcement or event into a
// single task, splitting only when deadlines differ or the contexts are
// clearly unrelated. Nothing downstream enforces this; it is carried by the
// prompt, and a replacement collaborator must honour it.
package extract

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ent0n29/deadliner/internal/tasks"
)

var (
	ErrMissingCredential = errors.New("extraction credential is not configured")
	ErrMalformedResponse = errors.New("malformed extraction response")
)

// StatusError is returned when the collaborator answers with a non-2xx status.
type StatusError struct {
	Status int
	Detail string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("extraction status %d: %s", e.Status, e.Detail)
}

// Request carries the text plus the reference dates used to resolve relative
// phrases such as "besok".
type Request struct {
	Text     string
	Today    string
	Tomorrow string
}

// NewRequest fills Today and Tomorrow from now's calendar date.
func NewRequest(text string, now time.Time) Request {
	y, m, d := now.Date()
	tomorrow := time.Date(y, m, d+1, 0, 0, 0, 0, now.Location())
	return Request{
		Text:     text,
		Today:    now.Format(tasks.DateLayout),
		Tomorrow: tomorrow.Format(tasks.DateLayout),
	}
}

type Extractor interface {
	Extract(ctx context.Context, req Request) ([]tasks.Candidate, error)
}

// Func adapts a plain function to Extractor.
type Func func(ctx context.Context, req Request) ([]tasks.Candidate, error)

func (f Func) Extract(ctx context.Context, req Request) ([]tasks.Candidate, error) {
	return f(ctx, req)
}

// Code classifies an extraction error for metrics and logs.
func Code(err error) string {
	var statusErr *StatusError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingCredential):
		return "missing_credential"
	case errors.As(err, &statusErr):
		return "http_status"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed_response"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "transport"
	}
}
