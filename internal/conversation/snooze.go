package conversation

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ent0n29/deadliner/internal/tasks"
)

var ErrInvalidDuration = errors.New("invalid snooze duration")

// ParseDuration reads "30m", "2h" or "1d". The magnitude must be a positive
// integer.
func ParseDuration(text string) (time.Duration, error) {
	s := strings.ToLower(strings.TrimSpace(text))
	if len(s) < 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, text)
	}
	var unit time.Duration
	switch s[len(s)-1] {
	case 'm':
		unit = time.Minute
	case 'h':
		unit = time.Hour
	case 'd':
		unit = 24 * time.Hour
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, text)
	}
	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, text)
	}
	return time.Duration(n) * unit, nil
}

// Snooze pushes the task's deadline back by durationText. The base is the
// current deadline read in loc (a date-only deadline counts from midnight),
// or now when the task has no usable deadline. The patch also clears
// reminded so every threshold can fire again.
func Snooze(task tasks.Task, durationText string, now time.Time, loc *time.Location) (tasks.Patch, tasks.Deadline, error) {
	d, err := ParseDuration(durationText)
	if err != nil {
		return tasks.Patch{}, "", err
	}
	if loc == nil {
		loc = now.Location()
	}
	base, _, err := task.Deadline.Parse(loc)
	if err != nil {
		base = now.In(loc)
	}
	next := tasks.FormatDeadline(base.Add(d))
	reminded := []string{}
	return tasks.Patch{Deadline: &next, Reminded: &reminded}, next, nil
}
