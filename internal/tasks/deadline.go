package tasks

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Accepted deadline layouts, 24-hour clock.
const (
	DateTimeLayout = "2006-01-02 15:04"
	DateLayout     = "2006-01-02"
)

var ErrInvalidDeadline = errors.New("invalid deadline")

// Deadline is a persisted deadline string, either "YYYY-MM-DD" or
// "YYYY-MM-DD HH:MM". The zero value means no deadline and encodes as JSON null.
type Deadline string

func (d Deadline) IsZero() bool {
	return strings.TrimSpace(string(d)) == ""
}

func (d Deadline) String() string {
	return string(d)
}

func (d Deadline) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(string(d))
}

func (d *Deadline) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("deadline: %w", err)
	}
	*d = Deadline(strings.TrimSpace(s))
	return nil
}

// Parse returns the deadline as a wall-clock time in loc. dateOnly reports
// whether the stored value carried no time of day.
func (d Deadline) Parse(loc *time.Location) (t time.Time, dateOnly bool, err error) {
	return ParseDeadline(string(d), loc)
}

// At is the instant the deadline falls due. Date-only deadlines are due at
// 23:59 of that date.
func (d Deadline) At(loc *time.Location) (time.Time, error) {
	t, dateOnly, err := d.Parse(loc)
	if err != nil {
		return time.Time{}, err
	}
	if dateOnly {
		t = t.Add(23*time.Hour + 59*time.Minute)
	}
	return t, nil
}

// ParseDeadline accepts "YYYY-MM-DD HH:MM" first and falls back to
// "YYYY-MM-DD".
func ParseDeadline(s string, loc *time.Location) (time.Time, bool, error) {
	if loc == nil {
		loc = time.Local
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false, fmt.Errorf("%w: empty", ErrInvalidDeadline)
	}
	if t, err := time.ParseInLocation(DateTimeLayout, s, loc); err == nil {
		return t, false, nil
	}
	t, err := time.ParseInLocation(DateLayout, s, loc)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("%w: %q", ErrInvalidDeadline, s)
	}
	return t, true, nil
}

// FormatDeadline renders t in the date+time layout used for stored deadlines.
func FormatDeadline(t time.Time) Deadline {
	return Deadline(t.Format(DateTimeLayout))
}

// NormalizeDeadline parses s and renders it back in the stored layout, so
// "2025-03-10 9:00" is kept as "2025-03-10 09:00".
func NormalizeDeadline(s string) (Deadline, error) {
	t, dateOnly, err := ParseDeadline(s, time.UTC)
	if err != nil {
		return "", err
	}
	if dateOnly {
		return Deadline(t.Format(DateLayout)), nil
	}
	return FormatDeadline(t), nil
}
