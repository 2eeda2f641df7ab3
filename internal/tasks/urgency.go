package tasks

import (
	"fmt"
	"time"
)

// Urgency is a discrete classification of a task's time to deadline. Higher
// values are more urgent.
type Urgency int

const (
	UrgencyNone Urgency = iota
	UrgencyRelaxed
	UrgencyNormal
	UrgencyUrgent
	UrgencyCritical
	UrgencyDueToday
	UrgencyOverdue
)

var urgencyNames = map[Urgency]string{
	UrgencyNone:     "NONE",
	UrgencyRelaxed:  "RELAXED",
	UrgencyNormal:   "NORMAL",
	UrgencyUrgent:   "URGENT",
	UrgencyCritical: "CRITICAL",
	UrgencyDueToday: "DUE_TODAY",
	UrgencyOverdue:  "OVERDUE",
}

var urgencyLabels = map[Urgency]string{
	UrgencyNone:     "⚪",
	UrgencyRelaxed:  "🟢 [SANTAI]",
	UrgencyNormal:   "🔵 [NORMAL]",
	UrgencyUrgent:   "🟡 [MENDESAK]",
	UrgencyCritical: "🟠 [SANGAT MENDESAK]",
	UrgencyDueToday: "🔴 [HARI INI - URGENT!]",
	UrgencyOverdue:  "🔴 [LEWAT DEADLINE]",
}

func (u Urgency) String() string {
	if s, ok := urgencyNames[u]; ok {
		return s
	}
	return urgencyNames[UrgencyNone]
}

// Label is the display label shown next to a task.
func (u Urgency) Label() string {
	if s, ok := urgencyLabels[u]; ok {
		return s
	}
	return urgencyLabels[UrgencyNone]
}

// NeedsAttention reports whether the tier counts toward the list view's
// "needs attention" total.
func (u Urgency) NeedsAttention() bool {
	switch u {
	case UrgencyUrgent, UrgencyCritical, UrgencyDueToday, UrgencyOverdue:
		return true
	default:
		return false
	}
}

func (u Urgency) MarshalText() ([]byte, error) {
	return []byte(u.String()), nil
}

func (u *Urgency) UnmarshalText(text []byte) error {
	for k, name := range urgencyNames {
		if name == string(text) {
			*u = k
			return nil
		}
	}
	return fmt.Errorf("unknown urgency %q", text)
}

// Classify maps a deadline to its urgency tier relative to now. Only the
// calendar dates are compared; malformed deadlines classify as UrgencyNone.
func Classify(d Deadline, now time.Time) Urgency {
	if d.IsZero() {
		return UrgencyNone
	}
	t, _, err := d.Parse(now.Location())
	if err != nil {
		return UrgencyNone
	}
	days := daysBetween(now, t)
	switch {
	case days < 0:
		return UrgencyOverdue
	case days == 0:
		return UrgencyDueToday
	case days <= 2:
		return UrgencyCritical
	case days <= 7:
		return UrgencyUrgent
	case days <= 14:
		return UrgencyNormal
	default:
		return UrgencyRelaxed
	}
}

// daysBetween counts calendar days from a to b, ignoring time of day and DST.
func daysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}
