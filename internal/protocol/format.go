package protocol

import (
	"fmt"
	"strings"
	"time"

	"github.com/ent0n29/deadliner/internal/tasks"
)

var (
	dayNames   = []string{"Minggu", "Senin", "Selasa", "Rabu", "Kamis", "Jumat", "Sabtu"}
	monthNames = []string{"Jan", "Feb", "Mar", "Apr", "Mei", "Jun", "Jul", "Agu", "Sep", "Okt", "Nov", "Des"}
)

// HumanDeadline renders a stored deadline as e.g. "Senin, 23 Feb 2026 23:59".
// Missing deadlines render as an em dash and unparseable ones verbatim.
func HumanDeadline(d tasks.Deadline) string {
	if d.IsZero() {
		return "—"
	}
	t, dateOnly, err := d.Parse(time.UTC)
	if err != nil {
		return d.String()
	}
	out := fmt.Sprintf("%s, %d %s %d", dayNames[t.Weekday()], t.Day(), monthNames[t.Month()-1], t.Year())
	if !dateOnly {
		out += " " + t.Format("15:04")
	}
	return out
}

// LinkParts renders links as markdown anchors in their stored order.
func LinkParts(links []tasks.Link) []string {
	parts := make([]string, 0, len(links))
	for _, l := range links {
		label := l.Label
		if strings.TrimSpace(label) == "" {
			label = "Link"
		}
		parts = append(parts, fmt.Sprintf("[%s](%s)", label, l.URL))
	}
	return parts
}

// Truncate shortens s to max runes, ending with "..." when cut.
func Truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}
