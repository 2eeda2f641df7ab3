package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/ent0n29/deadliner/internal/protocol"
	"github.com/ent0n29/deadliner/internal/tasks"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	attentionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	footerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

type taskRow struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Deadline    string   `json:"deadline,omitempty" yaml:"deadline,omitempty"`
	Urgency     string   `json:"urgency" yaml:"urgency"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Links       []string `json:"links,omitempty" yaml:"links,omitempty"`
}

func buildRows(all []tasks.Task, now time.Time) []taskRow {
	sorted := make([]tasks.Task, len(all))
	copy(sorted, all)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, aok := deadlineKey(sorted[i], now.Location())
		b, bok := deadlineKey(sorted[j], now.Location())
		if aok != bok {
			return aok
		}
		return a.Before(b)
	})

	rows := make([]taskRow, 0, len(sorted))
	for _, t := range sorted {
		row := taskRow{
			ID:          t.ID,
			Name:        t.Name,
			Deadline:    string(t.Deadline),
			Urgency:     tasks.Classify(t.Deadline, now).String(),
			Description: t.Description,
		}
		for _, l := range t.Links {
			row.Links = append(row.Links, l.URL)
		}
		rows = append(rows, row)
	}
	return rows
}

func deadlineKey(t tasks.Task, loc *time.Location) (time.Time, bool) {
	if t.Deadline.IsZero() {
		return time.Time{}, false
	}
	at, err := t.Deadline.At(loc)
	if err != nil {
		return time.Time{}, false
	}
	return at, true
}

func renderTasks(w io.Writer, all []tasks.Task, format string, now time.Time) error {
	rows := buildRows(all, now)
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(rows)
	case "", "table":
		_, err := io.WriteString(w, renderTable(rows)+"\n")
		return err
	default:
		return fmt.Errorf("unknown format %q (expected table|json|yaml)", format)
	}
}

func renderTable(rows []taskRow) string {
	if len(rows) == 0 {
		return footerStyle.Render("no tasks")
	}
	lines := []string{headerStyle.Render(fmt.Sprintf("%-10s  %-20s  %-34s  %s", "URGENCY", "DEADLINE", "NAME", "ID"))}
	attention := 0
	for _, r := range rows {
		deadline := "-"
		if r.Deadline != "" {
			deadline = protocol.HumanDeadline(tasks.Deadline(r.Deadline))
		}
		line := fmt.Sprintf("%-10s  %-20s  %-34s  %s", r.Urgency, deadline, protocol.Truncate(r.Name, 34), r.ID)
		if needsAttention(r.Urgency) {
			attention++
			line = attentionStyle.Render(line)
		}
		lines = append(lines, line)
	}
	lines = append(lines, footerStyle.Render(fmt.Sprintf("%d task(s), %d need attention", len(rows), attention)))
	return strings.Join(lines, "\n")
}

func needsAttention(urgency string) bool {
	var u tasks.Urgency
	if err := u.UnmarshalText([]byte(urgency)); err != nil {
		return false
	}
	return u.NeedsAttention()
}
