package tasks

import (
	"encoding/json"
	"slices"
	"strings"
)

// Reminder threshold keys recorded in Task.Reminded.
const (
	Threshold24h = "24h"
	Threshold3h  = "3h"
	Threshold1h  = "1h"
)

const (
	defaultTaskName  = "Tugas tanpa nama"
	defaultLinkLabel = "Link"
)

type Link struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// UnmarshalJSON also accepts a bare URL string, which older task files and
// some extraction responses use instead of a {label, url} object.
func (l *Link) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err == nil {
		*l = Link{Label: defaultLinkLabel, URL: raw}
		return nil
	}
	type plain Link
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*l = Link(p)
	return nil
}

type Task struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Deadline    Deadline `json:"deadline"`
	Links       []Link   `json:"links"`
	Reminded    []string `json:"reminded"`
	CreatedAt   string   `json:"created_at"`
}

// Candidate is a task proposed by the extraction collaborator, before it is
// assigned an id and persisted.
type Candidate struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Deadline    Deadline `json:"deadline"`
	Links       []Link   `json:"links"`
}

// Patch names the fields UpdatePartial should overwrite. Nil fields are left
// untouched.
type Patch struct {
	Name        *string
	Description *string
	Deadline    *Deadline
	Links       *[]Link
	Reminded    *[]string
}

func (p Patch) Empty() bool {
	return p.Name == nil && p.Description == nil && p.Deadline == nil && p.Links == nil && p.Reminded == nil
}

// Apply writes the patched fields onto t.
func (p Patch) Apply(t *Task) {
	if p.Name != nil {
		t.Name = *p.Name
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Deadline != nil {
		t.Deadline = *p.Deadline
	}
	if p.Links != nil {
		t.Links = cloneLinks(*p.Links)
	}
	if p.Reminded != nil {
		t.Reminded = slices.Clone(*p.Reminded)
		if t.Reminded == nil {
			t.Reminded = []string{}
		}
	}
}

func (t Task) Clone() Task {
	out := t
	out.Links = cloneLinks(t.Links)
	out.Reminded = slices.Clone(t.Reminded)
	if out.Reminded == nil {
		out.Reminded = []string{}
	}
	return out
}

func (t Task) HasReminded(key string) bool {
	return slices.Contains(t.Reminded, key)
}

// normalizeCandidate fills the defaults AddMany applies to every candidate.
func normalizeCandidate(c Candidate) Candidate {
	c.Name = strings.TrimSpace(c.Name)
	if d, err := NormalizeDeadline(string(c.Deadline)); err == nil {
		c.Deadline = d
	}
	if c.Name == "" {
		c.Name = defaultTaskName
	}
	links := make([]Link, 0, len(c.Links))
	for _, l := range c.Links {
		if strings.TrimSpace(l.Label) == "" {
			l.Label = defaultLinkLabel
		}
		links = append(links, l)
	}
	c.Links = links
	return c
}

func cloneLinks(in []Link) []Link {
	if in == nil {
		return []Link{}
	}
	out := make([]Link, len(in))
	copy(out, in)
	return out
}
