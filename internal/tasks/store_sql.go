package tasks

import (
	"encoding/json"
	"fmt"
)

// Helpers shared by the relational backends. Links and reminded keys are
// stored as JSON documents so their nested structure survives a round trip.

func encodeStructured(t Task) (links string, reminded string, err error) {
	l, err := json.Marshal(cloneLinks(t.Links))
	if err != nil {
		return "", "", fmt.Errorf("encode links: %w", err)
	}
	r, err := encodeReminded(t.Reminded)
	if err != nil {
		return "", "", err
	}
	return string(l), r, nil
}

func encodeReminded(keys []string) (string, error) {
	if keys == nil {
		keys = []string{}
	}
	b, err := json.Marshal(keys)
	if err != nil {
		return "", fmt.Errorf("encode reminded: %w", err)
	}
	return string(b), nil
}

// dueOrder sorts rows by the instant a deadline falls due: a date-only value
// counts as 23:59 of that date, matching Deadline.At. Stored deadlines are
// normalized to the zero-padded layouts, so text order is time order.
const dueOrder = `CASE WHEN length(deadline) = 10 THEN deadline || ' 23:59' ELSE deadline END`

func decodeStructured(t Task, deadline *string, links, reminded []byte) (Task, error) {
	if deadline != nil {
		t.Deadline = Deadline(*deadline)
	}
	if len(links) > 0 {
		if err := json.Unmarshal(links, &t.Links); err != nil {
			return Task{}, fmt.Errorf("decode links: %w", err)
		}
	}
	if len(reminded) > 0 {
		if err := json.Unmarshal(reminded, &t.Reminded); err != nil {
			return Task{}, fmt.Errorf("decode reminded: %w", err)
		}
	}
	return t.Clone(), nil
}

func nullableDeadline(d Deadline) *string {
	if d.IsZero() {
		return nil
	}
	s := string(d)
	return &s
}

// patchAssignments renders the SET clauses for a partial update. placeholder
// maps a 1-based argument index to the driver's bind syntax and jsonCast is
// appended to JSON-valued placeholders.
func patchAssignments(p Patch, placeholder func(int) string, jsonCast string) ([]string, []any, error) {
	var (
		sets []string
		args []any
	)
	add := func(column string, value any, cast string) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s=%s%s", column, placeholder(len(args)), cast))
	}
	if p.Name != nil {
		add("name", *p.Name, "")
	}
	if p.Description != nil {
		add("description", *p.Description, "")
	}
	if p.Deadline != nil {
		add("deadline", nullableDeadline(*p.Deadline), "")
	}
	if p.Links != nil {
		b, err := json.Marshal(cloneLinks(*p.Links))
		if err != nil {
			return nil, nil, fmt.Errorf("encode links: %w", err)
		}
		add("links", string(b), jsonCast)
	}
	if p.Reminded != nil {
		r, err := encodeReminded(*p.Reminded)
		if err != nil {
			return nil, nil, err
		}
		add("reminded", r, jsonCast)
	}
	return sets, args, nil
}
