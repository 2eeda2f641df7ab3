package tasks

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestParseDeadline(t *testing.T) {
	got, dateOnly, err := ParseDeadline("2025-03-10 09:00", time.UTC)
	if err != nil {
		t.Fatalf("ParseDeadline() error = %v", err)
	}
	if dateOnly || !got.Equal(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)) {
		t.Fatalf("ParseDeadline() = %v dateOnly=%v", got, dateOnly)
	}

	got, dateOnly, err = ParseDeadline("2025-03-10", time.UTC)
	if err != nil {
		t.Fatalf("ParseDeadline() date-only error = %v", err)
	}
	if !dateOnly || !got.Equal(time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("ParseDeadline() date-only = %v dateOnly=%v", got, dateOnly)
	}

	for _, bad := range []string{"", "10-03-2025", "2025-03-10T09:00", "2025-13-01", "2025-03-10 25:00"} {
		if _, _, err := ParseDeadline(bad, time.UTC); !errors.Is(err, ErrInvalidDeadline) {
			t.Fatalf("ParseDeadline(%q) error = %v, want ErrInvalidDeadline", bad, err)
		}
	}
}

func TestNormalizeDeadline(t *testing.T) {
	cases := []struct {
		in   string
		want Deadline
	}{
		{in: "2025-03-10 9:00", want: "2025-03-10 09:00"},
		{in: " 2025-03-10 09:30 ", want: "2025-03-10 09:30"},
		{in: "2025-03-10", want: "2025-03-10"},
	}
	for _, tc := range cases {
		got, err := NormalizeDeadline(tc.in)
		if err != nil {
			t.Fatalf("NormalizeDeadline(%q) error = %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("NormalizeDeadline(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
	if _, err := NormalizeDeadline("besok"); !errors.Is(err, ErrInvalidDeadline) {
		t.Fatalf("NormalizeDeadline(besok) error = %v, want ErrInvalidDeadline", err)
	}
}

func TestDeadlineAtDateOnlyIsEndOfDay(t *testing.T) {
	at, err := Deadline("2025-03-10").At(time.UTC)
	if err != nil {
		t.Fatalf("At() error = %v", err)
	}
	if want := time.Date(2025, 3, 10, 23, 59, 0, 0, time.UTC); !at.Equal(want) {
		t.Fatalf("At() = %v, want %v", at, want)
	}
}

func TestTaskJSONShape(t *testing.T) {
	task := Task{ID: "abcd1234", Name: "x", Links: []Link{}, Reminded: []string{}}
	b, err := json.Marshal(task)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if !strings.Contains(string(b), `"deadline":null`) {
		t.Fatalf("empty deadline should encode as null: %s", b)
	}

	var decoded Task
	raw := `{"id":"1","name":"n","deadline":null,"links":["https://a",{"label":"B","url":"https://b"}],"reminded":["24h"]}`
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if !decoded.Deadline.IsZero() {
		t.Fatalf("deadline = %q, want empty", decoded.Deadline)
	}
	if decoded.Links[0] != (Link{Label: "Link", URL: "https://a"}) || decoded.Links[1].Label != "B" {
		t.Fatalf("links = %+v", decoded.Links)
	}
}
