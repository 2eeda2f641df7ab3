package reminder

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ent0n29/deadliner/internal/protocol"
	"github.com/ent0n29/deadliner/internal/tasks"
)

var wib = time.FixedZone("WIB", 7*3600)

func at(s string) time.Time {
	t, err := time.ParseInLocation(tasks.DateTimeLayout, s, wib)
	if err != nil {
		panic(err)
	}
	return t
}

func TestDuePicksTightestCrossedThreshold(t *testing.T) {
	now := at("2025-03-10 08:30")
	cases := []struct {
		name     string
		deadline tasks.Deadline
		reminded []string
		want     string
	}{
		{name: "30 minutes fresh", deadline: "2025-03-10 09:00", want: tasks.Threshold1h},
		{name: "2 hours fresh", deadline: "2025-03-10 10:30", want: tasks.Threshold3h},
		{name: "20 hours fresh", deadline: "2025-03-11 04:30", want: tasks.Threshold24h},
		{name: "exactly 24h", deadline: "2025-03-11 08:30", want: tasks.Threshold24h},
		{name: "more than 24h", deadline: "2025-03-12 09:00"},
		{name: "2 hours already 3h", deadline: "2025-03-10 10:30", reminded: []string{"24h", "3h"}},
		{name: "30 minutes after 24h only", deadline: "2025-03-10 09:00", reminded: []string{"24h"}, want: tasks.Threshold1h},
		{name: "past deadline", deadline: "2025-03-10 08:00"},
		{name: "no deadline"},
		{name: "garbage deadline", deadline: "besok pagi"},
		{name: "date only is end of day", deadline: "2025-03-10", want: tasks.Threshold24h},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			th, ok := Due(tasks.Task{ID: "x", Deadline: tc.deadline, Reminded: tc.reminded}, now)
			if tc.want == "" {
				if ok {
					t.Fatalf("Due() = %q, want none", th.Key)
				}
				return
			}
			if !ok || th.Key != tc.want {
				t.Fatalf("Due() = %q/%v, want %q", th.Key, ok, tc.want)
			}
		})
	}
}

type recordingChannel struct {
	mu     sync.Mutex
	events []protocol.ReminderEvent
	failAt int
}

func (c *recordingChannel) SendReminder(_ context.Context, ev protocol.ReminderEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failAt > 0 && len(c.events)+1 == c.failAt {
		return errors.New("channel unavailable")
	}
	c.events = append(c.events, ev)
	return nil
}

type mapNotifier map[string]Channel

func (m mapNotifier) Channel(id string) (Channel, bool) {
	ch, ok := m[id]
	return ch, ok
}

type countingStore struct {
	tasks.Store
	saves int
}

func (s *countingStore) SaveAll(ctx context.Context, all []tasks.Task) error {
	s.saves++
	return s.Store.SaveAll(ctx, all)
}

func newStore(t *testing.T, seed ...tasks.Candidate) (*countingStore, []tasks.Task) {
	t.Helper()
	fs, err := tasks.NewFileStore(filepath.Join(t.TempDir(), "tasks.json"))
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	added, err := fs.AddMany(context.Background(), seed)
	if err != nil {
		t.Fatalf("AddMany() error = %v", err)
	}
	return &countingStore{Store: fs}, added
}

func TestRunCycleSendsOnceAndRecords(t *testing.T) {
	store, added := newStore(t,
		tasks.Candidate{Name: "Rapat Kerja", Deadline: "2025-03-10 09:00", Links: []tasks.Link{{Label: "Zoom", URL: "https://zoom.example/raker"}}},
		tasks.Candidate{Name: "Laporan", Deadline: "2025-03-20 09:00"},
		tasks.Candidate{Name: "Tanpa deadline"},
	)
	ch := &recordingChannel{}
	s := New(Config{ChannelID: "c1", Location: wib}, store, mapNotifier{"c1": ch}, nil, nil)
	ctx := context.Background()

	res, err := s.RunCycle(ctx, at("2025-03-10 08:30"))
	if err != nil {
		t.Fatalf("RunCycle() error = %v", err)
	}
	if res.Skipped || res.Scanned != 3 || len(res.Sent) != 1 {
		t.Fatalf("RunCycle() = %+v", res)
	}
	if res.Sent[0].TaskID != added[0].ID || res.Sent[0].Threshold != tasks.Threshold1h {
		t.Fatalf("sent = %+v", res.Sent[0])
	}
	if store.saves != 1 {
		t.Fatalf("SaveAll calls = %d, want 1", store.saves)
	}

	ev := ch.events[0]
	if ev.ChannelID != "c1" || ev.Threshold != "1h" || ev.Embed.Color != 0xe74c3c {
		t.Fatalf("event = %+v", ev)
	}
	if !strings.Contains(ev.Embed.Title, "Rapat Kerja") || !strings.Contains(ev.Embed.Description, "Senin, 10 Mar 2025 09:00") {
		t.Fatalf("embed = %+v", ev.Embed)
	}
	if len(ev.Embed.Fields) != 1 || ev.Embed.Fields[0].Value != "[Zoom](https://zoom.example/raker)" {
		t.Fatalf("link field = %+v", ev.Embed.Fields)
	}

	all, err := store.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}
	if !slices.Equal(all[0].Reminded, []string{"1h"}) {
		t.Fatalf("reminded = %v, want [1h]", all[0].Reminded)
	}

	res, err = s.RunCycle(ctx, at("2025-03-10 08:45"))
	if err != nil {
		t.Fatalf("RunCycle() second error = %v", err)
	}
	if len(res.Sent) != 0 || len(ch.events) != 1 {
		t.Fatalf("second cycle sent %d, want 0", len(res.Sent))
	}
	if store.saves != 1 {
		t.Fatalf("SaveAll calls after idle cycle = %d, want 1", store.saves)
	}
}

func TestRunCycleRemindedOnlyGrows(t *testing.T) {
	store, _ := newStore(t, tasks.Candidate{Name: "UTS", Deadline: "2025-03-11 09:00"})
	ch := &recordingChannel{}
	s := New(Config{ChannelID: "c1", Location: wib}, store, mapNotifier{"c1": ch}, nil, nil)
	ctx := context.Background()

	steps := []string{"2025-03-10 10:00", "2025-03-10 12:00", "2025-03-11 06:30", "2025-03-11 07:00", "2025-03-11 08:10", "2025-03-11 08:50"}
	var prev []string
	for _, step := range steps {
		if _, err := s.RunCycle(ctx, at(step)); err != nil {
			t.Fatalf("RunCycle(%s) error = %v", step, err)
		}
		all, _ := store.LoadAll(ctx)
		got := all[0].Reminded
		if len(got) < len(prev) || !slices.Equal(got[:len(prev)], prev) {
			t.Fatalf("reminded shrank at %s: %v -> %v", step, prev, got)
		}
		prev = slices.Clone(got)
	}
	if !slices.Equal(prev, []string{"24h", "3h", "1h"}) {
		t.Fatalf("reminded = %v, want [24h 3h 1h]", prev)
	}
	if len(ch.events) != 3 {
		t.Fatalf("events = %d, want 3", len(ch.events))
	}
}

func TestRunCycleSkipsWithoutChannel(t *testing.T) {
	store, _ := newStore(t, tasks.Candidate{Name: "Rapat", Deadline: "2025-03-10 09:00"})
	for name, s := range map[string]*Scheduler{
		"unset":      New(Config{Location: wib}, store, mapNotifier{}, nil, nil),
		"unresolved": New(Config{ChannelID: "gone", Location: wib}, store, mapNotifier{}, nil, nil),
	} {
		res, err := s.RunCycle(context.Background(), at("2025-03-10 08:30"))
		if err != nil {
			t.Fatalf("%s: RunCycle() error = %v", name, err)
		}
		if !res.Skipped || len(res.Sent) != 0 {
			t.Fatalf("%s: RunCycle() = %+v, want skipped", name, res)
		}
	}
	if store.saves != 0 {
		t.Fatalf("SaveAll calls = %d, want 0", store.saves)
	}
}

func TestRunCyclePersistsDeliveredBeforeFailure(t *testing.T) {
	store, added := newStore(t,
		tasks.Candidate{Name: "A", Deadline: "2025-03-10 09:00"},
		tasks.Candidate{Name: "B", Deadline: "2025-03-10 09:15"},
	)
	ch := &recordingChannel{failAt: 2}
	s := New(Config{ChannelID: "c1", Location: wib}, store, mapNotifier{"c1": ch}, nil, nil)
	ctx := context.Background()

	res, err := s.RunCycle(ctx, at("2025-03-10 08:30"))
	if err == nil {
		t.Fatalf("RunCycle() error = nil, want send failure")
	}
	if len(res.Sent) != 1 || res.Sent[0].TaskID != added[0].ID {
		t.Fatalf("sent = %+v", res.Sent)
	}
	all, _ := store.LoadAll(ctx)
	if !all[0].HasReminded("1h") || all[1].HasReminded("1h") {
		t.Fatalf("reminded = %v / %v", all[0].Reminded, all[1].Reminded)
	}
}

func TestSchedulerStartStop(t *testing.T) {
	store, _ := newStore(t, tasks.Candidate{Name: "A", Deadline: "2025-03-10 09:00"})
	ch := &recordingChannel{}
	s := New(Config{ChannelID: "c1", Interval: time.Hour, Location: wib}, store, mapNotifier{"c1": ch}, nil, nil)
	s.now = func() time.Time { return at("2025-03-10 08:30") }

	s.Start(context.Background())
	s.Start(context.Background())
	if !s.Running() {
		t.Fatalf("Running() = false after Start")
	}
	deadline := time.Now().Add(2 * time.Second)
	for {
		ch.mu.Lock()
		n := len(ch.events)
		ch.mu.Unlock()
		if n == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("first cycle did not run")
		}
		time.Sleep(10 * time.Millisecond)
	}
	s.Stop()
	s.Stop()
	if s.Running() {
		t.Fatalf("Running() = true after Stop")
	}
}

func TestWriterNotifierWritesJSONLines(t *testing.T) {
	var buf bytes.Buffer
	n := NewWriterNotifier(&buf)
	ch, ok := n.Channel("stdout")
	if !ok {
		t.Fatalf("Channel() ok = false")
	}
	task := tasks.Task{ID: "abc", Name: "Rapat", Deadline: "2025-03-10 09:00"}
	if err := ch.SendReminder(context.Background(), BuildEvent("stdout", task, Thresholds[0])); err != nil {
		t.Fatalf("SendReminder() error = %v", err)
	}
	out := buf.String()
	if !strings.HasSuffix(out, "\n") || !strings.Contains(out, `"threshold":"24h"`) || !strings.Contains(out, `"task_id":"abc"`) {
		t.Fatalf("output = %q", out)
	}
}

// editingChannel edits another task while a reminder is in flight, the way a
// chat command can land between a cycle's load and its save.
type editingChannel struct {
	store  tasks.Store
	editID string
}

func (c *editingChannel) SendReminder(ctx context.Context, _ protocol.ReminderEvent) error {
	name := "Laporan Revisi"
	moved := tasks.Deadline("2025-03-20 09:00")
	_, err := c.store.UpdatePartial(ctx, c.editID, tasks.Patch{Name: &name, Deadline: &moved})
	return err
}

func TestRunCycleKeepsEditsMadeDuringCycle(t *testing.T) {
	ctx := context.Background()
	store, err := tasks.OpenSQLiteStore(ctx, filepath.Join(t.TempDir(), "tasks.db"))
	if err != nil {
		t.Fatalf("OpenSQLiteStore() error = %v", err)
	}
	defer store.Close()
	added, err := store.AddMany(ctx, []tasks.Candidate{
		{Name: "Kuis", Deadline: "2025-03-10 09:00"},
		{Name: "Laporan", Deadline: "2025-03-12 09:00"},
	})
	if err != nil {
		t.Fatalf("AddMany() error = %v", err)
	}

	ch := &editingChannel{store: store, editID: added[1].ID}
	s := New(Config{ChannelID: "c1", Location: wib}, store, mapNotifier{"c1": ch}, nil, nil)
	res, err := s.RunCycle(ctx, at("2025-03-10 08:30"))
	if err != nil {
		t.Fatalf("RunCycle() error = %v", err)
	}
	if len(res.Sent) != 1 {
		t.Fatalf("sent = %+v, want 1", res.Sent)
	}

	all, _ := store.LoadAll(ctx)
	for _, task := range all {
		switch task.ID {
		case added[0].ID:
			if !task.HasReminded(tasks.Threshold1h) {
				t.Fatalf("reminded = %v, want 1h", task.Reminded)
			}
		case added[1].ID:
			if task.Name != "Laporan Revisi" || task.Deadline != "2025-03-20 09:00" {
				t.Fatalf("edited task = %+v, want edit kept", task)
			}
		}
	}
}
