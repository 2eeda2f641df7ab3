package tasks

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func TestFileStoreContract(t *testing.T) {
	storeContract(t, func(t *testing.T) Store {
		s, err := NewFileStore(filepath.Join(t.TempDir(), "tasks.json"))
		if err != nil {
			t.Fatalf("NewFileStore() error = %v", err)
		}
		return s
	})
}

func TestSQLiteStoreContract(t *testing.T) {
	storeContract(t, func(t *testing.T) Store {
		s, err := OpenSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "tasks.db"))
		if err != nil {
			t.Fatalf("OpenSQLiteStore() error = %v", err)
		}
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestPostgresStoreContract(t *testing.T) {
	url := strings.TrimSpace(os.Getenv("TEST_DATABASE_URL"))
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	storeContract(t, func(t *testing.T) Store {
		ctx := context.Background()
		s, err := NewPostgresStore(ctx, url)
		if err != nil {
			t.Fatalf("NewPostgresStore() error = %v", err)
		}
		if _, err := s.pool.Exec(ctx, `DELETE FROM tasks`); err != nil {
			t.Fatalf("reset tasks table: %v", err)
		}
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func storeContract(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("empty store loads empty", func(t *testing.T) {
		s := newStore(t)
		all, err := s.LoadAll(ctx)
		if err != nil {
			t.Fatalf("LoadAll() error = %v", err)
		}
		if len(all) != 0 {
			t.Fatalf("LoadAll() len = %d, want 0", len(all))
		}
	})

	t.Run("add many assigns ids and defaults", func(t *testing.T) {
		s := newStore(t)
		added, err := s.AddMany(ctx, []Candidate{
			{Name: "Rapat Kerja", Deadline: "2025-03-10 09:00", Links: []Link{{URL: "https://meet.example/raker"}}},
			{Name: "Laporan", Description: "kirim ke dosen"},
		})
		if err != nil {
			t.Fatalf("AddMany() error = %v", err)
		}
		if len(added) != 2 {
			t.Fatalf("AddMany() len = %d, want 2", len(added))
		}
		if added[0].Name != "Rapat Kerja" || added[1].Name != "Laporan" {
			t.Fatalf("AddMany() order = %q, %q", added[0].Name, added[1].Name)
		}
		if added[0].ID == "" || added[0].ID == added[1].ID {
			t.Fatalf("AddMany() ids = %q, %q, want distinct non-empty", added[0].ID, added[1].ID)
		}
		if added[0].Links[0].Label != "Link" {
			t.Fatalf("default link label = %q, want %q", added[0].Links[0].Label, "Link")
		}
		if added[0].Description != "" {
			t.Fatalf("default description = %q, want empty", added[0].Description)
		}
		if added[0].Reminded == nil || len(added[0].Reminded) != 0 {
			t.Fatalf("reminded = %#v, want empty", added[0].Reminded)
		}
		if added[0].CreatedAt == "" {
			t.Fatalf("created_at empty")
		}

		all, err := s.LoadAll(ctx)
		if err != nil {
			t.Fatalf("LoadAll() error = %v", err)
		}
		if len(all) != 2 {
			t.Fatalf("LoadAll() len = %d, want 2", len(all))
		}
		got := findTask(t, all, added[0].ID)
		if got.Deadline != "2025-03-10 09:00" {
			t.Fatalf("deadline = %q, want %q", got.Deadline, "2025-03-10 09:00")
		}
		if !findTask(t, all, added[1].ID).Deadline.IsZero() {
			t.Fatalf("deadline for task without one should stay empty")
		}
	})

	t.Run("load order", func(t *testing.T) {
		s := newStore(t)
		_, err := s.AddMany(ctx, []Candidate{
			{Name: "no deadline"},
			{Name: "late", Deadline: "2025-05-01"},
			{Name: "early", Deadline: "2025-03-01 08:00"},
		})
		if err != nil {
			t.Fatalf("AddMany() error = %v", err)
		}
		all, err := s.LoadAll(ctx)
		if err != nil {
			t.Fatalf("LoadAll() error = %v", err)
		}
		names := make([]string, 0, len(all))
		for _, task := range all {
			names = append(names, task.Name)
		}
		want := []string{"early", "late", "no deadline"}
		if s.Mode() == "file" {
			want = []string{"no deadline", "late", "early"}
		}
		if !slices.Equal(names, want) {
			t.Fatalf("LoadAll() order = %v, want %v", names, want)
		}
	})

	t.Run("date-only deadline sorts at end of day", func(t *testing.T) {
		s := newStore(t)
		if s.Mode() == "file" {
			t.Skip("file store keeps insertion order")
		}
		_, err := s.AddMany(ctx, []Candidate{
			{Name: "all day", Deadline: "2025-03-10"},
			{Name: "morning", Deadline: "2025-03-10 9:00"},
			{Name: "next day", Deadline: "2025-03-11 00:00"},
		})
		if err != nil {
			t.Fatalf("AddMany() error = %v", err)
		}
		all, err := s.LoadAll(ctx)
		if err != nil {
			t.Fatalf("LoadAll() error = %v", err)
		}
		names := make([]string, 0, len(all))
		for _, task := range all {
			names = append(names, task.Name)
		}
		if want := []string{"morning", "all day", "next day"}; !slices.Equal(names, want) {
			t.Fatalf("LoadAll() order = %v, want %v", names, want)
		}
		if got := all[0].Deadline; got != "2025-03-10 09:00" {
			t.Fatalf("stored deadline = %q, want zero-padded", got)
		}
	})

	t.Run("delete by id", func(t *testing.T) {
		s := newStore(t)
		added, err := s.AddMany(ctx, []Candidate{{Name: "a"}, {Name: "b"}})
		if err != nil {
			t.Fatalf("AddMany() error = %v", err)
		}
		removed, err := s.DeleteByID(ctx, added[0].ID)
		if err != nil {
			t.Fatalf("DeleteByID() error = %v", err)
		}
		if !removed {
			t.Fatalf("DeleteByID() = false, want true")
		}
		removed, err = s.DeleteByID(ctx, added[0].ID)
		if err != nil {
			t.Fatalf("DeleteByID() second error = %v", err)
		}
		if removed {
			t.Fatalf("DeleteByID() second = true, want false")
		}
		all, _ := s.LoadAll(ctx)
		if len(all) != 1 || all[0].ID != added[1].ID {
			t.Fatalf("remaining tasks = %+v, want only %q", all, added[1].ID)
		}
	})

	t.Run("update partial", func(t *testing.T) {
		s := newStore(t)
		added, err := s.AddMany(ctx, []Candidate{{Name: "proj", Description: "keep me", Deadline: "2025-03-10 09:00"}})
		if err != nil {
			t.Fatalf("AddMany() error = %v", err)
		}
		id := added[0].ID

		name := "project final"
		links := []Link{{Label: "Template", URL: "https://x/t"}, {Label: "Form", URL: "https://x/f"}}
		reminded := []string{Threshold24h, Threshold3h}
		ok, err := s.UpdatePartial(ctx, id, Patch{Name: &name, Links: &links, Reminded: &reminded})
		if err != nil {
			t.Fatalf("UpdatePartial() error = %v", err)
		}
		if !ok {
			t.Fatalf("UpdatePartial() = false, want true")
		}

		all, _ := s.LoadAll(ctx)
		got := findTask(t, all, id)
		if got.Name != name || got.Description != "keep me" || got.Deadline != "2025-03-10 09:00" {
			t.Fatalf("patched task = %+v", got)
		}
		if !slices.Equal(got.Links, links) {
			t.Fatalf("links = %+v, want %+v", got.Links, links)
		}
		if !slices.Equal(got.Reminded, reminded) {
			t.Fatalf("reminded = %v, want %v", got.Reminded, reminded)
		}

		cleared := Deadline("")
		if _, err := s.UpdatePartial(ctx, id, Patch{Deadline: &cleared}); err != nil {
			t.Fatalf("UpdatePartial() clear deadline error = %v", err)
		}
		all, _ = s.LoadAll(ctx)
		if got := findTask(t, all, id); !got.Deadline.IsZero() {
			t.Fatalf("deadline = %q, want cleared", got.Deadline)
		}

		ok, err = s.UpdatePartial(ctx, "missing", Patch{Name: &name})
		if err != nil {
			t.Fatalf("UpdatePartial() missing error = %v", err)
		}
		if ok {
			t.Fatalf("UpdatePartial() missing = true, want false")
		}
	})

	t.Run("save all persists reminded", func(t *testing.T) {
		s := newStore(t)
		if _, err := s.AddMany(ctx, []Candidate{{Name: "a", Deadline: "2025-03-10"}, {Name: "b"}}); err != nil {
			t.Fatalf("AddMany() error = %v", err)
		}
		all, _ := s.LoadAll(ctx)
		for i := range all {
			if all[i].Name == "a" {
				all[i].Reminded = append(all[i].Reminded, Threshold24h)
			}
		}
		if err := s.SaveAll(ctx, all); err != nil {
			t.Fatalf("SaveAll() error = %v", err)
		}
		reloaded, _ := s.LoadAll(ctx)
		if len(reloaded) != 2 {
			t.Fatalf("reloaded len = %d, want 2", len(reloaded))
		}
		for _, task := range reloaded {
			want := task.Name == "a"
			if task.HasReminded(Threshold24h) != want {
				t.Fatalf("task %q reminded = %v", task.Name, task.Reminded)
			}
		}
	})
}

func TestRelationalSaveAllKeepsConcurrentEdits(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLiteStore(ctx, filepath.Join(t.TempDir(), "tasks.db"))
	if err != nil {
		t.Fatalf("OpenSQLiteStore() error = %v", err)
	}
	defer s.Close()

	added, err := s.AddMany(ctx, []Candidate{{Name: "Laporan", Deadline: "2025-03-10 09:00"}})
	if err != nil {
		t.Fatalf("AddMany() error = %v", err)
	}
	snapshot, err := s.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}

	name := "Laporan Final"
	moved := Deadline("2025-03-20 09:00")
	if _, err := s.UpdatePartial(ctx, added[0].ID, Patch{Name: &name, Deadline: &moved}); err != nil {
		t.Fatalf("UpdatePartial() error = %v", err)
	}

	snapshot[0].Reminded = append(snapshot[0].Reminded, Threshold24h)
	if err := s.SaveAll(ctx, snapshot); err != nil {
		t.Fatalf("SaveAll() error = %v", err)
	}

	all, _ := s.LoadAll(ctx)
	got := findTask(t, all, added[0].ID)
	if got.Name != name || got.Deadline != moved {
		t.Fatalf("task = %+v, want concurrent edit kept", got)
	}
	if !got.HasReminded(Threshold24h) {
		t.Fatalf("reminded = %v, want 24h recorded", got.Reminded)
	}
}

func findTask(t *testing.T, all []Task, id string) Task {
	t.Helper()
	for _, task := range all {
		if task.ID == id {
			return task
		}
	}
	t.Fatalf("task %q not found in %+v", id, all)
	return Task{}
}
