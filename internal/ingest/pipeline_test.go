package ingest

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ent0n29/deadliner/internal/extract"
	"github.com/ent0n29/deadliner/internal/tasks"
)

func newFileStore(t *testing.T) tasks.Store {
	t.Helper()
	s, err := tasks.NewFileStore(filepath.Join(t.TempDir(), "tasks.json"))
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	return s
}

func fixed(out []tasks.Candidate, err error) extract.Extractor {
	return extract.Func(func(context.Context, extract.Request) ([]tasks.Candidate, error) {
		return out, err
	})
}

func TestIngestStoresCandidate(t *testing.T) {
	store := newFileStore(t)
	var seen extract.Request
	ex := extract.Func(func(_ context.Context, req extract.Request) ([]tasks.Candidate, error) {
		seen = req
		return []tasks.Candidate{{Name: "Rapat Kerja", Deadline: "2025-03-10 09:00"}}, nil
	})
	p := New(ex, store, nil, nil, Options{})
	now := time.Date(2025, 3, 9, 12, 0, 0, 0, time.UTC)

	res, err := p.Ingest(context.Background(), "Besok rapat kerja jam 9 pagi di aula", now)
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if seen.Today != "2025-03-09" || seen.Tomorrow != "2025-03-10" {
		t.Fatalf("request dates = %+v", seen)
	}
	if len(res.Added) != 1 || res.Added[0].Urgency != tasks.UrgencyCritical {
		t.Fatalf("Ingest() = %+v", res)
	}

	all, err := store.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("LoadAll() len = %d, want 1", len(all))
	}
	got := all[0]
	if got.Deadline != "2025-03-10 09:00" || len(got.Reminded) != 0 || len(got.ID) != 8 || got.ID != res.Added[0].Task.ID {
		t.Fatalf("stored task = %+v", got)
	}
}

func TestIngestEmptyLeavesStoreUntouched(t *testing.T) {
	store := newFileStore(t)
	p := New(fixed(nil, nil), store, nil, nil, Options{})
	res, err := p.Ingest(context.Background(), "tidak ada apa-apa di sini sama sekali", time.Now())
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if !res.Empty() {
		t.Fatalf("Ingest() = %+v, want empty", res)
	}
	all, _ := store.LoadAll(context.Background())
	if len(all) != 0 {
		t.Fatalf("store has %d tasks, want 0", len(all))
	}
}

func TestIngestWrapsCollaboratorError(t *testing.T) {
	store := newFileStore(t)
	p := New(fixed(nil, extract.ErrMalformedResponse), store, nil, nil, Options{})
	_, err := p.Ingest(context.Background(), "pengumuman panjang yang gagal diproses", time.Now())

	var collabErr *CollaboratorError
	if !errors.As(err, &collabErr) || collabErr.Code != "malformed_response" {
		t.Fatalf("Ingest() error = %v, want CollaboratorError", err)
	}
	if !errors.Is(err, extract.ErrMalformedResponse) {
		t.Fatalf("Ingest() error does not wrap ErrMalformedResponse")
	}
}

func TestIngestHonoursTimeout(t *testing.T) {
	store := newFileStore(t)
	ex := extract.Func(func(ctx context.Context, _ extract.Request) ([]tasks.Candidate, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	p := New(ex, store, nil, nil, Options{Timeout: 20 * time.Millisecond})
	_, err := p.Ingest(context.Background(), "pengumuman yang lama sekali dijawab", time.Now())
	var collabErr *CollaboratorError
	if !errors.As(err, &collabErr) || collabErr.Code != "timeout" {
		t.Fatalf("Ingest() error = %v, want timeout", err)
	}
}

func TestEligible(t *testing.T) {
	p := New(fixed(nil, nil), nil, nil, nil, Options{})
	cases := map[string]bool{
		"pendek":                            false,
		"tepat dua puluh char":              false,
		"lebih dari dua puluh karakter ya":  true,
		"!jadwal lebih dari dua puluh char": false,
	}
	for in, want := range cases {
		if got := p.Eligible(in); got != want {
			t.Fatalf("Eligible(%q) = %v, want %v", in, got, want)
		}
	}
}
