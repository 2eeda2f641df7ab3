package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileStore keeps the whole task collection in one JSON file. Every call
// reads or rewrites the file under a mutex; read-modify-write sequences that
// span calls are not protected.
type FileStore struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("task file path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create task file dir: %w", err)
		}
	}
	return &FileStore{path: path, now: time.Now}, nil
}

func (s *FileStore) Mode() string { return "file" }

func (s *FileStore) Close() error { return nil }

func (s *FileStore) LoadAll(_ context.Context) ([]Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readLocked()
}

func (s *FileStore) SaveAll(_ context.Context, tasks []Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(tasks)
}

func (s *FileStore) AddMany(_ context.Context, candidates []Candidate) ([]Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.readLocked()
	if err != nil {
		return nil, err
	}
	now := s.now()
	added := make([]Task, 0, len(candidates))
	for _, c := range candidates {
		t := newTask(c, now)
		all = append(all, t)
		added = append(added, t.Clone())
	}
	if err := s.writeLocked(all); err != nil {
		return nil, err
	}
	return added, nil
}

func (s *FileStore) DeleteByID(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.readLocked()
	if err != nil {
		return false, err
	}
	for i, t := range all {
		if t.ID != id {
			continue
		}
		all = append(all[:i], all[i+1:]...)
		if err := s.writeLocked(all); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

func (s *FileStore) UpdatePartial(_ context.Context, id string, patch Patch) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.readLocked()
	if err != nil {
		return false, err
	}
	for i := range all {
		if all[i].ID != id {
			continue
		}
		patch.Apply(&all[i])
		if err := s.writeLocked(all); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

func (s *FileStore) readLocked() ([]Task, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []Task{}, nil
		}
		return nil, fmt.Errorf("read task file: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return []Task{}, nil
	}
	var tasks []Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, fmt.Errorf("decode task file: %w", err)
	}
	for i := range tasks {
		tasks[i] = tasks[i].Clone()
	}
	return tasks, nil
}

func (s *FileStore) writeLocked(tasks []Task) error {
	if tasks == nil {
		tasks = []Task{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(tasks); err != nil {
		return fmt.Errorf("encode task file: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp task file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp task file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp task file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace task file: %w", err)
	}
	return nil
}
