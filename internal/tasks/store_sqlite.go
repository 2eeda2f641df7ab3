package tasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore is the embedded relational backend. Links and reminded keys
// live in JSON text columns.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

func OpenSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection keeps in-memory databases coherent and avoids SQLITE_BUSY
	// between the scheduler and message handlers.
	db.SetMaxOpenConns(1)
	if err := initSQLiteSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

func initSQLiteSchema(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS tasks (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			deadline TEXT NULL,
			links TEXT NOT NULL DEFAULT '[]',
			reminded TEXT NOT NULL DEFAULT '[]',
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_deadline ON tasks (deadline)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init sqlite schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *SQLiteStore) Mode() string { return "sqlite" }

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) LoadAll(ctx context.Context) ([]Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, deadline, links, reminded, created_at
		FROM tasks ORDER BY deadline IS NULL, `+dueOrder+` ASC, seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	out := make([]Task, 0, 16)
	for rows.Next() {
		var (
			task     Task
			deadline sql.NullString
			links    string
			reminded string
		)
		if err := rows.Scan(&task.ID, &task.Name, &task.Description, &deadline, &links, &reminded, &task.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan task row: %w", err)
		}
		var dl *string
		if deadline.Valid {
			dl = &deadline.String
		}
		task, err = decodeStructured(task, dl, []byte(links), []byte(reminded))
		if err != nil {
			return nil, err
		}
		out = append(out, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate task rows: %w", err)
	}
	return out, nil
}

// SaveAll writes back only the reminded keys; see PostgresStore.SaveAll.
func (s *SQLiteStore) SaveAll(ctx context.Context, tasks []Task) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, task := range tasks {
		reminded, err := encodeReminded(task.Reminded)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE tasks SET reminded = ? WHERE id = ?`, reminded, task.ID); err != nil {
			return fmt.Errorf("update task %s: %w", task.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *SQLiteStore) AddMany(ctx context.Context, candidates []Candidate) ([]Task, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := s.now()
	added := make([]Task, 0, len(candidates))
	for _, c := range candidates {
		task := newTask(c, now)
		links, reminded, err := encodeStructured(task)
		if err != nil {
			return nil, err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO tasks (id, name, description, deadline, links, reminded, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			task.ID, task.Name, task.Description, nullableDeadline(task.Deadline), links, reminded, task.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("insert task: %w", err)
		}
		added = append(added, task)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return added, nil
}

func (s *SQLiteStore) DeleteByID(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete task: %w", err)
	}
	return rowsAffected(res)
}

func (s *SQLiteStore) UpdatePartial(ctx context.Context, id string, patch Patch) (bool, error) {
	sets, args, err := patchAssignments(patch, func(int) string { return "?" }, "")
	if err != nil {
		return false, err
	}
	if len(sets) == 0 {
		var n int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM tasks WHERE id = ?`, id).Scan(&n); err != nil {
			return false, fmt.Errorf("check task: %w", err)
		}
		return n > 0, nil
	}
	args = append(args, id)
	res, err := s.db.ExecContext(ctx, `UPDATE tasks SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return false, fmt.Errorf("update task: %w", err)
	}
	return rowsAffected(res)
}

func rowsAffected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}
