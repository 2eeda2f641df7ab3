package tasks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresStore struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, strings.TrimSpace(databaseURL))
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := initTaskSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresStore{pool: pool, now: time.Now}, nil
}

func initTaskSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS tasks (
			seq BIGSERIAL,
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			deadline TEXT NULL,
			links JSONB NOT NULL DEFAULT '[]'::jsonb,
			reminded JSONB NOT NULL DEFAULT '[]'::jsonb,
			created_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_deadline ON tasks (deadline ASC NULLS LAST);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init task schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) Mode() string { return "postgres" }

func (s *PostgresStore) LoadAll(ctx context.Context) ([]Task, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, description, deadline, links, reminded, created_at
		   FROM tasks ORDER BY `+dueOrder+` ASC NULLS LAST, seq ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	out := make([]Task, 0, 16)
	for rows.Next() {
		task, err := scanPostgresTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task row: %w", err)
		}
		out = append(out, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate task rows: %w", err)
	}
	return out, nil
}

// SaveAll writes back only the reminded keys. Every other field changes
// through UpdatePartial, so a stale snapshot cannot revert it.
func (s *PostgresStore) SaveAll(ctx context.Context, tasks []Task) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, task := range tasks {
		reminded, err := encodeReminded(task.Reminded)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `UPDATE tasks SET reminded=$2::jsonb WHERE id=$1`, task.ID, reminded)
		if err != nil {
			return fmt.Errorf("update task %s: %w", task.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *PostgresStore) AddMany(ctx context.Context, candidates []Candidate) ([]Task, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	now := s.now()
	added := make([]Task, 0, len(candidates))
	for _, c := range candidates {
		task := newTask(c, now)
		links, reminded, err := encodeStructured(task)
		if err != nil {
			return nil, err
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO tasks (id, name, description, deadline, links, reminded, created_at)
			 VALUES ($1,$2,$3,$4,$5::jsonb,$6::jsonb,$7)`,
			task.ID, task.Name, task.Description, nullableDeadline(task.Deadline), links, reminded, task.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("insert task: %w", err)
		}
		added = append(added, task)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return added, nil
}

func (s *PostgresStore) DeleteByID(ctx context.Context, id string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM tasks WHERE id=$1`, id)
	if err != nil {
		return false, fmt.Errorf("delete task: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) UpdatePartial(ctx context.Context, id string, patch Patch) (bool, error) {
	sets, args, err := patchAssignments(patch, func(n int) string { return fmt.Sprintf("$%d", n) }, "::jsonb")
	if err != nil {
		return false, err
	}
	if len(sets) == 0 {
		var exists bool
		if err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM tasks WHERE id=$1)`, id).Scan(&exists); err != nil {
			return false, fmt.Errorf("check task: %w", err)
		}
		return exists, nil
	}
	args = append(args, id)
	query := fmt.Sprintf(`UPDATE tasks SET %s WHERE id=$%d`, strings.Join(sets, ", "), len(args))
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("update task: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func scanPostgresTask(rows pgx.Rows) (Task, error) {
	var (
		task     Task
		deadline *string
		links    []byte
		reminded []byte
	)
	if err := rows.Scan(
		&task.ID,
		&task.Name,
		&task.Description,
		&deadline,
		&links,
		&reminded,
		&task.CreatedAt,
	); err != nil {
		return Task{}, err
	}
	return decodeStructured(task, deadline, links, reminded)
}
