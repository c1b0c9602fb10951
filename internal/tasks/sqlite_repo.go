package tasks

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

type SQLiteRepo struct {
	db *sql.DB
}

func NewSQLiteRepo(dsn string) (*SQLiteRepo, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// Reasonable pragmas for an app server
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA synchronous=NORMAL;
		PRAGMA foreign_keys=ON;
	`); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteRepo{db: db}, nil
}

func (r *SQLiteRepo) Close() error { return r.db.Close() }

// EnsureSchema is idempotent and runs once at startup.
func (r *SQLiteRepo) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS tasks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	priority TEXT NOT NULL DEFAULT 'Medium',
	status TEXT NOT NULL DEFAULT 'Todo',
	due_date TEXT,
	created_at TEXT NOT NULL
);
	`)
	return err
}

func (r *SQLiteRepo) Create(t NewTask) (Task, error) {
	now := time.Now().UTC()
	res, err := r.db.Exec(`
		INSERT INTO tasks (title, description, priority, status, due_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, t.Title, t.Description, t.Priority, t.Status, timeArg(t.DueDate), now.Format(time.RFC3339Nano))
	if err != nil {
		return Task{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Task{}, err
	}
	return Task{
		ID:          id,
		Title:       t.Title,
		Description: t.Description,
		Priority:    t.Priority,
		Status:      t.Status,
		DueDate:     t.DueDate,
		CreatedAt:   now,
	}, nil
}

// List returns tasks newest-first. instr() is used for the search because
// SQLite LIKE folds ASCII case and the filter is case-sensitive.
func (r *SQLiteRepo) List(search string) ([]Task, error) {
	query := `
		SELECT id, title, description, priority, status, due_date, created_at
		FROM tasks
	`
	var args []any
	if search != "" {
		query += ` WHERE instr(title, ?) > 0 OR instr(description, ?) > 0`
		args = append(args, search, search)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *SQLiteRepo) Get(id int64) (Task, error) {
	row := r.db.QueryRow(`
		SELECT id, title, description, priority, status, due_date, created_at
		FROM tasks
		WHERE id = ?
	`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Task{}, ErrTaskNotFound
	}
	if err != nil {
		return Task{}, err
	}
	return t, nil
}

func (r *SQLiteRepo) Update(id int64, f UpdateFields) (Task, error) {
	sets := make([]string, 0, 5)
	args := make([]any, 0, 6)
	if f.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *f.Title)
	}
	if f.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *f.Description)
	}
	if f.Priority != nil {
		sets = append(sets, "priority = ?")
		args = append(args, *f.Priority)
	}
	if f.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, *f.Status)
	}
	if f.SetDueDate {
		sets = append(sets, "due_date = ?")
		args = append(args, timeArg(f.DueDate))
	}
	if len(sets) == 0 {
		// Nothing to change; still report NotFound for unknown ids.
		return r.Get(id)
	}

	args = append(args, id)
	res, err := r.db.Exec(`UPDATE tasks SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return Task{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Task{}, err
	}
	if n == 0 {
		return Task{}, ErrTaskNotFound
	}
	return r.Get(id)
}

func (r *SQLiteRepo) Delete(id int64) error {
	res, err := r.db.Exec(`DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrTaskNotFound
	}
	return nil
}

func (r *SQLiteRepo) Count(status *string) (int, error) {
	var n int
	var err error
	if status == nil {
		err = r.db.QueryRow(`SELECT COUNT(*) FROM tasks`).Scan(&n)
	} else {
		err = r.db.QueryRow(`SELECT COUNT(*) FROM tasks WHERE status = ?`, *status).Scan(&n)
	}
	return n, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (Task, error) {
	var t Task
	var due sql.NullString
	var created string
	if err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Priority, &t.Status, &due, &created); err != nil {
		return Task{}, err
	}
	if ts, err := time.Parse(time.RFC3339Nano, created); err == nil {
		t.CreatedAt = ts
	}
	if due.Valid {
		if ts, err := time.Parse(time.RFC3339Nano, due.String); err == nil {
			t.DueDate = &ts
		}
	}
	return t, nil
}

// timeArg renders an optional timestamp as a bind argument: NULL when absent.
func timeArg(ts *time.Time) any {
	if ts == nil {
		return nil
	}
	return ts.Format(time.RFC3339Nano)
}

// SQLiteFileDSN builds a DSN like: file:/absolute/path?_pragma=busy_timeout(5000)
func SQLiteFileDSN(path string) (string, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return "file:" + filepath.ToSlash(abs) + "?_pragma=busy_timeout(5000)", nil
}
