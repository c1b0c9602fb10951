package tasks

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newTempDB(t *testing.T) *SQLiteRepo {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	dsn, err := SQLiteFileDSN(dbPath)
	if err != nil {
		t.Fatalf("dsn error: %v", err)
	}
	repo, err := NewSQLiteRepo(dsn)
	if err != nil {
		t.Fatalf("open error: %v", err)
	}
	t.Cleanup(func() {
		_ = repo.Close()
	})
	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("schema error: %v", err)
	}
	return repo
}

func mustCreate(t *testing.T, repo *SQLiteRepo, nt NewTask) Task {
	t.Helper()
	if nt.Priority == "" {
		nt.Priority = DefaultPriority
	}
	if nt.Status == "" {
		nt.Status = StatusTodo
	}
	created, err := repo.Create(nt)
	if err != nil {
		t.Fatalf("create %q: %v", nt.Title, err)
	}
	return created
}

func TestSQLiteRepo_EnsureSchemaIsIdempotent(t *testing.T) {
	repo := newTempDB(t)
	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("second EnsureSchema: %v", err)
	}
}

func TestSQLiteRepo_CreateAndGet(t *testing.T) {
	repo := newTempDB(t)

	due := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	a := mustCreate(t, repo, NewTask{
		Title:       "first",
		Description: "with due date",
		DueDate:     &due,
	})
	if a.ID == 0 {
		t.Fatalf("expected assigned id, got %+v", a)
	}
	if a.CreatedAt.IsZero() {
		t.Fatalf("expected created_at to be set")
	}

	got, err := repo.Get(a.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "first" || got.Description != "with due date" {
		t.Fatalf("bad round trip: %+v", got)
	}
	if got.Priority != DefaultPriority || got.Status != StatusTodo {
		t.Fatalf("bad labels: %+v", got)
	}
	if got.DueDate == nil || !got.DueDate.Equal(due) {
		t.Fatalf("expected due date %v, got %v", due, got.DueDate)
	}
	if !got.CreatedAt.Equal(a.CreatedAt) {
		t.Fatalf("created_at changed across read: %v vs %v", a.CreatedAt, got.CreatedAt)
	}

	if _, err := repo.Get(a.ID + 100); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound, got %v", err)
	}
}

func TestSQLiteRepo_ListNewestFirst(t *testing.T) {
	repo := newTempDB(t)

	mustCreate(t, repo, NewTask{Title: "oldest"})
	mustCreate(t, repo, NewTask{Title: "middle"})
	mustCreate(t, repo, NewTask{Title: "newest"})

	list, err := repo.List("")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 tasks, got %d", len(list))
	}
	if list[0].Title != "newest" || list[1].Title != "middle" || list[2].Title != "oldest" {
		t.Fatalf("unexpected order: %+v", list)
	}
	for i := 1; i < len(list); i++ {
		if list[i].CreatedAt.After(list[i-1].CreatedAt) {
			t.Fatalf("created_at not descending at %d: %+v", i, list)
		}
	}
}

func TestSQLiteRepo_SearchFilter(t *testing.T) {
	repo := newTempDB(t)

	mustCreate(t, repo, NewTask{Title: "Buy milk"})
	mustCreate(t, repo, NewTask{Title: "errands", Description: "call mom"})
	mustCreate(t, repo, NewTask{Title: "unrelated"})

	list, err := repo.List("milk")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].Title != "Buy milk" {
		t.Fatalf("expected title match, got %+v", list)
	}

	list, err = repo.List("mom")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].Title != "errands" {
		t.Fatalf("expected description match, got %+v", list)
	}

	// instr() keeps the filter case-sensitive, unlike LIKE.
	list, err = repo.List("Milk")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected case-sensitive miss, got %+v", list)
	}
}

func TestSQLiteRepo_UpdatePartial(t *testing.T) {
	repo := newTempDB(t)

	due := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	created := mustCreate(t, repo, NewTask{
		Title:       "report",
		Description: "numbers",
		Priority:    "High",
		Status:      StatusTodo,
		DueDate:     &due,
	})

	done := StatusDone
	got, err := repo.Update(created.ID, UpdateFields{Status: &done})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Status != StatusDone {
		t.Fatalf("expected status Done, got %q", got.Status)
	}
	if got.Title != "report" || got.Description != "numbers" || got.Priority != "High" {
		t.Fatalf("untouched fields changed: %+v", got)
	}
	if got.DueDate == nil || !got.DueDate.Equal(due) {
		t.Fatalf("due date changed: %v", got.DueDate)
	}

	// Clearing the due date.
	got, err = repo.Update(created.ID, UpdateFields{SetDueDate: true})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.DueDate != nil {
		t.Fatalf("expected cleared due date, got %v", got.DueDate)
	}

	// Empty field set still reports unknown ids.
	if _, err := repo.Update(created.ID+5, UpdateFields{}); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound, got %v", err)
	}
	if _, err := repo.Update(created.ID+5, UpdateFields{Status: &done}); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound, got %v", err)
	}
}

func TestSQLiteRepo_DeleteAndCount(t *testing.T) {
	repo := newTempDB(t)

	a := mustCreate(t, repo, NewTask{Title: "a"})
	b := mustCreate(t, repo, NewTask{Title: "b", Status: StatusDone})

	n, err := repo.Count(nil)
	if err != nil || n != 2 {
		t.Fatalf("expected count 2, got %d (%v)", n, err)
	}
	done := StatusDone
	n, err = repo.Count(&done)
	if err != nil || n != 1 {
		t.Fatalf("expected 1 done, got %d (%v)", n, err)
	}

	if err := repo.Delete(a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.Get(a.ID); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound after delete, got %v", err)
	}
	if err := repo.Delete(a.ID); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound on repeat delete, got %v", err)
	}

	n, err = repo.Count(nil)
	if err != nil || n != 1 {
		t.Fatalf("expected count 1 after delete, got %d (%v)", n, err)
	}
	if _, err := repo.Get(b.ID); err != nil {
		t.Fatalf("remaining task should survive: %v", err)
	}
}
