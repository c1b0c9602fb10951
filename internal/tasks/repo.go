package tasks

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"
)

var ErrTaskNotFound = errors.New("task not found")

// NewTask carries the fields persisted on insert. The id and creation
// timestamp are assigned by the repository.
type NewTask struct {
	Title       string
	Description string
	Priority    string
	Status      string
	DueDate     *time.Time
}

// UpdateFields is a partial update: a nil pointer leaves that column
// untouched. The due date needs three states (untouched / set / cleared), so
// it carries an explicit flag; SetDueDate with a nil DueDate clears it.
type UpdateFields struct {
	Title       *string
	Description *string
	Priority    *string
	Status      *string
	SetDueDate  bool
	DueDate     *time.Time
}

type Repository interface {
	// Create persists a new task and returns it with its assigned id.
	Create(t NewTask) (Task, error)
	// List returns tasks newest-first. A non-empty search keeps only tasks
	// whose title or description contains it (case-sensitive).
	List(search string) ([]Task, error)
	Get(id int64) (Task, error)
	Update(id int64, f UpdateFields) (Task, error)
	Delete(id int64) error
	// Count returns the number of tasks, optionally restricted to an exact
	// status match.
	Count(status *string) (int, error)
}

type InMemoryRepo struct {
	mu    sync.Mutex
	seq   int64
	store map[int64]Task
}

func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		store: make(map[int64]Task),
	}
}

func (r *InMemoryRepo) Create(t NewTask) (Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	task := Task{
		ID:          r.seq,
		Title:       t.Title,
		Description: t.Description,
		Priority:    t.Priority,
		Status:      t.Status,
		DueDate:     t.DueDate,
		CreatedAt:   time.Now().UTC(),
	}
	r.store[task.ID] = task
	return task, nil
}

func (r *InMemoryRepo) List(search string) ([]Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Task, 0, len(r.store))
	for _, t := range r.store {
		if search != "" && !strings.Contains(t.Title, search) && !strings.Contains(t.Description, search) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r *InMemoryRepo) Get(id int64) (Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.store[id]
	if !ok {
		return Task{}, ErrTaskNotFound
	}
	return t, nil
}

func (r *InMemoryRepo) Update(id int64, f UpdateFields) (Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.store[id]
	if !ok {
		return Task{}, ErrTaskNotFound
	}
	if f.Title != nil {
		t.Title = *f.Title
	}
	if f.Description != nil {
		t.Description = *f.Description
	}
	if f.Priority != nil {
		t.Priority = *f.Priority
	}
	if f.Status != nil {
		t.Status = *f.Status
	}
	if f.SetDueDate {
		t.DueDate = f.DueDate
	}
	r.store[id] = t
	return t, nil
}

func (r *InMemoryRepo) Delete(id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.store[id]; !ok {
		return ErrTaskNotFound
	}
	delete(r.store, id)
	return nil
}

func (r *InMemoryRepo) Count(status *string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if status == nil {
		return len(r.store), nil
	}
	n := 0
	for _, t := range r.store {
		if t.Status == *status {
			n++
		}
	}
	return n, nil
}
