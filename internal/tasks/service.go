package tasks

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	taskOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskboard_operations_total",
			Help: "Task service operations by kind and outcome",
		},
		[]string{"op", "outcome"},
	)

	dueDateIgnoredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "taskboard_due_date_ignored_total",
			Help: "Requests whose due_date did not parse and was silently ignored",
		},
	)
)

// CreateTaskRequest is the POST /api/tasks payload. There is deliberately no
// status field: new tasks always start as Todo.
type CreateTaskRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Priority    *string `json:"priority"`
	DueDate     *string `json:"due_date"`
}

// UpdateTaskRequest is the PUT /api/tasks/{id} payload. Absent fields are left
// untouched; an empty due_date clears it, a malformed one keeps the stored
// value.
type UpdateTaskRequest struct {
	Status      *string `json:"status"`
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Priority    *string `json:"priority"`
	DueDate     *string `json:"due_date"`
}

// Service applies defaulting and the due-date leniency policy on top of a
// Repository. It holds no task state of its own.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

func (s *Service) Stats() (Stats, error) {
	total, err := s.repo.Count(nil)
	if err != nil {
		return Stats{}, s.fail("stats", err)
	}
	done := StatusDone
	completed, err := s.repo.Count(&done)
	if err != nil {
		return Stats{}, s.fail("stats", err)
	}
	taskOpsTotal.WithLabelValues("stats", "ok").Inc()
	return Stats{
		Total:     total,
		Completed: completed,
		Pending:   total - completed,
	}, nil
}

func (s *Service) List(search string) ([]Task, error) {
	out, err := s.repo.List(search)
	if err != nil {
		return nil, s.fail("list", err)
	}
	taskOpsTotal.WithLabelValues("list", "ok").Inc()
	return out, nil
}

func (s *Service) Get(id int64) (Task, error) {
	return s.repo.Get(id)
}

func (s *Service) Add(req CreateTaskRequest) (Task, error) {
	nt := NewTask{
		Title:    req.Title,
		Priority: DefaultPriority,
		Status:   StatusTodo,
	}
	if req.Description != nil {
		nt.Description = *req.Description
	}
	if req.Priority != nil {
		nt.Priority = *req.Priority
	}
	if req.DueDate != nil && *req.DueDate != "" {
		if ts, ok := parseDueDate(*req.DueDate); ok {
			nt.DueDate = &ts
		} else {
			// Creation proceeds with no due date.
			dueDateIgnoredTotal.Inc()
			s.logger.Warn("due_date_ignored", slog.String("value", *req.DueDate))
		}
	}

	t, err := s.repo.Create(nt)
	if err != nil {
		return Task{}, s.fail("add", err)
	}
	taskOpsTotal.WithLabelValues("add", "ok").Inc()
	return t, nil
}

func (s *Service) Update(id int64, req UpdateTaskRequest) (Task, error) {
	f := UpdateFields{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		Status:      req.Status,
	}
	if req.DueDate != nil {
		if *req.DueDate == "" {
			f.SetDueDate = true
		} else if ts, ok := parseDueDate(*req.DueDate); ok {
			f.SetDueDate = true
			f.DueDate = &ts
		} else {
			// Unlike Add, a malformed value here keeps the stored one.
			dueDateIgnoredTotal.Inc()
			s.logger.Warn("due_date_ignored", slog.String("value", *req.DueDate))
		}
	}

	t, err := s.repo.Update(id, f)
	if err != nil {
		return Task{}, s.fail("update", err)
	}
	taskOpsTotal.WithLabelValues("update", "ok").Inc()
	return t, nil
}

func (s *Service) Delete(id int64) error {
	if err := s.repo.Delete(id); err != nil {
		return s.fail("delete", err)
	}
	taskOpsTotal.WithLabelValues("delete", "ok").Inc()
	return nil
}

func (s *Service) fail(op string, err error) error {
	taskOpsTotal.WithLabelValues(op, "error").Inc()
	return err
}

// Layouts accepted for due_date values, matching what clients actually send:
// datetime-local inputs omit seconds and timezone, API clients tend to send
// RFC3339 or a bare date.
var dueDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

func parseDueDate(v string) (time.Time, bool) {
	for _, layout := range dueDateLayouts {
		if ts, err := time.Parse(layout, v); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
