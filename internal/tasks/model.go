package tasks

import "time"

// Priority and status are free-form labels by convention; nothing validates
// them, these are only the values the service fills in when a caller omits
// them.
const (
	DefaultPriority = "Medium"

	StatusTodo = "Todo"
	StatusDone = "Done"
)

type Task struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Priority    string     `json:"priority"`
	Status      string     `json:"status"`
	DueDate     *time.Time `json:"due_date"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Stats is the aggregate view served by /api/stats. Pending is derived as
// total - completed, so any status other than "Done" counts as pending.
type Stats struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Pending   int `json:"pending"`
}
