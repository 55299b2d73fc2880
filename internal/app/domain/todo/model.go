// Package todo defines tracked tasks.
package todo

import "time"

// Status is the two-state task status.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

// Valid reports whether s is one of the two states.
func (s Status) Valid() bool {
	return s == StatusPending || s == StatusCompleted
}

// Todo is a tracked task with an assignee and optional agency scope.
type Todo struct {
	ID         string    `json:"id,omitempty"`
	Title      string    `json:"title"`
	AssigneeID string    `json:"assignee_id"`
	AgencyID   string    `json:"agency_id,omitempty"`
	DueDate    time.Time `json:"due_date"`
	Status     Status    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

// Overdue reports whether the task is pending past its due date.
func (t Todo) Overdue(now time.Time) bool {
	return t.Status == StatusPending && !t.DueDate.IsZero() && t.DueDate.Before(now)
}
