package models

import "time"

// Task is a work item owned by exactly one user. OwnerID never changes after
// creation.
type Task struct {
	ID          string
	OwnerID     string
	Description string
	Completed   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SortField enumerates the columns a task listing may be ordered by.
type SortField string

const (
	SortByCreatedAt   SortField = "createdAt"
	SortByUpdatedAt   SortField = "updatedAt"
	SortByDescription SortField = "description"
	SortByCompleted   SortField = "completed"
)

// TaskFilter narrows a task listing. Nil / zero fields mean "no constraint".
type TaskFilter struct {
	Completed *bool
	Limit     int
	Skip      int
	SortBy    SortField
	SortDesc  bool
}
