package domain

import (
	"encoding/json"
	"time"
)

type TaskStatus string

const (
	StatusNew        TaskStatus = "new"
	StatusTodo       TaskStatus = "todo"
	StatusInProgress TaskStatus = "in_progress"
	StatusReview     TaskStatus = "review"
	StatusInTesting  TaskStatus = "in_testing"
	StatusDone       TaskStatus = "done"
	StatusAchieved   TaskStatus = "achieved"
)

func ParseTaskStatus(s string) (TaskStatus, bool) {
	switch TaskStatus(s) {
	case StatusNew, StatusTodo, StatusInProgress, StatusReview, StatusInTesting, StatusDone, StatusAchieved:
		return TaskStatus(s), true
	}
	return "", false
}

// Priority is ordinal, 1 is the most urgent.
type Priority int

const (
	PriorityCritical Priority = 1
	PriorityHigh     Priority = 2
	PriorityMedium   Priority = 3
	PriorityLow      Priority = 4
)

func (p Priority) Valid() bool {
	return p >= PriorityCritical && p <= PriorityLow
}

type Task struct {
	ID          int64      `json:"id"`
	ProjectID   int64      `json:"project_id"`
	SprintID    *int64     `json:"sprint_id,omitempty"`
	ParentID    *int64     `json:"parent_id,omitempty"`
	AssignedTo  *int64     `json:"assigned_to,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      TaskStatus `json:"status"`
	Priority    Priority   `json:"priority"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
}

type TaskHistory struct {
	ID        int64           `json:"id"`
	TaskID    int64           `json:"task_id"`
	ChangedBy int64           `json:"changed_by"`
	ChangedAt time.Time       `json:"changed_at"`
	Action    string          `json:"action"`
	Details   json.RawMessage `json:"details,omitempty"`
}

// Snapshot is the audit payload field set for tasks.
type Snapshot struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      TaskStatus `json:"status"`
	Priority    Priority   `json:"priority"`
	AssignedTo  *int64     `json:"assigned_to"`
	DueDate     *string    `json:"due_date"`
}

func (t *Task) Snapshot() Snapshot {
	var due *string
	if t.DueDate != nil {
		s := t.DueDate.Format("2006-01-02")
		due = &s
	}
	return Snapshot{
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		Priority:    t.Priority,
		AssignedTo:  t.AssignedTo,
		DueDate:     due,
	}
}

type ChangeDetails struct {
	Before Snapshot `json:"before"`
	After  Snapshot `json:"after"`
}
