package domain

import (
	"encoding/json"
	"time"
)

type SprintStatus string

const (
	StatusNew       SprintStatus = "new"
	StatusPlanned   SprintStatus = "planned"
	StatusActive    SprintStatus = "active"
	StatusCompleted SprintStatus = "completed"
	StatusCancelled SprintStatus = "cancelled"
	StatusArchived  SprintStatus = "archived"
)

func ParseSprintStatus(s string) (SprintStatus, bool) {
	switch SprintStatus(s) {
	case StatusNew, StatusPlanned, StatusActive, StatusCompleted, StatusCancelled, StatusArchived:
		return SprintStatus(s), true
	}
	return "", false
}

type Sprint struct {
	ID          int64        `json:"id"`
	ProjectID   int64        `json:"project_id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Status      SprintStatus `json:"status"`
	StartDate   time.Time    `json:"start_date"`
	EndDate     time.Time    `json:"end_date"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	DeletedAt   *time.Time   `json:"deleted_at,omitempty"`
}

type SprintHistory struct {
	ID        int64           `json:"id"`
	SprintID  int64           `json:"sprint_id"`
	ChangedBy int64           `json:"changed_by"`
	ChangedAt time.Time       `json:"changed_at"`
	Action    string          `json:"action"`
	Details   json.RawMessage `json:"details,omitempty"`
}

// Snapshot is the audit payload field set for sprints. Dates are serialized
// as plain YYYY-MM-DD strings.
type Snapshot struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Status      SprintStatus `json:"status"`
	StartDate   string       `json:"start_date"`
	EndDate     string       `json:"end_date"`
}

func (s *Sprint) Snapshot() Snapshot {
	return Snapshot{
		Title:       s.Title,
		Description: s.Description,
		Status:      s.Status,
		StartDate:   s.StartDate.Format("2006-01-02"),
		EndDate:     s.EndDate.Format("2006-01-02"),
	}
}

type ChangeDetails struct {
	Before Snapshot `json:"before"`
	After  Snapshot `json:"after"`
}
