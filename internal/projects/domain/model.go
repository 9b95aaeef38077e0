package domain

import (
	"encoding/json"
	"time"
)

// Role of a user within a single project. Roles are not ranked; every
// operation declares the exact set it accepts.
type Role string

const (
	RoleOwner      Role = "owner"
	RoleMaintainer Role = "maintainer"
	RoleMember     Role = "member"
	RoleViewer     Role = "viewer"
)

func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleOwner, RoleMaintainer, RoleMember, RoleViewer:
		return Role(s), true
	}
	return "", false
}

type ProjectStatus string

const (
	StatusPlanned   ProjectStatus = "planned"
	StatusActive    ProjectStatus = "active"
	StatusCompleted ProjectStatus = "completed"
	StatusCancelled ProjectStatus = "cancelled"
	StatusArchived  ProjectStatus = "archived"
)

func ParseProjectStatus(s string) (ProjectStatus, bool) {
	switch ProjectStatus(s) {
	case StatusPlanned, StatusActive, StatusCompleted, StatusCancelled, StatusArchived:
		return ProjectStatus(s), true
	}
	return "", false
}

// HistoryAction identifies what a history row records. Shared by the sprint
// and task history tables as well.
type HistoryAction string

const (
	ActionCreate       HistoryAction = "create"
	ActionUpdate       HistoryAction = "update"
	ActionDelete       HistoryAction = "delete"
	ActionAdjustMember HistoryAction = "adjust_member"
)

type Project struct {
	ID          int64         `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Status      ProjectStatus `json:"status"`
	OwnerID     int64         `json:"owner_id"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	DeletedAt   *time.Time    `json:"deleted_at,omitempty"`
}

type ProjectMember struct {
	ID        int64 `json:"id"`
	ProjectID int64 `json:"project_id"`
	UserID    int64 `json:"user_id"`
	Role      Role  `json:"role"`
}

// ProjectHistory is an append-only audit record. Rows are never updated or
// deleted and survive the deletion of their subject.
type ProjectHistory struct {
	ID        int64           `json:"id"`
	ProjectID int64           `json:"project_id"`
	ChangedBy int64           `json:"changed_by"`
	ChangedAt time.Time       `json:"changed_at"`
	Action    HistoryAction   `json:"action"`
	Details   json.RawMessage `json:"details,omitempty"`
}

// Snapshot is the fixed set of mutable business fields recorded in
// before/after audit payloads. Immutable fields (id, timestamps) never
// appear here.
type Snapshot struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Status      ProjectStatus `json:"status"`
}

func (p *Project) Snapshot() Snapshot {
	return Snapshot{
		Title:       p.Title,
		Description: p.Description,
		Status:      p.Status,
	}
}

type ChangeDetails struct {
	Before Snapshot `json:"before"`
	After  Snapshot `json:"after"`
}

// MemberDetails is the payload of an adjust_member history row.
type MemberDetails struct {
	UserID int64  `json:"user_id"`
	Role   Role   `json:"role"`
	Op     string `json:"op"` // "add" or "remove"
}
