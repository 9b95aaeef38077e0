package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/taskforge-app/taskforge-backend/internal/apperr"
	"github.com/taskforge-app/taskforge-backend/internal/pagination"
	"github.com/taskforge-app/taskforge-backend/internal/storage/postgres"
	"github.com/taskforge-app/taskforge-backend/internal/tasks/domain"
)

const taskColumns = "id, project_id, sprint_id, parent_id, assigned_to, title, description, status, priority, due_date, created_at, updated_at, deleted_at"

type TaskRepository struct {
	db postgres.DBTX
}

func NewTaskRepository(db postgres.DBTX) *TaskRepository {
	return &TaskRepository{db: db}
}

func scanTask(row interface{ Scan(...any) error }) (*domain.Task, error) {
	var t domain.Task
	err := row.Scan(
		&t.ID, &t.ProjectID, &t.SprintID, &t.ParentID, &t.AssignedTo,
		&t.Title, &t.Description, &t.Status, &t.Priority, &t.DueDate,
		&t.CreatedAt, &t.UpdatedAt, &t.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

type InsertTaskParams struct {
	ProjectID   int64
	SprintID    *int64
	ParentID    *int64
	AssignedTo  *int64
	Title       string
	Description string
	Status      domain.TaskStatus
	Priority    domain.Priority
	DueDate     *time.Time
}

func (r *TaskRepository) Insert(ctx context.Context, params InsertTaskParams) (*domain.Task, error) {
	if params.Status == "" {
		params.Status = domain.StatusNew
	}
	if params.Priority == 0 {
		params.Priority = domain.PriorityMedium
	}

	const q = `
INSERT INTO tasks (project_id, sprint_id, parent_id, assigned_to, title, description, status, priority, due_date)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING ` + taskColumns + `;
`
	t, err := scanTask(r.db.QueryRowContext(ctx, q,
		params.ProjectID, params.SprintID, params.ParentID, params.AssignedTo,
		params.Title, params.Description, params.Status, params.Priority, params.DueDate,
	))
	if err != nil {
		return nil, postgres.Err(err)
	}
	return t, nil
}

func (r *TaskRepository) GetByID(ctx context.Context, id int64, forUpdate bool) (*domain.Task, error) {
	q := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	if forUpdate {
		q += ` FOR UPDATE`
	}
	t, err := scanTask(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("task not found or has been deleted")
		}
		return nil, postgres.Err(err)
	}
	return t, nil
}

type TaskFilter struct {
	Status     *domain.TaskStatus
	Priority   *domain.Priority
	AssignedTo *int64
	SprintID   *int64
	Search     string
	SortBy     string
	Order      string
}

var taskSortColumns = map[string]string{
	"created_at": "created_at",
	"updated_at": "updated_at",
	"title":      "title",
	"status":     "status",
	"priority":   "priority",
	"due_date":   "due_date",
}

func (r *TaskRepository) ListByProject(ctx context.Context, projectID int64, f TaskFilter, page pagination.Params) ([]domain.Task, int, error) {
	where := ` FROM tasks WHERE project_id = $1 AND deleted_at IS NULL`
	args := []any{projectID}

	if f.Status != nil {
		args = append(args, *f.Status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if f.Priority != nil {
		args = append(args, *f.Priority)
		where += fmt.Sprintf(" AND priority = $%d", len(args))
	}
	if f.AssignedTo != nil {
		args = append(args, *f.AssignedTo)
		where += fmt.Sprintf(" AND assigned_to = $%d", len(args))
	}
	if f.SprintID != nil {
		args = append(args, *f.SprintID)
		where += fmt.Sprintf(" AND sprint_id = $%d", len(args))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		n := len(args)
		where += fmt.Sprintf(" AND (title ILIKE $%d OR description ILIKE $%d)", n, n)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT count(*)"+where, args...).Scan(&total); err != nil {
		return nil, 0, postgres.Err(err)
	}

	col, ok := taskSortColumns[f.SortBy]
	if !ok {
		col = "created_at"
	}
	ord := "DESC"
	if strings.EqualFold(f.Order, "asc") {
		ord = "ASC"
	}

	args = append(args, page.PageSize, page.Offset())
	q := fmt.Sprintf("SELECT %s%s ORDER BY %s %s LIMIT $%d OFFSET $%d",
		taskColumns, where, col, ord, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, postgres.Err(err)
	}
	defer rows.Close()

	out := make([]domain.Task, 0, page.PageSize)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, 0, postgres.Err(err)
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, postgres.Err(err)
	}
	return out, total, nil
}

// UpdateTaskParams distinguishes "not supplied" (nil pointer) from "set to
// null" for the nullable columns via the Clear flags.
type UpdateTaskParams struct {
	Title         *string
	Description   *string
	Status        *domain.TaskStatus
	Priority      *domain.Priority
	AssignedTo    *int64
	ClearAssignee bool
	SprintID      *int64
	ClearSprint   bool
	DueDate       *time.Time
	ClearDue      bool
}

func (r *TaskRepository) Update(ctx context.Context, id int64, params UpdateTaskParams) (*domain.Task, error) {
	sets := []string{"updated_at = now()"}
	args := []any{id}

	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if params.Title != nil {
		add("title", *params.Title)
	}
	if params.Description != nil {
		add("description", *params.Description)
	}
	if params.Status != nil {
		add("status", *params.Status)
	}
	if params.Priority != nil {
		add("priority", *params.Priority)
	}
	if params.ClearAssignee {
		sets = append(sets, "assigned_to = NULL")
	} else if params.AssignedTo != nil {
		add("assigned_to", *params.AssignedTo)
	}
	if params.ClearSprint {
		sets = append(sets, "sprint_id = NULL")
	} else if params.SprintID != nil {
		add("sprint_id", *params.SprintID)
	}
	if params.ClearDue {
		sets = append(sets, "due_date = NULL")
	} else if params.DueDate != nil {
		add("due_date", *params.DueDate)
	}

	q := fmt.Sprintf(
		"UPDATE tasks SET %s WHERE id = $1 AND deleted_at IS NULL RETURNING %s",
		strings.Join(sets, ", "), taskColumns,
	)
	t, err := scanTask(r.db.QueryRowContext(ctx, q, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("task not found or has been deleted")
		}
		return nil, postgres.Err(err)
	}
	return t, nil
}

func (r *TaskRepository) SoftDelete(ctx context.Context, id int64) error {
	const q = `
UPDATE tasks
SET deleted_at = now(), status = $2, updated_at = now()
WHERE id = $1 AND deleted_at IS NULL;
`
	res, err := r.db.ExecContext(ctx, q, id, domain.StatusAchieved)
	if err != nil {
		return postgres.Err(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return postgres.Err(err)
	}
	if n == 0 {
		return apperr.NotFound("task not found or has been deleted")
	}
	return nil
}
