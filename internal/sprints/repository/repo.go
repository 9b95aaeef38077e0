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
	"github.com/taskforge-app/taskforge-backend/internal/sprints/domain"
	"github.com/taskforge-app/taskforge-backend/internal/storage/postgres"
)

const sprintColumns = "id, project_id, title, description, status, start_date, end_date, created_at, updated_at, deleted_at"

type SprintRepository struct {
	db postgres.DBTX
}

func NewSprintRepository(db postgres.DBTX) *SprintRepository {
	return &SprintRepository{db: db}
}

func scanSprint(row interface{ Scan(...any) error }) (*domain.Sprint, error) {
	var s domain.Sprint
	err := row.Scan(
		&s.ID, &s.ProjectID, &s.Title, &s.Description, &s.Status,
		&s.StartDate, &s.EndDate, &s.CreatedAt, &s.UpdatedAt, &s.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

type InsertSprintParams struct {
	ProjectID   int64
	Title       string
	Description string
	StartDate   time.Time
	EndDate     time.Time
}

func (r *SprintRepository) Insert(ctx context.Context, params InsertSprintParams) (*domain.Sprint, error) {
	const q = `
INSERT INTO sprints (project_id, title, description, status, start_date, end_date)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + sprintColumns + `;
`
	s, err := scanSprint(r.db.QueryRowContext(ctx, q,
		params.ProjectID, params.Title, params.Description,
		domain.StatusNew, params.StartDate, params.EndDate,
	))
	if err != nil {
		return nil, postgres.Err(err)
	}
	return s, nil
}

func (r *SprintRepository) GetByID(ctx context.Context, id int64, forUpdate bool) (*domain.Sprint, error) {
	q := `SELECT ` + sprintColumns + ` FROM sprints WHERE id = $1`
	if forUpdate {
		q += ` FOR UPDATE`
	}
	s, err := scanSprint(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("sprint not found or has been deleted")
		}
		return nil, postgres.Err(err)
	}
	return s, nil
}

type SprintFilter struct {
	Status *domain.SprintStatus
	Search string
	SortBy string
	Order  string
}

var sprintSortColumns = map[string]string{
	"created_at": "created_at",
	"updated_at": "updated_at",
	"title":      "title",
	"status":     "status",
	"start_date": "start_date",
	"end_date":   "end_date",
}

func (r *SprintRepository) ListByProject(ctx context.Context, projectID int64, f SprintFilter, page pagination.Params) ([]domain.Sprint, int, error) {
	where := ` FROM sprints WHERE project_id = $1 AND deleted_at IS NULL`
	args := []any{projectID}

	if f.Status != nil {
		args = append(args, *f.Status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
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

	col, ok := sprintSortColumns[f.SortBy]
	if !ok {
		col = "created_at"
	}
	ord := "DESC"
	if strings.EqualFold(f.Order, "asc") {
		ord = "ASC"
	}

	args = append(args, page.PageSize, page.Offset())
	q := fmt.Sprintf("SELECT %s%s ORDER BY %s %s LIMIT $%d OFFSET $%d",
		sprintColumns, where, col, ord, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, postgres.Err(err)
	}
	defer rows.Close()

	out := make([]domain.Sprint, 0, page.PageSize)
	for rows.Next() {
		s, err := scanSprint(rows)
		if err != nil {
			return nil, 0, postgres.Err(err)
		}
		out = append(out, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, postgres.Err(err)
	}
	return out, total, nil
}

type UpdateSprintParams struct {
	Title       *string
	Description *string
	Status      *domain.SprintStatus
	StartDate   *time.Time
	EndDate     *time.Time
}

func (r *SprintRepository) Update(ctx context.Context, id int64, params UpdateSprintParams) (*domain.Sprint, error) {
	sets := []string{"updated_at = now()"}
	args := []any{id}

	if params.Title != nil {
		args = append(args, *params.Title)
		sets = append(sets, fmt.Sprintf("title = $%d", len(args)))
	}
	if params.Description != nil {
		args = append(args, *params.Description)
		sets = append(sets, fmt.Sprintf("description = $%d", len(args)))
	}
	if params.Status != nil {
		args = append(args, *params.Status)
		sets = append(sets, fmt.Sprintf("status = $%d", len(args)))
	}
	if params.StartDate != nil {
		args = append(args, *params.StartDate)
		sets = append(sets, fmt.Sprintf("start_date = $%d", len(args)))
	}
	if params.EndDate != nil {
		args = append(args, *params.EndDate)
		sets = append(sets, fmt.Sprintf("end_date = $%d", len(args)))
	}

	q := fmt.Sprintf(
		"UPDATE sprints SET %s WHERE id = $1 AND deleted_at IS NULL RETURNING %s",
		strings.Join(sets, ", "), sprintColumns,
	)
	s, err := scanSprint(r.db.QueryRowContext(ctx, q, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("sprint not found or has been deleted")
		}
		return nil, postgres.Err(err)
	}
	return s, nil
}

func (r *SprintRepository) SoftDelete(ctx context.Context, id int64) error {
	const q = `
UPDATE sprints
SET deleted_at = now(), status = $2, updated_at = now()
WHERE id = $1 AND deleted_at IS NULL;
`
	res, err := r.db.ExecContext(ctx, q, id, domain.StatusArchived)
	if err != nil {
		return postgres.Err(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return postgres.Err(err)
	}
	if n == 0 {
		return apperr.NotFound("sprint not found or has been deleted")
	}
	return nil
}
