package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/taskforge-app/taskforge-backend/internal/apperr"
	"github.com/taskforge-app/taskforge-backend/internal/pagination"
	"github.com/taskforge-app/taskforge-backend/internal/projects/domain"
	"github.com/taskforge-app/taskforge-backend/internal/storage/postgres"
)

const projectColumns = "id, title, description, status, owner_user_id, created_at, updated_at, deleted_at"

// ProjectRepository provides persistence operations for projects.
type ProjectRepository struct {
	db postgres.DBTX
}

func NewProjectRepository(db postgres.DBTX) *ProjectRepository {
	return &ProjectRepository{db: db}
}

func scanProject(row interface{ Scan(...any) error }) (*domain.Project, error) {
	var p domain.Project
	err := row.Scan(
		&p.ID, &p.Title, &p.Description, &p.Status,
		&p.OwnerID, &p.CreatedAt, &p.UpdatedAt, &p.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Insert creates a new project in status "planned".
func (r *ProjectRepository) Insert(ctx context.Context, title, description string, ownerID int64) (*domain.Project, error) {
	const q = `
INSERT INTO projects (title, description, status, owner_user_id)
VALUES ($1, $2, $3, $4)
RETURNING ` + projectColumns + `;
`
	p, err := scanProject(r.db.QueryRowContext(ctx, q, title, description, domain.StatusPlanned, ownerID))
	if err != nil {
		return nil, postgres.Err(err)
	}
	return p, nil
}

// GetByID fetches a project row. With forUpdate the row is locked until the
// surrounding transaction ends, serializing concurrent writers.
func (r *ProjectRepository) GetByID(ctx context.Context, id int64, forUpdate bool) (*domain.Project, error) {
	q := `SELECT ` + projectColumns + ` FROM projects WHERE id = $1`
	if forUpdate {
		q += ` FOR UPDATE`
	}
	p, err := scanProject(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("project not found or has been deleted")
		}
		return nil, postgres.Err(err)
	}
	return p, nil
}

type ProjectFilter struct {
	Status *domain.ProjectStatus
	Search string
	SortBy string
	Order  string
}

var projectSortColumns = map[string]string{
	"created_at": "p.created_at",
	"updated_at": "p.updated_at",
	"title":      "p.title",
	"status":     "p.status",
}

// ListForUser returns the non-deleted projects the user is a member of,
// filtered, searched and paginated, plus the total match count.
func (r *ProjectRepository) ListForUser(ctx context.Context, userID int64, f ProjectFilter, page pagination.Params) ([]domain.Project, int, error) {
	where := `
FROM projects p
JOIN project_members m ON m.project_id = p.id
WHERE m.user_id = $1 AND p.deleted_at IS NULL`
	args := []any{userID}

	if f.Status != nil {
		args = append(args, *f.Status)
		where += fmt.Sprintf(" AND p.status = $%d", len(args))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		n := len(args)
		where += fmt.Sprintf(" AND (p.title ILIKE $%d OR p.description ILIKE $%d)", n, n)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT count(*) "+where, args...).Scan(&total); err != nil {
		return nil, 0, postgres.Err(err)
	}

	col, ok := projectSortColumns[f.SortBy]
	if !ok {
		col = "p.created_at"
	}
	ord := "DESC"
	if strings.EqualFold(f.Order, "asc") {
		ord = "ASC"
	}

	args = append(args, page.PageSize, page.Offset())
	q := fmt.Sprintf(
		"SELECT p.id, p.title, p.description, p.status, p.owner_user_id, p.created_at, p.updated_at, p.deleted_at %s ORDER BY %s %s LIMIT $%d OFFSET $%d",
		where, col, ord, len(args)-1, len(args),
	)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, postgres.Err(err)
	}
	defer rows.Close()

	out := make([]domain.Project, 0, page.PageSize)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, 0, postgres.Err(err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, postgres.Err(err)
	}
	return out, total, nil
}

type UpdateProjectParams struct {
	Title       *string
	Description *string
	Status      *domain.ProjectStatus
}

// Update applies a partial update; only non-nil fields are touched.
func (r *ProjectRepository) Update(ctx context.Context, id int64, params UpdateProjectParams) (*domain.Project, error) {
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

	q := fmt.Sprintf(
		"UPDATE projects SET %s WHERE id = $1 AND deleted_at IS NULL RETURNING %s",
		strings.Join(sets, ", "), projectColumns,
	)
	p, err := scanProject(r.db.QueryRowContext(ctx, q, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("project not found or has been deleted")
		}
		return nil, postgres.Err(err)
	}
	return p, nil
}

// SoftDelete marks the project deleted and archives it. The row is never
// physically removed.
func (r *ProjectRepository) SoftDelete(ctx context.Context, id int64) error {
	const q = `
UPDATE projects
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
		return apperr.NotFound("project not found or has been deleted")
	}
	return nil
}
