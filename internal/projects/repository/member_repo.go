package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/taskforge-app/taskforge-backend/internal/apperr"
	"github.com/taskforge-app/taskforge-backend/internal/projects/domain"
	"github.com/taskforge-app/taskforge-backend/internal/storage/postgres"
)

// MemberRepository is the membership registry: the single source of truth
// for who holds which role on which project.
type MemberRepository struct {
	db postgres.DBTX
}

func NewMemberRepository(db postgres.DBTX) *MemberRepository {
	return &MemberRepository{db: db}
}

// GetMember returns the membership row for (project, user), or nil when the
// user is not a member.
func (r *MemberRepository) GetMember(ctx context.Context, projectID, userID int64) (*domain.ProjectMember, error) {
	const q = `
SELECT id, project_id, user_id, role
FROM project_members
WHERE project_id = $1 AND user_id = $2;
`
	var m domain.ProjectMember
	err := r.db.QueryRowContext(ctx, q, projectID, userID).
		Scan(&m.ID, &m.ProjectID, &m.UserID, &m.Role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, postgres.Err(err)
	}
	return &m, nil
}

// CheckPermission is the authorization primitive used by every mutating
// operation: it fails unless the user is a member whose role is in allowed.
func (r *MemberRepository) CheckPermission(ctx context.Context, projectID, userID int64, allowed []domain.Role) error {
	m, err := r.GetMember(ctx, projectID, userID)
	if err != nil {
		return err
	}
	if m == nil {
		return apperr.PermissionDenied("not allowed to perform action")
	}
	for _, role := range allowed {
		if m.Role == role {
			return nil
		}
	}
	return apperr.PermissionDenied("not allowed to perform action")
}

// Add inserts a membership row. Duplicate (project, user) pairs hit the
// unique constraint and come back as a conflict.
func (r *MemberRepository) Add(ctx context.Context, projectID, userID int64, role domain.Role) (*domain.ProjectMember, error) {
	const q = `
INSERT INTO project_members (project_id, user_id, role)
VALUES ($1, $2, $3)
RETURNING id, project_id, user_id, role;
`
	var m domain.ProjectMember
	err := r.db.QueryRowContext(ctx, q, projectID, userID, role).
		Scan(&m.ID, &m.ProjectID, &m.UserID, &m.Role)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return nil, apperr.Conflict("user is already a member of this project")
		}
		return nil, postgres.Err(err)
	}
	return &m, nil
}

func (r *MemberRepository) Remove(ctx context.Context, projectID, userID int64) error {
	const q = `DELETE FROM project_members WHERE project_id = $1 AND user_id = $2;`
	res, err := r.db.ExecContext(ctx, q, projectID, userID)
	if err != nil {
		return postgres.Err(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return postgres.Err(err)
	}
	if n == 0 {
		return apperr.NotFound("member not found")
	}
	return nil
}

func (r *MemberRepository) ListByProject(ctx context.Context, projectID int64) ([]domain.ProjectMember, error) {
	const q = `
SELECT id, project_id, user_id, role
FROM project_members
WHERE project_id = $1
ORDER BY id;
`
	rows, err := r.db.QueryContext(ctx, q, projectID)
	if err != nil {
		return nil, postgres.Err(err)
	}
	defer rows.Close()

	out := make([]domain.ProjectMember, 0, 8)
	for rows.Next() {
		var m domain.ProjectMember
		if err := rows.Scan(&m.ID, &m.ProjectID, &m.UserID, &m.Role); err != nil {
			return nil, postgres.Err(err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, postgres.Err(err)
	}
	return out, nil
}

// CountOwners backs the last-owner guard on member removal and demotion.
func (r *MemberRepository) CountOwners(ctx context.Context, projectID int64) (int, error) {
	const q = `SELECT count(*) FROM project_members WHERE project_id = $1 AND role = $2;`
	var n int
	if err := r.db.QueryRowContext(ctx, q, projectID, domain.RoleOwner).Scan(&n); err != nil {
		return 0, postgres.Err(err)
	}
	return n, nil
}
