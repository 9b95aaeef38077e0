package service

import (
	"context"
	"database/sql"

	"github.com/taskforge-app/taskforge-backend/internal/access"
	"github.com/taskforge-app/taskforge-backend/internal/apperr"
	"github.com/taskforge-app/taskforge-backend/internal/pagination"
	"github.com/taskforge-app/taskforge-backend/internal/projects/domain"
	"github.com/taskforge-app/taskforge-backend/internal/projects/repository"
	"github.com/taskforge-app/taskforge-backend/internal/storage/postgres"
)

// ProjectService orchestrates permission checks, project mutations and audit
// recording. Every mutating operation runs authorize → lock → mutate →
// audit inside a single transaction.
type ProjectService struct {
	db *sql.DB
	tx *postgres.Runner
}

func NewProjectService(db *sql.DB, tx *postgres.Runner) *ProjectService {
	return &ProjectService{db: db, tx: tx}
}

type CreateProjectInput struct {
	Title       string
	Description string
}

// Create inserts the project, adds the creator as owner and records the
// create history row — all three or none.
func (s *ProjectService) Create(ctx context.Context, in CreateProjectInput, ownerID int64) (*domain.Project, error) {
	var created *domain.Project
	err := s.tx.InTx(ctx, func(tx *sql.Tx) error {
		projects := repository.NewProjectRepository(tx)
		members := repository.NewMemberRepository(tx)
		history := repository.NewHistoryRepository(tx)

		p, err := projects.Insert(ctx, in.Title, in.Description, ownerID)
		if err != nil {
			return err
		}
		if _, err := members.Add(ctx, p.ID, ownerID, domain.RoleOwner); err != nil {
			return err
		}
		if _, err := history.Record(ctx, p.ID, ownerID, domain.ActionCreate, nil); err != nil {
			return err
		}
		created = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Detail returns the project if the caller is a member and the row is not
// soft-deleted.
func (s *ProjectService) Detail(ctx context.Context, projectID, userID int64) (*domain.Project, error) {
	members := repository.NewMemberRepository(s.db)
	if err := members.CheckPermission(ctx, projectID, userID, access.Allowed(access.ProjectRead)); err != nil {
		return nil, err
	}

	p, err := repository.NewProjectRepository(s.db).GetByID(ctx, projectID, false)
	if err != nil {
		return nil, err
	}
	if p.DeletedAt != nil {
		return nil, apperr.NotFound("project not found or has been deleted")
	}
	return p, nil
}

// ListForUser returns the caller's projects; membership itself is the access
// scope, so there is no per-project role check here.
func (s *ProjectService) ListForUser(ctx context.Context, userID int64, f repository.ProjectFilter, page pagination.Params) (pagination.Page[domain.Project], error) {
	page = page.Normalize()
	items, total, err := repository.NewProjectRepository(s.db).ListForUser(ctx, userID, f, page)
	if err != nil {
		return pagination.Page[domain.Project]{}, err
	}
	return pagination.NewPage(items, total, page), nil
}

type UpdateProjectInput struct {
	Title       *string
	Description *string
	Status      *domain.ProjectStatus
}

func (s *ProjectService) Update(ctx context.Context, projectID int64, in UpdateProjectInput, userID int64) (*domain.Project, error) {
	members := repository.NewMemberRepository(s.db)
	if err := members.CheckPermission(ctx, projectID, userID, access.Allowed(access.ProjectUpdate)); err != nil {
		return nil, err
	}

	var updated *domain.Project
	err := s.tx.InTx(ctx, func(tx *sql.Tx) error {
		projects := repository.NewProjectRepository(tx)
		history := repository.NewHistoryRepository(tx)

		p, err := projects.GetByID(ctx, projectID, true)
		if err != nil {
			return err
		}
		if p.DeletedAt != nil {
			return apperr.NotFound("project not found or has been deleted")
		}
		before := p.Snapshot()

		p, err = projects.Update(ctx, projectID, repository.UpdateProjectParams{
			Title:       in.Title,
			Description: in.Description,
			Status:      in.Status,
		})
		if err != nil {
			return err
		}

		details := domain.ChangeDetails{Before: before, After: p.Snapshot()}
		if _, err := history.Record(ctx, projectID, userID, domain.ActionUpdate, details); err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete soft-deletes the project: deleted_at is set and the status becomes
// archived. Only owners may do this.
func (s *ProjectService) Delete(ctx context.Context, projectID, userID int64) error {
	members := repository.NewMemberRepository(s.db)
	if err := members.CheckPermission(ctx, projectID, userID, access.Allowed(access.ProjectDelete)); err != nil {
		return err
	}

	return s.tx.InTx(ctx, func(tx *sql.Tx) error {
		projects := repository.NewProjectRepository(tx)
		history := repository.NewHistoryRepository(tx)

		p, err := projects.GetByID(ctx, projectID, true)
		if err != nil {
			return err
		}
		if p.DeletedAt != nil {
			return apperr.NotFound("project not found or has been deleted")
		}

		if _, err := history.Record(ctx, projectID, userID, domain.ActionDelete, nil); err != nil {
			return err
		}
		return projects.SoftDelete(ctx, projectID)
	})
}

// History lists the project's audit trail, newest first.
func (s *ProjectService) History(ctx context.Context, projectID, userID int64) ([]domain.ProjectHistory, error) {
	members := repository.NewMemberRepository(s.db)
	if err := members.CheckPermission(ctx, projectID, userID, access.Allowed(access.ProjectRead)); err != nil {
		return nil, err
	}
	return repository.NewHistoryRepository(s.db).ListByProject(ctx, projectID)
}
