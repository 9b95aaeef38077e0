package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/taskforge-app/taskforge-backend/internal/access"
	"github.com/taskforge-app/taskforge-backend/internal/apperr"
	"github.com/taskforge-app/taskforge-backend/internal/pagination"
	projectdomain "github.com/taskforge-app/taskforge-backend/internal/projects/domain"
	projectrepo "github.com/taskforge-app/taskforge-backend/internal/projects/repository"
	"github.com/taskforge-app/taskforge-backend/internal/sprints/domain"
	"github.com/taskforge-app/taskforge-backend/internal/sprints/repository"
	"github.com/taskforge-app/taskforge-backend/internal/storage/postgres"
)

type SprintService struct {
	db *sql.DB
	tx *postgres.Runner
}

func NewSprintService(db *sql.DB, tx *postgres.Runner) *SprintService {
	return &SprintService{db: db, tx: tx}
}

type CreateSprintInput struct {
	ProjectID   int64
	Title       string
	Description string
	StartDate   time.Time
	EndDate     time.Time
}

func validateDates(start, end time.Time) error {
	if start.After(end) {
		return apperr.InvalidArgument("sprint start_date must not be after end_date")
	}
	return nil
}

func (s *SprintService) Create(ctx context.Context, in CreateSprintInput, userID int64) (*domain.Sprint, error) {
	members := projectrepo.NewMemberRepository(s.db)
	if err := members.CheckPermission(ctx, in.ProjectID, userID, access.Allowed(access.SprintCreate)); err != nil {
		return nil, err
	}

	project, err := projectrepo.NewProjectRepository(s.db).GetByID(ctx, in.ProjectID, false)
	if err != nil {
		return nil, err
	}
	if project.DeletedAt != nil {
		return nil, apperr.NotFound("project not found or has been deleted")
	}

	if err := validateDates(in.StartDate, in.EndDate); err != nil {
		return nil, err
	}

	var created *domain.Sprint
	err = s.tx.InTx(ctx, func(tx *sql.Tx) error {
		sprints := repository.NewSprintRepository(tx)
		history := repository.NewHistoryRepository(tx)

		sp, err := sprints.Insert(ctx, repository.InsertSprintParams{
			ProjectID:   in.ProjectID,
			Title:       in.Title,
			Description: in.Description,
			StartDate:   in.StartDate,
			EndDate:     in.EndDate,
		})
		if err != nil {
			return err
		}
		if _, err := history.Record(ctx, sp.ID, userID, projectdomain.ActionCreate, nil); err != nil {
			return err
		}
		created = sp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *SprintService) Detail(ctx context.Context, sprintID, userID int64) (*domain.Sprint, error) {
	sp, err := repository.NewSprintRepository(s.db).GetByID(ctx, sprintID, false)
	if err != nil {
		return nil, err
	}

	// Authorize before looking at deleted_at so non-members cannot tell a
	// soft-deleted sprint from a live one.
	members := projectrepo.NewMemberRepository(s.db)
	if err := members.CheckPermission(ctx, sp.ProjectID, userID, access.Allowed(access.SprintRead)); err != nil {
		return nil, err
	}
	if sp.DeletedAt != nil {
		return nil, apperr.NotFound("sprint not found or has been deleted")
	}
	return sp, nil
}

func (s *SprintService) ListForProject(ctx context.Context, projectID, userID int64, f repository.SprintFilter, page pagination.Params) (pagination.Page[domain.Sprint], error) {
	members := projectrepo.NewMemberRepository(s.db)
	if err := members.CheckPermission(ctx, projectID, userID, access.Allowed(access.SprintRead)); err != nil {
		return pagination.Page[domain.Sprint]{}, err
	}

	page = page.Normalize()
	items, total, err := repository.NewSprintRepository(s.db).ListByProject(ctx, projectID, f, page)
	if err != nil {
		return pagination.Page[domain.Sprint]{}, err
	}
	return pagination.NewPage(items, total, page), nil
}

type UpdateSprintInput struct {
	Title       *string
	Description *string
	Status      *domain.SprintStatus
	StartDate   *time.Time
	EndDate     *time.Time
}

func (s *SprintService) Update(ctx context.Context, sprintID int64, in UpdateSprintInput, userID int64) (*domain.Sprint, error) {
	var updated *domain.Sprint
	err := s.tx.InTx(ctx, func(tx *sql.Tx) error {
		sprints := repository.NewSprintRepository(tx)
		members := projectrepo.NewMemberRepository(tx)
		history := repository.NewHistoryRepository(tx)

		sp, err := sprints.GetByID(ctx, sprintID, true)
		if err != nil {
			return err
		}
		if sp.DeletedAt != nil {
			return apperr.NotFound("sprint not found or has been deleted")
		}

		if err := members.CheckPermission(ctx, sp.ProjectID, userID, access.Allowed(access.SprintUpdate)); err != nil {
			return err
		}

		// Check the date invariant against the merged values, so moving one
		// bound cannot cross the other.
		start, end := sp.StartDate, sp.EndDate
		if in.StartDate != nil {
			start = *in.StartDate
		}
		if in.EndDate != nil {
			end = *in.EndDate
		}
		if err := validateDates(start, end); err != nil {
			return err
		}

		before := sp.Snapshot()

		sp, err = sprints.Update(ctx, sprintID, repository.UpdateSprintParams{
			Title:       in.Title,
			Description: in.Description,
			Status:      in.Status,
			StartDate:   in.StartDate,
			EndDate:     in.EndDate,
		})
		if err != nil {
			return err
		}

		details := domain.ChangeDetails{Before: before, After: sp.Snapshot()}
		if _, err := history.Record(ctx, sprintID, userID, projectdomain.ActionUpdate, details); err != nil {
			return err
		}
		updated = sp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *SprintService) Delete(ctx context.Context, sprintID, userID int64) error {
	return s.tx.InTx(ctx, func(tx *sql.Tx) error {
		sprints := repository.NewSprintRepository(tx)
		members := projectrepo.NewMemberRepository(tx)
		history := repository.NewHistoryRepository(tx)

		sp, err := sprints.GetByID(ctx, sprintID, true)
		if err != nil {
			return err
		}
		if sp.DeletedAt != nil {
			return apperr.NotFound("sprint not found or has been deleted")
		}

		if err := members.CheckPermission(ctx, sp.ProjectID, userID, access.Allowed(access.SprintDelete)); err != nil {
			return err
		}

		if _, err := history.Record(ctx, sprintID, userID, projectdomain.ActionDelete, nil); err != nil {
			return err
		}
		return sprints.SoftDelete(ctx, sprintID)
	})
}

// History lists a sprint's audit trail. The trail outlives soft deletion, so
// deleted sprints are still inspectable here.
func (s *SprintService) History(ctx context.Context, sprintID, userID int64) ([]domain.SprintHistory, error) {
	sp, err := repository.NewSprintRepository(s.db).GetByID(ctx, sprintID, false)
	if err != nil {
		return nil, err
	}

	members := projectrepo.NewMemberRepository(s.db)
	if err := members.CheckPermission(ctx, sp.ProjectID, userID, access.Allowed(access.SprintRead)); err != nil {
		return nil, err
	}
	return repository.NewHistoryRepository(s.db).ListBySprint(ctx, sprintID)
}
