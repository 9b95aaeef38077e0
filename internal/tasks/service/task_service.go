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
	sprintrepo "github.com/taskforge-app/taskforge-backend/internal/sprints/repository"
	"github.com/taskforge-app/taskforge-backend/internal/storage/postgres"
	"github.com/taskforge-app/taskforge-backend/internal/tasks/domain"
	"github.com/taskforge-app/taskforge-backend/internal/tasks/repository"
)

type TaskService struct {
	db *sql.DB
	tx *postgres.Runner
}

func NewTaskService(db *sql.DB, tx *postgres.Runner) *TaskService {
	return &TaskService{db: db, tx: tx}
}

// validateAssignee ensures the assignee is a member of the task's project.
func validateAssignee(ctx context.Context, db postgres.DBTX, projectID int64, assignedTo *int64) error {
	if assignedTo == nil {
		return nil
	}
	m, err := projectrepo.NewMemberRepository(db).GetMember(ctx, projectID, *assignedTo)
	if err != nil {
		return err
	}
	if m == nil {
		return apperr.InvalidArgument("cannot assign task to user who is not a project member")
	}
	return nil
}

// validateSprint ensures the referenced sprint exists, is not deleted and
// belongs to the same project as the task.
func validateSprint(ctx context.Context, db postgres.DBTX, projectID int64, sprintID *int64) error {
	if sprintID == nil {
		return nil
	}
	sp, err := sprintrepo.NewSprintRepository(db).GetByID(ctx, *sprintID, false)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return apperr.InvalidArgument("sprint does not exist")
		}
		return err
	}
	if sp.DeletedAt != nil {
		return apperr.InvalidArgument("sprint does not exist")
	}
	if sp.ProjectID != projectID {
		return apperr.InvalidArgument("sprint does not belong to the task's project")
	}
	return nil
}

type CreateTaskInput struct {
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

func (s *TaskService) Create(ctx context.Context, in CreateTaskInput, userID int64) (*domain.Task, error) {
	members := projectrepo.NewMemberRepository(s.db)
	if err := members.CheckPermission(ctx, in.ProjectID, userID, access.Allowed(access.TaskCreate)); err != nil {
		return nil, err
	}

	project, err := projectrepo.NewProjectRepository(s.db).GetByID(ctx, in.ProjectID, false)
	if err != nil {
		return nil, err
	}
	if project.DeletedAt != nil {
		return nil, apperr.NotFound("project not found or has been deleted")
	}

	if err := validateAssignee(ctx, s.db, in.ProjectID, in.AssignedTo); err != nil {
		return nil, err
	}
	if err := validateSprint(ctx, s.db, in.ProjectID, in.SprintID); err != nil {
		return nil, err
	}

	var created *domain.Task
	err = s.tx.InTx(ctx, func(tx *sql.Tx) error {
		tasks := repository.NewTaskRepository(tx)
		history := repository.NewHistoryRepository(tx)

		t, err := tasks.Insert(ctx, repository.InsertTaskParams{
			ProjectID:   in.ProjectID,
			SprintID:    in.SprintID,
			ParentID:    in.ParentID,
			AssignedTo:  in.AssignedTo,
			Title:       in.Title,
			Description: in.Description,
			Status:      in.Status,
			Priority:    in.Priority,
			DueDate:     in.DueDate,
		})
		if err != nil {
			return err
		}
		if _, err := history.Record(ctx, t.ID, userID, projectdomain.ActionCreate, nil); err != nil {
			return err
		}
		created = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *TaskService) Detail(ctx context.Context, taskID, userID int64) (*domain.Task, error) {
	t, err := repository.NewTaskRepository(s.db).GetByID(ctx, taskID, false)
	if err != nil {
		return nil, err
	}

	// Authorize before looking at deleted_at so non-members cannot tell a
	// soft-deleted task from a live one.
	members := projectrepo.NewMemberRepository(s.db)
	if err := members.CheckPermission(ctx, t.ProjectID, userID, access.Allowed(access.TaskRead)); err != nil {
		return nil, err
	}
	if t.DeletedAt != nil {
		return nil, apperr.NotFound("task not found or has been deleted")
	}
	return t, nil
}

func (s *TaskService) ListForProject(ctx context.Context, projectID, userID int64, f repository.TaskFilter, page pagination.Params) (pagination.Page[domain.Task], error) {
	members := projectrepo.NewMemberRepository(s.db)
	if err := members.CheckPermission(ctx, projectID, userID, access.Allowed(access.TaskRead)); err != nil {
		return pagination.Page[domain.Task]{}, err
	}

	page = page.Normalize()
	items, total, err := repository.NewTaskRepository(s.db).ListByProject(ctx, projectID, f, page)
	if err != nil {
		return pagination.Page[domain.Task]{}, err
	}
	return pagination.NewPage(items, total, page), nil
}

type UpdateTaskInput struct {
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

func (s *TaskService) Update(ctx context.Context, taskID int64, in UpdateTaskInput, userID int64) (*domain.Task, error) {
	var updated *domain.Task
	err := s.tx.InTx(ctx, func(tx *sql.Tx) error {
		tasks := repository.NewTaskRepository(tx)
		members := projectrepo.NewMemberRepository(tx)
		history := repository.NewHistoryRepository(tx)

		t, err := tasks.GetByID(ctx, taskID, true)
		if err != nil {
			return err
		}
		if t.DeletedAt != nil {
			return apperr.NotFound("task not found or has been deleted")
		}

		if err := members.CheckPermission(ctx, t.ProjectID, userID, access.Allowed(access.TaskUpdate)); err != nil {
			return err
		}

		if !in.ClearAssignee {
			if err := validateAssignee(ctx, tx, t.ProjectID, in.AssignedTo); err != nil {
				return err
			}
		}
		if !in.ClearSprint {
			if err := validateSprint(ctx, tx, t.ProjectID, in.SprintID); err != nil {
				return err
			}
		}

		before := t.Snapshot()

		t, err = tasks.Update(ctx, taskID, repository.UpdateTaskParams{
			Title:         in.Title,
			Description:   in.Description,
			Status:        in.Status,
			Priority:      in.Priority,
			AssignedTo:    in.AssignedTo,
			ClearAssignee: in.ClearAssignee,
			SprintID:      in.SprintID,
			ClearSprint:   in.ClearSprint,
			DueDate:       in.DueDate,
			ClearDue:      in.ClearDue,
		})
		if err != nil {
			return err
		}

		details := domain.ChangeDetails{Before: before, After: t.Snapshot()}
		if _, err := history.Record(ctx, taskID, userID, projectdomain.ActionUpdate, details); err != nil {
			return err
		}
		updated = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *TaskService) Delete(ctx context.Context, taskID, userID int64) error {
	return s.tx.InTx(ctx, func(tx *sql.Tx) error {
		tasks := repository.NewTaskRepository(tx)
		members := projectrepo.NewMemberRepository(tx)
		history := repository.NewHistoryRepository(tx)

		t, err := tasks.GetByID(ctx, taskID, true)
		if err != nil {
			return err
		}
		if t.DeletedAt != nil {
			return apperr.NotFound("task not found or has been deleted")
		}

		if err := members.CheckPermission(ctx, t.ProjectID, userID, access.Allowed(access.TaskDelete)); err != nil {
			return err
		}

		if _, err := history.Record(ctx, taskID, userID, projectdomain.ActionDelete, nil); err != nil {
			return err
		}
		return tasks.SoftDelete(ctx, taskID)
	})
}

// History lists a task's audit trail; it outlives soft deletion.
func (s *TaskService) History(ctx context.Context, taskID, userID int64) ([]domain.TaskHistory, error) {
	t, err := repository.NewTaskRepository(s.db).GetByID(ctx, taskID, false)
	if err != nil {
		return nil, err
	}

	members := projectrepo.NewMemberRepository(s.db)
	if err := members.CheckPermission(ctx, t.ProjectID, userID, access.Allowed(access.TaskRead)); err != nil {
		return nil, err
	}
	return repository.NewHistoryRepository(s.db).ListByTask(ctx, taskID)
}
