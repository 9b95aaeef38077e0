package service

import (
	"context"
	"database/sql"

	"github.com/taskforge-app/taskforge-backend/internal/access"
	"github.com/taskforge-app/taskforge-backend/internal/apperr"
	"github.com/taskforge-app/taskforge-backend/internal/projects/domain"
	"github.com/taskforge-app/taskforge-backend/internal/projects/repository"
	"github.com/taskforge-app/taskforge-backend/internal/storage/postgres"
)

// MemberService manages project memberships. Changes are audited with
// adjust_member history rows in the same transaction.
type MemberService struct {
	db *sql.DB
	tx *postgres.Runner
}

func NewMemberService(db *sql.DB, tx *postgres.Runner) *MemberService {
	return &MemberService{db: db, tx: tx}
}

func (s *MemberService) AddMember(ctx context.Context, projectID, userID int64, role domain.Role, actorID int64) (*domain.ProjectMember, error) {
	members := repository.NewMemberRepository(s.db)
	if err := members.CheckPermission(ctx, projectID, actorID, access.Allowed(access.MemberAdd)); err != nil {
		return nil, err
	}

	p, err := repository.NewProjectRepository(s.db).GetByID(ctx, projectID, false)
	if err != nil {
		return nil, err
	}
	if p.DeletedAt != nil {
		return nil, apperr.NotFound("project not found or has been deleted")
	}

	var added *domain.ProjectMember
	err = s.tx.InTx(ctx, func(tx *sql.Tx) error {
		txMembers := repository.NewMemberRepository(tx)
		history := repository.NewHistoryRepository(tx)

		m, err := txMembers.Add(ctx, projectID, userID, role)
		if err != nil {
			return err
		}
		details := domain.MemberDetails{UserID: userID, Role: role, Op: "add"}
		if _, err := history.Record(ctx, projectID, actorID, domain.ActionAdjustMember, details); err != nil {
			return err
		}
		added = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return added, nil
}

// RemoveMember deletes a membership. Removing the project's only owner is
// rejected so every active project keeps at least one owner.
func (s *MemberService) RemoveMember(ctx context.Context, projectID, userID, actorID int64) error {
	members := repository.NewMemberRepository(s.db)
	if err := members.CheckPermission(ctx, projectID, actorID, access.Allowed(access.MemberRemove)); err != nil {
		return err
	}

	return s.tx.InTx(ctx, func(tx *sql.Tx) error {
		txMembers := repository.NewMemberRepository(tx)
		history := repository.NewHistoryRepository(tx)

		m, err := txMembers.GetMember(ctx, projectID, userID)
		if err != nil {
			return err
		}
		if m == nil {
			return apperr.NotFound("member not found")
		}
		if m.Role == domain.RoleOwner {
			owners, err := txMembers.CountOwners(ctx, projectID)
			if err != nil {
				return err
			}
			if owners <= 1 {
				return apperr.Conflict("cannot remove the last owner of a project")
			}
		}

		if err := txMembers.Remove(ctx, projectID, userID); err != nil {
			return err
		}
		details := domain.MemberDetails{UserID: userID, Role: m.Role, Op: "remove"}
		_, err = history.Record(ctx, projectID, actorID, domain.ActionAdjustMember, details)
		return err
	})
}

func (s *MemberService) ListMembers(ctx context.Context, projectID, userID int64) ([]domain.ProjectMember, error) {
	members := repository.NewMemberRepository(s.db)
	if err := members.CheckPermission(ctx, projectID, userID, access.Allowed(access.MemberList)); err != nil {
		return nil, err
	}
	return members.ListByProject(ctx, projectID)
}
