package service

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskforge-app/taskforge-backend/internal/apperr"
	"github.com/taskforge-app/taskforge-backend/internal/projects/domain"
)

func TestAddMemberDuplicateIsConflict(t *testing.T) {
	db, mock, runner := newMockDB(t)
	svc := NewMemberService(db, runner)

	mock.ExpectQuery("FROM project_members").
		WillReturnRows(memberRow(1, 7, domain.RoleOwner))
	mock.ExpectQuery("FROM projects").
		WillReturnRows(projectRow(1, "Apollo", domain.StatusActive, nil))
	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO project_members").
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	_, err := svc.AddMember(context.Background(), 1, 42, domain.RoleMember, 7)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAddMemberRecordsAudit(t *testing.T) {
	db, mock, runner := newMockDB(t)
	svc := NewMemberService(db, runner)

	mock.ExpectQuery("FROM project_members").
		WillReturnRows(memberRow(1, 7, domain.RoleMaintainer))
	mock.ExpectQuery("FROM projects").
		WillReturnRows(projectRow(1, "Apollo", domain.StatusActive, nil))
	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO project_members").
		WillReturnRows(memberRow(1, 42, domain.RoleMember))
	mock.ExpectQuery("INSERT INTO project_history").
		WithArgs(int64(1), int64(7), domain.ActionAdjustMember, sqlmock.AnyArg()).
		WillReturnRows(historyRow(1, 7, domain.ActionAdjustMember))
	mock.ExpectCommit()

	m, err := svc.AddMember(context.Background(), 1, 42, domain.RoleMember, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(42), m.UserID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRemoveMemberKeepsLastOwner(t *testing.T) {
	db, mock, runner := newMockDB(t)
	svc := NewMemberService(db, runner)

	mock.ExpectQuery("FROM project_members").
		WillReturnRows(memberRow(1, 7, domain.RoleOwner))
	mock.ExpectBegin()
	mock.ExpectQuery("FROM project_members").
		WillReturnRows(memberRow(1, 7, domain.RoleOwner))
	mock.ExpectQuery("SELECT count").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	err := svc.RemoveMember(context.Background(), 1, 7, 7)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.EqualError(t, err, "cannot remove the last owner of a project")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRemoveMemberDeletesAndAudits(t *testing.T) {
	db, mock, runner := newMockDB(t)
	svc := NewMemberService(db, runner)

	mock.ExpectQuery("FROM project_members").
		WillReturnRows(memberRow(1, 7, domain.RoleOwner))
	mock.ExpectBegin()
	mock.ExpectQuery("FROM project_members").
		WillReturnRows(memberRow(1, 42, domain.RoleMember))
	mock.ExpectExec("DELETE FROM project_members").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("INSERT INTO project_history").
		WithArgs(int64(1), int64(7), domain.ActionAdjustMember, sqlmock.AnyArg()).
		WillReturnRows(historyRow(1, 7, domain.ActionAdjustMember))
	mock.ExpectCommit()

	err := svc.RemoveMember(context.Background(), 1, 42, 7)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRemoveMemberMissingIsNotFound(t *testing.T) {
	db, mock, runner := newMockDB(t)
	svc := NewMemberService(db, runner)

	mock.ExpectQuery("FROM project_members").
		WillReturnRows(memberRow(1, 7, domain.RoleOwner))
	mock.ExpectBegin()
	mock.ExpectQuery("FROM project_members").
		WillReturnRows(sqlmock.NewRows([]string{"id", "project_id", "user_id", "role"}))
	mock.ExpectRollback()

	err := svc.RemoveMember(context.Background(), 1, 42, 7)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	require.NoError(t, mock.ExpectationsWereMet())
}
