package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskforge-app/taskforge-backend/internal/apperr"
	"github.com/taskforge-app/taskforge-backend/internal/projects/domain"
	"github.com/taskforge-app/taskforge-backend/internal/storage/postgres"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *postgres.Runner) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock, postgres.NewRunner(db, 0)
}

func projectRow(id int64, title string, status domain.ProjectStatus, deletedAt *time.Time) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.
		NewRows([]string{"id", "title", "description", "status", "owner_user_id", "created_at", "updated_at", "deleted_at"}).
		AddRow(id, title, "", status, int64(7), now, now, deletedAt)
}

func memberRow(projectID, userID int64, role domain.Role) *sqlmock.Rows {
	return sqlmock.
		NewRows([]string{"id", "project_id", "user_id", "role"}).
		AddRow(int64(1), projectID, userID, role)
}

func historyRow(projectID, actorID int64, action domain.HistoryAction) *sqlmock.Rows {
	return sqlmock.
		NewRows([]string{"id", "project_id", "changed_by", "changed_at", "action", "details"}).
		AddRow(int64(1), projectID, actorID, time.Now(), action, nil)
}

func TestCreateProjectWritesAllThreeRows(t *testing.T) {
	db, mock, runner := newMockDB(t)
	svc := NewProjectService(db, runner)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO projects").
		WillReturnRows(projectRow(1, "Apollo", domain.StatusPlanned, nil))
	mock.ExpectQuery("INSERT INTO project_members").
		WillReturnRows(memberRow(1, 7, domain.RoleOwner))
	mock.ExpectQuery("INSERT INTO project_history").
		WithArgs(int64(1), int64(7), domain.ActionCreate, nil).
		WillReturnRows(historyRow(1, 7, domain.ActionCreate))
	mock.ExpectCommit()

	p, err := svc.Create(context.Background(), CreateProjectInput{Title: "Apollo"}, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.ID)
	assert.Equal(t, domain.StatusPlanned, p.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateProjectRollsBackWhenAuditFails(t *testing.T) {
	db, mock, runner := newMockDB(t)
	svc := NewProjectService(db, runner)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO projects").
		WillReturnRows(projectRow(1, "Apollo", domain.StatusPlanned, nil))
	mock.ExpectQuery("INSERT INTO project_members").
		WillReturnRows(memberRow(1, 7, domain.RoleOwner))
	mock.ExpectQuery("INSERT INTO project_history").
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := svc.Create(context.Background(), CreateProjectInput{Title: "Apollo"}, 7)
	assert.Equal(t, apperr.KindStorage, apperr.KindOf(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDetailRejectsNonMember(t *testing.T) {
	db, mock, runner := newMockDB(t)
	svc := NewProjectService(db, runner)

	mock.ExpectQuery("FROM project_members").
		WillReturnRows(sqlmock.NewRows([]string{"id", "project_id", "user_id", "role"}))

	_, err := svc.Detail(context.Background(), 1, 99)
	assert.Equal(t, apperr.KindPermissionDenied, apperr.KindOf(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDetailHidesSoftDeletedProject(t *testing.T) {
	db, mock, runner := newMockDB(t)
	svc := NewProjectService(db, runner)

	deleted := time.Now()
	mock.ExpectQuery("FROM project_members").
		WillReturnRows(memberRow(1, 7, domain.RoleViewer))
	mock.ExpectQuery("FROM projects").
		WillReturnRows(projectRow(1, "Apollo", domain.StatusArchived, &deleted))

	_, err := svc.Detail(context.Background(), 1, 7)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateProjectAuditsBeforeAndAfter(t *testing.T) {
	db, mock, runner := newMockDB(t)
	svc := NewProjectService(db, runner)

	mock.ExpectQuery("FROM project_members").
		WillReturnRows(memberRow(1, 7, domain.RoleMaintainer))
	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WillReturnRows(projectRow(1, "Old title", domain.StatusPlanned, nil))
	mock.ExpectQuery("UPDATE projects SET").
		WillReturnRows(projectRow(1, "New title", domain.StatusPlanned, nil))
	mock.ExpectQuery("INSERT INTO project_history").
		WithArgs(int64(1), int64(7), domain.ActionUpdate, sqlmock.AnyArg()).
		WillReturnRows(historyRow(1, 7, domain.ActionUpdate))
	mock.ExpectCommit()

	title := "New title"
	p, err := svc.Update(context.Background(), 1, UpdateProjectInput{Title: &title}, 7)
	require.NoError(t, err)
	assert.Equal(t, "New title", p.Title)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateRejectsViewer(t *testing.T) {
	db, mock, runner := newMockDB(t)
	svc := NewProjectService(db, runner)

	mock.ExpectQuery("FROM project_members").
		WillReturnRows(memberRow(1, 7, domain.RoleViewer))

	title := "New title"
	_, err := svc.Update(context.Background(), 1, UpdateProjectInput{Title: &title}, 7)
	assert.Equal(t, apperr.KindPermissionDenied, apperr.KindOf(err))
	// no transaction was opened, so no writes could have happened
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteProjectSoftDeletesAndAudits(t *testing.T) {
	db, mock, runner := newMockDB(t)
	svc := NewProjectService(db, runner)

	mock.ExpectQuery("FROM project_members").
		WillReturnRows(memberRow(1, 7, domain.RoleOwner))
	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WillReturnRows(projectRow(1, "Apollo", domain.StatusActive, nil))
	mock.ExpectQuery("INSERT INTO project_history").
		WithArgs(int64(1), int64(7), domain.ActionDelete, nil).
		WillReturnRows(historyRow(1, 7, domain.ActionDelete))
	mock.ExpectExec("UPDATE projects").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := svc.Delete(context.Background(), 1, 7)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteProjectIsOwnerOnly(t *testing.T) {
	db, mock, runner := newMockDB(t)
	svc := NewProjectService(db, runner)

	mock.ExpectQuery("FROM project_members").
		WillReturnRows(memberRow(1, 7, domain.RoleMaintainer))

	err := svc.Delete(context.Background(), 1, 7)
	assert.Equal(t, apperr.KindPermissionDenied, apperr.KindOf(err))
	require.NoError(t, mock.ExpectationsWereMet())
}
