package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskforge-app/taskforge-backend/internal/apperr"
	projectdomain "github.com/taskforge-app/taskforge-backend/internal/projects/domain"
	"github.com/taskforge-app/taskforge-backend/internal/sprints/domain"
	"github.com/taskforge-app/taskforge-backend/internal/storage/postgres"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *postgres.Runner) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock, postgres.NewRunner(db, 0)
}

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func sprintRow(id, projectID int64, start, end time.Time, deletedAt *time.Time) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.
		NewRows([]string{"id", "project_id", "title", "description", "status", "start_date", "end_date", "created_at", "updated_at", "deleted_at"}).
		AddRow(id, projectID, "Sprint 1", "", domain.StatusNew, start, end, now, now, deletedAt)
}

func memberRow(projectID, userID int64, role projectdomain.Role) *sqlmock.Rows {
	return sqlmock.
		NewRows([]string{"id", "project_id", "user_id", "role"}).
		AddRow(int64(1), projectID, userID, role)
}

func historyRow(sprintID, actorID int64, action projectdomain.HistoryAction) *sqlmock.Rows {
	return sqlmock.
		NewRows([]string{"id", "sprint_id", "changed_by", "changed_at", "action", "details"}).
		AddRow(int64(1), sprintID, actorID, time.Now(), action, nil)
}

func TestCreateSprintRejectsInvertedDates(t *testing.T) {
	db, mock, runner := newMockDB(t)
	svc := NewSprintService(db, runner)

	now := time.Now()
	mock.ExpectQuery("FROM project_members").
		WillReturnRows(memberRow(1, 7, projectdomain.RoleMaintainer))
	mock.ExpectQuery("FROM projects").
		WillReturnRows(sqlmock.
			NewRows([]string{"id", "title", "description", "status", "owner_user_id", "created_at", "updated_at", "deleted_at"}).
			AddRow(int64(1), "Apollo", "", projectdomain.StatusActive, int64(7), now, now, nil))

	_, err := svc.Create(context.Background(), CreateSprintInput{
		ProjectID: 1,
		Title:     "Sprint 1",
		StartDate: day("2026-03-10"),
		EndDate:   day("2026-03-01"),
	}, 7)
	assert.Equal(t, apperr.KindInvalidArgument, apperr.KindOf(err))
	// the transaction was never opened
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateSprintInsertsAndAudits(t *testing.T) {
	db, mock, runner := newMockDB(t)
	svc := NewSprintService(db, runner)

	now := time.Now()
	start, end := day("2026-03-01"), day("2026-03-14")

	mock.ExpectQuery("FROM project_members").
		WillReturnRows(memberRow(1, 7, projectdomain.RoleOwner))
	mock.ExpectQuery("FROM projects").
		WillReturnRows(sqlmock.
			NewRows([]string{"id", "title", "description", "status", "owner_user_id", "created_at", "updated_at", "deleted_at"}).
			AddRow(int64(1), "Apollo", "", projectdomain.StatusActive, int64(7), now, now, nil))
	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO sprints").
		WillReturnRows(sprintRow(3, 1, start, end, nil))
	mock.ExpectQuery("INSERT INTO sprint_history").
		WithArgs(int64(3), int64(7), projectdomain.ActionCreate, nil).
		WillReturnRows(historyRow(3, 7, projectdomain.ActionCreate))
	mock.ExpectCommit()

	sp, err := svc.Create(context.Background(), CreateSprintInput{
		ProjectID: 1,
		Title:     "Sprint 1",
		StartDate: start,
		EndDate:   end,
	}, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(3), sp.ID)
	assert.Equal(t, domain.StatusNew, sp.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateSprintRejectsCrossedBounds(t *testing.T) {
	db, mock, runner := newMockDB(t)
	svc := NewSprintService(db, runner)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WillReturnRows(sprintRow(3, 1, day("2026-03-01"), day("2026-03-14"), nil))
	mock.ExpectQuery("FROM project_members").
		WillReturnRows(memberRow(1, 7, projectdomain.RoleMaintainer))
	mock.ExpectRollback()

	// moving start past the existing end must fail even though the new start
	// is valid on its own
	start := day("2026-04-01")
	_, err := svc.Update(context.Background(), 3, UpdateSprintInput{StartDate: &start}, 7)
	assert.Equal(t, apperr.KindInvalidArgument, apperr.KindOf(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteSprintSoftDeletesAndAudits(t *testing.T) {
	db, mock, runner := newMockDB(t)
	svc := NewSprintService(db, runner)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WillReturnRows(sprintRow(3, 1, day("2026-03-01"), day("2026-03-14"), nil))
	mock.ExpectQuery("FROM project_members").
		WillReturnRows(memberRow(1, 7, projectdomain.RoleOwner))
	mock.ExpectQuery("INSERT INTO sprint_history").
		WithArgs(int64(3), int64(7), projectdomain.ActionDelete, nil).
		WillReturnRows(historyRow(3, 7, projectdomain.ActionDelete))
	mock.ExpectExec("UPDATE sprints").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := svc.Delete(context.Background(), 3, 7)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSprintHistorySurvivesDeletion(t *testing.T) {
	db, mock, runner := newMockDB(t)
	svc := NewSprintService(db, runner)

	deleted := time.Now()
	mock.ExpectQuery("FROM sprints").
		WillReturnRows(sprintRow(3, 1, day("2026-03-01"), day("2026-03-14"), &deleted))
	mock.ExpectQuery("FROM project_members").
		WillReturnRows(memberRow(1, 7, projectdomain.RoleViewer))
	mock.ExpectQuery("FROM sprint_history").
		WillReturnRows(historyRow(3, 7, projectdomain.ActionDelete))

	records, err := svc.History(context.Background(), 3, 7)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "delete", records[0].Action)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDetailDoesNotRevealDeletionToNonMembers(t *testing.T) {
	db, mock, runner := newMockDB(t)
	svc := NewSprintService(db, runner)

	deleted := time.Now()
	mock.ExpectQuery("FROM sprints").
		WillReturnRows(sprintRow(3, 1, day("2026-03-01"), day("2026-03-14"), &deleted))
	mock.ExpectQuery("FROM project_members").
		WillReturnRows(sqlmock.NewRows([]string{"id", "project_id", "user_id", "role"}))

	// a non-member gets the same answer for deleted and live sprints
	_, err := svc.Detail(context.Background(), 3, 99)
	assert.Equal(t, apperr.KindPermissionDenied, apperr.KindOf(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDetailHidesSoftDeletedFromMembers(t *testing.T) {
	db, mock, runner := newMockDB(t)
	svc := NewSprintService(db, runner)

	deleted := time.Now()
	mock.ExpectQuery("FROM sprints").
		WillReturnRows(sprintRow(3, 1, day("2026-03-01"), day("2026-03-14"), &deleted))
	mock.ExpectQuery("FROM project_members").
		WillReturnRows(memberRow(1, 7, projectdomain.RoleViewer))

	_, err := svc.Detail(context.Background(), 3, 7)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	require.NoError(t, mock.ExpectationsWereMet())
}
