package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskforge-app/taskforge-backend/internal/apperr"
	projectdomain "github.com/taskforge-app/taskforge-backend/internal/projects/domain"
	"github.com/taskforge-app/taskforge-backend/internal/storage/postgres"
	"github.com/taskforge-app/taskforge-backend/internal/tasks/domain"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *postgres.Runner) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock, postgres.NewRunner(db, 0)
}

func taskRow(id, projectID int64, title string, status domain.TaskStatus, assignedTo *int64) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.
		NewRows([]string{"id", "project_id", "sprint_id", "parent_id", "assigned_to", "title", "description", "status", "priority", "due_date", "created_at", "updated_at", "deleted_at"}).
		AddRow(id, projectID, nil, nil, assignedTo, title, "", status, domain.PriorityMedium, nil, now, now, nil)
}

func memberRow(projectID, userID int64, role projectdomain.Role) *sqlmock.Rows {
	return sqlmock.
		NewRows([]string{"id", "project_id", "user_id", "role"}).
		AddRow(int64(1), projectID, userID, role)
}

func projectRow(id int64) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.
		NewRows([]string{"id", "title", "description", "status", "owner_user_id", "created_at", "updated_at", "deleted_at"}).
		AddRow(id, "Apollo", "", projectdomain.StatusActive, int64(7), now, now, nil)
}

func historyRow(taskID, actorID int64, action projectdomain.HistoryAction) *sqlmock.Rows {
	return sqlmock.
		NewRows([]string{"id", "task_id", "changed_by", "changed_at", "action", "details"}).
		AddRow(int64(1), taskID, actorID, time.Now(), action, nil)
}

func TestCreateTaskRejectsNonMemberAssignee(t *testing.T) {
	db, mock, runner := newMockDB(t)
	svc := NewTaskService(db, runner)

	mock.ExpectQuery("FROM project_members").
		WillReturnRows(memberRow(1, 7, projectdomain.RoleMember))
	mock.ExpectQuery("FROM projects").
		WillReturnRows(projectRow(1))
	// assignee lookup comes back empty
	mock.ExpectQuery("FROM project_members").
		WillReturnRows(sqlmock.NewRows([]string{"id", "project_id", "user_id", "role"}))

	outsider := int64(99)
	_, err := svc.Create(context.Background(), CreateTaskInput{
		ProjectID:  1,
		Title:      "Fix login",
		AssignedTo: &outsider,
	}, 7)
	assert.Equal(t, apperr.KindInvalidArgument, apperr.KindOf(err))
	assert.EqualError(t, err, "cannot assign task to user who is not a project member")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateTaskRejectsForeignSprint(t *testing.T) {
	db, mock, runner := newMockDB(t)
	svc := NewTaskService(db, runner)

	now := time.Now()
	mock.ExpectQuery("FROM project_members").
		WillReturnRows(memberRow(1, 7, projectdomain.RoleMember))
	mock.ExpectQuery("FROM projects").
		WillReturnRows(projectRow(1))
	// sprint exists but belongs to project 2
	mock.ExpectQuery("FROM sprints").
		WillReturnRows(sqlmock.
			NewRows([]string{"id", "project_id", "title", "description", "status", "start_date", "end_date", "created_at", "updated_at", "deleted_at"}).
			AddRow(int64(5), int64(2), "Sprint 1", "", "new", now, now, now, now, nil))

	sprintID := int64(5)
	_, err := svc.Create(context.Background(), CreateTaskInput{
		ProjectID: 1,
		Title:     "Fix login",
		SprintID:  &sprintID,
	}, 7)
	assert.Equal(t, apperr.KindInvalidArgument, apperr.KindOf(err))
	assert.EqualError(t, err, "sprint does not belong to the task's project")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateTaskInsertsAndAudits(t *testing.T) {
	db, mock, runner := newMockDB(t)
	svc := NewTaskService(db, runner)

	mock.ExpectQuery("FROM project_members").
		WillReturnRows(memberRow(1, 7, projectdomain.RoleMember))
	mock.ExpectQuery("FROM projects").
		WillReturnRows(projectRow(1))
	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO tasks").
		WillReturnRows(taskRow(9, 1, "Fix login", domain.StatusNew, nil))
	mock.ExpectQuery("INSERT INTO task_history").
		WithArgs(int64(9), int64(7), projectdomain.ActionCreate, nil).
		WillReturnRows(historyRow(9, 7, projectdomain.ActionCreate))
	mock.ExpectCommit()

	created, err := svc.Create(context.Background(), CreateTaskInput{
		ProjectID: 1,
		Title:     "Fix login",
	}, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(9), created.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateTaskAuditsBeforeAndAfter(t *testing.T) {
	db, mock, runner := newMockDB(t)
	svc := NewTaskService(db, runner)

	before := domain.Snapshot{
		Title:    "Fix login",
		Status:   domain.StatusTodo,
		Priority: domain.PriorityMedium,
	}
	after := before
	after.Status = domain.StatusDone
	wantDetails, err := json.Marshal(domain.ChangeDetails{Before: before, After: after})
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WillReturnRows(taskRow(9, 1, "Fix login", domain.StatusTodo, nil))
	mock.ExpectQuery("FROM project_members").
		WillReturnRows(memberRow(1, 7, projectdomain.RoleMember))
	mock.ExpectQuery("UPDATE tasks SET").
		WillReturnRows(taskRow(9, 1, "Fix login", domain.StatusDone, nil))
	mock.ExpectQuery("INSERT INTO task_history").
		WithArgs(int64(9), int64(7), projectdomain.ActionUpdate, wantDetails).
		WillReturnRows(historyRow(9, 7, projectdomain.ActionUpdate))
	mock.ExpectCommit()

	done := domain.StatusDone
	updated, err := svc.Update(context.Background(), 9, UpdateTaskInput{Status: &done}, 7)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDone, updated.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateTaskRejectsViewer(t *testing.T) {
	db, mock, runner := newMockDB(t)
	svc := NewTaskService(db, runner)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WillReturnRows(taskRow(9, 1, "Fix login", domain.StatusTodo, nil))
	mock.ExpectQuery("FROM project_members").
		WillReturnRows(memberRow(1, 7, projectdomain.RoleViewer))
	mock.ExpectRollback()

	done := domain.StatusDone
	_, err := svc.Update(context.Background(), 9, UpdateTaskInput{Status: &done}, 7)
	assert.Equal(t, apperr.KindPermissionDenied, apperr.KindOf(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteTaskMarksAchieved(t *testing.T) {
	db, mock, runner := newMockDB(t)
	svc := NewTaskService(db, runner)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WillReturnRows(taskRow(9, 1, "Fix login", domain.StatusDone, nil))
	mock.ExpectQuery("FROM project_members").
		WillReturnRows(memberRow(1, 7, projectdomain.RoleMember))
	mock.ExpectQuery("INSERT INTO task_history").
		WithArgs(int64(9), int64(7), projectdomain.ActionDelete, nil).
		WillReturnRows(historyRow(9, 7, projectdomain.ActionDelete))
	mock.ExpectExec("UPDATE tasks").
		WithArgs(int64(9), domain.StatusAchieved).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := svc.Delete(context.Background(), 9, 7)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDetailDoesNotRevealDeletionToNonMembers(t *testing.T) {
	db, mock, runner := newMockDB(t)
	svc := NewTaskService(db, runner)

	now := time.Now()
	mock.ExpectQuery("FROM tasks").
		WillReturnRows(sqlmock.
			NewRows([]string{"id", "project_id", "sprint_id", "parent_id", "assigned_to", "title", "description", "status", "priority", "due_date", "created_at", "updated_at", "deleted_at"}).
			AddRow(int64(9), int64(1), nil, nil, nil, "Fix login", "", domain.StatusDone, domain.PriorityMedium, nil, now, now, now))
	mock.ExpectQuery("FROM project_members").
		WillReturnRows(sqlmock.NewRows([]string{"id", "project_id", "user_id", "role"}))

	// a non-member gets the same answer for deleted and live tasks
	_, err := svc.Detail(context.Background(), 9, 99)
	assert.Equal(t, apperr.KindPermissionDenied, apperr.KindOf(err))
	require.NoError(t, mock.ExpectationsWereMet())
}
