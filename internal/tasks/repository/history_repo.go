package repository

import (
	"context"
	"encoding/json"

	projectdomain "github.com/taskforge-app/taskforge-backend/internal/projects/domain"
	"github.com/taskforge-app/taskforge-backend/internal/storage/postgres"
	"github.com/taskforge-app/taskforge-backend/internal/tasks/domain"
)

// HistoryRepository appends immutable task audit records.
type HistoryRepository struct {
	db postgres.DBTX
}

func NewHistoryRepository(db postgres.DBTX) *HistoryRepository {
	return &HistoryRepository{db: db}
}

func (r *HistoryRepository) Record(ctx context.Context, taskID, actorID int64, action projectdomain.HistoryAction, details any) (*domain.TaskHistory, error) {
	var raw []byte
	if details != nil {
		var err error
		raw, err = json.Marshal(details)
		if err != nil {
			return nil, err
		}
	}

	const q = `
INSERT INTO task_history (task_id, changed_by, action, details)
VALUES ($1, $2, $3, $4)
RETURNING id, task_id, changed_by, changed_at, action, details;
`
	var h domain.TaskHistory
	var payload any
	if len(raw) > 0 {
		payload = raw
	}
	// details comes back NULL on create/delete rows; scan through []byte,
	// the only dest that accepts a NULL value.
	var scanned []byte
	err := r.db.QueryRowContext(ctx, q, taskID, actorID, action, payload).
		Scan(&h.ID, &h.TaskID, &h.ChangedBy, &h.ChangedAt, &h.Action, &scanned)
	if err != nil {
		return nil, postgres.Err(err)
	}
	h.Details = scanned
	return &h, nil
}

func (r *HistoryRepository) ListByTask(ctx context.Context, taskID int64) ([]domain.TaskHistory, error) {
	const q = `
SELECT id, task_id, changed_by, changed_at, action, details
FROM task_history
WHERE task_id = $1
ORDER BY changed_at DESC, id DESC;
`
	rows, err := r.db.QueryContext(ctx, q, taskID)
	if err != nil {
		return nil, postgres.Err(err)
	}
	defer rows.Close()

	out := make([]domain.TaskHistory, 0, 16)
	for rows.Next() {
		var h domain.TaskHistory
		var details []byte
		if err := rows.Scan(&h.ID, &h.TaskID, &h.ChangedBy, &h.ChangedAt, &h.Action, &details); err != nil {
			return nil, postgres.Err(err)
		}
		h.Details = details
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, postgres.Err(err)
	}
	return out, nil
}
