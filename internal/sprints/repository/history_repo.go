package repository

import (
	"context"
	"encoding/json"

	projectdomain "github.com/taskforge-app/taskforge-backend/internal/projects/domain"
	"github.com/taskforge-app/taskforge-backend/internal/sprints/domain"
	"github.com/taskforge-app/taskforge-backend/internal/storage/postgres"
)

// HistoryRepository appends immutable sprint audit records.
type HistoryRepository struct {
	db postgres.DBTX
}

func NewHistoryRepository(db postgres.DBTX) *HistoryRepository {
	return &HistoryRepository{db: db}
}

func (r *HistoryRepository) Record(ctx context.Context, sprintID, actorID int64, action projectdomain.HistoryAction, details any) (*domain.SprintHistory, error) {
	var raw []byte
	if details != nil {
		var err error
		raw, err = json.Marshal(details)
		if err != nil {
			return nil, err
		}
	}

	const q = `
INSERT INTO sprint_history (sprint_id, changed_by, action, details)
VALUES ($1, $2, $3, $4)
RETURNING id, sprint_id, changed_by, changed_at, action, details;
`
	var h domain.SprintHistory
	var payload any
	if len(raw) > 0 {
		payload = raw
	}
	// details comes back NULL on create/delete rows; scan through []byte,
	// the only dest that accepts a NULL value.
	var scanned []byte
	err := r.db.QueryRowContext(ctx, q, sprintID, actorID, action, payload).
		Scan(&h.ID, &h.SprintID, &h.ChangedBy, &h.ChangedAt, &h.Action, &scanned)
	if err != nil {
		return nil, postgres.Err(err)
	}
	h.Details = scanned
	return &h, nil
}

func (r *HistoryRepository) ListBySprint(ctx context.Context, sprintID int64) ([]domain.SprintHistory, error) {
	const q = `
SELECT id, sprint_id, changed_by, changed_at, action, details
FROM sprint_history
WHERE sprint_id = $1
ORDER BY changed_at DESC, id DESC;
`
	rows, err := r.db.QueryContext(ctx, q, sprintID)
	if err != nil {
		return nil, postgres.Err(err)
	}
	defer rows.Close()

	out := make([]domain.SprintHistory, 0, 16)
	for rows.Next() {
		var h domain.SprintHistory
		var details []byte
		if err := rows.Scan(&h.ID, &h.SprintID, &h.ChangedBy, &h.ChangedAt, &h.Action, &details); err != nil {
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
