package repository

import (
	"context"
	"encoding/json"

	"github.com/taskforge-app/taskforge-backend/internal/projects/domain"
	"github.com/taskforge-app/taskforge-backend/internal/storage/postgres"
)

// HistoryRepository appends immutable project audit records. Record only
// stages the insert; committing is the caller's transaction's business.
type HistoryRepository struct {
	db postgres.DBTX
}

func NewHistoryRepository(db postgres.DBTX) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Record appends one history row. details may be nil (create/delete) or any
// JSON-marshalable payload ({before, after} for updates, member payload for
// adjust_member).
func (r *HistoryRepository) Record(ctx context.Context, projectID, actorID int64, action domain.HistoryAction, details any) (*domain.ProjectHistory, error) {
	var raw []byte
	if details != nil {
		var err error
		raw, err = json.Marshal(details)
		if err != nil {
			return nil, err
		}
	}

	const q = `
INSERT INTO project_history (project_id, changed_by, action, details)
VALUES ($1, $2, $3, $4)
RETURNING id, project_id, changed_by, changed_at, action, details;
`
	// details is NULL for create/delete rows; only a []byte dest accepts a
	// NULL scan, so go through one instead of RawMessage directly.
	var h domain.ProjectHistory
	var scanned []byte
	err := r.db.QueryRowContext(ctx, q, projectID, actorID, action, nullableJSON(raw)).
		Scan(&h.ID, &h.ProjectID, &h.ChangedBy, &h.ChangedAt, &h.Action, &scanned)
	if err != nil {
		return nil, postgres.Err(err)
	}
	h.Details = scanned
	return &h, nil
}

func (r *HistoryRepository) ListByProject(ctx context.Context, projectID int64) ([]domain.ProjectHistory, error) {
	const q = `
SELECT id, project_id, changed_by, changed_at, action, details
FROM project_history
WHERE project_id = $1
ORDER BY changed_at DESC, id DESC;
`
	rows, err := r.db.QueryContext(ctx, q, projectID)
	if err != nil {
		return nil, postgres.Err(err)
	}
	defer rows.Close()

	out := make([]domain.ProjectHistory, 0, 16)
	for rows.Next() {
		var h domain.ProjectHistory
		var details []byte
		if err := rows.Scan(&h.ID, &h.ProjectID, &h.ChangedBy, &h.ChangedAt, &h.Action, &details); err != nil {
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

// nullableJSON keeps NULL in the details column instead of the string "null".
func nullableJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return raw
}
