package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/taskforge-app/taskforge-backend/internal/apperr"
	"github.com/taskforge-app/taskforge-backend/internal/auth/domain"
	"github.com/taskforge-app/taskforge-backend/internal/storage/postgres"
)

const userColumns = "id, email, full_name, password_hash, created_at, updated_at"

type UserRepository struct {
	db postgres.DBTX
}

func NewUserRepository(db postgres.DBTX) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row interface{ Scan(...any) error }) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Email, &u.FullName, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a new user. A duplicate email hits the unique index and is
// reported as a conflict.
func (r *UserRepository) Create(ctx context.Context, email, fullName, passwordHash string) (*domain.User, error) {
	const q = `
INSERT INTO users (email, full_name, password_hash)
VALUES ($1, $2, $3)
RETURNING ` + userColumns + `;
`
	u, err := scanUser(r.db.QueryRowContext(ctx, q, email, fullName, passwordHash))
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return nil, apperr.Conflict("email already registered")
		}
		return nil, postgres.Err(err)
	}
	return u, nil
}

// GetByEmail returns nil when no user exists with that email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE email = $1;`
	u, err := scanUser(r.db.QueryRowContext(ctx, q, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, postgres.Err(err)
	}
	return u, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id = $1;`
	u, err := scanUser(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, postgres.Err(err)
	}
	return u, nil
}
