package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"personnel-registry/backend/internal/account/domain"
)

// PostgresRepository implements Repository over a plain SQL connection.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a user repository backed by the given db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, email, first_name, last_name, role, status, password_hash, created_at, updated_at`

// FindBySubject returns the user with the given email, or ErrNotFound.
func (r *PostgresRepository) FindBySubject(ctx context.Context, subject string) (*domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, subject))
}

// FindByID returns the user with the given id, or ErrNotFound.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// Create persists a new user. The user must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, u *domain.User) error {
	const query = `
		INSERT INTO users (id, email, first_name, last_name, role, status, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.db.ExecContext(ctx, query,
		u.ID, u.Email, u.FirstName, u.LastName, string(u.Role), string(u.Status),
		u.PasswordHash, u.CreatedAt, u.UpdatedAt,
	)
	return err
}

// UpdatePassword replaces the stored credential blob for the given user.
func (r *PostgresRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	const query = `UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3`
	res, err := r.db.ExecContext(ctx, query, passwordHash, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// UpdateStatus sets the user's status (active/disabled).
func (r *PostgresRepository) UpdateStatus(ctx context.Context, id string, status domain.UserStatus) error {
	const query = `UPDATE users SET status = $1, updated_at = $2 WHERE id = $3`
	res, err := r.db.ExecContext(ctx, query, string(status), time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *PostgresRepository) scanOne(row *sql.Row) (*domain.User, error) {
	var u domain.User
	var role, status string
	err := row.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &role, &status,
		&u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	u.Role = domain.Role(role)
	u.Status = domain.UserStatus(status)
	return &u, nil
}

func requireAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
