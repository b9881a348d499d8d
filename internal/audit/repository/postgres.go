package repository

import (
	"context"
	"database/sql"

	"personnel-registry/backend/internal/audit/domain"
)

// PostgresRepository implements Repository over a plain SQL connection.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an audit event repository backed by the given db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create appends one audit event. The event must have ID and CreatedAt set.
func (r *PostgresRepository) Create(ctx context.Context, e *domain.Event) error {
	const query = `
		INSERT INTO audit_events (id, user_id, user_email, user_name, table_name, record_id,
			action, old_values, new_values, ip_address, user_agent, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	uid := sql.NullString{String: e.UserID, Valid: e.UserID != ""}
	_, err := r.db.ExecContext(ctx, query,
		e.ID, uid, e.UserEmail, e.UserName, e.TableName, e.RecordID,
		string(e.Action), e.OldValues, e.NewValues, e.IPAddress, e.UserAgent,
		e.Description, e.CreatedAt,
	)
	return err
}

// ListRecent returns the newest audit events, paginated by limit and offset.
func (r *PostgresRepository) ListRecent(ctx context.Context, limit, offset int32) ([]*domain.Event, error) {
	const query = `
		SELECT id, user_id, user_email, user_name, table_name, record_id,
			action, old_values, new_values, ip_address, user_agent, description, created_at
		FROM audit_events
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`
	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Event
	for rows.Next() {
		var e domain.Event
		var uid sql.NullString
		var action string
		if err := rows.Scan(&e.ID, &uid, &e.UserEmail, &e.UserName, &e.TableName, &e.RecordID,
			&action, &e.OldValues, &e.NewValues, &e.IPAddress, &e.UserAgent,
			&e.Description, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.UserID = uid.String
		e.Action = domain.Action(action)
		out = append(out, &e)
	}
	return out, rows.Err()
}
