package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/aiaccountant/internal/common"
	"github.com/dmitrijs2005/aiaccountant/internal/dbx"
	"github.com/dmitrijs2005/aiaccountant/internal/server/models"
)

// PostgresRepository implements session storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, userID string, title string) (*models.Session, error) {
	query := `
		INSERT INTO sessions (user_id, title)
		VALUES ($1, $2)
		RETURNING id, user_id, title, created_at
	`
	return r.scanOne(ctx, query, userID, title)
}

// ListByUser returns the sessions of userID, newest first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*models.Session, error) {
	query := `
		SELECT id, user_id, title, created_at FROM sessions
		WHERE user_id = $1
		ORDER BY created_at DESC, id
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Session, 0)
	for rows.Next() {
		var s models.Session
		if err := rows.Scan(&s.ID, &s.UserID, &s.Title, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) Get(ctx context.Context, userID string, id string) (*models.Session, error) {
	query := `
		SELECT id, user_id, title, created_at FROM sessions
		WHERE id = $1 AND user_id = $2
	`
	return r.scanOne(ctx, query, id, userID)
}

func (r *PostgresRepository) Rename(ctx context.Context, userID string, id string, title string) (*models.Session, error) {
	query := `
		UPDATE sessions SET title = $3
		WHERE id = $1 AND user_id = $2
		RETURNING id, user_id, title, created_at
	`
	return r.scanOne(ctx, query, id, userID, title)
}

// Delete removes the session in one statement; its messages are removed by
// ON DELETE CASCADE.
func (r *PostgresRepository) Delete(ctx context.Context, userID string, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) scanOne(ctx context.Context, query string, args ...any) (*models.Session, error) {
	s := &models.Session{}
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&s.ID, &s.UserID, &s.Title, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		if dbx.IsForeignKeyViolation(err) {
			// owner deleted concurrently
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}
