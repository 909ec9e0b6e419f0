package messages

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/aiaccountant/internal/common"
	"github.com/dmitrijs2005/aiaccountant/internal/dbx"
	"github.com/dmitrijs2005/aiaccountant/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Add(ctx context.Context, msg *models.Message) (*models.Message, error) {
	if !msg.Role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", common.ErrorValidation, msg.Role)
	}

	query := `
		INSERT INTO messages (session_id, role, text)
		VALUES ($1, $2, $3)
		RETURNING id, seq, created_at
	`
	err := r.db.QueryRowContext(ctx, query, msg.SessionID, string(msg.Role), msg.Text).
		Scan(&msg.ID, &msg.Seq, &msg.CreatedAt)
	if err != nil {
		if dbx.IsForeignKeyViolation(err) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return msg, nil
}

func (r *PostgresRepository) ListForOwner(ctx context.Context, userID string, sessionID string) ([]*models.Message, error) {
	query := `
		SELECT m.id, m.session_id, m.seq, m.role, m.text, m.created_at
		FROM messages m
		JOIN sessions s ON s.id = m.session_id
		WHERE m.session_id = $1 AND s.user_id = $2
		ORDER BY m.created_at, m.seq
	`
	rows, err := r.db.QueryContext(ctx, query, sessionID, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return scanAll(rows)
}

func (r *PostgresRepository) Recent(ctx context.Context, sessionID string, n int) ([]*models.Message, error) {
	if n <= 0 {
		return []*models.Message{}, nil
	}

	query := `
		SELECT id, session_id, seq, role, text, created_at FROM (
			SELECT id, session_id, seq, role, text, created_at
			FROM messages
			WHERE session_id = $1
			ORDER BY created_at DESC, seq DESC
			LIMIT $2
		) recent
		ORDER BY created_at, seq
	`
	rows, err := r.db.QueryContext(ctx, query, sessionID, n)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return scanAll(rows)
}

func scanAll(rows *sql.Rows) ([]*models.Message, error) {
	defer rows.Close()

	result := make([]*models.Message, 0)
	for rows.Next() {
		var (
			m    models.Message
			role string
		)
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Seq, &role, &m.Text, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		m.Role = models.Role(role)
		result = append(result, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}
