package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/avelasco/answer-engine/internal/core/domain"
)

// HistoryRepository persists completed query-answer turns. Writes are
// best-effort from the orchestrator's point of view; a failure here
// never fails the cycle that produced the turn.
type HistoryRepository struct {
	db *sql.DB
}

func NewHistoryRepository(db *sql.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

func (r *HistoryRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082302)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS chat_history (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	session_id TEXT NOT NULL,
	query TEXT NOT NULL,
	response TEXT NOT NULL,
	role TEXT NOT NULL,
	status TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chat_history_session ON chat_history(session_id, created_at);
CREATE INDEX IF NOT EXISTS idx_chat_history_user ON chat_history(user_id, created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *HistoryRepository) Append(ctx context.Context, turn domain.ChatTurn) error {
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}
	if turn.UpdatedAt.IsZero() {
		turn.UpdatedAt = turn.CreatedAt
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO chat_history (id, user_id, session_id, query, response, role, status, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
`, turn.ID, turn.UserID, turn.SessionID, turn.Query, turn.Answer, turn.Role, string(turn.Status), turn.CreatedAt, turn.UpdatedAt)
	if err != nil {
		return fmt.Errorf("append chat turn: %w", err)
	}
	return nil
}

// ListSession returns the turns of one session in chronological order.
func (r *HistoryRepository) ListSession(ctx context.Context, sessionID string, limit int) ([]domain.ChatTurn, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, user_id, session_id, query, response, role, status, created_at, updated_at
FROM chat_history
WHERE session_id = $1
ORDER BY created_at ASC
LIMIT $2
`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("list session turns: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ChatTurn, 0, limit)
	for rows.Next() {
		var turn domain.ChatTurn
		var status string
		if err := rows.Scan(
			&turn.ID,
			&turn.UserID,
			&turn.SessionID,
			&turn.Query,
			&turn.Answer,
			&turn.Role,
			&status,
			&turn.CreatedAt,
			&turn.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan chat turn: %w", err)
		}
		turn.Status = domain.TurnStatus(status)
		out = append(out, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chat turns: %w", err)
	}
	return out, nil
}
