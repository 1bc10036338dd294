package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"portal/internal/models"
)

// PostgresSessions keeps sessions in the sessions table. A user holds at
// most one session: logging in again replaces the previous one.
type PostgresSessions struct {
	db  *sql.DB
	now func() time.Time
}

func NewPostgresSessions(db *sql.DB) *PostgresSessions {
	return &PostgresSessions{db: db, now: time.Now}
}

func (s *PostgresSessions) Create(ctx context.Context, userID int64, lifetime time.Duration) (models.Session, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Session{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID); err != nil {
		return models.Session{}, fmt.Errorf("delete old sessions: %w", err)
	}

	sess := models.Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		ExpiresAt: s.now().Add(lifetime),
	}
	if _, err := tx.ExecContext(ctx, `
INSERT INTO sessions (id, user_id, expires_at)
VALUES ($1, $2, $3)`, sess.ID, sess.UserID, sess.ExpiresAt); err != nil {
		return models.Session{}, fmt.Errorf("insert session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return models.Session{}, fmt.Errorf("commit session: %w", err)
	}
	return sess, nil
}

func (s *PostgresSessions) Get(ctx context.Context, id string) (models.Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		return models.Session{}, ErrNoSession
	}
	sess := models.Session{ID: id}
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, expires_at FROM sessions WHERE id = $1`, id,
	).Scan(&sess.UserID, &sess.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Session{}, ErrNoSession
	}
	if err != nil {
		return models.Session{}, fmt.Errorf("get session: %w", err)
	}
	return sess, nil
}

func (s *PostgresSessions) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Purge drops expired sessions and reports how many went.
func (s *PostgresSessions) Purge(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, s.now())
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	return res.RowsAffected()
}
