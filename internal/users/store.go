package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Store reads and updates user records.
type Store struct {
	db *DB
}

// NewStore creates a Store over db.
func NewStore(db *DB) *Store {
	return &Store{db: db}
}

// Get returns the record for uid.
func (s *Store) Get(ctx context.Context, uid string) (*User, error) {
	query := `
		SELECT uid, username, email, plan, is_admin, prompts_used, created_at
		FROM users
		WHERE uid = ?
	`

	var u User
	var isAdmin int
	err := s.db.QueryRowContext(ctx, query, uid).Scan(
		&u.UID,
		&u.Username,
		&u.Email,
		&u.Plan,
		&isAdmin,
		&u.PromptsUsed,
		&u.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	u.IsAdmin = isAdmin != 0
	return &u, nil
}

// Ensure returns the record for uid, creating a free-plan record with zero usage
// when none exists yet. username falls back to the local part of email.
func (s *Store) Ensure(ctx context.Context, uid, username, email string) (*User, error) {
	if strings.TrimSpace(uid) == "" {
		return nil, fmt.Errorf("ensure user: empty uid")
	}
	if username == "" {
		username, _, _ = strings.Cut(email, "@")
	}
	if username == "" {
		username = "User"
	}

	query := `
		INSERT INTO users (uid, username, email, plan, is_admin, prompts_used, created_at)
		VALUES (?, ?, ?, ?, 0, 0, ?)
		ON CONFLICT(uid) DO NOTHING
	`
	if _, err := s.db.ExecContext(ctx, query, uid, username, email, PlanFree, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("failed to ensure user: %w", err)
	}
	return s.Get(ctx, uid)
}

// ReservePrompt counts one prompt against uid if the counter is still below limit.
// The check and the increment are a single statement, so concurrent reservations
// can never push the counter past limit. When the limit is already reached it
// returns the current record together with ErrQuotaExceeded.
func (s *Store) ReservePrompt(ctx context.Context, uid string, limit int) (*User, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET prompts_used = prompts_used + 1 WHERE uid = ? AND prompts_used < ?`, uid, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to reserve prompt: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to reserve prompt: %w", err)
	}
	u, err := s.Get(ctx, uid)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return u, ErrQuotaExceeded
	}
	return u, nil
}

// RefundPrompt returns a reservation that did not end in a generated project.
func (s *Store) RefundPrompt(ctx context.Context, uid string) (*User, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET prompts_used = prompts_used - 1 WHERE uid = ? AND prompts_used > 0`, uid)
	if err != nil {
		return nil, fmt.Errorf("failed to refund prompt: %w", err)
	}
	if _, err := res.RowsAffected(); err != nil {
		return nil, fmt.Errorf("failed to refund prompt: %w", err)
	}
	return s.Get(ctx, uid)
}

// SetPlan changes the plan of uid.
func (s *Store) SetPlan(ctx context.Context, uid, plan string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET plan = ? WHERE uid = ?`, plan, uid)
	if err != nil {
		return fmt.Errorf("failed to set plan: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to set plan: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
