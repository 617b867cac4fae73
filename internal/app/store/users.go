/*
Package store implements the routing core's persistence contracts on PostgreSQL.

Each adapter wraps the shared pgx connection pool with the narrow query/insert/
update surface the chat Service consumes. Business validation stays in the
Service; the adapters only translate between SQL and domain types.
*/
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"clusterchat/internal/app/chat"
	"clusterchat/internal/app/db"
)

// UserStore is the PostgreSQL-backed implementation of chat.UserStore.
type UserStore struct {
	pool *pgxpool.Pool
}

// NewUserStore wraps the shared connection pool.
func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

// UserByID returns the account record for id, or chat.ErrNotFound.
func (s *UserStore) UserByID(ctx context.Context, id int64) (chat.User, error) {
	const q = `SELECT id, name, password_hash, state FROM users WHERE id = $1`

	var usr chat.User
	err := s.pool.QueryRow(ctx, q, id).Scan(&usr.ID, &usr.Name, &usr.PasswordHash, &usr.State)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return chat.User{}, chat.ErrNotFound
		}
		return chat.User{}, fmt.Errorf("query user %d: %w", id, err)
	}

	return usr, nil
}

// InsertUser stores a new account record and assigns usr.ID from the sequence.
func (s *UserStore) InsertUser(ctx context.Context, usr *chat.User) error {
	const q = `INSERT INTO users (name, password_hash, state) VALUES ($1, $2, $3) RETURNING id`

	state := usr.State
	if state == "" {
		state = chat.StateOffline
	}

	if err := s.pool.QueryRow(ctx, q, usr.Name, usr.PasswordHash, state).Scan(&usr.ID); err != nil {
		if db.IsUniqueViolation(err) {
			return fmt.Errorf("insert user %q: %w", usr.Name, chat.ErrDuplicate)
		}
		return fmt.Errorf("insert user %q: %w", usr.Name, err)
	}

	return nil
}

// MarkOnline flips the user to online only from the offline state. The
// conditional update is what makes concurrent logins for one account resolve
// to a single winner across all instances.
func (s *UserStore) MarkOnline(ctx context.Context, id int64) (bool, error) {
	const q = `UPDATE users SET state = $1 WHERE id = $2 AND state = $3`

	tag, err := s.pool.Exec(ctx, q, chat.StateOnline, id, chat.StateOffline)
	if err != nil {
		return false, fmt.Errorf("mark user %d online: %w", id, err)
	}

	return tag.RowsAffected() == 1, nil
}

// UpdateState unconditionally sets the user's persisted session state.
func (s *UserStore) UpdateState(ctx context.Context, id int64, state string) error {
	const q = `UPDATE users SET state = $1 WHERE id = $2`

	if _, err := s.pool.Exec(ctx, q, state, id); err != nil {
		return fmt.Errorf("update state of user %d: %w", id, err)
	}

	return nil
}

// ResetStates forces every persisted session state to offline.
func (s *UserStore) ResetStates(ctx context.Context) error {
	const q = `UPDATE users SET state = $1 WHERE state <> $1`

	if _, err := s.pool.Exec(ctx, q, chat.StateOffline); err != nil {
		return fmt.Errorf("reset user states: %w", err)
	}

	return nil
}
