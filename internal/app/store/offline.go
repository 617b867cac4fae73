package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OfflineStore is the PostgreSQL-backed implementation of chat.OfflineStore.
type OfflineStore struct {
	pool *pgxpool.Pool
}

// NewOfflineStore wraps the shared connection pool.
func NewOfflineStore(pool *pgxpool.Pool) *OfflineStore {
	return &OfflineStore{pool: pool}
}

// MessagesFor returns the queued payloads for userID in insertion order.
func (s *OfflineStore) MessagesFor(ctx context.Context, userID int64) ([]string, error) {
	const q = `SELECT payload FROM offline_messages WHERE user_id = $1 ORDER BY id`

	rows, err := s.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("query offline messages for user %d: %w", userID, err)
	}

	payloads, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("collect offline messages for user %d: %w", userID, err)
	}

	return payloads, nil
}

// DeleteFor removes every queued payload for userID.
func (s *OfflineStore) DeleteFor(ctx context.Context, userID int64) error {
	const q = `DELETE FROM offline_messages WHERE user_id = $1`

	if _, err := s.pool.Exec(ctx, q, userID); err != nil {
		return fmt.Errorf("delete offline messages for user %d: %w", userID, err)
	}

	return nil
}

// Insert appends payload to userID's queue.
func (s *OfflineStore) Insert(ctx context.Context, userID int64, payload string) error {
	const q = `INSERT INTO offline_messages (user_id, payload) VALUES ($1, $2)`

	if _, err := s.pool.Exec(ctx, q, userID, payload); err != nil {
		return fmt.Errorf("insert offline message for user %d: %w", userID, err)
	}

	return nil
}
