package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"clusterchat/internal/app/chat"
	"clusterchat/internal/app/db"
)

// FriendStore is the PostgreSQL-backed implementation of chat.FriendStore.
type FriendStore struct {
	pool *pgxpool.Pool
}

// NewFriendStore wraps the shared connection pool.
func NewFriendStore(pool *pgxpool.Pool) *FriendStore {
	return &FriendStore{pool: pool}
}

// FriendsOf returns the users userID has added, with their current session state.
func (s *FriendStore) FriendsOf(ctx context.Context, userID int64) ([]chat.User, error) {
	const q = `
		SELECT u.id, u.name, u.state
		FROM friends f
		JOIN users u ON u.id = f.friend_id
		WHERE f.user_id = $1
		ORDER BY u.id`

	rows, err := s.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("query friends of user %d: %w", userID, err)
	}

	friends, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (chat.User, error) {
		var usr chat.User
		err := row.Scan(&usr.ID, &usr.Name, &usr.State)
		return usr, err
	})
	if err != nil {
		return nil, fmt.Errorf("collect friends of user %d: %w", userID, err)
	}

	return friends, nil
}

// InsertFriend stores the one-directional relationship from userID to friendID.
// An existing relationship yields chat.ErrDuplicate; an unknown friend id
// yields chat.ErrNotFound.
func (s *FriendStore) InsertFriend(ctx context.Context, userID, friendID int64) error {
	const q = `INSERT INTO friends (user_id, friend_id) VALUES ($1, $2)`

	if _, err := s.pool.Exec(ctx, q, userID, friendID); err != nil {
		if db.IsUniqueViolation(err) {
			return fmt.Errorf("insert friend %d for user %d: %w", friendID, userID, chat.ErrDuplicate)
		}
		if db.IsForeignKeyViolation(err) {
			return fmt.Errorf("insert friend %d for user %d: %w", friendID, userID, chat.ErrNotFound)
		}
		return fmt.Errorf("insert friend %d for user %d: %w", friendID, userID, err)
	}

	return nil
}
