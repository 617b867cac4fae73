package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"clusterchat/internal/app/chat"
	"clusterchat/internal/app/db"
)

// GroupStore is the PostgreSQL-backed implementation of chat.GroupStore.
type GroupStore struct {
	pool *pgxpool.Pool
}

// NewGroupStore wraps the shared connection pool.
func NewGroupStore(pool *pgxpool.Pool) *GroupStore {
	return &GroupStore{pool: pool}
}

// GroupsOf returns the groups userID belongs to, each with its full member
// roster including per-member session state and role.
func (s *GroupStore) GroupsOf(ctx context.Context, userID int64) ([]chat.Group, error) {
	const groupsQ = `
		SELECT g.id, g.name, g.description
		FROM groups g
		JOIN group_members gm ON gm.group_id = g.id
		WHERE gm.user_id = $1
		ORDER BY g.id`

	rows, err := s.pool.Query(ctx, groupsQ, userID)
	if err != nil {
		return nil, fmt.Errorf("query groups of user %d: %w", userID, err)
	}

	groups, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (chat.Group, error) {
		var g chat.Group
		err := row.Scan(&g.ID, &g.Name, &g.Desc)
		return g, err
	})
	if err != nil {
		return nil, fmt.Errorf("collect groups of user %d: %w", userID, err)
	}

	for i := range groups {
		members, err := s.membersOf(ctx, groups[i].ID)
		if err != nil {
			return nil, err
		}
		groups[i].Members = members
	}

	return groups, nil
}

// membersOf loads the roster of one group.
func (s *GroupStore) membersOf(ctx context.Context, groupID int64) ([]chat.GroupMember, error) {
	const q = `
		SELECT u.id, u.name, u.state, gm.role
		FROM group_members gm
		JOIN users u ON u.id = gm.user_id
		WHERE gm.group_id = $1
		ORDER BY u.id`

	rows, err := s.pool.Query(ctx, q, groupID)
	if err != nil {
		return nil, fmt.Errorf("query members of group %d: %w", groupID, err)
	}

	members, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (chat.GroupMember, error) {
		var m chat.GroupMember
		err := row.Scan(&m.ID, &m.Name, &m.State, &m.Role)
		return m, err
	})
	if err != nil {
		return nil, fmt.Errorf("collect members of group %d: %w", groupID, err)
	}

	return members, nil
}

// InsertGroup stores a new group record and assigns g.ID from the sequence.
func (s *GroupStore) InsertGroup(ctx context.Context, g *chat.Group) error {
	const q = `INSERT INTO groups (name, description) VALUES ($1, $2) RETURNING id`

	if err := s.pool.QueryRow(ctx, q, g.Name, g.Desc).Scan(&g.ID); err != nil {
		if db.IsUniqueViolation(err) {
			return fmt.Errorf("insert group %q: %w", g.Name, chat.ErrDuplicate)
		}
		return fmt.Errorf("insert group %q: %w", g.Name, err)
	}

	return nil
}

// AddMember stores a membership record with the given role. An existing
// membership yields chat.ErrDuplicate; an unknown group or user id yields
// chat.ErrNotFound.
func (s *GroupStore) AddMember(ctx context.Context, groupID, userID int64, role string) error {
	const q = `INSERT INTO group_members (group_id, user_id, role) VALUES ($1, $2, $3)`

	if _, err := s.pool.Exec(ctx, q, groupID, userID, role); err != nil {
		if db.IsUniqueViolation(err) {
			return fmt.Errorf("add user %d to group %d: %w", userID, groupID, chat.ErrDuplicate)
		}
		if db.IsForeignKeyViolation(err) {
			return fmt.Errorf("add user %d to group %d: %w", userID, groupID, chat.ErrNotFound)
		}
		return fmt.Errorf("add user %d to group %d: %w", userID, groupID, err)
	}

	return nil
}

// MemberIDs returns the ids of every member of the group, sender included.
func (s *GroupStore) MemberIDs(ctx context.Context, groupID int64) ([]int64, error) {
	const q = `SELECT user_id FROM group_members WHERE group_id = $1 ORDER BY user_id`

	rows, err := s.pool.Query(ctx, q, groupID)
	if err != nil {
		return nil, fmt.Errorf("query member ids of group %d: %w", groupID, err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("collect member ids of group %d: %w", groupID, err)
	}

	return ids, nil
}
