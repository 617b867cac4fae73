package chat

import (
	"context"
	"errors"
)

// ErrNotFound is returned by store lookups when no matching record exists.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned by store inserts when an equal record already exists.
var ErrDuplicate = errors.New("record already exists")

// UserStore is the persistence contract for account records and session state.
type UserStore interface {
	// UserByID returns the user record for id, or ErrNotFound.
	UserByID(ctx context.Context, id int64) (User, error)

	// InsertUser stores a new account record and assigns usr.ID.
	InsertUser(ctx context.Context, usr *User) error

	// MarkOnline transitions the user to the online state only if it is
	// currently offline, reporting whether the transition happened. This
	// is the transactional guard behind the single-session invariant.
	MarkOnline(ctx context.Context, id int64) (bool, error)

	// UpdateState unconditionally sets the user's persisted session state.
	UpdateState(ctx context.Context, id int64, state string) error

	// ResetStates forces every persisted session state to offline. Run at
	// process start to recover from an unclean shutdown.
	ResetStates(ctx context.Context) error
}

// FriendStore is the persistence contract for friend relationships.
// Friendship is one-directional: inserting (a, b) does not imply (b, a).
type FriendStore interface {
	FriendsOf(ctx context.Context, userID int64) ([]User, error)
	InsertFriend(ctx context.Context, userID, friendID int64) error
}

// GroupStore is the persistence contract for groups and memberships.
type GroupStore interface {
	// GroupsOf returns the groups userID belongs to, including full member rosters.
	GroupsOf(ctx context.Context, userID int64) ([]Group, error)

	// InsertGroup stores a new group record and assigns g.ID.
	InsertGroup(ctx context.Context, g *Group) error

	AddMember(ctx context.Context, groupID, userID int64, role string) error

	// MemberIDs returns every member of the group, the sender included.
	MemberIDs(ctx context.Context, groupID int64) ([]int64, error)
}

// OfflineStore is the persistence contract for the per-user queue of
// undelivered envelopes, drained at the recipient's next login.
type OfflineStore interface {
	// MessagesFor returns the queued payloads for userID in insertion order.
	MessagesFor(ctx context.Context, userID int64) ([]string, error)

	DeleteFor(ctx context.Context, userID int64) error

	Insert(ctx context.Context, userID int64, payload string) error
}

// Bridge is the cross-instance publish/subscribe transport. The router
// subscribes a user's channel on login, unsubscribes on logout or disconnect,
// and publishes envelopes destined for users connected to other instances.
// Inbound published messages re-enter the router via Service.DeliverFromBridge.
type Bridge interface {
	Subscribe(userID int64) error
	Unsubscribe(userID int64) error
	Publish(userID int64, payload []byte) error
}
