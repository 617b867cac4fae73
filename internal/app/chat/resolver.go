/*
Package chat contains the routing core of the cluster chat service.

This file defines the Resolver, the decision function that classifies a
destination user into one of the three delivery paths: local connection,
remote instance, or offline queue.
*/
package chat

import (
	"context"
	"fmt"
)

// DeliveryPath classifies how an envelope reaches its destination user.
type DeliveryPath int

const (
	// DeliverLocal means the recipient holds a connection on this instance.
	DeliverLocal DeliveryPath = iota

	// DeliverRemote means the recipient is online on another instance and
	// the envelope must be published on the cross-instance bridge.
	DeliverRemote

	// DeliverOffline means the recipient is offline and the envelope must
	// be queued in the offline store.
	DeliverOffline
)

// Delivery is the result of resolving a destination user.
// Conn is set only when Path is DeliverLocal.
type Delivery struct {
	Path DeliveryPath
	Conn Conn
}

// Resolver decides the delivery path for a destination user id. The session
// directory is authoritative for this instance and is consulted first; only a
// miss costs a persistence round-trip.
type Resolver struct {
	sessions *SessionDirectory
	users    UserStore
}

// NewResolver constructs a Resolver over the given directory and user store.
func NewResolver(sessions *SessionDirectory, users UserStore) *Resolver {
	return &Resolver{
		sessions: sessions,
		users:    users,
	}
}

// Resolve classifies recipientID into a delivery path. A persisted state of
// online with no local connection means the user is connected to another
// instance.
func (r *Resolver) Resolve(ctx context.Context, recipientID int64) (Delivery, error) {
	if conn, ok := r.sessions.Get(recipientID); ok {
		return Delivery{Path: DeliverLocal, Conn: conn}, nil
	}

	usr, err := r.users.UserByID(ctx, recipientID)
	if err != nil {
		return Delivery{}, fmt.Errorf("resolve recipient %d: %w", recipientID, err)
	}

	if usr.State == StateOnline {
		return Delivery{Path: DeliverRemote}, nil
	}

	return Delivery{Path: DeliverOffline}, nil
}
