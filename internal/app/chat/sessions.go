/*
Package chat contains the routing core of the cluster chat service.

This file defines the SessionDirectory, the instance-local map from online user
id to live connection handle. It is the only shared mutable structure inside
the core and is mutated by the login, logout, disconnect, and bridge callback
paths.
*/
package chat

import "sync"

// SessionDirectory maps online user ids to their connection handles. A reverse
// index by connection identity supports disconnect handling without a scan.
// All operations are linearized by a single mutex; the lock is held only for
// map mutation and lookup, never across I/O.
type SessionDirectory struct {
	mu     sync.Mutex
	byUser map[int64]Conn
	byConn map[Conn]int64
}

// NewSessionDirectory returns an empty directory.
func NewSessionDirectory() *SessionDirectory {
	return &SessionDirectory{
		byUser: make(map[int64]Conn),
		byConn: make(map[Conn]int64),
	}
}

// Put records conn as the live connection for userID. At most one entry can
// exist per user: a previous entry for the same user, or a previous user for
// the same connection, is displaced so the two indexes stay consistent.
func (d *SessionDirectory) Put(userID int64, conn Conn) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if old, ok := d.byUser[userID]; ok {
		delete(d.byConn, old)
	}
	if oldID, ok := d.byConn[conn]; ok {
		delete(d.byUser, oldID)
	}

	d.byUser[userID] = conn
	d.byConn[conn] = userID
}

// Get returns the connection for userID, if the user is online on this instance.
func (d *SessionDirectory) Get(userID int64) (Conn, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	conn, ok := d.byUser[userID]
	return conn, ok
}

// Remove deletes the entry for userID and returns the displaced connection.
func (d *SessionDirectory) Remove(userID int64) (Conn, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	conn, ok := d.byUser[userID]
	if !ok {
		return nil, false
	}

	delete(d.byUser, userID)
	delete(d.byConn, conn)
	return conn, true
}

// RemoveByConn deletes the entry owning conn and returns the user id it
// belonged to. Removing an unknown connection is a no-op, which makes
// disconnect handling idempotent.
func (d *SessionDirectory) RemoveByConn(conn Conn) (int64, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	userID, ok := d.byConn[conn]
	if !ok {
		return 0, false
	}

	delete(d.byConn, conn)
	delete(d.byUser, userID)
	return userID, true
}

// Len reports the number of users currently online on this instance.
func (d *SessionDirectory) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return len(d.byUser)
}
