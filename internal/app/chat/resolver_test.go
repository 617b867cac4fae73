package chat

import (
	"context"
	"errors"
	"testing"
)

func TestResolveLocalWinsOverPersistedState(t *testing.T) {
	users := newFakeUserStore()
	usr := users.add(t, "alice", "secret", StateOnline)

	sessions := NewSessionDirectory()
	conn := newFakeConn("10.0.0.1:5000")
	sessions.Put(usr.ID, conn)

	r := NewResolver(sessions, users)

	d, err := r.Resolve(context.Background(), usr.ID)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if d.Path != DeliverLocal {
		t.Errorf("Path = %d, want DeliverLocal", d.Path)
	}
	if d.Conn != Conn(conn) {
		t.Error("resolved connection does not match the directory entry")
	}
}

func TestResolveRemoteForOnlineUserWithoutLocalConnection(t *testing.T) {
	users := newFakeUserStore()
	usr := users.add(t, "alice", "secret", StateOnline)

	r := NewResolver(NewSessionDirectory(), users)

	d, err := r.Resolve(context.Background(), usr.ID)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if d.Path != DeliverRemote {
		t.Errorf("Path = %d, want DeliverRemote", d.Path)
	}
	if d.Conn != nil {
		t.Error("remote delivery must not carry a connection")
	}
}

func TestResolveOfflineUser(t *testing.T) {
	users := newFakeUserStore()
	usr := users.add(t, "alice", "secret", StateOffline)

	r := NewResolver(NewSessionDirectory(), users)

	d, err := r.Resolve(context.Background(), usr.ID)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if d.Path != DeliverOffline {
		t.Errorf("Path = %d, want DeliverOffline", d.Path)
	}
}

func TestResolveUnknownUser(t *testing.T) {
	r := NewResolver(NewSessionDirectory(), newFakeUserStore())

	if _, err := r.Resolve(context.Background(), 404); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
