/*
Package chat contains the routing core of the cluster chat service.

This file defines the Service, the message router. It owns the session
directory and delivery resolver, dispatches inbound envelopes to per-type
handlers, and orchestrates the persistence adapters and the cross-instance
bridge. One Service instance exists per server process and is shared by every
connection goroutine plus the bridge's subscription callback.
*/
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"clusterchat/internal/pkg/errs"
	"clusterchat/internal/pkg/logx"
)

// HandlerFunc processes one inbound envelope on behalf of conn.
type HandlerFunc func(ctx context.Context, conn Conn, env Envelope, ts time.Time)

// Deps bundles the external collaborators the Service is constructed over.
type Deps struct {
	Users   UserStore
	Friends FriendStore
	Groups  GroupStore
	Offline OfflineStore
	Bridge  Bridge
}

// Options holds the tunable behavior of the Service.
type Options struct {
	// GroupEchoSender delivers group chat messages back to their sender
	// when enabled. The member query includes the sender, so the fanout
	// loop filters it out unless this is set.
	GroupEchoSender bool
}

// Service routes inbound envelopes to their handlers and delivers chat
// messages over exactly one of the three delivery paths.
type Service struct {
	users   UserStore
	friends FriendStore
	groups  GroupStore
	offline OfflineStore
	bridge  Bridge

	sessions *SessionDirectory
	resolver *Resolver
	handlers map[MsgID]HandlerFunc

	echoSender bool
	logger     zerolog.Logger
}

// NewService constructs the router, its session directory, delivery resolver,
// and the dispatch table from message type tag to handler.
func NewService(deps Deps, opts Options) *Service {
	s := &Service{
		users:      deps.Users,
		friends:    deps.Friends,
		groups:     deps.Groups,
		offline:    deps.Offline,
		bridge:     deps.Bridge,
		sessions:   NewSessionDirectory(),
		echoSender: opts.GroupEchoSender,
		logger:     logx.Logger().With().Str("component", "ChatService").Logger(),
	}

	s.resolver = NewResolver(s.sessions, deps.Users)

	s.handlers = map[MsgID]HandlerFunc{
		MsgLogin:       s.login,
		MsgRegister:    s.register,
		MsgChat:        s.oneToOneChat,
		MsgAddFriend:   s.addFriend,
		MsgCreateGroup: s.createGroup,
		MsgJoinGroup:   s.joinGroup,
		MsgGroupChat:   s.groupChat,
		MsgLogout:      s.logout,
	}

	return s
}

// Dispatch routes env to the handler registered for its type tag. An unknown
// tag is a protocol-level no-op: it is logged and the message dropped, with
// no reply to the client.
func (s *Service) Dispatch(ctx context.Context, conn Conn, env Envelope, ts time.Time) {
	handler, ok := s.handlers[env.MsgID]
	if !ok {
		s.logger.Error().
			Int("msgid", int(env.MsgID)).
			Str("peer", conn.PeerAddr()).
			Msg("No handler registered for message type")
		return
	}

	handler(ctx, conn, env, ts)
}

// Reset forces every persisted user state to offline. It is invoked once at
// process start to clear stale online flags left behind by an unclean
// shutdown; it does not replay or recover in-flight messages.
func (s *Service) Reset(ctx context.Context) error {
	if err := s.users.ResetStates(ctx); err != nil {
		return fmt.Errorf("reset user states: %w", err)
	}
	return nil
}

// Online reports the number of users connected to this instance.
func (s *Service) Online() int {
	return s.sessions.Len()
}

// login authenticates the account, enforces the single-session invariant,
// registers the connection, subscribes the user's bridge channel, and replies
// with the drained offline messages plus the friend and group lists. Exactly
// one LoginAck is sent per attempt.
func (s *Service) login(ctx context.Context, conn Conn, env Envelope, ts time.Time) {
	var req loginRequest
	if err := env.Decode(&req); err != nil {
		s.logger.Warn().Err(err).Str("peer", conn.PeerAddr()).Msg("Malformed login request")
		s.loginFailure(conn, errs.NewError(errs.ErrInvalidParams))
		return
	}

	usr, err := s.users.UserByID(ctx, req.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.loginFailure(conn, errs.NewError(errs.ErrInvalidCredentials))
			return
		}
		s.logger.Error().Err(err).Int64("user_id", req.ID).Msg("Login user lookup failed")
		s.loginFailure(conn, errs.NewError(errs.ErrUnknown))
		return
	}

	if usr.State == StateOnline {
		s.loginFailure(conn, errs.NewError(errs.ErrAlreadyOnline))
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(usr.PasswordHash), []byte(req.Password)) != nil {
		s.loginFailure(conn, errs.NewError(errs.ErrInvalidCredentials))
		return
	}

	// Conditional transition closes the race between two concurrent logins
	// for the same account: only one of them flips offline to online.
	ok, err := s.users.MarkOnline(ctx, usr.ID)
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", usr.ID).Msg("Login state transition failed")
		s.loginFailure(conn, errs.NewError(errs.ErrUnknown))
		return
	}
	if !ok {
		s.loginFailure(conn, errs.NewError(errs.ErrAlreadyOnline))
		return
	}

	s.sessions.Put(usr.ID, conn)

	if err := s.bridge.Subscribe(usr.ID); err != nil {
		// Local delivery still works without the subscription; remote
		// publishes for this user will land in the offline store.
		s.logger.Error().Err(err).Int64("user_id", usr.ID).Msg("Bridge subscribe failed")
	}

	ack := LoginAck{
		MsgID: MsgLoginAck,
		ID:    usr.ID,
		Name:  usr.Name,
	}

	msgs, err := s.offline.MessagesFor(ctx, usr.ID)
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", usr.ID).Msg("Offline message query failed")
	} else if len(msgs) > 0 {
		ack.OfflineMsg = msgs
		if err := s.offline.DeleteFor(ctx, usr.ID); err != nil {
			s.logger.Error().Err(err).Int64("user_id", usr.ID).Msg("Offline message drain failed")
		}
	}

	friends, err := s.friends.FriendsOf(ctx, usr.ID)
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", usr.ID).Msg("Friend list query failed")
	}
	for _, f := range friends {
		ack.Friends = append(ack.Friends, FriendEntry{ID: f.ID, Name: f.Name, State: f.State})
	}

	groups, err := s.groups.GroupsOf(ctx, usr.ID)
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", usr.ID).Msg("Group list query failed")
	}
	for _, g := range groups {
		entry := GroupEntry{ID: g.ID, GroupName: g.Name, GroupDesc: g.Desc}
		for _, m := range g.Members {
			entry.Users = append(entry.Users, GroupMemberEntry{ID: m.ID, Name: m.Name, State: m.State, Role: m.Role})
		}
		ack.Groups = append(ack.Groups, entry)
	}

	s.send(conn, ack)

	s.logger.Info().
		Int64("user_id", usr.ID).
		Str("peer", conn.PeerAddr()).
		Int("offline_drained", len(msgs)).
		Msg("User logged in")
}

// loginFailure sends the single failure reply for a rejected login attempt.
func (s *Service) loginFailure(conn Conn, ce *errs.CustomError) {
	s.send(conn, LoginAck{
		MsgID:  MsgLoginAck,
		Errno:  ce.Code,
		Errmsg: ce.Message,
	})
}

// register creates a new account and replies with the generated id.
func (s *Service) register(ctx context.Context, conn Conn, env Envelope, ts time.Time) {
	var req registerRequest
	if err := env.Decode(&req); err != nil {
		s.logger.Warn().Err(err).Str("peer", conn.PeerAddr()).Msg("Malformed register request")
		ce := errs.NewError(errs.ErrInvalidParams)
		s.send(conn, RegisterAck{MsgID: MsgRegisterAck, Errno: ce.Code, Errmsg: ce.Message})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error().Err(err).Msg("Password hashing failed")
		ce := errs.NewError(errs.ErrRegisterFailed)
		s.send(conn, RegisterAck{MsgID: MsgRegisterAck, Errno: ce.Code, Errmsg: ce.Message})
		return
	}

	usr := User{
		Name:         req.Name,
		PasswordHash: string(hash),
		State:        StateOffline,
	}

	if err := s.users.InsertUser(ctx, &usr); err != nil {
		s.logger.Warn().Err(err).Str("name", req.Name).Msg("Registration insert failed")
		code := errs.ErrRegisterFailed
		if errors.Is(err, ErrDuplicate) {
			code = errs.ErrNameTaken
		}
		ce := errs.NewError(code)
		s.send(conn, RegisterAck{MsgID: MsgRegisterAck, Errno: ce.Code, Errmsg: ce.Message})
		return
	}

	s.send(conn, RegisterAck{MsgID: MsgRegisterAck, ID: usr.ID})

	s.logger.Info().Int64("user_id", usr.ID).Str("name", usr.Name).Msg("User registered")
}

// oneToOneChat re-stamps the envelope with the sender's identity and delivers
// it through exactly one of the three delivery paths. The sender receives no
// acknowledgment on this path.
func (s *Service) oneToOneChat(ctx context.Context, conn Conn, env Envelope, ts time.Time) {
	var req chatRequest
	if err := env.Decode(&req); err != nil {
		s.logger.Warn().Err(err).Str("peer", conn.PeerAddr()).Msg("Malformed chat request")
		return
	}

	out := ChatMessage{
		MsgID: MsgChat,
		ID:    req.ID,
		Name:  req.Name,
		Msg:   req.Msg,
		Time:  req.Time,
	}

	payload, err := json.Marshal(out)
	if err != nil {
		s.logger.Error().Err(err).Msg("Chat message encoding failed")
		return
	}

	if err := s.deliver(ctx, req.ToID, payload); err != nil {
		s.logger.Error().Err(err).
			Int64("from", req.ID).
			Int64("to", req.ToID).
			Msg("One-to-one delivery failed")
	}
}

// addFriend stores the one-directional friend relationship and acknowledges.
func (s *Service) addFriend(ctx context.Context, conn Conn, env Envelope, ts time.Time) {
	var req addFriendRequest
	if err := env.Decode(&req); err != nil {
		s.logger.Warn().Err(err).Str("peer", conn.PeerAddr()).Msg("Malformed add friend request")
		ce := errs.NewError(errs.ErrInvalidParams)
		s.send(conn, OpAck{MsgID: MsgAddFriendAck, Errno: ce.Code, Msg: ce.Message})
		return
	}

	// Re-adding an existing friend succeeds without a second insert.
	if err := s.friends.InsertFriend(ctx, req.ID, req.FriendID); err != nil && !errors.Is(err, ErrDuplicate) {
		s.logger.Warn().Err(err).
			Int64("user_id", req.ID).
			Int64("friend_id", req.FriendID).
			Msg("Friend insert failed")
		ce := errs.NewError(errs.ErrAddFriendFailed)
		s.send(conn, OpAck{MsgID: MsgAddFriendAck, Errno: ce.Code, Msg: ce.Message})
		return
	}

	s.send(conn, OpAck{MsgID: MsgAddFriendAck, Msg: "Friend added."})
}

// createGroup stores the group record, enrolls the creator with the creator
// role, and replies with the generated group id.
func (s *Service) createGroup(ctx context.Context, conn Conn, env Envelope, ts time.Time) {
	var req createGroupRequest
	if err := env.Decode(&req); err != nil {
		s.logger.Warn().Err(err).Str("peer", conn.PeerAddr()).Msg("Malformed create group request")
		ce := errs.NewError(errs.ErrInvalidParams)
		s.send(conn, CreateGroupAck{MsgID: MsgCreateGroupAck, Errno: ce.Code, Msg: ce.Message})
		return
	}

	grp := Group{
		Name: req.GroupName,
		Desc: req.GroupDesc,
	}

	if err := s.groups.InsertGroup(ctx, &grp); err != nil {
		s.logger.Warn().Err(err).Str("name", req.GroupName).Msg("Group insert failed")
		ce := errs.NewError(errs.ErrCreateGroupFailed)
		s.send(conn, CreateGroupAck{MsgID: MsgCreateGroupAck, Errno: ce.Code, Msg: ce.Message})
		return
	}

	if err := s.groups.AddMember(ctx, grp.ID, req.ID, RoleCreator); err != nil {
		s.logger.Error().Err(err).
			Int64("group_id", grp.ID).
			Int64("user_id", req.ID).
			Msg("Creator enrollment failed")
		ce := errs.NewError(errs.ErrCreateGroupFailed)
		s.send(conn, CreateGroupAck{MsgID: MsgCreateGroupAck, Errno: ce.Code, Msg: ce.Message})
		return
	}

	s.send(conn, CreateGroupAck{MsgID: MsgCreateGroupAck, Msg: "Group created.", GroupID: grp.ID})

	s.logger.Info().Int64("group_id", grp.ID).Int64("creator", req.ID).Msg("Group created")
}

// joinGroup enrolls the user with the normal role and acknowledges.
func (s *Service) joinGroup(ctx context.Context, conn Conn, env Envelope, ts time.Time) {
	var req joinGroupRequest
	if err := env.Decode(&req); err != nil {
		s.logger.Warn().Err(err).Str("peer", conn.PeerAddr()).Msg("Malformed join group request")
		ce := errs.NewError(errs.ErrInvalidParams)
		s.send(conn, OpAck{MsgID: MsgJoinGroupAck, Errno: ce.Code, Msg: ce.Message})
		return
	}

	// Joining a group the user already belongs to succeeds without a second insert.
	if err := s.groups.AddMember(ctx, req.GroupID, req.UserID, RoleNormal); err != nil && !errors.Is(err, ErrDuplicate) {
		s.logger.Warn().Err(err).
			Int64("group_id", req.GroupID).
			Int64("user_id", req.UserID).
			Msg("Group membership insert failed")
		ce := errs.NewError(errs.ErrJoinGroupFailed)
		s.send(conn, OpAck{MsgID: MsgJoinGroupAck, Errno: ce.Code, Msg: ce.Message})
		return
	}

	s.send(conn, OpAck{MsgID: MsgJoinGroupAck, Msg: "Joined group."})
}

// groupChat fans the message out to every group member, resolving the delivery
// path independently per member. A failure for one member never blocks the
// rest. The member query includes the sender; echo is governed by Options.
func (s *Service) groupChat(ctx context.Context, conn Conn, env Envelope, ts time.Time) {
	var req groupChatRequest
	if err := env.Decode(&req); err != nil {
		s.logger.Warn().Err(err).Str("peer", conn.PeerAddr()).Msg("Malformed group chat request")
		return
	}

	memberIDs, err := s.groups.MemberIDs(ctx, req.GroupID)
	if err != nil {
		s.logger.Error().Err(err).Int64("group_id", req.GroupID).Msg("Group member query failed")
		return
	}

	out := ChatMessage{
		MsgID:   MsgGroupChat,
		ID:      req.ID,
		GroupID: req.GroupID,
		Name:    req.Name,
		Msg:     req.Msg,
		Time:    req.Time,
	}

	payload, err := json.Marshal(out)
	if err != nil {
		s.logger.Error().Err(err).Msg("Group chat message encoding failed")
		return
	}

	for _, memberID := range memberIDs {
		if memberID == req.ID && !s.echoSender {
			continue
		}

		if err := s.deliver(ctx, memberID, payload); err != nil {
			s.logger.Error().Err(err).
				Int64("group_id", req.GroupID).
				Int64("member", memberID).
				Msg("Group delivery failed for member")
		}
	}
}

// logout releases the session owned by conn without tearing the connection
// down: the directory entry is removed, the bridge channel unsubscribed, and
// the persisted state set to offline.
func (s *Service) logout(ctx context.Context, conn Conn, env Envelope, ts time.Time) {
	userID, ok := s.sessions.RemoveByConn(conn)
	if !ok {
		return
	}

	if err := s.bridge.Unsubscribe(userID); err != nil {
		s.logger.Error().Err(err).Int64("user_id", userID).Msg("Bridge unsubscribe failed")
	}

	if err := s.users.UpdateState(ctx, userID, StateOffline); err != nil {
		s.logger.Error().Err(err).Int64("user_id", userID).Msg("Logout state update failed")
	}

	s.logger.Info().Int64("user_id", userID).Str("peer", conn.PeerAddr()).Msg("User logged out")
}

// HandleDisconnect is invoked by the transport layer when a connection closes
// or errors. It releases the session owned by conn, if any, and closes the
// connection. Invoking it again for the same connection performs no further
// mutation.
func (s *Service) HandleDisconnect(ctx context.Context, conn Conn) {
	userID, ok := s.sessions.RemoveByConn(conn)
	if ok {
		if err := s.bridge.Unsubscribe(userID); err != nil {
			s.logger.Error().Err(err).Int64("user_id", userID).Msg("Bridge unsubscribe failed")
		}

		if err := s.users.UpdateState(ctx, userID, StateOffline); err != nil {
			s.logger.Error().Err(err).Int64("user_id", userID).Msg("Disconnect state update failed")
		}

		s.logger.Info().Int64("user_id", userID).Str("peer", conn.PeerAddr()).Msg("Client offline")
	}

	if err := conn.Close(); err != nil {
		s.logger.Debug().Err(err).Str("peer", conn.PeerAddr()).Msg("Connection close")
	}
}

// DeliverFromBridge handles an envelope published for userID by another
// instance. It runs on the bridge transport's goroutine, concurrent with all
// other router operations, under the same directory lock discipline as direct
// dispatch. If the user logged out between publish and delivery, or the local
// write fails, the envelope falls back to the offline store.
func (s *Service) DeliverFromBridge(ctx context.Context, userID int64, payload []byte) {
	if conn, ok := s.sessions.Get(userID); ok {
		err := conn.Send(payload)
		if err == nil {
			return
		}
		s.logger.Warn().Err(err).Int64("user_id", userID).Msg("Bridge-relayed send failed, queueing offline")
	}

	if err := s.offline.Insert(ctx, userID, string(payload)); err != nil {
		s.logger.Error().Err(err).Int64("user_id", userID).Msg("Offline insert for bridge message failed")
	}
}

// deliver routes payload to recipientID over exactly one delivery path.
func (s *Service) deliver(ctx context.Context, recipientID int64, payload []byte) error {
	d, err := s.resolver.Resolve(ctx, recipientID)
	if err != nil {
		return err
	}

	switch d.Path {
	case DeliverLocal:
		if err := d.Conn.Send(payload); err != nil {
			return fmt.Errorf("local send to user %d: %w", recipientID, err)
		}

	case DeliverRemote:
		if err := s.bridge.Publish(recipientID, payload); err != nil {
			return fmt.Errorf("publish for user %d: %w", recipientID, err)
		}

	case DeliverOffline:
		if err := s.offline.Insert(ctx, recipientID, string(payload)); err != nil {
			return fmt.Errorf("offline insert for user %d: %w", recipientID, err)
		}
	}

	return nil
}

// send marshals v and writes it to conn, logging write failures. The
// connection stays under the transport layer's ownership; a failed reply
// write is surfaced there as a read error and handled as a disconnect.
func (s *Service) send(conn Conn, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		s.logger.Error().Err(err).Msg("Reply encoding failed")
		return
	}

	if err := conn.Send(payload); err != nil {
		s.logger.Error().Err(err).Str("peer", conn.PeerAddr()).Msg("Reply write failed")
	}
}
