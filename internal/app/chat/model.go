/*
Package chat contains the routing core of the cluster chat service.

This file defines the domain types shared with the persistence adapters and the
typed request/reply structures that make up the wire protocol.
*/
package chat

// User session states persisted by the user store.
const (
	StateOnline  = "online"
	StateOffline = "offline"
)

// Group membership roles.
const (
	RoleCreator = "creator"
	RoleNormal  = "normal"
)

// User represents a registered account. The PasswordHash field holds a bcrypt
// hash and never leaves the server.
type User struct {
	ID           int64
	Name         string
	PasswordHash string
	State        string
}

// Group represents a chat group with its member roster.
type Group struct {
	ID      int64
	Name    string
	Desc    string
	Members []GroupMember
}

// GroupMember is one entry of a group roster, including the member's
// current session state and role within the group.
type GroupMember struct {
	ID    int64
	Name  string
	State string
	Role  string
}

// --- Request envelopes ---

type loginRequest struct {
	ID       int64  `json:"id"`
	Password string `json:"password"`
}

type registerRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

type chatRequest struct {
	ID   int64  `json:"id"`
	ToID int64  `json:"toid"`
	Name string `json:"name"`
	Msg  string `json:"msg"`
	Time string `json:"time"`
}

type addFriendRequest struct {
	ID       int64 `json:"id"`
	FriendID int64 `json:"friendid"`
}

type createGroupRequest struct {
	ID        int64  `json:"id"`
	GroupName string `json:"groupname"`
	GroupDesc string `json:"groupdesc"`
}

type joinGroupRequest struct {
	UserID  int64 `json:"userid"`
	GroupID int64 `json:"groupid"`
}

type groupChatRequest struct {
	ID      int64  `json:"id"`
	GroupID int64  `json:"groupid"`
	Name    string `json:"name"`
	Msg     string `json:"msg"`
	Time    string `json:"time"`
}

// --- Reply envelopes ---

// FriendEntry is one row of the friend list included in a successful login reply.
type FriendEntry struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	State string `json:"state"`
}

// GroupMemberEntry is one roster row of a group included in a successful login reply.
type GroupMemberEntry struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	State string `json:"state"`
	Role  string `json:"role"`
}

// GroupEntry is one row of the group list included in a successful login reply.
type GroupEntry struct {
	ID        int64              `json:"id"`
	GroupName string             `json:"groupname"`
	GroupDesc string             `json:"groupdesc"`
	Users     []GroupMemberEntry `json:"users"`
}

// LoginAck is the reply to a login attempt. Exactly one is sent per attempt.
type LoginAck struct {
	MsgID      MsgID         `json:"msgid"`
	Errno      int           `json:"errno"`
	Errmsg     string        `json:"errmsg,omitempty"`
	ID         int64         `json:"id,omitempty"`
	Name       string        `json:"name,omitempty"`
	OfflineMsg []string      `json:"offlinemsg,omitempty"`
	Friends    []FriendEntry `json:"friends,omitempty"`
	Groups     []GroupEntry  `json:"groups,omitempty"`
}

// RegisterAck is the reply to a registration attempt, carrying the generated id on success.
type RegisterAck struct {
	MsgID  MsgID  `json:"msgid"`
	Errno  int    `json:"errno"`
	ID     int64  `json:"id,omitempty"`
	Errmsg string `json:"errmsg,omitempty"`
}

// OpAck is the generic success/failure reply for friend and group management operations.
type OpAck struct {
	MsgID MsgID  `json:"msgid"`
	Errno int    `json:"errno"`
	Msg   string `json:"msg"`
}

// CreateGroupAck extends the generic ack with the generated group id.
type CreateGroupAck struct {
	MsgID   MsgID  `json:"msgid"`
	Errno   int    `json:"errno"`
	Msg     string `json:"msg"`
	GroupID int64  `json:"groupid,omitempty"`
}

// ChatMessage is the envelope delivered to a chat recipient, re-stamped by the
// router with the sender's identity. GroupID is set only for group chat.
type ChatMessage struct {
	MsgID   MsgID  `json:"msgid"`
	ID      int64  `json:"id"`
	GroupID int64  `json:"groupid,omitempty"`
	Name    string `json:"name"`
	Msg     string `json:"msg"`
	Time    string `json:"time"`
}
