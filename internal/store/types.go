package store

import "slices"

// Conversation kinds. A peer id is a friend uin, a group gid or a
// discussion did depending on the kind.
const (
	KindFriend  = "friend"
	KindGroup   = "group"
	KindDiscuss = "discuss"
)

// ValidKind reports whether kind names a conversation kind.
func ValidKind(kind string) bool {
	return slices.Contains([]string{KindFriend, KindGroup, KindDiscuss}, kind)
}

// Message statuses.
const (
	StatusReceived = "received"
	StatusPending  = "pending"
	StatusSent     = "sent"
	StatusFailed   = "failed"
)

// Outbox statuses.
const (
	OutboxQueued  = "queued"
	OutboxSending = "sending"
	OutboxSent    = "sent"
	OutboxFailed  = "failed"
)

// Conversation is a friend, group or discussion with message activity.
type Conversation struct {
	Kind               string `json:"kind"`
	Peer               int64  `json:"peer"`
	Name               string `json:"name"`
	UnreadCount        int    `json:"unread_count"`
	LastMessageAt      int64  `json:"last_message_at"`
	LastMessagePreview string `json:"last_message_preview"`
}

// Contact is a cached entry of one of the contact lists.
type Contact struct {
	Kind     string `json:"kind"`
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Markname string `json:"markname,omitempty"`
	// Code is the group code for groups; zero otherwise.
	Code int64 `json:"code,omitempty"`
	// Category is the friend category index; zero otherwise.
	Category int `json:"category"`
}

// DisplayName prefers the markname.
func (c Contact) DisplayName() string {
	if c.Markname != "" {
		return c.Markname
	}
	return c.Name
}

// Message is a stored inbound or outbound message. Timestamp is in
// milliseconds.
type Message struct {
	ID         int64  `json:"id"`
	Kind       string `json:"kind"`
	Peer       int64  `json:"peer"`
	MsgID      string `json:"msg_id"`
	Sender     int64  `json:"sender"`
	SenderName string `json:"sender_name,omitempty"`
	Body       string `json:"body"`
	FromMe     bool   `json:"from_me"`
	Status     string `json:"status"`
	Timestamp  int64  `json:"timestamp"`
}

// OutboxEntry is a queued outgoing text.
type OutboxEntry struct {
	ID           int64  `json:"id"`
	ClientMsgID  string `json:"client_msg_id"`
	Kind         string `json:"kind"`
	Peer         int64  `json:"peer"`
	Body         string `json:"body"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
	// MsgID is the id the send call used; zero until sent.
	MsgID int64 `json:"msg_id,omitempty"`
}

// ContactSnapshot is a complete contact list of one kind, as fetched from
// the server.
type ContactSnapshot struct {
	Kind     string    `json:"kind"`
	Contacts []Contact `json:"contacts"`
}

// SearchResult holds a message with a snippet around the match.
type SearchResult struct {
	Message Message `json:"message"`
	Snippet string  `json:"snippet"`
}
