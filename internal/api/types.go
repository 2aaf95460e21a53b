package api

import (
	"encoding/json"

	"github.com/ArkBriar/smartqq/internal/store"
)

// Requests and responses of the Control service. They travel as
// google.protobuf.Struct messages whose fields follow the json tags.

type StatusRequest struct{}

// Status describes the daemon and its QQ session.
type Status struct {
	Session       string `json:"session"`
	Status        string `json:"status"`
	LoggedIn      bool   `json:"logged_in"`
	Polling       bool   `json:"polling"`
	Uin           int64  `json:"uin,omitempty"`
	Account       int64  `json:"account,omitempty"`
	Nick          string `json:"nick,omitempty"`
	UptimeMs      int64  `json:"uptime_ms"`
	MessageCount  int64  `json:"message_count"`
	ContactCount  int64  `json:"contact_count"`
	DroppedEvents int64  `json:"dropped_events"`
}

type AuthRequest struct{}

type StopPollingRequest struct{}

type StopPollingResponse struct {
	Stopped bool `json:"stopped"`
}

// ListContactsRequest selects a server list. With Cached set, friend, group
// and discuss lists are read from the contact cache instead.
type ListContactsRequest struct {
	Kind   string `json:"kind"`
	Cached bool   `json:"cached,omitempty"`
}

// ListContactsResponse carries the list as JSON in the shape of the
// matching qq type, or of store.Contact when cached.
type ListContactsResponse struct {
	Kind  string          `json:"kind"`
	Items json.RawMessage `json:"items"`
}

type GetInfoRequest struct {
	Kind string `json:"kind"`
	ID   int64  `json:"id,omitempty"`
}

type GetInfoResponse struct {
	Kind string          `json:"kind"`
	Info json.RawMessage `json:"info"`
}

// RefreshContactsRequest refreshes one cached kind, or all when Kind is
// empty.
type RefreshContactsRequest struct {
	Kind string `json:"kind,omitempty"`
}

type RefreshContactsResponse struct {
	Refreshed []string `json:"refreshed"`
}

type ListConversationsRequest struct {
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

type ListConversationsResponse struct {
	Conversations []store.Conversation `json:"conversations"`
	HasMore       bool                 `json:"has_more"`
}

// ListMessagesRequest pages backwards from Before (milliseconds, zero for
// the newest). MarkRead clears the conversation's unread count.
type ListMessagesRequest struct {
	Kind     string `json:"kind"`
	Peer     int64  `json:"peer"`
	Before   int64  `json:"before,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	MarkRead bool   `json:"mark_read,omitempty"`
}

type ListMessagesResponse struct {
	Messages []store.Message `json:"messages"`
	HasMore  bool            `json:"has_more"`
}

type SearchMessagesRequest struct {
	Query string `json:"query"`
	Kind  string `json:"kind,omitempty"`
	Peer  int64  `json:"peer,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

type SearchMessagesResponse struct {
	Results []store.SearchResult `json:"results"`
}

type SendTextRequest struct {
	Kind        string `json:"kind"`
	Peer        int64  `json:"peer"`
	Text        string `json:"text"`
	ClientMsgID string `json:"client_msg_id,omitempty"`
}

type SendTextResponse struct {
	Accepted    bool   `json:"accepted"`
	ClientMsgID string `json:"client_msg_id"`
}

// WatchEventsRequest filters by namespace ("session", "qq", "message");
// empty means everything.
type WatchEventsRequest struct {
	Namespace string `json:"namespace,omitempty"`
}

// Envelope is a bus event as streamed to clients.
type Envelope struct {
	ID          string          `json:"id"`
	Session     string          `json:"session"`
	Kind        string          `json:"kind"`
	TimestampMs int64           `json:"timestamp_ms"`
	Payload     json.RawMessage `json:"payload,omitempty"`
}
