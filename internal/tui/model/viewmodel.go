package model

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ArkBriar/smartqq/internal/adapter"
	"github.com/ArkBriar/smartqq/internal/api"
	"github.com/ArkBriar/smartqq/internal/bus"
	"github.com/ArkBriar/smartqq/internal/qq"
	"github.com/ArkBriar/smartqq/internal/store"
	"github.com/ArkBriar/smartqq/internal/tui/client"
	"github.com/google/uuid"
)

// Backend is the part of the daemon client the view model uses.
type Backend interface {
	GetStatus(ctx context.Context) (*api.Status, error)
	StopPolling(ctx context.Context) (*api.StopPollingResponse, error)
	ListConversations(ctx context.Context, req *api.ListConversationsRequest) (*api.ListConversationsResponse, error)
	ListMessages(ctx context.Context, req *api.ListMessagesRequest) (*api.ListMessagesResponse, error)
	SearchMessages(ctx context.Context, req *api.SearchMessagesRequest) (*api.SearchMessagesResponse, error)
	SendText(ctx context.Context, req *api.SendTextRequest) (*api.SendTextResponse, error)
	ListContacts(ctx context.Context, req *api.ListContactsRequest) (*api.ListContactsResponse, error)
	RefreshContacts(ctx context.Context, req *api.RefreshContactsRequest) (*api.RefreshContactsResponse, error)
	GetInfo(ctx context.Context, req *api.GetInfoRequest) (*api.GetInfoResponse, error)
	Auth(ctx context.Context) (client.Stream[adapter.AuthEvent], error)
	Events(ctx context.Context, namespace string) (client.Stream[api.Envelope], error)
}

const (
	conversationPage = 200
	messagePage      = 100
	searchLimit      = 50
)

// Detail is one labelled fact about a conversation peer.
type Detail struct {
	Label string
	Value string
}

// ViewModel caches daemon state for the views and signals when it changed.
// Loaders run on RPC goroutines; getters return snapshots for the draw
// loop.
type ViewModel struct {
	mu sync.RWMutex

	backend  Backend
	status   *api.Status
	convs    []store.Conversation
	active   *store.Conversation
	messages []store.Message
	contacts map[string][]store.Contact

	refreshCh chan struct{}
}

// NewViewModel creates a view model over backend.
func NewViewModel(b Backend) *ViewModel {
	return &ViewModel{
		backend:   b,
		contacts:  make(map[string][]store.Contact),
		refreshCh: make(chan struct{}, 1),
	}
}

// RefreshCh signals that cached state changed.
func (vm *ViewModel) RefreshCh() <-chan struct{} {
	return vm.refreshCh
}

func (vm *ViewModel) signalRefresh() {
	select {
	case vm.refreshCh <- struct{}{}:
	default:
	}
}

// LoadStatus fetches the daemon status.
func (vm *ViewModel) LoadStatus(ctx context.Context) error {
	st, err := vm.backend.GetStatus(ctx)
	if err != nil {
		return err
	}
	vm.mu.Lock()
	vm.status = st
	vm.mu.Unlock()
	vm.signalRefresh()
	return nil
}

// LoadConversations fetches the conversation list.
func (vm *ViewModel) LoadConversations(ctx context.Context) error {
	resp, err := vm.backend.ListConversations(ctx, &api.ListConversationsRequest{Limit: conversationPage})
	if err != nil {
		return err
	}
	vm.mu.Lock()
	vm.convs = resp.Conversations
	vm.mu.Unlock()
	vm.signalRefresh()
	return nil
}

// Open makes conv the active conversation, loads its newest messages and
// marks it read.
func (vm *ViewModel) Open(ctx context.Context, conv store.Conversation) error {
	msgs, err := vm.fetchMessages(ctx, conv)
	if err != nil {
		return err
	}
	vm.mu.Lock()
	vm.active = &conv
	vm.messages = msgs
	for i := range vm.convs {
		if vm.convs[i].Kind == conv.Kind && vm.convs[i].Peer == conv.Peer {
			vm.convs[i].UnreadCount = 0
		}
	}
	vm.mu.Unlock()
	vm.signalRefresh()
	return nil
}

// Close forgets the active conversation.
func (vm *ViewModel) Close() {
	vm.mu.Lock()
	vm.active, vm.messages = nil, nil
	vm.mu.Unlock()
}

// LoadMessages reloads the active conversation, if any.
func (vm *ViewModel) LoadMessages(ctx context.Context) error {
	conv, ok := vm.Active()
	if !ok {
		return nil
	}
	msgs, err := vm.fetchMessages(ctx, conv)
	if err != nil {
		return err
	}
	vm.mu.Lock()
	if vm.active != nil && vm.active.Kind == conv.Kind && vm.active.Peer == conv.Peer {
		vm.messages = msgs
	}
	vm.mu.Unlock()
	vm.signalRefresh()
	return nil
}

func (vm *ViewModel) fetchMessages(ctx context.Context, conv store.Conversation) ([]store.Message, error) {
	resp, err := vm.backend.ListMessages(ctx, &api.ListMessagesRequest{
		Kind:     conv.Kind,
		Peer:     conv.Peer,
		Limit:    messagePage,
		MarkRead: true,
	})
	if err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

// Search runs a message search across all conversations.
func (vm *ViewModel) Search(ctx context.Context, query string) ([]store.SearchResult, error) {
	resp, err := vm.backend.SearchMessages(ctx, &api.SearchMessagesRequest{Query: query, Limit: searchLimit})
	if err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// Send queues text for a conversation and returns its client message id.
func (vm *ViewModel) Send(ctx context.Context, kind string, peer int64, text string) (string, error) {
	resp, err := vm.backend.SendText(ctx, &api.SendTextRequest{
		Kind:        kind,
		Peer:        peer,
		Text:        text,
		ClientMsgID: uuid.NewString(),
	})
	if err != nil {
		return "", err
	}
	if !resp.Accepted {
		return "", fmt.Errorf("send %s not accepted", resp.ClientMsgID)
	}
	return resp.ClientMsgID, nil
}

// LoadContacts fetches the cached contacts of kind.
func (vm *ViewModel) LoadContacts(ctx context.Context, kind string) error {
	resp, err := vm.backend.ListContacts(ctx, &api.ListContactsRequest{Kind: kind, Cached: true})
	if err != nil {
		return err
	}
	var contacts []store.Contact
	if err := json.Unmarshal(resp.Items, &contacts); err != nil {
		return fmt.Errorf("decode %s contacts: %w", kind, err)
	}
	vm.mu.Lock()
	vm.contacts[kind] = contacts
	vm.mu.Unlock()
	vm.signalRefresh()
	return nil
}

// RefreshContacts asks the daemon to refetch kind, all kinds when empty,
// and returns what it refreshed.
func (vm *ViewModel) RefreshContacts(ctx context.Context, kind string) ([]string, error) {
	resp, err := vm.backend.RefreshContacts(ctx, &api.RefreshContactsRequest{Kind: kind})
	if err != nil {
		return nil, err
	}
	return resp.Refreshed, nil
}

// StopPolling stops the daemon's long-poll loop.
func (vm *ViewModel) StopPolling(ctx context.Context) (bool, error) {
	resp, err := vm.backend.StopPolling(ctx)
	if err != nil {
		return false, err
	}
	return resp.Stopped, nil
}

// Details fetches what the server knows about the peer of conv.
func (vm *ViewModel) Details(ctx context.Context, conv store.Conversation) ([]Detail, error) {
	resp, err := vm.backend.GetInfo(ctx, &api.GetInfoRequest{Kind: conv.Kind, ID: conv.Peer})
	if err != nil {
		return nil, err
	}
	return describe(conv.Kind, resp.Info)
}

func describe(kind string, raw json.RawMessage) ([]Detail, error) {
	switch kind {
	case store.KindFriend:
		var u qq.UserInfo
		if err := json.Unmarshal(raw, &u); err != nil {
			return nil, err
		}
		return nonEmpty(
			Detail{"Nick", u.Nick},
			Detail{"Signature", u.Lnick},
			Detail{"Gender", u.Gender},
			Detail{"Birthday", birthday(u.Birthday)},
			Detail{"Location", joinNonEmpty(", ", u.City, u.Province, u.Country)},
			Detail{"Occupation", u.Occupation},
			Detail{"College", u.College},
			Detail{"Email", u.Email},
			Detail{"Homepage", u.Homepage},
		), nil
	case store.KindGroup:
		var g qq.GroupInfo
		if err := json.Unmarshal(raw, &g); err != nil {
			return nil, err
		}
		details := nonEmpty(
			Detail{"Memo", g.Memo},
			Detail{"Owner", ownerName(g)},
			Detail{"Members", strconv.Itoa(len(g.Users))},
		)
		if g.CreateTime > 0 {
			details = append(details, Detail{"Created", time.Unix(g.CreateTime, 0).Format("2006-01-02")})
		}
		return details, nil
	case store.KindDiscuss:
		var d qq.DiscussInfo
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, err
		}
		names := make([]string, 0, len(d.Users))
		for _, u := range d.Users {
			names = append(names, u.Nick)
		}
		return nonEmpty(
			Detail{"Members", strconv.Itoa(len(d.Users))},
			Detail{"Who", strings.Join(names, ", ")},
		), nil
	}
	return nil, fmt.Errorf("no details for kind %q", kind)
}

func ownerName(g qq.GroupInfo) string {
	for _, u := range g.Users {
		if u.Uin == g.Owner {
			if u.Card != "" {
				return u.Card
			}
			return u.Nick
		}
	}
	if g.Owner == 0 {
		return ""
	}
	return strconv.FormatInt(g.Owner, 10)
}

func birthday(b qq.Birthday) string {
	if b.Year == 0 {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", b.Year, b.Month, b.Day)
}

func joinNonEmpty(sep string, parts ...string) string {
	var out []string
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}

func nonEmpty(details ...Detail) []Detail {
	out := details[:0]
	for _, d := range details {
		if d.Value != "" {
			out = append(out, d)
		}
	}
	return out
}

// Apply updates cached state for a daemon event and reloads what it made
// stale. It reports whether the event concerned the view model.
func (vm *ViewModel) Apply(ctx context.Context, env api.Envelope) (bool, error) {
	switch {
	case env.Kind == bus.KindMessageUpsert:
		var msg store.Message
		if err := json.Unmarshal(env.Payload, &msg); err != nil {
			return true, fmt.Errorf("decode %s: %w", env.Kind, err)
		}
		if err := vm.LoadConversations(ctx); err != nil {
			return true, err
		}
		if conv, ok := vm.Active(); ok && conv.Kind == msg.Kind && conv.Peer == msg.Peer {
			return true, vm.LoadMessages(ctx)
		}
		return true, nil
	case env.Kind == bus.KindContacts:
		var snap store.ContactSnapshot
		if err := json.Unmarshal(env.Payload, &snap); err != nil {
			return true, fmt.Errorf("decode %s: %w", env.Kind, err)
		}
		vm.mu.Lock()
		vm.contacts[snap.Kind] = snap.Contacts
		vm.mu.Unlock()
		vm.signalRefresh()
		return true, nil
	case strings.HasPrefix(env.Kind, "session."):
		return true, vm.LoadStatus(ctx)
	}
	return false, nil
}

// Status returns the last fetched status, or nil.
func (vm *ViewModel) Status() *api.Status {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.status
}

// Conversations returns the conversation list.
func (vm *ViewModel) Conversations() []store.Conversation {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return append([]store.Conversation(nil), vm.convs...)
}

// Active returns the open conversation.
func (vm *ViewModel) Active() (store.Conversation, bool) {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	if vm.active == nil {
		return store.Conversation{}, false
	}
	return *vm.active, true
}

// Messages returns the active conversation's messages, newest first.
func (vm *ViewModel) Messages() []store.Message {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.messages
}

// Contacts returns the cached contacts of kind.
func (vm *ViewModel) Contacts(kind string) []store.Contact {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.contacts[kind]
}

// Conversation returns the conversation with a peer. A peer without
// messages yet gets a fresh entry named after its contact.
func (vm *ViewModel) Conversation(kind string, peer int64) store.Conversation {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	for _, c := range vm.convs {
		if c.Kind == kind && c.Peer == peer {
			return c
		}
	}
	conv := store.Conversation{Kind: kind, Peer: peer}
	for _, c := range vm.contacts[kind] {
		if c.ID == peer {
			conv.Name = c.DisplayName()
			break
		}
	}
	return conv
}

// Name returns the display name of a peer, empty when unknown.
func (vm *ViewModel) Name(kind string, peer int64) string {
	return vm.Conversation(kind, peer).Name
}
