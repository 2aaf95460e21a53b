package model

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/ArkBriar/smartqq/internal/adapter"
	"github.com/ArkBriar/smartqq/internal/api"
	"github.com/ArkBriar/smartqq/internal/bus"
	"github.com/ArkBriar/smartqq/internal/store"
	"github.com/ArkBriar/smartqq/internal/tui/client"
)

// fakeBackend answers from fixed data and records requests.
type fakeBackend struct {
	convs    []store.Conversation
	messages map[int64][]store.Message
	contacts map[string][]store.Contact
	info     map[string]any

	listCalls int
	msgReqs   []api.ListMessagesRequest
	sent      []api.SendTextRequest
	statusErr error
}

func (f *fakeBackend) GetStatus(context.Context) (*api.Status, error) {
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	return &api.Status{Session: "default", Status: "ONLINE", LoggedIn: true}, nil
}

func (f *fakeBackend) StopPolling(context.Context) (*api.StopPollingResponse, error) {
	return &api.StopPollingResponse{Stopped: true}, nil
}

func (f *fakeBackend) ListConversations(context.Context, *api.ListConversationsRequest) (*api.ListConversationsResponse, error) {
	f.listCalls++
	return &api.ListConversationsResponse{Conversations: append([]store.Conversation(nil), f.convs...)}, nil
}

func (f *fakeBackend) ListMessages(_ context.Context, req *api.ListMessagesRequest) (*api.ListMessagesResponse, error) {
	f.msgReqs = append(f.msgReqs, *req)
	return &api.ListMessagesResponse{Messages: f.messages[req.Peer]}, nil
}

func (f *fakeBackend) SearchMessages(_ context.Context, req *api.SearchMessagesRequest) (*api.SearchMessagesResponse, error) {
	return &api.SearchMessagesResponse{Results: []store.SearchResult{{Snippet: req.Query}}}, nil
}

func (f *fakeBackend) SendText(_ context.Context, req *api.SendTextRequest) (*api.SendTextResponse, error) {
	f.sent = append(f.sent, *req)
	return &api.SendTextResponse{Accepted: true, ClientMsgID: req.ClientMsgID}, nil
}

func (f *fakeBackend) ListContacts(_ context.Context, req *api.ListContactsRequest) (*api.ListContactsResponse, error) {
	items, _ := json.Marshal(f.contacts[req.Kind])
	return &api.ListContactsResponse{Kind: req.Kind, Items: items}, nil
}

func (f *fakeBackend) RefreshContacts(_ context.Context, req *api.RefreshContactsRequest) (*api.RefreshContactsResponse, error) {
	return &api.RefreshContactsResponse{Refreshed: []string{req.Kind}}, nil
}

func (f *fakeBackend) GetInfo(_ context.Context, req *api.GetInfoRequest) (*api.GetInfoResponse, error) {
	info, ok := f.info[req.Kind]
	if !ok {
		return nil, errors.New("not found")
	}
	raw, _ := json.Marshal(info)
	return &api.GetInfoResponse{Kind: req.Kind, Info: raw}, nil
}

func (f *fakeBackend) Auth(context.Context) (client.Stream[adapter.AuthEvent], error) {
	return nil, errors.New("not implemented")
}

func (f *fakeBackend) Events(context.Context, string) (client.Stream[api.Envelope], error) {
	return nil, errors.New("not implemented")
}

func newFake() *fakeBackend {
	return &fakeBackend{
		convs: []store.Conversation{
			{Kind: store.KindFriend, Peer: 10, Name: "alice", UnreadCount: 2, LastMessageAt: 2000},
			{Kind: store.KindGroup, Peer: 5, Name: "book club", LastMessageAt: 1000},
		},
		messages: map[int64][]store.Message{
			10: {{Kind: store.KindFriend, Peer: 10, Body: "hi", Timestamp: 2000}},
		},
		contacts: map[string][]store.Contact{
			store.KindFriend: {{Kind: store.KindFriend, ID: 10, Name: "alice"}, {Kind: store.KindFriend, ID: 20, Name: "bob", Markname: "bobby"}},
		},
		info: map[string]any{},
	}
}

func TestOpenMarksRead(t *testing.T) {
	f := newFake()
	vm := NewViewModel(f)
	ctx := context.Background()

	if err := vm.LoadConversations(ctx); err != nil {
		t.Fatal(err)
	}
	if err := vm.Open(ctx, vm.Conversations()[0]); err != nil {
		t.Fatal(err)
	}
	if len(f.msgReqs) != 1 || !f.msgReqs[0].MarkRead || f.msgReqs[0].Peer != 10 {
		t.Errorf("message requests = %+v", f.msgReqs)
	}
	if got := vm.Conversations()[0].UnreadCount; got != 0 {
		t.Errorf("unread after open = %d", got)
	}
	if f.convs[0].UnreadCount != 2 {
		t.Error("open mutated the backend's slice")
	}
	if msgs := vm.Messages(); len(msgs) != 1 || msgs[0].Body != "hi" {
		t.Errorf("messages = %+v", msgs)
	}
	select {
	case <-vm.RefreshCh():
	default:
		t.Error("no refresh signal")
	}

	vm.Close()
	if _, ok := vm.Active(); ok {
		t.Error("conversation still active after Close")
	}
	if err := vm.LoadMessages(ctx); err != nil || len(f.msgReqs) != 1 {
		t.Errorf("LoadMessages without an active conversation fetched: %v, %d requests", err, len(f.msgReqs))
	}
}

func TestSendUsesFreshIDs(t *testing.T) {
	f := newFake()
	vm := NewViewModel(f)

	a, err := vm.Send(context.Background(), store.KindGroup, 5, "x")
	if err != nil {
		t.Fatal(err)
	}
	b, _ := vm.Send(context.Background(), store.KindGroup, 5, "y")
	if a == "" || a == b {
		t.Errorf("client message ids %q and %q", a, b)
	}
	if f.sent[0].Kind != store.KindGroup || f.sent[0].Peer != 5 || f.sent[0].Text != "x" {
		t.Errorf("sent = %+v", f.sent[0])
	}
}

func TestConversationLookup(t *testing.T) {
	f := newFake()
	vm := NewViewModel(f)
	ctx := context.Background()
	if err := vm.LoadConversations(ctx); err != nil {
		t.Fatal(err)
	}
	if err := vm.LoadContacts(ctx, store.KindFriend); err != nil {
		t.Fatal(err)
	}

	if got := vm.Conversation(store.KindFriend, 10); got.UnreadCount != 2 {
		t.Errorf("existing conversation = %+v", got)
	}
	if got := vm.Conversation(store.KindFriend, 20); got.Name != "bobby" || got.Peer != 20 {
		t.Errorf("contact without messages = %+v", got)
	}
	if got := vm.Name(store.KindDiscuss, 7); got != "" {
		t.Errorf("unknown peer name = %q", got)
	}
	if got := vm.Contacts(store.KindFriend); len(got) != 2 {
		t.Errorf("contacts = %+v", got)
	}
}

func TestApply(t *testing.T) {
	f := newFake()
	vm := NewViewModel(f)
	ctx := context.Background()
	if err := vm.LoadConversations(ctx); err != nil {
		t.Fatal(err)
	}
	if err := vm.Open(ctx, vm.Conversations()[0]); err != nil {
		t.Fatal(err)
	}
	lists, fetches := f.listCalls, len(f.msgReqs)

	payload := func(v any) json.RawMessage {
		raw, _ := json.Marshal(v)
		return raw
	}

	// A message in another conversation reloads only the list.
	handled, err := vm.Apply(ctx, api.Envelope{Kind: bus.KindMessageUpsert, Payload: payload(store.Message{Kind: store.KindGroup, Peer: 5})})
	if !handled || err != nil {
		t.Fatalf("Apply = %v, %v", handled, err)
	}
	if f.listCalls != lists+1 || len(f.msgReqs) != fetches {
		t.Errorf("list calls %d, message fetches %d", f.listCalls-lists, len(f.msgReqs)-fetches)
	}

	// One in the open conversation reloads its messages too.
	if _, err := vm.Apply(ctx, api.Envelope{Kind: bus.KindMessageUpsert, Payload: payload(store.Message{Kind: store.KindFriend, Peer: 10})}); err != nil {
		t.Fatal(err)
	}
	if len(f.msgReqs) != fetches+1 {
		t.Errorf("open conversation not reloaded")
	}

	snap := store.ContactSnapshot{Kind: store.KindGroup, Contacts: []store.Contact{{Kind: store.KindGroup, ID: 5, Name: "book club", Code: 555}}}
	if _, err := vm.Apply(ctx, api.Envelope{Kind: bus.KindContacts, Payload: payload(snap)}); err != nil {
		t.Fatal(err)
	}
	if got := vm.Contacts(store.KindGroup); len(got) != 1 || got[0].Code != 555 {
		t.Errorf("group contacts = %+v", got)
	}

	if _, err := vm.Apply(ctx, api.Envelope{Kind: bus.KindStatusChanged}); err != nil {
		t.Fatal(err)
	}
	if st := vm.Status(); st == nil || st.Status != "ONLINE" {
		t.Errorf("status = %+v", st)
	}

	f.statusErr = errors.New("daemon gone")
	if _, err := vm.Apply(ctx, api.Envelope{Kind: bus.KindWarning}); err == nil {
		t.Error("status reload error swallowed")
	}

	if handled, _ := vm.Apply(ctx, api.Envelope{Kind: bus.KindFriendMessage}); handled {
		t.Error("raw qq events should be left to the message upserts")
	}
	if _, err := vm.Apply(ctx, api.Envelope{Kind: bus.KindMessageUpsert, Payload: json.RawMessage(`"nope"`)}); err == nil {
		t.Error("bad payload accepted")
	}
}

func TestDetails(t *testing.T) {
	f := newFake()
	f.info[store.KindGroup] = map[string]any{
		"gid": 5, "name": "book club", "owner": 20, "createtime": 1400000000, "memo": "read more",
		"users": []map[string]any{{"uin": 10, "nick": "alice"}, {"uin": 20, "nick": "bob", "card": "the boss"}},
	}
	f.info[store.KindFriend] = map[string]any{
		"uin": 10, "nick": "alice", "gender": "female", "city": "Shenzhen", "country": "China",
		"birthday": map[string]int{"year": 1990, "month": 1, "day": 2},
	}
	f.info[store.KindDiscuss] = map[string]any{"did": 7, "discu_name": "trip", "users": []map[string]any{{"uin": 10, "nick": "alice"}, {"uin": 20, "nick": "bob"}}}
	vm := NewViewModel(f)
	ctx := context.Background()

	tests := []struct {
		kind string
		want map[string]string
	}{
		{store.KindGroup, map[string]string{"Owner": "the boss", "Members": "2", "Memo": "read more"}},
		{store.KindFriend, map[string]string{"Nick": "alice", "Birthday": "1990-01-02", "Location": "Shenzhen, China"}},
		{store.KindDiscuss, map[string]string{"Members": "2", "Who": "alice, bob"}},
	}
	for _, tt := range tests {
		details, err := vm.Details(ctx, store.Conversation{Kind: tt.kind, Peer: 1})
		if err != nil {
			t.Fatalf("%s: %v", tt.kind, err)
		}
		got := make(map[string]string)
		for _, d := range details {
			if d.Value == "" {
				t.Errorf("%s: empty detail %q kept", tt.kind, d.Label)
			}
			got[d.Label] = d.Value
		}
		for label, want := range tt.want {
			if got[label] != want {
				t.Errorf("%s %s = %q, want %q", tt.kind, label, got[label], want)
			}
		}
	}

	delete(f.info, store.KindFriend)
	if _, err := vm.Details(ctx, store.Conversation{Kind: store.KindFriend, Peer: 1}); err == nil {
		t.Error("missing info did not fail")
	}
}
