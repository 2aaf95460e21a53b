package adapter

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ArkBriar/smartqq/internal/bus"
	"github.com/ArkBriar/smartqq/internal/qq"
	"github.com/ArkBriar/smartqq/internal/qq/qqtest"
	"github.com/ArkBriar/smartqq/internal/status"
	"github.com/ArkBriar/smartqq/internal/store"
)

type harness struct {
	srv     *qqtest.Server
	bus     *bus.Bus
	machine *status.Machine
	adapter *Adapter
	qrPath  string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	srv := qqtest.NewServer()
	t.Cleanup(srv.Close)
	b := bus.New()
	m := status.NewMachine(b)
	qrPath := filepath.Join(t.TempDir(), "qrcode.png")
	a := New(b, m, nil, Options{
		QRPath:          qrPath,
		Endpoints:       srv.Endpoints(),
		QRCheckInterval: time.Millisecond,
	})
	t.Cleanup(a.Close)
	return &harness{srv: srv, bus: b, machine: m, adapter: a, qrPath: qrPath}
}

// drain collects auth events until the stream closes.
func drain(t *testing.T, ch <-chan AuthEvent) []AuthEvent {
	t.Helper()
	var events []AuthEvent
	timeout := time.After(5 * time.Second)
	for {
		select {
		case evt, ok := <-ch:
			if !ok {
				return events
			}
			events = append(events, evt)
		case <-timeout:
			t.Fatalf("auth stream did not close; got %+v", events)
		}
	}
}

func (h *harness) login(t *testing.T) {
	t.Helper()
	ch, err := h.adapter.StartAuth(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	events := drain(t, ch)
	if last := events[len(events)-1]; last.Type != AuthEventAuthenticated {
		t.Fatalf("login ended with %+v", last)
	}
}

func TestStartAuthSuccess(t *testing.T) {
	h := newHarness(t)
	h.srv.ScriptVerify(qqtest.QRWaiting, qqtest.QRSuccess(h.srv.URL+"/redir"))
	authenticated, unsub := h.bus.Subscribe(bus.KindAuthenticated, 1)
	defer unsub()

	ch, err := h.adapter.StartAuth(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	events := drain(t, ch)

	var qr, stages int
	for _, evt := range events {
		switch evt.Type {
		case AuthEventQRCode:
			qr++
			if evt.QRPath != h.qrPath {
				t.Errorf("qr path = %q, want %q", evt.QRPath, h.qrPath)
			}
		case AuthEventStage:
			stages++
		}
	}
	if qr != 1 || stages != 8 {
		t.Errorf("got %d qr events and %d stages, want 1 and 8", qr, stages)
	}
	last := events[len(events)-1]
	if last.Type != AuthEventAuthenticated || last.Message != qqtest.SelfNick {
		t.Errorf("last event = %+v", last)
	}

	data, err := os.ReadFile(h.qrPath)
	if err != nil {
		t.Fatal(err)
	}
	if want, _ := qqtest.QRImage(); !bytes.Equal(data, want) {
		t.Errorf("qr file holds %d bytes, want the served image (%d bytes)", len(data), len(want))
	}
	if h.machine.Current() != status.Online {
		t.Errorf("state = %s, want ONLINE", h.machine.Current())
	}
	if !h.adapter.LoggedIn() || !h.adapter.Polling() {
		t.Errorf("logged in = %v, polling = %v", h.adapter.LoggedIn(), h.adapter.Polling())
	}
	select {
	case evt := <-authenticated:
		if self, ok := evt.Payload.(*qq.UserInfo); !ok || self.Account != qqtest.SelfAccount {
			t.Errorf("authenticated payload = %#v", evt.Payload)
		}
	default:
		t.Error("session.authenticated not published")
	}
}

func TestPolledMessagesReachTheBus(t *testing.T) {
	h := newHarness(t)
	msgs, unsub := h.bus.Subscribe("qq.", 10)
	defer unsub()
	h.login(t)

	h.srv.PushText(qq.PollTypeGroupMessage, 42, 5, "hi all")

	select {
	case evt := <-msgs:
		if evt.Kind != bus.KindGroupMessage {
			t.Fatalf("kind = %s", evt.Kind)
		}
		m, ok := evt.Payload.(*store.Message)
		if !ok || m.Kind != store.KindGroup || m.Peer != 5 || m.Sender != 10 || m.Body != "hi all" || m.MsgID != "42" {
			t.Errorf("payload = %#v", evt.Payload)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("polled message not published")
	}
}

func TestStartAuthFailure(t *testing.T) {
	h := newHarness(t)
	h.srv.FailWith("/api/getvfwebqq", 100001)
	failed, unsub := h.bus.Subscribe(bus.KindAuthFailed, 1)
	defer unsub()

	ch, err := h.adapter.StartAuth(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	events := drain(t, ch)
	if last := events[len(events)-1]; last.Type != AuthEventAuthFailed || last.Message == "" {
		t.Errorf("last event = %+v", last)
	}
	if h.machine.Current() != status.AuthRequired {
		t.Errorf("state = %s, want AUTH_REQUIRED", h.machine.Current())
	}
	if h.adapter.Polling() {
		t.Error("polling after a failed login")
	}
	if len(failed) != 1 {
		t.Error("session.auth_failed not published")
	}

	h.srv.FailWith("/api/getvfwebqq", 0)
	h.login(t)
	if h.machine.Current() != status.Online {
		t.Errorf("state after retry = %s", h.machine.Current())
	}
}

func TestStartAuthSingleFlight(t *testing.T) {
	h := newHarness(t)
	h.srv.ScriptVerify(qqtest.QRWaiting)

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := h.adapter.StartAuth(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := h.adapter.StartAuth(context.Background()); !errors.Is(err, ErrAuthInProgress) {
		t.Errorf("second StartAuth err = %v, want ErrAuthInProgress", err)
	}

	cancel()
	drain(t, ch)
	if h.machine.Current() != status.AuthRequired {
		t.Errorf("state after cancel = %s", h.machine.Current())
	}
	if h.adapter.LoggedIn() {
		t.Error("logged in after cancelled attempt")
	}
}

func TestReloginStopsPolling(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	stopped, unsub := h.bus.Subscribe(bus.KindPollStopped, 1)
	defer unsub()

	h.login(t)
	if len(stopped) != 1 {
		t.Error("re-login did not stop the running poll loop")
	}
	if !h.adapter.Polling() || h.machine.Current() != status.Online {
		t.Errorf("polling = %v, state = %s", h.adapter.Polling(), h.machine.Current())
	}
}

func TestQRViewer(t *testing.T) {
	h := newHarness(t)
	var (
		mu   sync.Mutex
		args []string
	)
	h.adapter.opts.QRViewer = "viewer"
	h.adapter.startViewer = func(viewer, path string) error {
		mu.Lock()
		defer mu.Unlock()
		args = append(args, viewer, path)
		return errors.New("ignored")
	}
	h.login(t)

	mu.Lock()
	defer mu.Unlock()
	if len(args) != 2 || args[0] != "viewer" || args[1] != h.qrPath {
		t.Errorf("viewer args = %v", args)
	}
}

func TestWarningDegradesUntilTrafficResumes(t *testing.T) {
	b := bus.New()
	m := status.NewMachine(b)
	for _, s := range []status.State{status.AuthRequired, status.Authenticating, status.Online} {
		if err := m.Transition(s); err != nil {
			t.Fatal(err)
		}
	}
	a := New(b, m, nil, Options{})
	defer a.Close()
	warnings, unsub := b.Subscribe(bus.KindWarning, 2)
	defer unsub()

	a.onWarning(errors.New("something odd"))
	if m.Current() != status.Online {
		t.Errorf("generic warning changed state to %s", m.Current())
	}
	a.onWarning(&qq.ApiError{Code: qq.CodeLoggedInElsewhere, Op: "poll"})
	if m.Current() != status.Degraded {
		t.Fatalf("state = %s, want DEGRADED", m.Current())
	}
	if len(warnings) != 2 {
		t.Errorf("published %d warnings, want 2", len(warnings))
	}

	NewEventHandler(b, m, nil).OnMessage(qq.Message{MsgID: 1, FromUin: 10})
	if m.Current() != status.Online {
		t.Errorf("state after message = %s, want ONLINE", m.Current())
	}
}

func TestSendRoutesByKind(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	ctx := context.Background()

	tests := []struct {
		kind string
		path string
		key  string
	}{
		{KindFriend, "/channel/send_buddy_msg2", "to"},
		{KindGroup, "/channel/send_qun_msg2", "group_uin"},
		{KindDiscuss, "/channel/send_discu_msg2", "did"},
	}
	var last int64
	for _, tt := range tests {
		id, err := h.adapter.Send(ctx, tt.kind, 77, "hello")
		if err != nil {
			t.Fatalf("%s: %v", tt.kind, err)
		}
		if id <= last {
			t.Errorf("%s: id %d not above %d", tt.kind, id, last)
		}
		last = id
		calls := h.srv.Calls(tt.path)
		if len(calls) != 1 || calls[0].Payload[tt.key] != float64(77) {
			t.Errorf("%s calls = %+v", tt.kind, calls)
		}
	}
	if _, err := h.adapter.Send(ctx, KindCategory, 1, "x"); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("err = %v, want ErrUnknownKind", err)
	}
}

func TestSendBeforeLogin(t *testing.T) {
	h := newHarness(t)
	if _, err := h.adapter.Send(context.Background(), KindFriend, 1, "x"); !errors.Is(err, qq.ErrNotLoggedIn) {
		t.Errorf("err = %v, want ErrNotLoggedIn", err)
	}
	if err := h.adapter.StartPolling(); !errors.Is(err, qq.ErrNotLoggedIn) {
		t.Errorf("StartPolling err = %v, want ErrNotLoggedIn", err)
	}
}

func TestConversions(t *testing.T) {
	content := qq.Content{Text: "hi"}
	f := FriendMessage(qq.Message{MsgID: 1, FromUin: 10, Time: 2, Content: content})
	if f.Kind != store.KindFriend || f.Peer != 10 || f.Sender != 10 || f.Timestamp != 2000 || f.MsgID != "1" || f.Status != store.StatusReceived {
		t.Errorf("friend = %+v", f)
	}
	g := GroupMessage(qq.GroupMessage{MsgID: 2, FromUin: 5, GroupCode: 555, SendUin: 10, Content: content})
	if g.Kind != store.KindGroup || g.Peer != 5 || g.Sender != 10 {
		t.Errorf("group = %+v", g)
	}
	d := DiscussMessage(qq.DiscussMessage{MsgID: 3, DiscussID: 7, FromUin: 8, SendUin: 10, Content: content})
	if d.Kind != store.KindDiscuss || d.Peer != 7 || d.Sender != 10 {
		t.Errorf("discuss = %+v", d)
	}
	if d := DiscussMessage(qq.DiscussMessage{FromUin: 8}); d.Peer != 8 {
		t.Errorf("discuss without did: peer = %d, want from_uin", d.Peer)
	}
}
