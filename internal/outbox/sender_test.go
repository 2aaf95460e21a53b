package outbox

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ArkBriar/smartqq/internal/bus"
	"github.com/ArkBriar/smartqq/internal/store"
	"go.uber.org/zap"
)

// mockSender records calls. When gate is set each call blocks until it
// receives from gate.
type mockSender struct {
	mu    sync.Mutex
	calls []sendCall
	next  int64
	err   error
	gate  chan struct{}
}

type sendCall struct {
	Kind string
	Peer int64
	Text string
}

func (m *mockSender) Send(_ context.Context, kind string, peer int64, text string) (int64, error) {
	m.mu.Lock()
	m.calls = append(m.calls, sendCall{Kind: kind, Peer: peer, Text: text})
	m.next++
	id := 32690000 + m.next
	m.mu.Unlock()
	if m.gate != nil {
		<-m.gate
	}
	return id, m.err
}

func (m *mockSender) snapshot() []sendCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sendCall(nil), m.calls...)
}

func testDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func waitEvent(t *testing.T, ch <-chan bus.Event) bus.Event {
	t.Helper()
	select {
	case evt := <-ch:
		return evt
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for event")
	}
	return bus.Event{}
}

func TestEnqueueValidation(t *testing.T) {
	s := NewSender(testDB(t), &mockSender{}, bus.New(), nil)

	id, err := s.Enqueue(store.KindFriend, 10, "hello", "")
	if err != nil || id == "" {
		t.Fatalf("Enqueue = %q, %v", id, err)
	}
	if id, err := s.Enqueue(store.KindGroup, 5, "hi", "mine"); err != nil || id != "mine" {
		t.Errorf("Enqueue with id = %q, %v", id, err)
	}
	if _, err := s.Enqueue("category", 1, "x", ""); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("err = %v, want ErrUnknownKind", err)
	}
	if _, err := s.Enqueue(store.KindFriend, 1, "  ", ""); !errors.Is(err, ErrEmptyText) {
		t.Errorf("err = %v, want ErrEmptyText", err)
	}
	if _, err := s.Enqueue(store.KindGroup, 5, "again", "mine"); !errors.Is(err, store.ErrDuplicate) {
		t.Errorf("err = %v, want store.ErrDuplicate", err)
	}
}

func TestSenderDeliversQueuedTexts(t *testing.T) {
	db := testDB(t)
	b := bus.New()
	mock := &mockSender{}
	logger, _ := zap.NewDevelopment()
	s := NewSender(db, mock, b, logger)

	acks, unsub := b.Subscribe(bus.KindSendAck, 10)
	defer unsub()

	s.Start(context.Background())
	defer s.Stop()

	first, err := s.Enqueue(store.KindFriend, 10, "hello", "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Enqueue(store.KindDiscuss, 7, "world", ""); err != nil {
		t.Fatal(err)
	}

	ack, ok := waitEvent(t, acks).Payload.(*SendAck)
	if !ok || ack.ClientMsgID != first || ack.MsgID != 32690001 {
		t.Errorf("first ack = %+v", ack)
	}
	waitEvent(t, acks)

	calls := mock.snapshot()
	if len(calls) != 2 || calls[0] != (sendCall{store.KindFriend, 10, "hello"}) || calls[1].Kind != store.KindDiscuss {
		t.Errorf("calls = %+v", calls)
	}

	entry, err := db.GetOutbox(first)
	if err != nil || entry.Status != store.OutboxSent || entry.MsgID != 32690001 {
		t.Errorf("outbox entry = %+v, %v", entry, err)
	}
	msgs, _ := db.ListMessages(store.KindFriend, 10, 0, 10)
	if len(msgs) != 1 || msgs[0].Status != store.StatusSent || !msgs[0].FromMe || msgs[0].MsgID != first {
		t.Errorf("stored messages = %+v", msgs)
	}
	if conv, _ := db.GetConversation(store.KindFriend, 10); conv == nil || conv.UnreadCount != 0 {
		t.Errorf("conversation = %+v", conv)
	}
}

func TestSenderHandlesFailure(t *testing.T) {
	db := testDB(t)
	b := bus.New()
	s := NewSender(db, &mockSender{err: errors.New("network error")}, b, nil)

	failures, unsub := b.Subscribe(bus.KindSendFailed, 10)
	defer unsub()

	s.Start(context.Background())
	defer s.Stop()

	id, err := s.Enqueue(store.KindGroup, 5, "hello", "")
	if err != nil {
		t.Fatal(err)
	}

	f, ok := waitEvent(t, failures).Payload.(*SendFailure)
	if !ok || f.ClientMsgID != id || f.Error != "network error" || f.MsgID != 32690001 {
		t.Errorf("failure = %+v", f)
	}

	pending, _ := db.PendingOutbox()
	if len(pending) != 0 {
		t.Errorf("got %d pending, want 0", len(pending))
	}
	entry, _ := db.GetOutbox(id)
	if entry.Status != store.OutboxFailed || entry.MsgID != 32690001 {
		t.Errorf("entry = %+v", entry)
	}
	msgs, _ := db.ListMessages(store.KindGroup, 5, 0, 10)
	if len(msgs) != 1 || msgs[0].Status != store.StatusFailed {
		t.Errorf("messages = %+v", msgs)
	}
}

func TestSenderOptimisticInsert(t *testing.T) {
	db := testDB(t)
	b := bus.New()
	mock := &mockSender{gate: make(chan struct{})}
	s := NewSender(db, mock, b, nil)

	upserts, unsub := b.Subscribe(bus.KindMessageUpsert, 10)
	defer unsub()

	s.Start(context.Background())
	defer s.Stop()

	if _, err := s.Enqueue(store.KindFriend, 10, "optimistic", ""); err != nil {
		t.Fatal(err)
	}
	waitEvent(t, upserts)

	msgs, err := db.ListMessages(store.KindFriend, 10, 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 || msgs[0].Status != store.StatusPending || msgs[0].Body != "optimistic" {
		t.Fatalf("messages while sending = %+v", msgs)
	}

	acks, unsubAck := b.Subscribe(bus.KindSendAck, 1)
	defer unsubAck()
	close(mock.gate)
	waitEvent(t, acks)

	msgs, _ = db.ListMessages(store.KindFriend, 10, 0, 10)
	if len(msgs) != 1 || msgs[0].Status != store.StatusSent {
		t.Errorf("messages after send = %+v", msgs)
	}
}

func TestStartFailsInterruptedEntries(t *testing.T) {
	db := testDB(t)
	if err := db.QueueOutbox("stale", store.KindFriend, 1, "x"); err != nil {
		t.Fatal(err)
	}
	if err := db.MarkOutboxSending("stale"); err != nil {
		t.Fatal(err)
	}

	mock := &mockSender{}
	s := NewSender(db, mock, bus.New(), nil)
	s.interval = 10 * time.Millisecond
	s.Start(context.Background())
	time.Sleep(50 * time.Millisecond)
	s.Stop()

	entry, _ := db.GetOutbox("stale")
	if entry.Status != store.OutboxFailed || entry.ErrorMessage != "interrupted" {
		t.Errorf("entry = %+v", entry)
	}
	if calls := mock.snapshot(); len(calls) != 0 {
		t.Errorf("interrupted entry was resent: %+v", calls)
	}
}
