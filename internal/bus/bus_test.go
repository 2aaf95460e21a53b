package bus

import (
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("session.", 10)
	defer unsub()

	b.Emit(KindQRIssued, "/tmp/qrcode.png")

	select {
	case evt := <-ch:
		if evt.Kind != KindQRIssued {
			t.Errorf("got kind %q, want %s", evt.Kind, KindQRIssued)
		}
		if evt.ID == "" || evt.Timestamp.IsZero() {
			t.Errorf("event not stamped: %+v", evt)
		}
		if evt.Payload != "/tmp/qrcode.png" {
			t.Errorf("payload = %v", evt.Payload)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestPrefixFiltering(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("qq.", 10)
	defer unsub()

	b.Emit(KindStatusChanged, nil)
	b.Emit(KindGroupMessage, nil)

	select {
	case evt := <-ch:
		if evt.Kind != KindGroupMessage {
			t.Errorf("got kind %q, want %s", evt.Kind, KindGroupMessage)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}

	select {
	case evt := <-ch:
		t.Errorf("unexpected event: %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestEmptyPrefixMatchesAll(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("", 10)
	defer unsub()

	b.Emit(KindWarning, nil)
	b.Emit(KindSendAck, nil)
	if len(ch) != 2 {
		t.Errorf("buffered = %d, want 2", len(ch))
	}
}

func TestUnsubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("session.", 10)
	unsub()
	unsub()

	b.Emit(KindStatusChanged, nil)

	select {
	case evt := <-ch:
		t.Errorf("received event after unsubscribe: %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDropOnFullBuffer(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("message.", 1)
	defer unsub()

	b.Emit(KindMessageUpsert, "one")
	b.Emit(KindMessageUpsert, "two")

	evt := <-ch
	if evt.Payload != "one" {
		t.Errorf("got %v, want one", evt.Payload)
	}
	if b.Dropped() != 1 {
		t.Errorf("dropped = %d, want 1", b.Dropped())
	}
}

func TestNamespace(t *testing.T) {
	tests := map[string]string{
		KindFriendMessage: "qq",
		KindSendFailed:    "message",
		"bare":            "bare",
	}
	for kind, want := range tests {
		if got := (Event{Kind: kind}).Namespace(); got != want {
			t.Errorf("Namespace(%q) = %q, want %q", kind, got, want)
		}
	}
}
