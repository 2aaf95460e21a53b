package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ArkBriar/smartqq/internal/bus"
	"github.com/ArkBriar/smartqq/internal/store"
)

type fakeSource struct {
	lists map[string][]store.Contact
	fail  map[string]error
	calls []string
}

func (f *fakeSource) Contacts(_ context.Context, kind string) ([]store.Contact, error) {
	f.calls = append(f.calls, kind)
	if err := f.fail[kind]; err != nil {
		return nil, err
	}
	return f.lists[kind], nil
}

func TestRefresh(t *testing.T) {
	db := testDB(t)
	b := bus.New()
	ch, unsub := b.Subscribe(bus.KindContacts, 10)
	defer unsub()

	src := &fakeSource{lists: map[string][]store.Contact{
		store.KindFriend:  {{Kind: store.KindFriend, ID: 10, Name: "alice"}, {Kind: store.KindFriend, ID: 20, Name: "bob", Category: 1}},
		store.KindGroup:   {{Kind: store.KindGroup, ID: 5, Name: "g", Code: 555}},
		store.KindDiscuss: nil,
	}}
	r := NewRefresher(db, b, src, nil)
	fixed := time.UnixMilli(1700000000000)
	r.now = func() time.Time { return fixed }

	if err := r.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}

	friends, _ := db.ListContacts(store.KindFriend)
	groups, _ := db.ListContacts(store.KindGroup)
	if len(friends) != 2 || len(groups) != 1 || groups[0].Code != 555 {
		t.Errorf("friends = %+v, groups = %+v", friends, groups)
	}
	if len(ch) != 3 {
		t.Fatalf("published %d snapshots, want 3", len(ch))
	}
	first := <-ch
	snap, ok := first.Payload.(*store.ContactSnapshot)
	if !ok || snap.Kind != store.KindFriend || len(snap.Contacts) != 2 {
		t.Errorf("first snapshot = %#v", first.Payload)
	}

	last, err := r.LastRefresh(store.KindGroup)
	if err != nil || !last.Equal(fixed) {
		t.Errorf("LastRefresh = %v, %v; want %v", last, err, fixed)
	}
}

func TestRefreshContinuesPastFailures(t *testing.T) {
	db := testDB(t)
	boom := errors.New("boom")
	src := &fakeSource{
		lists: map[string][]store.Contact{store.KindGroup: {{Kind: store.KindGroup, ID: 1, Name: "g"}}},
		fail:  map[string]error{store.KindFriend: boom},
	}
	r := NewRefresher(db, bus.New(), src, nil)

	if err := r.Refresh(context.Background()); !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
	if len(src.calls) != len(RefreshKinds) {
		t.Errorf("calls = %v, want every kind", src.calls)
	}
	if groups, _ := db.ListContacts(store.KindGroup); len(groups) != 1 {
		t.Errorf("groups = %+v", groups)
	}
	if last, err := r.LastRefresh(store.KindFriend); err != nil || !last.IsZero() {
		t.Errorf("LastRefresh(friend) = %v, %v; want zero", last, err)
	}
}

func TestCheckpoint(t *testing.T) {
	r := NewRefresher(testDB(t), bus.New(), &fakeSource{}, nil)

	if err := r.UpdateCheckpoint("k", "v1"); err != nil {
		t.Fatal(err)
	}
	if err := r.UpdateCheckpoint("k", "v2"); err != nil {
		t.Fatal(err)
	}
	got, err := r.GetCheckpoint("k")
	if err != nil || got != "v2" {
		t.Errorf("GetCheckpoint = %q, %v; want v2", got, err)
	}
	if _, err := r.GetCheckpoint("missing"); err == nil {
		t.Error("expected error for missing checkpoint")
	}
}
