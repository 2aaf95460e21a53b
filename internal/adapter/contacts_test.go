package adapter

import (
	"context"
	"errors"
	"testing"

	"github.com/ArkBriar/smartqq/internal/qq"
	"github.com/ArkBriar/smartqq/internal/qq/qqtest"
	"github.com/ArkBriar/smartqq/internal/store"
)

func TestContacts(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	ctx := context.Background()

	friends, err := h.adapter.Contacts(ctx, KindFriend)
	if err != nil {
		t.Fatal(err)
	}
	want := []store.Contact{
		{Kind: store.KindFriend, ID: 10, Name: "alice", Category: 0},
		{Kind: store.KindFriend, ID: 20, Name: "bob", Markname: "bobby", Category: 1},
	}
	if len(friends) != len(want) {
		t.Fatalf("friends = %+v", friends)
	}
	for i := range want {
		if friends[i] != want[i] {
			t.Errorf("friend %d = %+v, want %+v", i, friends[i], want[i])
		}
	}

	groups, err := h.adapter.Contacts(ctx, KindGroup)
	if err != nil || len(groups) != 1 || groups[0] != (store.Contact{Kind: store.KindGroup, ID: 5, Name: "book club", Code: 555}) {
		t.Errorf("groups = %+v, %v", groups, err)
	}
	discusses, err := h.adapter.Contacts(ctx, KindDiscuss)
	if err != nil || len(discusses) != 1 || discusses[0].Name != "trip" {
		t.Errorf("discusses = %+v, %v", discusses, err)
	}
	if _, err := h.adapter.Contacts(ctx, KindRecent); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("err = %v, want ErrUnknownKind", err)
	}
}

func TestList(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	ctx := context.Background()

	for _, kind := range ListKinds {
		v, err := h.adapter.List(ctx, kind)
		if err != nil {
			t.Errorf("List(%s): %v", kind, err)
			continue
		}
		switch kind {
		case KindCategory:
			if cats := v.([]qq.Category); len(cats) != 2 || cats[1].Name != "work" {
				t.Errorf("categories = %+v", cats)
			}
		case KindRecent:
			if recents := v.([]qq.Recent); len(recents) != 2 {
				t.Errorf("recents = %+v", recents)
			}
		case KindOnline:
			if online := v.([]qq.FriendStatus); len(online) != 1 || online[0].Status != "online" {
				t.Errorf("online = %+v", online)
			}
		}
	}
	if _, err := h.adapter.List(ctx, "nope"); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("err = %v, want ErrUnknownKind", err)
	}
}

func TestInfo(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	ctx := context.Background()

	self, err := h.adapter.Info(ctx, KindSelf, 0)
	if err != nil || self.(*qq.UserInfo).Account != qqtest.SelfAccount {
		t.Errorf("self = %+v, %v", self, err)
	}
	friend, err := h.adapter.Info(ctx, KindFriend, 10)
	if err != nil || friend.(*qq.UserInfo).Nick != "alice" {
		t.Errorf("friend = %+v, %v", friend, err)
	}
	for _, id := range []int64{5, 555} {
		group, err := h.adapter.Info(ctx, KindGroup, id)
		if err != nil || group.(*qq.GroupInfo).Name != "book club" {
			t.Errorf("group %d = %+v, %v", id, group, err)
		}
	}
	if _, err := h.adapter.Info(ctx, KindGroup, 999); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown group err = %v, want ErrNotFound", err)
	}
	discuss, err := h.adapter.Info(ctx, KindDiscuss, 7)
	if err != nil || discuss.(*qq.DiscussInfo).Name != "trip" {
		t.Errorf("discuss = %+v, %v", discuss, err)
	}
	number, err := h.adapter.Info(ctx, KindQQ, 10)
	if err != nil || *number.(*QQNumber) != (QQNumber{Uin: 10, Account: 10010}) {
		t.Errorf("qq = %+v, %v", number, err)
	}
	if _, err := h.adapter.Info(ctx, KindRecent, 0); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("err = %v, want ErrUnknownKind", err)
	}
}
