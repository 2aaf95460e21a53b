package adapter

import (
	"context"
	"fmt"

	"github.com/ArkBriar/smartqq/internal/store"
)

// List and info kinds. The first three double as conversation kinds.
const (
	KindFriend   = store.KindFriend
	KindGroup    = store.KindGroup
	KindDiscuss  = store.KindDiscuss
	KindCategory = "category"
	KindRecent   = "recent"
	KindOnline   = "online"
	KindSelf     = "self"
	KindQQ       = "qq"
)

// ListKinds are the kinds accepted by List.
var ListKinds = []string{KindFriend, KindGroup, KindDiscuss, KindCategory, KindRecent, KindOnline}

// InfoKinds are the kinds accepted by Info.
var InfoKinds = []string{KindSelf, KindFriend, KindGroup, KindDiscuss, KindQQ}

// Contacts fetches a contact list in store form, for the contact cache.
func (a *Adapter) Contacts(ctx context.Context, kind string) ([]store.Contact, error) {
	switch kind {
	case KindFriend:
		cats, err := a.client.FriendsByCategory(ctx)
		if err != nil {
			return nil, err
		}
		var out []store.Contact
		for _, cat := range cats {
			for _, f := range cat.Friends {
				out = append(out, store.Contact{
					Kind:     store.KindFriend,
					ID:       f.Uin,
					Name:     f.Nickname,
					Markname: f.Markname,
					Category: cat.Index,
				})
			}
		}
		return out, nil
	case KindGroup:
		groups, err := a.client.GroupList(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]store.Contact, 0, len(groups))
		for _, g := range groups {
			out = append(out, store.Contact{Kind: store.KindGroup, ID: g.ID, Name: g.Name, Code: g.Code})
		}
		return out, nil
	case KindDiscuss:
		discusses, err := a.client.DiscussList(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]store.Contact, 0, len(discusses))
		for _, d := range discusses {
			out = append(out, store.Contact{Kind: store.KindDiscuss, ID: d.ID, Name: d.Name})
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownKind, kind)
}

// List fetches one of the server's lists as its typed qq entities.
func (a *Adapter) List(ctx context.Context, kind string) (any, error) {
	switch kind {
	case KindFriend:
		return a.client.FriendList(ctx)
	case KindGroup:
		return a.client.GroupList(ctx)
	case KindDiscuss:
		return a.client.DiscussList(ctx)
	case KindCategory:
		return a.client.FriendsByCategory(ctx)
	case KindRecent:
		return a.client.RecentList(ctx)
	case KindOnline:
		return a.client.FriendStatus(ctx)
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownKind, kind)
}

// QQNumber pairs a uin with the account number shown to users.
type QQNumber struct {
	Uin     int64 `json:"uin"`
	Account int64 `json:"account"`
}

// Info fetches a detail view. Groups may be named by gid or group code.
// The self view is served from the login result when available.
func (a *Adapter) Info(ctx context.Context, kind string, id int64) (any, error) {
	switch kind {
	case KindSelf:
		if self := a.client.Self(); self != nil {
			return self, nil
		}
		return a.client.AccountInfo(ctx)
	case KindFriend:
		return a.client.FriendInfo(ctx, id)
	case KindGroup:
		code, err := a.groupCode(ctx, id)
		if err != nil {
			return nil, err
		}
		return a.client.GroupInfo(ctx, code)
	case KindDiscuss:
		return a.client.DiscussInfo(ctx, id)
	case KindQQ:
		account, err := a.client.QQByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return &QQNumber{Uin: id, Account: account}, nil
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownKind, kind)
}

// groupCode resolves a gid to the group code GroupInfo needs. An id that
// is already a code is returned as is.
func (a *Adapter) groupCode(ctx context.Context, id int64) (int64, error) {
	groups, err := a.client.GroupList(ctx)
	if err != nil {
		return 0, err
	}
	for _, g := range groups {
		if g.ID == id || g.Code == id {
			return g.Code, nil
		}
	}
	return 0, fmt.Errorf("group %d: %w", id, ErrNotFound)
}
