package api

import (
	"context"
	"fmt"
	"slices"

	"github.com/ArkBriar/smartqq/internal/adapter"
	"github.com/ArkBriar/smartqq/internal/store"
	intsync "github.com/ArkBriar/smartqq/internal/sync"
)

// ContactService serves the server's lists and detail views, and the
// contact cache.
type ContactService struct {
	adapter   *adapter.Adapter
	refresher *intsync.Refresher
	db        *store.DB
}

// NewContactService creates a new contact service.
func NewContactService(a *adapter.Adapter, refresher *intsync.Refresher, db *store.DB) *ContactService {
	return &ContactService{adapter: a, refresher: refresher, db: db}
}

func (s *ContactService) ListContacts(ctx context.Context, req *ListContactsRequest) (*ListContactsResponse, error) {
	var (
		items any
		err   error
	)
	switch {
	case req.Cached:
		if !store.ValidKind(req.Kind) {
			return nil, toStatus("list contacts", fmt.Errorf("%w %q", adapter.ErrUnknownKind, req.Kind))
		}
		if s.db == nil {
			return nil, errUnavailable("store")
		}
		items, err = s.db.ListContacts(req.Kind)
	case s.adapter == nil:
		return nil, errUnavailable("adapter")
	default:
		items, err = s.adapter.List(ctx, req.Kind)
	}
	if err != nil {
		return nil, toStatus("list contacts", err)
	}

	raw, err := rawJSON(items)
	if err != nil {
		return nil, toStatus("list contacts", err)
	}
	return &ListContactsResponse{Kind: req.Kind, Items: raw}, nil
}

func (s *ContactService) GetInfo(ctx context.Context, req *GetInfoRequest) (*GetInfoResponse, error) {
	if s.adapter == nil {
		return nil, errUnavailable("adapter")
	}
	info, err := s.adapter.Info(ctx, req.Kind, req.ID)
	if err != nil {
		return nil, toStatus("get info", err)
	}
	raw, err := rawJSON(info)
	if err != nil {
		return nil, toStatus("get info", err)
	}
	return &GetInfoResponse{Kind: req.Kind, Info: raw}, nil
}

func (s *ContactService) RefreshContacts(ctx context.Context, req *RefreshContactsRequest) (*RefreshContactsResponse, error) {
	if s.refresher == nil {
		return nil, errUnavailable("refresher")
	}
	kinds := intsync.RefreshKinds
	if req.Kind != "" {
		if !slices.Contains(intsync.RefreshKinds, req.Kind) {
			return nil, toStatus("refresh contacts", fmt.Errorf("%w %q", adapter.ErrUnknownKind, req.Kind))
		}
		kinds = []string{req.Kind}
	}

	resp := &RefreshContactsResponse{Refreshed: []string{}}
	for _, kind := range kinds {
		if err := s.refresher.RefreshKind(ctx, kind); err != nil {
			return nil, toStatus("refresh "+kind, err)
		}
		resp.Refreshed = append(resp.Refreshed, kind)
	}
	return resp, nil
}
