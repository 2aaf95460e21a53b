package api

import (
	"context"

	"github.com/ArkBriar/smartqq/internal/store"
)

// ChatService lists conversations from the store.
type ChatService struct {
	db *store.DB
}

// NewChatService creates a new chat service backed by the store.
func NewChatService(db *store.DB) *ChatService {
	return &ChatService{db: db}
}

func (s *ChatService) ListConversations(_ context.Context, req *ListConversationsRequest) (*ListConversationsResponse, error) {
	if s.db == nil {
		return nil, errUnavailable("store")
	}
	limit := 50
	if req.Limit > 0 {
		limit = req.Limit
	}

	convs, err := s.db.ListConversations(limit, req.Offset)
	if err != nil {
		return nil, toStatus("list conversations", err)
	}
	if convs == nil {
		convs = []store.Conversation{}
	}
	return &ListConversationsResponse{
		Conversations: convs,
		HasMore:       len(convs) == limit,
	}, nil
}
