package api

import (
	"context"
	"fmt"

	"github.com/ArkBriar/smartqq/internal/adapter"
	"github.com/ArkBriar/smartqq/internal/outbox"
	"github.com/ArkBriar/smartqq/internal/store"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

// MessageService serves message history and queues outgoing texts.
type MessageService struct {
	db     *store.DB
	sender *outbox.Sender
}

// NewMessageService creates a new message service backed by the store.
func NewMessageService(db *store.DB, sender *outbox.Sender) *MessageService {
	return &MessageService{db: db, sender: sender}
}

func (s *MessageService) ListMessages(_ context.Context, req *ListMessagesRequest) (*ListMessagesResponse, error) {
	if s.db == nil {
		return nil, errUnavailable("store")
	}
	if !store.ValidKind(req.Kind) {
		return nil, toStatus("list messages", fmt.Errorf("%w %q", adapter.ErrUnknownKind, req.Kind))
	}
	limit := 50
	if req.Limit > 0 {
		limit = req.Limit
	}

	msgs, err := s.db.ListMessages(req.Kind, req.Peer, req.Before, limit)
	if err != nil {
		return nil, toStatus("list messages", err)
	}
	if req.MarkRead {
		if err := s.db.MarkConversationRead(req.Kind, req.Peer); err != nil {
			return nil, toStatus("mark read", err)
		}
	}
	if msgs == nil {
		msgs = []store.Message{}
	}
	return &ListMessagesResponse{
		Messages: msgs,
		HasMore:  len(msgs) == limit,
	}, nil
}

func (s *MessageService) SearchMessages(_ context.Context, req *SearchMessagesRequest) (*SearchMessagesResponse, error) {
	if s.db == nil {
		return nil, errUnavailable("store")
	}
	if req.Query == "" {
		return nil, grpcstatus.Error(codes.InvalidArgument, "search messages: empty query")
	}
	limit := 50
	if req.Limit > 0 {
		limit = req.Limit
	}

	results, err := s.db.SearchMessages(req.Query, req.Kind, req.Peer, limit)
	if err != nil {
		return nil, toStatus("search messages", err)
	}
	if results == nil {
		results = []store.SearchResult{}
	}
	return &SearchMessagesResponse{Results: results}, nil
}

// SendText queues the text in the outbox; delivery is reported on the
// message namespace.
func (s *MessageService) SendText(_ context.Context, req *SendTextRequest) (*SendTextResponse, error) {
	if s.sender == nil {
		return nil, errUnavailable("outbox")
	}
	id, err := s.sender.Enqueue(req.Kind, req.Peer, req.Text, req.ClientMsgID)
	if err != nil {
		return nil, toStatus("send text", err)
	}
	return &SendTextResponse{Accepted: true, ClientMsgID: id}, nil
}
