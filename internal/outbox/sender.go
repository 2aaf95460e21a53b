package outbox

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ArkBriar/smartqq/internal/bus"
	"github.com/ArkBriar/smartqq/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultInterval is how often the outbox is polled when nothing wakes it.
const DefaultInterval = 500 * time.Millisecond

var (
	ErrEmptyText   = errors.New("outbox: empty text")
	ErrUnknownKind = errors.New("outbox: unknown kind")
)

// TextSender delivers a text to a friend, group or discussion and returns
// the message id it used. The id may be non-zero on failure.
type TextSender interface {
	Send(ctx context.Context, kind string, peer int64, text string) (int64, error)
}

// SendAck is the payload of message.send_ack.
type SendAck struct {
	ClientMsgID string `json:"client_msg_id"`
	Kind        string `json:"kind"`
	Peer        int64  `json:"peer"`
	MsgID       int64  `json:"msg_id"`
}

// SendFailure is the payload of message.send_failed.
type SendFailure struct {
	ClientMsgID string `json:"client_msg_id"`
	Kind        string `json:"kind"`
	Peer        int64  `json:"peer"`
	MsgID       int64  `json:"msg_id,omitempty"`
	Error       string `json:"error"`
}

// Sender drains the outbox through a TextSender, one entry at a time.
type Sender struct {
	db       *store.DB
	sender   TextSender
	bus      *bus.Bus
	logger   *zap.Logger
	interval time.Duration
	wake     chan struct{}
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewSender creates a new outbox sender. logger may be nil.
func NewSender(db *store.DB, sender TextSender, b *bus.Bus, logger *zap.Logger) *Sender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sender{
		db:       db,
		sender:   sender,
		bus:      b,
		logger:   logger,
		interval: DefaultInterval,
		wake:     make(chan struct{}, 1),
	}
}

// Enqueue validates and queues a text. An empty clientMsgID gets a fresh
// UUID. It returns the client message id.
func (s *Sender) Enqueue(kind string, peer int64, text, clientMsgID string) (string, error) {
	if !store.ValidKind(kind) {
		return "", fmt.Errorf("%w %q", ErrUnknownKind, kind)
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyText
	}
	if clientMsgID == "" {
		clientMsgID = uuid.NewString()
	}
	if err := s.db.QueueOutbox(clientMsgID, kind, peer, text); err != nil {
		return "", fmt.Errorf("queue: %w", err)
	}
	select {
	case s.wake <- struct{}{}:
	default:
	}
	return clientMsgID, nil
}

// Start begins draining the outbox. Entries left in 'sending' by a
// previous run are failed first.
func (s *Sender) Start(ctx context.Context) {
	if n, err := s.db.FailInterruptedOutbox(); err != nil {
		s.logger.Error("failed to reset interrupted outbox entries", zap.Error(err))
	} else if n > 0 {
		s.logger.Warn("failed interrupted outbox entries", zap.Int64("count", n))
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go s.loop(ctx)
}

// Stop stops the sender loop and waits for it to exit.
func (s *Sender) Stop() {
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
}

func (s *Sender) loop(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
		case <-s.wake:
		case <-ctx.Done():
			return
		}
		s.processPending(ctx)
	}
}

func (s *Sender) processPending(ctx context.Context) {
	pending, err := s.db.PendingOutbox()
	if err != nil {
		s.logger.Error("failed to read outbox", zap.Error(err))
		return
	}
	for _, entry := range pending {
		if ctx.Err() != nil {
			return
		}
		s.process(ctx, entry)
	}
}

func (s *Sender) process(ctx context.Context, entry store.OutboxEntry) {
	log := s.logger.With(zap.String("client_msg_id", entry.ClientMsgID), zap.String("kind", entry.Kind), zap.Int64("peer", entry.Peer))
	if err := s.db.MarkOutboxSending(entry.ClientMsgID); err != nil {
		log.Error("failed to mark sending", zap.Error(err))
		return
	}

	// Optimistic insert so watchers see the message before the send returns.
	msg := &store.Message{
		Kind:      entry.Kind,
		Peer:      entry.Peer,
		MsgID:     entry.ClientMsgID,
		Body:      entry.Body,
		FromMe:    true,
		Status:    store.StatusPending,
		Timestamp: time.Now().UnixMilli(),
	}
	if _, err := s.db.UpsertMessage(msg); err != nil {
		log.Error("failed to store outgoing message", zap.Error(err))
	}
	if err := s.db.TouchConversation(msg, 0); err != nil {
		log.Error("failed to touch conversation", zap.Error(err))
	}
	s.bus.Emit(bus.KindMessageUpsert, msg)

	msgID, err := s.sender.Send(ctx, entry.Kind, entry.Peer, entry.Body)
	if err != nil {
		log.Error("failed to send message", zap.Error(err), zap.Int64("msg_id", msgID))
		if err := s.db.MarkOutboxFailed(entry.ClientMsgID, msgID, err.Error()); err != nil {
			log.Error("failed to mark failed", zap.Error(err))
		}
		_ = s.db.SetMessageStatus(entry.Kind, entry.Peer, entry.ClientMsgID, store.StatusFailed)
		s.bus.Emit(bus.KindSendFailed, &SendFailure{
			ClientMsgID: entry.ClientMsgID,
			Kind:        entry.Kind,
			Peer:        entry.Peer,
			MsgID:       msgID,
			Error:       err.Error(),
		})
		return
	}

	if err := s.db.MarkOutboxSent(entry.ClientMsgID, msgID); err != nil {
		log.Error("failed to mark sent", zap.Error(err))
	}
	_ = s.db.SetMessageStatus(entry.Kind, entry.Peer, entry.ClientMsgID, store.StatusSent)

	log.Info("message sent", zap.Int64("msg_id", msgID))
	s.bus.Emit(bus.KindSendAck, &SendAck{
		ClientMsgID: entry.ClientMsgID,
		Kind:        entry.Kind,
		Peer:        entry.Peer,
		MsgID:       msgID,
	})
}
