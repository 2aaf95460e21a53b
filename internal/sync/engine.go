package sync

import (
	"context"
	"fmt"

	"github.com/ArkBriar/smartqq/internal/bus"
	"github.com/ArkBriar/smartqq/internal/store"
	"go.uber.org/zap"
)

// Engine ingests inbound QQ messages from the bus into the store. Ingestion
// is idempotent on (kind, peer, msg_id).
type Engine struct {
	db     *store.DB
	bus    *bus.Bus
	logger *zap.Logger
	cancel context.CancelFunc
	done   chan struct{}
}

// NewEngine creates a new sync engine. logger may be nil.
func NewEngine(db *store.DB, b *bus.Bus, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		db:     db,
		bus:    b,
		logger: logger,
	}
}

// Start subscribes to "qq." events and ingests them until ctx is done or
// Stop is called.
func (e *Engine) Start(ctx context.Context) {
	ctx, e.cancel = context.WithCancel(ctx)
	e.done = make(chan struct{})
	ch, unsub := e.bus.Subscribe("qq.", 256)

	go func() {
		defer close(e.done)
		defer unsub()
		for {
			select {
			case evt := <-ch:
				e.handleEvent(evt)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the engine and waits for the current event to finish.
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
		<-e.done
	}
}

func (e *Engine) handleEvent(evt bus.Event) {
	switch evt.Kind {
	case bus.KindFriendMessage, bus.KindGroupMessage, bus.KindDiscussMessage:
		msg, ok := evt.Payload.(*store.Message)
		if !ok {
			e.logger.Warn("unexpected message payload", zap.String("kind", evt.Kind), zap.Any("payload", evt.Payload))
			return
		}
		if err := e.IngestMessage(msg); err != nil {
			e.logger.Error("failed to ingest message", zap.Error(err),
				zap.String("kind", msg.Kind), zap.Int64("peer", msg.Peer), zap.String("msg_id", msg.MsgID))
		}
	}
}

// IngestMessage stores msg, bumps its conversation and publishes
// message.upserted. Friend messages without a sender name are named from
// the contact cache. Unread counts only grow for new inbound messages.
func (e *Engine) IngestMessage(msg *store.Message) error {
	if msg.SenderName == "" && !msg.FromMe && msg.Sender != 0 {
		if c, err := e.db.GetContact(store.KindFriend, msg.Sender); err == nil && c != nil {
			msg.SenderName = c.DisplayName()
		}
	}

	inserted, err := e.db.UpsertMessage(msg)
	if err != nil {
		return fmt.Errorf("upsert message: %w", err)
	}

	unread := 0
	if inserted && !msg.FromMe {
		unread = 1
	}
	if err := e.db.TouchConversation(msg, unread); err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}

	e.bus.Emit(bus.KindMessageUpsert, msg)
	return nil
}
