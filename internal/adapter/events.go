package adapter

import (
	"strconv"

	"github.com/ArkBriar/smartqq/internal/bus"
	"github.com/ArkBriar/smartqq/internal/qq"
	"github.com/ArkBriar/smartqq/internal/status"
	"github.com/ArkBriar/smartqq/internal/store"
	"go.uber.org/zap"
)

// EventHandler receives poll events, publishes them on the bus as
// *store.Message payloads and clears a degraded status once traffic flows
// again. It does not write to the store; the sync engine subscribes on its
// own.
type EventHandler struct {
	bus     *bus.Bus
	machine *status.Machine
	logger  *zap.Logger
}

// NewEventHandler creates a handler. logger may be nil.
func NewEventHandler(b *bus.Bus, machine *status.Machine, logger *zap.Logger) *EventHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventHandler{bus: b, machine: machine, logger: logger}
}

func (h *EventHandler) OnMessage(m qq.Message) {
	h.publish(bus.KindFriendMessage, FriendMessage(m))
}

func (h *EventHandler) OnGroupMessage(m qq.GroupMessage) {
	h.publish(bus.KindGroupMessage, GroupMessage(m))
}

func (h *EventHandler) OnDiscussMessage(m qq.DiscussMessage) {
	h.publish(bus.KindDiscussMessage, DiscussMessage(m))
}

func (h *EventHandler) publish(kind string, msg *store.Message) {
	if h.machine != nil && h.machine.Current() == status.Degraded {
		if err := h.machine.Transition(status.Online); err == nil {
			h.logger.Info("session recovered")
		}
	}
	h.logger.Debug("inbound message", zap.String("kind", msg.Kind), zap.Int64("peer", msg.Peer), zap.String("msg_id", msg.MsgID))
	h.bus.Emit(kind, msg)
}

// FriendMessage converts a private message; the peer is the sender.
func FriendMessage(m qq.Message) *store.Message {
	return &store.Message{
		Kind:      store.KindFriend,
		Peer:      m.FromUin,
		MsgID:     strconv.FormatInt(m.MsgID, 10),
		Sender:    m.FromUin,
		Body:      m.Content.Text,
		Status:    store.StatusReceived,
		Timestamp: m.Time * 1000,
	}
}

// GroupMessage converts a group message; the peer is the group uin.
func GroupMessage(m qq.GroupMessage) *store.Message {
	return &store.Message{
		Kind:      store.KindGroup,
		Peer:      m.FromUin,
		MsgID:     strconv.FormatInt(m.MsgID, 10),
		Sender:    m.SendUin,
		Body:      m.Content.Text,
		Status:    store.StatusReceived,
		Timestamp: m.Time * 1000,
	}
}

// DiscussMessage converts a discussion message; the peer is the did.
func DiscussMessage(m qq.DiscussMessage) *store.Message {
	peer := m.DiscussID
	if peer == 0 {
		peer = m.FromUin
	}
	return &store.Message{
		Kind:      store.KindDiscuss,
		Peer:      peer,
		MsgID:     strconv.FormatInt(m.MsgID, 10),
		Sender:    m.SendUin,
		Body:      m.Content.Text,
		Status:    store.StatusReceived,
		Timestamp: m.Time * 1000,
	}
}
