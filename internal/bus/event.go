package bus

import (
	"time"

	"github.com/google/uuid"
)

// Event kinds published by the daemon. Subscribers filter by prefix, so the
// namespace before the first dot is significant.
const (
	KindStatusChanged  = "session.status_changed"
	KindQRIssued       = "session.qr_issued"
	KindLoginStage     = "session.login_stage"
	KindAuthenticated  = "session.authenticated"
	KindAuthFailed     = "session.auth_failed"
	KindWarning        = "session.warning"
	KindPollStopped    = "session.poll_stopped"
	KindFriendMessage  = "qq.message"
	KindGroupMessage   = "qq.group_message"
	KindDiscussMessage = "qq.discuss_message"
	KindContacts       = "qq.contacts"
	KindMessageUpsert  = "message.upserted"
	KindSendAck        = "message.send_ack"
	KindSendFailed     = "message.send_failed"
)

// Event is a domain event published on the bus.
type Event struct {
	ID        string
	Kind      string
	Timestamp time.Time
	Payload   any
}

// NewEvent stamps an event with a fresh id and the current time.
func NewEvent(kind string, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Kind:      kind,
		Timestamp: time.Now(),
		Payload:   payload,
	}
}

// Namespace returns the part of Kind before the first dot.
func (e Event) Namespace() string {
	for i := 0; i < len(e.Kind); i++ {
		if e.Kind[i] == '.' {
			return e.Kind[:i]
		}
	}
	return e.Kind
}
