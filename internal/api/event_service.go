package api

import (
	"strings"

	"github.com/ArkBriar/smartqq/internal/bus"
	"go.uber.org/zap"
)

// EventService streams bus events.
type EventService struct {
	bus         *bus.Bus
	sessionName string
	logger      *zap.Logger
}

// NewEventService creates a new event service. logger may be nil.
func NewEventService(b *bus.Bus, sessionName string, logger *zap.Logger) *EventService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventService{bus: b, sessionName: sessionName, logger: logger}
}

func (s *EventService) WatchEvents(req *WatchEventsRequest, stream Stream[Envelope]) error {
	if s.bus == nil {
		return errUnavailable("bus")
	}
	prefix := req.Namespace
	if prefix != "" && !strings.HasSuffix(prefix, ".") {
		prefix += "."
	}
	ch, unsub := s.bus.Subscribe(prefix, 256)
	defer unsub()

	for {
		select {
		case evt := <-ch:
			payload, err := rawJSON(evt.Payload)
			if err != nil {
				s.logger.Warn("unencodable event payload", zap.String("kind", evt.Kind), zap.Error(err))
				payload = nil
			}
			if err := stream.Send(&Envelope{
				ID:          evt.ID,
				Session:     s.sessionName,
				Kind:        evt.Kind,
				TimestampMs: evt.Timestamp.UnixMilli(),
				Payload:     payload,
			}); err != nil {
				return err
			}
		case <-stream.Context().Done():
			return nil
		}
	}
}
