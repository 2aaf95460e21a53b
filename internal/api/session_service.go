package api

import (
	"context"
	"time"

	"github.com/ArkBriar/smartqq/internal/adapter"
	"github.com/ArkBriar/smartqq/internal/bus"
	"github.com/ArkBriar/smartqq/internal/status"
	"github.com/ArkBriar/smartqq/internal/store"
)

// SessionService reports status and drives login and polling.
type SessionService struct {
	sessionName string
	startedAt   time.Time
	machine     *status.Machine
	adapter     *adapter.Adapter
	bus         *bus.Bus
	db          *store.DB
}

// NewSessionService creates a new session service. adapter and db may be
// nil; calls that need them fail with Unavailable.
func NewSessionService(sessionName string, machine *status.Machine, a *adapter.Adapter, b *bus.Bus, db *store.DB) *SessionService {
	return &SessionService{
		sessionName: sessionName,
		startedAt:   time.Now(),
		machine:     machine,
		adapter:     a,
		bus:         b,
		db:          db,
	}
}

func (s *SessionService) GetStatus(_ context.Context, _ *StatusRequest) (*Status, error) {
	current := s.machine.Current()
	resp := &Status{
		Session:  s.sessionName,
		Status:   string(current),
		UptimeMs: time.Since(s.startedAt).Milliseconds(),
	}

	if s.adapter != nil {
		resp.LoggedIn = s.adapter.LoggedIn()
		resp.Polling = s.adapter.Polling()
		if self := s.adapter.Self(); self != nil {
			resp.Uin = self.Uin
			resp.Account = self.Account
			resp.Nick = self.Nick
		}
	}
	if s.db != nil {
		if n, err := s.db.MessageCount(); err == nil {
			resp.MessageCount = n
		}
		if n, err := s.db.ContactCount(); err == nil {
			resp.ContactCount = n
		}
	}
	if s.bus != nil {
		resp.DroppedEvents = s.bus.Dropped()
	}
	return resp, nil
}

// StartAuth streams a QR login. Closing the stream aborts the attempt.
func (s *SessionService) StartAuth(_ *AuthRequest, stream Stream[adapter.AuthEvent]) error {
	if s.adapter == nil {
		return errUnavailable("adapter")
	}

	authCh, err := s.adapter.StartAuth(stream.Context())
	if err != nil {
		return toStatus("start auth", err)
	}

	for evt := range authCh {
		if err := stream.Send(&evt); err != nil {
			return err
		}
	}
	return nil
}

func (s *SessionService) StopPolling(_ context.Context, _ *StopPollingRequest) (*StopPollingResponse, error) {
	if s.adapter == nil {
		return nil, errUnavailable("adapter")
	}
	running := s.adapter.Polling()
	s.adapter.StopPolling()
	return &StopPollingResponse{Stopped: running}, nil
}
