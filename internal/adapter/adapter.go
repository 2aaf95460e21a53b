// Package adapter binds a SmartQQ client to the daemon: it drives login and
// the poll loop, mirrors their progress onto the status machine and the bus,
// and exposes the client's calls in daemon terms.
package adapter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/ArkBriar/smartqq/internal/bus"
	"github.com/ArkBriar/smartqq/internal/qq"
	"github.com/ArkBriar/smartqq/internal/status"
	"go.uber.org/zap"
)

var (
	ErrAuthInProgress = errors.New("login already in progress")
	ErrUnknownKind    = errors.New("unknown kind")
	ErrNotFound       = errors.New("not found")
)

// Options configures an Adapter.
type Options struct {
	// QRPath is where each issued QR image is written.
	QRPath string
	// QRViewer, if set, is started with QRPath as its only argument.
	QRViewer string

	HTTPClient      *http.Client
	Endpoints       *qq.Endpoints
	MessageIDs      *qq.MessageIDs
	QRCheckInterval time.Duration
}

// Adapter owns the session's qq.Client and its poller.
type Adapter struct {
	client  *qq.Client
	poller  *qq.Poller
	bus     *bus.Bus
	machine *status.Machine
	logger  *zap.Logger
	opts    Options

	baseCtx context.Context
	cancel  context.CancelFunc

	mu      sync.Mutex
	authOut chan AuthEvent
	authCtx context.Context

	startViewer func(viewer, path string) error
}

// New creates an adapter. Nothing touches the network until StartAuth.
func New(b *bus.Bus, machine *status.Machine, logger *zap.Logger, opts Options) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Adapter{
		bus:         b,
		machine:     machine,
		logger:      logger,
		opts:        opts,
		startViewer: startViewer,
	}
	a.baseCtx, a.cancel = context.WithCancel(context.Background())
	a.client = qq.NewClient(qq.Config{
		HTTPClient:      opts.HTTPClient,
		Logger:          logger.Named("qq"),
		Endpoints:       opts.Endpoints,
		MessageIDs:      opts.MessageIDs,
		OnQRCode:        a.onQRCode,
		OnStage:         a.onStage,
		OnWarning:       a.onWarning,
		QRCheckInterval: opts.QRCheckInterval,
	})
	a.poller = a.client.NewPoller(NewEventHandler(b, machine, logger))
	return a
}

// Client returns the underlying SmartQQ client.
func (a *Adapter) Client() *qq.Client {
	return a.client
}

// LoggedIn reports whether the handshake has completed.
func (a *Adapter) LoggedIn() bool {
	return a.client.LoggedIn()
}

// Self returns the logged in account, or nil.
func (a *Adapter) Self() *qq.UserInfo {
	return a.client.Self()
}

// Polling reports whether the poll loop is running.
func (a *Adapter) Polling() bool {
	return a.poller.Running()
}

// StartPolling (re)starts the poll loop for an established session.
func (a *Adapter) StartPolling() error {
	if err := a.poller.Start(a.baseCtx); err != nil {
		if errors.Is(err, qq.ErrPollerRunning) {
			return nil
		}
		return fmt.Errorf("start polling: %w", err)
	}
	return nil
}

// StopPolling stops the poll loop. The session stays established and
// sends keep working.
func (a *Adapter) StopPolling() {
	if !a.poller.Running() {
		return
	}
	a.poller.Stop()
	a.bus.Emit(bus.KindPollStopped, nil)
}

// Close stops polling and cancels in-flight poll calls.
func (a *Adapter) Close() {
	a.poller.Stop()
	a.cancel()
	if done := a.poller.Done(); done != nil {
		<-done
	}
}

// Send delivers text to a friend uin, group gid or discussion did and
// returns the message id used.
func (a *Adapter) Send(ctx context.Context, kind string, peer int64, text string) (int64, error) {
	switch kind {
	case KindFriend:
		return a.client.SendToFriend(ctx, peer, text)
	case KindGroup:
		return a.client.SendToGroup(ctx, peer, text)
	case KindDiscuss:
		return a.client.SendToDiscuss(ctx, peer, text)
	}
	return 0, fmt.Errorf("%w %q", ErrUnknownKind, kind)
}
