package qq

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// PollDelay is the pause between two long-poll calls, whether the previous
// one succeeded or failed.
const PollDelay = 300 * time.Millisecond

// Poll types carried in the poll_type tag of each long-poll item.
const (
	PollTypeMessage        = "message"
	PollTypeGroupMessage   = "group_message"
	PollTypeDiscussMessage = "discu_message"
)

// ErrPollerRunning is returned by Start when the loop is already active.
var ErrPollerRunning = errors.New("qq: poller already running")

// EventHandler receives decoded long-poll events, in arrival order, on the
// poller goroutine.
type EventHandler interface {
	OnMessage(Message)
	OnGroupMessage(GroupMessage)
	OnDiscussMessage(DiscussMessage)
}

// HandlerFuncs adapts plain functions to EventHandler. Nil fields drop the
// corresponding events.
type HandlerFuncs struct {
	Message        func(Message)
	GroupMessage   func(GroupMessage)
	DiscussMessage func(DiscussMessage)
}

func (h HandlerFuncs) OnMessage(m Message) {
	if h.Message != nil {
		h.Message(m)
	}
}

func (h HandlerFuncs) OnGroupMessage(m GroupMessage) {
	if h.GroupMessage != nil {
		h.GroupMessage(m)
	}
}

func (h HandlerFuncs) OnDiscussMessage(m DiscussMessage) {
	if h.DiscussMessage != nil {
		h.DiscussMessage(m)
	}
}

// Poller runs the long-poll loop of one client in a background goroutine.
// Failures of a single iteration are logged and the loop carries on; only
// Stop or cancellation of the start context ends it.
type Poller struct {
	client  *Client
	handler EventHandler
	logger  *zap.Logger
	delay   time.Duration

	mu         sync.Mutex
	running    bool
	generation uint64
	done       chan struct{}
}

// NewPoller creates a stopped poller dispatching to h.
func (c *Client) NewPoller(h EventHandler) *Poller {
	return &Poller{
		client:  c,
		handler: h,
		logger:  c.logger.Named("poll"),
		delay:   PollDelay,
	}
}

// Start launches the loop. The session must be established. A loop that
// was stopped but is still finishing its last call is waited for first, so
// at most one long-poll is ever in flight.
func (p *Poller) Start(ctx context.Context) error {
	if _, err := p.client.established(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for {
		if p.running {
			return ErrPollerRunning
		}
		prev := p.done
		if prev == nil || isClosed(prev) {
			break
		}
		p.mu.Unlock()
		select {
		case <-prev:
		case <-ctx.Done():
			p.mu.Lock()
			return ctx.Err()
		}
		p.mu.Lock()
	}
	p.running = true
	p.generation++
	p.done = make(chan struct{})
	go p.loop(ctx, p.generation, p.done)
	p.logger.Info("poll loop started")
	return nil
}

// Stop asks the loop to exit. The call in flight finishes first; use Done to
// wait for the goroutine to return.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.running = false
}

// Running reports whether the loop has been started and not stopped.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Done is closed when the most recently started loop returns. It is nil if
// the poller was never started.
func (p *Poller) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

func isClosed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

// active checks the flag for the given loop generation. A Stop followed by a
// new Start must not revive the old goroutine.
func (p *Poller) active(gen uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running && p.generation == gen
}

func (p *Poller) loop(ctx context.Context, gen uint64, done chan struct{}) {
	defer close(done)
	defer p.logger.Info("poll loop stopped")

	for p.active(gen) {
		if err := p.PollOnce(ctx); err != nil {
			p.logger.Warn("poll failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			p.mu.Lock()
			if p.generation == gen {
				p.running = false
			}
			p.mu.Unlock()
			return
		case <-time.After(p.delay):
		}
	}
}

type pollItem struct {
	PollType string          `json:"poll_type"`
	Value    json.RawMessage `json:"value"`
}

// PollOnce issues one long-poll call and dispatches what it returns. A
// response with no result is an idle timeout and dispatches nothing.
func (p *Poller) PollOnce(ctx context.Context) error {
	s, err := p.client.established()
	if err != nil {
		return err
	}
	raw, err := p.client.post(ctx, p.client.endpoints.Poll, map[string]any{
		"ptwebqq":    s.Ptwebqq,
		"clientid":   ClientID,
		"psessionid": s.Psessionid,
		"key":        "",
	})
	if err != nil {
		return err
	}
	result, err := p.client.unwrap("poll", raw, false)
	if err != nil {
		return err
	}
	if result == nil {
		return nil
	}

	var items []pollItem
	if err := json.Unmarshal(result, &items); err != nil {
		return protocolError("poll", "result is not an event array", err)
	}
	for _, item := range items {
		if err := p.dispatch(item); err != nil {
			p.logger.Warn("dropping undecodable event", zap.String("poll_type", item.PollType), zap.Error(err))
		}
	}
	return nil
}

func (p *Poller) dispatch(item pollItem) error {
	switch item.PollType {
	case PollTypeMessage:
		var m Message
		if err := json.Unmarshal(item.Value, &m); err != nil {
			return protocolError("poll", "bad message value", err)
		}
		p.handler.OnMessage(m)
	case PollTypeGroupMessage:
		var m GroupMessage
		if err := json.Unmarshal(item.Value, &m); err != nil {
			return protocolError("poll", "bad group_message value", err)
		}
		p.handler.OnGroupMessage(m)
	case PollTypeDiscussMessage:
		var m DiscussMessage
		if err := json.Unmarshal(item.Value, &m); err != nil {
			return protocolError("poll", "bad discu_message value", err)
		}
		p.handler.OnDiscussMessage(m)
	default:
		p.logger.Debug("ignoring poll type", zap.String("poll_type", item.PollType))
	}
	return nil
}
