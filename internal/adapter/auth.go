package adapter

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/ArkBriar/smartqq/internal/bus"
	"github.com/ArkBriar/smartqq/internal/qq"
	"github.com/ArkBriar/smartqq/internal/status"
	"go.uber.org/zap"
)

// AuthEventType enumerates login progress events.
type AuthEventType string

const (
	AuthEventQRCode        AuthEventType = "qr_code"
	AuthEventStage         AuthEventType = "stage"
	AuthEventAuthenticated AuthEventType = "authenticated"
	AuthEventAuthFailed    AuthEventType = "auth_failed"
)

// AuthEvent is one step of a login attempt.
type AuthEvent struct {
	Type    AuthEventType `json:"type"`
	Stage   string        `json:"stage,omitempty"`
	QRPath  string        `json:"qr_path,omitempty"`
	Message string        `json:"message,omitempty"`
}

// QRIssued is the payload of session.qr_issued.
type QRIssued struct {
	Path string `json:"path"`
	Size int    `json:"size"`
}

// StartAuth runs a QR login in the background and streams its progress.
// The channel is closed when the attempt ends. Cancelling ctx aborts the
// attempt. A running poll loop is stopped first; on success polling starts
// again on the new session.
func (a *Adapter) StartAuth(ctx context.Context) (<-chan AuthEvent, error) {
	a.mu.Lock()
	if a.authOut != nil {
		a.mu.Unlock()
		return nil, ErrAuthInProgress
	}
	out := make(chan AuthEvent, 16)
	a.authOut, a.authCtx = out, ctx
	a.mu.Unlock()

	a.StopPolling()
	if err := a.enterAuthenticating(); err != nil {
		a.mu.Lock()
		a.authOut, a.authCtx = nil, nil
		a.mu.Unlock()
		return nil, err
	}

	go a.runLogin(ctx, out)
	return out, nil
}

func (a *Adapter) enterAuthenticating() error {
	switch a.machine.Current() {
	case status.Booting, status.Online, status.Degraded, status.Error:
		if err := a.machine.Transition(status.AuthRequired); err != nil {
			return err
		}
	}
	return a.machine.Transition(status.Authenticating)
}

func (a *Adapter) runLogin(ctx context.Context, out chan AuthEvent) {
	defer func() {
		a.mu.Lock()
		a.authOut, a.authCtx = nil, nil
		a.mu.Unlock()
		close(out)
	}()

	if err := a.client.Login(ctx); err != nil {
		a.logger.Warn("login failed", zap.Error(err))
		_ = a.machine.Transition(status.AuthRequired)
		a.bus.Emit(bus.KindAuthFailed, err.Error())
		a.emit(AuthEvent{Type: AuthEventAuthFailed, Message: err.Error()})
		return
	}

	_ = a.machine.Transition(status.Online)
	self := a.client.Self()
	a.bus.Emit(bus.KindAuthenticated, self)
	if err := a.StartPolling(); err != nil {
		a.logger.Error("poll loop did not start", zap.Error(err))
	}
	a.emit(AuthEvent{Type: AuthEventAuthenticated, Message: self.Nick})
}

// emit forwards evt to the running attempt's stream. It blocks while the
// reader is behind, unless the attempt's context is done.
func (a *Adapter) emit(evt AuthEvent) {
	a.mu.Lock()
	out, ctx := a.authOut, a.authCtx
	a.mu.Unlock()
	if out == nil {
		return
	}
	select {
	case out <- evt:
	case <-ctx.Done():
	}
}

func (a *Adapter) onQRCode(png []byte) error {
	path := a.opts.QRPath
	if path == "" {
		path = filepath.Join(os.TempDir(), "smartqq-qrcode.png")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create qr dir: %w", err)
	}
	if err := os.WriteFile(path, png, 0600); err != nil {
		return fmt.Errorf("write qr image: %w", err)
	}
	a.logger.Info("qr code written", zap.String("path", path))
	a.bus.Emit(bus.KindQRIssued, &QRIssued{Path: path, Size: len(png)})
	a.emit(AuthEvent{Type: AuthEventQRCode, QRPath: path})

	if a.opts.QRViewer != "" {
		if err := a.startViewer(a.opts.QRViewer, path); err != nil {
			a.logger.Warn("qr viewer failed", zap.String("viewer", a.opts.QRViewer), zap.Error(err))
		}
	}
	return nil
}

func (a *Adapter) onStage(s qq.Stage) {
	a.bus.Emit(bus.KindLoginStage, string(s))
	a.emit(AuthEvent{Type: AuthEventStage, Stage: string(s)})
}

// onWarning handles non-fatal API conditions. Retcode 103 means the account
// is online in another client: the session is kept but marked degraded
// until a message arrives again.
func (a *Adapter) onWarning(err error) {
	a.bus.Emit(bus.KindWarning, err.Error())
	if qq.IsLoggedInElsewhere(err) && a.machine.Current() == status.Online {
		_ = a.machine.Transition(status.Degraded)
	}
}

func startViewer(viewer, path string) error {
	cmd := exec.Command(viewer, path)
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() { _ = cmd.Wait() }()
	return nil
}
