package qq

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Stage is a step of the QR login handshake.
type Stage string

const (
	StageInit               Stage = "INIT"
	StageQRIssued           Stage = "QR_ISSUED"
	StageScanned            Stage = "SCANNED"
	StagePtwebqqBound       Stage = "PTWEBQQ_BOUND"
	StageReported           Stage = "REPORTED"
	StageVfwebqqBound       Stage = "VFWEBQQ_BOUND"
	StagePinged             Stage = "PINGED"
	StageSessionEstablished Stage = "SESSION_ESTABLISHED"
)

const (
	qrSuccessMarker = "成功"
	qrExpiredMarker = "已失效"
	urlSeparator    = "','"
)

// Login runs the QR handshake to completion. It blocks until the code is
// scanned; an expired code is reissued without touching the cookie jar.
// Cancelling ctx is the only way to bound the wait. Any failure after the
// scan is returned and the caller must start over.
func (c *Client) Login(ctx context.Context) error {
	c.setSession(func(s *Session) { *s = Session{} })
	c.stage(StageInit)

	if err := c.issueQRCode(ctx); err != nil {
		return fmt.Errorf("get qr code: %w", err)
	}
	redirect, err := c.verifyQRCode(ctx)
	if err != nil {
		return err
	}
	c.stage(StageScanned)

	if err := c.bindPtwebqq(ctx, redirect); err != nil {
		return fmt.Errorf("bind ptwebqq: %w", err)
	}
	c.stage(StagePtwebqqBound)

	c.report(ctx)
	c.stage(StageReported)

	if err := c.bindVfwebqq(ctx); err != nil {
		return fmt.Errorf("bind vfwebqq: %w", err)
	}
	c.stage(StageVfwebqqBound)

	c.ping(ctx)
	c.stage(StagePinged)

	if err := c.establish(ctx); err != nil {
		return fmt.Errorf("establish session: %w", err)
	}

	self, err := c.AccountInfo(ctx)
	if err != nil {
		return fmt.Errorf("get account info: %w", err)
	}
	c.mu.Lock()
	c.self = self
	c.mu.Unlock()

	c.stage(StageSessionEstablished)
	c.logger.Info("logged in", zap.Int64("uin", c.Session().Uin), zap.String("nick", self.Nick))
	return nil
}

func (c *Client) stage(s Stage) {
	c.logger.Info("login stage", zap.String("stage", string(s)))
	if c.onStage != nil {
		c.onStage(s)
	}
}

// issueQRCode fetches a fresh QR image. The response seeds the qrsig cookie
// the verify call depends on.
func (c *Client) issueQRCode(ctx context.Context) error {
	raw, err := c.get(ctx, c.endpoints.QRCode)
	if err != nil {
		return err
	}
	if raw.StatusCode != 200 {
		return &TransportError{StatusCode: raw.StatusCode, URL: raw.URL}
	}
	if _, ok := c.jar.Get("qrsig"); !ok {
		c.logger.Warn("qr response did not set qrsig")
	}
	c.stage(StageQRIssued)
	if c.onQRCode != nil {
		if err := c.onQRCode(raw.Body); err != nil {
			c.logger.Warn("qr code handler failed", zap.Error(err))
		}
	}
	return nil
}

// verifyQRCode polls once per interval until the scan succeeds and returns
// the redirect URL embedded in the success body. Expired codes are reissued.
// Unexpected responses are logged and polling continues.
func (c *Client) verifyQRCode(ctx context.Context) (string, error) {
	c.logger.Info("waiting for scan")
	timer := time.NewTimer(c.qrCheckInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
		}
		timer.Reset(c.qrCheckInterval)

		qrsig, _ := c.jar.Get("qrsig")
		raw, err := c.get(ctx, c.endpoints.VerifyQRCode, strconv.FormatInt(hash33(qrsig), 10))
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			c.logger.Warn("qr verify failed", zap.Error(err))
			continue
		}
		if raw.StatusCode != 200 {
			c.logger.Warn("qr verify returned non-200", zap.Int("status", raw.StatusCode))
			continue
		}

		body := string(raw.Body)
		switch {
		case strings.Contains(body, qrSuccessMarker):
			if u, ok := extractRedirect(body); ok {
				return u, nil
			}
			c.logger.Warn("qr scanned but no redirect url found", zap.String("body", body))
		case strings.Contains(body, qrExpiredMarker):
			c.logger.Warn("qr code expired, reissuing")
			if err := c.issueQRCode(ctx); err != nil {
				c.logger.Warn("reissue qr code failed", zap.Error(err))
			}
		}
	}
}

// extractRedirect returns the first ','-delimited token that starts with http.
func extractRedirect(body string) (string, bool) {
	for _, token := range strings.Split(body, urlSeparator) {
		if strings.HasPrefix(token, "http") {
			return token, true
		}
	}
	return "", false
}

// bindPtwebqq follows the redirect; ptwebqq arrives as a cookie.
func (c *Client) bindPtwebqq(ctx context.Context, redirect string) error {
	if _, err := c.get(ctx, c.endpoints.Ptwebqq, redirect); err != nil {
		return err
	}
	ptwebqq, ok := c.jar.Get("ptwebqq")
	if !ok {
		return protocolError("bind ptwebqq", "ptwebqq cookie missing", nil)
	}
	c.setSession(func(s *Session) { s.Ptwebqq = ptwebqq })
	return nil
}

// report is required by the service before it accepts later calls. The
// response is ignored.
func (c *Client) report(ctx context.Context) {
	raw, err := c.get(ctx, c.endpoints.Report, c.timestamp("821"))
	if err != nil {
		c.logger.Debug("report failed", zap.Error(err))
		return
	}
	c.logger.Debug("report sent", zap.Int("status", raw.StatusCode))
}

func (c *Client) bindVfwebqq(ctx context.Context) error {
	raw, err := c.get(ctx, c.endpoints.Vfwebqq, c.Session().Ptwebqq, c.timestamp("172"))
	if err != nil {
		return err
	}
	var result struct {
		Vfwebqq string `json:"vfwebqq"`
	}
	if err := c.decode("get vfwebqq", raw, &result); err != nil {
		return err
	}
	if result.Vfwebqq == "" {
		return protocolError("get vfwebqq", "vfwebqq missing", nil)
	}
	c.setSession(func(s *Session) { s.Vfwebqq = result.Vfwebqq })
	return nil
}

// ping confirms the vfwebqq binding. The response is discarded.
func (c *Client) ping(ctx context.Context) {
	if _, err := c.get(ctx, c.endpoints.Ping); err != nil {
		c.logger.Debug("ping failed", zap.Error(err))
	}
}

func (c *Client) establish(ctx context.Context) error {
	raw, err := c.post(ctx, c.endpoints.Login2, map[string]any{
		"ptwebqq":    c.Session().Ptwebqq,
		"clientid":   ClientID,
		"psessionid": "",
		"status":     "online",
	})
	if err != nil {
		return err
	}
	var result struct {
		Psessionid string `json:"psessionid"`
		Uin        int64  `json:"uin"`
	}
	if err := c.decode("login2", raw, &result); err != nil {
		return err
	}
	if result.Psessionid == "" || result.Uin == 0 {
		return protocolError("login2", "psessionid or uin missing", nil)
	}
	c.setSession(func(s *Session) {
		s.Psessionid = result.Psessionid
		s.Uin = result.Uin
	})
	return nil
}

// timestamp returns the current unix time with a fixed suffix appended, the
// cache-busting format several endpoints expect.
func (c *Client) timestamp(suffix string) string {
	return strconv.FormatInt(c.now().Unix(), 10) + suffix
}
