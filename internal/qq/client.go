package qq

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Session holds the tokens that identify an authenticated web session. The
// fields are filled in handshake order by Login.
type Session struct {
	Ptwebqq    string
	Vfwebqq    string
	Psessionid string
	Uin        int64
}

// Established reports whether every handshake token is present.
func (s Session) Established() bool {
	return s.Ptwebqq != "" && s.Vfwebqq != "" && s.Psessionid != "" && s.Uin != 0
}

// FirstMessageID seeds message id generators.
const FirstMessageID int64 = 32690001

// MessageIDs hands out strictly increasing message ids. A Client owns one by
// default; pass the same generator to several clients through Config when
// ids must stay unique across them for the life of the process.
type MessageIDs struct {
	next atomic.Int64
}

// NewMessageIDs creates a generator whose first id is seed.
func NewMessageIDs(seed int64) *MessageIDs {
	g := &MessageIDs{}
	g.next.Store(seed)
	return g
}

// Next returns the current id and advances the counter.
func (g *MessageIDs) Next() int64 {
	return g.next.Add(1) - 1
}

// Config holds the optional collaborators of a Client.
type Config struct {
	// HTTPClient is used for every call. If nil, a client that does not
	// follow redirects is created so Set-Cookie headers on 30x responses
	// reach the jar.
	HTTPClient *http.Client
	// Logger is used for structured logging. If nil, logging is disabled.
	Logger *zap.Logger
	// Endpoints overrides the production endpoint table.
	Endpoints *Endpoints
	// MessageIDs overrides the per-client id generator.
	MessageIDs *MessageIDs
	// OnQRCode receives the PNG bytes every time a QR code is issued.
	OnQRCode func(png []byte) error
	// OnStage is called as Login moves through the handshake.
	OnStage func(Stage)
	// OnWarning receives non-fatal conditions, such as retcode 103.
	OnWarning func(error)
	// QRCheckInterval is the pause between scan checks. Defaults to one
	// second.
	QRCheckInterval time.Duration
}

// Client is one SmartQQ web session: a cookie jar, the handshake tokens and
// the HTTP transport shared by every call.
type Client struct {
	http      *http.Client
	endpoints Endpoints
	logger    *zap.Logger
	jar       *CookieJar
	msgIDs    *MessageIDs

	onQRCode  func([]byte) error
	onStage   func(Stage)
	onWarning func(error)

	mu      sync.RWMutex
	session Session
	self    *UserInfo

	qrCheckInterval time.Duration
	now             func() time.Time
}

// NewClient creates a client with an empty session.
func NewClient(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	endpoints := DefaultEndpoints()
	if cfg.Endpoints != nil {
		endpoints = *cfg.Endpoints
	}
	ids := cfg.MessageIDs
	if ids == nil {
		ids = NewMessageIDs(FirstMessageID)
	}
	qrInterval := cfg.QRCheckInterval
	if qrInterval <= 0 {
		qrInterval = time.Second
	}
	return &Client{
		http:            httpClient,
		endpoints:       endpoints,
		logger:          logger,
		jar:             NewCookieJar(),
		msgIDs:          ids,
		onQRCode:        cfg.OnQRCode,
		onStage:         cfg.OnStage,
		onWarning:       cfg.OnWarning,
		qrCheckInterval: qrInterval,
		now:             time.Now,
	}
}

// Cookies returns the session cookie jar.
func (c *Client) Cookies() *CookieJar {
	return c.jar
}

// Session returns a copy of the current handshake tokens.
func (c *Client) Session() Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// Self returns the account info fetched at the end of Login, or nil.
func (c *Client) Self() *UserInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.self
}

// LoggedIn reports whether the handshake has completed.
func (c *Client) LoggedIn() bool {
	return c.Session().Established()
}

// established returns the session, or ErrNotLoggedIn if the handshake has
// not completed.
func (c *Client) established() (Session, error) {
	s := c.Session()
	if !s.Established() {
		return s, ErrNotLoggedIn
	}
	return s, nil
}

func (c *Client) setSession(update func(*Session)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	update(&c.session)
}

func (c *Client) warn(err error) {
	c.logger.Warn("non-fatal api condition", zap.Error(err))
	if c.onWarning != nil {
		c.onWarning(err)
	}
}
