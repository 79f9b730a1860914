package protocol

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-maxbridge/core"
	"github.com/goliatone/go-maxbridge/ratelimit"
	"github.com/goliatone/go-maxbridge/wire"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	DefaultPingInterval = 30 * time.Second

	metricRequestTotal    = "maxbridge.protocol.request.total"
	metricRequestDuration = "maxbridge.protocol.request.duration_ms"
)

type Option func(*Client)

func WithLogger(logger core.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = glog.Ensure(logger)
		}
	}
}

func WithMetricsRecorder(recorder core.MetricsRecorder) Option {
	return func(c *Client) {
		if recorder != nil {
			c.metrics = recorder
		}
	}
}

func WithDialer(dialer *websocket.Dialer) Option {
	return func(c *Client) {
		if dialer != nil {
			c.dialer = dialer
		}
	}
}

// WithThrottlePolicy makes requests fail locally while the server is
// throttling the same request kind for this account.
func WithThrottlePolicy(policy *ratelimit.AdaptivePolicy) Option {
	return func(c *Client) {
		c.throttle = policy
	}
}

// WithPingInterval sets the keepalive period. Zero disables keepalive pings.
func WithPingInterval(interval time.Duration) Option {
	return func(c *Client) {
		if interval >= 0 {
			c.pingInterval = interval
		}
	}
}

// Client speaks the Max websocket protocol. Requests are correlated by
// sequence number; one read loop per connection dispatches responses.
type Client struct {
	config       core.ClientConfig
	phone        string
	store        core.CredentialStore
	logger       core.Logger
	metrics      core.MetricsRecorder
	dialer       *websocket.Dialer
	limiter      *rate.Limiter
	throttle     *ratelimit.AdaptivePolicy
	pingInterval time.Duration

	writeMu sync.Mutex

	mu      sync.Mutex
	conn    *websocket.Conn
	done    chan struct{}
	pending map[int64]chan Frame
	seq     int64
	me      *core.Profile
	chatIDs []int64
}

func NewClient(cfg core.ClientConfig, phone string, store core.CredentialStore, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if store == nil {
		return nil, transportError("protocol: credential store is required", nil, nil)
	}
	client := &Client{
		config:       cfg,
		phone:        strings.TrimSpace(phone),
		store:        store,
		logger:       glog.Nop(),
		metrics:      core.NopMetricsRecorder{},
		dialer:       websocket.DefaultDialer,
		limiter:      newLimiter(cfg),
		pingInterval: DefaultPingInterval,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

func newLimiter(cfg core.ClientConfig) *rate.Limiter {
	if cfg.SendRatePerSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	burst := cfg.SendBurst
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(cfg.SendRatePerSecond), burst)
}

// Connect dials the endpoint and performs the session handshake. It is a
// no-op on a live connection.
func (c *Client) Connect(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if c.IsConnected() {
		return nil
	}

	header := http.Header{}
	if origin := strings.TrimSpace(c.config.Origin); origin != "" {
		header.Set("Origin", origin)
	}
	header.Set("User-Agent", wire.DefaultHeaderUserAgent)

	conn, _, err := c.dialer.DialContext(ctx, c.config.Endpoint, header)
	if err != nil {
		return transportError("protocol: connect failed", err, map[string]any{"endpoint": c.config.Endpoint})
	}

	c.mu.Lock()
	if c.conn != nil {
		c.mu.Unlock()
		_ = conn.Close()
		return nil
	}
	c.conn = conn
	c.done = make(chan struct{})
	c.pending = map[int64]chan Frame{}
	done := c.done
	c.mu.Unlock()

	go c.readLoop(conn)

	if err := c.handshake(ctx); err != nil {
		c.teardown(conn)
		return err
	}
	if c.pingInterval > 0 {
		go c.pingLoop(done, c.pingInterval)
	}
	c.logger.Info("protocol client connected", "endpoint", c.config.Endpoint)
	return nil
}

func (c *Client) handshake(ctx context.Context) error {
	deviceID, err := c.store.GetOrCreateDeviceID(ctx)
	if err != nil {
		return err
	}
	_, err = c.request(ctx, OpSessionInit, wire.HandshakePayload{
		DeviceID:  deviceID.String(),
		UserAgent: c.userAgent(),
	})
	return err
}

func (c *Client) userAgent() wire.UserAgentPayload {
	ua := wire.DefaultUserAgent()
	if deviceType := strings.TrimSpace(c.config.DeviceType); deviceType != "" {
		ua.DeviceType = deviceType
	}
	if version := strings.TrimSpace(c.config.AppVersion); version != "" {
		ua.AppVersion = version
	}
	return ua
}

func (c *Client) Close(ctx context.Context) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return nil
	}
	c.writeMu.Lock()
	_ = conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	c.writeMu.Unlock()
	c.teardown(conn)
	c.logger.Info("protocol client closed")
	return nil
}

func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// RequestCode asks the server to send a login code and returns the temporary
// token that LoginWithCode needs.
func (c *Client) RequestCode(ctx context.Context, phone string, language string) (string, error) {
	if err := c.Connect(ctx); err != nil {
		return "", err
	}
	phone = strings.TrimSpace(phone)
	if phone == "" {
		phone = c.phone
	}
	payload, err := c.request(ctx, OpAuthRequest, wire.RequestCodePayload{
		Phone:    phone,
		Type:     wire.AuthStart,
		Language: language,
	})
	if err != nil {
		return "", err
	}
	token := strings.TrimSpace(stringValue(payload["token"]))
	if token == "" {
		return "", responseError(OpAuthRequest, "response carried no temporary token")
	}
	return token, nil
}

// LoginWithCode verifies the code, persists the session token and returns
// the logged in profile.
func (c *Client) LoginWithCode(ctx context.Context, tempToken string, code string) (core.LoginResult, error) {
	if err := c.Connect(ctx); err != nil {
		return core.LoginResult{}, err
	}
	payload, err := c.request(ctx, OpAuth, wire.SendCodePayload{
		Token:         tempToken,
		VerifyCode:    code,
		AuthTokenType: wire.AuthCheck,
	})
	if err != nil {
		return core.LoginResult{}, err
	}
	token := parseLoginToken(payload)
	if token == "" {
		if mapValue(mapValue(payload["tokenAttrs"])["REGISTER"]) != nil {
			return core.LoginResult{}, responseError(OpAuth, "account requires registration")
		}
		return core.LoginResult{}, responseError(OpAuth, "response carried no login token")
	}
	if err := c.store.SetToken(ctx, token); err != nil {
		return core.LoginResult{}, err
	}
	me := parseProfile(payload)
	c.mu.Lock()
	c.me = me
	c.mu.Unlock()
	return core.LoginResult{Token: token, Me: me}, nil
}

// Sync logs in with the stored token and loads the profile and chat list.
func (c *Client) Sync(ctx context.Context) (*core.Profile, error) {
	token, err := c.store.GetToken(ctx)
	if err != nil {
		return nil, err
	}
	if token == nil || strings.TrimSpace(*token) == "" {
		return nil, ErrNoToken
	}
	payload, err := c.request(ctx, OpLogin, wire.SyncPayload{
		Interactive: true,
		Token:       *token,
		ChatsCount:  wire.DefaultChatsCount,
		UserAgent:   c.userAgent(),
	})
	if err != nil {
		return nil, err
	}
	me := parseProfile(payload)
	ids := parseChatIDs(payload)
	c.mu.Lock()
	if me != nil {
		c.me = me
	}
	c.chatIDs = ids
	current := c.me
	c.mu.Unlock()
	return current, nil
}

func (c *Client) Token() string {
	token, err := c.store.GetToken(context.Background())
	if err != nil || token == nil {
		return ""
	}
	return *token
}

func (c *Client) Me() *core.Profile {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.me
}

func (c *Client) ChatIDs() []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int64(nil), c.chatIDs...)
}

func (c *Client) GetChats(ctx context.Context, chatIDs []int64) ([]core.Chat, error) {
	if len(chatIDs) == 0 {
		return nil, nil
	}
	payload, err := c.request(ctx, OpChatInfo, wire.GetChatInfoPayload{ChatIDs: chatIDs})
	if err != nil {
		return nil, err
	}
	return parseChats(payload), nil
}

// FetchHistory loads up to limit messages older than now.
func (c *Client) FetchHistory(ctx context.Context, chatID int64, limit int) ([]core.Message, error) {
	if limit <= 0 {
		limit = core.DefaultHistoryLimit
	}
	payload, err := c.request(ctx, OpChatHistory, wire.FetchHistoryPayload{
		ChatID:      chatID,
		FromTime:    time.Now().UnixMilli(),
		Forward:     0,
		Backward:    limit,
		GetMessages: true,
	})
	if err != nil {
		return nil, err
	}
	messages := parseMessages(payload, chatID)
	if len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}
	return messages, nil
}

// request sends one frame and waits for the response with the same seq.
func (c *Client) request(ctx context.Context, opcode Opcode, req wire.Request) (map[string]any, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout := time.Duration(c.config.RequestTimeoutMS) * time.Millisecond; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	key := ratelimit.Key{Account: c.phone, Bucket: opcode.String()}
	if opcode != OpPing {
		if err := c.throttle.BeforeCall(ctx, key); err != nil {
			c.metrics.IncCounter(ctx, metricRequestTotal, 1, map[string]string{"opcode": opcode.String(), "status": "throttled"})
			return nil, err
		}
	}
	startedAt := time.Now()

	payload, err := c.roundTrip(ctx, opcode, req)
	c.recordThrottle(ctx, opcode, key, err)
	status := "success"
	if err != nil {
		status = "failure"
	}
	tags := map[string]string{"opcode": opcode.String(), "status": status}
	c.metrics.IncCounter(ctx, metricRequestTotal, 1, tags)
	c.metrics.ObserveHistogram(ctx, metricRequestDuration, float64(time.Since(startedAt).Milliseconds()), tags)
	if err != nil {
		c.logger.Debug("protocol request failed", "opcode", opcode.String(), "error", err.Error())
	}
	return payload, err
}

func (c *Client) recordThrottle(ctx context.Context, opcode Opcode, key ratelimit.Key, err error) {
	if opcode == OpPing {
		return
	}
	var protocolErr *ProtocolError
	if err != nil && !errors.As(err, &protocolErr) {
		return
	}
	reason := ""
	if protocolErr != nil {
		reason = protocolErr.Code
	}
	if recordErr := c.throttle.AfterCall(ctx, key, IsRateLimit(err), reason); recordErr != nil {
		c.logger.Warn("throttle state not recorded", "opcode", opcode.String(), "error", recordErr.Error())
	}
}

func (c *Client) roundTrip(ctx context.Context, opcode Opcode, req wire.Request) (map[string]any, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, timeoutError(opcode, err)
	}

	c.mu.Lock()
	conn := c.conn
	if conn == nil {
		c.mu.Unlock()
		return nil, core.ErrClientNotConnected
	}
	c.seq++
	seq := c.seq
	responses := make(chan Frame, 1)
	c.pending[seq] = responses
	c.mu.Unlock()

	data, err := EncodeRequest(seq, opcode, req)
	if err != nil {
		c.forget(seq)
		return nil, err
	}

	c.writeMu.Lock()
	deadline, _ := ctx.Deadline()
	_ = conn.SetWriteDeadline(deadline)
	err = conn.WriteMessage(websocket.TextMessage, data)
	c.writeMu.Unlock()
	if err != nil {
		c.forget(seq)
		return nil, transportError("protocol: write "+opcode.String()+" failed", err, nil)
	}

	select {
	case frame, ok := <-responses:
		if !ok {
			return nil, ErrConnectionLost
		}
		if err := ClassifyResponse(frame.Map()); err != nil {
			if protocolErr, ok := err.(*ProtocolError); ok {
				protocolErr.Opcode = opcode
			}
			return nil, err
		}
		return frame.Payload, nil
	case <-ctx.Done():
		c.forget(seq)
		return nil, timeoutError(opcode, ctx.Err())
	}
}

func (c *Client) forget(seq int64) {
	c.mu.Lock()
	delete(c.pending, seq)
	c.mu.Unlock()
}

func (c *Client) readLoop(conn *websocket.Conn) {
	defer c.teardown(conn)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				c.logger.Debug("protocol read loop stopped", "error", err.Error())
			}
			return
		}
		frame, err := DecodeFrame(data)
		if err != nil {
			c.logger.Warn("protocol frame dropped", "error", err.Error())
			continue
		}

		c.mu.Lock()
		responses, ok := c.pending[frame.Seq]
		if ok {
			delete(c.pending, frame.Seq)
		}
		c.mu.Unlock()

		if !ok {
			c.logger.Debug("protocol unsolicited frame", "opcode", frame.Opcode.String(), "seq", frame.Seq)
			continue
		}
		responses <- frame
	}
}

// teardown drops conn if it is still current and fails every waiting request.
func (c *Client) teardown(conn *websocket.Conn) {
	c.mu.Lock()
	if c.conn != conn {
		c.mu.Unlock()
		_ = conn.Close()
		return
	}
	c.conn = nil
	close(c.done)
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()

	for _, responses := range pending {
		close(responses)
	}
	_ = conn.Close()
}

type pingPayload struct {
	Interactive bool
}

func (p pingPayload) WireFields() []wire.Field {
	return []wire.Field{{Name: "interactive", Value: p.Interactive}}
}

func (c *Client) pingLoop(done <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if _, err := c.request(context.Background(), OpPing, pingPayload{Interactive: true}); err != nil {
				c.logger.Warn("protocol keepalive failed", "error", err.Error())
			}
		}
	}
}
