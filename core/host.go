package core

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-maxbridge/bridge"
)

// Host is the explicit context object a host process uses to drive one
// messenger client. Every entry point returns an Envelope and never panics.
//
// The host owns at most one wrapper (phone + work directory) and lazily
// creates its client. Concurrent structural calls against one client (for
// example StopClient while GetChats is in flight) must be serialized by the
// caller.
type Host struct {
	config          Config
	logger          Logger
	loggerProvider  LoggerProvider
	metricsRecorder MetricsRecorder
	errorMapper     ErrorMapper
	clientFactory   ClientFactory
	bridge          *bridge.Bridge
	ownsBridge      bool

	mu      sync.Mutex
	wrapper *clientWrapper
	closed  bool
}

type clientWrapper struct {
	phone   string
	workDir string
	session *ClientSession
}

type HostDependencies struct {
	Logger          Logger
	LoggerProvider  LoggerProvider
	MetricsRecorder MetricsRecorder
	ErrorMapper     ErrorMapper
	ClientFactory   ClientFactory
	Bridge          *bridge.Bridge
}

// NewHost opens a host. Close releases the wrapper, its client and the bridge.
func NewHost(cfg Config, opts ...Option) (*Host, error) {
	builder := defaultHostBuilder(cfg)
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("maxbridge", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("maxbridge"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = defaultErrorMapper
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	br := builder.bridge
	ownsBridge := false
	if br == nil {
		bridgeOpts := []bridge.Option{bridge.WithLogger(logger)}
		for _, hook := range builder.bridgeHooks {
			bridgeOpts = append(bridgeOpts, bridge.WithHook(hook))
		}
		br = bridge.New(bridgeOpts...)
		ownsBridge = true
	}

	return &Host{
		config:          finalConfig,
		logger:          logger,
		loggerProvider:  provider,
		metricsRecorder: builder.metricsRecorder,
		errorMapper:     builder.errorMapper,
		clientFactory:   builder.clientFactory,
		bridge:          br,
		ownsBridge:      ownsBridge,
	}, nil
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		return err
	}
	mapped := mapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func (h *Host) Config() Config {
	if h == nil {
		return Config{}
	}
	return h.config
}

func (h *Host) Dependencies() HostDependencies {
	if h == nil {
		return HostDependencies{}
	}
	return HostDependencies{
		Logger:          h.logger,
		LoggerProvider:  h.loggerProvider,
		MetricsRecorder: h.metricsRecorder,
		ErrorMapper:     h.errorMapper,
		ClientFactory:   h.clientFactory,
		Bridge:          h.bridge,
	}
}

// Close disconnects and releases the current wrapper and stops the bridge.
func (h *Host) Close(ctx context.Context) error {
	if h == nil {
		return nil
	}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	previous := h.wrapper
	h.wrapper = nil
	h.mu.Unlock()

	err := h.disposeWrapper(ctx, previous)
	if h.ownsBridge {
		if closeErr := h.bridge.CloseContext(ctx); closeErr != nil && err == nil {
			err = closeErr
		}
	}
	return err
}

// CreateWrapper binds the host to a phone number and work directory,
// replacing any previous wrapper. An empty workDir falls back to the
// configured work_dir and then to ~/Documents/max_cache.
func (h *Host) CreateWrapper(ctx context.Context, phone string, workDir string) Envelope {
	fields := map[string]any{"phone": phone}
	return h.execute(ctx, "create_wrapper", fields, func(ctx context.Context) (map[string]any, error) {
		phone = strings.TrimSpace(phone)
		if phone == "" {
			return nil, badInputError("phone is required")
		}
		dir, err := h.resolveWorkDir(workDir)
		if err != nil {
			return nil, err
		}
		fields["work_dir"] = dir

		h.mu.Lock()
		if h.closed {
			h.mu.Unlock()
			return nil, ErrHostClosed
		}
		previous := h.wrapper
		h.wrapper = &clientWrapper{phone: phone, workDir: dir}
		h.mu.Unlock()

		if err := h.disposeWrapper(ctx, previous); err != nil {
			h.logWarn(ctx, "previous wrapper release failed", map[string]any{
				"work_dir": previous.workDir,
				"error":    err.Error(),
			})
		}
		return map[string]any{"work_dir": dir}, nil
	})
}

// RequestCode asks the server to send a login code. An empty phone falls back
// to the wrapper phone and an empty language to the configured one.
func (h *Host) RequestCode(ctx context.Context, phone string, language string) Envelope {
	fields := map[string]any{"language": language}
	return h.execute(ctx, "request_code", fields, func(ctx context.Context) (map[string]any, error) {
		wrapper, err := h.currentWrapper()
		if err != nil {
			return nil, err
		}
		session, err := h.ensureClient(ctx, wrapper)
		if err != nil {
			return nil, err
		}
		phone = strings.TrimSpace(phone)
		if phone == "" {
			phone = wrapper.phone
		}
		language = strings.TrimSpace(language)
		if language == "" {
			language = h.config.Language
		}
		fields["phone"] = phone

		tempToken, err := runBridged(ctx, h, fields, "request_code", func(ctx context.Context) (string, error) {
			return session.Client.RequestCode(ctx, phone, language)
		})
		if err != nil {
			return nil, err
		}
		return map[string]any{"temp_token": tempToken}, nil
	})
}

// LoginWithCode completes the login started by RequestCode.
func (h *Host) LoginWithCode(ctx context.Context, tempToken string, code string) Envelope {
	fields := map[string]any{"temp_token": tempToken, "code": code}
	return h.execute(ctx, "login_with_code", fields, func(ctx context.Context) (map[string]any, error) {
		if strings.TrimSpace(tempToken) == "" {
			return nil, badInputError("temp_token is required")
		}
		if strings.TrimSpace(code) == "" {
			return nil, badInputError("code is required")
		}
		wrapper, err := h.currentWrapper()
		if err != nil {
			return nil, err
		}
		session, err := h.ensureClient(ctx, wrapper)
		if err != nil {
			return nil, err
		}
		result, err := runBridged(ctx, h, fields, "login_with_code", func(ctx context.Context) (LoginResult, error) {
			return session.Client.LoginWithCode(ctx, tempToken, code)
		})
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"token": result.Token,
			"me":    profileFields(result.Me),
		}, nil
	})
}

func (h *Host) GetChats(ctx context.Context) Envelope {
	fields := map[string]any{}
	return h.execute(ctx, "get_chats", fields, func(ctx context.Context) (map[string]any, error) {
		session, err := h.connectedSession()
		if err != nil {
			return nil, err
		}
		chats, err := runBridged(ctx, h, fields, "get_chats", func(ctx context.Context) ([]Chat, error) {
			ids := session.Client.ChatIDs()
			if len(ids) == 0 {
				return nil, nil
			}
			return session.Client.GetChats(ctx, ids)
		})
		if err != nil {
			return nil, err
		}
		out := make([]map[string]any, 0, len(chats))
		for _, chat := range chats {
			out = append(out, chatFields(chat))
		}
		fields["count"] = len(out)
		return map[string]any{"chats": out}, nil
	})
}

// GetMessages fetches up to limit messages of a chat. A non-positive limit
// uses the configured history_limit.
func (h *Host) GetMessages(ctx context.Context, chatID int64, limit int) Envelope {
	fields := map[string]any{"chat_id": chatID, "limit": limit}
	return h.execute(ctx, "get_messages", fields, func(ctx context.Context) (map[string]any, error) {
		session, err := h.connectedSession()
		if err != nil {
			return nil, err
		}
		if limit <= 0 {
			limit = h.config.HistoryLimit
		}
		if limit <= 0 {
			limit = DefaultHistoryLimit
		}
		messages, err := runBridged(ctx, h, fields, "get_messages", func(ctx context.Context) ([]Message, error) {
			return session.Client.FetchHistory(ctx, chatID, limit)
		})
		if err != nil {
			return nil, err
		}
		out := make([]map[string]any, 0, len(messages))
		for _, message := range messages {
			out = append(out, messageFields(message))
		}
		fields["count"] = len(out)
		return map[string]any{"messages": out}, nil
	})
}

// StartClient connects the client. With a stored token it also syncs the
// session and reports the current profile; otherwise the envelope carries
// requires_auth.
func (h *Host) StartClient(ctx context.Context) Envelope {
	fields := map[string]any{}
	return h.execute(ctx, "start_client", fields, func(ctx context.Context) (map[string]any, error) {
		wrapper, err := h.currentWrapper()
		if err != nil {
			return nil, err
		}
		session, err := h.ensureClient(ctx, wrapper)
		if err != nil {
			return nil, err
		}
		return runBridged(ctx, h, fields, "start_client", func(ctx context.Context) (map[string]any, error) {
			client := session.Client
			if err := client.Connect(ctx); err != nil {
				return nil, err
			}
			if client.Token() == "" {
				return map[string]any{
					"connected":     client.IsConnected(),
					"requires_auth": true,
				}, nil
			}
			me, err := client.Sync(ctx)
			if err != nil {
				return nil, err
			}
			return map[string]any{
				"connected": client.IsConnected(),
				"me":        profileFields(me),
			}, nil
		})
	})
}

// StopClient disconnects the client. It succeeds when there is nothing to
// stop.
func (h *Host) StopClient(ctx context.Context) Envelope {
	fields := map[string]any{}
	return h.execute(ctx, "stop_client", fields, func(ctx context.Context) (map[string]any, error) {
		h.mu.Lock()
		wrapper := h.wrapper
		var session *ClientSession
		if wrapper != nil {
			session = wrapper.session
		}
		h.mu.Unlock()

		if wrapper == nil {
			return map[string]any{"message": MessageWrapperNotInitialized}, nil
		}
		if session == nil || session.Client == nil {
			return map[string]any{"message": MessageClientNotInitialized}, nil
		}
		_, err := runBridged(ctx, h, fields, "stop_client", func(ctx context.Context) (struct{}, error) {
			return struct{}{}, session.Client.Close(ctx)
		})
		if err != nil {
			return nil, err
		}
		return map[string]any{"message": MessageClientStopped}, nil
	})
}

func (h *Host) execute(
	ctx context.Context,
	operation string,
	fields map[string]any,
	fn func(ctx context.Context) (map[string]any, error),
) (envelope Envelope) {
	startedAt := time.Now().UTC()
	if ctx == nil {
		ctx = context.Background()
	}
	if h == nil {
		return FailedFrom(ErrWrapperNotInitialized)
	}
	defer func() {
		if recovered := recover(); recovered != nil {
			mapped := newHostError(fmt.Sprintf("%s panicked: %v", operation, recovered), goerrors.CategoryInternal, HostErrorInternal)
			envelope = FailedFrom(mapped)
			h.observeOperation(ctx, startedAt, operation, mapped.TextCode, fields)
		}
	}()

	h.mu.Lock()
	closed := h.closed
	h.mu.Unlock()
	if closed {
		mapped := h.mapError(ErrHostClosed)
		h.observeOperation(ctx, startedAt, operation, mapped.TextCode, fields)
		return FailedFrom(mapped)
	}

	result, err := fn(ctx)
	if err != nil {
		mapped := h.mapError(err)
		h.observeOperation(ctx, startedAt, operation, mapped.TextCode, fields)
		return FailedFrom(mapped)
	}
	h.observeOperation(ctx, startedAt, operation, "", fields)
	return Succeeded(result)
}

func (h *Host) mapError(err error) *goerrors.Error {
	mapper := h.errorMapper
	if mapper == nil {
		mapper = defaultErrorMapper
	}
	mapped := mapper(err)
	if mapped == nil {
		mapped = defaultErrorMapper(err)
	}
	return ensureHostErrorEnvelope(mapped)
}

func runBridged[T any](
	ctx context.Context,
	h *Host,
	fields map[string]any,
	name string,
	op bridge.Operation[T],
) (T, error) {
	handle, err := bridge.Submit(ctx, h.bridge, name, op)
	if err != nil {
		var zero T
		return zero, err
	}
	fields["bridge_mode"] = string(handle.Mode())
	return handle.Wait()
}

func (h *Host) currentWrapper() (*clientWrapper, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.wrapper == nil {
		return nil, ErrWrapperNotInitialized
	}
	return h.wrapper, nil
}

func (h *Host) connectedSession() (*ClientSession, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.wrapper == nil {
		return nil, ErrWrapperNotInitialized
	}
	session := h.wrapper.session
	if session == nil || session.Client == nil {
		return nil, ErrClientNotInitialized
	}
	if !session.Client.IsConnected() {
		return nil, ErrClientNotConnected
	}
	return session, nil
}

// ensureClient creates the wrapper client on first use. The factory runs
// without holding the host lock.
func (h *Host) ensureClient(ctx context.Context, wrapper *clientWrapper) (*ClientSession, error) {
	h.mu.Lock()
	if wrapper.session != nil {
		session := wrapper.session
		h.mu.Unlock()
		return session, nil
	}
	h.mu.Unlock()

	if h.clientFactory == nil {
		return nil, newHostError("client factory is not configured", goerrors.CategoryInternal, HostErrorInternal)
	}
	created, err := h.clientFactory(ctx, ClientSettings{
		Phone:   wrapper.phone,
		WorkDir: wrapper.workDir,
		Config:  h.config,
		Logger:  h.logger,
		Metrics: h.metricsRecorder,
	})
	if err != nil {
		return nil, err
	}
	if created.Client == nil {
		releaseSession(ctx, &created)
		return nil, newHostError("client factory returned no client", goerrors.CategoryInternal, HostErrorInternal)
	}

	h.mu.Lock()
	if wrapper.session != nil || h.wrapper != wrapper {
		existing := wrapper.session
		h.mu.Unlock()
		releaseSession(ctx, &created)
		if existing == nil {
			return nil, ErrWrapperNotInitialized
		}
		return existing, nil
	}
	wrapper.session = &created
	h.mu.Unlock()
	return &created, nil
}

func (h *Host) disposeWrapper(ctx context.Context, wrapper *clientWrapper) error {
	if wrapper == nil {
		return nil
	}
	h.mu.Lock()
	session := wrapper.session
	wrapper.session = nil
	h.mu.Unlock()
	if session == nil {
		return nil
	}
	if session.Client != nil && session.Client.IsConnected() {
		if _, err := bridge.Run(ctx, h.bridge, "dispose_client", func(ctx context.Context) (struct{}, error) {
			return struct{}{}, session.Client.Close(ctx)
		}); err != nil {
			if session.Store != nil {
				_ = session.Store.Close()
			}
			return err
		}
	}
	if session.Store != nil {
		return session.Store.Close()
	}
	return nil
}

func releaseSession(ctx context.Context, session *ClientSession) {
	if session == nil {
		return
	}
	if session.Client != nil && session.Client.IsConnected() {
		_ = session.Client.Close(ctx)
	}
	if session.Store != nil {
		_ = session.Store.Close()
	}
}

func (h *Host) resolveWorkDir(workDir string) (string, error) {
	dir := strings.TrimSpace(workDir)
	if dir == "" {
		dir = strings.TrimSpace(h.config.WorkDir)
	}
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", goerrors.Wrap(err, goerrors.CategoryInternal, "core: resolve home directory failed").
				WithTextCode(HostErrorStorage)
		}
		dir = filepath.Join(home, "Documents", "max_cache")
	} else if strings.HasPrefix(dir, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", goerrors.Wrap(err, goerrors.CategoryInternal, "core: resolve home directory failed").
				WithTextCode(HostErrorStorage)
		}
		dir = filepath.Join(home, strings.TrimPrefix(dir, "~"))
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "core: create work directory failed").
			WithTextCode(HostErrorStorage).
			WithMetadata(map[string]any{"work_dir": dir})
	}
	return dir, nil
}

func profileFields(profile *Profile) map[string]any {
	if profile == nil {
		return nil
	}
	var firstName any
	if profile.FirstName != "" {
		firstName = profile.FirstName
	}
	return map[string]any{
		"id":         profile.ID,
		"first_name": firstName,
	}
}

func chatFields(chat Chat) map[string]any {
	var photoID any
	if chat.PhotoID != nil {
		photoID = *chat.PhotoID
	}
	return map[string]any{
		"id":           chat.ID,
		"title":        chat.Title,
		"type":         chat.Type,
		"photo_id":     photoID,
		"unread_count": chat.UnreadCount,
	}
}

func messageFields(message Message) map[string]any {
	var senderID, date, kind any
	if message.SenderID != nil {
		senderID = *message.SenderID
	}
	if message.Date != nil {
		date = *message.Date
	}
	if message.Type != "" {
		kind = message.Type
	}
	return map[string]any{
		"id":        message.ID,
		"chat_id":   message.ChatID,
		"text":      message.Text,
		"sender_id": senderID,
		"date":      date,
		"type":      kind,
	}
}
