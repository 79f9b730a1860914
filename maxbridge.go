package maxbridge

import (
	"context"
	"time"

	"github.com/goliatone/go-maxbridge/core"
	"github.com/goliatone/go-maxbridge/protocol"
	"github.com/goliatone/go-maxbridge/ratelimit"
	sqlstore "github.com/goliatone/go-maxbridge/store/sql"
)

type Config = core.Config

type ClientConfig = core.ClientConfig

type Option = core.Option

type Host = core.Host

type Envelope = core.Envelope

type ClientFactory = core.ClientFactory

type ClientSettings = core.ClientSettings

type ClientSession = core.ClientSession

var (
	WithLogger          = core.WithLogger
	WithLoggerProvider  = core.WithLoggerProvider
	WithMetricsRecorder = core.WithMetricsRecorder
	WithErrorMapper     = core.WithErrorMapper
	WithConfigProvider  = core.WithConfigProvider
	WithOptionsResolver = core.WithOptionsResolver
	WithClientFactory   = core.WithClientFactory
	WithBridge          = core.WithBridge
	WithBridgeHook      = core.WithBridgeHook
)

// throttleState outlives individual wrappers so a recreated wrapper still
// honors a cooldown the server imposed on its predecessor.
var throttleState = ratelimit.NewMemoryStateStore()

func DefaultConfig() Config {
	return core.DefaultConfig()
}

// NewHost opens a host without a default client factory.
func NewHost(cfg Config, opts ...Option) (*Host, error) {
	return core.NewHost(cfg, opts...)
}

// Setup opens a host wired to the sqlite credential store and the websocket
// protocol client. Options given later override the default factory.
func Setup(cfg Config, opts ...Option) (*Host, error) {
	all := make([]Option, 0, len(opts)+1)
	all = append(all, core.WithClientFactory(DefaultClientFactory))
	all = append(all, opts...)
	return core.NewHost(cfg, all...)
}

// DefaultClientFactory opens <workdir>/session.db and builds a protocol
// client bound to it. The store is closed again if the client cannot be built.
func DefaultClientFactory(ctx context.Context, settings ClientSettings) (ClientSession, error) {
	store, err := sqlstore.Open(ctx, settings.WorkDir,
		sqlstore.WithLogger(settings.Logger),
		sqlstore.WithMetricsRecorder(settings.Metrics),
	)
	if err != nil {
		return ClientSession{}, err
	}
	clientOpts := []protocol.Option{
		protocol.WithLogger(settings.Logger),
		protocol.WithMetricsRecorder(settings.Metrics),
	}
	if cooldown := settings.Config.Client.ThrottleCooldownMS; cooldown > 0 {
		policy := ratelimit.NewAdaptivePolicy(throttleState)
		policy.InitialBackoff = time.Duration(cooldown) * time.Millisecond
		clientOpts = append(clientOpts, protocol.WithThrottlePolicy(policy))
	}
	client, err := protocol.NewClient(settings.Config.Client, settings.Phone, store, clientOpts...)
	if err != nil {
		_ = store.Close()
		return ClientSession{}, err
	}
	return ClientSession{Client: client, Store: store}, nil
}
