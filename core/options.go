package core

import (
	"context"
	"fmt"
	"maps"
	"strings"

	"github.com/goliatone/go-config/cfgx"
	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-maxbridge/bridge"
	opts "github.com/goliatone/go-options"
)

type ErrorMapper func(err error) *goerrors.Error

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

type hostBuilder struct {
	runtimeConfig   Config
	logger          Logger
	loggerProvider  LoggerProvider
	metricsRecorder MetricsRecorder
	errorMapper     ErrorMapper
	configProvider  ConfigProvider
	optionsResolver OptionsResolver
	clientFactory   ClientFactory
	bridge          *bridge.Bridge
	bridgeHooks     []bridge.Hook
}

type Option func(*hostBuilder)

func WithLogger(logger Logger) Option {
	return func(b *hostBuilder) {
		b.logger = logger
	}
}

func WithLoggerProvider(provider LoggerProvider) Option {
	return func(b *hostBuilder) {
		b.loggerProvider = provider
	}
}

func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(b *hostBuilder) {
		b.metricsRecorder = recorder
	}
}

func WithErrorMapper(mapper ErrorMapper) Option {
	return func(b *hostBuilder) {
		b.errorMapper = mapper
	}
}

func WithConfigProvider(provider ConfigProvider) Option {
	return func(b *hostBuilder) {
		b.configProvider = provider
	}
}

func WithOptionsResolver(resolver OptionsResolver) Option {
	return func(b *hostBuilder) {
		b.optionsResolver = resolver
	}
}

func WithClientFactory(factory ClientFactory) Option {
	return func(b *hostBuilder) {
		b.clientFactory = factory
	}
}

// WithBridge shares a bridge between hosts. The host does not close a bridge
// it did not create.
func WithBridge(br *bridge.Bridge) Option {
	return func(b *hostBuilder) {
		b.bridge = br
	}
}

func WithBridgeHook(hook bridge.Hook) Option {
	return func(b *hostBuilder) {
		if hook != nil {
			b.bridgeHooks = append(b.bridgeHooks, hook)
		}
	}
}

func defaultHostBuilder(runtime Config) hostBuilder {
	loggerProvider, logger := glog.Resolve("maxbridge", nil, nil)
	return hostBuilder{
		runtimeConfig:   runtime,
		loggerProvider:  loggerProvider,
		logger:          logger,
		metricsRecorder: NopMetricsRecorder{},
		errorMapper:     defaultErrorMapper,
		configProvider:  NewCfgxConfigProvider(nil),
		optionsResolver: GoOptionsResolver{},
	}
}

func defaultErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}
	return hostErrorMapper(err)
}

type staticRawConfigLoader struct {
	Values map[string]any
}

// NewStaticConfigLoader serves a fixed raw map, typically decoded from a
// config file.
func NewStaticConfigLoader(values map[string]any) RawConfigLoader {
	return staticRawConfigLoader{Values: values}
}

func (l staticRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if l.Values == nil {
		return map[string]any{}, nil
	}
	return maps.Clone(l.Values), nil
}

// CfgxConfigProvider decodes the raw map of its loader into a validated
// Config on top of the supplied defaults.
type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil || p.Loader == nil {
		return decodeConfig(map[string]any{}, defaults)
	}
	raw, err := p.Loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, fmt.Errorf("core: load raw config: %w", err)
	}
	return decodeConfig(raw, defaults)
}

func decodeConfig(raw map[string]any, defaults Config) (Config, error) {
	return cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
}

// Scope priorities for GoOptionsResolver. Higher wins.
const (
	scopeDefaults = 0
	scopeFile     = 10
	scopeRuntime  = 20
)

// GoOptionsResolver layers built-in defaults, the loaded config file and the
// values passed to Setup, in that order of precedence. Zero values in the
// upper two layers never mask a lower layer.
type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	stack, err := opts.NewStack(
		opts.NewLayer(opts.NewScope("defaults", scopeDefaults), configToLayerMap(defaults, true),
			opts.WithSnapshotID[map[string]any]("builtin")),
		opts.NewLayer(opts.NewScope("file", scopeFile), configToLayerMap(loaded, false),
			opts.WithSnapshotID[map[string]any]("file")),
		opts.NewLayer(opts.NewScope("runtime", scopeRuntime), configToLayerMap(runtime, false),
			opts.WithSnapshotID[map[string]any]("setup")),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: build config layers: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: merge config layers: %w", err)
	}
	return decodeConfig(merged.Value, defaults)
}

func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	setString := func(target map[string]any, key, value string) {
		if includeZero || strings.TrimSpace(value) != "" {
			target[key] = value
		}
	}
	setString(layer, "service_name", cfg.ServiceName)
	setString(layer, "work_dir", cfg.WorkDir)
	setString(layer, "phone", cfg.Phone)
	setString(layer, "language", cfg.Language)
	if includeZero || cfg.HistoryLimit != 0 {
		layer["history_limit"] = cfg.HistoryLimit
	}

	client := map[string]any{}
	setString(client, "endpoint", cfg.Client.Endpoint)
	setString(client, "origin", cfg.Client.Origin)
	setString(client, "device_type", cfg.Client.DeviceType)
	setString(client, "app_version", cfg.Client.AppVersion)
	if includeZero || cfg.Client.RequestTimeoutMS != 0 {
		client["request_timeout_ms"] = cfg.Client.RequestTimeoutMS
	}
	if includeZero || cfg.Client.SendRatePerSecond != 0 {
		client["send_rate_per_second"] = cfg.Client.SendRatePerSecond
	}
	if includeZero || cfg.Client.SendBurst != 0 {
		client["send_burst"] = cfg.Client.SendBurst
	}
	if includeZero || cfg.Client.ThrottleCooldownMS != 0 {
		client["throttle_cooldown_ms"] = cfg.Client.ThrottleCooldownMS
	}
	if len(client) > 0 {
		layer["client"] = client
	}
	return layer
}
