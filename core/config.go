package core

import (
	"fmt"
	"strings"
)

const (
	DefaultEndpoint     = "wss://ws-api.oneme.ru/websocket"
	DefaultOrigin       = "https://web.max.ru"
	DefaultDeviceType   = "WEB"
	DefaultAppVersion   = "25.12.13"
	DefaultLanguage     = "ru"
	DefaultHistoryLimit = 50
)

type ClientConfig struct {
	Endpoint          string  `koanf:"endpoint" mapstructure:"endpoint"`
	Origin            string  `koanf:"origin" mapstructure:"origin"`
	DeviceType        string  `koanf:"device_type" mapstructure:"device_type"`
	AppVersion        string  `koanf:"app_version" mapstructure:"app_version"`
	RequestTimeoutMS  int     `koanf:"request_timeout_ms" mapstructure:"request_timeout_ms"`
	SendRatePerSecond float64 `koanf:"send_rate_per_second" mapstructure:"send_rate_per_second"`
	SendBurst         int     `koanf:"send_burst" mapstructure:"send_burst"`

	// ThrottleCooldownMS opens a local cooldown after the server answers
	// too.many.requests. Zero leaves throttling entirely to the server.
	ThrottleCooldownMS int `koanf:"throttle_cooldown_ms" mapstructure:"throttle_cooldown_ms"`
}

type Config struct {
	ServiceName  string       `koanf:"service_name" mapstructure:"service_name"`
	WorkDir      string       `koanf:"work_dir" mapstructure:"work_dir"`
	Phone        string       `koanf:"phone" mapstructure:"phone"`
	Language     string       `koanf:"language" mapstructure:"language"`
	HistoryLimit int          `koanf:"history_limit" mapstructure:"history_limit"`
	Client       ClientConfig `koanf:"client" mapstructure:"client"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName:  "maxbridge",
		Language:     DefaultLanguage,
		HistoryLimit: DefaultHistoryLimit,
		Client: ClientConfig{
			Endpoint:         DefaultEndpoint,
			Origin:           DefaultOrigin,
			DeviceType:       DefaultDeviceType,
			AppVersion:       DefaultAppVersion,
			RequestTimeoutMS: 10000,
			SendBurst:        1,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if strings.TrimSpace(c.Language) == "" {
		return fmt.Errorf("core: language is required")
	}
	if c.HistoryLimit < 0 {
		return fmt.Errorf("core: history_limit must be >= 0")
	}
	return c.Client.Validate()
}

func (c ClientConfig) Validate() error {
	endpoint := strings.TrimSpace(c.Endpoint)
	if endpoint == "" {
		return fmt.Errorf("core: client endpoint is required")
	}
	if !strings.HasPrefix(endpoint, "ws://") && !strings.HasPrefix(endpoint, "wss://") {
		return fmt.Errorf("core: client endpoint %q is invalid: expected ws:// or wss://", endpoint)
	}
	if c.RequestTimeoutMS < 0 {
		return fmt.Errorf("core: client request_timeout_ms must be >= 0")
	}
	if c.SendRatePerSecond < 0 {
		return fmt.Errorf("core: client send_rate_per_second must be >= 0")
	}
	if c.SendBurst < 0 {
		return fmt.Errorf("core: client send_burst must be >= 0")
	}
	if c.ThrottleCooldownMS < 0 {
		return fmt.Errorf("core: client throttle_cooldown_ms must be >= 0")
	}
	return nil
}
