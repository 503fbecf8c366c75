package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/viper"
)

// Session store kinds.
const (
	StoreFile   = "file"
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Config stores all configuration of the console.
// The values are read by viper from an optional config file and the environment.
type Config struct {
	HTTPServerAddress    string        `mapstructure:"HTTP_SERVER_ADDRESS"`
	APIBaseURL           string        `mapstructure:"API_BASE_URL"`
	WSURL                string        `mapstructure:"WS_URL"`
	HTTPTimeout          time.Duration `mapstructure:"HTTP_TIMEOUT"`
	HandshakeTimeout     time.Duration `mapstructure:"HANDSHAKE_TIMEOUT"`
	ReconnectDelay       time.Duration `mapstructure:"RECONNECT_DELAY"`
	MaxReconnectAttempts int           `mapstructure:"MAX_RECONNECT_ATTEMPTS"`
	StompReceipts        bool          `mapstructure:"STOMP_RECEIPTS"`
	PendingBidTimeout    time.Duration `mapstructure:"PENDING_BID_TIMEOUT"`
	NotificationTTL      time.Duration `mapstructure:"NOTIFICATION_TTL"`
	SessionStore         string        `mapstructure:"SESSION_STORE"`
	SessionFile          string        `mapstructure:"SESSION_FILE"`
	RedisAddress         string        `mapstructure:"REDIS_ADDRESS"`
	RedisSessionKey      string        `mapstructure:"REDIS_SESSION_KEY"`
	SessionTTL           time.Duration `mapstructure:"SESSION_TTL"`
	LogLevel             string        `mapstructure:"LOG_LEVEL"`
	GinMode              string        `mapstructure:"GIN_MODE"`
}

var defaults = map[string]any{
	"HTTP_SERVER_ADDRESS":    "127.0.0.1:3000",
	"API_BASE_URL":           "http://localhost:8080/api/v1",
	"WS_URL":                 "ws://localhost:8080/ws/websocket",
	"HTTP_TIMEOUT":           "10s",
	"HANDSHAKE_TIMEOUT":      "10s",
	"RECONNECT_DELAY":        "5s",
	"MAX_RECONNECT_ATTEMPTS": 0,
	"STOMP_RECEIPTS":         true,
	"PENDING_BID_TIMEOUT":    "10s",
	"NOTIFICATION_TTL":       "3s",
	"SESSION_STORE":          StoreFile,
	"SESSION_FILE":           ".auction-console/session.json",
	"REDIS_ADDRESS":          "localhost:6379",
	"REDIS_SESSION_KEY":      "auction-console:session",
	"SESSION_TTL":            "0s",
	"LOG_LEVEL":              "info",
	"GIN_MODE":               "release",
}

// Load reads configuration from the environment, and from path when it is not empty.
// Environment variables win over the file.
func Load(path string) (Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the console cannot run with.
func (c Config) Validate() error {
	if c.HTTPServerAddress == "" {
		return fmt.Errorf("HTTP_SERVER_ADDRESS is required")
	}
	if err := requireURL("API_BASE_URL", c.APIBaseURL, "http", "https"); err != nil {
		return err
	}
	if err := requireURL("WS_URL", c.WSURL, "ws", "wss"); err != nil {
		return err
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	if c.HandshakeTimeout <= 0 {
		return fmt.Errorf("HANDSHAKE_TIMEOUT must be positive")
	}
	if c.ReconnectDelay <= 0 {
		return fmt.Errorf("RECONNECT_DELAY must be positive")
	}
	if c.MaxReconnectAttempts < 0 {
		return fmt.Errorf("MAX_RECONNECT_ATTEMPTS must not be negative")
	}
	if c.PendingBidTimeout <= 0 {
		return fmt.Errorf("PENDING_BID_TIMEOUT must be positive")
	}
	if c.NotificationTTL < 0 {
		return fmt.Errorf("NOTIFICATION_TTL must not be negative")
	}
	if c.SessionTTL < 0 {
		return fmt.Errorf("SESSION_TTL must not be negative")
	}

	switch c.SessionStore {
	case StoreMemory:
	case StoreFile:
		if c.SessionFile == "" {
			return fmt.Errorf("SESSION_FILE is required for the file session store")
		}
	case StoreRedis:
		if c.RedisAddress == "" || c.RedisSessionKey == "" {
			return fmt.Errorf("REDIS_ADDRESS and REDIS_SESSION_KEY are required for the redis session store")
		}
	default:
		return fmt.Errorf("SESSION_STORE must be one of %s, %s, %s; got %q", StoreFile, StoreMemory, StoreRedis, c.SessionStore)
	}
	return nil
}

func requireURL(key, raw string, schemes ...string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", key)
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return fmt.Errorf("%s is not a valid url: %q", key, raw)
	}
	for _, s := range schemes {
		if u.Scheme == s {
			return nil
		}
	}
	return fmt.Errorf("%s must use one of %v, got %q", key, schemes, u.Scheme)
}
