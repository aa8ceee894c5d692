package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	APIURL            string
	WSURL             string
	APIToken          string
	StatusAddr        string
	LogLevel          slog.Level
	OrderPollInterval time.Duration
	ReconnectMin      time.Duration
	ReconnectMax      time.Duration
	RequestTimeout    time.Duration
	PingInterval      time.Duration
	MaxReplyLength    int
}

// Load reads the configuration from the environment. listMode relaxes the
// checks that only matter for the interactive console.
func Load(listMode bool) (*Config, error) {
	cfg := &Config{
		APIURL:     strings.TrimSuffix(getEnv("API_URL", "http://localhost:5000/api"), "/"),
		WSURL:      getEnv("WS_URL", "ws://localhost:5000/socket"),
		APIToken:   os.Getenv("API_TOKEN"),
		StatusAddr: getEnv("STATUS_ADDR", "localhost:8082"),
	}

	var err error
	durations := []struct {
		key, fallback string
		dst           *time.Duration
	}{
		{"ORDER_POLL_INTERVAL", "45s", &cfg.OrderPollInterval},
		{"RECONNECT_MIN", "1s", &cfg.ReconnectMin},
		{"RECONNECT_MAX", "30s", &cfg.ReconnectMax},
		{"REQUEST_TIMEOUT", "15s", &cfg.RequestTimeout},
		{"WS_PING_INTERVAL", "30s", &cfg.PingInterval},
	}
	for _, d := range durations {
		if *d.dst, err = time.ParseDuration(getEnv(d.key, d.fallback)); err != nil {
			return nil, fmt.Errorf("invalid %s: %w", d.key, err)
		}
	}

	if cfg.MaxReplyLength, err = strconv.Atoi(getEnv("MAX_REPLY_LENGTH", "2000")); err != nil {
		return nil, fmt.Errorf("invalid MAX_REPLY_LENGTH: %w", err)
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(getEnv("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	if err := cfg.Validate(listMode); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate(listMode bool) error {
	if err := checkURL("API_URL", c.APIURL, "http", "https"); err != nil {
		return err
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be greater than 0")
	}

	if listMode {
		return nil
	}

	if err := checkURL("WS_URL", c.WSURL, "ws", "wss"); err != nil {
		return err
	}

	if c.OrderPollInterval <= 0 {
		return fmt.Errorf("ORDER_POLL_INTERVAL must be greater than 0")
	}

	// RECONNECT_MAX=0 turns reconnection off.
	if c.ReconnectMax < 0 || c.ReconnectMin < 0 {
		return fmt.Errorf("RECONNECT_MIN and RECONNECT_MAX must not be negative")
	}
	if c.ReconnectMax > 0 && c.ReconnectMin > c.ReconnectMax {
		return fmt.Errorf("RECONNECT_MIN must not exceed RECONNECT_MAX")
	}

	if c.PingInterval < 0 {
		return fmt.Errorf("WS_PING_INTERVAL must not be negative")
	}

	if c.MaxReplyLength < 0 {
		return fmt.Errorf("MAX_REPLY_LENGTH must not be negative")
	}

	return nil
}

func checkURL(key, raw string, schemes ...string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	for _, s := range schemes {
		if u.Scheme == s && u.Host != "" {
			return nil
		}
	}
	return fmt.Errorf("%s must be an absolute %s URL", key, strings.Join(schemes, "/"))
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
