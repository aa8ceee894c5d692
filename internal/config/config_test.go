package config

import (
	"log/slog"
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"WS_URL", "API_TOKEN", "ORDER_POLL_INTERVAL", "RECONNECT_MIN", "RECONNECT_MAX",
		"REQUEST_TIMEOUT", "WS_PING_INTERVAL", "MAX_REPLY_LENGTH",
	} {
		t.Setenv(key, "")
		_ = os.Unsetenv(key)
	}
	t.Setenv("API_URL", "http://localhost:5000/api/")
	t.Setenv("STATUS_ADDR", "")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(false)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.APIURL != "http://localhost:5000/api" {
		t.Errorf("trailing slash not trimmed: %q", cfg.APIURL)
	}
	if cfg.OrderPollInterval != 45*time.Second {
		t.Errorf("OrderPollInterval = %v", cfg.OrderPollInterval)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v", cfg.LogLevel)
	}
	if cfg.StatusAddr != "" {
		t.Errorf("empty STATUS_ADDR must disable the status endpoint, got %q", cfg.StatusAddr)
	}
	if cfg.MaxReplyLength != 2000 {
		t.Errorf("MaxReplyLength = %d", cfg.MaxReplyLength)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Setenv("ORDER_POLL_INTERVAL", "soon")
	if _, err := Load(false); err == nil {
		t.Error("expected error for unparsable duration")
	}

	t.Setenv("ORDER_POLL_INTERVAL", "45s")
	t.Setenv("MAX_REPLY_LENGTH", "lots")
	if _, err := Load(false); err == nil {
		t.Error("expected error for unparsable MAX_REPLY_LENGTH")
	}

	t.Setenv("MAX_REPLY_LENGTH", "100")
	t.Setenv("LOG_LEVEL", "chatty")
	if _, err := Load(false); err == nil {
		t.Error("expected error for unknown LOG_LEVEL")
	}
}

func valid() *Config {
	return &Config{
		APIURL:            "https://shop.test/api",
		WSURL:             "wss://shop.test/socket",
		OrderPollInterval: 45 * time.Second,
		ReconnectMin:      time.Second,
		ReconnectMax:      30 * time.Second,
		RequestTimeout:    15 * time.Second,
		PingInterval:      30 * time.Second,
		MaxReplyLength:    2000,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(c *Config)
		listMode bool
		wantErr  bool
	}{
		{"valid", func(c *Config) {}, false, false},
		{"reconnect disabled", func(c *Config) { c.ReconnectMax = 0 }, false, false},
		{"relative api url", func(c *Config) { c.APIURL = "/api" }, false, true},
		{"http websocket url", func(c *Config) { c.WSURL = "http://shop.test/socket" }, false, true},
		{"websocket url ignored when listing", func(c *Config) { c.WSURL = "" }, true, false},
		{"zero poll interval", func(c *Config) { c.OrderPollInterval = 0 }, false, true},
		{"min above max", func(c *Config) { c.ReconnectMin = time.Minute }, false, true},
		{"negative reconnect", func(c *Config) { c.ReconnectMin = -time.Second }, false, true},
		{"zero timeout", func(c *Config) { c.RequestTimeout = 0 }, true, true},
		{"negative reply length", func(c *Config) { c.MaxReplyLength = -1 }, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate(tt.listMode)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
