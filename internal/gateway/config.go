package gateway

import "time"

// Config holds HTTP gateway configuration.
type Config struct {
	Bind            string
	Auth            AuthConfig
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	// SubscriberBuffer is the number of step events queued per websocket
	// subscriber before it is dropped.
	SubscriberBuffer int
}

// defaults fills zero values.
func (c *Config) defaults() {
	if c.Bind == "" {
		c.Bind = "127.0.0.1:9464"
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 5 * time.Second
	}
	if c.SubscriberBuffer <= 0 {
		c.SubscriberBuffer = 64
	}
}

// AuthConfig protects every route except /health.
type AuthConfig struct {
	BearerToken string
	BasicUser   string
	BasicPass   string
}

// IsConfigured reports whether any auth method is set.
func (a AuthConfig) IsConfigured() bool {
	return a.BearerToken != "" || (a.BasicUser != "" && a.BasicPass != "")
}
