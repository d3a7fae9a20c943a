package sse

import "time"

const (
	defaultKeepAlive = 15 * time.Second
	defaultRetry     = 3 * time.Second
)

// Config tunes stale-notice streams. Retry is sent to the client as the
// reconnect delay; zero omits the retry field.
type Config struct {
	KeepAliveInterval time.Duration
	Retry             time.Duration
}

// DefaultConfig returns the settings used when none are configured
func DefaultConfig() *Config {
	return &Config{KeepAliveInterval: defaultKeepAlive, Retry: defaultRetry}
}

// NewConfig fills non-positive keep-alive values with the default
func NewConfig(keepAlive, retry time.Duration) *Config {
	if keepAlive <= 0 {
		keepAlive = defaultKeepAlive
	}
	if retry < 0 {
		retry = 0
	}
	return &Config{KeepAliveInterval: keepAlive, Retry: retry}
}
