package sse

import "time"

// Config holds configuration for SSE connections
// Separates configuration concerns from handler logic (SRP)
type Config struct {
	// KeepAliveInterval is how often to send keep-alive pings to prevent timeouts
	KeepAliveInterval time.Duration
}

// DefaultConfig returns the default SSE configuration
// 10 seconds is safe for most proxies
func DefaultConfig() *Config {
	return &Config{
		KeepAliveInterval: 10 * time.Second,
	}
}
