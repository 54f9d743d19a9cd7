// Package config provides runtime configuration values for the client.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds configuration knobs for the marketplace client.
type Config struct {
	// APIBaseURL is the marketplace REST API root.
	APIBaseURL string
	// PushURL is the websocket endpoint of the push transport.
	PushURL string
	// SessionToken is the JWT issued at login; its role claim gates the
	// push subscription.
	SessionToken string

	// HTTPAddr is the listen address of the local UI surface.
	HTTPAddr        string
	ShutdownTimeout time.Duration

	// Push channel reconnect policy: fixed delay between attempts, bounded
	// attempt count before the channel fails terminally.
	PushBackoff    time.Duration
	PushMaxRetries int
	// PushBuffer is the size of the decoded-event channel.
	PushBuffer int

	// NotifyDismissAfter is how long a notification stays visible before
	// its timer dismisses it.
	NotifyDismissAfter time.Duration

	// APITimeout bounds each REST call; there are no retries.
	APITimeout time.Duration
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoienv(key string, def int) int {
	v := getenv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func durenvms(key string, defMs int) time.Duration {
	ms := atoienv(key, defMs)
	return time.Duration(ms) * time.Millisecond
}

func durenvs(key string, defSec int) time.Duration {
	sec := atoienv(key, defSec)
	return time.Duration(sec) * time.Second
}

// Load collects configuration from environment with defaults.
func Load() Config {
	return Config{
		APIBaseURL:         getenv("API_BASE_URL", "http://localhost:8080"),
		PushURL:            getenv("PUSH_URL", "ws://localhost:8080/ws"),
		SessionToken:       getenv("SESSION_TOKEN", ""),
		HTTPAddr:           getenv("HTTP_ADDR", ":7070"),
		ShutdownTimeout:    durenvs("SHUTDOWN_TIMEOUT", 10),
		PushBackoff:        durenvms("PUSH_BACKOFF_MS", 3000),
		PushMaxRetries:     atoienv("PUSH_MAX_RETRIES", 5),
		PushBuffer:         atoienv("PUSH_BUFFER", 64),
		NotifyDismissAfter: durenvms("NOTIFY_DISMISS_MS", 5000),
		APITimeout:         durenvs("API_TIMEOUT", 15),
	}
}
