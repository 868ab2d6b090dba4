package server

import (
	"net/http"
	"net/url"
	"time"
)

// SessionConfig holds configuration for individual sessions.
type SessionConfig struct {
	// Timeouts

	// ReadTimeout is the maximum time to wait for a message from the client.
	// Pongs extend it. Default: 60 seconds.
	ReadTimeout time.Duration

	// WriteTimeout is the maximum time to wait when sending a message.
	// Default: 10 seconds.
	WriteTimeout time.Duration

	// HeartbeatInterval is the time between heartbeat pings.
	// Default: 30 seconds.
	HeartbeatInterval time.Duration

	// Limits

	// MaxMessageSize is the maximum size of an incoming WebSocket message.
	// Default: 64KB.
	MaxMessageSize int64

	// MaxEventQueue is the size of the event and outbound buffers.
	// Default: 256.
	MaxEventQueue int

	// EventRate is the sustained number of client frames per second.
	// Default: 20.
	EventRate float64

	// EventBurst is how many frames may arrive at once.
	// Default: 40.
	EventBurst int
}

// DefaultSessionConfig returns a SessionConfig with sensible defaults.
func DefaultSessionConfig() *SessionConfig {
	return &SessionConfig{
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		HeartbeatInterval: 30 * time.Second,
		MaxMessageSize:    64 * 1024, // 64KB
		MaxEventQueue:     256,
		EventRate:         20,
		EventBurst:        40,
	}
}

// Clone returns a copy of the SessionConfig.
func (c *SessionConfig) Clone() *SessionConfig {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

func (c *SessionConfig) fill() {
	d := DefaultSessionConfig()
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = d.ReadTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = d.HeartbeatInterval
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = d.MaxMessageSize
	}
	if c.MaxEventQueue <= 0 {
		c.MaxEventQueue = d.MaxEventQueue
	}
	if c.EventRate <= 0 {
		c.EventRate = d.EventRate
	}
	if c.EventBurst <= 0 {
		c.EventBurst = d.EventBurst
	}
}

// ServerConfig holds configuration for the HTTP/WebSocket server.
type ServerConfig struct {
	// Address is the address to listen on (e.g., ":8080" or "localhost:3000").
	// Default: ":8080".
	Address string

	// WebSocket buffer sizes

	// ReadBufferSize is the WebSocket read buffer size.
	// Default: 4096.
	ReadBufferSize int

	// WriteBufferSize is the WebSocket write buffer size.
	// Default: 4096.
	WriteBufferSize int

	// CheckOrigin is called to validate the request origin.
	// Default: SameOriginCheck.
	CheckOrigin func(r *http.Request) bool

	// SessionConfig is the configuration for individual sessions.
	// Default: DefaultSessionConfig().
	SessionConfig *SessionConfig

	// Pages

	// MaxPages is how many mounted pages are kept. The least recently
	// used page is closed when the limit is reached.
	// Default: 1000.
	MaxPages int

	// PageTTL is how long a mounted page lives after its last activity.
	// It is also the window in which a dropped WebSocket may reconnect.
	// Default: 30 minutes.
	PageTTL time.Duration

	// Staging

	// MaxUploadSize is the largest file the staging endpoint accepts.
	// Default: 100MB.
	MaxUploadSize int64

	// StagingExpiry is how long staged files live before cleanup.
	// Default: 1 hour.
	StagingExpiry time.Duration

	// PreviewTTL is how long a preview token stays valid.
	// Default: 5 minutes.
	PreviewTTL time.Duration

	// MaxPreviews is how many preview tokens are live at once.
	// Default: 4096.
	MaxPreviews int

	// Outbound requests

	// DeleteTimeout bounds each deletion request.
	// Default: 30 seconds.
	DeleteTimeout time.Duration

	// DeleteRetries is how often a deletion is retried after a connection
	// error. Default: 2.
	DeleteRetries int

	// SubmitTimeout bounds each forwarded form submission.
	// Default: 60 seconds.
	SubmitTimeout time.Duration

	// Server lifecycle

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	// Default: 30 seconds.
	ShutdownTimeout time.Duration

	// ReadHeaderTimeout bounds reading request headers.
	// Default: 10 seconds.
	ReadHeaderTimeout time.Duration

	// IdleTimeout is the keep-alive idle timeout.
	// Default: 120 seconds.
	IdleTimeout time.Duration

	// DevMode disables client script caching.
	DevMode bool
}

// DefaultServerConfig returns a ServerConfig with sensible defaults.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Address:           ":8080",
		ReadBufferSize:    4096,
		WriteBufferSize:   4096,
		CheckOrigin:       SameOriginCheck,
		SessionConfig:     DefaultSessionConfig(),
		MaxPages:          1000,
		PageTTL:           30 * time.Minute,
		MaxUploadSize:     100 << 20,
		StagingExpiry:     time.Hour,
		PreviewTTL:        5 * time.Minute,
		MaxPreviews:       4096,
		DeleteTimeout:     30 * time.Second,
		DeleteRetries:     2,
		SubmitTimeout:     60 * time.Second,
		ShutdownTimeout:   30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

// fill sets every unset field to its default.
func (c *ServerConfig) fill() {
	d := DefaultServerConfig()
	if c.Address == "" {
		c.Address = d.Address
	}
	if c.ReadBufferSize <= 0 {
		c.ReadBufferSize = d.ReadBufferSize
	}
	if c.WriteBufferSize <= 0 {
		c.WriteBufferSize = d.WriteBufferSize
	}
	if c.CheckOrigin == nil {
		c.CheckOrigin = d.CheckOrigin
	}
	if c.SessionConfig == nil {
		c.SessionConfig = d.SessionConfig
	}
	c.SessionConfig.fill()
	if c.MaxPages <= 0 {
		c.MaxPages = d.MaxPages
	}
	if c.PageTTL <= 0 {
		c.PageTTL = d.PageTTL
	}
	if c.MaxUploadSize <= 0 {
		c.MaxUploadSize = d.MaxUploadSize
	}
	if c.StagingExpiry <= 0 {
		c.StagingExpiry = d.StagingExpiry
	}
	if c.PreviewTTL <= 0 {
		c.PreviewTTL = d.PreviewTTL
	}
	if c.MaxPreviews <= 0 {
		c.MaxPreviews = d.MaxPreviews
	}
	if c.DeleteTimeout <= 0 {
		c.DeleteTimeout = d.DeleteTimeout
	}
	if c.DeleteRetries < 0 {
		c.DeleteRetries = 0
	}
	if c.SubmitTimeout <= 0 {
		c.SubmitTimeout = d.SubmitTimeout
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = d.ShutdownTimeout
	}
	if c.ReadHeaderTimeout <= 0 {
		c.ReadHeaderTimeout = d.ReadHeaderTimeout
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = d.IdleTimeout
	}
}

// SameOriginCheck validates that the WebSocket request origin matches the host.
// This is the secure default for CheckOrigin.
func SameOriginCheck(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		// No Origin header (e.g., same-origin request or curl)
		return true
	}

	originURL, err := url.Parse(origin)
	if err != nil {
		return false
	}

	host := r.Host
	if host == "" {
		return false
	}
	return originURL.Host == host
}

// Clone returns a copy of the ServerConfig.
func (c *ServerConfig) Clone() *ServerConfig {
	if c == nil {
		return nil
	}
	clone := *c
	if c.SessionConfig != nil {
		clone.SessionConfig = c.SessionConfig.Clone()
	}
	return &clone
}

// WithAddress sets the server address and returns the config for chaining.
func (c *ServerConfig) WithAddress(addr string) *ServerConfig {
	c.Address = addr
	return c
}

// WithSessionConfig sets the session configuration and returns the config for chaining.
func (c *ServerConfig) WithSessionConfig(sc *SessionConfig) *ServerConfig {
	c.SessionConfig = sc
	return c
}
