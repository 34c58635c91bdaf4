package stubserver

import (
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/kingrea/questify/internal/config"
)

const (
	// DefaultHost is the loopback interface used when no host override is provided.
	DefaultHost = "127.0.0.1"
	// DefaultPort matches the client's default backend URL.
	DefaultPort = 5000
	// DefaultMaxUploadBytes limits uploaded documents to 16 MB.
	DefaultMaxUploadBytes int64 = 16 << 20
	// DefaultReadTimeout guards hung clients.
	DefaultReadTimeout = 30 * time.Second
	// DefaultWriteTimeout bounds handler writes.
	DefaultWriteTimeout = 30 * time.Second
	// DefaultIdleTimeout bounds keep-alive connections.
	DefaultIdleTimeout = 60 * time.Second
)

// Settings captures runtime configuration for the reference backend.
type Settings struct {
	Host           string
	Port           int
	MaxUploadBytes int64
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
}

// SettingsFromConfig builds Settings from the stub section of the config.
func SettingsFromConfig(cfg *config.Config) Settings {
	settings := Settings{
		Host:           DefaultHost,
		Port:           DefaultPort,
		MaxUploadBytes: DefaultMaxUploadBytes,
		ReadTimeout:    DefaultReadTimeout,
		WriteTimeout:   DefaultWriteTimeout,
		IdleTimeout:    DefaultIdleTimeout,
	}
	if cfg != nil {
		raw := cfg.Project.Stub
		if host := strings.TrimSpace(raw.Host); host != "" {
			settings.Host = host
		}
		if isValidPort(raw.Port) {
			settings.Port = raw.Port
		}
		if raw.MaxUploadBytes > 0 {
			settings.MaxUploadBytes = raw.MaxUploadBytes
		}
	}
	settings.normalize()
	return settings
}

func (s *Settings) normalize() {
	if s == nil {
		return
	}
	s.Host = strings.TrimSpace(s.Host)
	if s.Host == "" {
		s.Host = DefaultHost
	}
	if s.Port != 0 && !isValidPort(s.Port) {
		s.Port = DefaultPort
	}
	if s.MaxUploadBytes <= 0 {
		s.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if s.ReadTimeout <= 0 {
		s.ReadTimeout = DefaultReadTimeout
	}
	if s.WriteTimeout <= 0 {
		s.WriteTimeout = DefaultWriteTimeout
	}
	if s.IdleTimeout <= 0 {
		s.IdleTimeout = DefaultIdleTimeout
	}
}

// Address returns the TCP bind address in host:port form. Port 0 asks the
// kernel for a free port.
func (s Settings) Address() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// URL returns the HTTP base URL for the server.
func (s Settings) URL() string {
	return "http://" + s.Address()
}

func isValidPort(port int) bool {
	return port > 0 && port <= 65535
}
