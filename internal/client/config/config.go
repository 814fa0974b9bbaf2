package config

import (
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/client/session"
)

const (
	TransportHTTP = "http"
	TransportGRPC = "grpc"
)

// Config holds runtime settings of the sessionkeeper client.
//
// ServerEndpointAddr is a base URL or host:port, interpreted by Transport.
// DeviceSecret, when set, seals the stored token at rest.
type Config struct {
	ServerEndpointAddr   string
	Transport            string
	DatabasePath         string
	ValidityWindow       time.Duration
	WarningWindow        time.Duration
	SessionCheckInterval time.Duration
	RequestTimeout       time.Duration
	LogLevel             string
	DeviceSecret         string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "http://127.0.0.1:8080"
	c.Transport = TransportHTTP
	c.DatabasePath = "session.db"
	c.ValidityWindow = session.DefaultValidityWindow
	c.WarningWindow = session.DefaultWarningWindow
	c.SessionCheckInterval = time.Minute
	c.RequestTimeout = 10 * time.Second
	c.LogLevel = "info"
}

// Policy returns the session policy configured by c.
func (c *Config) Policy() session.Policy {
	return session.Policy{ValidityWindow: c.ValidityWindow, WarningWindow: c.WarningWindow}
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
