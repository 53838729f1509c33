package afip

import "time"

// Config is passed explicitly into every client constructor. There is no
// ambient configuration lookup anywhere in this module.
type Config struct {
	Environment Environment
	Cuit        string

	// Single-tenant certificate pair. A per-CUIT directory under
	// CertBasePath takes precedence when it exists, see cert.Store.
	CertPath     string
	KeyPath      string
	Passphrase   string
	CertBasePath string

	// Endpoint overrides, mostly for tests. Empty means the
	// Environment default.
	WsaaURL string
	WsfeURL string

	Timeout     time.Duration // per-call connection timeout
	MaxAttempts int           // transport retry budget
	Backoff     time.Duration // base backoff, doubled per attempt

	TokenCacheEnabled bool
	TokenTTL          time.Duration
	TokenSafetyMargin time.Duration

	ParamCacheEnabled bool
	ParamTTL          time.Duration

	CachePrefix string
}

// DefaultConfig mirrors the documented service defaults: 30s timeout,
// 3 attempts with 1s base backoff, 12h token TTL with a 5 minute safety
// margin, 6h parameter TTL.
func DefaultConfig(env Environment, cuit string) Config {
	return Config{
		Environment:       env,
		Cuit:              cuit,
		Timeout:           30 * time.Second,
		MaxAttempts:       3,
		Backoff:           time.Second,
		TokenCacheEnabled: true,
		TokenTTL:          12 * time.Hour,
		TokenSafetyMargin: 5 * time.Minute,
		ParamCacheEnabled: true,
		ParamTTL:          6 * time.Hour,
		CachePrefix:       "afip_sdk",
	}
}

// Normalized fills zero values with the defaults, keeping everything the
// caller set explicitly.
func (c Config) Normalized() Config {
	d := DefaultConfig(c.Environment, c.Cuit)
	if c.Timeout == 0 {
		c.Timeout = d.Timeout
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.Backoff == 0 {
		c.Backoff = d.Backoff
	}
	if c.TokenTTL == 0 {
		c.TokenTTL = d.TokenTTL
	}
	if c.TokenSafetyMargin == 0 {
		c.TokenSafetyMargin = d.TokenSafetyMargin
	}
	if c.ParamTTL == 0 {
		c.ParamTTL = d.ParamTTL
	}
	if c.CachePrefix == "" {
		c.CachePrefix = d.CachePrefix
	}
	return c
}

// ResolvedWsaaURL returns the override or the environment endpoint.
func (c Config) ResolvedWsaaURL() string {
	if c.WsaaURL != "" {
		return c.WsaaURL
	}
	return c.Environment.WsaaURL()
}

func (c Config) ResolvedWsfeURL() string {
	if c.WsfeURL != "" {
		return c.WsfeURL
	}
	return c.Environment.WsfeURL()
}
