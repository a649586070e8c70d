package api

import (
	"time"

	"github.com/painterjd/deuce/internal/bytesize"
)

// APIConfig configures the Deuce HTTP API server.
type APIConfig struct {
	// Host is the listen address.
	// Default: 0.0.0.0 (all interfaces)
	Host string `mapstructure:"host" yaml:"host"`

	// Port is the HTTP port for the API endpoints.
	// Default: 8080
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`

	// ReadTimeout is the maximum duration for reading the entire request,
	// including the body. A zero or negative value means there is no timeout.
	// Default: 10s
	ReadTimeout time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response. A zero or negative value means there is no timeout.
	// Default: 10s
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`

	// IdleTimeout is the maximum amount of time to wait for the next request
	// when keep-alives are enabled. If zero, the value of ReadTimeout is used.
	// Default: 60s
	IdleTimeout time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`

	// MaxReturnedNum caps how many items a single listing response carries.
	// Requests asking for more (or sending no limit) are clamped to this.
	// Default: 80
	MaxReturnedNum int `mapstructure:"max_returned_num" validate:"omitempty,min=1" yaml:"max_returned_num"`

	// MaxBlockSize caps the size of a single block upload. Oversized uploads
	// are refused with 413 before anything is written.
	// Supports human-readable formats: "500KB", "1Mi"
	// Default: 500KB
	MaxBlockSize bytesize.ByteSize `mapstructure:"max_block_size" yaml:"max_block_size"`

	// Auth configures optional bearer-token authentication.
	Auth AuthConfig `mapstructure:"auth" yaml:"auth"`
}

// AuthConfig configures bearer-token verification for the API. When disabled
// the API trusts the X-Project-Id header as-is, which is only appropriate
// behind a gateway that authenticates tenants itself.
type AuthConfig struct {
	// Enabled controls whether bearer tokens are required.
	// Default: false
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Secret is the HMAC signing secret for tokens. Required when Enabled;
	// must be at least 32 characters.
	Secret string `mapstructure:"secret" validate:"required_if=Enabled true" yaml:"secret"`

	// Issuer is the expected "iss" claim. Tokens minted with a different
	// issuer are rejected. Empty disables the issuer check.
	// Default: deuce
	Issuer string `mapstructure:"issuer" yaml:"issuer"`
}

// applyDefaults fills in zero values with sensible defaults.
func (c *APIConfig) applyDefaults() {
	if c.Host == "" {
		c.Host = "0.0.0.0"
	}
	if c.Port <= 0 {
		c.Port = 8080
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 60 * time.Second
	}
	if c.MaxReturnedNum <= 0 {
		c.MaxReturnedNum = 80
	}
	if c.MaxBlockSize == 0 {
		c.MaxBlockSize = 500 * bytesize.KB
	}
	if c.Auth.Issuer == "" {
		c.Auth.Issuer = "deuce"
	}
}
