// Package config defines the typed configuration the protocol core
// consumes. It intentionally contains no flag parsing and no file format
// knowledge beyond the optional TOML loader in toml.go, which only the
// cmd/ binaries call — the core itself never reads a file or a flag.
package config

import (
	"crypto/ed25519"
	"net"
	"time"

	"github.com/lmaotrigine/klip/internal/crypto"
	"github.com/lmaotrigine/klip/internal/errs"
)

// Default values.
const (
	DefaultListen        = "0.0.0.0:8075"
	DefaultConnect       = "127.0.0.1:8075"
	DefaultMaxClients    = 10
	DefaultTimeout       = 5 * time.Second
	DefaultDataTimeout   = time.Hour
	DefaultTTL           = 7 * 24 * time.Hour
	DefaultMaxPayloadLen = 0 // unlimited
)

// Config is the full set of options recognized by the client and the
// server; each holds only the fields relevant to its role.
type Config struct {
	// Shared
	PSK    [32]byte
	SignPK ed25519.PublicKey

	// Client-only
	SignSK         ed25519.PrivateKey
	EncryptSK      [32]byte
	EncryptSKID    [8]byte
	HasEncryptSKID bool // if false, EncryptSKID is derived from EncryptSK
	Connect        string
	TTL            time.Duration

	// Server-only
	Listen         string
	MaxClients     int
	MaxPayloadLen  uint64
	TrustedIPCount int

	// Shared timeouts
	Timeout     time.Duration
	DataTimeout time.Duration
}

// ResolvedEncryptSKID returns the configured key id, deriving it from
// EncryptSK via suite if the caller never set one explicitly.
func (c *Config) ResolvedEncryptSKID(suite crypto.Suite) [8]byte {
	if c.HasEncryptSKID {
		return c.EncryptSKID
	}
	return suite.KeyID(c.EncryptSK)
}

// DefaultTrustedIPCount returns the largest valid trusted-IP reservation
// for a given client cap: N/10, but at least 1 when N >= 1.
func DefaultTrustedIPCount(maxClients int) int {
	if maxClients <= 0 {
		return 0
	}
	t := maxClients / 10
	if t < 1 {
		t = 1
	}
	return t
}

// ValidateServer checks the fields a server needs.
func (c *Config) ValidateServer() error {
	if c.PSK == ([32]byte{}) {
		return errs.New(errs.KindConfig, "psk must be set")
	}
	if len(c.SignPK) != ed25519.PublicKeySize {
		return errs.New(errs.KindConfig, "sign_pk must be a 32-byte Ed25519 public key")
	}
	if c.MaxClients <= 0 {
		return errs.New(errs.KindConfig, "max_clients must be positive")
	}
	maxTrusted := c.MaxClients / 10
	if maxTrusted < 1 {
		maxTrusted = 1
	}
	if c.TrustedIPCount < 1 || c.TrustedIPCount > maxTrusted {
		return errs.Newf(errs.KindConfig, "trusted_ip_count must satisfy 1 <= T <= max(max_clients/10, 1) (got %d for max_clients=%d)", c.TrustedIPCount, c.MaxClients)
	}
	if c.Timeout <= 0 || c.DataTimeout <= 0 {
		return errs.New(errs.KindConfig, "timeout and data_timeout must be positive")
	}
	if c.Listen == "" {
		return errs.New(errs.KindConfig, "listen must be set")
	}
	if _, _, err := net.SplitHostPort(c.Listen); err != nil {
		return errs.Wrap(errs.KindConfig, err, "invalid listen address")
	}
	return nil
}

// ValidateClient checks the fields a client needs.
func (c *Config) ValidateClient() error {
	if c.PSK == ([32]byte{}) {
		return errs.New(errs.KindConfig, "psk must be set")
	}
	if len(c.SignPK) != ed25519.PublicKeySize {
		return errs.New(errs.KindConfig, "sign_pk must be a 32-byte Ed25519 public key")
	}
	if len(c.SignSK) != ed25519.PrivateKeySize {
		return errs.New(errs.KindConfig, "sign_sk must be a 64-byte Ed25519 private key")
	}
	if c.EncryptSK == ([32]byte{}) {
		return errs.New(errs.KindConfig, "encrypt_sk must be set")
	}
	if c.Connect == "" {
		return errs.New(errs.KindConfig, "connect must be set")
	}
	if c.TTL <= 0 {
		return errs.New(errs.KindConfig, "ttl must be positive")
	}
	if c.Timeout <= 0 || c.DataTimeout <= 0 {
		return errs.New(errs.KindConfig, "timeout and data_timeout must be positive")
	}
	return nil
}

// WithDefaults returns a copy of c with zero-valued optional fields filled
// in from the package defaults.
func WithDefaults(c Config) Config {
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.Connect == "" {
		c.Connect = DefaultConnect
	}
	if c.MaxClients == 0 {
		c.MaxClients = DefaultMaxClients
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.DataTimeout == 0 {
		c.DataTimeout = DefaultDataTimeout
	}
	if c.TTL == 0 {
		c.TTL = DefaultTTL
	}
	if c.TrustedIPCount == 0 {
		c.TrustedIPCount = DefaultTrustedIPCount(c.MaxClients)
	}
	return c
}
