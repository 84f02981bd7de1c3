package config

import (
	"crypto/ed25519"
	"encoding/hex"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/lmaotrigine/klip/internal/errs"
)

// fileConfig mirrors a klip.toml file. Keys/secrets are hex-encoded text so
// the file stays a plain TOML document.
type fileConfig struct {
	PSK             string `toml:"psk"`
	SignPK          string `toml:"sign_pk"`
	SignSK          string `toml:"sign_sk"`
	EncryptSK       string `toml:"encrypt_sk"`
	EncryptSKID     string `toml:"encrypt_sk_id"`
	Connect         string `toml:"connect"`
	Listen          string `toml:"listen"`
	MaxClients      int    `toml:"max_clients"`
	MaxPayloadLen   uint64 `toml:"max_payload_len"`
	TimeoutSecs     int64  `toml:"timeout_secs"`
	DataTimeoutSecs int64  `toml:"data_timeout_secs"`
	TTLSecs         int64  `toml:"ttl_secs"`
}

// Load reads a klip.toml-formatted file from path and decodes it into a
// Config. It never parses command-line flags and is only ever called from
// cmd/ — see the package doc comment.
func Load(path string) (Config, error) {
	var fc fileConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return Config{}, errs.Wrap(errs.KindConfig, err, "failed to parse "+path)
	}

	var c Config
	var err error

	if fc.PSK != "" {
		if c.PSK, err = decodeFixed32(fc.PSK); err != nil {
			return Config{}, errs.Wrap(errs.KindConfig, err, "psk")
		}
	}
	if fc.SignPK != "" {
		b, err := hex.DecodeString(fc.SignPK)
		if err != nil || len(b) != ed25519.PublicKeySize {
			return Config{}, errs.New(errs.KindConfig, "sign_pk must be 32 hex-encoded bytes")
		}
		c.SignPK = ed25519.PublicKey(b)
	}
	if fc.SignSK != "" {
		b, err := hex.DecodeString(fc.SignSK)
		if err != nil || len(b) != ed25519.PrivateKeySize {
			return Config{}, errs.New(errs.KindConfig, "sign_sk must be 64 hex-encoded bytes")
		}
		c.SignSK = ed25519.PrivateKey(b)
	}
	if fc.EncryptSK != "" {
		if c.EncryptSK, err = decodeFixed32(fc.EncryptSK); err != nil {
			return Config{}, errs.Wrap(errs.KindConfig, err, "encrypt_sk")
		}
	}
	if fc.EncryptSKID != "" {
		b, err := hex.DecodeString(fc.EncryptSKID)
		if err != nil || len(b) != 8 {
			return Config{}, errs.New(errs.KindConfig, "encrypt_sk_id must be 8 hex-encoded bytes")
		}
		copy(c.EncryptSKID[:], b)
		c.HasEncryptSKID = true
	}

	c.Connect = fc.Connect
	c.Listen = fc.Listen
	c.MaxClients = fc.MaxClients
	c.MaxPayloadLen = fc.MaxPayloadLen
	if fc.TimeoutSecs > 0 {
		c.Timeout = time.Duration(fc.TimeoutSecs) * time.Second
	}
	if fc.DataTimeoutSecs > 0 {
		c.DataTimeout = time.Duration(fc.DataTimeoutSecs) * time.Second
	}
	if fc.TTLSecs > 0 {
		c.TTL = time.Duration(fc.TTLSecs) * time.Second
	}
	c.TrustedIPCount = DefaultTrustedIPCount(c.MaxClients)

	return WithDefaults(c), nil
}

func decodeFixed32(s string) ([32]byte, error) {
	var out [32]byte
	b, err := hex.DecodeString(s)
	if err != nil {
		return out, err
	}
	if len(b) != 32 {
		return out, errs.Newf(errs.KindConfig, "expected 32 bytes, got %d", len(b))
	}
	copy(out[:], b)
	return out, nil
}
