// Package client implements the klip client side of the protocol: the
// handshake and the three operations (copy/store, paste/get, paste-and-
// clear/move), plus the client-side TTL check the server deliberately never
// performs.
package client

import (
	"encoding/binary"
	"net"
	"time"

	"github.com/lmaotrigine/klip/internal/config"
	"github.com/lmaotrigine/klip/internal/crypto"
	"github.com/lmaotrigine/klip/internal/errs"
	"github.com/lmaotrigine/klip/internal/netio"
	"github.com/lmaotrigine/klip/internal/proto"
)

// Client holds everything needed to run a single klip operation against a
// server. It is not a persistent connection object: each operation dials
// fresh, as befits a short-lived client process.
type Client struct {
	cfg   config.Config
	suite crypto.Suite
	dial  func(network, addr string) (net.Conn, error)
	now   func() int64
}

// Option configures optional Client behaviour.
type Option func(*Client)

// WithSuite overrides the cryptographic capability set.
func WithSuite(s crypto.Suite) Option {
	return func(c *Client) { c.suite = s }
}

// WithDialer overrides how the client opens its TCP connection — used by
// tests to substitute net.Pipe or a fault-injecting dialer.
func WithDialer(dial func(network, addr string) (net.Conn, error)) Option {
	return func(c *Client) { c.dial = dial }
}

// WithClock overrides the source of the current Unix time, used for the
// store timestamp and the TTL check.
func WithClock(now func() int64) Option {
	return func(c *Client) { c.now = now }
}

// New builds a Client from cfg, which must already satisfy
// cfg.ValidateClient().
func New(cfg config.Config, opts ...Option) (*Client, error) {
	if err := cfg.ValidateClient(); err != nil {
		return nil, err
	}
	c := &Client{
		cfg:   cfg,
		suite: crypto.Default,
		dial:  net.Dial,
		now:   func() int64 { return time.Now().Unix() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// connect dials the server and runs the handshake, returning the stream and
// h1, the tag every subsequent message binds to.
func (c *Client) connect() (*netio.Stream, [proto.TagSize]byte, error) {
	var h1 [proto.TagSize]byte

	conn, err := c.dial("tcp", c.cfg.Connect)
	if err != nil {
		return nil, h1, errs.Wrap(errs.KindIO, err, "dial")
	}
	st := netio.New(conn)

	if err := st.SetTimeout(c.cfg.Timeout); err != nil {
		st.Close()
		return nil, h1, err
	}

	var r [proto.RSize]byte
	if err := c.suite.Random(r[:]); err != nil {
		st.Close()
		return nil, h1, err
	}
	h0 := proto.H0(c.suite, c.cfg.PSK, proto.Version, r)

	var hello [proto.ClientHelloSize]byte
	hello[0] = proto.Version
	copy(hello[1:1+proto.RSize], r[:])
	copy(hello[1+proto.RSize:], h0[:])
	if err := st.WriteAll(hello[:]); err != nil {
		st.Close()
		return nil, h1, err
	}
	if err := st.Flush(); err != nil {
		st.Close()
		return nil, h1, err
	}

	var resp [proto.ServerHelloSize]byte
	if err := st.ReadExact(resp[:]); err != nil {
		st.Close()
		return nil, h1, err
	}
	serverVersion := resp[0]
	var r2 [proto.RSize]byte
	copy(r2[:], resp[1:1+proto.RSize])
	var gotH1 [proto.TagSize]byte
	copy(gotH1[:], resp[1+proto.RSize:])

	if serverVersion != proto.Version {
		st.Close()
		return nil, h1, errs.Newf(errs.KindProtocolMismatch, "server speaks version %d, client speaks %d", serverVersion, proto.Version)
	}

	h1 = proto.H1(c.suite, c.cfg.PSK, proto.Version, h0, r2)
	if !c.suite.ConstantTimeEqual(h1[:], gotH1[:]) {
		st.Close()
		return nil, h1, errs.New(errs.KindAuth, "")
	}
	return st, h1, nil
}

// Get fetches the current clip without clearing it. It returns
// (nil, errs.KindEmpty) when the slot is empty.
func (c *Client) Get() ([]byte, error) {
	return c.getOrMove(proto.OpGet)
}

// Move fetches the current clip and clears the slot, so no later Get or
// Move sees that clip.
func (c *Client) Move() ([]byte, error) {
	return c.getOrMove(proto.OpMove)
}

func (c *Client) getOrMove(op proto.Opcode) ([]byte, error) {
	st, h1, err := c.connect()
	if err != nil {
		return nil, err
	}
	defer st.Close()

	h2 := proto.H2Get(c.suite, c.cfg.PSK, h1, op)

	if err := st.SetTimeout(c.cfg.Timeout); err != nil {
		return nil, err
	}
	var req [proto.GetRequestSize]byte
	req[0] = byte(op)
	copy(req[1:], h2[:])
	if err := st.WriteAll(req[:]); err != nil {
		return nil, err
	}
	if err := st.Flush(); err != nil {
		return nil, err
	}

	if err := st.SetTimeout(c.cfg.DataTimeout); err != nil {
		return nil, err
	}
	var header [proto.GetResponseHeaderSize]byte
	if err := st.ReadExact(header[:]); err != nil {
		return nil, err
	}
	var h3 [proto.TagSize]byte
	copy(h3[:], header[:proto.TagSize])
	payloadLen := binary.LittleEndian.Uint64(header[proto.TagSize:])

	if payloadLen == 0 {
		// Server's empty-clip convention: ts folded in as zero, signature
		// folded in as the empty slice, never 64 zero bytes. A reader
		// porting this against another implementation MUST match this
		// exactly, or every empty-clip response will fail this check.
		want := proto.H3Get(c.suite, c.cfg.PSK, h2, 0, nil)
		if !c.suite.ConstantTimeEqual(want[:], h3[:]) {
			return nil, errs.New(errs.KindAuth, "")
		}
		return nil, errs.New(errs.KindEmpty, "")
	}

	var body [proto.GetResponseBodyHeaderSize]byte
	if err := st.ReadExact(body[:]); err != nil {
		return nil, err
	}
	ts := binary.LittleEndian.Uint64(body[:8])
	var sig [proto.SignatureSize]byte
	copy(sig[:], body[8:])

	raw := make([]byte, payloadLen)
	if err := st.ReadExact(raw); err != nil {
		return nil, err
	}

	want := proto.H3Get(c.suite, c.cfg.PSK, h2, ts, sig[:])
	if !c.suite.ConstantTimeEqual(want[:], h3[:]) {
		return nil, errs.New(errs.KindAuth, "")
	}

	if age := c.now() - int64(ts); age >= int64(c.cfg.TTL/time.Second) {
		return nil, errs.Newf(errs.KindStale, "clip is %ds old, ttl is %s", age, c.cfg.TTL)
	}

	return proto.Open(c.suite, c.cfg.SignPK, c.cfg.EncryptSK, c.cfg.ResolvedEncryptSKID(c.suite), raw, sig)
}

// Store encrypts, signs, and uploads plaintext, replacing whatever clip was
// previously stored.
func (c *Client) Store(plaintext []byte) error {
	st, h1, err := c.connect()
	if err != nil {
		return err
	}
	defer st.Close()

	skid := c.cfg.ResolvedEncryptSKID(c.suite)
	payload, sig, err := proto.Seal(c.suite, c.cfg.EncryptSK, skid, c.cfg.SignSK, plaintext)
	if err != nil {
		return err
	}
	raw := payload.Bytes()
	ts := uint64(c.now())

	h2 := proto.H2Store(c.suite, c.cfg.PSK, h1, ts, sig)

	if err := st.SetTimeout(c.cfg.Timeout); err != nil {
		return err
	}
	header := make([]byte, 1+proto.StoreRequestHeaderSize)
	header[0] = byte(proto.OpStore)
	off := 1
	copy(header[off:off+proto.TagSize], h2[:])
	off += proto.TagSize
	binary.LittleEndian.PutUint64(header[off:off+8], uint64(len(raw)))
	off += 8
	binary.LittleEndian.PutUint64(header[off:off+8], ts)
	off += 8
	copy(header[off:], sig[:])
	if err := st.WriteAll(header); err != nil {
		return err
	}
	if err := st.Flush(); err != nil {
		return err
	}

	if err := st.SetTimeout(c.cfg.DataTimeout); err != nil {
		return err
	}
	if err := st.WriteAll(raw); err != nil {
		return err
	}
	if err := st.Flush(); err != nil {
		return err
	}

	var h3 [proto.TagSize]byte
	if err := st.ReadExact(h3[:]); err != nil {
		return err
	}
	want := proto.H3Store(c.suite, c.cfg.PSK, h2)
	if !c.suite.ConstantTimeEqual(want[:], h3[:]) {
		return errs.New(errs.KindAuth, "")
	}
	return nil
}
