package server_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lmaotrigine/klip/internal/client"
	"github.com/lmaotrigine/klip/internal/config"
	"github.com/lmaotrigine/klip/internal/crypto"
	"github.com/lmaotrigine/klip/internal/errs"
	"github.com/lmaotrigine/klip/internal/keygen"
	"github.com/lmaotrigine/klip/internal/server"
)

// harness starts a real server on a loopback port and returns a client
// config that will talk to it, and a cleanup func.
type harness struct {
	clientCfg config.Config
	serverCfg config.Config
	cancel    context.CancelFunc
}

func newHarness(t *testing.T, mutate func(*config.Config, *config.Config)) *harness {
	t.Helper()

	mat, err := keygen.Generate(crypto.Default)
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	serverCfg := config.WithDefaults(config.Config{
		PSK:           mat.PSK,
		SignPK:        mat.SignPK,
		Listen:        ln.Addr().String(),
		MaxClients:    10,
		MaxPayloadLen: 0,
	})
	clientCfg := config.WithDefaults(config.Config{
		PSK:       mat.PSK,
		SignPK:    mat.SignPK,
		SignSK:    mat.SignSK,
		EncryptSK: mat.EncryptSK,
		Connect:   ln.Addr().String(),
		TTL:       24 * time.Hour,
	})

	if mutate != nil {
		mutate(&clientCfg, &serverCfg)
	}

	srv, err := server.New(serverCfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go srv.Serve(ctx, ln)
	t.Cleanup(cancel)

	return &harness{clientCfg: clientCfg, serverCfg: serverCfg, cancel: cancel}
}

func TestStoreThenGetLeavesClipInPlace(t *testing.T) {
	h := newHarness(t, nil)

	c, err := client.New(h.clientCfg)
	require.NoError(t, err)

	require.NoError(t, c.Store([]byte("hello, clipboard")))

	got, err := c.Get()
	require.NoError(t, err)
	require.Equal(t, []byte("hello, clipboard"), got)

	// Get must not clear the slot.
	again, err := c.Get()
	require.NoError(t, err)
	require.Equal(t, []byte("hello, clipboard"), again)
}

func TestStoreThenMoveClearsTheSlot(t *testing.T) {
	h := newHarness(t, nil)
	c, err := client.New(h.clientCfg)
	require.NoError(t, err)

	require.NoError(t, c.Store([]byte("one-time clip")))

	got, err := c.Move()
	require.NoError(t, err)
	require.Equal(t, []byte("one-time clip"), got)

	_, err = c.Get()
	require.Error(t, err)
	kind, ok := errs.Of(err)
	require.True(t, ok)
	require.Equal(t, errs.KindEmpty, kind)
}

func TestGetOnEmptyStoreReportsEmpty(t *testing.T) {
	h := newHarness(t, nil)
	c, err := client.New(h.clientCfg)
	require.NoError(t, err)

	_, err = c.Get()
	require.Error(t, err)
	kind, ok := errs.Of(err)
	require.True(t, ok)
	require.Equal(t, errs.KindEmpty, kind)
}

func TestWrongPSKFailsHandshake(t *testing.T) {
	h := newHarness(t, func(clientCfg, _ *config.Config) {
		clientCfg.PSK[0] ^= 0xFF
	})
	c, err := client.New(h.clientCfg)
	require.NoError(t, err)

	// The server never responds to a failed h0 check -- it just closes the
	// connection, so as not to reveal that the PSK check is what failed.
	// The client observes this as a dropped connection, not a clean auth
	// error.
	_, err = c.Get()
	require.Error(t, err)
}

func TestOversizePayloadRejected(t *testing.T) {
	h := newHarness(t, func(_, serverCfg *config.Config) {
		serverCfg.MaxPayloadLen = 40 // far below the 1056-byte payload of a 1 KiB store
	})
	c, err := client.New(h.clientCfg)
	require.NoError(t, err)

	err = c.Store(make([]byte, 1024))
	require.Error(t, err)
}

func TestClientSideTTLRejectsStaleClip(t *testing.T) {
	h := newHarness(t, func(clientCfg, _ *config.Config) {
		clientCfg.TTL = 1 * time.Second
	})

	storer, err := client.New(h.clientCfg, client.WithClock(func() int64 {
		return time.Now().Add(-1 * time.Hour).Unix()
	}))
	require.NoError(t, err)
	require.NoError(t, storer.Store([]byte("old news")))

	reader, err := client.New(h.clientCfg)
	require.NoError(t, err)
	_, err = reader.Get()
	require.Error(t, err)
	kind, ok := errs.Of(err)
	require.True(t, ok)
	require.Equal(t, errs.KindStale, kind)
}
