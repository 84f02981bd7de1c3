package server

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lmaotrigine/klip/internal/config"
	"github.com/lmaotrigine/klip/internal/errs"
)

func newAdmitTestServer(t *testing.T, maxClients, trustedIPCount int) *Server {
	t.Helper()
	cfg := config.Config{
		PSK:            [32]byte{1},
		SignPK:         make([]byte, 32),
		Listen:         "127.0.0.1:0",
		MaxClients:     maxClients,
		TrustedIPCount: trustedIPCount,
	}
	cfg = config.WithDefaults(cfg)
	srv, err := New(cfg)
	require.NoError(t, err)
	return srv
}

// Mirrors a reserved-capacity scenario: nine untrusted peers fill every
// reserved slot, a peer already in the trusted FIFO is admitted past that
// limit, and a tenth untrusted peer is then rejected.
func TestAdmitReservesSlotsForTrustedIPs(t *testing.T) {
	srv := newAdmitTestServer(t, 10, 1) // reserved = MaxClients - TrustedIPCount = 9

	untrusted := net.ParseIP("10.0.0.1")
	trusted := net.ParseIP("10.0.0.99")

	for i := 0; i < 9; i++ {
		require.NoError(t, srv.admit(untrusted))
	}
	require.Equal(t, 9, srv.Active())

	// The trusted FIFO already knows this address from an earlier
	// connection this session, so it is admitted even though the reserved
	// slots are full.
	srv.trusted.add(trusted)
	require.NoError(t, srv.admit(trusted))
	require.Equal(t, 10, srv.Active())

	// A new untrusted address, with the reserved slots still full, is
	// refused.
	err := srv.admit(untrusted)
	require.Error(t, err)
	kind, ok := errs.Of(err)
	require.True(t, ok)
	require.Equal(t, errs.KindCapacity, kind)
}

// Before any peer has authenticated, the trusted FIFO is empty and
// trusts everyone, so admission is governed purely by the reserved-slot
// count.
func TestAdmitTrustsEveryoneBeforeFirstAuthentication(t *testing.T) {
	srv := newAdmitTestServer(t, 10, 1) // reserved = 9

	for i := 0; i < 9; i++ {
		require.NoError(t, srv.admit(net.ParseIP("192.0.2.1")))
	}

	// The reserved slots are now full and the FIFO is still empty, so a
	// brand new address is trusted on the strength of the empty FIFO.
	require.NoError(t, srv.admit(net.ParseIP("192.0.2.2")))
	require.Equal(t, 10, srv.Active())
}

func TestTrustedFIFOEvictsOldestAtCapacity(t *testing.T) {
	ips := newTrustedIPs(2)
	a := net.ParseIP("198.51.100.1")
	b := net.ParseIP("198.51.100.2")
	c := net.ParseIP("198.51.100.3")

	ips.add(a)
	ips.add(b)
	require.True(t, ips.contains(a))
	require.True(t, ips.contains(b))

	ips.add(c)
	require.False(t, ips.contains(a), "oldest entry must be evicted once the FIFO is full")
	require.True(t, ips.contains(b))
	require.True(t, ips.contains(c))
}
