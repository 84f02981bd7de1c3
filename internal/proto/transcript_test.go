package proto

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lmaotrigine/klip/internal/crypto"
)

func testPSK() [32]byte {
	var psk [32]byte
	copy(psk[:], []byte("test pre-shared key material!!!"))
	return psk
}

func TestTranscriptTagsDiffer(t *testing.T) {
	psk := testPSK()
	var r, r2 [RSize]byte
	r[0], r2[0] = 1, 2

	h0 := H0(crypto.Default, psk, Version, r)
	h1 := H1(crypto.Default, psk, Version, h0, r2)
	h2 := H2Get(crypto.Default, psk, h1, OpGet)
	h3 := H3Get(crypto.Default, psk, h2, 0, nil)

	tags := [][32]byte{h0, h1, h2, h3}
	for i := range tags {
		for j := i + 1; j < len(tags); j++ {
			assert.NotEqual(t, tags[i], tags[j], "transcript tags %d and %d collided", i, j)
		}
	}
}

func TestH0ChangesWithClientVersionOrR(t *testing.T) {
	psk := testPSK()
	var r [RSize]byte
	r[0] = 1

	base := H0(crypto.Default, psk, Version, r)
	diffVersion := H0(crypto.Default, psk, Version+1, r)
	assert.NotEqual(t, base, diffVersion)

	var r2 [RSize]byte
	r2[0] = 2
	diffR := H0(crypto.Default, psk, Version, r2)
	assert.NotEqual(t, base, diffR)
}

func TestH2GetDependsOnOpcode(t *testing.T) {
	psk := testPSK()
	var h1 [TagSize]byte
	h1[0] = 0xAB

	get := H2Get(crypto.Default, psk, h1, OpGet)
	move := H2Get(crypto.Default, psk, h1, OpMove)
	assert.NotEqual(t, get, move, "get and move must authenticate distinct requests")
}

func TestH2StoreBindsTimestampAndSignature(t *testing.T) {
	psk := testPSK()
	var h1 [TagSize]byte
	var sig [SignatureSize]byte

	a := H2Store(crypto.Default, psk, h1, 1000, sig)
	b := H2Store(crypto.Default, psk, h1, 1001, sig)
	assert.NotEqual(t, a, b, "differing timestamp must change h2")

	sig[0] = 1
	c := H2Store(crypto.Default, psk, h1, 1000, sig)
	assert.NotEqual(t, a, c, "differing signature must change h2")
}

func TestH3GetEmptyClipConvention(t *testing.T) {
	psk := testPSK()
	var h2 [TagSize]byte

	// The empty-clip tag binds ts=0 and an empty (nil) signature slice, not
	// 64 zero bytes -- these must produce different tags, or a server could
	// be confused into treating a genuine all-zero signature as "empty".
	empty := H3Get(crypto.Default, psk, h2, 0, nil)
	var zeroSig [SignatureSize]byte
	nonEmptyZeroSig := H3Get(crypto.Default, psk, h2, 0, zeroSig[:])
	assert.NotEqual(t, empty, nonEmptyZeroSig)
}
