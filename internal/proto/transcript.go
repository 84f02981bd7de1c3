package proto

import (
	"encoding/binary"

	"github.com/lmaotrigine/klip/internal/crypto"
)

// Transcript tags h0..h3. Each tag folds in everything exchanged so far,
// so a single mismatch anywhere in a session is caught at the next tag
// check; salts domain-separate the four message types under one shared
// PSK.
const (
	saltH0    byte = 0
	saltH1    byte = 1
	saltH2    byte = 2
	saltH3Get byte = 3
	// h3S reuses the same salt as h3G: its inputs (just h2) are already
	// distinguished from h3G's (h2, ts, signature) by length, and both are
	// only ever compared against a tag computed with the same inputs by the
	// same peer role, so no ambiguity arises.
	saltH3Store byte = 3
)

// H0 is the client's opening proof of PSK knowledge.
func H0(suite crypto.Suite, psk [32]byte, clientVersion byte, r [32]byte) [32]byte {
	return suite.MAC(psk, saltH0, []byte{clientVersion}, r[:])
}

// H1 is the server's response, binding h0 and proving it also knows the PSK.
func H1(suite crypto.Suite, psk [32]byte, clientVersion byte, h0 [32]byte, r2 [32]byte) [32]byte {
	return suite.MAC(psk, saltH1, []byte{clientVersion}, r2[:], h0[:])
}

// H2Get authenticates a get/move request.
func H2Get(suite crypto.Suite, psk [32]byte, h1 [32]byte, opcode Opcode) [32]byte {
	return suite.MAC(psk, saltH2, h1[:], []byte{byte(opcode)})
}

// H2Store authenticates a store request, additionally binding the
// timestamp and signature the client is about to upload.
func H2Store(suite crypto.Suite, psk [32]byte, h1 [32]byte, ts uint64, sig [64]byte) [32]byte {
	return suite.MAC(psk, saltH2, h1[:], []byte{byte(OpStore)}, leUint64(ts), sig[:])
}

// H3Get authenticates a get/move response. For an empty clip, ts is zero
// and sig is the empty byte slice, not 64 zero bytes; callers pass sig =
// nil in that case.
func H3Get(suite crypto.Suite, psk [32]byte, h2 [32]byte, ts uint64, sig []byte) [32]byte {
	return suite.MAC(psk, saltH3Get, h2[:], leUint64(ts), sig)
}

// H3Store authenticates a store response.
func H3Store(suite crypto.Suite, psk [32]byte, h2 [32]byte) [32]byte {
	return suite.MAC(psk, saltH3Store, h2[:])
}

func leUint64(v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return b[:]
}
