// Package crypto wraps the primitives the klip protocol treats as a
// capability set: a keyed MAC, a stream cipher, Ed25519 sign/verify, a
// CSPRNG, and constant-time comparison. The protocol core never calls a
// primitive library directly — it calls a Suite — so a test can
// substitute a fault-injecting or deterministic Suite without touching
// session logic.
package crypto

import (
	"crypto/cipher"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"

	"filippo.io/edwards25519"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/chacha20"
)

// domain is the personalization string separating klip's MAC from any other
// use of keyed BLAKE2b with the same key. golang.org/x/crypto/blake2b does
// not expose BLAKE2b's native salt/personalization parameter block through
// its public API (only the key), so domain separation is achieved by
// folding the domain string and salt byte into the hashed input instead of
// into BLAKE2b's parameter block: two calls only produce equal tags when
// every one of (key, salt, domain, parts) match.
const domain = "KLIP"

// Suite is the capability set the protocol core is built on.
type Suite interface {
	// MAC computes a 32-byte keyed BLAKE2b(key=psk) over
	// salt ‖ domain ‖ concat(parts). The salt and domain are part of the
	// hashed input; BLAKE2b's salt and personalization parameters are not
	// used, so tags differ from a parameter-block construction.
	MAC(psk [32]byte, salt byte, parts ...[]byte) [32]byte

	// KeyID derives an 8-byte fingerprint of an XChaCha20 key, computed as
	// unkeyed BLAKE2b with an 8-byte output over domain ‖ encryptSK. As with
	// MAC, the domain is hashed as input, not set as the personalization
	// parameter.
	KeyID(encryptSK [32]byte) [8]byte

	// Stream returns a fresh XChaCha20 keystream cipher for key/nonce.
	Stream(key [32]byte, nonce [24]byte) (cipher.Stream, error)

	// Sign produces a 64-byte detached Ed25519 signature.
	Sign(sk ed25519.PrivateKey, msg []byte) []byte

	// Verify performs strict Ed25519 verification: it rejects signatures
	// from small-order (torsion) points and non-canonical scalar
	// encodings, in addition to the usual signature equation.
	Verify(pk ed25519.PublicKey, msg, sig []byte) bool

	// Random fills buf with CSPRNG output.
	Random(buf []byte) error

	// ConstantTimeEqual reports whether a and b are equal, in time
	// independent of where they first differ. Inputs of differing lengths
	// are reported unequal at once; only the comparison of equal-length
	// inputs is constant-time.
	ConstantTimeEqual(a, b []byte) bool
}

// Default is the production Suite: BLAKE2b, XChaCha20, Ed25519 with strict
// verification, crypto/rand, and crypto/subtle.
var Default Suite = defaultSuite{}

type defaultSuite struct{}

func (defaultSuite) MAC(psk [32]byte, salt byte, parts ...[]byte) [32]byte {
	h, err := blake2b.New(32, psk[:])
	if err != nil {
		// New(32, key) only fails for an out-of-range size or an
		// over-long key; both are compile-time invariants here.
		panic(err)
	}
	h.Write([]byte{salt})
	h.Write([]byte(domain))
	for _, p := range parts {
		h.Write(p)
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

func (defaultSuite) KeyID(encryptSK [32]byte) [8]byte {
	h, err := blake2b.New(8, nil)
	if err != nil {
		panic(err)
	}
	h.Write([]byte(domain))
	h.Write(encryptSK[:])
	var out [8]byte
	copy(out[:], h.Sum(nil))
	return out
}

func (defaultSuite) Stream(key [32]byte, nonce [24]byte) (cipher.Stream, error) {
	return chacha20.NewUnauthenticatedCipher(key[:], nonce[:])
}

func (defaultSuite) Sign(sk ed25519.PrivateKey, msg []byte) []byte {
	return ed25519.Sign(sk, msg)
}

func (defaultSuite) Verify(pk ed25519.PublicKey, msg, sig []byte) bool {
	return verifyStrict(pk, msg, sig)
}

func (defaultSuite) Random(buf []byte) error {
	_, err := rand.Read(buf)
	return err
}

func (defaultSuite) ConstantTimeEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare(a, b) == 1
}

// verifyStrict reimplements Ed25519 verification directly against
// filippo.io/edwards25519's point and scalar arithmetic rather than
// crypto/ed25519.Verify, because crypto/ed25519 does not reject small-order
// (torsion) points — it only rejects non-canonical scalar and point
// encodings, and this Suite needs to reject both.
func verifyStrict(pk ed25519.PublicKey, msg, sig []byte) bool {
	if len(pk) != ed25519.PublicKeySize || len(sig) != ed25519.SignatureSize {
		return false
	}

	A, err := new(edwards25519.Point).SetBytes(pk)
	if err != nil {
		return false
	}
	if isSmallOrder(A) {
		return false
	}

	R, err := new(edwards25519.Point).SetBytes(sig[:32])
	if err != nil {
		return false
	}
	if isSmallOrder(R) {
		return false
	}

	s, err := new(edwards25519.Scalar).SetCanonicalBytes(sig[32:64])
	if err != nil {
		return false
	}

	h := sha512.New()
	h.Write(sig[:32])
	h.Write(pk)
	h.Write(msg)
	digest := h.Sum(nil)

	k, err := new(edwards25519.Scalar).SetUniformBytes(digest)
	if err != nil {
		// SetUniformBytes only fails on a wrong-length input; sha512
		// always produces 64 bytes.
		panic(err)
	}

	var sB, kA, rhs edwards25519.Point
	sB.ScalarBaseMult(s)
	kA.ScalarMult(k, A)
	rhs.Add(R, &kA)

	return subtleEqualPoints(&sB, &rhs)
}

func isSmallOrder(p *edwards25519.Point) bool {
	var cofactor edwards25519.Point
	cofactor.MultByCofactor(p)
	return cofactor.Equal(edwards25519.NewIdentityPoint()) == 1
}

func subtleEqualPoints(a, b *edwards25519.Point) bool {
	return subtle.ConstantTimeCompare(a.Bytes(), b.Bytes()) == 1
}
