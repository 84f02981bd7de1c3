package crypto

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMACDeterministicAndSaltSeparated(t *testing.T) {
	var psk [32]byte
	copy(psk[:], []byte("a shared pre-shared key, 32b!!!"))

	a := Default.MAC(psk, 0, []byte("hello"), []byte("world"))
	b := Default.MAC(psk, 0, []byte("hello"), []byte("world"))
	assert.Equal(t, a, b, "MAC must be deterministic for identical inputs")

	c := Default.MAC(psk, 1, []byte("hello"), []byte("world"))
	assert.NotEqual(t, a, c, "differing salt must change the tag")

	d := Default.MAC(psk, 0, []byte("hellox"), []byte("world"))
	assert.NotEqual(t, a, d, "differing input must change the tag")
}

func TestMACKeyed(t *testing.T) {
	var psk1, psk2 [32]byte
	psk1[0] = 1
	psk2[0] = 2

	a := Default.MAC(psk1, 0, []byte("msg"))
	b := Default.MAC(psk2, 0, []byte("msg"))
	assert.NotEqual(t, a, b, "differing keys must produce differing tags")
}

func TestKeyIDDeterministic(t *testing.T) {
	var sk1, sk2 [32]byte
	sk1[0] = 0xAA
	sk2[0] = 0xBB

	id1 := Default.KeyID(sk1)
	id2 := Default.KeyID(sk1)
	assert.Equal(t, id1, id2)

	id3 := Default.KeyID(sk2)
	assert.NotEqual(t, id1, id3)
}

func TestStreamRoundTrip(t *testing.T) {
	var key [32]byte
	var nonce [24]byte
	require.NoError(t, Default.Random(key[:]))
	require.NoError(t, Default.Random(nonce[:]))

	plaintext := []byte("the quick brown fox jumps over the lazy dog")

	enc, err := Default.Stream(key, nonce)
	require.NoError(t, err)
	ciphertext := make([]byte, len(plaintext))
	enc.XORKeyStream(ciphertext, plaintext)
	assert.NotEqual(t, plaintext, ciphertext)

	dec, err := Default.Stream(key, nonce)
	require.NoError(t, err)
	roundtripped := make([]byte, len(ciphertext))
	dec.XORKeyStream(roundtripped, ciphertext)
	assert.Equal(t, plaintext, roundtripped)
}

func TestSignVerifyRoundTrip(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	msg := []byte("store this clip")
	sig := Default.Sign(priv, msg)
	assert.True(t, Default.Verify(pub, msg, sig))
}

func TestVerifyRejectsTamperedMessage(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	msg := []byte("store this clip")
	sig := Default.Sign(priv, msg)
	assert.False(t, Default.Verify(pub, []byte("store a different clip"), sig))
}

func TestVerifyRejectsTamperedSignature(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	msg := []byte("store this clip")
	sig := Default.Sign(priv, msg)
	sig[0] ^= 0xFF
	assert.False(t, Default.Verify(pub, msg, sig))
}

func TestVerifyRejectsMalformedKeyOrSig(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	msg := []byte("msg")
	sig := Default.Sign(priv, msg)

	assert.False(t, Default.Verify(pub[:len(pub)-1], msg, sig), "short pubkey")
	assert.False(t, Default.Verify(pub, msg, sig[:len(sig)-1]), "short signature")

	var zeroPub [ed25519.PublicKeySize]byte
	assert.False(t, Default.Verify(zeroPub[:], msg, sig), "all-zero pubkey decodes to a small-order point and must be rejected")
}

func TestConstantTimeEqual(t *testing.T) {
	a := []byte{1, 2, 3}
	b := []byte{1, 2, 3}
	c := []byte{1, 2, 4}

	assert.True(t, Default.ConstantTimeEqual(a, b))
	assert.False(t, Default.ConstantTimeEqual(a, c))
	assert.False(t, Default.ConstantTimeEqual(a, []byte{1, 2}), "differing lengths must compare unequal, not panic")
}
