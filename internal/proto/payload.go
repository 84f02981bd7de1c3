package proto

import (
	"crypto/ed25519"

	"github.com/lmaotrigine/klip/internal/crypto"
)

// Payload is a parsed clip body: key_id(8) ‖ nonce(24) ‖ ciphertext(>=0).
type Payload struct {
	KeyID      [KeyIDSize]byte
	Nonce      [NonceSize]byte
	Ciphertext []byte
}

// Bytes re-serializes the payload to its wire framing.
func (p Payload) Bytes() []byte {
	out := make([]byte, MinPayloadLen+len(p.Ciphertext))
	copy(out[:KeyIDSize], p.KeyID[:])
	copy(out[KeyIDSize:MinPayloadLen], p.Nonce[:])
	copy(out[MinPayloadLen:], p.Ciphertext)
	return out
}

// ParsePayload splits a raw payload into its framed fields. It only checks
// the length floor (a non-empty payload is always at least 32 bytes); it
// does not verify the signature or decrypt.
func ParsePayload(raw []byte) (Payload, error) {
	if len(raw) < MinPayloadLen {
		return Payload{}, errShort(len(raw))
	}
	var p Payload
	copy(p.KeyID[:], raw[:KeyIDSize])
	copy(p.Nonce[:], raw[KeyIDSize:MinPayloadLen])
	p.Ciphertext = append([]byte(nil), raw[MinPayloadLen:]...)
	return p, nil
}

// Seal builds a fresh, signed payload for a store operation: it frames the
// given key id, draws a random nonce, encrypts plaintext into a new buffer,
// and signs the whole framed record.
func Seal(suite crypto.Suite, encryptSK [32]byte, encryptSKID [8]byte, signSK ed25519.PrivateKey, plaintext []byte) (Payload, [SignatureSize]byte, error) {
	var nonce [NonceSize]byte
	if err := suite.Random(nonce[:]); err != nil {
		return Payload{}, [SignatureSize]byte{}, err
	}

	ciphertext := make([]byte, len(plaintext))
	stream, err := suite.Stream(encryptSK, nonce)
	if err != nil {
		return Payload{}, [SignatureSize]byte{}, err
	}
	stream.XORKeyStream(ciphertext, plaintext)

	p := Payload{KeyID: encryptSKID, Nonce: nonce, Ciphertext: ciphertext}
	sig := suite.Sign(signSK, p.Bytes())

	var sigArr [SignatureSize]byte
	copy(sigArr[:], sig)
	return p, sigArr, nil
}

// Open verifies and decrypts a payload read back from the store: it checks
// the key-id binding in constant time, then the signature over the whole
// framed record, and decrypts the ciphertext. It does not perform the TTL
// check; that is the caller's responsibility since it needs the caller's
// clock.
func Open(suite crypto.Suite, signPK ed25519.PublicKey, encryptSK [32]byte, encryptSKID [8]byte, raw []byte, sig [SignatureSize]byte) ([]byte, error) {
	p, err := ParsePayload(raw)
	if err != nil {
		return nil, err
	}

	if !suite.ConstantTimeEqual(p.KeyID[:], encryptSKID[:]) {
		return nil, errKeyIDMismatch(p.KeyID, encryptSKID)
	}

	if !suite.Verify(signPK, raw, sig[:]) {
		return nil, errAuth()
	}

	plaintext := make([]byte, len(p.Ciphertext))
	stream, err := suite.Stream(encryptSK, p.Nonce)
	if err != nil {
		return nil, err
	}
	stream.XORKeyStream(plaintext, p.Ciphertext)
	return plaintext, nil
}
