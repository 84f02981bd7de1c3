package proto

import (
	"github.com/lmaotrigine/klip/internal/crypto"
	"github.com/lmaotrigine/klip/internal/errs"
)

func errShort(gotLen int) error {
	return errs.Newf(errs.KindShort, "short ciphertext: got %d bytes, need at least %d", gotLen, MinPayloadLen)
}

func errKeyIDMismatch(got, want [KeyIDSize]byte) error {
	return errs.Newf(errs.KindKeyIDMismatch, "encrypt_sk_id mismatch: configured %x, payload has %x", want, got)
}

func errAuth() error {
	return errs.New(errs.KindAuth, "")
}

// DeriveKeyID derives the 8-byte fingerprint of encryptSK.
func DeriveKeyID(suite crypto.Suite, encryptSK [32]byte) [8]byte {
	return suite.KeyID(encryptSK)
}
