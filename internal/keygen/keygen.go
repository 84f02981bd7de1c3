// Package keygen produces the key material a fresh klip deployment needs:
// a PSK, an Ed25519 signing keypair, and an XChaCha20 encryption key. All
// three are drawn from one 96-byte pool, either straight from the OS
// CSPRNG or, when the operator supplies a passphrase, from scrypt applied
// to it, so the same passphrase always reproduces the same keys.
package keygen

import (
	"crypto/ed25519"

	"golang.org/x/crypto/scrypt"

	"github.com/lmaotrigine/klip/internal/crypto"
	"github.com/lmaotrigine/klip/internal/errs"
)

// poolSize is 32 (psk) + 32 (encrypt_sk) + 32 (ed25519 seed).
const poolSize = 96

// scrypt cost parameters for the deterministic, passphrase-derived path.
const (
	scryptN = 1 << 14
	scryptR = 12
	scryptP = 1
)

// Material is a complete set of klip key material, suitable for splitting
// into a client config, a server config, or both.
type Material struct {
	PSK         [32]byte
	SignPK      ed25519.PublicKey
	SignSK      ed25519.PrivateKey
	EncryptSK   [32]byte
	EncryptSKID [8]byte
}

// Generate draws Material from the OS CSPRNG via suite.Random.
func Generate(suite crypto.Suite) (Material, error) {
	var pool [poolSize]byte
	if err := suite.Random(pool[:]); err != nil {
		return Material{}, err
	}
	return fromPool(suite, pool)
}

// GenerateFromPassphrase derives Material deterministically from
// passphrase via scrypt: the same passphrase always yields the same PSK,
// signing keypair, and encryption key, so an operator can regenerate a lost
// config from memory alone.
func GenerateFromPassphrase(suite crypto.Suite, passphrase []byte) (Material, error) {
	dk, err := scrypt.Key(passphrase, nil, scryptN, scryptR, scryptP, poolSize)
	if err != nil {
		return Material{}, errs.Wrap(errs.KindConfig, err, "scrypt")
	}
	var pool [poolSize]byte
	copy(pool[:], dk)
	return fromPool(suite, pool)
}

func fromPool(suite crypto.Suite, pool [poolSize]byte) (Material, error) {
	var m Material
	copy(m.PSK[:], pool[:32])
	copy(m.EncryptSK[:], pool[32:64])

	sk := ed25519.NewKeyFromSeed(pool[64:96])
	m.SignSK = sk
	m.SignPK = sk.Public().(ed25519.PublicKey)
	m.EncryptSKID = suite.KeyID(m.EncryptSK)
	return m, nil
}
