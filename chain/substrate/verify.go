package substrate

import (
	"crypto/ed25519"
	"fmt"
	"math/big"

	schnorrkel "github.com/ChainSafe/go-schnorrkel/1"
	"github.com/decred/dcrd/dcrec/secp256k1/v2"
)

// Verify checks sig over payload. publicKey is the 32-byte key for sr25519
// and ed25519 and the 33-byte compressed key for ecdsa.
func Verify(ct CryptoType, publicKey, payload, sig []byte) (bool, error) {
	if len(sig) != ct.SignatureLength() {
		return false, fmt.Errorf("%w: %s needs %d bytes, got %d", ErrSignatureLength, ct, ct.SignatureLength(), len(sig))
	}

	switch ct {
	case Sr25519:
		if len(publicKey) != 32 {
			return false, fmt.Errorf("sr25519 public key must be 32 bytes, got %d", len(publicKey))
		}
		var (
			pubBytes [32]byte
			sigBytes [64]byte
			pub      schnorrkel.PublicKey
			s        schnorrkel.Signature
		)
		copy(pubBytes[:], publicKey)
		copy(sigBytes[:], sig)
		if err := pub.Decode(pubBytes); err != nil {
			return false, fmt.Errorf("decode sr25519 public key: %w", err)
		}
		if err := s.Decode(sigBytes); err != nil {
			return false, nil
		}
		return pub.Verify(&s, schnorrkel.NewSigningContext(signingContext, payload))
	case Ed25519:
		if len(publicKey) != ed25519.PublicKeySize {
			return false, fmt.Errorf("ed25519 public key must be 32 bytes, got %d", len(publicKey))
		}
		return ed25519.Verify(publicKey, payload, sig), nil
	case Ecdsa:
		pub, err := secp256k1.ParsePubKey(publicKey)
		if err != nil {
			return false, fmt.Errorf("parse ecdsa public key: %w", err)
		}
		r := new(big.Int).SetBytes(sig[:32])
		s := new(big.Int).SetBytes(sig[32:64])
		return secp256k1.NewSignature(r, s).Verify(Blake2b256(payload), pub), nil
	}
	return false, fmt.Errorf("%w: %d", ErrCryptoType, ct)
}
