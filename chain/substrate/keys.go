package substrate

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"

	schnorrkel "github.com/ChainSafe/go-schnorrkel/1"
	"github.com/StirlingMarketingGroup/go-namecase"
	"github.com/decred/dcrd/dcrec/secp256k1/v2"
	"golang.org/x/crypto/blake2b"
)

const (
	ss58Ed25519Prefix   = "Ed25519HDKD"
	ss58Secp256k1Prefix = "Secp256k1HDKD"
)

// devSeed is the seed of the well-known development phrase behind //Alice, //Bob, ...
var devSeed, _ = hex.DecodeString("fac7959dbfe72f052e5a0c3c8d6530f202b02fd8f9f5ca3580ec8deb7797479e")

// DeriveEd25519FromName hard-derives the ed25519 development key for a name.
func DeriveEd25519FromName(name string) (ed25519.PrivateKey, error) {
	chainCode := make([]byte, 32)
	derivePath := []byte{byte(len(name) << 2)}
	derivePath = append(derivePath, []byte(namecase.New().NameCase(name))...)
	_ = copy(chainCode, derivePath)

	hasher, err := blake2b.New256(nil)
	if err != nil {
		return nil, fmt.Errorf("error constructing hasher: %w", err)
	}

	toHash := []byte{byte(len(ss58Ed25519Prefix) << 2)}
	toHash = append(toHash, []byte(ss58Ed25519Prefix)...)
	toHash = append(toHash, devSeed...)
	toHash = append(toHash, chainCode...)

	if _, err := hasher.Write(toHash); err != nil {
		return nil, fmt.Errorf("error writing data to hasher: %w", err)
	}

	return ed25519.NewKeyFromSeed(hasher.Sum(nil)), nil
}

// DeriveSr25519FromName hard-derives an sr25519 mini secret along path,
// e.g. {"Alice"} or {"Alice", "stash"}.
func DeriveSr25519FromName(path []string) (*schnorrkel.MiniSecretKey, error) {
	var miniSecretSeed [32]byte
	_ = copy(miniSecretSeed[:], devSeed[:32])
	miniSecret, err := schnorrkel.NewMiniSecretKeyFromRaw(miniSecretSeed)
	if err != nil {
		return nil, fmt.Errorf("error getting mini secret from seed: %w", err)
	}
	for _, pathItem := range path {
		var chainCode [32]byte
		derivePath := []byte{byte(len(pathItem) << 2)}
		derivePath = append(derivePath, []byte(pathItem)...)
		_ = copy(chainCode[:], derivePath)
		miniSecret, _, err = miniSecret.HardDeriveMiniSecretKey([]byte{}, chainCode)
		if err != nil {
			return nil, fmt.Errorf("error hard deriving mini secret key: %w", err)
		}
	}

	return miniSecret, nil
}

// DeriveSecp256k1FromName hard-derives the ecdsa development key for a name.
func DeriveSecp256k1FromName(name string) (*secp256k1.PrivateKey, error) {
	chainCode := make([]byte, 32)
	derivePath := []byte{byte(len(name) << 2)}
	derivePath = append(derivePath, []byte(namecase.New().NameCase(name))...)
	_ = copy(chainCode, derivePath)

	hasher, err := blake2b.New256(nil)
	if err != nil {
		return nil, fmt.Errorf("error constructing hasher: %w", err)
	}

	toHash := []byte{byte(len(ss58Secp256k1Prefix) << 2)}
	toHash = append(toHash, []byte(ss58Secp256k1Prefix)...)
	toHash = append(toHash, devSeed...)
	toHash = append(toHash, chainCode...)

	if _, err := hasher.Write(toHash); err != nil {
		return nil, fmt.Errorf("error writing data to hasher: %w", err)
	}

	privKey, _ := secp256k1.PrivKeyFromBytes(hasher.Sum(nil))
	return privKey, nil
}
