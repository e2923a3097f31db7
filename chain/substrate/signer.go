package substrate

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"

	schnorrkel "github.com/ChainSafe/go-schnorrkel/1"
	"github.com/StirlingMarketingGroup/go-namecase"
	"github.com/cosmos/go-bip39"
	"github.com/decred/dcrd/dcrec/secp256k1/v2"
	"github.com/vedhavyas/go-subkey"
	subed25519 "github.com/vedhavyas/go-subkey/ed25519"
	subsr25519 "github.com/vedhavyas/go-subkey/sr25519"
)

// signingContext is the schnorrkel context substrate signs under.
var signingContext = []byte("substrate")

var (
	ErrCryptoType      = errors.New("unknown crypto type")
	ErrInvalidMnemonic = errors.New("invalid mnemonic")
)

// CryptoType is the signature scheme of an account. Its value is the
// MultiSignature variant index.
type CryptoType uint8

const (
	Ed25519 CryptoType = iota
	Sr25519
	Ecdsa
)

func (c CryptoType) String() string {
	switch c {
	case Ed25519:
		return "ed25519"
	case Sr25519:
		return "sr25519"
	case Ecdsa:
		return "ecdsa"
	}
	return fmt.Sprintf("crypto(%d)", uint8(c))
}

// SignatureLength is the raw signature size of the scheme.
func (c CryptoType) SignatureLength() int {
	if c == Ecdsa {
		return 65
	}
	return 64
}

// ParseCryptoType parses "sr25519", "ed25519" or "ecdsa".
func ParseCryptoType(s string) (CryptoType, error) {
	switch strings.ToLower(s) {
	case "sr25519", "":
		return Sr25519, nil
	case "ed25519":
		return Ed25519, nil
	case "ecdsa", "secp256k1":
		return Ecdsa, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrCryptoType, s)
}

// Signer signs extrinsic payloads for one account.
type Signer interface {
	AccountID() []byte
	PublicKey() []byte
	CryptoType() CryptoType
	Sign(payload []byte) ([]byte, error)
}

// NewSigner derives a signer from a secret URI such as a mnemonic with an
// optional derivation path ("... //hard/soft").
func NewSigner(suri string, ct CryptoType) (Signer, error) {
	var scheme subkey.Scheme
	switch ct {
	case Sr25519:
		scheme = subsr25519.Scheme{}
	case Ed25519:
		scheme = subed25519.Scheme{}
	default:
		return nil, fmt.Errorf("%w: %s secret uris are not supported", ErrCryptoType, ct)
	}
	if phrase := suriPhrase(suri); strings.Contains(phrase, " ") && !bip39.IsMnemonicValid(phrase) {
		return nil, ErrInvalidMnemonic
	}
	kp, err := subkey.DeriveKeyPair(scheme, suri)
	if err != nil {
		return nil, fmt.Errorf("derive key pair: %w", err)
	}
	return &keyPairSigner{kp: kp, ct: ct}, nil
}

// suriPhrase strips the derivation path and password from a secret uri.
func suriPhrase(suri string) string {
	if i := strings.Index(suri, "/"); i >= 0 {
		suri = suri[:i]
	}
	return strings.TrimSpace(suri)
}

// GenerateMnemonic returns a new 24 word mnemonic.
func GenerateMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(256)
	if err != nil {
		return "", err
	}
	return bip39.NewMnemonic(entropy)
}

type keyPairSigner struct {
	kp subkey.KeyPair
	ct CryptoType
}

func (s *keyPairSigner) AccountID() []byte      { return s.kp.Public() }
func (s *keyPairSigner) PublicKey() []byte      { return s.kp.Public() }
func (s *keyPairSigner) CryptoType() CryptoType { return s.ct }

func (s *keyPairSigner) Sign(payload []byte) ([]byte, error) {
	return s.kp.Sign(payload)
}

// DevSigner returns the well-known development account for a name such as
// "alice", optionally hard-derived further ("alice", "stash").
func DevSigner(ct CryptoType, path ...string) (Signer, error) {
	if len(path) == 0 {
		return nil, errors.New("dev signer needs a name")
	}
	name := namecase.New().NameCase(path[0])
	switch ct {
	case Sr25519:
		mini, err := DeriveSr25519FromName(append([]string{name}, path[1:]...))
		if err != nil {
			return nil, err
		}
		return &sr25519Signer{secret: mini.ExpandEd25519(), public: mini.Public()}, nil
	case Ed25519:
		key, err := DeriveEd25519FromName(name)
		if err != nil {
			return nil, err
		}
		return &ed25519Signer{key: key}, nil
	case Ecdsa:
		key, err := DeriveSecp256k1FromName(name)
		if err != nil {
			return nil, err
		}
		return &ecdsaSigner{key: key}, nil
	}
	return nil, fmt.Errorf("%w: %d", ErrCryptoType, ct)
}

type sr25519Signer struct {
	secret *schnorrkel.SecretKey
	public *schnorrkel.PublicKey
}

func (s *sr25519Signer) AccountID() []byte { return s.PublicKey() }

func (s *sr25519Signer) PublicKey() []byte {
	pub := s.public.Encode()
	return pub[:]
}

func (s *sr25519Signer) CryptoType() CryptoType { return Sr25519 }

func (s *sr25519Signer) Sign(payload []byte) ([]byte, error) {
	sig, err := s.secret.Sign(schnorrkel.NewSigningContext(signingContext, payload))
	if err != nil {
		return nil, err
	}
	enc := sig.Encode()
	return enc[:], nil
}

type ed25519Signer struct {
	key ed25519.PrivateKey
}

func (s *ed25519Signer) AccountID() []byte      { return s.PublicKey() }
func (s *ed25519Signer) PublicKey() []byte      { return s.key.Public().(ed25519.PublicKey) }
func (s *ed25519Signer) CryptoType() CryptoType { return Ed25519 }

func (s *ed25519Signer) Sign(payload []byte) ([]byte, error) {
	return ed25519.Sign(s.key, payload), nil
}

type ecdsaSigner struct {
	key *secp256k1.PrivateKey
}

// AccountID of an ecdsa account is the blake2b-256 of its compressed key.
func (s *ecdsaSigner) AccountID() []byte { return Blake2b256(s.PublicKey()) }

func (s *ecdsaSigner) PublicKey() []byte      { return s.key.PubKey().SerializeCompressed() }
func (s *ecdsaSigner) CryptoType() CryptoType { return Ecdsa }

// Sign returns r || s || recovery id over the blake2b-256 of payload.
func (s *ecdsaSigner) Sign(payload []byte) ([]byte, error) {
	compact, err := secp256k1.SignCompact(s.key, Blake2b256(payload), true)
	if err != nil {
		return nil, err
	}
	// compact is [27 + 4 + recid, r, s]
	sig := make([]byte, 0, 65)
	sig = append(sig, compact[1:]...)
	return append(sig, compact[0]-31), nil
}
