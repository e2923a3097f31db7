package substrate

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"
	"math/bits"

	"github.com/misko9/go-substrate-rpc-client/v4/scale"
)

const (
	// DefaultEraPeriod is the mortality window in blocks used when none is set.
	DefaultEraPeriod = 64
	maxEraPeriod     = 1 << 16
	minEraPeriod     = 4

	// signing payloads longer than this are hashed before signing
	maxUnhashedPayload = 256

	signedBit = 0x80
)

var (
	ErrSignatureLength = errors.New("invalid signature length")
	ErrExtension       = errors.New("unsupported signed extension")
)

// defaultExtensions is the extension order of a stock runtime, used when
// metadata does not list them.
var defaultExtensions = []string{
	"CheckNonZeroSender",
	"CheckSpecVersion",
	"CheckTxVersion",
	"CheckGenesis",
	"CheckMortality",
	"CheckNonce",
	"CheckWeight",
	"ChargeTransactionPayment",
}

// Era is the validity window of a transaction.
type Era struct {
	Immortal bool
	Period   uint64
	Phase    uint64
}

// MortalEra returns an era valid for period blocks starting at blockNumber.
// The period is rounded up to a power of two within [4, 65536].
func MortalEra(blockNumber, period uint64) Era {
	if period == 0 {
		period = DefaultEraPeriod
	}
	p := uint64(1) << bits.Len64(period-1)
	if p < minEraPeriod {
		p = minEraPeriod
	}
	if p > maxEraPeriod {
		p = maxEraPeriod
	}
	quantize := p >> 12
	if quantize < 1 {
		quantize = 1
	}
	phase := blockNumber % p / quantize * quantize
	return Era{Period: p, Phase: phase}
}

// Encode returns the SCALE form: one zero byte for immortal, two bytes otherwise.
func (e Era) Encode() []byte {
	if e.Immortal {
		return []byte{0}
	}
	quantize := e.Period >> 12
	if quantize < 1 {
		quantize = 1
	}
	low := uint64(bits.TrailingZeros64(e.Period)) - 1
	if low < 1 {
		low = 1
	}
	if low > 15 {
		low = 15
	}
	encoded := uint16(low) | uint16(e.Phase/quantize)<<4
	return []byte{byte(encoded), byte(encoded >> 8)}
}

// SigningInfo is the chain state a transaction is signed against.
type SigningInfo struct {
	Nonce              uint64
	BlockHash          []byte
	BlockNumber        uint64
	GenesisHash        []byte
	SpecVersion        uint32
	TransactionVersion uint32
}

// Options tune the envelope. A zero value yields a mortal era of
// DefaultEraPeriod blocks and no tip.
type Options struct {
	EraPeriod uint64
	Immortal  bool
	Tip       *big.Int
}

// UnsignedExtrinsic is a call with everything needed to produce a signing
// payload and, once signed, the submittable extrinsic.
type UnsignedExtrinsic struct {
	Call               Call
	AccountID          []byte
	Era                Era
	Nonce              uint64
	Tip                *big.Int
	SpecVersion        uint32
	TransactionVersion uint32
	GenesisHash        []byte
	BlockHash          []byte

	reg *Registry
}

// SignedExtrinsic is a submittable extrinsic.
type SignedExtrinsic struct {
	Data []byte
	Hash []byte
}

// Hex returns the 0x-prefixed extrinsic as expected by author_submitExtrinsic.
func (s *SignedExtrinsic) Hex() string {
	return HexEncode(s.Data)
}

// NewUnsignedExtrinsic prepares call for signing by accountID.
func (r *Registry) NewUnsignedExtrinsic(call Call, accountID []byte, info SigningInfo, opts Options) (*UnsignedExtrinsic, error) {
	if len(info.GenesisHash) != 32 {
		return nil, fmt.Errorf("genesis hash must be 32 bytes, got %d", len(info.GenesisHash))
	}
	u := &UnsignedExtrinsic{
		Call:               call,
		AccountID:          accountID,
		Nonce:              info.Nonce,
		Tip:                opts.Tip,
		SpecVersion:        info.SpecVersion,
		TransactionVersion: info.TransactionVersion,
		GenesisHash:        info.GenesisHash,
		reg:                r,
	}
	if u.Tip == nil {
		u.Tip = new(big.Int)
	}
	if opts.Immortal {
		u.Era = Era{Immortal: true}
		u.BlockHash = info.GenesisHash
		return u, nil
	}
	if len(info.BlockHash) != 32 {
		return nil, fmt.Errorf("block hash must be 32 bytes, got %d", len(info.BlockHash))
	}
	u.Era = MortalEra(info.BlockNumber, opts.EraPeriod)
	u.BlockHash = info.BlockHash
	return u, nil
}

func (u *UnsignedExtrinsic) extensions() []SignedExtension {
	if exts := u.reg.SignedExtensions(); len(exts) > 0 {
		return exts
	}
	out := make([]SignedExtension, 0, len(defaultExtensions))
	for _, id := range defaultExtensions {
		out = append(out, SignedExtension{Identifier: id})
	}
	return out
}

// extra returns the bytes carried in the extrinsic and the bytes only
// committed to by the signature.
func (u *UnsignedExtrinsic) extra() ([]byte, []byte, error) {
	var (
		extra      = new(bytes.Buffer)
		additional = new(bytes.Buffer)
		extraEnc   = scale.NewEncoder(extra)
		addEnc     = scale.NewEncoder(additional)
	)
	for _, ext := range u.extensions() {
		var err error
		switch ext.Identifier {
		case "CheckNonZeroSender", "CheckWeight":
		case "CheckSpecVersion":
			err = addEnc.Encode(u.SpecVersion)
		case "CheckTxVersion":
			err = addEnc.Encode(u.TransactionVersion)
		case "CheckGenesis":
			err = addEnc.Write(u.GenesisHash)
		case "CheckMortality", "CheckEra":
			if err = extraEnc.Write(u.Era.Encode()); err == nil {
				err = addEnc.Write(u.BlockHash)
			}
		case "CheckNonce":
			err = extraEnc.EncodeUintCompact(*new(big.Int).SetUint64(u.Nonce))
		case "ChargeTransactionPayment":
			err = extraEnc.EncodeUintCompact(*u.Tip)
		case "ChargeAssetTxPayment":
			// tip, then Option<AssetId>::None
			if err = extraEnc.EncodeUintCompact(*u.Tip); err == nil {
				err = extraEnc.PushByte(0)
			}
		case "CheckMetadataHash":
			// mode disabled, no metadata hash committed
			if err = extraEnc.PushByte(0); err == nil {
				err = addEnc.PushByte(0)
			}
		default:
			err = u.emptyExtension(ext)
		}
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", ext.Identifier, err)
		}
	}
	return extra.Bytes(), additional.Bytes(), nil
}

// emptyExtension accepts extensions we know nothing about only when both of
// their types encode to nothing.
func (u *UnsignedExtrinsic) emptyExtension(ext SignedExtension) error {
	for _, id := range []TypeID{ext.Type, ext.AdditionalSigned} {
		b, err := u.reg.EncodeValue(id, nil, nil)
		if err != nil || len(b) != 0 {
			return ErrExtension
		}
	}
	return nil
}

// SigningPayload returns the bytes a signer signs.
func (u *UnsignedExtrinsic) SigningPayload() ([]byte, error) {
	extra, additional, err := u.extra()
	if err != nil {
		return nil, err
	}
	payload := make([]byte, 0, len(u.Call.Data)+len(extra)+len(additional))
	payload = append(payload, u.Call.Data...)
	payload = append(payload, extra...)
	payload = append(payload, additional...)
	if len(payload) > maxUnhashedPayload {
		return Blake2b256(payload), nil
	}
	return payload, nil
}

// Sign signs the payload with s and assembles the extrinsic.
func (u *UnsignedExtrinsic) Sign(s Signer) (*SignedExtrinsic, error) {
	payload, err := u.SigningPayload()
	if err != nil {
		return nil, err
	}
	sig, err := s.Sign(payload)
	if err != nil {
		return nil, fmt.Errorf("sign extrinsic: %w", err)
	}
	return u.WithSignature(s.CryptoType(), sig)
}

// WithSignature assembles the extrinsic from a signature produced elsewhere,
// e.g. by an air-gapped signer.
func (u *UnsignedExtrinsic) WithSignature(ct CryptoType, sig []byte) (*SignedExtrinsic, error) {
	if len(u.AccountID) != 32 {
		return nil, fmt.Errorf("account id must be 32 bytes, got %d", len(u.AccountID))
	}
	if want := ct.SignatureLength(); len(sig) != want {
		return nil, fmt.Errorf("%w: %s needs %d bytes, got %d", ErrSignatureLength, ct, want, len(sig))
	}
	extra, _, err := u.extra()
	if err != nil {
		return nil, err
	}

	body := new(bytes.Buffer)
	body.WriteByte(signedBit | u.reg.extrinsicVersionOrDefault())
	// MultiAddress::Id
	body.WriteByte(0)
	body.Write(u.AccountID)
	body.WriteByte(byte(ct))
	body.Write(sig)
	body.Write(extra)
	body.Write(u.Call.Data)

	out := new(bytes.Buffer)
	if err := scale.NewEncoder(out).EncodeUintCompact(*big.NewInt(int64(body.Len()))); err != nil {
		return nil, err
	}
	out.Write(body.Bytes())
	return &SignedExtrinsic{Data: out.Bytes(), Hash: Blake2b256(out.Bytes())}, nil
}

// FakeSigned assembles the extrinsic with a dummy sr25519 signature. The
// node accepts it for payment_queryInfo, which never checks signatures.
func (u *UnsignedExtrinsic) FakeSigned() (*SignedExtrinsic, error) {
	sig := bytes.Repeat([]byte{1}, Sr25519.SignatureLength())
	return u.WithSignature(Sr25519, sig)
}

func (r *Registry) extrinsicVersionOrDefault() uint8 {
	if r.extrinsicVersion == 0 {
		return 4
	}
	return r.extrinsicVersion
}
