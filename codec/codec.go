// Package codec translates between wallet transactions and the binary calls
// of a Substrate runtime. Decode and BuildCall mirror each other: for every
// transaction the wallet can build, decoding the built call yields the same
// transaction back.
package codec

import (
	"errors"

	"github.com/novasamatech/nova-spektr-sub000/chain/substrate"
)

// MaxDepth bounds batch and proxy nesting.
const MaxDepth = 16

var (
	ErrMalformedCall       = errors.New("malformed call data")
	ErrNoExtractor         = errors.New("no argument extractor for transaction type")
	ErrUnparseableSelector = errors.New("unparseable selector value")
	ErrMissingArg          = errors.New("missing argument")
	ErrUnknownType         = errors.New("unknown transaction type")
	ErrDepth               = errors.New("transaction nesting too deep")
)

// Ledger is the read-only runtime context the codec works against.
// *substrate.Runtime satisfies it.
type Ledger interface {
	ParseCall(data []byte) (*substrate.ParsedCall, error)
	NewCall(section, method string, args map[string]any) (substrate.Call, error)
	HasMethod(section, method string) bool
	Params(section, method string) []string
	EncodeAddress(accountID []byte) (string, error)
	DecodeAddress(address string) ([]byte, error)
	Hash(data []byte) []byte
}

// ExtrinsicLedger is a Ledger that can also build signable extrinsics.
type ExtrinsicLedger interface {
	Ledger
	NewUnsignedExtrinsic(call substrate.Call, accountID []byte, info substrate.SigningInfo, opts substrate.Options) (*substrate.UnsignedExtrinsic, error)
}

var _ ExtrinsicLedger = (*substrate.Runtime)(nil)

func hasParam(l Ledger, section, method, param string) bool {
	for _, p := range l.Params(section, method) {
		if p == param {
			return true
		}
	}
	return false
}
