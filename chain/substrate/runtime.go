package substrate

import (
	"encoding/binary"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Runtime binds a metadata registry to a network's address format. It is the
// ledger context consumed by the transaction codec.
type Runtime struct {
	*Registry
	ss58Format uint16
}

// NewRuntime returns a Runtime for the registry and SS58 network format.
func NewRuntime(reg *Registry, ss58Format uint16) *Runtime {
	return &Runtime{Registry: reg, ss58Format: ss58Format}
}

// SS58Format is the network identifier used when encoding addresses.
func (rt *Runtime) SS58Format() uint16 {
	return rt.ss58Format
}

// NewCall encodes section.method, accepting SS58 addresses for account ids.
func (rt *Runtime) NewCall(section, method string, args map[string]any) (Call, error) {
	return rt.Registry.NewCall(section, method, args, rt.DecodeAddress)
}

// EncodeAddress encodes an account id with the runtime's address format.
func (rt *Runtime) EncodeAddress(accountID []byte) (string, error) {
	return EncodeAddressSS58(accountID, rt.ss58Format)
}

// DecodeAddress accepts an SS58 address of any network or a 0x-prefixed
// 32-byte account id.
func (rt *Runtime) DecodeAddress(address string) ([]byte, error) {
	if strings.HasPrefix(address, "0x") {
		b, err := HexDecode(address)
		if err != nil || len(b) != 32 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, address)
		}
		return b, nil
	}
	key, _, err := DecodeAddressSS58(address)
	if err != nil {
		return nil, fmt.Errorf("%q: %w", address, err)
	}
	return key, nil
}

// Hash is the blake2b-256 digest used for call hashes and extrinsic hashes.
func (rt *Runtime) Hash(data []byte) []byte {
	return Blake2b256(data)
}

// Blake2b256 hashes data with a 32-byte blake2b digest.
func Blake2b256(data []byte) []byte {
	h := blake2b.Sum256(data)
	return h[:]
}

// ss58FormatFromConstants reads System.SS58Prefix when the runtime declares it.
func ss58FormatFromConstants(reg *Registry) (uint16, bool) {
	p, ok := reg.Pallet("system")
	if !ok {
		return 0, false
	}
	c, ok := p.Constants["SS58Prefix"]
	if !ok {
		return 0, false
	}
	switch len(c.Value) {
	case 1:
		return uint16(c.Value[0]), true
	case 2:
		return binary.LittleEndian.Uint16(c.Value), true
	}
	return 0, false
}
