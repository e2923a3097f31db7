package substrate

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/blake2b"
)

const (
	// MaxSS58Format is the largest network identifier the two-byte prefix can carry.
	MaxSS58Format = 16383
	ss58Prefix    = "SS58PRE"
)

var ErrInvalidAddress = errors.New("invalid ss58 address")

// EncodeAddressSS58 encodes a public key or account id for the given network format.
func EncodeAddressSS58(key []byte, format uint16) (string, error) {
	if format > MaxSS58Format {
		return "", fmt.Errorf("ss58 format %d out of range", format)
	}

	var input []byte
	if format < 64 {
		input = []byte{byte(format)}
	} else {
		input = []byte{
			byte((format&0x00fc)>>2) | 0x40,
			byte(format>>8) | byte((format&0x0003)<<6),
		}
	}
	input = append(input, key...)

	checksum, err := ss58Checksum(input)
	if err != nil {
		return "", err
	}

	final := input
	if len(key) == 32 || len(key) == 33 {
		final = append(final, checksum[0:2]...)
	} else {
		final = append(final, checksum[0:1]...)
	}

	return base58.Encode(final), nil
}

// DecodeAddressSS58 decodes an address to its public key and network format.
// Refactored from https://github.com/subscan-explorer/subscan-essentials
func DecodeAddressSS58(address string) ([]byte, uint16, error) {
	decoded, err := base58.Decode(address)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if len(decoded) < 3 || decoded[0] >= 128 {
		return nil, 0, ErrInvalidAddress
	}

	prefixLength := 1
	format := uint16(decoded[0])
	if decoded[0]&0x40 != 0 {
		prefixLength = 2
		lower := (decoded[0] << 2) | (decoded[1] >> 6)
		upper := decoded[1] & 0x3f
		format = uint16(lower) | uint16(upper)<<8
	}

	checksumLength := 1
	if n := len(decoded) - prefixLength; n == 34 || n == 35 {
		checksumLength = 2
	}
	if len(decoded) <= prefixLength+checksumLength {
		return nil, 0, ErrInvalidAddress
	}

	body := decoded[:len(decoded)-checksumLength]
	checksum, err := ss58Checksum(body)
	if err != nil {
		return nil, 0, err
	}
	if !bytes.Equal(checksum[:checksumLength], decoded[len(decoded)-checksumLength:]) {
		return nil, 0, fmt.Errorf("%w: checksum incorrect", ErrInvalidAddress)
	}
	return body[prefixLength:], format, nil
}

func ss58Checksum(data []byte) ([]byte, error) {
	hasher, err := blake2b.New512(nil)
	if err != nil {
		return nil, err
	}

	if _, err := hasher.Write([]byte(ss58Prefix)); err != nil {
		return nil, err
	}

	if _, err := hasher.Write(data); err != nil {
		return nil, err
	}

	return hasher.Sum(nil), nil
}
