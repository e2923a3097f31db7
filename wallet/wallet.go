// Package wallet models the wallets and accounts a user holds and answers
// the lookups the wrapper resolver needs.
package wallet

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/novasamatech/nova-spektr-sub000/chain/substrate"
)

// Kind is the type of a wallet.
type Kind string

const (
	SingleShard   Kind = "single-shard"
	MultiShard    Kind = "multi-shard"
	Vault         Kind = "polkadot-vault"
	WalletConnect Kind = "wallet-connect"
	Multisig      Kind = "multisig"
	Proxied       Kind = "proxied"
	WatchOnly     Kind = "watch-only"
)

// Valid reports whether k is a known wallet kind.
func (k Kind) Valid() bool {
	switch k {
	case SingleShard, MultiShard, Vault, WalletConnect, Multisig, Proxied, WatchOnly:
		return true
	}
	return false
}

// CanSign reports whether accounts of this kind hold a key that can sign
// directly.
func (k Kind) CanSign() bool {
	switch k {
	case SingleShard, MultiShard, Vault, WalletConnect:
		return true
	}
	return false
}

// Wallet groups accounts under one kind of custody.
type Wallet struct {
	ID   int    `yaml:"id" validate:"gte=0"`
	Name string `yaml:"name" validate:"required"`
	Kind Kind   `yaml:"kind" validate:"required"`
}

// AccountID is a 32-byte account identifier. In YAML it is written as 0x hex
// and read from hex or an SS58 address of any network.
type AccountID []byte

func (id AccountID) String() string {
	return substrate.HexEncode(id)
}

// Equal reports whether id and other are the same account.
func (id AccountID) Equal(other []byte) bool {
	return bytes.Equal(id, other)
}

func (id AccountID) MarshalYAML() (any, error) {
	return id.String(), nil
}

func (id *AccountID) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseAccountID(s)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ParseAccountID accepts 0x-prefixed hex or an SS58 address.
func ParseAccountID(s string) (AccountID, error) {
	if strings.HasPrefix(s, "0x") {
		b, err := substrate.HexDecode(s)
		if err != nil || len(b) != 32 {
			return nil, fmt.Errorf("invalid account id %q", s)
		}
		return b, nil
	}
	key, _, err := substrate.DecodeAddressSS58(s)
	if err != nil {
		return nil, fmt.Errorf("invalid account id %q: %w", s, err)
	}
	return key, nil
}

// Account is any account held by a wallet.
type Account interface {
	Base() BaseAccount
}

// BaseAccount is an account with a key of its own. An empty ChainID means
// the account exists on every chain.
type BaseAccount struct {
	WalletID  int       `yaml:"wallet-id"`
	Name      string    `yaml:"name"`
	AccountID AccountID `yaml:"account-id" validate:"len=32"`
	ChainID   string    `yaml:"chain-id,omitempty"`
}

func (a BaseAccount) Base() BaseAccount { return a }

// OnChain reports whether the account is usable on chainID.
func (a BaseAccount) OnChain(chainID string) bool {
	return a.ChainID == "" || chainID == "" || a.ChainID == chainID
}

// Signatory is a member of a multisig account.
type Signatory struct {
	Name      string    `yaml:"name,omitempty"`
	AccountID AccountID `yaml:"account-id" validate:"len=32"`
}

// MultisigAccount is a threshold account. Its AccountID is derived from the
// signatories and threshold by the ledger.
type MultisigAccount struct {
	BaseAccount `yaml:",inline"`
	Threshold   int         `yaml:"threshold" validate:"gte=1"`
	Signatories []Signatory `yaml:"signatories" validate:"min=2,dive"`
}

// HasSignatory reports whether accountID is one of the signatories.
func (m MultisigAccount) HasSignatory(accountID []byte) bool {
	for _, s := range m.Signatories {
		if s.AccountID.Equal(accountID) {
			return true
		}
	}
	return false
}

// ProxiedAccount is an account that delegated authority to a proxy account.
type ProxiedAccount struct {
	BaseAccount    `yaml:",inline"`
	ProxyAccountID AccountID `yaml:"proxy-account-id" validate:"len=32"`
	ProxyType      string    `yaml:"proxy-type" validate:"required"`
	Delay          uint32    `yaml:"delay"`
}
