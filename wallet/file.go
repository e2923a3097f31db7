package wallet

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the on-disk layout of a wallet directory.
type File struct {
	Wallets  []Wallet          `yaml:"wallets"`
	Accounts []BaseAccount     `yaml:"accounts,omitempty"`
	Multisig []MultisigAccount `yaml:"multisig,omitempty"`
	Proxied  []ProxiedAccount  `yaml:"proxied,omitempty"`
}

// Directory builds the directory described by the file.
func (f File) Directory() (*Directory, error) {
	accounts := make([]Account, 0, len(f.Accounts)+len(f.Multisig)+len(f.Proxied))
	for _, a := range f.Accounts {
		accounts = append(accounts, a)
	}
	for _, a := range f.Multisig {
		accounts = append(accounts, a)
	}
	for _, a := range f.Proxied {
		accounts = append(accounts, a)
	}
	return NewDirectory(f.Wallets, accounts)
}

// Read decodes a wallet file and builds its directory.
func Read(r io.Reader) (*Directory, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode wallets: %w", err)
	}
	return f.Directory()
}

// Load reads the wallet file at path.
func Load(path string) (*Directory, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	return Read(fh)
}
