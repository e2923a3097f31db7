package wallet

import (
	"errors"
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"
)

var (
	ErrUnknownWallet = errors.New("unknown wallet")
	ErrDuplicate     = errors.New("duplicate wallet id")
)

// Directory is an in-memory index of wallets and their accounts.
type Directory struct {
	wallets  map[int]Wallet
	accounts map[int][]Account
}

// NewDirectory validates the wallets and accounts and indexes them. Every
// account must belong to one of the given wallets.
func NewDirectory(wallets []Wallet, accounts []Account) (*Directory, error) {
	validate := validator.New()
	d := &Directory{
		wallets:  make(map[int]Wallet, len(wallets)),
		accounts: make(map[int][]Account, len(wallets)),
	}
	for _, w := range wallets {
		if err := validate.Struct(w); err != nil {
			return nil, fmt.Errorf("wallet %d: %w", w.ID, err)
		}
		if !w.Kind.Valid() {
			return nil, fmt.Errorf("wallet %d: unknown kind %q", w.ID, w.Kind)
		}
		if _, ok := d.wallets[w.ID]; ok {
			return nil, fmt.Errorf("%w %d", ErrDuplicate, w.ID)
		}
		d.wallets[w.ID] = w
	}
	for _, a := range accounts {
		base := a.Base()
		w, ok := d.wallets[base.WalletID]
		if !ok {
			return nil, fmt.Errorf("account %s: %w %d", base.AccountID, ErrUnknownWallet, base.WalletID)
		}
		if err := validate.Struct(a); err != nil {
			return nil, fmt.Errorf("account %s: %w", base.AccountID, err)
		}
		if err := checkKind(w.Kind, a); err != nil {
			return nil, fmt.Errorf("account %s: %w", base.AccountID, err)
		}
		d.accounts[w.ID] = append(d.accounts[w.ID], a)
	}
	return d, nil
}

func checkKind(k Kind, a Account) error {
	switch a.(type) {
	case MultisigAccount, *MultisigAccount:
		if k != Multisig {
			return fmt.Errorf("multisig account in %s wallet", k)
		}
	case ProxiedAccount, *ProxiedAccount:
		if k != Proxied {
			return fmt.Errorf("proxied account in %s wallet", k)
		}
	default:
		if k == Multisig || k == Proxied {
			return fmt.Errorf("plain account in %s wallet", k)
		}
	}
	return nil
}

// Wallet returns the wallet with the given id.
func (d *Directory) Wallet(id int) (Wallet, bool) {
	w, ok := d.wallets[id]
	return w, ok
}

// Wallets returns all wallets ordered by id.
func (d *Directory) Wallets() []Wallet {
	out := make([]Wallet, 0, len(d.wallets))
	for _, w := range d.wallets {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// WalletOf returns the wallet that holds a.
func (d *Directory) WalletOf(a Account) (Wallet, error) {
	id := a.Base().WalletID
	w, ok := d.wallets[id]
	if !ok {
		return Wallet{}, fmt.Errorf("%w %d", ErrUnknownWallet, id)
	}
	return w, nil
}

// Accounts returns the accounts of a wallet in insertion order.
func (d *Directory) Accounts(walletID int) []Account {
	return d.accounts[walletID]
}

// AccountsByID returns every account with the given account id usable on
// chainID, across all wallets.
func (d *Directory) AccountsByID(accountID []byte, chainID string) []Account {
	var out []Account
	for _, w := range d.Wallets() {
		for _, a := range d.accounts[w.ID] {
			base := a.Base()
			if base.AccountID.Equal(accountID) && base.OnChain(chainID) {
				out = append(out, a)
			}
		}
	}
	return out
}

// Signer returns an account with the given id held by a wallet that can
// sign directly.
func (d *Directory) Signer(accountID []byte, chainID string) (Account, bool) {
	for _, a := range d.AccountsByID(accountID, chainID) {
		if w, err := d.WalletOf(a); err == nil && w.Kind.CanSign() {
			return a, true
		}
	}
	return nil, false
}
