// Package wrapper works out which multisig and proxy layers a transaction
// needs before an account the user holds can sign it, and folds those layers
// over the transaction.
package wrapper

import (
	"errors"
	"fmt"

	"github.com/novasamatech/nova-spektr-sub000/wallet"
)

// MaxDepth bounds the chain of multisig and proxy layers.
const MaxDepth = 16

var (
	ErrWrapperDepth  = errors.New("wrapper chain too deep")
	ErrProxyNotFound = errors.New("proxy account not found")
	ErrNotSignatory  = errors.New("chosen account is not a signatory")
	ErrNoSigner      = errors.New("multisig signer not chosen")
)

// Directory is the part of the wallet directory the resolver reads.
type Directory interface {
	WalletOf(a wallet.Account) (wallet.Wallet, error)
	AccountsByID(accountID []byte, chainID string) []wallet.Account
}

var _ Directory = (*wallet.Directory)(nil)

// Wrapper is one layer around a transaction: *MultisigWrapper or
// *ProxyWrapper.
type Wrapper interface {
	wrapper()
}

// MultisigWrapper turns a transaction into an asMulti call signed by one of
// the multisig's signatories.
type MultisigWrapper struct {
	Account wallet.MultisigAccount
	// Signatories holds the members the user has an account for.
	Signatories []wallet.Account
	// Signer is nil until a signatory is chosen.
	Signer wallet.Account
}

// ProxyWrapper turns a transaction into a proxy call signed by the proxy.
type ProxyWrapper struct {
	Proxied wallet.ProxiedAccount
	Proxy   wallet.Account
}

func (*MultisigWrapper) wrapper() {}
func (*ProxyWrapper) wrapper()    {}

// Resolve returns the layers needed for target to act on chainID, outermost
// last. chosen lists the signatory picked at each multisig layer in order;
// resolution stops at a multisig layer with no choice left.
func Resolve(chainID string, target wallet.Account, dir Directory, chosen []wallet.Account) ([]Wrapper, error) {
	return resolve(chainID, target, dir, chosen, 0)
}

func resolve(chainID string, target wallet.Account, dir Directory, chosen []wallet.Account, depth int) ([]Wrapper, error) {
	if depth >= MaxDepth {
		return nil, ErrWrapperDepth
	}
	w, err := dir.WalletOf(target)
	if err != nil {
		return nil, err
	}

	var (
		layer Wrapper
		next  wallet.Account
	)
	switch w.Kind {
	case wallet.Multisig:
		ms, ok := asMultisig(target)
		if !ok {
			return nil, fmt.Errorf("account %s in multisig wallet %d is not a multisig account", target.Base().AccountID, w.ID)
		}
		mw := &MultisigWrapper{Account: ms, Signatories: presentSignatories(chainID, ms, dir)}
		if len(chosen) == 0 {
			return []Wrapper{mw}, nil
		}
		if !ms.HasSignatory(chosen[0].Base().AccountID) {
			return nil, fmt.Errorf("%w: %s", ErrNotSignatory, chosen[0].Base().AccountID)
		}
		mw.Signer = chosen[0]
		chosen = chosen[1:]
		layer, next = mw, mw.Signer

	case wallet.Proxied:
		p, ok := asProxied(target)
		if !ok {
			return nil, fmt.Errorf("account %s in proxied wallet %d is not a proxied account", target.Base().AccountID, w.ID)
		}
		proxy, ok := findActor(chainID, p.ProxyAccountID, dir)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrProxyNotFound, p.ProxyAccountID)
		}
		layer, next = &ProxyWrapper{Proxied: p, Proxy: proxy}, proxy

	default:
		return nil, nil
	}

	rest, err := resolve(chainID, next, dir, chosen, depth+1)
	if err != nil {
		return nil, err
	}
	return append([]Wrapper{layer}, rest...), nil
}

func presentSignatories(chainID string, ms wallet.MultisigAccount, dir Directory) []wallet.Account {
	var out []wallet.Account
	for _, s := range ms.Signatories {
		if a, ok := findActor(chainID, s.AccountID, dir); ok {
			out = append(out, a)
		}
	}
	return out
}

// findActor picks the account the user can act with for accountID. Accounts
// that sign directly win over multisig and proxied ones; watch-only accounts
// never act.
func findActor(chainID string, accountID []byte, dir Directory) (wallet.Account, bool) {
	var fallback wallet.Account
	for _, a := range dir.AccountsByID(accountID, chainID) {
		w, err := dir.WalletOf(a)
		if err != nil {
			continue
		}
		switch {
		case w.Kind.CanSign():
			return a, true
		case w.Kind != wallet.WatchOnly && fallback == nil:
			fallback = a
		}
	}
	return fallback, fallback != nil
}

func asMultisig(a wallet.Account) (wallet.MultisigAccount, bool) {
	switch t := a.(type) {
	case wallet.MultisigAccount:
		return t, true
	case *wallet.MultisigAccount:
		if t != nil {
			return *t, true
		}
	}
	return wallet.MultisigAccount{}, false
}

func asProxied(a wallet.Account) (wallet.ProxiedAccount, bool) {
	switch t := a.(type) {
	case wallet.ProxiedAccount:
		return t, true
	case *wallet.ProxiedAccount:
		if t != nil {
			return *t, true
		}
	}
	return wallet.ProxiedAccount{}, false
}
