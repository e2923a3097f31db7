package transaction

import (
	"errors"
	"fmt"
)

// Argument names shared by the codec and the wrapper resolver.
const (
	ArgTransaction      = "transaction"
	ArgTransactions     = "transactions"
	ArgReal             = "real"
	ArgForceProxyType   = "forceProxyType"
	ArgThreshold        = "threshold"
	ArgOtherSignatories = "otherSignatories"
	ArgMaybeTimepoint   = "maybeTimepoint"
	ArgTimepoint        = "timepoint"
	ArgCallData         = "callData"
	ArgCallHash         = "callHash"
	ArgMaxWeight        = "maxWeight"
	ArgStoreCall        = "storeCall"
	ArgPayee            = "payee"
	ArgVote             = "vote"
)

// Args holds the named arguments of a transaction. Values are strings,
// bools, string lists, typed selectors (Payee, AccountVote, Weight,
// Timepoint) or nested transactions.
type Args map[string]any

// String returns a string argument.
func (a Args) String(name string) (string, bool) {
	v, ok := a[name].(string)
	return v, ok
}

// Strings returns a string list argument.
func (a Args) Strings(name string) ([]string, bool) {
	switch v := a[name].(type) {
	case []string:
		return v, true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}

// Transaction returns a nested transaction.
func (a Args) Transaction(name string) (Transaction, bool) {
	switch v := a[name].(type) {
	case Transaction:
		return v, true
	case *Transaction:
		if v != nil {
			return *v, true
		}
	case DecodedTransaction:
		return v.ToTransaction(), true
	}
	return Transaction{}, false
}

// Transactions returns a nested transaction list.
func (a Args) Transactions(name string) ([]Transaction, bool) {
	switch v := a[name].(type) {
	case []Transaction:
		return v, true
	case []DecodedTransaction:
		out := make([]Transaction, 0, len(v))
		for _, d := range v {
			out = append(out, d.ToTransaction())
		}
		return out, true
	}
	return nil, false
}

// Has reports whether the argument is present and not nil.
func (a Args) Has(name string) bool {
	v, ok := a[name]
	return ok && v != nil
}

// Transaction is an operation to be encoded for a chain. Address is the
// dispatch origin, which is not necessarily the signer.
type Transaction struct {
	ChainID string `yaml:"chainId" json:"chainId"`
	Address string `yaml:"address" json:"address"`
	Type    Type   `yaml:"type" json:"type"`
	Args    Args   `yaml:"args" json:"args"`
}

// Validate returns an error if the transaction is not well-formed. Argument
// shapes are checked by the encoder.
func (t Transaction) Validate() error {
	if t.ChainID == "" {
		return errors.New("transaction chain id cannot be empty")
	}
	if !t.Type.Valid() {
		return fmt.Errorf("unknown transaction type %q", t.Type)
	}
	switch t.Type {
	case Proxy:
		inner, ok := t.Args.Transaction(ArgTransaction)
		if !ok {
			return errors.New("proxy transaction needs a nested transaction")
		}
		return inner.Validate()
	case BatchAll:
		inner, ok := t.Args.Transactions(ArgTransactions)
		if !ok || len(inner) == 0 {
			return errors.New("batch needs at least one transaction")
		}
		for i, tx := range inner {
			if err := tx.Validate(); err != nil {
				return fmt.Errorf("batch transaction %d: %w", i, err)
			}
		}
	}
	return nil
}

// DecodedTransaction is a call read back from its encoded form. Type is
// empty when the call is not one the wallet recognises; Section and Method
// always carry the raw pallet and call names.
type DecodedTransaction struct {
	ChainID string `yaml:"chainId" json:"chainId"`
	Address string `yaml:"address" json:"address"`
	Type    Type   `yaml:"type,omitempty" json:"type,omitempty"`
	Section string `yaml:"section" json:"section"`
	Method  string `yaml:"method" json:"method"`
	Args    Args   `yaml:"args" json:"args"`
}

// Known reports whether the call was classified.
func (d DecodedTransaction) Known() bool {
	return d.Type != ""
}

// ToTransaction converts d and any nested decoded transactions.
func (d DecodedTransaction) ToTransaction() Transaction {
	return Transaction{
		ChainID: d.ChainID,
		Address: d.Address,
		Type:    d.Type,
		Args:    convertArgs(d.Args),
	}
}

func convertArgs(args Args) Args {
	if args == nil {
		return nil
	}
	out := make(Args, len(args))
	for k, v := range args {
		switch t := v.(type) {
		case DecodedTransaction:
			out[k] = t.ToTransaction()
		case []DecodedTransaction:
			txs := make([]Transaction, 0, len(t))
			for _, d := range t {
				txs = append(txs, d.ToTransaction())
			}
			out[k] = txs
		default:
			out[k] = v
		}
	}
	return out
}
