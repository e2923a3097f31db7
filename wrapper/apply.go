package wrapper

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/novasamatech/nova-spektr-sub000/chain/substrate"
	"github.com/novasamatech/nova-spektr-sub000/codec"
	"github.com/novasamatech/nova-spektr-sub000/transaction"
)

// Result is the outcome of folding wrappers over a transaction.
type Result struct {
	// Wrapped is the transaction to sign.
	Wrapped transaction.Transaction
	// Core is the transaction before any layer was applied.
	Core transaction.Transaction
	// Multisig is the asMulti transaction of the first multisig layer.
	Multisig *transaction.Transaction
}

// Apply folds wrappers over core, innermost first. log may be nil.
func Apply(log *zap.Logger, l codec.Ledger, core transaction.Transaction, wrappers []Wrapper) (Result, error) {
	if log == nil {
		log = zap.NewNop()
	}
	res := Result{Wrapped: core, Core: core}
	for i, w := range wrappers {
		var (
			next transaction.Transaction
			err  error
		)
		switch w := w.(type) {
		case *MultisigWrapper:
			next, err = applyMultisig(log, l, res.Wrapped, w)
			if err == nil && res.Multisig == nil {
				ms := next
				res.Multisig = &ms
			}
		case *ProxyWrapper:
			next, err = applyProxy(l, res.Wrapped, w)
		default:
			err = fmt.Errorf("unsupported wrapper %T", w)
		}
		if err != nil {
			return Result{}, fmt.Errorf("wrapper %d: %w", i, err)
		}
		res.Wrapped = next
	}
	return res, nil
}

func applyMultisig(log *zap.Logger, l codec.Ledger, tx transaction.Transaction, w *MultisigWrapper) (transaction.Transaction, error) {
	if w.Signer == nil {
		return transaction.Transaction{}, ErrNoSigner
	}
	signerID := w.Signer.Base().AccountID
	if !w.Account.HasSignatory(signerID) {
		return transaction.Transaction{}, fmt.Errorf("%w: %s", ErrNotSignatory, signerID)
	}
	signer, err := l.EncodeAddress(signerID)
	if err != nil {
		return transaction.Transaction{}, fmt.Errorf("signer address: %w", err)
	}

	others := make([][]byte, 0, len(w.Account.Signatories))
	for _, s := range w.Account.Signatories {
		if !s.AccountID.Equal(signerID) {
			others = append(others, s.AccountID)
		}
	}
	sort.Slice(others, func(i, j int) bool { return bytes.Compare(others[i], others[j]) < 0 })
	addrs := make([]string, 0, len(others))
	for _, id := range others {
		addr, err := l.EncodeAddress(id)
		if err != nil {
			return transaction.Transaction{}, fmt.Errorf("signatory address: %w", err)
		}
		addrs = append(addrs, addr)
	}

	var callData, callHash string
	call, err := codec.BuildCall(l, tx)
	if err != nil {
		log.Warn("Multisig call data unavailable, approving by hash only",
			zap.String("type", string(tx.Type)),
			zap.String("chain_id", tx.ChainID),
			zap.Error(err),
		)
	} else {
		callData = substrate.HexEncode(call.Data)
		callHash = substrate.HexEncode(l.Hash(call.Data))
	}

	return transaction.Transaction{
		ChainID: tx.ChainID,
		Address: signer,
		Type:    transaction.MultisigAsMulti,
		Args: transaction.Args{
			transaction.ArgThreshold:        strconv.Itoa(w.Account.Threshold),
			transaction.ArgOtherSignatories: addrs,
			transaction.ArgMaybeTimepoint:   nil,
			transaction.ArgCallData:         callData,
			transaction.ArgCallHash:         callHash,
		},
	}, nil
}

func applyProxy(l codec.Ledger, tx transaction.Transaction, w *ProxyWrapper) (transaction.Transaction, error) {
	if w.Proxy == nil {
		return transaction.Transaction{}, ErrProxyNotFound
	}
	proxy, err := l.EncodeAddress(w.Proxy.Base().AccountID)
	if err != nil {
		return transaction.Transaction{}, fmt.Errorf("proxy address: %w", err)
	}
	proxied, err := l.EncodeAddress(w.Proxied.AccountID)
	if err != nil {
		return transaction.Transaction{}, fmt.Errorf("proxied address: %w", err)
	}
	return transaction.Transaction{
		ChainID: tx.ChainID,
		Address: proxy,
		Type:    transaction.Proxy,
		Args: transaction.Args{
			transaction.ArgReal:           proxied,
			transaction.ArgForceProxyType: w.Proxied.ProxyType,
			transaction.ArgTransaction:    tx,
		},
	}, nil
}
