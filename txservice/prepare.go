package txservice

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"go.uber.org/zap"

	"github.com/novasamatech/nova-spektr-sub000/chain/substrate"
	"github.com/novasamatech/nova-spektr-sub000/codec"
	"github.com/novasamatech/nova-spektr-sub000/transaction"
)

// ErrUnknownCall is returned when the weight of an approved call cannot be
// estimated because the wallet does not recognise it.
var ErrUnknownCall = errors.New("unrecognised call")

const (
	argValue         = "value"
	argMaxAdditional = "maxAdditional"
)

// Spending returns the native amounts tx moves out of each paying account,
// keyed by address, not counting fees. Batched calls pay from the batch
// origin and proxied calls from the proxied account. Calls behind a
// multisig are paid by the multisig when it executes, so they are not
// counted.
func Spending(tx transaction.Transaction) (map[string]*big.Int, error) {
	out := make(map[string]*big.Int)
	if err := spending(out, tx, tx.Address, 0); err != nil {
		return nil, err
	}
	return out, nil
}

func spending(out map[string]*big.Int, tx transaction.Transaction, origin string, depth int) error {
	if depth > codec.MaxDepth {
		return codec.ErrDepth
	}

	var arg string
	switch {
	case tx.Type == transaction.Transfer, tx.Type == transaction.Bond:
		arg = argValue
	case tx.Type.IsXcm() && tx.Type != transaction.XTokensTransferMultiasset:
		// the amount is only known when it could be read from the assets
		arg = argValue
	case tx.Type == transaction.StakeMore:
		arg = argMaxAdditional
	case tx.Type == transaction.Proxy:
		inner, ok := tx.Args.Transaction(transaction.ArgTransaction)
		if !ok {
			return nil
		}
		proxied, _ := tx.Args.String(transaction.ArgReal)
		return spending(out, inner, proxied, depth+1)
	case tx.Type == transaction.BatchAll:
		inner, _ := tx.Args.Transactions(transaction.ArgTransactions)
		for i, t := range inner {
			if err := spending(out, t, origin, depth+1); err != nil {
				return fmt.Errorf("batch transaction %d: %w", i, err)
			}
		}
		return nil
	default:
		return nil
	}

	v, ok := tx.Args.String(arg)
	if !ok {
		return nil
	}
	n, ok := new(big.Int).SetString(v, 10)
	if !ok || n.Sign() < 0 {
		return fmt.Errorf("%s of %s: %q is not an amount in planck", arg, tx.Type, v)
	}
	if sum, ok := out[origin]; ok {
		sum.Add(sum, n)
	} else {
		out[origin] = n
	}
	return nil
}

// FillMaxWeight sets maxWeight on every asMulti in tx, including ones behind
// proxy and batch layers, that carries call data and a timepoint but no
// weight. Such an approval may be the final one, which dispatches the call
// and must cover its weight. tx is not modified.
func (s *Service) FillMaxWeight(ctx context.Context, tx transaction.Transaction) (transaction.Transaction, error) {
	return s.fillMaxWeight(ctx, tx, 0)
}

func (s *Service) fillMaxWeight(ctx context.Context, tx transaction.Transaction, depth int) (transaction.Transaction, error) {
	if depth > codec.MaxDepth {
		return tx, codec.ErrDepth
	}

	switch tx.Type {
	case transaction.Proxy:
		inner, ok := tx.Args.Transaction(transaction.ArgTransaction)
		if !ok {
			return tx, nil
		}
		filled, err := s.fillMaxWeight(ctx, inner, depth+1)
		if err != nil {
			return tx, err
		}
		tx.Args = withArg(tx.Args, transaction.ArgTransaction, filled)
	case transaction.BatchAll:
		inner, ok := tx.Args.Transactions(transaction.ArgTransactions)
		if !ok {
			return tx, nil
		}
		filled := make([]transaction.Transaction, len(inner))
		for i, t := range inner {
			f, err := s.fillMaxWeight(ctx, t, depth+1)
			if err != nil {
				return tx, fmt.Errorf("batch transaction %d: %w", i, err)
			}
			filled[i] = f
		}
		tx.Args = withArg(tx.Args, transaction.ArgTransactions, filled)
	case transaction.MultisigAsMulti:
		data, _ := tx.Args.String(transaction.ArgCallData)
		if data == "" || !hasTimepoint(tx.Args[transaction.ArgMaybeTimepoint]) || !weightUnset(tx.Args[transaction.ArgMaxWeight]) {
			return tx, nil
		}
		w, err := s.callWeight(ctx, tx.Address, data)
		if err != nil {
			return tx, fmt.Errorf("max weight: %w", err)
		}
		s.log.Debug("Filled multisig max weight",
			zap.Uint64("ref_time", w.RefTime),
			zap.Uint64("proof_size", w.ProofSize),
		)
		tx.Args = withArg(tx.Args, transaction.ArgMaxWeight, w)
	}
	return tx, nil
}

// callWeight estimates the weight of encoded call data. The origin only
// serves to build the estimate extrinsic; the weight does not depend on it.
func (s *Service) callWeight(ctx context.Context, origin, callData string) (transaction.Weight, error) {
	raw, err := substrate.HexDecode(callData)
	if err != nil {
		return transaction.Weight{}, fmt.Errorf("call data: %w", err)
	}
	decoded, err := codec.Decode(s.rt, s.chainID, origin, raw)
	if err != nil {
		return transaction.Weight{}, err
	}
	if !decoded.Known() {
		return transaction.Weight{}, fmt.Errorf("%w %s.%s, set %s explicitly",
			ErrUnknownCall, decoded.Section, decoded.Method, transaction.ArgMaxWeight)
	}
	return s.EstimateWeight(ctx, decoded.ToTransaction())
}

func withArg(args transaction.Args, name string, v any) transaction.Args {
	out := make(transaction.Args, len(args)+1)
	for k, val := range args {
		out[k] = val
	}
	out[name] = v
	return out
}

func hasTimepoint(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case *transaction.Timepoint:
		return t != nil
	}
	return true
}

func weightUnset(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case transaction.Weight:
		return t.IsZero()
	case *transaction.Weight:
		return t == nil || t.IsZero()
	}
	return false
}
