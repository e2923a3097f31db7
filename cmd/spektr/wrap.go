package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/novasamatech/nova-spektr-sub000/chain/substrate"
	"github.com/novasamatech/nova-spektr-sub000/codec"
	"github.com/novasamatech/nova-spektr-sub000/transaction"
	"github.com/novasamatech/nova-spektr-sub000/txservice"
	"github.com/novasamatech/nova-spektr-sub000/wallet"
	"github.com/novasamatech/nova-spektr-sub000/wrapper"
)

const FlagTimepoint = "timepoint"

type wrapOutput struct {
	Layers   []string                 `yaml:"layers,omitempty"`
	Wrapped  transaction.Transaction  `yaml:"wrapped"`
	Multisig *transaction.Transaction `yaml:"multisig,omitempty"`
}

func newWrapCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wrap [transactions.yaml]",
		Short: "Wrap transactions for the multisig and proxied accounts that send them",
		Long: `Wrap looks up the origin of every transaction in the wallet file and adds
the proxy and multisig layers needed for a signing account to dispatch it.
Signatories are chosen per multisig layer, outermost first.

With --timepoint the outermost multisig approval follows the one opened at
that block height and extrinsic index, and its max weight is estimated on
the node so the approval can execute the call.`,
		Example: `  spektr wrap --signatory 15oF4uVJwmo4TdGW7VfQxNLavjCXviqxT9S1MgbjMNHr6Sp5 bond.yaml
  spektr wrap --signatory 15oF4uVJwmo4TdGW7VfQxNLavjCXviqxT9S1MgbjMNHr6Sp5 --timepoint 18000000-3 bond.yaml`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			txs, err := readTransactions(cmd, args[0])
			if err != nil {
				return err
			}
			signatories, _ := cmd.Flags().GetStringArray(FlagSignatory)
			var tp *transaction.Timepoint
			if s, _ := cmd.Flags().GetString(FlagTimepoint); s != "" {
				parsed, err := transaction.ParseTimepoint(s)
				if err != nil {
					return err
				}
				tp = &parsed
			}
			dir, err := e.wallets()
			if err != nil {
				return err
			}
			groups, err := e.groupByChain(txs)
			if err != nil {
				return err
			}

			out := make([]wrapOutput, len(txs))
			for _, g := range groups {
				var (
					rt  *substrate.Runtime
					svc *txservice.Service
				)
				if tp != nil {
					svc, rt, err = e.service(cmd.Context(), g, nil)
				} else {
					rt, err = e.ledger(cmd.Context(), g.chain)
				}
				if err != nil {
					return err
				}
				chosen, err := lookupAccounts(rt, dir, g.chain.ChainID, signatories)
				if err != nil {
					return err
				}
				for j, tx := range g.txs {
					i := g.index[j]
					res, err := wrapTransaction(e, rt, dir, tx, chosen)
					if err == nil && tp != nil {
						res, err = approveAt(cmd.Context(), svc, res, *tp)
					}
					if err != nil {
						return fmt.Errorf("transaction %d: %w", i, err)
					}
					out[i] = res
				}
			}
			return transaction.WriteYAML(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringArray(FlagSignatory, nil, "address of the signatory acting for a multisig layer")
	cmd.Flags().String(FlagTimepoint, "", "height-index of the extrinsic that opened the multisig operation")
	return cmd
}

// approveAt sets the timepoint of the outermost multisig approval in out,
// looking through proxy layers, and fills its max weight.
func approveAt(ctx context.Context, svc *txservice.Service, out wrapOutput, tp transaction.Timepoint) (wrapOutput, error) {
	wrapped, approval, err := withTimepoint(out.Wrapped, tp, 0)
	if err != nil {
		return wrapOutput{}, err
	}
	if out.Wrapped, err = svc.FillMaxWeight(ctx, wrapped); err != nil {
		return wrapOutput{}, err
	}
	if out.Multisig == nil || !sameCall(*out.Multisig, approval) {
		return out, nil
	}
	ms, err := svc.FillMaxWeight(ctx, approval)
	if err != nil {
		return wrapOutput{}, err
	}
	out.Multisig = &ms
	return out, nil
}

// withTimepoint returns tx with the timepoint set on its outermost asMulti,
// and that asMulti.
func withTimepoint(tx transaction.Transaction, tp transaction.Timepoint, depth int) (transaction.Transaction, transaction.Transaction, error) {
	if depth > codec.MaxDepth {
		return tx, tx, codec.ErrDepth
	}
	args := make(transaction.Args, len(tx.Args)+1)
	for k, v := range tx.Args {
		args[k] = v
	}
	switch tx.Type {
	case transaction.MultisigAsMulti:
		args[transaction.ArgMaybeTimepoint] = tp
		tx.Args = args
		return tx, tx, nil
	case transaction.Proxy:
		inner, ok := tx.Args.Transaction(transaction.ArgTransaction)
		if !ok {
			break
		}
		inner, approval, err := withTimepoint(inner, tp, depth+1)
		if err != nil {
			return tx, tx, err
		}
		args[transaction.ArgTransaction] = inner
		tx.Args = args
		return tx, approval, nil
	}
	return tx, tx, errors.New("no multisig approval to set the timepoint on")
}

func sameCall(a, b transaction.Transaction) bool {
	ha, _ := a.Args.String(transaction.ArgCallHash)
	hb, _ := b.Args.String(transaction.ArgCallHash)
	return ha != "" && ha == hb && a.Address == b.Address
}

func wrapTransaction(e *env, rt *substrate.Runtime, dir *wallet.Directory, tx transaction.Transaction, chosen []wallet.Account) (wrapOutput, error) {
	id, err := rt.DecodeAddress(tx.Address)
	if err != nil {
		return wrapOutput{}, err
	}
	target, err := originAccount(dir, id, tx.ChainID)
	if err != nil {
		return wrapOutput{}, err
	}
	wrappers, err := wrapper.Resolve(tx.ChainID, target, dir, chosen)
	if err != nil {
		return wrapOutput{}, err
	}
	res, err := wrapper.Apply(e.log.Logger, rt, tx, wrappers)
	if errors.Is(err, wrapper.ErrNoSigner) {
		return wrapOutput{}, fmt.Errorf("%w, pick one with --%s", err, FlagSignatory)
	}
	if err != nil {
		return wrapOutput{}, err
	}

	out := wrapOutput{Wrapped: res.Wrapped, Multisig: res.Multisig}
	for _, w := range wrappers {
		out.Layers = append(out.Layers, describe(rt, w))
	}
	return out, nil
}

// originAccount prefers an account that needs wrapping, so that a multisig
// or proxied account also held as watch-only resolves to its layers.
func originAccount(dir *wallet.Directory, id []byte, chainID string) (wallet.Account, error) {
	accounts := dir.AccountsByID(id, chainID)
	if len(accounts) == 0 {
		return nil, fmt.Errorf("%w: no account %s", wallet.ErrUnknownWallet, wallet.AccountID(id))
	}
	for _, a := range accounts {
		w, err := dir.WalletOf(a)
		if err != nil {
			return nil, err
		}
		if w.Kind == wallet.Multisig || w.Kind == wallet.Proxied {
			return a, nil
		}
	}
	return accounts[0], nil
}

func lookupAccounts(rt *substrate.Runtime, dir *wallet.Directory, chainID string, addresses []string) ([]wallet.Account, error) {
	out := make([]wallet.Account, 0, len(addresses))
	for _, addr := range addresses {
		id, err := rt.DecodeAddress(addr)
		if err != nil {
			return nil, fmt.Errorf("signatory %s: %w", addr, err)
		}
		if a, ok := dir.Signer(id, chainID); ok {
			out = append(out, a)
			continue
		}
		accounts := dir.AccountsByID(id, chainID)
		if len(accounts) == 0 {
			return nil, fmt.Errorf("signatory %s is not in the wallet file", addr)
		}
		out = append(out, accounts[0])
	}
	return out, nil
}

func describe(rt *substrate.Runtime, w wrapper.Wrapper) string {
	addr := func(a wallet.Account) string {
		s, err := rt.EncodeAddress(a.Base().AccountID)
		if err != nil {
			return a.Base().AccountID.String()
		}
		return s
	}
	switch w := w.(type) {
	case *wrapper.MultisigWrapper:
		return fmt.Sprintf("multisig %d of %d signed by %s", w.Account.Threshold, len(w.Account.Signatories), addr(w.Signer))
	case *wrapper.ProxyWrapper:
		return fmt.Sprintf("proxy %s through %s", w.Proxied.ProxyType, addr(w.Proxy))
	}
	return fmt.Sprintf("%T", w)
}
