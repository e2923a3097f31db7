package main

import (
	"context"
	"fmt"
	"maps"
	"math/big"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/novasamatech/nova-spektr-sub000/chain/substrate"
	"github.com/novasamatech/nova-spektr-sub000/transaction"
	"github.com/novasamatech/nova-spektr-sub000/txservice"
)

const FlagCheckBalance = "check-balance"

func newFeeCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fee [transactions.yaml]",
		Short: "Estimate the fees of transactions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			txs, err := readTransactions(cmd, args[0])
			if err != nil {
				return err
			}
			check, _ := cmd.Flags().GetBool(FlagCheckBalance)
			groups, err := e.groupByChain(txs)
			if err != nil {
				return err
			}

			fees := make([]*big.Int, len(txs))
			for _, g := range groups {
				svc, _, err := e.service(cmd.Context(), g, nil)
				if err != nil {
					return err
				}
				if err := prepare(cmd.Context(), svc, g); err != nil {
					return err
				}
				if !check {
					got, err := svc.EstimateFees(cmd.Context(), g.txs)
					if err != nil {
						return err
					}
					for j, fee := range got {
						fees[g.index[j]] = fee
					}
					continue
				}
				for j, tx := range g.txs {
					fee, err := checkBalances(cmd.Context(), svc, tx)
					if err != nil {
						return fmt.Errorf("transaction %d: %w", g.index[j], err)
					}
					fees[g.index[j]] = fee
				}
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, g := range groups {
				for j, tx := range g.txs {
					amount, err := transaction.FormatAmount(fees[g.index[j]].String(), g.chain.Precision)
					if err != nil {
						return err
					}
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", g.index[j], g.chain.Name, tx.Type, amount)
				}
			}
			return w.Flush()
		},
	}
	cmd.Flags().Bool(FlagCheckBalance, false, "fail when a paying account cannot cover the fee and the amounts it sends, bonds or stakes")
	return cmd
}

// checkBalances checks that the origin of tx can pay the fee and what tx
// spends from it, and that every other paying account, such as a proxied
// one, can cover its share. It returns the fee.
func checkBalances(ctx context.Context, svc *txservice.Service, tx transaction.Transaction) (*big.Int, error) {
	spend, err := txservice.Spending(tx)
	if err != nil {
		return nil, err
	}
	fee, err := svc.CheckFeeBalance(ctx, tx, spend[tx.Address])
	if err != nil {
		return nil, err
	}
	for _, addr := range slices.Sorted(maps.Keys(spend)) {
		if addr == tx.Address {
			continue
		}
		if err := svc.CheckBalance(ctx, addr, spend[addr]); err != nil {
			return nil, err
		}
	}
	return fee, nil
}

// prepare fills the max weight of final multisig approvals in g.
func prepare(ctx context.Context, svc *txservice.Service, g *chainGroup) error {
	for j, tx := range g.txs {
		filled, err := svc.FillMaxWeight(ctx, tx)
		if err != nil {
			return fmt.Errorf("transaction %d: %w", g.index[j], err)
		}
		g.txs[j] = filled
	}
	return nil
}

// service connects to the chain of g and returns its transaction service
// and runtime.
func (e *env) service(ctx context.Context, g *chainGroup, metrics txservice.Metrics) (*txservice.Service, *substrate.Runtime, error) {
	var (
		client txservice.Client
		rt     *substrate.Runtime
		err    error
	)
	if e.node != nil {
		if client, err = e.node(ctx, g.chain); err != nil {
			return nil, nil, err
		}
		rt, err = e.ledger(ctx, g.chain)
	} else {
		var c *substrate.Client
		if c, err = e.dial(ctx, g.chain); err != nil {
			return nil, nil, err
		}
		client = c
		if e.runtime == nil && g.chain.MetadataFile == "" {
			rt, err = c.Runtime(ctx)
		} else {
			rt, err = e.ledger(ctx, g.chain)
		}
	}
	if err != nil {
		return nil, nil, err
	}
	svc := txservice.New(e.log.Logger, g.chain.ChainID, client, rt, metrics)
	return svc.WithOptions(g.chain.Options()), rt, nil
}
