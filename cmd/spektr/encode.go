package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/novasamatech/nova-spektr-sub000/chain/substrate"
	"github.com/novasamatech/nova-spektr-sub000/codec"
	"github.com/novasamatech/nova-spektr-sub000/transaction"
)

const FlagTokens = "tokens"

// amountArgs are the arguments converted by --tokens.
var amountArgs = []string{"value", "maxAdditional"}

type encodedCall struct {
	ChainID  string           `yaml:"chainId"`
	Type     transaction.Type `yaml:"type"`
	Section  string           `yaml:"section"`
	Method   string           `yaml:"method"`
	CallData string           `yaml:"callData"`
	CallHash string           `yaml:"callHash"`
}

func newEncodeCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "encode [transactions.yaml]",
		Short: "Encode transactions into call data",
		Example: `  spektr encode transfers.yaml
  spektr encode --tokens - < transfers.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			txs, err := readTransactions(cmd, args[0])
			if err != nil {
				return err
			}
			tokens, _ := cmd.Flags().GetBool(FlagTokens)

			groups, err := e.groupByChain(txs)
			if err != nil {
				return err
			}
			out := make([]encodedCall, len(txs))
			for _, g := range groups {
				rt, err := e.ledger(cmd.Context(), g.chain)
				if err != nil {
					return err
				}
				for j, tx := range g.txs {
					i := g.index[j]
					if tokens {
						if tx, err = toPlanck(tx, g.chain.Precision); err != nil {
							return fmt.Errorf("transaction %d: %w", i, err)
						}
					}
					call, err := codec.BuildCall(rt, tx)
					if err != nil {
						return fmt.Errorf("transaction %d: %w", i, err)
					}
					out[i] = encodedCall{
						ChainID:  tx.ChainID,
						Type:     tx.Type,
						Section:  call.Section,
						Method:   call.Method,
						CallData: substrate.HexEncode(call.Data),
						CallHash: substrate.HexEncode(rt.Hash(call.Data)),
					}
				}
			}
			return transaction.WriteYAML(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().Bool(FlagTokens, false, "read value amounts in tokens instead of planck")
	return cmd
}

// toPlanck returns tx with its amount arguments converted from tokens.
// Nested transactions are converted too.
func toPlanck(tx transaction.Transaction, precision int32) (transaction.Transaction, error) {
	args := make(transaction.Args, len(tx.Args))
	for k, v := range tx.Args {
		args[k] = v
	}
	for _, name := range amountArgs {
		text, ok := args.String(name)
		if !ok {
			continue
		}
		planck, err := transaction.ParseAmount(text, precision)
		if err != nil {
			return tx, fmt.Errorf("%s: %w", name, err)
		}
		args[name] = planck
	}
	if inner, ok := args.Transaction(transaction.ArgTransaction); ok {
		converted, err := toPlanck(inner, precision)
		if err != nil {
			return tx, err
		}
		args[transaction.ArgTransaction] = converted
	}
	if inner, ok := args.Transactions(transaction.ArgTransactions); ok {
		converted := make([]transaction.Transaction, len(inner))
		for i, itx := range inner {
			c, err := toPlanck(itx, precision)
			if err != nil {
				return tx, err
			}
			converted[i] = c
		}
		args[transaction.ArgTransactions] = converted
	}
	tx.Args = args
	return tx, nil
}
