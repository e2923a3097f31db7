package main

import (
	"fmt"
	"io"
	"os"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/novasamatech/nova-spektr-sub000/chain/substrate"
	"github.com/novasamatech/nova-spektr-sub000/codec"
	"github.com/novasamatech/nova-spektr-sub000/transaction"
)

const FlagAddress = "address"

func newDecodeCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decode [call-hex]",
		Short: "Decode call data into a transaction",
		Example: `  spektr decode --chain polkadot --address 15oF4uVJwmo4TdGW7VfQxNLavjCXviqxT9S1MgbjMNHr6Sp5 0x0503...
  spektr decode --chain kusama --debug 0x1a02...`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ch, err := e.chain(cmd)
			if err != nil {
				return err
			}
			data, err := substrate.HexDecode(args[0])
			if err != nil {
				return fmt.Errorf("call data: %w", err)
			}
			rt, err := e.ledger(cmd.Context(), ch)
			if err != nil {
				return err
			}
			address, _ := cmd.Flags().GetString(FlagAddress)

			decoded, err := codec.Decode(rt, ch.ChainID, address, data)
			if err != nil {
				return err
			}
			e.log.Debug("Decoded call",
				zap.String("section", decoded.Section),
				zap.String("method", decoded.Method),
				zap.String("type", string(decoded.Type)),
			)

			out := cmd.OutOrStdout()
			if debug, _ := cmd.Flags().GetBool(FlagDebug); debug {
				spew.Fdump(out, decoded)
				return nil
			}
			fmt.Fprintf(out, "# %s\n", transaction.DecodedTitle(decoded))
			return transaction.WriteYAML(out, decoded)
		},
	}
	cmd.Flags().String(FlagChain, "", "chain id or name")
	cmd.Flags().String(FlagAddress, "", "dispatch origin of the call")
	cmd.Flags().Bool(FlagDebug, false, "dump the decoded values")
	_ = cmd.MarkFlagRequired(FlagChain)
	return cmd
}

// readTransactions reads a transaction list from path, or stdin for "-".
func readTransactions(cmd *cobra.Command, path string) ([]transaction.Transaction, error) {
	var r io.Reader = cmd.InOrStdin()
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	return transaction.ReadYAML(r)
}
