package main

import (
	"github.com/spf13/cobra"

	"github.com/novasamatech/nova-spektr-sub000/chain/substrate"
	"github.com/novasamatech/nova-spektr-sub000/transaction"
)

const (
	FlagNew = "new"

	// genericSS58Format is used when no chain is given.
	genericSS58Format = 42
)

type keyOutput struct {
	Mnemonic  string `yaml:"mnemonic,omitempty"`
	Crypto    string `yaml:"crypto"`
	Address   string `yaml:"address"`
	PublicKey string `yaml:"publicKey"`
	AccountID string `yaml:"accountId"`
}

func newKeyCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Show the account of a signing key, or generate a new one",
		Example: `  spektr key --dev alice --chain polkadot
  spektr key --new`,
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipConfig: ""},
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				signer substrate.Signer
				out    keyOutput
				err    error
			)
			if gen, _ := cmd.Flags().GetBool(FlagNew); gen {
				name, _ := cmd.Flags().GetString(FlagCrypto)
				ct, err := substrate.ParseCryptoType(name)
				if err != nil {
					return err
				}
				if out.Mnemonic, err = substrate.GenerateMnemonic(); err != nil {
					return err
				}
				if signer, err = substrate.NewSigner(out.Mnemonic, ct); err != nil {
					return err
				}
			} else if signer, err = signerFromFlags(cmd); err != nil {
				return err
			}

			out.Crypto = signer.CryptoType().String()
			out.PublicKey = substrate.HexEncode(signer.PublicKey())
			out.AccountID = substrate.HexEncode(signer.AccountID())

			key, _ := cmd.Flags().GetString(FlagChain)
			if key == "" {
				out.Address, err = substrate.EncodeAddressSS58(signer.AccountID(), genericSS58Format)
				if err != nil {
					return err
				}
				return transaction.WriteYAML(cmd.OutOrStdout(), out)
			}

			// only a chain lookup needs the configuration
			if err := e.load(cmd); err != nil {
				return err
			}
			ch, err := e.cfg.Chain(key)
			if err != nil {
				return err
			}
			rt, err := e.ledger(cmd.Context(), ch)
			if err != nil {
				return err
			}
			if out.Address, err = rt.EncodeAddress(signer.AccountID()); err != nil {
				return err
			}
			return transaction.WriteYAML(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().String(FlagSURI, "", "secret uri: mnemonic, hex seed or //Path, with an optional derivation path")
	cmd.Flags().String(FlagDev, "", "development account name, e.g. alice or alice//stash")
	cmd.Flags().Bool(FlagNew, false, "generate a new mnemonic")
	cmd.Flags().String(FlagCrypto, "sr25519", "signature scheme: sr25519, ed25519 or ecdsa")
	cmd.Flags().String(FlagChain, "", "encode the address for this chain")
	cmd.MarkFlagsOneRequired(FlagSURI, FlagDev, FlagNew)
	cmd.MarkFlagsMutuallyExclusive(FlagSURI, FlagDev, FlagNew)
	return cmd
}
