package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/novasamatech/nova-spektr-sub000/chain/substrate"
	"github.com/novasamatech/nova-spektr-sub000/internal/history"
	"github.com/novasamatech/nova-spektr-sub000/transaction"
	"github.com/novasamatech/nova-spektr-sub000/txservice"
)

const (
	FlagSURI   = "suri"
	FlagDev    = "dev"
	FlagCrypto = "crypto"
)

type submitOutput struct {
	Index          int                   `yaml:"index"`
	OK             bool                  `yaml:"ok"`
	Timepoint      transaction.Timepoint `yaml:"timepoint"`
	ExtrinsicHash  string                `yaml:"extrinsicHash"`
	BlockHash      string                `yaml:"blockHash,omitempty"`
	IsFinalApprove bool                  `yaml:"isFinalApprove,omitempty"`
	MultisigError  string                `yaml:"multisigError,omitempty"`
	Error          string                `yaml:"error,omitempty"`
}

func newSubmitCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submit [transactions.yaml]",
		Short: "Sign and submit transactions, waiting for their outcome",
		Long: `Submit signs every transaction with one key and submits them concurrently.
Transactions without an address are sent from the signing account.`,
		Example: `  spektr submit --dev alice transfers.yaml
  spektr submit --suri "$MNEMONIC//polkadot" --crypto ed25519 wrapped.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			signer, err := signerFromFlags(cmd)
			if err != nil {
				return err
			}
			txs, err := readTransactions(cmd, args[0])
			if err != nil {
				return err
			}
			groups, err := e.groupByChain(txs)
			if err != nil {
				return err
			}

			metrics, stop, err := e.serveMetrics(cmd.Context())
			if err != nil {
				return err
			}
			defer stop()

			db, err := e.openHistory(cmd.Context())
			if err != nil {
				return err
			}
			var journal *history.Journal
			if db != nil {
				journal = history.NewJournal(db)
			}

			var (
				mu  sync.Mutex
				out = make([]submitOutput, len(txs))
			)
			for _, g := range groups {
				svc, rt, err := e.service(cmd.Context(), g, metrics)
				if err != nil {
					return err
				}
				exts, nonces, err := e.sign(cmd.Context(), svc, rt, g, signer)
				if err != nil {
					return err
				}
				if journal != nil {
					for j, ext := range exts {
						if err := journal.Record(cmd.Context(), history.Entry{
							ChainID:       g.chain.ChainID,
							ExtrinsicHash: substrate.HexEncode(ext.Hash),
							Nonce:         nonces[j],
							Transaction:   g.txs[j],
						}); err != nil {
							return err
						}
					}
				}
				svc.SubmitAll(cmd.Context(), exts, func(j int, ok bool, res txservice.Result) {
					if journal != nil {
						e.finish(cmd.Context(), journal, g.chain.ChainID, ok, res)
					}
					mu.Lock()
					defer mu.Unlock()
					out[g.index[j]] = submitOutput{
						Index:          g.index[j],
						OK:             ok,
						Timepoint:      res.Timepoint,
						ExtrinsicHash:  res.ExtrinsicHash,
						BlockHash:      res.BlockHash,
						IsFinalApprove: res.IsFinalApprove,
						MultisigError:  res.MultisigError,
						Error:          res.Error,
					}
				})
			}
			if err := cmd.Context().Err(); err != nil {
				return err
			}
			if err := transaction.WriteYAML(cmd.OutOrStdout(), out); err != nil {
				return err
			}

			var failed int
			for _, o := range out {
				if !o.OK {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d submissions failed", failed, len(out))
			}
			return nil
		},
	}
	cmd.Flags().String(FlagSURI, "", "secret uri of the signing key")
	cmd.Flags().String(FlagDev, "", "development account to sign with, such as alice or alice//stash")
	cmd.Flags().String(FlagCrypto, "sr25519", "key type: sr25519, ed25519 or ecdsa")
	cmd.MarkFlagsOneRequired(FlagSURI, FlagDev)
	cmd.MarkFlagsMutuallyExclusive(FlagSURI, FlagDev)
	return cmd
}

func signerFromFlags(cmd *cobra.Command) (substrate.Signer, error) {
	name, _ := cmd.Flags().GetString(FlagCrypto)
	ct, err := substrate.ParseCryptoType(name)
	if err != nil {
		return nil, err
	}
	if dev, _ := cmd.Flags().GetString(FlagDev); dev != "" {
		return substrate.DevSigner(ct, strings.Split(dev, "//")...)
	}
	suri, _ := cmd.Flags().GetString(FlagSURI)
	return substrate.NewSigner(suri, ct)
}

// sign builds and signs the transactions of g in order, filling the max
// weight of final multisig approvals. Nonces of later transactions from the
// same account follow the first one.
func (e *env) sign(ctx context.Context, svc *txservice.Service, rt *substrate.Runtime, g *chainGroup, signer substrate.Signer) ([]*substrate.SignedExtrinsic, []uint64, error) {
	origin, err := rt.EncodeAddress(signer.AccountID())
	if err != nil {
		return nil, nil, err
	}

	var (
		exts   = make([]*substrate.SignedExtrinsic, len(g.txs))
		nonces = make([]uint64, len(g.txs))
		next   *uint64
	)
	for j, tx := range g.txs {
		i := g.index[j]
		if tx.Address == "" {
			tx.Address = origin
		}
		filled, err := svc.FillMaxWeight(ctx, tx)
		if err != nil {
			return nil, nil, fmt.Errorf("transaction %d: %w", i, err)
		}
		tx = filled
		g.txs[j] = tx
		id, err := rt.DecodeAddress(tx.Address)
		if err != nil {
			return nil, nil, fmt.Errorf("transaction %d: %w", i, err)
		}
		if !bytes.Equal(id, signer.AccountID()) {
			return nil, nil, fmt.Errorf("transaction %d: sent from %s but signed by %s", i, tx.Address, origin)
		}
		unsigned, err := svc.Unsigned(ctx, tx)
		if err != nil {
			return nil, nil, fmt.Errorf("transaction %d: %w", i, err)
		}
		if next != nil && *next > unsigned.Nonce {
			unsigned.Nonce = *next
		}
		n := unsigned.Nonce + 1
		next = &n

		signed, err := unsigned.Sign(signer)
		if err != nil {
			return nil, nil, fmt.Errorf("transaction %d: %w", i, err)
		}
		e.log.Info("Signed extrinsic",
			zap.Int("index", i),
			zap.String("type", string(tx.Type)),
			zap.Uint64("nonce", unsigned.Nonce),
			zap.String("hash", substrate.HexEncode(signed.Hash)),
		)
		exts[j], nonces[j] = signed, unsigned.Nonce
	}
	return exts, nonces, nil
}

// finish stores the outcome of a submission. Journal failures are logged
// since the extrinsic is already on its way.
func (e *env) finish(ctx context.Context, journal *history.Journal, chainID string, ok bool, res txservice.Result) {
	err := journal.Finish(ctx, chainID, res.ExtrinsicHash, history.Outcome{
		OK:             ok,
		BlockHash:      res.BlockHash,
		Height:         res.Timepoint.Height,
		Index:          res.Timepoint.Index,
		IsFinalApprove: res.IsFinalApprove,
		MultisigError:  res.MultisigError,
		Error:          res.Error,
	})
	if err != nil {
		e.log.Warn("Failed to record submission outcome", zap.String("hash", res.ExtrinsicHash), zap.Error(err))
	}
}

// serveMetrics exposes submission metrics when a listen address is
// configured. stop shuts the endpoint down.
func (e *env) serveMetrics(ctx context.Context) (txservice.Metrics, func(), error) {
	listen := e.cfg.Metrics.Listen
	if listen == "" {
		return txservice.NopMetrics{}, func() {}, nil
	}
	reg := prometheus.NewRegistry()
	metrics, err := txservice.NewPrometheusMetrics(reg)
	if err != nil {
		return nil, nil, err
	}

	srv := &http.Server{
		Addr:              listen,
		Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.log.Warn("Metrics endpoint stopped", zap.String("listen", listen), zap.Error(err))
		}
	}()
	e.log.Info("Serving metrics", zap.String("listen", listen))

	stop := func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
	return metrics, stop, nil
}
