package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/novasamatech/nova-spektr-sub000/chain/substrate"
	"github.com/novasamatech/nova-spektr-sub000/internal/config"
	"github.com/novasamatech/nova-spektr-sub000/log"
	"github.com/novasamatech/nova-spektr-sub000/transaction"
	"github.com/novasamatech/nova-spektr-sub000/txservice"
	"github.com/novasamatech/nova-spektr-sub000/wallet"
)

const (
	FlagConfig    = "config"
	FlagSet       = "set"
	FlagChain     = "chain"
	FlagDebug     = "debug"
	FlagSignatory = "signatory"

	// skipConfig marks commands that run without a configuration file.
	skipConfig = "skip-config"
)

// env is the state shared by the subcommands of one invocation.
type env struct {
	cfg config.Config
	log log.Closer

	clients []*substrate.Client
	db      *sql.DB
	// runtime overrides how a chain's runtime is obtained.
	runtime func(ctx context.Context, ch config.Chain) (*substrate.Runtime, error)
	// node overrides how a chain's node is reached.
	node func(ctx context.Context, ch config.Chain) (txservice.Client, error)
}

func newEnv() *env {
	return &env{log: log.Closer{Logger: log.Nop()}}
}

func newRootCmd(e *env) *cobra.Command {
	root := &cobra.Command{
		Use:   "spektr",
		Short: "Build, wrap, estimate and submit Substrate wallet transactions",
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if _, ok := cmd.Annotations[skipConfig]; ok {
				return nil
			}
			return e.load(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return e.close()
		},
	}

	root.PersistentFlags().String(FlagConfig, "spektr.toml", "path to the configuration file")
	root.PersistentFlags().StringArray(FlagSet, nil, "override a configuration value (key.path=value)")

	root.AddCommand(
		newConfigCmd(),
		newTypesCmd(),
		newKeyCmd(e),
		newDecodeCmd(e),
		newEncodeCmd(e),
		newWrapCmd(e),
		newFeeCmd(e),
		newSubmitCmd(e),
		newHistoryCmd(e),
	)
	return root
}

func (e *env) load(cmd *cobra.Command) error {
	path, err := cmd.Flags().GetString(FlagConfig)
	if err != nil {
		return err
	}
	sets, err := cmd.Flags().GetStringArray(FlagSet)
	if err != nil {
		return err
	}
	overrides, err := config.ParseOverrides(sets)
	if err != nil {
		return err
	}
	cfg, err := config.Load(path, overrides)
	if err != nil {
		return err
	}
	lc, err := log.Open(cfg.Log.File, cfg.Log.Format, cfg.Log.Level)
	if err != nil {
		return err
	}
	e.cfg, e.log = cfg, lc
	e.log.Debug("Loaded config", zap.String("path", path), zap.Int("chains", len(cfg.Chains)))
	return nil
}

func (e *env) close() error {
	for _, c := range e.clients {
		c.Close()
	}
	e.clients = nil
	var err error
	if e.db != nil {
		multierr.AppendInto(&err, e.db.Close())
		e.db = nil
	}
	multierr.AppendInto(&err, e.log.Close())
	return err
}

// dial connects to the node of ch. The client is closed with the env.
func (e *env) dial(ctx context.Context, ch config.Chain) (*substrate.Client, error) {
	if ch.URL == "" {
		return nil, fmt.Errorf("chain %s has no url", ch.Name)
	}
	c, err := substrate.Dial(ctx, e.log.Logger, ch.ClientConfig())
	if err != nil {
		return nil, err
	}
	e.clients = append(e.clients, c)
	return c, nil
}

// ledger returns the runtime of ch, from its metadata file when one is
// configured and from the node otherwise.
func (e *env) ledger(ctx context.Context, ch config.Chain) (*substrate.Runtime, error) {
	if e.runtime != nil {
		return e.runtime(ctx, ch)
	}
	if ch.MetadataFile != "" {
		meta, err := substrate.LoadMetadataFile(ch.MetadataFile)
		if err != nil {
			return nil, err
		}
		return substrate.RuntimeFromMetadata(meta, ch.SS58Format)
	}
	c, err := e.dial(ctx, ch)
	if err != nil {
		return nil, err
	}
	return c.Runtime(ctx)
}

func (e *env) chain(cmd *cobra.Command) (config.Chain, error) {
	key, err := cmd.Flags().GetString(FlagChain)
	if err != nil {
		return config.Chain{}, err
	}
	return e.cfg.Chain(key)
}

func (e *env) wallets() (*wallet.Directory, error) {
	if e.cfg.Wallets == "" {
		return nil, errors.New("no wallet file configured")
	}
	return wallet.Load(e.cfg.Wallets)
}

// chainGroup is the transactions of one chain with their input positions.
type chainGroup struct {
	chain config.Chain
	txs   []transaction.Transaction
	index []int
}

// groupByChain splits txs by chain id, keeping first-seen chain order.
func (e *env) groupByChain(txs []transaction.Transaction) ([]*chainGroup, error) {
	var (
		groups []*chainGroup
		byID   = make(map[string]*chainGroup)
	)
	for i, tx := range txs {
		g, ok := byID[tx.ChainID]
		if !ok {
			ch, err := e.cfg.Chain(tx.ChainID)
			if err != nil {
				return nil, fmt.Errorf("transaction %d: %w", i, err)
			}
			g = &chainGroup{chain: ch}
			byID[tx.ChainID] = g
			groups = append(groups, g)
		}
		g.txs = append(g.txs, tx)
		g.index = append(g.index, i)
	}
	return groups, nil
}
