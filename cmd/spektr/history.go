package main

import (
	"context"
	"database/sql"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/novasamatech/nova-spektr-sub000/internal/history"
	"github.com/novasamatech/nova-spektr-sub000/transaction"
)

const (
	FlagLimit   = "limit"
	FlagSummary = "summary"

	// schemaVersion is bumped with every change to the history schema.
	schemaVersion = "1"
)

// openHistory opens the journal database, or returns nil when none is
// configured.
func (e *env) openHistory(ctx context.Context) (*sql.DB, error) {
	if e.cfg.History == "" {
		return nil, nil
	}
	if e.db != nil {
		return e.db, nil
	}
	db, err := history.ConnectDB(ctx, e.cfg.History)
	if err != nil {
		return nil, err
	}
	if err := history.Migrate(db, schemaVersion); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate history: %w", err)
	}
	e.db = db
	return db, nil
}

func newHistoryCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show submitted extrinsics and their outcomes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := e.openHistory(cmd.Context())
			if err != nil {
				return err
			}
			if db == nil {
				return fmt.Errorf("no history database configured")
			}
			q := history.NewQuery(db)
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)

			if summary, _ := cmd.Flags().GetBool(FlagSummary); summary {
				res, err := q.ChainSummaries(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(w, "CHAIN\tTOTAL\tSUCCEEDED\tFAILED\tPENDING\tFINAL APPROVALS\tLAST BLOCK")
				for _, r := range res {
					fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%d\t%s\n",
						e.chainName(r.ChainID), r.Total, r.Succeeded, r.Failed, r.Pending, r.FinalApprovals, nullInt(r.LastHeight))
				}
				return w.Flush()
			}

			var chainID string
			if key, _ := cmd.Flags().GetString(FlagChain); key != "" {
				ch, err := e.cfg.Chain(key)
				if err != nil {
					return err
				}
				chainID = ch.ChainID
			}
			limit, _ := cmd.Flags().GetInt(FlagLimit)
			res, err := q.RecentSubmissions(cmd.Context(), chainID, limit)
			if err != nil {
				return err
			}
			fmt.Fprintln(w, "CHAIN\tTYPE\tSTATUS\tTIMEPOINT\tHASH\tDETAIL")
			for _, r := range res {
				timepoint := "-"
				if r.BlockHeight.Valid {
					timepoint = fmt.Sprintf("%d-%d", r.BlockHeight.Int64, r.ExtrinsicIndex.Int64)
				}
				detail := r.Error.String
				if r.FinalApprove {
					detail = "final approval"
					if r.MultisigError.Valid {
						detail += ": " + r.MultisigError.String
					}
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					e.chainName(r.ChainID), transaction.Title(r.Type), r.Status, timepoint, r.ExtrinsicHash, detail)
			}
			return w.Flush()
		},
	}
	cmd.Flags().String(FlagChain, "", "only show this chain")
	cmd.Flags().Int(FlagLimit, 20, "number of submissions to show")
	cmd.Flags().Bool(FlagSummary, false, "show totals per chain")
	return cmd
}

func (e *env) chainName(chainID string) string {
	if ch, err := e.cfg.Chain(chainID); err == nil {
		return ch.Name
	}
	return chainID
}

func nullInt(n sql.NullInt64) string {
	if !n.Valid {
		return "-"
	}
	return fmt.Sprint(n.Int64)
}
