package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/novasamatech/nova-spektr-sub000/transaction"
)

// Query is a service that queries the database.
type Query struct {
	db *sql.DB
}

func NewQuery(db *sql.DB) *Query {
	return &Query{db: db}
}

func timeToLocal(timeStr string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, timeStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("time.Parse RFC3339: %w", err)
	}
	return t.In(time.Local), nil
}

type SchemaVersionResult struct {
	Version string
	// Always set to user's local time zone.
	CreatedAt time.Time
}

// CurrentSchemaVersion returns the latest version that produced the sqlite schema.
func (q *Query) CurrentSchemaVersion(ctx context.Context) (SchemaVersionResult, error) {
	row := q.db.QueryRowContext(ctx, `SELECT version, created_at FROM schema_version ORDER BY id DESC limit 1`)
	var (
		res      SchemaVersionResult
		createAt string
	)
	if err := row.Scan(&res.Version, &createAt); err != nil {
		return res, err
	}
	t, err := timeToLocal(createAt)
	if err != nil {
		return res, fmt.Errorf("parse createdAt: %w", err)
	}
	res.CreatedAt = t
	return res, nil
}

// SubmissionResult is one journal entry.
type SubmissionResult struct {
	ID             int64
	ChainID        string
	ExtrinsicHash  string
	Type           transaction.Type
	Address        string
	Nonce          uint64
	Status         string
	BlockHash      sql.NullString
	BlockHeight    sql.NullInt64
	ExtrinsicIndex sql.NullInt64
	FinalApprove   bool
	MultisigError  sql.NullString
	Error          sql.NullString
	// Always set to user's local time zone.
	CreatedAt time.Time
}

// RecentSubmissions returns the newest submissions first. An empty chainID
// returns every chain.
func (q *Query) RecentSubmissions(ctx context.Context, chainID string, limit int) ([]SubmissionResult, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT
        id, chain_id, extrinsic_hash, tx_type, address, nonce, status,
        block_hash, block_height, extrinsic_index, final_approve, multisig_error, error, created_at
    FROM submission
    WHERE ? = '' OR chain_id = ?
    ORDER BY id DESC LIMIT ?`, chainID, chainID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []SubmissionResult
	for rows.Next() {
		var (
			res       SubmissionResult
			txType    string
			createdAt string
		)
		if err := rows.Scan(
			&res.ID,
			&res.ChainID,
			&res.ExtrinsicHash,
			&txType,
			&res.Address,
			&res.Nonce,
			&res.Status,
			&res.BlockHash,
			&res.BlockHeight,
			&res.ExtrinsicIndex,
			&res.FinalApprove,
			&res.MultisigError,
			&res.Error,
			&createdAt,
		); err != nil {
			return nil, err
		}
		res.Type = transaction.Type(txType)
		t, err := timeToLocal(createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse createdAt: %w", err)
		}
		res.CreatedAt = t
		results = append(results, res)
	}
	return results, rows.Err()
}

// Transaction returns the transaction recorded for an extrinsic.
func (q *Query) Transaction(ctx context.Context, chainID, extrinsicHash string) (transaction.Transaction, error) {
	row := q.db.QueryRowContext(ctx, `SELECT data FROM submission WHERE chain_id = ? AND extrinsic_hash = ?`, chainID, extrinsicHash)
	var data string
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return transaction.Transaction{}, fmt.Errorf("%w %s on %s", ErrUnknownSubmission, extrinsicHash, chainID)
		}
		return transaction.Transaction{}, err
	}
	var tx transaction.Transaction
	if err := json.Unmarshal([]byte(data), &tx); err != nil {
		return transaction.Transaction{}, fmt.Errorf("decode transaction: %w", err)
	}
	return tx, nil
}

type ChainSummaryResult struct {
	ChainID        string
	Total          int64
	Succeeded      int64
	Failed         int64
	Pending        int64
	FinalApprovals int64
	LastHeight     sql.NullInt64
}

// ChainSummaries aggregates the journal per chain.
func (q *Query) ChainSummaries(ctx context.Context) ([]ChainSummaryResult, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT
        chain_id, total, succeeded, failed, pending, final_approvals, last_height
    FROM v_chain_summary
    ORDER BY chain_id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []ChainSummaryResult
	for rows.Next() {
		var res ChainSummaryResult
		if err := rows.Scan(
			&res.ChainID,
			&res.Total,
			&res.Succeeded,
			&res.Failed,
			&res.Pending,
			&res.FinalApprovals,
			&res.LastHeight,
		); err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, rows.Err()
}
