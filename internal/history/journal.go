package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/novasamatech/nova-spektr-sub000/transaction"
)

var ErrUnknownSubmission = errors.New("unknown submission")

// Status of a journal entry.
const (
	StatusPending = "pending"
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Journal records submissions and their outcomes.
type Journal struct {
	db     *sql.DB
	single singleflight.Group
}

func NewJournal(db *sql.DB) *Journal {
	return &Journal{db: db}
}

// Entry is an extrinsic about to be submitted.
type Entry struct {
	ChainID       string
	ExtrinsicHash string
	Nonce         uint64
	Transaction   transaction.Transaction
}

// Outcome is the final state of a submission.
type Outcome struct {
	OK             bool
	BlockHash      string
	Height         uint32
	Index          uint32
	IsFinalApprove bool
	MultisigError  string
	Error          string
}

// Record starts tracking e as pending.
// This method is idempotent and can be safely called multiple times with the same entry.
func (j *Journal) Record(ctx context.Context, e Entry) error {
	data, err := json.Marshal(e.Transaction)
	if err != nil {
		return fmt.Errorf("encode transaction: %w", err)
	}
	k := e.ChainID + "/" + e.ExtrinsicHash
	_, err, _ = j.single.Do(k, func() (any, error) {
		_, err := j.db.ExecContext(ctx, `INSERT INTO submission(
    chain_id, extrinsic_hash, tx_type, address, nonce, data, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(chain_id, extrinsic_hash) DO NOTHING`,
			e.ChainID, e.ExtrinsicHash, string(e.Transaction.Type), e.Transaction.Address, e.Nonce, string(data), nowRFC3339())
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("insert into submission: %w", err)
	}
	return nil
}

// Finish stores the outcome of a recorded submission.
func (j *Journal) Finish(ctx context.Context, chainID, extrinsicHash string, o Outcome) error {
	status := StatusFailed
	if o.OK {
		status = StatusSuccess
	}
	var (
		blockHash, height, index any
	)
	if o.BlockHash != "" {
		blockHash, height, index = o.BlockHash, o.Height, o.Index
	}
	res, err := j.db.ExecContext(ctx, `UPDATE submission SET
    status = ?, block_hash = ?, block_height = ?, extrinsic_index = ?,
    final_approve = ?, multisig_error = ?, error = ?, finished_at = ?
WHERE chain_id = ? AND extrinsic_hash = ?`,
		status, blockHash, height, index,
		o.IsFinalApprove, nullString(o.MultisigError), nullString(o.Error), nowRFC3339(),
		chainID, extrinsicHash)
	if err != nil {
		return fmt.Errorf("update submission: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w %s on %s", ErrUnknownSubmission, extrinsicHash, chainID)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
