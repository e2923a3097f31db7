package history

import (
	"database/sql"
	"fmt"
)

// Migrate migrates db in an idempotent manner.
// If an error is returned, it's acceptable to delete the database and start over.
// The version ensures we can trace back to the release that produced the schema.
func Migrate(db *sql.DB, version string) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_version(
    id INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
    created_at TEXT NOT NULL CHECK (length(created_at) > 0),
    version TEXT NOT NULL CHECK (length(version) > 0),
    UNIQUE(version)
)`)
	if err != nil {
		return fmt.Errorf("create table schema_version: %w", err)
	}

	_, err = db.Exec(`INSERT INTO schema_version(created_at, version) VALUES (?, ?)
ON CONFLICT(version) DO UPDATE SET version=version`, nowRFC3339(), version)
	if err != nil {
		return fmt.Errorf("upsert schema_version with version %s: %w", version, err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS submission (
    id INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
    chain_id TEXT NOT NULL CHECK (length(chain_id) > 0),
    extrinsic_hash TEXT NOT NULL CHECK (length(extrinsic_hash) > 0),
    tx_type TEXT NOT NULL,
    address TEXT NOT NULL,
    nonce INTEGER NOT NULL,
    data TEXT NOT NULL CHECK (length(data) > 0),
    created_at TEXT NOT NULL CHECK (length(created_at) > 0),
    status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'success', 'failed')),
    block_hash TEXT,
    block_height INTEGER,
    extrinsic_index INTEGER,
    final_approve INTEGER NOT NULL DEFAULT 0,
    multisig_error TEXT,
    error TEXT,
    finished_at TEXT,
    UNIQUE(chain_id, extrinsic_hash)
)`)
	if err != nil {
		return fmt.Errorf("create table submission: %w", err)
	}

	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS submission_address ON submission(chain_id, address)`)
	if err != nil {
		return fmt.Errorf("create index submission_address: %w", err)
	}

	_, err = db.Exec(`DROP VIEW IF EXISTS v_chain_summary`)
	if err != nil {
		return fmt.Errorf("drop old v_chain_summary view: %w", err)
	}
	_, err = db.Exec(`CREATE VIEW v_chain_summary AS
SELECT
  chain_id
  , count(*) as total
  , sum(status = 'success') as succeeded
  , sum(status = 'failed') as failed
  , sum(status = 'pending') as pending
  , sum(final_approve) as final_approvals
  , max(block_height) as last_height
FROM submission
GROUP BY chain_id
`)
	if err != nil {
		return fmt.Errorf("create v_chain_summary view: %w", err)
	}

	return nil
}
