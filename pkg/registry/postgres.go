package registry

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	_ "github.com/lib/pq"

	"github.com/moralogy-labs/moralogy/pkg/contracts"
)

// PostgresRegistry persists the moral log in PostgreSQL for deployments
// where the registry must outlive the process. Same append-only contract as
// the memory and SQLite registries.
type PostgresRegistry struct {
	db *sql.DB

	mu       sync.Mutex
	headHash string
	seq      int64
}

// NewPostgres creates the registry over an open connection. The caller owns
// the schema; Migrate is provided for bootstrap.
func NewPostgres(db *sql.DB) (*PostgresRegistry, error) {
	r := &PostgresRegistry{db: db, headHash: genesisHash}
	if err := r.loadHead(); err != nil {
		return nil, err
	}
	return r, nil
}

// Migrate creates the moral_records table if it does not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS moral_records (
		seq BIGINT PRIMARY KEY,
		record_id TEXT NOT NULL UNIQUE,
		case_id TEXT NOT NULL,
		action TEXT NOT NULL,
		tier TEXT NOT NULL,
		justification TEXT NOT NULL,
		guilt BOOLEAN NOT NULL,
		timestamp TIMESTAMPTZ NOT NULL,
		metadata JSONB,
		content_hash TEXT NOT NULL,
		prev_hash TEXT NOT NULL
	)`)
	return err
}

func (r *PostgresRegistry) loadHead() error {
	row := r.db.QueryRow(`SELECT seq, content_hash FROM moral_records ORDER BY seq DESC LIMIT 1`)
	var seq int64
	var head string
	switch err := row.Scan(&seq, &head); err {
	case nil:
		r.seq = seq
		r.headHash = head
		return nil
	case sql.ErrNoRows:
		return nil
	default:
		return fmt.Errorf("load registry head: %w", err)
	}
}

// Write appends a record. Storage failure is reported, never retried.
func (r *PostgresRegistry) Write(ctx context.Context, record contracts.MoralRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	hash, err := chainHash(record, r.headHash)
	if err != nil {
		return err
	}

	metaJSON, _ := json.Marshal(record.Metadata)
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO moral_records
			(seq, record_id, case_id, action, tier, justification, guilt, timestamp, metadata, content_hash, prev_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		r.seq+1, record.RecordID, record.CaseID, string(record.Action), string(record.Tier),
		record.Justification, record.Guilt, record.Timestamp.UTC(),
		string(metaJSON), hash, r.headHash,
	)
	if err != nil {
		return fmt.Errorf("insert moral record: %w", err)
	}
	r.seq++
	r.headHash = hash
	return nil
}

// All returns the full log in insertion order.
func (r *PostgresRegistry) All(ctx context.Context) ([]contracts.MoralRecord, error) {
	return r.query(ctx, selectRecordsPG+` ORDER BY seq ASC`)
}

// ByCase returns the records for one deliberation, in insertion order.
func (r *PostgresRegistry) ByCase(ctx context.Context, caseID string) ([]contracts.MoralRecord, error) {
	return r.query(ctx, selectRecordsPG+` WHERE case_id = $1 ORDER BY seq ASC`, caseID)
}

// ByGuilt returns all records carrying an acknowledged guilt flag.
func (r *PostgresRegistry) ByGuilt(ctx context.Context) ([]contracts.MoralRecord, error) {
	return r.query(ctx, selectRecordsPG+` WHERE guilt ORDER BY seq ASC`)
}

// Length returns the number of records.
func (r *PostgresRegistry) Length(ctx context.Context) (int, error) {
	row := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM moral_records`)
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

const selectRecordsPG = `
	SELECT record_id, case_id, action, tier, justification, guilt, timestamp, metadata
	FROM moral_records`

func (r *PostgresRegistry) query(ctx context.Context, query string, args ...any) ([]contracts.MoralRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var records []contracts.MoralRecord
	for rows.Next() {
		var (
			rec      contracts.MoralRecord
			action   string
			tier     string
			metaJSON sql.NullString
		)
		if err := rows.Scan(&rec.RecordID, &rec.CaseID, &action, &tier,
			&rec.Justification, &rec.Guilt, &rec.Timestamp, &metaJSON); err != nil {
			return nil, err
		}
		rec.Action = contracts.Action(action)
		rec.Tier = contracts.Tier(tier)
		if metaJSON.Valid && metaJSON.String != "" {
			_ = json.Unmarshal([]byte(metaJSON.String), &rec.Metadata)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}
