package registry

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/moralogy-labs/moralogy/pkg/contracts"
)

// SQLiteRegistry persists the moral log in a local SQLite database.
// The schema has no UPDATE or DELETE path; sequence numbers preserve
// insertion order and the hash chain is carried in the rows.
type SQLiteRegistry struct {
	db *sql.DB

	// mu serializes appends so the sequence/prev-hash pair stays
	// consistent without relying on database-level locking behavior.
	mu       sync.Mutex
	headHash string
	seq      int64
}

// NewSQLite creates the registry and runs its migration.
func NewSQLite(db *sql.DB) (*SQLiteRegistry, error) {
	r := &SQLiteRegistry{db: db, headHash: genesisHash}
	if err := r.migrate(); err != nil {
		return nil, err
	}
	if err := r.loadHead(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *SQLiteRegistry) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS moral_records (
		seq INTEGER PRIMARY KEY,
		record_id TEXT NOT NULL UNIQUE,
		case_id TEXT NOT NULL,
		action TEXT NOT NULL,
		tier TEXT NOT NULL,
		justification TEXT NOT NULL,
		guilt INTEGER NOT NULL,
		timestamp TEXT NOT NULL,
		metadata JSON,
		content_hash TEXT NOT NULL,
		prev_hash TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_moral_records_case ON moral_records(case_id);`
	_, err := r.db.ExecContext(context.Background(), query)
	return err
}

// loadHead restores the chain position from an existing database.
func (r *SQLiteRegistry) loadHead() error {
	row := r.db.QueryRowContext(context.Background(),
		`SELECT seq, content_hash FROM moral_records ORDER BY seq DESC LIMIT 1`)
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
func (r *SQLiteRegistry) Write(ctx context.Context, record contracts.MoralRecord) error {
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
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.seq+1, record.RecordID, record.CaseID, string(record.Action), string(record.Tier),
		record.Justification, record.Guilt, record.Timestamp.UTC().Format(time.RFC3339Nano),
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
func (r *SQLiteRegistry) All(ctx context.Context) ([]contracts.MoralRecord, error) {
	return r.query(ctx, selectRecords+` ORDER BY seq ASC`)
}

// ByCase returns the records for one deliberation, in insertion order.
func (r *SQLiteRegistry) ByCase(ctx context.Context, caseID string) ([]contracts.MoralRecord, error) {
	return r.query(ctx, selectRecords+` WHERE case_id = ? ORDER BY seq ASC`, caseID)
}

// ByGuilt returns all records carrying an acknowledged guilt flag.
func (r *SQLiteRegistry) ByGuilt(ctx context.Context) ([]contracts.MoralRecord, error) {
	return r.query(ctx, selectRecords+` WHERE guilt = 1 ORDER BY seq ASC`)
}

// Length returns the number of records.
func (r *SQLiteRegistry) Length(ctx context.Context) (int, error) {
	row := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM moral_records`)
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

const selectRecords = `
	SELECT record_id, case_id, action, tier, justification, guilt, timestamp, metadata
	FROM moral_records`

func (r *SQLiteRegistry) query(ctx context.Context, query string, args ...any) ([]contracts.MoralRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var records []contracts.MoralRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func scanRecord(rows *sql.Rows) (contracts.MoralRecord, error) {
	var (
		rec       contracts.MoralRecord
		action    string
		tier      string
		timestamp string
		metaJSON  sql.NullString
	)
	if err := rows.Scan(&rec.RecordID, &rec.CaseID, &action, &tier,
		&rec.Justification, &rec.Guilt, &timestamp, &metaJSON); err != nil {
		return contracts.MoralRecord{}, err
	}
	rec.Action = contracts.Action(action)
	rec.Tier = contracts.Tier(tier)
	rec.Timestamp = parseTime(timestamp)
	if metaJSON.Valid && metaJSON.String != "" {
		_ = json.Unmarshal([]byte(metaJSON.String), &rec.Metadata)
	}
	return rec, nil
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	return time.Time{}
}
