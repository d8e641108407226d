package registry

import (
	"context"
	"sync"

	"github.com/moralogy-labs/moralogy/pkg/contracts"
)

// chained pairs a record with its position in the hash chain.
type chained struct {
	record      contracts.MoralRecord
	contentHash string
	prevHash    string
}

// MemoryRegistry is the in-memory, hash-chained registry. Writers are
// serialized; readers proceed concurrently and never observe a torn record.
type MemoryRegistry struct {
	mu       sync.RWMutex
	log      []chained
	headHash string
}

// NewMemory creates an empty in-memory registry.
func NewMemory() *MemoryRegistry {
	return &MemoryRegistry{headHash: genesisHash}
}

// Write appends a record. No overwrite, no deletion.
func (r *MemoryRegistry) Write(ctx context.Context, record contracts.MoralRecord) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	hash, err := chainHash(record, r.headHash)
	if err != nil {
		return err
	}
	r.log = append(r.log, chained{record: record, contentHash: hash, prevHash: r.headHash})
	r.headHash = hash
	return nil
}

// All returns the full audit log in insertion order.
func (r *MemoryRegistry) All(ctx context.Context) ([]contracts.MoralRecord, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]contracts.MoralRecord, 0, len(r.log))
	for _, c := range r.log {
		out = append(out, c.record)
	}
	return out, nil
}

// ByCase returns the records belonging to one deliberation, in order.
func (r *MemoryRegistry) ByCase(ctx context.Context, caseID string) ([]contracts.MoralRecord, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []contracts.MoralRecord
	for _, c := range r.log {
		if c.record.CaseID == caseID {
			out = append(out, c.record)
		}
	}
	return out, nil
}

// ByGuilt returns all records where guilt was explicitly acknowledged.
func (r *MemoryRegistry) ByGuilt(ctx context.Context) ([]contracts.MoralRecord, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []contracts.MoralRecord
	for _, c := range r.log {
		if c.record.Guilt {
			out = append(out, c.record)
		}
	}
	return out, nil
}

// Length returns the number of records written so far.
func (r *MemoryRegistry) Length(ctx context.Context) (int, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.log), nil
}

// Head returns the current head hash of the chain.
func (r *MemoryRegistry) Head() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.headHash
}

// Verify walks the whole chain and recomputes every hash. It returns false
// with a diagnostic if any entry was altered after insertion.
func (r *MemoryRegistry) Verify() (bool, string) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	prev := genesisHash
	for _, c := range r.log {
		if c.prevHash != prev {
			return false, "chain broken at entry " + c.record.RecordID
		}
		computed, err := chainHash(c.record, c.prevHash)
		if err != nil {
			return false, "unverifiable entry " + c.record.RecordID
		}
		if computed != c.contentHash {
			return false, "hash mismatch at entry " + c.record.RecordID
		}
		prev = c.contentHash
	}
	return true, "chain verified"
}
