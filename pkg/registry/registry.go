// Package registry implements the append-only moral registry.
//
// Records are write-once, read-many: no operation exists to delete or mutate
// an entry once written, and insertion order is temporal order. Forgetting is
// considered a system failure. Every entry is hash-chained to its predecessor
// over its JCS canonical form so any retroactive edit breaks the chain.
package registry

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"

	"github.com/moralogy-labs/moralogy/pkg/contracts"
)

// genesisHash seeds the chain before the first record.
const genesisHash = "genesis"

// Registry is an ordered, append-only collection of moral records.
//
// Write never overwrites. All, ByCase, and ByGuilt are non-mutating
// projections returning records in original insertion order. Appends are
// mutually exclusive; reads may proceed concurrently with each other.
type Registry interface {
	Write(ctx context.Context, record contracts.MoralRecord) error
	All(ctx context.Context) ([]contracts.MoralRecord, error)
	ByCase(ctx context.Context, caseID string) ([]contracts.MoralRecord, error)
	ByGuilt(ctx context.Context) ([]contracts.MoralRecord, error)
	Length(ctx context.Context) (int, error)
}

// chainHash computes the content hash of a record given its predecessor's
// hash. The record is serialized to JCS canonical JSON first so the hash is
// independent of map iteration and encoder quirks.
func chainHash(record contracts.MoralRecord, prevHash string) (string, error) {
	raw, err := json.Marshal(struct {
		Record   contracts.MoralRecord `json:"record"`
		PrevHash string                `json:"prev"`
	}{record, prevHash})
	if err != nil {
		return "", fmt.Errorf("marshal record for hashing: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("canonicalize record: %w", err)
	}
	h := sha256.Sum256(canonical)
	return "sha256:" + hex.EncodeToString(h[:]), nil
}
