package registry_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moralogy-labs/moralogy/pkg/contracts"
	"github.com/moralogy-labs/moralogy/pkg/registry"
)

func record(caseID string, guilt bool) contracts.MoralRecord {
	return contracts.MoralRecord{
		RecordID:      uuid.New().String(),
		Timestamp:     time.Now().UTC(),
		CaseID:        caseID,
		Action:        contracts.ActionIntervene,
		Tier:          contracts.TierRisk,
		Justification: "Significant risk detected; early intervention justified.",
		Guilt:         guilt,
	}
}

func TestMemoryRegistry_AppendOrderPreserved(t *testing.T) {
	reg := registry.NewMemory()
	ctx := context.Background()

	var ids []string
	for i := 0; i < 10; i++ {
		rec := record(fmt.Sprintf("case-%d", i), false)
		ids = append(ids, rec.RecordID)
		require.NoError(t, reg.Write(ctx, rec))
	}

	all, err := reg.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 10)
	for i, rec := range all {
		assert.Equal(t, ids[i], rec.RecordID)
	}
}

func TestMemoryRegistry_ByCaseAndByGuilt(t *testing.T) {
	reg := registry.NewMemory()
	ctx := context.Background()

	guilty := record("case-a", true)
	require.NoError(t, reg.Write(ctx, guilty))
	require.NoError(t, reg.Write(ctx, record("case-b", false)))
	require.NoError(t, reg.Write(ctx, record("case-c", false)))

	byCase, err := reg.ByCase(ctx, "case-a")
	require.NoError(t, err)
	require.Len(t, byCase, 1)
	assert.Equal(t, guilty.RecordID, byCase[0].RecordID)

	byGuilt, err := reg.ByGuilt(ctx)
	require.NoError(t, err)
	require.Len(t, byGuilt, 1)
	assert.Equal(t, guilty.RecordID, byGuilt[0].RecordID)

	none, err := reg.ByCase(ctx, "case-unknown")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMemoryRegistry_ConcurrentWritersLoseNothing(t *testing.T) {
	reg := registry.NewMemory()
	ctx := context.Background()

	const n = 100
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, reg.Write(ctx, record(fmt.Sprintf("case-%d", i), i%2 == 0)))
		}(i)
	}
	wg.Wait()

	length, err := reg.Length(ctx)
	require.NoError(t, err)
	assert.Equal(t, n, length)

	for i := 0; i < n; i++ {
		recs, err := reg.ByCase(ctx, fmt.Sprintf("case-%d", i))
		require.NoError(t, err)
		assert.Len(t, recs, 1)
	}

	ok, detail := reg.Verify()
	assert.True(t, ok, detail)
}

func TestMemoryRegistry_ChainVerifies(t *testing.T) {
	reg := registry.NewMemory()
	ctx := context.Background()

	require.Equal(t, "genesis", reg.Head())
	require.NoError(t, reg.Write(ctx, record("case-a", true)))
	require.NoError(t, reg.Write(ctx, record("case-b", false)))
	assert.NotEqual(t, "genesis", reg.Head())

	ok, detail := reg.Verify()
	assert.True(t, ok)
	assert.Equal(t, "chain verified", detail)
}
