package instrumented

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sp3dr4/tern/internal/domain"
	"github.com/sp3dr4/tern/internal/infrastructure/memory"
	"github.com/sp3dr4/tern/internal/pkg/metrics"
)

type recordingRegistry struct {
	metrics.NoOpRegistry
	ops []string
}

func (r *recordingRegistry) RecordStoreOperation(operation, status string, _ float64) {
	r.ops = append(r.ops, operation+":"+status)
}

func TestMappingStore_RecordsOutcomes(t *testing.T) {
	registry := &recordingRegistry{}
	store := NewMappingStore(memory.NewMappingRepository(), registry)
	ctx := context.Background()

	m, err := domain.NewMapping("abcd1234", "https://example.com")
	require.NoError(t, err)

	created, err := store.Insert(ctx, m)
	require.NoError(t, err)

	_, err = store.Insert(ctx, m)
	require.ErrorIs(t, err, domain.ErrDuplicateKey)

	_, err = store.FindByShortCode(ctx, "abcd1234")
	require.NoError(t, err)

	_, err = store.FindByShortCode(ctx, "missing1")
	require.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, store.Delete(ctx, created.ID))

	assert.Equal(t, []string{
		"insert:ok",
		"insert:error",
		"find_by_short_code:ok",
		"find_by_short_code:not_found",
		"delete:ok",
	}, registry.ops)
}
