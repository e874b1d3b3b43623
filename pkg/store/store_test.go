package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/textsense/recognizer/pkg/types"
)

func candidate(key string, confidence float64) types.Candidate {
	return types.Candidate{
		Key:        key,
		Kind:       types.KindQuantity,
		Span:       types.Span{Start: 0, End: 5},
		Text:       "10 km",
		Value:      map[string]any{"amount": 10, "unit": "km"},
		Confidence: confidence,
		Status:     types.StatusProvisional,
	}
}

func TestUpsertAddsNewEntity(t *testing.T) {
	s, err := New()
	require.NoError(t, err)

	diff, err := s.Upsert([]types.Candidate{candidate("k1", 0.9)})
	require.NoError(t, err)

	require.Len(t, diff.Added, 1)
	assert.Empty(t, diff.Updated)
	assert.NotEmpty(t, diff.Added[0].ID)
}

func TestUpsertPreservesIDAcrossUpdate(t *testing.T) {
	s, err := New()
	require.NoError(t, err)

	diff1, err := s.Upsert([]types.Candidate{candidate("k1", 0.8)})
	require.NoError(t, err)
	id := diff1.Added[0].ID

	diff2, err := s.Upsert([]types.Candidate{candidate("k1", 0.95)})
	require.NoError(t, err)

	require.Len(t, diff2.Updated, 1)
	assert.Empty(t, diff2.Added)
	assert.Equal(t, id, diff2.Updated[0].ID)
}

func TestUpsertNoSpuriousUpdate(t *testing.T) {
	s, err := New()
	require.NoError(t, err)

	c := candidate("k1", 0.8)
	_, err = s.Upsert([]types.Candidate{c})
	require.NoError(t, err)

	diff, err := s.Upsert([]types.Candidate{c})
	require.NoError(t, err)
	assert.Empty(t, diff.Added)
	assert.Empty(t, diff.Updated)
}

func TestRemoveByKeysIgnoresAbsentKeys(t *testing.T) {
	s, err := New()
	require.NoError(t, err)

	_, err = s.Upsert([]types.Candidate{candidate("k1", 0.8)})
	require.NoError(t, err)

	removed, err := s.RemoveByKeys([]string{"k1", "does-not-exist"})
	require.NoError(t, err)
	require.Len(t, removed, 1)
	assert.Equal(t, "k1", removed[0].Key)

	size, err := s.Size()
	require.NoError(t, err)
	assert.Zero(t, size)
}

func TestReconcileRemovesAbsentKeys(t *testing.T) {
	s, err := New()
	require.NoError(t, err)

	_, err = s.Upsert([]types.Candidate{candidate("k1", 0.8), candidate("k2", 0.8)})
	require.NoError(t, err)

	diff, err := s.Reconcile([]types.Candidate{candidate("k2", 0.8)})
	require.NoError(t, err)

	require.Len(t, diff.Removed, 1)
	assert.Equal(t, "k1", diff.Removed[0].Key)
	assert.Empty(t, diff.Added)
	assert.Empty(t, diff.Updated)
}

func TestReconcileIdempotent(t *testing.T) {
	s, err := New()
	require.NoError(t, err)

	candidates := []types.Candidate{candidate("k1", 0.8), candidate("k2", 0.8)}
	_, err = s.Reconcile(candidates)
	require.NoError(t, err)

	diff, err := s.Reconcile(candidates)
	require.NoError(t, err)
	assert.Empty(t, diff.Added)
	assert.Empty(t, diff.Updated)
	assert.Empty(t, diff.Removed)
}

func TestConfirmAllPromotesProvisional(t *testing.T) {
	s, err := New()
	require.NoError(t, err)

	_, err = s.Upsert([]types.Candidate{candidate("k1", 0.8)})
	require.NoError(t, err)

	promoted, err := s.ConfirmAll()
	require.NoError(t, err)
	require.Len(t, promoted, 1)
	assert.Equal(t, types.StatusConfirmed, promoted[0].Status)

	again, err := s.ConfirmAll()
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestIDNeverReusedAfterRemoval(t *testing.T) {
	s, err := New()
	require.NoError(t, err)

	diff1, err := s.Upsert([]types.Candidate{candidate("k1", 0.8)})
	require.NoError(t, err)
	firstID := diff1.Added[0].ID

	_, err = s.RemoveByKeys([]string{"k1"})
	require.NoError(t, err)

	diff2, err := s.Upsert([]types.Candidate{candidate("k1", 0.8)})
	require.NoError(t, err)
	assert.NotEqual(t, firstID, diff2.Added[0].ID)
}

func TestGetByKeyAndGet(t *testing.T) {
	s, err := New()
	require.NoError(t, err)

	diff, err := s.Upsert([]types.Candidate{candidate("k1", 0.8)})
	require.NoError(t, err)
	id := diff.Added[0].ID

	byKey, err := s.GetByKey("k1")
	require.NoError(t, err)
	assert.Equal(t, id, byKey.ID)

	byID, err := s.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "k1", byID.Key)

	_, err = s.GetByKey("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClear(t *testing.T) {
	s, err := New()
	require.NoError(t, err)

	_, err = s.Upsert([]types.Candidate{candidate("k1", 0.8)})
	require.NoError(t, err)

	require.NoError(t, s.Clear())

	size, err := s.Size()
	require.NoError(t, err)
	assert.Zero(t, size)
}

func TestDescribeValueChangeReportsDiffOnlyWhenChanged(t *testing.T) {
	prev := types.Entity{Value: map[string]any{"amount": 10}}
	same := types.Entity{Value: map[string]any{"amount": 10}}
	changed := types.Entity{Value: map[string]any{"amount": 12}}

	out, err := DescribeValueChange(prev, same)
	require.NoError(t, err)
	assert.Empty(t, out)

	out, err = DescribeValueChange(prev, changed)
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}
