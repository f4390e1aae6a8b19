package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileBatchFn(t *testing.T) {
	requireDB(t)

	a := createTestUser(t, "batch_a")
	b := createTestUser(t, "batch_b")

	results := profileBatchFn(db)(context.Background(), []int{a.ID, 999999999, b.ID, a.ID})
	require.Len(t, results, 4)

	require.NoError(t, results[0].Error)
	assert.Equal(t, a.ID, results[0].Data.ID)
	assert.ErrorIs(t, results[1].Error, errProfileNotFound)
	require.NoError(t, results[2].Error)
	assert.Equal(t, b.ID, results[2].Data.ID)

	// duplicate keys get independent copies
	require.NoError(t, results[3].Error)
	assert.Equal(t, a.ID, results[3].Data.ID)
	assert.NotSame(t, results[0].Data, results[3].Data)
}

func TestLoadProfilesSkipsMissing(t *testing.T) {
	requireDB(t)

	a := createTestUser(t, "load_a")
	ctx := WithDataLoaders(context.Background(), NewDataLoaders(db))

	got, err := loadProfiles(ctx, db, []int{a.ID, 999999998})
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, "load_a", got[a.ID].DisplayName)
	assert.Equal(t, 0, got[a.ID].ChildrenCount)
}

func TestDataLoadersFromContext(t *testing.T) {
	assert.Nil(t, GetDataLoadersFromContext(context.Background()))

	dl := NewDataLoaders(nil)
	ctx := WithDataLoaders(context.Background(), dl)
	assert.Same(t, dl, GetDataLoadersFromContext(ctx))
}
