package sqlite_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopfloor/safety-board/store/sqlite"
)

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// =============================================================================
// SNAPSHOT STORAGE TESTS
// =============================================================================

func TestSnapshot_SaveAndLoad(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	doc := []byte(`{"monthlyData": []}`)
	require.NoError(t, store.SaveSnapshot(ctx, 2026, doc))

	loaded, err := store.LoadSnapshot(ctx, 2026)
	require.NoError(t, err)
	assert.Equal(t, doc, loaded)
}

func TestSnapshot_AbsentYear_ReturnsNil(t *testing.T) {
	store := newTestStore(t)

	loaded, err := store.LoadSnapshot(context.Background(), 1999)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestSnapshot_Upsert_LastWriteWins(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveSnapshot(ctx, 2026, []byte(`{"v": 1}`)))
	require.NoError(t, store.SaveSnapshot(ctx, 2026, []byte(`{"v": 2}`)))

	loaded, err := store.LoadSnapshot(ctx, 2026)
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"v": 2}`), loaded)
}

func TestSnapshot_YearsAreIndependent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveSnapshot(ctx, 2026, []byte(`{"y": 2026}`)))
	require.NoError(t, store.SaveSnapshot(ctx, 2027, []byte(`{"y": 2027}`)))

	loaded, err := store.LoadSnapshot(ctx, 2026)
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"y": 2026}`), loaded)
}

// =============================================================================
// PREFERENCE TESTS
// =============================================================================

func TestPreference_SetAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetPreference(ctx, "font_scale", "1.25"))

	value, ok, err := store.GetPreference(ctx, "font_scale")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "1.25", value)
}

func TestPreference_Absent(t *testing.T) {
	store := newTestStore(t)

	_, ok, err := store.GetPreference(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPreference_Overwrite(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetPreference(ctx, "font_scale", "1.0"))
	require.NoError(t, store.SetPreference(ctx, "font_scale", "2.0"))

	value, ok, err := store.GetPreference(ctx, "font_scale")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "2.0", value)
}
