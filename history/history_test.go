package history

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestLastPageMissing(t *testing.T) {
	st := newTestStore(t)

	_, ok, err := st.LastPage(context.Background(), "/tmp/deck.pdf")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRecordPageRoundTrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.RecordPage(ctx, "/tmp/deck.pdf", 4))

	page, ok, err := st.LastPage(ctx, "/tmp/deck.pdf")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 4, page)
}

func TestRecordPageUpserts(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.RecordPage(ctx, "/tmp/deck.pdf", 4))
	require.NoError(t, st.RecordPage(ctx, "/tmp/deck.pdf", 7))

	page, ok, err := st.LastPage(ctx, "/tmp/deck.pdf")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 7, page)
}

func TestPositionsAreKeyedByPath(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.RecordPage(ctx, "/tmp/a.pdf", 1))
	require.NoError(t, st.RecordPage(ctx, "/tmp/b.pdf", 2))

	page, _, err := st.LastPage(ctx, "/tmp/a.pdf")
	require.NoError(t, err)
	assert.Equal(t, 1, page)
}

func TestRestorePageWithinBounds(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.RecordPage(ctx, "/tmp/deck.pdf", 3))

	page, ok, err := st.RestorePage(ctx, "/tmp/deck.pdf", 10)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 3, page)
}

func TestRestorePageClampsToShrunkenDocument(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.RecordPage(ctx, "/tmp/deck.pdf", 9))

	page, ok, err := st.RestorePage(ctx, "/tmp/deck.pdf", 5)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 4, page, "restored page must land on the new last page")
}

func TestRestorePageMissing(t *testing.T) {
	st := newTestStore(t)

	_, ok, err := st.RestorePage(context.Background(), "/tmp/deck.pdf", 5)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSessionLifecycle(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	id, err := st.BeginSession(ctx, "/tmp/deck.pdf", 0)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	require.NoError(t, st.EndSession(ctx, id, 9))

	sessions, err := st.RecentSessions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, id, sessions[0].ID)
	assert.Equal(t, 9, sessions[0].LastPage)
	assert.NotNil(t, sessions[0].ClosedAt)
}
