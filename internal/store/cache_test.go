package store_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benny59/architetti/internal/logger"
	"github.com/benny59/architetti/internal/store"
)

func newCachedStore(t *testing.T) (*store.CachedStore, *store.SQLStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	inner := newSQLiteStore(t)
	require.NoError(t, inner.EnsurePartitions(context.Background(), []string{"a", "b"}))

	return store.NewCachedStore(inner, rdb, testNamespace, logger.NewNop()), inner, mr
}

const testNamespace = "test"

func seenKey(nickname string) string {
	return store.SeenKey(testNamespace, nickname)
}

func TestCachedStore_InsertWritesThrough(t *testing.T) {
	cs, inner, mr := newCachedStore(t)
	ctx := context.Background()

	require.NoError(t, cs.Insert(ctx, "a", rec("Concorso", "sum1")))

	found, err := inner.Exists(ctx, "a", "sum1")
	require.NoError(t, err)
	assert.True(t, found)

	ok, err := mr.SIsMember(seenKey("a"), "sum1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCachedStore_BackfillsFromStore(t *testing.T) {
	cs, inner, mr := newCachedStore(t)
	ctx := context.Background()

	// Row written before the cache existed.
	require.NoError(t, inner.Insert(ctx, "a", rec("Vecchio", "old")))
	assert.False(t, mr.Exists(seenKey("a")))

	found, err := cs.Exists(ctx, "a", "old")
	require.NoError(t, err)
	assert.True(t, found)

	ok, err := mr.SIsMember(seenKey("a"), "old")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCachedStore_MissDoesNotPopulate(t *testing.T) {
	cs, _, mr := newCachedStore(t)

	found, err := cs.Exists(context.Background(), "a", "never")
	require.NoError(t, err)
	assert.False(t, found)
	assert.False(t, mr.Exists(seenKey("a")))
}

func TestCachedStore_PartitionIsolation(t *testing.T) {
	cs, _, _ := newCachedStore(t)
	ctx := context.Background()

	require.NoError(t, cs.Insert(ctx, "a", rec("Concorso", "same")))

	found, err := cs.Exists(ctx, "b", "same")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCachedStore_RedisDownFallsBackToStore(t *testing.T) {
	cs, inner, mr := newCachedStore(t)
	ctx := context.Background()
	require.NoError(t, inner.Insert(ctx, "a", rec("Concorso", "sum1")))

	mr.Close()

	found, err := cs.Exists(ctx, "a", "sum1")
	require.NoError(t, err)
	assert.True(t, found)

	require.NoError(t, cs.Insert(ctx, "a", rec("Altro", "sum2")))
	n, err := cs.Count(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

// ── Stale sets ─────────────────────────────────────────────────────────────

func TestCachedStore_StaleSetDoesNotHideNewRecords(t *testing.T) {
	cs, inner, mr := newCachedStore(t)
	ctx := context.Background()

	// The set survived a database that was replaced by an empty one.
	_, err := mr.SAdd(seenKey("a"), "sumA", "sumB")
	require.NoError(t, err)

	found, err := cs.Exists(ctx, "a", "sumA")
	require.NoError(t, err)
	assert.False(t, found)
	assert.False(t, mr.Exists(seenKey("a")))

	require.NoError(t, cs.Insert(ctx, "a", rec("A", "sumA")))
	n, err := inner.Count(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	found, err = cs.Exists(ctx, "a", "sumA")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestCachedStore_EnsurePartitionsDropsStaleSets(t *testing.T) {
	cs, inner, mr := newCachedStore(t)
	ctx := context.Background()

	require.NoError(t, inner.Insert(ctx, "b", rec("B", "kept")))
	_, err := mr.SAdd(seenKey("a"), "ghost")
	require.NoError(t, err)
	_, err = mr.SAdd(seenKey("b"), "kept")
	require.NoError(t, err)

	require.NoError(t, cs.EnsurePartitions(ctx, []string{"a", "b"}))

	assert.False(t, mr.Exists(seenKey("a")))
	ok, err := mr.SIsMember(seenKey("b"), "kept")
	require.NoError(t, err)
	assert.True(t, ok, "a consistent set is kept")
}

func TestCachedStore_NamespacesDoNotShareSets(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	ctx := context.Background()

	first := newSQLiteStore(t)
	second := newSQLiteStore(t)
	require.NoError(t, first.EnsurePartitions(ctx, []string{"a"}))
	require.NoError(t, second.EnsurePartitions(ctx, []string{"a"}))

	csFirst := store.NewCachedStore(first, rdb, store.Namespace("sqlite3", "one.db"), logger.NewNop())
	csSecond := store.NewCachedStore(second, rdb, store.Namespace("sqlite3", "two.db"), logger.NewNop())

	require.NoError(t, csFirst.Insert(ctx, "a", rec("A", "sumA")))

	found, err := csSecond.Exists(ctx, "a", "sumA")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestNamespace_Stable(t *testing.T) {
	assert.Equal(t, store.Namespace("pgx", "postgres://x"), store.Namespace("pgx", "postgres://x"))
	assert.NotEqual(t, store.Namespace("sqlite3", "a.db"), store.Namespace("sqlite3", "b.db"))
	assert.Len(t, store.Namespace("sqlite3", "records.db"), 8)
}
