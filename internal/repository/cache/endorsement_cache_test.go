package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*miniredis.Miniredis, *endorsementCountCache) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewEndorsementCountCache(client).(*endorsementCountCache)
}

func TestEndorsementCountCache_RoundTrip(t *testing.T) {
	mr, c := setup(t)
	ctx := context.Background()

	_, gen, ok, err := c.Get(ctx, "s-1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, gen)

	require.NoError(t, c.Fill(ctx, "s-1", 4, gen))
	mr.CheckGet(t, "endorsements:count:s-1", "4")
	assert.Equal(t, EndorsementCountTTL, mr.TTL("endorsements:count:s-1"))

	count, _, ok, err := c.Get(ctx, "s-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(4), count)

	require.NoError(t, c.Invalidate(ctx, "s-1"))
	assert.False(t, mr.Exists("endorsements:count:s-1"))
	mr.CheckGet(t, "endorsements:gen:s-1", "1")
	assert.Equal(t, endorsementGenTTL, mr.TTL("endorsements:gen:s-1"))
}

func TestEndorsementCountCache_FillAfterInvalidateIsDropped(t *testing.T) {
	mr, c := setup(t)
	ctx := context.Background()

	// A reader misses and reads the store...
	_, gen, ok, err := c.Get(ctx, "s-1")
	require.NoError(t, err)
	require.False(t, ok)

	// ...an endorsement lands and invalidates before the reader fills.
	require.NoError(t, c.Invalidate(ctx, "s-1"))
	require.NoError(t, c.Fill(ctx, "s-1", 0, gen))
	assert.False(t, mr.Exists("endorsements:count:s-1"))

	_, gen, ok, err = c.Get(ctx, "s-1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int64(1), gen)

	require.NoError(t, c.Fill(ctx, "s-1", 1, gen))
	mr.CheckGet(t, "endorsements:count:s-1", "1")
}

func TestEndorsementCountCache_InvalidateMany(t *testing.T) {
	mr, c := setup(t)
	ctx := context.Background()

	require.NoError(t, c.Fill(ctx, "s-1", 2, 0))
	require.NoError(t, c.Fill(ctx, "s-2", 5, 0))
	require.NoError(t, c.Fill(ctx, "s-3", 7, 0))

	require.NoError(t, c.Invalidate(ctx, "s-1", "s-2"))
	assert.False(t, mr.Exists("endorsements:count:s-1"))
	assert.False(t, mr.Exists("endorsements:count:s-2"))
	mr.CheckGet(t, "endorsements:count:s-3", "7")

	assert.NoError(t, c.Invalidate(ctx))
}

func TestEndorsementCountCache_Expires(t *testing.T) {
	mr, c := setup(t)
	ctx := context.Background()

	require.NoError(t, c.Fill(ctx, "s-1", 1, 0))
	mr.FastForward(61 * time.Second)

	_, _, ok, err := c.Get(ctx, "s-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEndorsementCountCache_CorruptValue(t *testing.T) {
	mr, c := setup(t)
	require.NoError(t, mr.Set("endorsements:count:s-1", "many"))

	_, _, ok, err := c.Get(context.Background(), "s-1")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestEndorsementCountCache_ServerDown(t *testing.T) {
	mr, c := setup(t)
	mr.Close()

	_, _, _, err := c.Get(context.Background(), "s-1")
	assert.Error(t, err)
	assert.Error(t, c.Invalidate(context.Background(), "s-1"))
}
