package maps

import (
	"context"
	"errors"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wanderplan/internal/types"
)

type countingGeocoder struct {
	calls  atomic.Int32
	places []Place
	err    error
}

func (g *countingGeocoder) Search(context.Context, string) ([]Place, error) {
	g.calls.Add(1)
	return g.places, g.err
}

func TestCachedGeocoder_LocalHit(t *testing.T) {
	next := &countingGeocoder{places: []Place{{ID: "1", Name: "Senso-ji", Location: types.Point{Lat: 35.7148, Lng: 139.7967}}}}
	c := NewCachedGeocoder(next, nil, time.Minute, nil)

	first, err := c.Search(context.Background(), "Senso-ji, Japan")
	require.NoError(t, err)
	second, err := c.Search(context.Background(), "  senso-ji, japan ")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), next.calls.Load())
}

func TestCachedGeocoder_ErrorsAreNotCached(t *testing.T) {
	next := &countingGeocoder{err: errors.New("upstream down")}
	c := NewCachedGeocoder(next, nil, time.Minute, nil)

	_, err := c.Search(context.Background(), "x")
	require.Error(t, err)
	_, err = c.Search(context.Background(), "x")
	require.Error(t, err)
	assert.Equal(t, int32(2), next.calls.Load())
}

func TestCachedGeocoder_RedisShared(t *testing.T) {
	addr := os.Getenv("WANDER_REDIS_ADDR")
	if addr == "" {
		t.Skip("WANDER_REDIS_ADDR not set; skipping Redis-backed test")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })
	ctx := context.Background()
	query := "cache-test-" + time.Now().Format(time.RFC3339Nano)
	t.Cleanup(func() { rdb.Del(ctx, geocodeKeyPrefix+query) })

	next := &countingGeocoder{places: []Place{{ID: "9", Name: "Louvre"}}}
	_, err := NewCachedGeocoder(next, rdb, time.Minute, nil).Search(ctx, query)
	require.NoError(t, err)

	// A second instance with its own in-process cache is served from Redis.
	got, err := NewCachedGeocoder(next, rdb, time.Minute, nil).Search(ctx, query)
	require.NoError(t, err)
	assert.Equal(t, "Louvre", got[0].Name)
	assert.Equal(t, int32(1), next.calls.Load())
}
