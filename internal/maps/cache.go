package maps

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

const geocodeKeyPrefix = "wanderplan:geocode:"

// CachedGeocoder memoises geocoding results in process and, when a Redis client is
// supplied, across instances. Errors are never cached.
type CachedGeocoder struct {
	next   Geocoder
	local  *cache.Cache
	remote *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedGeocoder wraps next. remote may be nil.
func NewCachedGeocoder(next Geocoder, remote *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedGeocoder {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &CachedGeocoder{
		next:   next,
		local:  cache.New(ttl, 2*ttl),
		remote: remote,
		ttl:    ttl,
		logger: logger,
	}
}

func (c *CachedGeocoder) Search(ctx context.Context, query string) ([]Place, error) {
	key := geocodeKeyPrefix + strings.ToLower(strings.TrimSpace(query))

	if v, ok := c.local.Get(key); ok {
		return clonePlaces(v.([]Place)), nil
	}

	if c.remote != nil {
		raw, err := c.remote.Get(ctx, key).Bytes()
		switch {
		case err == nil:
			var places []Place
			if jerr := json.Unmarshal(raw, &places); jerr == nil {
				c.local.SetDefault(key, places)
				return clonePlaces(places), nil
			}
		case !errors.Is(err, redis.Nil):
			c.logger.WarnContext(ctx, "geocode cache read failed", "error", err)
		}
	}

	places, err := c.next.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	c.local.SetDefault(key, clonePlaces(places))

	if c.remote != nil {
		if raw, err := json.Marshal(places); err == nil {
			if err := c.remote.Set(ctx, key, raw, c.ttl).Err(); err != nil {
				c.logger.WarnContext(ctx, "geocode cache write failed", "error", err)
			}
		}
	}
	return places, nil
}

func clonePlaces(in []Place) []Place {
	if in == nil {
		return nil
	}
	out := make([]Place, len(in))
	copy(out, in)
	return out
}
