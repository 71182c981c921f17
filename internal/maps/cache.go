// README: Redis-backed cache in front of a DistanceProvider.
package maps

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"taxibook/internal/logger"
	"taxibook/internal/metrics"
	"taxibook/internal/types"

	"github.com/redis/go-redis/v9"
)

const distanceKeyPrefix = "distance:"

// CachedDistance serves repeated lookups from redis. A redis failure is
// logged and the lookup goes to the provider; provider errors are not cached.
type CachedDistance struct {
	next DistanceProvider
	rdb  redis.Cmdable
	ttl  time.Duration
	log  *logger.Logger
}

func NewCachedDistance(next DistanceProvider, rdb redis.Cmdable, ttl time.Duration, log *logger.Logger) *CachedDistance {
	if log == nil {
		log = logger.Discard()
	}
	return &CachedDistance{next: next, rdb: rdb, ttl: ttl, log: log}
}

func DistanceKey(origin, destination types.Point) string {
	return distanceKeyPrefix + origin.String() + ":" + destination.String()
}

func (c *CachedDistance) Distance(ctx context.Context, origin, destination types.Point) (Route, error) {
	key := DistanceKey(origin, destination)

	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var route Route
		if jsonErr := json.Unmarshal(raw, &route); jsonErr == nil {
			metrics.CountDistanceLookup("hit")
			return route, nil
		}
		c.log.WithField("key", key).Warn("discarding unreadable distance cache entry")
	case !errors.Is(err, redis.Nil):
		c.log.WithError(err).WithField("key", key).Warn("distance cache read failed")
	}

	route, err := c.next.Distance(ctx, origin, destination)
	if err != nil {
		metrics.CountDistanceLookup("error")
		return Route{}, err
	}
	metrics.CountDistanceLookup("miss")

	payload, _ := json.Marshal(route)
	if err := c.rdb.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.log.WithError(err).WithField("key", key).Warn("distance cache write failed")
	}
	return route, nil
}
