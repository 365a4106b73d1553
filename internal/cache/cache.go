package cache

import (
	"context"
	"encoding/json"
	"time"

	"marketbrief/internal/logging"
	"marketbrief/internal/metrics"

	apperrors "marketbrief/internal/errors"
)

// Layer is the read-through cache wrapping the fallback orchestrator.
type Layer struct {
	store Store
}

// NewLayer creates a cache layer over the given store.
func NewLayer(store Store) *Layer {
	return &Layer{store: store}
}

// Store exposes the underlying store for invalidation helpers.
func (l *Layer) Store() Store {
	return l.store
}

// GetOrCompute returns the cached payload for key when present and unexpired,
// unconditionally and without a freshness re-check. On miss it invokes
// compute, stores the result under ttl and returns it. A failed compute is
// never cached and never silently replaced by a stale entry: the error is
// returned and the caller owns the fallback decision.
func GetOrCompute[T any](ctx context.Context, l *Layer, key string, ttl time.Duration, compute func() (T, error)) (T, error) {
	logger := logging.FromContext(ctx)
	var zero T

	if raw, ok, err := l.store.Get(ctx, key); err == nil && ok {
		var cached T
		if err := json.Unmarshal([]byte(raw), &cached); err == nil {
			logging.LogCacheEvent(logger, key, true)
			metrics.CacheLookups.WithLabelValues(metrics.HitLabel).Inc()
			return cached, nil
		}
		// An undecodable entry is treated as a miss and overwritten below.
	}
	logging.LogCacheEvent(logger, key, false)
	metrics.CacheLookups.WithLabelValues(metrics.MissLabel).Inc()

	result, err := compute()
	if err != nil {
		return zero, err
	}

	raw, err := json.Marshal(result)
	if err != nil {
		return zero, apperrors.Wrap(err, "encoding cache payload")
	}
	if err := l.store.Put(ctx, key, string(raw), ttl); err != nil {
		// A write failure degrades to uncached operation; the computed
		// result is still good.
		logger.Warn().Err(err).Str("key", key).Msg("Cache write failed")
	}

	return result, nil
}

// PutAs stores an already computed payload under an additional key. The
// geopolitical pipeline uses it to publish its result under the legacy shared
// key alongside the pipeline key.
func PutAs(ctx context.Context, l *Layer, key string, payload any, ttl time.Duration) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return apperrors.Wrap(err, "encoding cache payload")
	}
	return l.store.Put(ctx, key, string(raw), ttl)
}

// Invalidate removes the given keys together.
func (l *Layer) Invalidate(ctx context.Context, keys ...string) error {
	return l.store.RemoveAll(ctx, keys)
}
