// Package cache is the get-or-populate layer in front of every outbound
// content and pricing call.
//
// Invalidation is advisory. Facade.Invalidate deletes whatever keys it can
// find at the moment it runs; a concurrent miss may repopulate an entry
// right after, and other instances sharing the store are not coordinated.
// Concurrent misses for one key are not collapsed: each caller runs its own
// fetch.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/thoas/go-funk"
)

type Facade struct {
	store     Store
	namespace string
	ttls      TTLs
}

func NewFacade(store Store, namespace string, ttls TTLs) *Facade {
	if store == nil {
		store = NewNoOpStore()
	}
	return &Facade{
		store:     store,
		namespace: namespace,
		ttls:      ttls,
	}
}

// entry is the serialized form held by the store.
type entry struct {
	Value    json.RawMessage `json:"v"`
	TTL      int64           `json:"ttl"`
	StoredAt time.Time       `json:"at"`
}

func (f *Facade) Key(resource string, params map[string]string) string {
	return BuildKey(f.namespace, resource, params)
}

func (f *Facade) TTL(class TTLClass) time.Duration {
	return f.ttls.For(class)
}

// GetOrFetch returns the cached value for key, or runs fetch and stores its
// result for ttl. Errors and empty results from fetch are returned as-is and
// never cached. A failing store degrades to always calling fetch.
func GetOrFetch[T any](ctx context.Context, f *Facade, key string, ttl time.Duration, fetch func(context.Context) (T, error)) (T, error) {
	if v, ok := lookup[T](ctx, f, key); ok {
		return v, nil
	}

	v, err := fetch(ctx)
	if err != nil {
		return v, err
	}
	if funk.IsEmpty(v) {
		return v, nil
	}

	f.put(ctx, key, v, ttl)
	return v, nil
}

func lookup[T any](ctx context.Context, f *Facade, key string) (T, bool) {
	var zero T

	data, err := f.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			log.Warn().Err(err).Str("key", key).Msg("cache read failed, treating as miss")
		}
		return zero, false
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache entry undecodable, treating as miss")
		return zero, false
	}

	var v T
	if err := json.Unmarshal(e.Value, &v); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache value undecodable, treating as miss")
		return zero, false
	}
	return v, true
}

func (f *Facade) put(ctx context.Context, key string, v any, ttl time.Duration) {
	value, err := json.Marshal(v)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache value not serializable")
		return
	}

	data, err := json.Marshal(entry{Value: value, TTL: int64(ttl / time.Second), StoredAt: time.Now().UTC()})
	if err != nil {
		return
	}

	if err := f.store.Set(ctx, key, data, ttl); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}

// Cached reports, per key, whether the store currently holds a value.
// Store failures report every key as not cached.
func (f *Facade) Cached(ctx context.Context, keys ...string) []bool {
	out := make([]bool, len(keys))
	if len(keys) == 0 {
		return out
	}

	vals, err := f.store.MGet(ctx, keys...)
	if err != nil {
		log.Warn().Err(err).Int("keys", len(keys)).Msg("cache multi-get failed")
		return out
	}
	for i := range out {
		out[i] = i < len(vals) && vals[i] != nil
	}
	return out
}

// Invalidate removes every entry of resource whose key carries all of the
// given params, e.g. Invalidate(ctx, "airline", {"code": "BA"}) for every
// language and domain of that airline. It is a best-effort hint for the
// next population, not a transactional delete. It returns how many keys it
// deleted.
func (f *Facade) Invalidate(ctx context.Context, resource string, params map[string]string) (int, error) {
	pattern := BuildKey(f.namespace, resource, nil) + "*"
	keys, err := f.store.Scan(ctx, pattern)
	if err != nil {
		return 0, err
	}

	want := make(map[string]string, len(params))
	for name, value := range params {
		want[keyEscaper.Replace(name)] = keyEscaper.Replace(strings.TrimSpace(value))
	}

	var matched []string
	for _, key := range keys {
		res, got, ok := parseKey(f.namespace, key)
		if !ok || res != keyEscaper.Replace(resource) {
			continue
		}
		if containsAll(got, want) {
			matched = append(matched, key)
		}
	}

	if len(matched) == 0 {
		return 0, nil
	}
	if err := f.store.Delete(ctx, matched...); err != nil {
		return 0, err
	}

	log.Info().Str("resource", resource).Interface("params", params).Int("deleted", len(matched)).Msg("cache invalidated")
	return len(matched), nil
}

func containsAll(got, want map[string]string) bool {
	for name, value := range want {
		if v, ok := got[name]; !ok || v != value {
			return false
		}
	}
	return true
}

func (f *Facade) Close() error {
	return f.store.Close()
}
