// Package cachestore keeps recently loaded targets in process memory in
// front of another through.TargetFinder.
package cachestore

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/mickamy/manythrough/through"
)

// Targets is a read-through cache for target lookups. Entries expire after
// the configured TTL; writes to the underlying table are not observed, so
// callers that mutate targets call Invalidate.
type Targets[T any, ID through.Identifier] struct {
	next  through.TargetFinder[T, ID]
	id    func(t *T) ID
	cache *cache.Cache
}

// NewTargets wraps next. id reads the primary key of a loaded target.
func NewTargets[T any, ID through.Identifier](
	next through.TargetFinder[T, ID], id func(t *T) ID, ttl time.Duration,
) *Targets[T, ID] {
	return &Targets[T, ID]{
		next:  next,
		id:    id,
		cache: cache.New(ttl, 2*ttl),
	}
}

// FindTargets returns cached targets and loads the rest from the wrapped
// finder. Results follow ids order; ids that resolve to nothing are
// skipped and not cached.
func (s *Targets[T, ID]) FindTargets(ctx context.Context, d through.Descriptor, ids []ID) ([]T, error) {
	found := make(map[ID]T, len(ids))
	var misses []ID
	for _, id := range ids {
		if x, ok := s.cache.Get(key(d, id)); ok {
			found[id] = x.(T) //nolint:forcetypeassert // only T is stored
			continue
		}
		misses = append(misses, id)
	}

	if len(misses) > 0 {
		loaded, err := s.next.FindTargets(ctx, d, misses)
		if err != nil {
			return nil, err //nolint:wrapcheck // errors belong to the wrapped finder
		}
		for i := range loaded {
			id := s.id(&loaded[i])
			found[id] = loaded[i]
			s.cache.Set(key(d, id), loaded[i], cache.DefaultExpiration)
		}
	}

	out := make([]T, 0, len(found))
	for _, id := range ids {
		if t, ok := found[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

// Invalidate drops the cached targets of d with the given ids.
func (s *Targets[T, ID]) Invalidate(d through.Descriptor, ids ...ID) {
	for _, id := range ids {
		s.cache.Delete(key(d, id))
	}
}

// Flush drops every cached target.
func (s *Targets[T, ID]) Flush() {
	s.cache.Flush()
}

func key[ID through.Identifier](d through.Descriptor, id ID) string {
	return fmt.Sprintf("%s:%v", d.Target, id)
}

var _ through.TargetFinder[struct{}, int64] = (*Targets[struct{}, int64])(nil)
