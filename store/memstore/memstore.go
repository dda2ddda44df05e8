// Package memstore keeps join rows and targets in memory. It implements
// through.JoinStore, through.Transactor and through.TargetFinder and is
// meant for tests, demos and small embedded uses.
package memstore

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/mickamy/manythrough/through"
)

// Joins is an in-memory join table. Rows keep their insertion order.
type Joins[J any, ID through.Identifier] struct {
	txMu   sync.Mutex
	mu     sync.RWMutex
	rows   []J
	keys   through.JoinKeysFunc[J, ID]
	setID  func(j *J, id ID)
	nextID func() ID
}

// NewJoins returns an empty join table. nextID generates primary keys for
// created rows and setID stores them; see Sequence and UUIDs.
func NewJoins[J any, ID through.Identifier](
	keys through.JoinKeysFunc[J, ID], setID func(j *J, id ID), nextID func() ID,
) *Joins[J, ID] {
	return &Joins[J, ID]{keys: keys, setID: setID, nextID: nextID}
}

// Insert adds rows as given, keeping their primary keys. Useful to seed
// state, including duplicate pairs.
func (s *Joins[J, ID]) Insert(rows ...J) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, rows...)
}

// Rows returns a copy of every stored row.
func (s *Joins[J, ID]) Rows() []J {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.rows)
}

func (s *Joins[J, ID]) JoinIDs(_ context.Context, _ through.Descriptor, hostID ID) ([]ID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []ID
	for i := range s.rows {
		if k := s.keys(&s.rows[i]); k.Host == hostID {
			ids = append(ids, k.ID)
		}
	}
	return ids, nil
}

func (s *Joins[J, ID]) FindJoins(_ context.Context, _ through.Descriptor, ids []ID) ([]J, error) {
	want := set(ids)
	return s.filter(func(k through.JoinKey[ID]) bool {
		_, ok := want[k.ID]
		return ok
	}), nil
}

func (s *Joins[J, ID]) FindJoinsByKeys(_ context.Context, _ through.Descriptor, hostID ID, targetIDs []ID) ([]J, error) {
	want := set(targetIDs)
	return s.filter(func(k through.JoinKey[ID]) bool {
		_, ok := want[k.Target]
		return ok && k.Host == hostID
	}), nil
}

func (s *Joins[J, ID]) CreateJoin(_ context.Context, _ through.Descriptor, j *J) error {
	s.setID(j, s.nextID())
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, *j)
	return nil
}

func (s *Joins[J, ID]) DeleteJoins(_ context.Context, _ through.Descriptor, joins []J) error {
	doomed := make(map[ID]struct{}, len(joins))
	for i := range joins {
		doomed[s.keys(&joins[i]).ID] = struct{}{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = slices.DeleteFunc(s.rows, func(j J) bool {
		_, ok := doomed[s.keys(&j).ID]
		return ok
	})
	return nil
}

// InTransaction runs fn against s and restores the previous rows if fn
// fails. Transactions are serialized with each other but not isolated from
// plain calls made outside them.
func (s *Joins[J, ID]) InTransaction(_ context.Context, fn func(through.JoinStore[J, ID]) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	snapshot := s.Rows()
	if err := fn(s); err != nil {
		s.mu.Lock()
		s.rows = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *Joins[J, ID]) filter(keep func(through.JoinKey[ID]) bool) []J {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []J
	for i := range s.rows {
		if keep(s.keys(&s.rows[i])) {
			out = append(out, s.rows[i])
		}
	}
	return out
}

// Targets is an in-memory set of target entities keyed by id.
type Targets[T any, ID through.Identifier] struct {
	mu    sync.RWMutex
	items map[ID]T
	id    func(t *T) ID
}

// NewTargets returns a Targets holding items.
func NewTargets[T any, ID through.Identifier](id func(t *T) ID, items ...T) *Targets[T, ID] {
	s := &Targets[T, ID]{items: make(map[ID]T, len(items)), id: id}
	s.Put(items...)
	return s
}

// Put adds or replaces items.
func (s *Targets[T, ID]) Put(items ...T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range items {
		s.items[s.id(&items[i])] = items[i]
	}
}

// Remove drops the targets with the given ids. Join rows pointing at them
// are left in place.
func (s *Targets[T, ID]) Remove(ids ...ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.items, id)
	}
}

// FindTargets returns the stored targets among ids, in ids order.
func (s *Targets[T, ID]) FindTargets(_ context.Context, _ through.Descriptor, ids []ID) ([]T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		if t, ok := s.items[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

// Sequence returns a generator of increasing integer keys starting at 1.
func Sequence[ID ~int | ~int32 | ~int64 | ~uint | ~uint32 | ~uint64]() func() ID {
	var n atomic.Uint64
	return func() ID { return ID(n.Add(1)) }
}

// UUIDs returns a generator of random UUID string keys.
func UUIDs[ID ~string]() func() ID {
	return func() ID { return ID(uuid.NewString()) }
}

func set[ID through.Identifier](ids []ID) map[ID]struct{} {
	m := make(map[ID]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return m
}

var (
	_ through.JoinStore[struct{}, int64]    = (*Joins[struct{}, int64])(nil)
	_ through.Transactor[struct{}, int64]   = (*Joins[struct{}, int64])(nil)
	_ through.TargetFinder[struct{}, int64] = (*Targets[struct{}, int64])(nil)
)
