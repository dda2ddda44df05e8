// Package sqlstore stores join rows and looks up targets through the orm
// package, on MySQL, PostgreSQL or SQLite. Column names come from the
// association Descriptor; row mapping comes from the caller's query
// factories.
package sqlstore

import (
	"context"
	"time"

	"github.com/mickamy/manythrough/orm"
	"github.com/mickamy/manythrough/scope"
	"github.com/mickamy/manythrough/through"
)

// QueryFunc is a per-table query factory, for example
//
//	func HospitalDoctors(db orm.Querier) *orm.Query[HospitalDoctor]
type QueryFunc[T any] func(db orm.Querier) *orm.Query[T]

// Joins is a through.JoinStore backed by a SQL table.
type Joins[J any, ID through.Identifier] struct {
	db    orm.Querier
	query QueryFunc[J]
	keys  through.JoinKeysFunc[J, ID]
	stamp func(j *J, at time.Time)
}

// JoinsOption configures Joins.
type JoinsOption[J any] func(*joinsOptions[J])

type joinsOptions[J any] struct {
	stamp func(j *J, at time.Time)
}

// WithStamp sets a hook called on every new join row before it is
// inserted, with the time from orm.Now. Use it to fill created_at columns.
func WithStamp[J any](fn func(j *J, at time.Time)) JoinsOption[J] {
	return func(o *joinsOptions[J]) { o.stamp = fn }
}

// NewJoins returns a join store reading and writing through query.
func NewJoins[J any, ID through.Identifier](
	db orm.Querier, query QueryFunc[J], keys through.JoinKeysFunc[J, ID], opts ...JoinsOption[J],
) *Joins[J, ID] {
	var o joinsOptions[J]
	for _, opt := range opts {
		opt(&o)
	}
	return &Joins[J, ID]{db: db, query: query, keys: keys, stamp: o.stamp}
}

func (s *Joins[J, ID]) JoinIDs(ctx context.Context, d through.Descriptor, hostID ID) ([]ID, error) {
	return orm.Pluck[ID](ctx, s.db, d.Join, d.JoinPrimaryKey,
		scope.Eq(d.HostForeignKey, hostID),
		scope.OrderBy(d.JoinPrimaryKey),
	)
}

func (s *Joins[J, ID]) FindJoins(ctx context.Context, d through.Descriptor, ids []ID) ([]J, error) {
	if len(ids) == 0 {
		return []J{}, nil
	}
	return s.query(s.db).
		Scopes(scope.In(d.JoinPrimaryKey, ids), scope.OrderBy(d.JoinPrimaryKey)).
		All(ctx)
}

func (s *Joins[J, ID]) FindJoinsByKeys(ctx context.Context, d through.Descriptor, hostID ID, targetIDs []ID) ([]J, error) {
	if len(targetIDs) == 0 {
		return []J{}, nil
	}
	return s.query(s.db).
		Scopes(
			scope.Eq(d.HostForeignKey, hostID),
			scope.In(d.TargetForeignKey, targetIDs),
			scope.OrderBy(d.JoinPrimaryKey),
		).
		All(ctx)
}

func (s *Joins[J, ID]) CreateJoin(ctx context.Context, _ through.Descriptor, j *J) error {
	if s.stamp != nil {
		s.stamp(j, orm.Now(ctx))
	}
	return s.query(s.db).Create(ctx, j)
}

func (s *Joins[J, ID]) DeleteJoins(ctx context.Context, d through.Descriptor, joins []J) error {
	if len(joins) == 0 {
		return nil
	}
	ids := make([]ID, len(joins))
	for i := range joins {
		ids[i] = s.keys(&joins[i]).ID
	}
	return s.query(s.db).Scopes(scope.In(d.JoinPrimaryKey, ids)).Delete(ctx)
}

// InTransaction runs fn with a store bound to a single transaction.
// Nested calls reuse the outer transaction.
func (s *Joins[J, ID]) InTransaction(ctx context.Context, fn func(through.JoinStore[J, ID]) error) error {
	return orm.Transact(ctx, s.db, func(q orm.Querier) error {
		return fn(&Joins[J, ID]{db: q, query: s.query, keys: s.keys, stamp: s.stamp})
	})
}

// Targets is a through.TargetFinder backed by a SQL table.
type Targets[T any, ID through.Identifier] struct {
	db    orm.Querier
	query QueryFunc[T]
}

// NewTargets returns a target finder reading through query.
func NewTargets[T any, ID through.Identifier](db orm.Querier, query QueryFunc[T]) *Targets[T, ID] {
	return &Targets[T, ID]{db: db, query: query}
}

func (s *Targets[T, ID]) FindTargets(ctx context.Context, d through.Descriptor, ids []ID) ([]T, error) {
	if len(ids) == 0 {
		return []T{}, nil
	}
	return s.query(s.db).Scopes(scope.In(d.TargetPrimaryKey, ids)).All(ctx)
}

var (
	_ through.JoinStore[struct{}, int64]    = (*Joins[struct{}, int64])(nil)
	_ through.Transactor[struct{}, int64]   = (*Joins[struct{}, int64])(nil)
	_ through.TargetFinder[struct{}, int64] = (*Targets[struct{}, int64])(nil)
)
