// Package gormstore stores join rows and looks up targets through GORM.
// Join and target types are ordinary GORM models; tables and columns are
// taken from the association Descriptor so one model can serve any table.
package gormstore

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/mickamy/manythrough/through"
)

// Open connects to PostgreSQL and routes GORM's logger through l.
func Open(dsn string, l *zap.Logger) (*gorm.DB, error) {
	if l == nil {
		l = zap.NewNop()
	}
	gormLogger := logger.New(
		zap.NewStdLog(l.Named("gorm")),
		logger.Config{
			SlowThreshold:             300 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormLogger,
	})
	if err != nil {
		return nil, errors.Wrap(err, "gormstore: open")
	}
	return db, nil
}

// Migrate creates or updates the tables of the given models.
func Migrate(db *gorm.DB, models ...any) error {
	return errors.Wrap(db.AutoMigrate(models...), "gormstore: migrate")
}

// Joins is a through.JoinStore backed by a GORM model.
type Joins[J any, ID through.Identifier] struct {
	db   *gorm.DB
	keys through.JoinKeysFunc[J, ID]
}

// NewJoins returns a join store for model J.
func NewJoins[J any, ID through.Identifier](db *gorm.DB, keys through.JoinKeysFunc[J, ID]) *Joins[J, ID] {
	return &Joins[J, ID]{db: db, keys: keys}
}

func (s *Joins[J, ID]) JoinIDs(ctx context.Context, d through.Descriptor, hostID ID) ([]ID, error) {
	ids := []ID{}
	err := s.db.WithContext(ctx).
		Table(d.Join).
		Where(clause.Eq{Column: clause.Column{Name: d.HostForeignKey}, Value: hostID}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: d.JoinPrimaryKey}}).
		Pluck(d.JoinPrimaryKey, &ids).Error
	if err != nil {
		return nil, errors.Wrapf(err, "gormstore: pluck %s.%s", d.Join, d.JoinPrimaryKey)
	}
	return ids, nil
}

func (s *Joins[J, ID]) FindJoins(ctx context.Context, d through.Descriptor, ids []ID) ([]J, error) {
	if len(ids) == 0 {
		return []J{}, nil
	}
	var joins []J
	err := s.db.WithContext(ctx).
		Table(d.Join).
		Where(in(d.JoinPrimaryKey, ids)).
		Order(clause.OrderByColumn{Column: clause.Column{Name: d.JoinPrimaryKey}}).
		Find(&joins).Error
	if err != nil {
		return nil, errors.Wrapf(err, "gormstore: find %s", d.Join)
	}
	return joins, nil
}

func (s *Joins[J, ID]) FindJoinsByKeys(ctx context.Context, d through.Descriptor, hostID ID, targetIDs []ID) ([]J, error) {
	if len(targetIDs) == 0 {
		return []J{}, nil
	}
	var joins []J
	err := s.db.WithContext(ctx).
		Table(d.Join).
		Where(clause.Eq{Column: clause.Column{Name: d.HostForeignKey}, Value: hostID}).
		Where(in(d.TargetForeignKey, targetIDs)).
		Order(clause.OrderByColumn{Column: clause.Column{Name: d.JoinPrimaryKey}}).
		Find(&joins).Error
	if err != nil {
		return nil, errors.Wrapf(err, "gormstore: find %s by keys", d.Join)
	}
	return joins, nil
}

func (s *Joins[J, ID]) CreateJoin(ctx context.Context, d through.Descriptor, j *J) error {
	if err := s.db.WithContext(ctx).Table(d.Join).Create(j).Error; err != nil {
		return errors.Wrapf(err, "gormstore: create %s", d.Join)
	}
	return nil
}

func (s *Joins[J, ID]) DeleteJoins(ctx context.Context, d through.Descriptor, joins []J) error {
	if len(joins) == 0 {
		return nil
	}
	ids := make([]ID, len(joins))
	for i := range joins {
		ids[i] = s.keys(&joins[i]).ID
	}
	if err := s.db.WithContext(ctx).Table(d.Join).Where(in(d.JoinPrimaryKey, ids)).Delete(new(J)).Error; err != nil {
		return errors.Wrapf(err, "gormstore: delete %s", d.Join)
	}
	return nil
}

// InTransaction runs fn with a store bound to a single GORM transaction.
func (s *Joins[J, ID]) InTransaction(ctx context.Context, fn func(through.JoinStore[J, ID]) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error { //nolint:wrapcheck // fn's error is returned as is
		return fn(&Joins[J, ID]{db: tx, keys: s.keys})
	})
}

// Targets is a through.TargetFinder backed by a GORM model.
type Targets[T any, ID through.Identifier] struct {
	db *gorm.DB
}

// NewTargets returns a target finder for model T.
func NewTargets[T any, ID through.Identifier](db *gorm.DB) *Targets[T, ID] {
	return &Targets[T, ID]{db: db}
}

func (s *Targets[T, ID]) FindTargets(ctx context.Context, d through.Descriptor, ids []ID) ([]T, error) {
	if len(ids) == 0 {
		return []T{}, nil
	}
	var targets []T
	if err := s.db.WithContext(ctx).Table(d.Target).Where(in(d.TargetPrimaryKey, ids)).Find(&targets).Error; err != nil {
		return nil, errors.Wrapf(err, "gormstore: find %s", d.Target)
	}
	return targets, nil
}

func in[ID any](column string, ids []ID) clause.IN {
	values := make([]any, len(ids))
	for i, id := range ids {
		values[i] = id
	}
	return clause.IN{Column: clause.Column{Name: column}, Values: values}
}

var (
	_ through.JoinStore[struct{}, int64]    = (*Joins[struct{}, int64])(nil)
	_ through.Transactor[struct{}, int64]   = (*Joins[struct{}, int64])(nil)
	_ through.TargetFinder[struct{}, int64] = (*Targets[struct{}, int64])(nil)
)
