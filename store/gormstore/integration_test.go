//go:build integration

package gormstore_test

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"

	"github.com/mickamy/manythrough/internal/testdb"
	"github.com/mickamy/manythrough/store/gormstore"
	"github.com/mickamy/manythrough/through"
)

func setup(t *testing.T) (*gorm.DB, *through.Association[Hospital, Doctor, HospitalDoctor, string]) {
	t.Helper()

	db, err := gormstore.Open(testdb.DSN(t, testdb.Postgres), zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, gormstore.Migrate(db, &Doctor{}, &HospitalDoctor{}))

	for _, doc := range []Doctor{{ID: "d10", Name: "Ada"}, {ID: "d20", Name: "Grace"}, {ID: "d30", Name: "Barbara"}} {
		require.NoError(t, db.Create(&doc).Error)
	}

	assoc, err := through.Register(through.NewRegistry(),
		through.Declaration{Host: "hospitals", Name: "doctors", Through: "hospital_doctors"},
		gormstore.NewJoins(db, hospitalDoctorKeys),
		gormstore.NewTargets[Doctor, string](db),
		through.Mapping[Hospital, Doctor, HospitalDoctor, string]{
			HostID:   func(h *Hospital) string { return h.ID },
			TargetID: func(d *Doctor) string { return d.ID },
			JoinKeys: hospitalDoctorKeys,
			NewJoin: func(hostID, targetID string) HospitalDoctor {
				return HospitalDoctor{ID: uuid.NewString(), HospitalID: hostID, DoctorID: targetID}
			},
		},
	)
	require.NoError(t, err)
	return db, assoc
}

func TestReplace(t *testing.T) {
	t.Parallel()

	db, assoc := setup(t)
	ctx := t.Context()
	h := &Hospital{ID: "h1"}

	require.NoError(t, assoc.ReplaceIDs(ctx, h, []string{"d10", "d20"}))

	var kept HospitalDoctor
	require.NoError(t, db.Where("doctor_id = ?", "d20").Take(&kept).Error)

	require.NoError(t, assoc.ReplaceLoose(ctx, h, []any{"d20", "", "d30"}))

	ids, err := assoc.IDs(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, []string{"d20", "d30"}, ids)

	var again HospitalDoctor
	require.NoError(t, db.Where("doctor_id = ?", "d20").Take(&again).Error)
	assert.Equal(t, kept.ID, again.ID)
	assert.False(t, again.CreatedAt.IsZero())

	diff, err := assoc.Plan(ctx, h, through.IDRefs[Doctor]([]string{"d30"}))
	require.NoError(t, err)
	assert.Equal(t, []string{"d20"}, diff.Removed)
	assert.Empty(t, diff.Added)
}

func TestMissingTargetsAreSkipped(t *testing.T) {
	t.Parallel()

	db, assoc := setup(t)
	ctx := t.Context()
	h := &Hospital{ID: "h2"}

	require.NoError(t, assoc.ReplaceIDs(ctx, h, []string{"d10", "d20"}))
	require.NoError(t, db.Delete(&Doctor{ID: "d10"}).Error)

	doctors, err := assoc.Collection(ctx, h)
	require.NoError(t, err)
	require.Len(t, doctors, 1)
	assert.Equal(t, "Grace", doctors[0].Name)
}

func TestAtomicRollsBackOnUniqueViolation(t *testing.T) {
	t.Parallel()

	db, assoc := setup(t)
	ctx := t.Context()
	h := &Hospital{ID: "h3"}
	require.NoError(t, assoc.ReplaceIDs(ctx, h, []string{"d10"}))

	// A duplicate primary key makes the second insert fail inside the
	// transaction; the removal of d10 must be undone with it.
	dup := through.Mapping[Hospital, Doctor, HospitalDoctor, string]{
		HostID:   func(h *Hospital) string { return h.ID },
		TargetID: func(d *Doctor) string { return d.ID },
		JoinKeys: hospitalDoctorKeys,
		NewJoin: func(hostID, targetID string) HospitalDoctor {
			return HospitalDoctor{ID: "fixed", HospitalID: hostID, DoctorID: targetID}
		},
	}
	atomic, err := through.New(assoc.Descriptor(), gormstore.NewJoins(db, hospitalDoctorKeys),
		gormstore.NewTargets[Doctor, string](db), dup)
	require.NoError(t, err)

	err = atomic.ReplaceIDs(ctx, h, []string{"d20", "d30"}, through.Atomic())
	require.Error(t, err)
	assert.True(t, errors.Is(err, gorm.ErrDuplicatedKey), "err = %v", err)

	ids, err := assoc.IDs(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, []string{"d10"}, ids)
}
