package sqlstore_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mickamy/manythrough/internal/testdb"
	"github.com/mickamy/manythrough/orm"
	"github.com/mickamy/manythrough/store/sqlstore"
	"github.com/mickamy/manythrough/through"
)

var schema = map[testdb.Engine][]string{
	testdb.MySQL: {
		`CREATE TABLE doctors (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			name VARCHAR(255) NOT NULL
		)`,
		`CREATE TABLE hospital_doctors (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			hospital_id BIGINT NOT NULL,
			doctor_id BIGINT NOT NULL,
			created_at DATETIME(6) NOT NULL,
			UNIQUE KEY hospital_doctors_pair (hospital_id, doctor_id)
		)`,
	},
	testdb.SQLite: {
		`CREATE TABLE doctors (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL
		)`,
		`CREATE TABLE hospital_doctors (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			hospital_id INTEGER NOT NULL,
			doctor_id INTEGER NOT NULL,
			created_at DATETIME NOT NULL,
			UNIQUE (hospital_id, doctor_id)
		)`,
	},
	testdb.Postgres: {
		`CREATE TABLE doctors (
			id BIGSERIAL PRIMARY KEY,
			name VARCHAR(255) NOT NULL
		)`,
		`CREATE TABLE hospital_doctors (
			id BIGSERIAL PRIMARY KEY,
			hospital_id BIGINT NOT NULL,
			doctor_id BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			UNIQUE (hospital_id, doctor_id)
		)`,
	},
}

type env struct {
	db      *orm.DB
	joins   *sqlstore.Joins[HospitalDoctor, int64]
	assoc   *through.Association[Hospital, Doctor, HospitalDoctor, int64]
	doctors []int64
}

func setup(t *testing.T, engine testdb.Engine) env {
	t.Helper()

	raw := testdb.Open(t, engine)
	for _, stmt := range schema[engine] {
		_, err := raw.Exec(stmt)
		require.NoError(t, err)
	}
	d, err := orm.DialectFor(string(engine))
	require.NoError(t, err)
	db := orm.New(raw, d)

	var ids []int64
	for _, name := range []string{"Ada", "Grace", "Barbara"} {
		doc := &Doctor{Name: name}
		require.NoError(t, Doctors(db).Create(t.Context(), doc))
		ids = append(ids, doc.ID)
	}

	joins := sqlstore.NewJoins(db, HospitalDoctors, hospitalDoctorKeys,
		sqlstore.WithStamp(func(j *HospitalDoctor, at time.Time) { j.CreatedAt = at }))
	assoc, err := through.Register(through.NewRegistry(),
		through.Declaration{Host: "hospitals", Name: "doctors", Through: "hospital_doctors"},
		joins, sqlstore.NewTargets[Doctor, int64](db, Doctors), hospitalDoctorsMapping)
	require.NoError(t, err)

	return env{db: db, joins: joins, assoc: assoc, doctors: ids}
}

func testReplace(t *testing.T, engine testdb.Engine) {
	e := setup(t, engine)
	ctx := t.Context()
	h := &Hospital{ID: 1}
	d1, d2, d3 := e.doctors[0], e.doctors[1], e.doctors[2]

	require.NoError(t, e.assoc.ReplaceIDs(ctx, h, []int64{d1, d2}))
	before, err := HospitalDoctors(e.db).Where("doctor_id = ?", d2).First(ctx)
	require.NoError(t, err)

	require.NoError(t, e.assoc.ReplaceIDs(ctx, h, []int64{d2, d3}))

	ids, err := e.assoc.IDs(ctx, h)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{d2, d3}, ids)

	after, err := HospitalDoctors(e.db).Where("doctor_id = ?", d2).First(ctx)
	require.NoError(t, err)
	assert.Equal(t, before.ID, after.ID, "retained join row must not be rewritten")

	doctors, err := e.assoc.Collection(ctx, h)
	require.NoError(t, err)
	require.Len(t, doctors, 2)
	assert.Equal(t, "Grace", doctors[0].Name)
	assert.Equal(t, "Barbara", doctors[1].Name)

	require.NoError(t, e.assoc.ReplaceIDs(ctx, h, nil))
	empty, err := e.assoc.Empty(ctx, h)
	require.NoError(t, err)
	assert.True(t, empty)
}

func testReplaceStampsNewRows(t *testing.T, engine testdb.Engine) {
	e := setup(t, engine)
	at := time.Date(2024, 4, 1, 9, 30, 0, 0, time.UTC)
	ctx := orm.WithClock(t.Context(), orm.ClockFunc(func() time.Time { return at }))

	require.NoError(t, e.assoc.ReplaceIDs(ctx, &Hospital{ID: 2}, []int64{e.doctors[0]}))

	row, err := HospitalDoctors(e.db).Where("hospital_id = ?", int64(2)).First(ctx)
	require.NoError(t, err)
	assert.True(t, row.CreatedAt.Equal(at), "created_at = %v, want %v", row.CreatedAt, at)
}

func testAtomicRollsBack(t *testing.T, engine testdb.Engine) {
	e := setup(t, engine)
	ctx := t.Context()
	h := &Hospital{ID: 3}
	require.NoError(t, e.assoc.ReplaceIDs(ctx, h, []int64{e.doctors[0]}))

	failing := errors.New("stamp failed")
	joins := sqlstore.NewJoins(e.db, HospitalDoctors, hospitalDoctorKeys,
		sqlstore.WithStamp(func(j *HospitalDoctor, at time.Time) {
			if j.DoctorID == e.doctors[2] {
				panic(failing)
			}
			j.CreatedAt = at
		}))
	assoc, err := through.New(e.assoc.Descriptor(), joins,
		sqlstore.NewTargets[Doctor, int64](e.db, Doctors), hospitalDoctorsMapping)
	require.NoError(t, err)

	assert.PanicsWithValue(t, failing, func() {
		_ = assoc.ReplaceIDs(ctx, h, []int64{e.doctors[1], e.doctors[2]}, through.Atomic())
	})

	ids, err := e.assoc.IDs(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, []int64{e.doctors[0]}, ids)
}

func testUniquePairConstraint(t *testing.T, engine testdb.Engine) {
	e := setup(t, engine)
	ctx := t.Context()
	d, err := through.NewRegistry().Declare(through.Declaration{
		Host: "hospitals", Name: "doctors", Through: "hospital_doctors",
	})
	require.NoError(t, err)

	require.NoError(t, e.joins.CreateJoin(ctx, d, &HospitalDoctor{HospitalID: 4, DoctorID: e.doctors[0]}))
	assert.Error(t, e.joins.CreateJoin(ctx, d, &HospitalDoctor{HospitalID: 4, DoctorID: e.doctors[0]}))
}
