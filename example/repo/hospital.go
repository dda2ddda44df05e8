package repo

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mickamy/manythrough/example/model"
	"github.com/mickamy/manythrough/example/query"
	"github.com/mickamy/manythrough/orm"
	"github.com/mickamy/manythrough/scope"
	"github.com/mickamy/manythrough/store/cachestore"
	"github.com/mickamy/manythrough/store/sqlstore"
	"github.com/mickamy/manythrough/through"
)

// Associations declares every association of the example schema.
func Associations() (*through.Registry, error) {
	r := through.NewRegistry()
	if _, err := r.Declare(through.Declaration{
		Host:    "hospitals",
		Name:    "doctors",
		Through: "hospital_doctors",
	}); err != nil {
		return nil, err
	}
	r.Seal()
	return r, nil
}

// HospitalRepository wraps the query factories and the hospitals.doctors
// association with a repository pattern.
type HospitalRepository struct {
	db      orm.Querier
	doctors *through.Association[model.Hospital, model.Doctor, model.HospitalDoctor, int64]
}

func NewHospitalRepository(db orm.Querier, r *through.Registry, l *zap.Logger) (*HospitalRepository, error) {
	doctors, err := through.Bind(r, "hospitals", "doctors",
		sqlstore.NewJoins(db, query.HospitalDoctors, hospitalDoctorKeys,
			sqlstore.WithStamp(func(j *model.HospitalDoctor, at time.Time) { j.CreatedAt = at })),
		cachestore.NewTargets[model.Doctor, int64](
			sqlstore.NewTargets[model.Doctor, int64](db, query.Doctors),
			func(d *model.Doctor) int64 { return d.ID },
			5*time.Minute,
		),
		through.Mapping[model.Hospital, model.Doctor, model.HospitalDoctor, int64]{
			HostID:   func(h *model.Hospital) int64 { return h.ID },
			TargetID: func(d *model.Doctor) int64 { return d.ID },
			JoinKeys: hospitalDoctorKeys,
			NewJoin: func(hospitalID, doctorID int64) model.HospitalDoctor {
				return model.HospitalDoctor{HospitalID: hospitalID, DoctorID: doctorID}
			},
		},
		through.WithLogger(l),
	)
	if err != nil {
		return nil, err
	}
	return &HospitalRepository{db: db, doctors: doctors}, nil
}

func hospitalDoctorKeys(j *model.HospitalDoctor) through.JoinKey[int64] {
	return through.JoinKey[int64]{ID: j.ID, Host: j.HospitalID, Target: j.DoctorID}
}

func (r *HospitalRepository) Create(ctx context.Context, h *model.Hospital) error {
	return query.Hospitals(r.db).Create(ctx, h)
}

func (r *HospitalRepository) CreateDoctor(ctx context.Context, d *model.Doctor) error {
	return query.Doctors(r.db).Create(ctx, d)
}

func (r *HospitalRepository) FindByID(ctx context.Context, id int64) (model.Hospital, error) {
	return query.Hospitals(r.db).Scopes(scope.Eq("id", id)).First(ctx)
}

// WithDoctors loads h.Doctors.
func (r *HospitalRepository) WithDoctors(ctx context.Context, h *model.Hospital) error {
	doctors, err := r.doctors.Collection(ctx, h)
	if err != nil {
		return err
	}
	h.Doctors = doctors
	return nil
}

func (r *HospitalRepository) DoctorIDs(ctx context.Context, h *model.Hospital) ([]int64, error) {
	return r.doctors.IDs(ctx, h)
}

// SetDoctors makes doctors the complete doctor list of h, atomically.
func (r *HospitalRepository) SetDoctors(ctx context.Context, h *model.Hospital, doctors ...model.Doctor) error {
	return r.doctors.Replace(ctx, h, through.EntityRefs[model.Doctor, int64](doctors), through.Atomic())
}

// SetDoctorIDs is SetDoctors with ids as they arrive from a form: strings,
// blanks allowed.
func (r *HospitalRepository) SetDoctorIDs(ctx context.Context, h *model.Hospital, ids []string) error {
	items := make([]any, len(ids))
	for i, id := range ids {
		items[i] = id
	}
	return r.doctors.ReplaceLoose(ctx, h, items, through.Atomic())
}

func (r *HospitalRepository) PlanDoctors(ctx context.Context, h *model.Hospital, ids []int64) (through.Diff[int64], error) {
	return r.doctors.Plan(ctx, h, through.IDRefs[model.Doctor](ids))
}
