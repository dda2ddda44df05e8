package sqlstore_test

import (
	"database/sql"
	"time"

	"github.com/mickamy/manythrough/orm"
	"github.com/mickamy/manythrough/through"
)

type Hospital struct {
	ID int64
}

type Doctor struct {
	ID   int64
	Name string
}

type HospitalDoctor struct {
	ID         int64
	HospitalID int64
	DoctorID   int64
	CreatedAt  time.Time
}

func scanDoctor(rows *sql.Rows) (Doctor, error) {
	var v Doctor
	err := rows.Scan(&v.ID, &v.Name)
	return v, err
}

func doctorColumnValuePairs(v *Doctor, includesPK bool) ([]string, []any) {
	if includesPK {
		return []string{"id", "name"}, []any{v.ID, v.Name}
	}
	return []string{"name"}, []any{v.Name}
}

func Doctors(db orm.Querier) *orm.Query[Doctor] {
	return orm.NewQuery[Doctor](db, "doctors", []string{"id", "name"}, "id",
		scanDoctor, doctorColumnValuePairs, func(v *Doctor, id int64) { v.ID = id })
}

func scanHospitalDoctor(rows *sql.Rows) (HospitalDoctor, error) {
	var v HospitalDoctor
	err := rows.Scan(&v.ID, &v.HospitalID, &v.DoctorID, &v.CreatedAt)
	return v, err
}

func hospitalDoctorColumnValuePairs(v *HospitalDoctor, includesPK bool) ([]string, []any) {
	if includesPK {
		return []string{"id", "hospital_id", "doctor_id", "created_at"},
			[]any{v.ID, v.HospitalID, v.DoctorID, v.CreatedAt}
	}
	return []string{"hospital_id", "doctor_id", "created_at"},
		[]any{v.HospitalID, v.DoctorID, v.CreatedAt}
}

func HospitalDoctors(db orm.Querier) *orm.Query[HospitalDoctor] {
	return orm.NewQuery[HospitalDoctor](db, "hospital_doctors",
		[]string{"id", "hospital_id", "doctor_id", "created_at"}, "id",
		scanHospitalDoctor, hospitalDoctorColumnValuePairs, func(v *HospitalDoctor, id int64) { v.ID = id })
}

func hospitalDoctorKeys(j *HospitalDoctor) through.JoinKey[int64] {
	return through.JoinKey[int64]{ID: j.ID, Host: j.HospitalID, Target: j.DoctorID}
}

var hospitalDoctorsMapping = through.Mapping[Hospital, Doctor, HospitalDoctor, int64]{
	HostID:   func(h *Hospital) int64 { return h.ID },
	TargetID: func(d *Doctor) int64 { return d.ID },
	JoinKeys: hospitalDoctorKeys,
	NewJoin: func(hostID, targetID int64) HospitalDoctor {
		return HospitalDoctor{HospitalID: hostID, DoctorID: targetID}
	},
}
