// Package query holds the per-table query factories used by repo.
package query

import (
	"database/sql"

	"github.com/mickamy/manythrough/example/model"
	"github.com/mickamy/manythrough/orm"
)

func Hospitals(db orm.Querier) *orm.Query[model.Hospital] {
	return orm.NewQuery[model.Hospital](db, orm.ResolveTableName[model.Hospital](), []string{"id", "name"}, "id",
		func(rows *sql.Rows) (model.Hospital, error) {
			var v model.Hospital
			err := rows.Scan(&v.ID, &v.Name)
			return v, err
		},
		func(v *model.Hospital, includesPK bool) ([]string, []any) {
			if includesPK {
				return []string{"id", "name"}, []any{v.ID, v.Name}
			}
			return []string{"name"}, []any{v.Name}
		},
		func(v *model.Hospital, id int64) { v.ID = id },
	)
}

func Doctors(db orm.Querier) *orm.Query[model.Doctor] {
	return orm.NewQuery[model.Doctor](db, orm.ResolveTableName[model.Doctor](), []string{"id", "name"}, "id",
		func(rows *sql.Rows) (model.Doctor, error) {
			var v model.Doctor
			err := rows.Scan(&v.ID, &v.Name)
			return v, err
		},
		func(v *model.Doctor, includesPK bool) ([]string, []any) {
			if includesPK {
				return []string{"id", "name"}, []any{v.ID, v.Name}
			}
			return []string{"name"}, []any{v.Name}
		},
		func(v *model.Doctor, id int64) { v.ID = id },
	)
}

var hospitalDoctorColumns = []string{"id", "hospital_id", "doctor_id", "created_at"}

func HospitalDoctors(db orm.Querier) *orm.Query[model.HospitalDoctor] {
	return orm.NewQuery[model.HospitalDoctor](db, orm.ResolveTableName[model.HospitalDoctor](),
		hospitalDoctorColumns, "id",
		func(rows *sql.Rows) (model.HospitalDoctor, error) {
			var v model.HospitalDoctor
			err := rows.Scan(&v.ID, &v.HospitalID, &v.DoctorID, &v.CreatedAt)
			return v, err
		},
		func(v *model.HospitalDoctor, includesPK bool) ([]string, []any) {
			if includesPK {
				return hospitalDoctorColumns, []any{v.ID, v.HospitalID, v.DoctorID, v.CreatedAt}
			}
			return hospitalDoctorColumns[1:], []any{v.HospitalID, v.DoctorID, v.CreatedAt}
		},
		func(v *model.HospitalDoctor, id int64) { v.ID = id },
	)
}
