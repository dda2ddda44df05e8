package testdata

import "time"

type Hospital struct {
	ID   int64
	Name string
	// Doctors are linked through hospital_doctors.
	Doctors  []Doctor   `rel:"many_through,through:hospital_doctors,foreign_key:hospital_id,references:doctor_id"`
	Surgeons []*Surgeon `rel:"many_through,through:hospital_surgeons"`
	Wards    []Ward     `rel:"has_many,foreign_key:hospital_id"`
}

type Doctor struct {
	ID   int64
	Name string
}

type Surgeon struct {
	Code string `db:"code,primaryKey"`
	Name string
}

func (Surgeon) TableName() string { return "staff_surgeons" }

type Ward struct {
	ID         int64
	HospitalID int64
	CreatedAt  time.Time
}
