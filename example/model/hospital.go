package model

import "time"

//go:generate go tool manythrough discover -source=$GOFILE

type Hospital struct {
	ID      int64    `db:"id,primaryKey"`
	Name    string   `db:"name"`
	Doctors []Doctor `db:"-" rel:"many_through,through:hospital_doctors,foreign_key:hospital_id,references:doctor_id"`
}

type Doctor struct {
	ID   int64  `db:"id,primaryKey"`
	Name string `db:"name"`
}

type HospitalDoctor struct {
	ID         int64     `db:"id,primaryKey"`
	HospitalID int64     `db:"hospital_id"`
	DoctorID   int64     `db:"doctor_id"`
	CreatedAt  time.Time `db:"created_at"`
}
