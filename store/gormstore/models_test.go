package gormstore_test

import (
	"time"

	"github.com/mickamy/manythrough/through"
)

type Hospital struct {
	ID string
}

type Doctor struct {
	ID   string `gorm:"primaryKey;type:text"`
	Name string
}

// HospitalDoctor uses a text primary key so the store is exercised with
// string identifiers end to end.
type HospitalDoctor struct {
	ID         string `gorm:"primaryKey;type:text"`
	HospitalID string `gorm:"type:text;uniqueIndex:hospital_doctors_pair"`
	DoctorID   string `gorm:"type:text;uniqueIndex:hospital_doctors_pair"`
	CreatedAt  time.Time
}

func hospitalDoctorKeys(j *HospitalDoctor) through.JoinKey[string] {
	return through.JoinKey[string]{ID: j.ID, Host: j.HospitalID, Target: j.DoctorID}
}
