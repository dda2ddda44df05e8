package redisstore_test

import (
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
	ID         int64 `json:"id"`
	HospitalID int64 `json:"hospital_id"`
	DoctorID   int64 `json:"doctor_id"`
}

func hospitalDoctorKeys(j *HospitalDoctor) through.JoinKey[int64] {
	return through.JoinKey[int64]{ID: j.ID, Host: j.HospitalID, Target: j.DoctorID}
}

func setHospitalDoctorID(j *HospitalDoctor, id int64) { j.ID = id }

var hospitalDoctorsMapping = through.Mapping[Hospital, Doctor, HospitalDoctor, int64]{
	HostID:   func(h *Hospital) int64 { return h.ID },
	TargetID: func(d *Doctor) int64 { return d.ID },
	JoinKeys: hospitalDoctorKeys,
	NewJoin: func(hostID, targetID int64) HospitalDoctor {
		return HospitalDoctor{HospitalID: hostID, DoctorID: targetID}
	},
}

var hospitalDoctors = through.Declaration{Host: "hospitals", Name: "doctors", Through: "hospital_doctors"}
