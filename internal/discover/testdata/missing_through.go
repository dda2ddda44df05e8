package testdata

type Clinic struct {
	ID      int64
	Doctors []Doctor `rel:"many_through,foreign_key:clinic_id"`
}
