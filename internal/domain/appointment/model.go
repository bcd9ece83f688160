package appointment

import (
	"time"

	"github.com/healthhub/api/internal/domain/doctor"
	"github.com/healthhub/api/internal/domain/profile"
	"github.com/healthhub/api/internal/platform/store"
)

const (
	Table         = "appointments"
	StatusBooked  = "booked"
	dateTimeField = "date_time"
)

type Appointment struct {
	ID        string           `json:"id"`
	PatientID string           `json:"patient_id"`
	DoctorID  string           `json:"doctor_id"`
	DateTime  time.Time        `json:"date_time"`
	Status    string           `json:"status"`
	CreatedAt *time.Time       `json:"created_at,omitempty"`
	Doctor    *doctor.Doctor   `json:"doctor,omitempty"`
	Patient   *profile.Profile `json:"patient,omitempty"`
}

type newAppointment struct {
	PatientID string    `json:"patient_id"`
	DoctorID  string    `json:"doctor_id"`
	DateTime  time.Time `json:"date_time"`
	Status    string    `json:"status"`
}

// BookRequest carries date_time as text so a malformed timestamp is reported
// as a field error rather than a body decoding failure.
type BookRequest struct {
	DoctorID string `json:"doctor_id" validate:"required"`
	DateTime string `json:"date_time" validate:"required"`
}

var expanded = []store.Relation{
	store.BelongsTo("doctor", doctor.Table, "doctor_id"),
	store.BelongsTo("patient", profile.Table, "patient_id"),
}
