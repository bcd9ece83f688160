package appointment

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("appointment not found")

type AppointmentRepository interface {
	Create(ctx context.Context, a newAppointment) (*Appointment, error)
	GetByID(ctx context.Context, id string) (*Appointment, error)
	ListForPatient(ctx context.Context, patientID string) ([]Appointment, error)
	Delete(ctx context.Context, id string) error
}
