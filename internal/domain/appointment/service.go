package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/healthhub/api/internal/domain/doctor"
	"github.com/healthhub/api/internal/platform/apperr"
	"github.com/healthhub/api/internal/platform/auth"
	"github.com/healthhub/api/internal/platform/validation"
)

// Doctors confirms a doctor exists before a booking is written.
type Doctors interface {
	GetDoctor(ctx context.Context, id string) (*doctor.Doctor, error)
}

type Service struct {
	appointments AppointmentRepository
	doctors      Doctors
	roles        auth.RoleResolver
}

func NewService(appointments AppointmentRepository, doctors Doctors, roles auth.RoleResolver) *Service {
	return &Service{appointments: appointments, doctors: doctors, roles: roles}
}

func (s *Service) Book(ctx context.Context, p auth.Principal, req BookRequest) (*Appointment, error) {
	if p.ID == "" {
		return nil, apperr.Unauthorized("authentication required")
	}
	if err := validation.Struct(req); err != nil {
		return nil, apperr.InvalidInput("doctor id and date/time are required")
	}
	at, err := time.Parse(time.RFC3339, req.DateTime)
	if err != nil {
		return nil, apperr.InvalidInput("date_time must be an RFC 3339 timestamp").WithDetail("field", "date_time")
	}

	if _, err := s.doctors.GetDoctor(ctx, req.DoctorID); err != nil {
		return nil, err
	}

	a, err := s.appointments.Create(ctx, newAppointment{
		PatientID: p.ID,
		DoctorID:  req.DoctorID,
		DateTime:  at.UTC(),
		Status:    StatusBooked,
	})
	if err != nil {
		return nil, apperr.Persistence("failed to create appointment", err)
	}
	return a, nil
}

func (s *Service) ListForPatient(ctx context.Context, p auth.Principal, patientID string) ([]Appointment, error) {
	if err := auth.OwnerOrAdmin(ctx, s.roles, p, patientID); err != nil {
		return nil, err
	}
	items, err := s.appointments.ListForPatient(ctx, patientID)
	if err != nil {
		return nil, apperr.Persistence("failed to fetch appointments", err)
	}
	return items, nil
}

func (s *Service) Cancel(ctx context.Context, p auth.Principal, id string) error {
	a, err := s.appointments.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return apperr.NotFound("appointment not found")
	}
	if err != nil {
		return apperr.Persistence("failed to fetch appointment", err)
	}
	if err := auth.OwnerOrAdmin(ctx, s.roles, p, a.PatientID); err != nil {
		return err
	}
	if err := s.appointments.Delete(ctx, id); err != nil {
		return apperr.Persistence("failed to delete appointment", err)
	}
	return nil
}
