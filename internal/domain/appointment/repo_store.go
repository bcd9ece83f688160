package appointment

import (
	"context"
	"errors"
	"fmt"

	"github.com/healthhub/api/internal/platform/store"
)

type appointmentRepoStore struct{ db store.Client }

func NewAppointmentRepo(db store.Client) AppointmentRepository {
	return &appointmentRepoStore{db: db}
}

// Create inserts the row and reads it back with doctor and patient expanded.
func (r *appointmentRepoStore) Create(ctx context.Context, a newAppointment) (*Appointment, error) {
	var inserted []Appointment
	if err := r.db.Insert(ctx, Table, a, &inserted); err != nil {
		return nil, fmt.Errorf("insert appointment: %w", err)
	}
	if len(inserted) != 1 {
		return nil, fmt.Errorf("insert appointment: expected 1 row, got %d", len(inserted))
	}
	var out Appointment
	q := store.Where(store.Eq("id", inserted[0].ID)).With(expanded...)
	if err := r.db.SelectOne(ctx, Table, q, &out); err != nil {
		return nil, fmt.Errorf("read back appointment %s: %w", inserted[0].ID, err)
	}
	return &out, nil
}

func (r *appointmentRepoStore) GetByID(ctx context.Context, id string) (*Appointment, error) {
	var a Appointment
	err := r.db.SelectOne(ctx, Table, store.Where(store.Eq("id", id)), &a)
	if errors.Is(err, store.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select appointment: %w", err)
	}
	return &a, nil
}

func (r *appointmentRepoStore) ListForPatient(ctx context.Context, patientID string) ([]Appointment, error) {
	q := store.Where(store.Eq("patient_id", patientID)).
		OrderBy(store.Desc(dateTimeField)).
		With(expanded...)
	out := []Appointment{}
	if err := r.db.Select(ctx, Table, q, &out); err != nil {
		return nil, fmt.Errorf("select appointments: %w", err)
	}
	return out, nil
}

func (r *appointmentRepoStore) Delete(ctx context.Context, id string) error {
	if err := r.db.Delete(ctx, Table, []store.Filter{store.Eq("id", id)}); err != nil {
		return fmt.Errorf("delete appointment: %w", err)
	}
	return nil
}
