package doctor

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/healthhub/api/internal/platform/apperr"
	"github.com/healthhub/api/internal/platform/validation"
)

type Service struct {
	doctors DoctorRepository
}

func NewService(doctors DoctorRepository) *Service {
	return &Service{doctors: doctors}
}

var maxRating = decimal.NewFromInt(5)

func checkRating(r *decimal.Decimal) error {
	if r != nil && (r.IsNegative() || r.GreaterThan(maxRating)) {
		return apperr.InvalidInput("rating must be between 0 and 5")
	}
	return nil
}

func (s *Service) CreateDoctor(ctx context.Context, req CreateRequest) (*Doctor, error) {
	if err := validation.Struct(req); err != nil {
		return nil, apperr.InvalidInput("name, specialty, and hospital are required")
	}
	if err := checkRating(req.Rating); err != nil {
		return nil, err
	}
	d := &Doctor{
		Name:         req.Name,
		Specialty:    req.Specialty,
		Hospital:     req.Hospital,
		Languages:    req.Languages,
		ProfileImage: req.ProfileImage,
	}
	if d.Languages == nil {
		d.Languages = []string{}
	}
	if req.Rating != nil {
		d.Rating = *req.Rating
	}
	if err := s.doctors.Create(ctx, d); err != nil {
		return nil, apperr.Persistence("failed to create doctor", err)
	}
	return d, nil
}

func (s *Service) GetDoctor(ctx context.Context, id string) (*Doctor, error) {
	d, err := s.doctors.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("doctor not found")
	}
	if err != nil {
		return nil, apperr.Persistence("failed to fetch doctor", err)
	}
	return d, nil
}

// SearchDoctors lists doctors by name, optionally narrowed by specialty and
// hospital substrings.
func (s *Service) SearchDoctors(ctx context.Context, params SearchParams) ([]Doctor, error) {
	items, err := s.doctors.Search(ctx, params)
	if err != nil {
		return nil, apperr.Persistence("failed to fetch doctors", err)
	}
	return items, nil
}

func (s *Service) UpdateDoctor(ctx context.Context, id string, req UpdateRequest) (*Doctor, error) {
	if err := checkRating(req.Rating); err != nil {
		return nil, err
	}
	d, err := s.doctors.Update(ctx, id, req.values())
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("doctor not found")
	}
	if err != nil {
		return nil, apperr.Persistence("failed to update doctor", err)
	}
	return d, nil
}

func (s *Service) DeleteDoctor(ctx context.Context, id string) error {
	if err := s.doctors.Delete(ctx, id); err != nil {
		return apperr.Persistence("failed to delete doctor", err)
	}
	return nil
}
