package directory

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/careslot/careslot/internal/platform/apperr"
)

type Service struct {
	hospitals HospitalRepository
	doctors   DoctorRepository
}

func NewService(hospitals HospitalRepository, doctors DoctorRepository) *Service {
	return &Service{hospitals: hospitals, doctors: doctors}
}

func (s *Service) GetHospital(ctx context.Context, id uuid.UUID) (*Hospital, error) {
	h, err := s.hospitals.GetByID(ctx, id)
	if errors.Is(err, ErrHospitalNotFound) {
		return nil, apperr.NotFound("HOSPITAL_NOT_FOUND", "hospital not found")
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return h, nil
}

func (s *Service) ListHospitals(ctx context.Context, activeOnly bool, limit, offset int) ([]*Hospital, int, error) {
	items, total, err := s.hospitals.List(ctx, activeOnly, limit, offset)
	if err != nil {
		return nil, 0, apperr.Internal(err)
	}
	return items, total, nil
}

func (s *Service) GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	d, err := s.doctors.GetByID(ctx, id)
	if errors.Is(err, ErrDoctorNotFound) {
		return nil, apperr.NotFound("DOCTOR_NOT_FOUND", "doctor not found")
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return d, nil
}

func (s *Service) ListDoctors(ctx context.Context, hospitalID uuid.UUID, activeOnly bool, limit, offset int) ([]*Doctor, int, error) {
	if _, err := s.GetHospital(ctx, hospitalID); err != nil {
		return nil, 0, err
	}
	items, total, err := s.doctors.ListByHospital(ctx, hospitalID, activeOnly, limit, offset)
	if err != nil {
		return nil, 0, apperr.Internal(err)
	}
	return items, total, nil
}
