package directory

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/carelink/carelink/internal/platform/apperr"
)

type Service struct {
	patients PatientRepository
	doctors  DoctorRepository
}

func NewService(patients PatientRepository, doctors DoctorRepository) *Service {
	return &Service{patients: patients, doctors: doctors}
}

func (s *Service) CreatePatient(ctx context.Context, req CreatePatientRequest) (*Patient, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperr.Validation("name is required")
	}
	p := &Patient{Name: name, Age: req.Age, Gender: req.Gender, Phone: req.Phone}
	if req.ID != nil {
		p.ID = *req.ID
	}
	if err := s.patients.Create(ctx, p); err != nil {
		return nil, apperr.Wrap("create patient", err)
	}
	return p, nil
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := s.patients.GetByID(ctx, id)
	return p, apperr.Wrap("get patient", err)
}

func (s *Service) SearchPatients(ctx context.Context, params map[string]string, limit, offset int) ([]*Patient, int, error) {
	items, total, err := s.patients.Search(ctx, params, limit, offset)
	return items, total, apperr.Wrap("search patients", err)
}

func (s *Service) CreateDoctor(ctx context.Context, req CreateDoctorRequest) (*Doctor, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperr.Validation("name is required")
	}
	d := &Doctor{Name: name, Specialization: req.Specialization}
	if req.ID != nil {
		d.ID = *req.ID
	}
	if err := s.doctors.Create(ctx, d); err != nil {
		return nil, apperr.Wrap("create doctor", err)
	}
	return d, nil
}

func (s *Service) GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	d, err := s.doctors.GetByID(ctx, id)
	return d, apperr.Wrap("get doctor", err)
}

func (s *Service) SearchDoctors(ctx context.Context, params map[string]string, limit, offset int) ([]*Doctor, int, error) {
	items, total, err := s.doctors.Search(ctx, params, limit, offset)
	return items, total, apperr.Wrap("search doctors", err)
}
