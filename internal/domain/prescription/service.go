package prescription

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/carelink/carelink/internal/domain/consultation"
	"github.com/carelink/carelink/internal/platform/apperr"
	"github.com/carelink/carelink/internal/platform/auth"
	"github.com/carelink/carelink/internal/platform/events"
)

// Consultations resolves the consultation a prescription is written against.
type Consultations interface {
	Lookup(ctx context.Context, id uuid.UUID) (*consultation.Consultation, error)
}

type Service struct {
	repo          Repository
	consultations Consultations
	events        events.Publisher
	logger        zerolog.Logger
	now           func() time.Time
}

func NewService(repo Repository, consultations Consultations, pub events.Publisher, logger zerolog.Logger) *Service {
	return &Service{
		repo:          repo,
		consultations: consultations,
		events:        pub,
		logger:        logger.With().Str("service", "prescription").Logger(),
		now:           time.Now,
	}
}

func (s *Service) SetClock(now func() time.Time) { s.now = now }

// Create composes d and stores it against a prescribable consultation owned
// by the calling doctor. Nothing is stored when any step fails.
func (s *Service) Create(ctx context.Context, sess auth.Session, d Draft) (*Prescription, error) {
	payload, err := Compose(d, s.now())
	if err != nil {
		if apperr.IsValidation(err) {
			s.logger.Debug().Err(err).Str("doctor_id", sess.UserID.String()).Msg("prescription draft rejected")
		}
		return nil, apperr.Wrap("compose prescription", err)
	}

	c, err := s.consultations.Lookup(ctx, payload.ConsultationID)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, apperr.Validation(msgNoConsultation)
		}
		return nil, apperr.Wrap("get consultation", err)
	}
	if sess.Role != auth.RoleAdmin && c.DoctorID != sess.UserID {
		return nil, apperr.Forbidden("only the consultation's doctor can prescribe")
	}
	if !consultation.Prescribable(c.Status) {
		return nil, apperr.Validation("consultation is %s and no longer accepts prescriptions",
			consultation.NormalizeStatus(c.Status))
	}

	p := &Prescription{
		ConsultationID: c.ID,
		PatientID:      c.PatientID,
		DoctorID:       c.DoctorID,
		Medicines:      payload.Medicines,
		FollowUpDate:   payload.FollowUpDate,
		Instructions:   payload.Instructions,
		Status:         StatusActive,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, apperr.Wrap("create prescription", err)
	}

	s.logger.Info().
		Str("prescription_id", p.ID.String()).
		Str("consultation_id", p.ConsultationID.String()).
		Int("medicines", len(p.Medicines)).
		Msg("prescription created")
	s.notify(ctx, events.PrescriptionCreated, p)
	return p, nil
}

func canView(sess auth.Session, p *Prescription) bool {
	if sess.Is(auth.RoleAdmin, auth.RoleLHW, auth.RolePharmacist) {
		return true
	}
	return p.IsParticipant(sess.UserID)
}

func (s *Service) Get(ctx context.Context, sess auth.Session, id uuid.UUID) (*Prescription, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Wrap("get prescription", err)
	}
	if !canView(sess, p) {
		return nil, apperr.NotFound("prescription", id.String())
	}
	return p, nil
}

func (s *Service) List(ctx context.Context, sess auth.Session, f Filter, limit, offset int) ([]*Prescription, int, error) {
	self := sess.UserID
	switch sess.Role {
	case auth.RolePatient:
		f.PatientID = &self
	case auth.RoleDoctor:
		f.DoctorID = &self
	}
	items, total, err := s.repo.Search(ctx, f, limit, offset)
	return items, total, apperr.Wrap("search prescriptions", err)
}

type transition struct {
	to   string
	role string
	// owner requires the caller to be the prescribing doctor.
	owner bool
}

// Every action starts from an active prescription.
var transitions = map[string]transition{
	"dispense": {to: StatusDispensed, role: auth.RolePharmacist},
	"cancel":   {to: StatusCancelled, role: auth.RoleDoctor, owner: true},
	"expire":   {to: StatusExpired, role: auth.RoleAdmin},
}

func (s *Service) Transition(ctx context.Context, sess auth.Session, id uuid.UUID, action string) (*Prescription, error) {
	tr, ok := transitions[action]
	if !ok {
		return nil, apperr.Validation("unknown prescription action %q", action)
	}
	p, err := s.Get(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	if sess.Role != auth.RoleAdmin {
		if sess.Role != tr.role || (tr.owner && p.DoctorID != sess.UserID) {
			return nil, apperr.Forbidden("%s cannot %s this prescription", sess.Role, action)
		}
	}
	if p.Status != StatusActive {
		return nil, apperr.Validation("cannot %s a prescription that is %s", action, p.Status)
	}

	if err := s.repo.UpdateStatus(ctx, p.ID, p.Status, tr.to); err != nil {
		return nil, apperr.Wrap("update prescription status", err)
	}
	p.Status = tr.to

	s.logger.Info().Str("prescription_id", p.ID.String()).Str("action", action).Msg("prescription status changed")
	s.notify(ctx, events.PrescriptionUpdated, p)
	return p, nil
}

func (s *Service) Dispense(ctx context.Context, sess auth.Session, id uuid.UUID) (*Prescription, error) {
	return s.Transition(ctx, sess, id, "dispense")
}

func (s *Service) Cancel(ctx context.Context, sess auth.Session, id uuid.UUID) (*Prescription, error) {
	return s.Transition(ctx, sess, id, "cancel")
}

func (s *Service) Expire(ctx context.Context, sess auth.Session, id uuid.UUID) (*Prescription, error) {
	return s.Transition(ctx, sess, id, "expire")
}

// notify tells both participants and, for new prescriptions, the pharmacists.
func (s *Service) notify(ctx context.Context, typ string, p *Prescription) {
	ev, err := events.New(typ, "Prescription", p.ID, map[string]string{
		"consultation_id": p.ConsultationID.String(),
		"status":          p.Status,
	})
	if err == nil {
		err = events.ToUsers(ctx, s.events, ev, p.PatientID, p.DoctorID)
		if typ == events.PrescriptionCreated {
			ev.Topic = events.RoleTopic(auth.RolePharmacist)
			if perr := s.events.Publish(ctx, ev); perr != nil && err == nil {
				err = perr
			}
		}
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("prescription_id", p.ID.String()).Str("type", typ).Msg("event not delivered")
	}
}
