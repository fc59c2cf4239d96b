package consultation

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/carelink/carelink/internal/domain/appointment"
	"github.com/carelink/carelink/internal/platform/apperr"
	"github.com/carelink/carelink/internal/platform/auth"
	"github.com/carelink/carelink/internal/platform/events"
)

// Appointments is the part of the appointment service consultations need.
type Appointments interface {
	Lookup(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error)
	Now() time.Time
}

type Service struct {
	repo         Repository
	appointments Appointments
	events       events.Publisher
	logger       zerolog.Logger
	// diagnostics enables the unfiltered prescribable fallback at all;
	// callers still opt in per request.
	diagnostics bool
}

func NewService(repo Repository, appts Appointments, pub events.Publisher, logger zerolog.Logger) *Service {
	return &Service{
		repo:         repo,
		appointments: appts,
		events:       pub,
		logger:       logger.With().Str("service", "consultation").Logger(),
	}
}

func (s *Service) EnableDiagnostics(on bool) { s.diagnostics = on }

// Create opens a consultation for an approved appointment whose window is
// open. Only the appointment's doctor may do so.
func (s *Service) Create(ctx context.Context, sess auth.Session, req CreateRequest) (*Consultation, error) {
	if req.AppointmentID == uuid.Nil {
		return nil, apperr.Validation("appointment_id is required")
	}
	appt, err := s.appointments.Lookup(ctx, req.AppointmentID)
	if err != nil {
		return nil, apperr.Wrap("get appointment", err)
	}
	if sess.Role != auth.RoleAdmin && appt.DoctorID != sess.UserID {
		return nil, apperr.Forbidden("only the appointment's doctor can start its consultation")
	}

	// An existing consultation wins over the window check so retries after
	// the window has closed still find it.
	existing, err := s.repo.GetByAppointment(ctx, appt.ID)
	switch {
	case err == nil:
		return nil, Duplicate(existing)
	case !apperr.IsNotFound(err):
		return nil, apperr.Wrap("check existing consultation", err)
	}

	now := s.appointments.Now()
	if d := appointment.Decide(appt, now); !d.Allowed {
		return nil, apperr.Validation("consultation cannot start: %s (%s)", d.Reason, d.Eligibility.Label)
	}

	c := &Consultation{
		AppointmentID:    appt.ID,
		PatientID:        appt.PatientID,
		DoctorID:         appt.DoctorID,
		Status:           StatusActive,
		Symptoms:         trimAll(req.Symptoms),
		Diagnosis:        req.Diagnosis,
		DoctorNotes:      req.DoctorNotes,
		RecommendedTests: trimAll(req.RecommendedTests),
		ConsultationDate: now,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, apperr.Wrap("create consultation", err)
	}

	s.logger.Info().Str("consultation_id", c.ID.String()).Str("appointment_id", c.AppointmentID.String()).Msg("consultation created")
	s.notify(ctx, events.ConsultationCreated, c)
	return c, nil
}

// trimAll drops blank entries and trims the rest.
func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func canView(sess auth.Session, c *Consultation) bool {
	if sess.Is(auth.RoleAdmin, auth.RoleLHW, auth.RolePharmacist) {
		return true
	}
	return c.IsParticipant(sess.UserID)
}

func (s *Service) Get(ctx context.Context, sess auth.Session, id uuid.UUID) (*Consultation, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Wrap("get consultation", err)
	}
	if !canView(sess, c) {
		return nil, apperr.NotFound("consultation", id.String())
	}
	return c, nil
}

// GetByAppointment resolves the consultation of an appointment, which is how
// clients follow a duplicate-create conflict.
func (s *Service) GetByAppointment(ctx context.Context, sess auth.Session, appointmentID uuid.UUID) (*Consultation, error) {
	c, err := s.repo.GetByAppointment(ctx, appointmentID)
	if err != nil {
		return nil, apperr.Wrap("get consultation", err)
	}
	if !canView(sess, c) {
		return nil, apperr.NotFound("consultation for appointment", appointmentID.String())
	}
	return c, nil
}

// Lookup returns a consultation without session checks.
func (s *Service) Lookup(ctx context.Context, id uuid.UUID) (*Consultation, error) {
	c, err := s.repo.GetByID(ctx, id)
	return c, apperr.Wrap("get consultation", err)
}

func (s *Service) List(ctx context.Context, sess auth.Session, f Filter, limit, offset int) ([]*Consultation, int, error) {
	self := sess.UserID
	switch sess.Role {
	case auth.RolePatient:
		f.PatientID = &self
	case auth.RoleDoctor:
		f.DoctorID = &self
	}
	items, total, err := s.repo.Search(ctx, f, limit, offset)
	return items, total, apperr.Wrap("search consultations", err)
}

// Prescribable lists the consultations of doctorID a prescription can be
// written against. The unfiltered diagnostic view is only returned when it is
// enabled on the service and requested by the caller.
func (s *Service) Prescribable(ctx context.Context, sess auth.Session, doctorID uuid.UUID, diagnostics bool) (Selection, error) {
	if sess.Role != auth.RoleAdmin && doctorID != sess.UserID {
		return Selection{}, apperr.Forbidden("doctors can only list their own consultations")
	}
	all, err := s.repo.ListByDoctor(ctx, doctorID)
	if err != nil {
		return Selection{}, apperr.Wrap("list consultations", err)
	}

	sel := SelectPrescribable(all, SelectOptions{Diagnostics: s.diagnostics && diagnostics})
	if sel.Diagnostic != nil {
		s.logger.Warn().
			Str("doctor_id", doctorID.String()).
			Str("user_id", sess.UserID.String()).
			Int("unfiltered", len(sel.Diagnostic.Items)).
			Msg("returning unfiltered consultations for diagnostics")
	}
	return sel, nil
}

// UpdateStatus moves a consultation along ACTIVE -> ENDED -> COMPLETED.
func (s *Service) UpdateStatus(ctx context.Context, sess auth.Session, id uuid.UUID, status string) (*Consultation, error) {
	c, err := s.Get(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	if sess.Role != auth.RoleAdmin && c.DoctorID != sess.UserID {
		return nil, apperr.Forbidden("only the consultation's doctor can change its status")
	}

	next := NormalizeStatus(status)
	if err := CheckTransition(c.Status, next); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatus(ctx, c.ID, c.Status, next); err != nil {
		return nil, apperr.Wrap("update consultation status", err)
	}
	c.Status = next

	s.logger.Info().Str("consultation_id", c.ID.String()).Str("status", next).Msg("consultation status changed")
	s.notify(ctx, events.ConsultationUpdated, c)
	return c, nil
}

func (s *Service) notify(ctx context.Context, typ string, c *Consultation) {
	ev, err := events.New(typ, "Consultation", c.ID, map[string]string{
		"appointment_id":      c.AppointmentID.String(),
		"consultation_status": c.Status,
	})
	if err == nil {
		err = events.ToUsers(ctx, s.events, ev, c.PatientID, c.DoctorID)
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("consultation_id", c.ID.String()).Str("type", typ).Msg("event not delivered")
	}
}
