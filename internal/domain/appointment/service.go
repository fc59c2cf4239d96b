package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/carelink/carelink/internal/platform/apperr"
	"github.com/carelink/carelink/internal/platform/auth"
	"github.com/carelink/carelink/internal/platform/events"
	"github.com/carelink/carelink/internal/platform/reminder"
)

type Service struct {
	repo    Repository
	events  events.Publisher
	logger  zerolog.Logger
	metrics *GateMetrics
	now     func() time.Time
}

func NewService(repo Repository, pub events.Publisher, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		events: pub,
		logger: logger.With().Str("service", "appointment").Logger(),
		now:    time.Now,
	}
}

// SetClock replaces the wall clock used by the gate.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

func (s *Service) SetMetrics(m *GateMetrics) { s.metrics = m }

// Now is the service clock, exposed so dependents share it.
func (s *Service) Now() time.Time { return s.now() }

// Book creates a pending appointment. Patients always book for themselves.
func (s *Service) Book(ctx context.Context, sess auth.Session, req BookRequest) (*View, error) {
	a := &Appointment{
		DoctorID:       req.DoctorID,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		ReasonForVisit: req.ReasonForVisit,
		Status:         StatusPending.Raw(),
	}

	switch {
	case sess.Role == auth.RolePatient:
		if req.PatientID != nil && *req.PatientID != sess.UserID {
			return nil, apperr.Forbidden("patients can only book for themselves")
		}
		a.PatientID = sess.UserID
	case req.PatientID != nil:
		a.PatientID = *req.PatientID
	}

	if a.PatientID == uuid.Nil {
		return nil, apperr.Validation("patient_id is required")
	}
	if a.DoctorID == uuid.Nil {
		return nil, apperr.Validation("doctor_id is required")
	}
	if a.StartTime == nil || a.EndTime == nil {
		return nil, apperr.Validation("start_time and end_time are required")
	}
	if a.StartTime.After(*a.EndTime) {
		return nil, apperr.Validation("start_time must not be after end_time")
	}
	now := s.now()
	if a.EndTime.Before(now) {
		return nil, apperr.Validation("appointment ends in the past")
	}

	day := a.StartTime.UTC().Format(time.DateOnly)
	if req.Date != nil && *req.Date != day {
		return nil, apperr.Validation("date %s does not match start_time day %s", *req.Date, day)
	}
	a.Date = &day

	if err := s.repo.Create(ctx, a); err != nil {
		return nil, apperr.Wrap("create appointment", err)
	}

	s.logger.Info().Str("appointment_id", a.ID.String()).Str("doctor_id", a.DoctorID.String()).Msg("appointment booked")
	s.notify(ctx, events.AppointmentBooked, a)
	return NewView(a, now), nil
}

// canView: participants see their own appointments, staff roles see all.
func canView(sess auth.Session, a *Appointment) bool {
	if sess.Is(auth.RoleAdmin, auth.RoleLHW, auth.RolePharmacist) {
		return true
	}
	return a.IsParticipant(sess.UserID)
}

func (s *Service) load(ctx context.Context, sess auth.Session, id uuid.UUID) (*Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Wrap("get appointment", err)
	}
	if !canView(sess, a) {
		// same answer as a missing row so ids cannot be probed
		return nil, apperr.NotFound("appointment", id.String())
	}
	s.checkStatus(a)
	return a, nil
}

func (s *Service) checkStatus(a *Appointment) {
	if err := CheckStatus(a.Status); err != nil {
		s.logger.Warn().Err(err).Str("appointment_id", a.ID.String()).Msg("treating appointment as ineligible")
	}
}

func (s *Service) Get(ctx context.Context, sess auth.Session, id uuid.UUID) (*View, error) {
	a, err := s.load(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	return NewView(a, s.now()), nil
}

// Lookup returns the raw appointment without session checks. Used by other
// services that have already authorized the caller.
func (s *Service) Lookup(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Wrap("get appointment", err)
	}
	s.checkStatus(a)
	return a, nil
}

// List scopes patients and doctors to their own appointments.
func (s *Service) List(ctx context.Context, sess auth.Session, f Filter, limit, offset int) ([]*View, int, error) {
	self := sess.UserID
	switch sess.Role {
	case auth.RolePatient:
		f.PatientID = &self
	case auth.RoleDoctor:
		f.DoctorID = &self
	}

	items, total, err := s.repo.Search(ctx, f, limit, offset)
	if err != nil {
		return nil, 0, apperr.Wrap("search appointments", err)
	}

	now := s.now()
	views := make([]*View, 0, len(items))
	for _, a := range items {
		s.checkStatus(a)
		views = append(views, NewView(a, now))
	}
	return views, total, nil
}

// transitions maps each action to the canonical status it starts from and
// the one it produces.
var transitions = map[string]struct{ from, to Status }{
	"accept":   {StatusPending, StatusApproved},
	"reject":   {StatusPending, StatusRejected},
	"complete": {StatusApproved, StatusCompleted},
}

var errUnknownAction = errors.New("unknown appointment action")

// Transition applies accept, reject or complete. Only the appointment's
// doctor (or an admin) may act on it.
func (s *Service) Transition(ctx context.Context, sess auth.Session, id uuid.UUID, action string) (*View, error) {
	tr, ok := transitions[action]
	if !ok {
		return nil, errUnknownAction
	}

	a, err := s.load(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	if sess.Role != auth.RoleAdmin && a.DoctorID != sess.UserID {
		return nil, apperr.Forbidden("only the assigned doctor can %s this appointment", action)
	}

	current := Normalize(a.Status)
	if current == StatusUnknown {
		return nil, apperr.Validation("appointment status %q is not recognized", a.Status)
	}
	if current != tr.from {
		return nil, apperr.Validation("cannot %s an appointment that is %s", action, current)
	}

	if err := s.repo.UpdateStatus(ctx, a.ID, a.Status, tr.to.Raw()); err != nil {
		return nil, apperr.Wrap("update appointment status", err)
	}
	a.Status = tr.to.Raw()

	s.logger.Info().Str("appointment_id", a.ID.String()).Str("action", action).Str("status", a.Status).Msg("appointment status changed")
	s.notify(ctx, events.AppointmentUpdated, a)
	return NewView(a, s.now()), nil
}

func (s *Service) Accept(ctx context.Context, sess auth.Session, id uuid.UUID) (*View, error) {
	return s.Transition(ctx, sess, id, "accept")
}

func (s *Service) Reject(ctx context.Context, sess auth.Session, id uuid.UUID) (*View, error) {
	return s.Transition(ctx, sess, id, "reject")
}

func (s *Service) Complete(ctx context.Context, sess auth.Session, id uuid.UUID) (*View, error) {
	return s.Transition(ctx, sess, id, "complete")
}

// Eligibility evaluates the join gate at the service clock.
func (s *Service) Eligibility(ctx context.Context, sess auth.Session, id uuid.UUID) (JoinDecision, error) {
	a, err := s.load(ctx, sess, id)
	if err != nil {
		return JoinDecision{}, err
	}
	return Decide(a, s.now()), nil
}

// Join issues a call ticket when the gate allows it and invites the other
// participant over the real-time channel.
func (s *Service) Join(ctx context.Context, sess auth.Session, id uuid.UUID) (*CallTicket, error) {
	a, err := s.load(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	if !a.IsParticipant(sess.UserID) {
		return nil, apperr.Forbidden("only the appointment's patient or doctor can join")
	}

	d := Decide(a, s.now())
	s.metrics.observe(d)
	if !d.Allowed {
		return nil, apperr.Forbidden("consultation cannot be joined: %s (%s)", d.Reason, d.Eligibility.Label)
	}

	ticket := &CallTicket{
		Room:        RoomName(a.ID),
		TargetID:    a.Counterpart(sess.UserID),
		DisplayName: sess.DisplayName,
		ExpiresAt:   *a.EndTime,
	}

	ev, err := events.New(events.CallInvite, "Appointment", a.ID, map[string]interface{}{
		"room":         ticket.Room,
		"from_id":      sess.UserID,
		"display_name": sess.DisplayName,
	})
	if err == nil {
		err = events.ToUsers(ctx, s.events, ev, ticket.TargetID)
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("appointment_id", a.ID.String()).Msg("call invite not delivered")
	}
	return ticket, nil
}

// DueReminders lists approved appointments whose join window opens within
// horizon of now, including windows already open and not yet ended.
func (s *Service) DueReminders(ctx context.Context, now time.Time, horizon time.Duration) ([]reminder.Due, error) {
	items, err := s.repo.ListApprovedOverlapping(ctx, now, now.Add(JoinLeadTime+horizon))
	if err != nil {
		return nil, apperr.Wrap("list approved appointments", err)
	}
	var due []reminder.Due
	for _, a := range items {
		if a.StartTime == nil || a.EndTime == nil || a.EndTime.Before(now) {
			continue
		}
		if a.StartTime.Add(-JoinLeadTime).After(now.Add(horizon)) {
			continue
		}
		due = append(due, reminder.Due{
			AppointmentID: a.ID,
			PatientID:     a.PatientID,
			DoctorID:      a.DoctorID,
			StartTime:     *a.StartTime,
			EndTime:       *a.EndTime,
		})
	}
	return due, nil
}

// notify tells both participants; delivery failures are logged only.
func (s *Service) notify(ctx context.Context, typ string, a *Appointment) {
	ev, err := events.New(typ, "Appointment", a.ID, map[string]string{
		"status":           a.Status,
		"canonical_status": string(Normalize(a.Status)),
	})
	if err == nil {
		err = events.ToUsers(ctx, s.events, ev, a.PatientID, a.DoctorID)
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("appointment_id", a.ID.String()).Str("type", typ).Msg("event not delivered")
	}
}
