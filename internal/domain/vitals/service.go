package vitals

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/carelink/carelink/internal/platform/apperr"
	"github.com/carelink/carelink/internal/platform/auth"
	"github.com/carelink/carelink/internal/platform/events"
)

type Service struct {
	repo   Repository
	events events.Publisher
	logger zerolog.Logger
	now    func() time.Time
}

func NewService(repo Repository, pub events.Publisher, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		events: pub,
		logger: logger.With().Str("service", "vitals").Logger(),
		now:    time.Now,
	}
}

func (s *Service) SetClock(now func() time.Time) { s.now = now }

// Record stores a set of readings with its alert level computed here, never
// taken from the client. Abnormal readings alert the clinical roles.
func (s *Service) Record(ctx context.Context, sess auth.Session, req RecordRequest) (*VitalRecord, error) {
	if req.PatientID == uuid.Nil {
		return nil, apperr.Validation("patient_id is required")
	}
	if !req.hasMeasurement() {
		return nil, apperr.Validation("at least one measurement is required")
	}

	now := s.now()
	v := &VitalRecord{
		PatientID:        req.PatientID,
		RecordedBy:       sess.UserID,
		HeartRate:        req.HeartRate,
		Systolic:         req.Systolic,
		Diastolic:        req.Diastolic,
		Temperature:      req.Temperature,
		OxygenSaturation: req.OxygenSaturation,
		Weight:           req.Weight,
		Height:           req.Height,
		Notes:            req.Notes,
		RecordedAt:       now,
	}
	if req.RecordedAt != nil {
		if req.RecordedAt.After(now) {
			return nil, apperr.Validation("recorded_at cannot be in the future")
		}
		v.RecordedAt = *req.RecordedAt
	}
	assessment := Assess(v)
	v.AlertLevel = assessment.Level
	v.AlertReasons = assessment.Reasons

	if err := s.repo.Create(ctx, v); err != nil {
		return nil, apperr.Wrap("create vital record", err)
	}

	if v.AlertLevel != AlertNormal {
		s.logger.Warn().
			Str("vital_id", v.ID.String()).
			Str("patient_id", v.PatientID.String()).
			Str("alert_level", v.AlertLevel).
			Strs("reasons", v.AlertReasons).
			Msg("abnormal vitals recorded")
		s.alert(ctx, v)
	}
	return v, nil
}

func (s *Service) alert(ctx context.Context, v *VitalRecord) {
	ev, err := events.New(events.VitalAlert, "VitalRecord", v.ID, map[string]interface{}{
		"patient_id":    v.PatientID,
		"alert_level":   v.AlertLevel,
		"alert_reasons": v.AlertReasons,
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("vital alert not encoded")
		return
	}
	for _, role := range []string{auth.RoleDoctor, auth.RoleLHW} {
		ev.Topic = events.RoleTopic(role)
		if err := s.events.Publish(ctx, ev); err != nil {
			s.logger.Warn().Err(err).Str("topic", ev.Topic).Msg("vital alert not delivered")
		}
	}
}

// withReasons recomputes the alert reasons, which are not stored.
func withReasons(v *VitalRecord) *VitalRecord {
	v.AlertReasons = Assess(v).Reasons
	return v
}

func canView(sess auth.Session, v *VitalRecord) bool {
	if sess.Role == auth.RolePatient {
		return v.PatientID == sess.UserID
	}
	return sess.Is(auth.RoleAdmin, auth.RoleDoctor, auth.RoleLHW)
}

func (s *Service) Get(ctx context.Context, sess auth.Session, id uuid.UUID) (*VitalRecord, error) {
	v, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Wrap("get vital record", err)
	}
	if !canView(sess, v) {
		return nil, apperr.NotFound("vital record", id.String())
	}
	return withReasons(v), nil
}

func (s *Service) List(ctx context.Context, sess auth.Session, f Filter, limit, offset int) ([]*VitalRecord, int, error) {
	if sess.Role == auth.RolePatient {
		self := sess.UserID
		f.PatientID = &self
	}
	if f.AlertLevel != nil {
		if _, ok := severity[*f.AlertLevel]; !ok {
			return nil, 0, apperr.Validation("alert_level must be normal, warning or critical")
		}
	}
	items, total, err := s.repo.Search(ctx, f, limit, offset)
	if err != nil {
		return nil, 0, apperr.Wrap("search vital records", err)
	}
	for _, v := range items {
		withReasons(v)
	}
	return items, total, nil
}
