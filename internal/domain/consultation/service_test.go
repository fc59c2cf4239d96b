package consultation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/carelink/carelink/internal/domain/appointment"
	"github.com/carelink/carelink/internal/platform/apperr"
	"github.com/carelink/carelink/internal/platform/auth"
	"github.com/carelink/carelink/internal/platform/events"
)

// -- Mocks --

type mockRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*Consultation
}

func newMockRepo() *mockRepo {
	return &mockRepo{items: make(map[uuid.UUID]*Consultation)}
}

func (m *mockRepo) Create(_ context.Context, c *Consultation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.items {
		if existing.AppointmentID == c.AppointmentID {
			return Duplicate(existing)
		}
	}
	c.ID = uuid.New()
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	m.items[c.ID] = c
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Consultation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.items[id]
	if !ok {
		return nil, apperr.NotFound("consultation", id.String())
	}
	cp := *c
	return &cp, nil
}

func (m *mockRepo) GetByAppointment(_ context.Context, appointmentID uuid.UUID) (*Consultation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.items {
		if c.AppointmentID == appointmentID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("consultation for appointment", appointmentID.String())
}

func (m *mockRepo) Search(_ context.Context, f Filter, limit, offset int) ([]*Consultation, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*Consultation
	for _, c := range m.items {
		if f.PatientID != nil && c.PatientID != *f.PatientID {
			continue
		}
		if f.DoctorID != nil && c.DoctorID != *f.DoctorID {
			continue
		}
		if f.Status != nil && NormalizeStatus(c.Status) != NormalizeStatus(*f.Status) {
			continue
		}
		result = append(result, c)
	}
	return result, len(result), nil
}

func (m *mockRepo) ListByDoctor(_ context.Context, doctorID uuid.UUID) ([]*Consultation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*Consultation
	for _, c := range m.items {
		if c.DoctorID == doctorID {
			result = append(result, c)
		}
	}
	return result, nil
}

func (m *mockRepo) UpdateStatus(_ context.Context, id uuid.UUID, expected, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.items[id]
	if !ok || c.Status != expected {
		return &apperr.ConflictError{Message: "consultation status changed concurrently"}
	}
	c.Status = status
	return nil
}

func (m *mockRepo) put(c *Consultation) *Consultation {
	c.ID = uuid.New()
	m.items[c.ID] = c
	return c
}

type mockAppointments struct {
	appts map[uuid.UUID]*appointment.Appointment
	now   time.Time
}

func (m *mockAppointments) Lookup(_ context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	a, ok := m.appts[id]
	if !ok {
		return nil, apperr.NotFound("appointment", id.String())
	}
	return a, nil
}

func (m *mockAppointments) Now() time.Time { return m.now }

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

var testNow = time.Date(2024, 6, 1, 9, 58, 0, 0, time.UTC)

type fixture struct {
	svc     *Service
	repo    *mockRepo
	appts   *mockAppointments
	pub     *recordingPublisher
	doctor  auth.Session
	patient auth.Session
}

func newFixture() *fixture {
	f := &fixture{
		repo:    newMockRepo(),
		appts:   &mockAppointments{appts: make(map[uuid.UUID]*appointment.Appointment), now: testNow},
		pub:     &recordingPublisher{},
		doctor:  auth.Session{UserID: uuid.New(), Role: auth.RoleDoctor},
		patient: auth.Session{UserID: uuid.New(), Role: auth.RolePatient},
	}
	f.svc = NewService(f.repo, f.appts, f.pub, zerolog.Nop())
	return f
}

// appointment adds an appointment starting at 10:00 on the test day.
func (f *fixture) appointment(status string) *appointment.Appointment {
	start := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(30 * time.Minute)
	a := &appointment.Appointment{
		ID:        uuid.New(),
		PatientID: f.patient.UserID,
		DoctorID:  f.doctor.UserID,
		StartTime: &start,
		EndTime:   &end,
		Status:    status,
	}
	f.appts.appts[a.ID] = a
	return a
}

func (f *fixture) consultation(status string) *Consultation {
	return f.repo.put(&Consultation{
		AppointmentID: uuid.New(),
		PatientID:     f.patient.UserID,
		DoctorID:      f.doctor.UserID,
		Status:        status,
	})
}

// -- Tests --

func TestService_Create(t *testing.T) {
	f := newFixture()
	a := f.appointment("approved")

	c, err := f.svc.Create(context.Background(), f.doctor, CreateRequest{
		AppointmentID: a.ID,
		Symptoms:      []string{" fever ", "", "cough"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Status != StatusActive {
		t.Errorf("expected ACTIVE, got %s", c.Status)
	}
	if c.PatientID != f.patient.UserID || c.DoctorID != f.doctor.UserID {
		t.Error("expected participants copied from the appointment")
	}
	if len(c.Symptoms) != 2 || c.Symptoms[0] != "fever" {
		t.Errorf("expected trimmed symptoms, got %v", c.Symptoms)
	}
	if !c.ConsultationDate.Equal(testNow) {
		t.Errorf("expected consultation date at service clock, got %v", c.ConsultationDate)
	}
	if len(f.pub.events) != 2 || f.pub.events[0].Type != events.ConsultationCreated {
		t.Errorf("expected consultation.created to both participants, got %d", len(f.pub.events))
	}
}

func TestService_Create_Duplicate(t *testing.T) {
	f := newFixture()
	a := f.appointment("approved")
	first, err := f.svc.Create(context.Background(), f.doctor, CreateRequest{AppointmentID: a.ID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = f.svc.Create(context.Background(), f.doctor, CreateRequest{AppointmentID: a.ID})
	var ce *apperr.ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if ce.ExistingID != first.ID.String() {
		t.Errorf("expected existing id %s, got %s", first.ID, ce.ExistingID)
	}
	if ce.Location != "/api/v1/consultations/"+first.ID.String() {
		t.Errorf("unexpected location %q", ce.Location)
	}
}

func TestService_Create_DuplicateAfterWindow(t *testing.T) {
	tests := []struct {
		name  string
		now   time.Time
		setup func(a *appointment.Appointment)
	}{
		{"window ended", time.Date(2024, 6, 1, 10, 38, 0, 0, time.UTC), func(*appointment.Appointment) {}},
		{"appointment completed", testNow, func(a *appointment.Appointment) { a.Status = "completed" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			a := f.appointment("approved")
			first, err := f.svc.Create(context.Background(), f.doctor, CreateRequest{AppointmentID: a.ID})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			f.appts.now = tt.now
			tt.setup(a)

			_, err = f.svc.Create(context.Background(), f.doctor, CreateRequest{AppointmentID: a.ID})
			var ce *apperr.ConflictError
			if !errors.As(err, &ce) {
				t.Fatalf("expected conflict, got %T %v", err, err)
			}
			if ce.ExistingID != first.ID.String() || ce.Location != Location(first.ID) {
				t.Errorf("unexpected redirect %+v", ce)
			}
		})
	}
}

func TestService_Create_NotApproved(t *testing.T) {
	f := newFixture()
	for _, status := range []string{"pending", "rejected", "completed", "on-hold"} {
		a := f.appointment(status)
		if _, err := f.svc.Create(context.Background(), f.doctor, CreateRequest{AppointmentID: a.ID}); !apperr.IsValidation(err) {
			t.Errorf("%s: expected validation error, got %v", status, err)
		}
	}
}

func TestService_Create_WindowClosed(t *testing.T) {
	f := newFixture()
	a := f.appointment("approved")
	f.appts.now = time.Date(2024, 6, 1, 9, 40, 0, 0, time.UTC)

	if _, err := f.svc.Create(context.Background(), f.doctor, CreateRequest{AppointmentID: a.ID}); !apperr.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestService_Create_OtherDoctor(t *testing.T) {
	f := newFixture()
	a := f.appointment("approved")
	other := auth.Session{UserID: uuid.New(), Role: auth.RoleDoctor}

	_, err := f.svc.Create(context.Background(), other, CreateRequest{AppointmentID: a.ID})
	var fe *apperr.ForbiddenError
	if !errors.As(err, &fe) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestService_Create_UnknownAppointment(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Create(context.Background(), f.doctor, CreateRequest{AppointmentID: uuid.New()})
	if !apperr.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestService_Get_Visibility(t *testing.T) {
	f := newFixture()
	c := f.consultation(StatusActive)

	if _, err := f.svc.Get(context.Background(), f.patient, c.ID); err != nil {
		t.Errorf("patient should see own consultation: %v", err)
	}
	stranger := auth.Session{UserID: uuid.New(), Role: auth.RolePatient}
	if _, err := f.svc.Get(context.Background(), stranger, c.ID); !apperr.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
	pharmacist := auth.Session{UserID: uuid.New(), Role: auth.RolePharmacist}
	if _, err := f.svc.Get(context.Background(), pharmacist, c.ID); err != nil {
		t.Errorf("pharmacist should see consultation: %v", err)
	}
}

func TestService_GetByAppointment(t *testing.T) {
	f := newFixture()
	c := f.consultation(StatusActive)

	got, err := f.svc.GetByAppointment(context.Background(), f.doctor, c.AppointmentID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != c.ID {
		t.Errorf("expected %s, got %s", c.ID, got.ID)
	}
}

func TestService_List_ScopedToDoctor(t *testing.T) {
	f := newFixture()
	f.consultation(StatusActive)
	f.repo.put(&Consultation{DoctorID: uuid.New(), PatientID: uuid.New(), Status: StatusActive})

	_, total, err := f.svc.List(context.Background(), f.doctor, Filter{}, 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 1 {
		t.Errorf("expected 1, got %d", total)
	}
}

func TestService_Prescribable(t *testing.T) {
	f := newFixture()
	f.consultation(StatusActive)
	f.consultation(StatusEnded)
	f.consultation(StatusCompleted)

	sel, err := f.svc.Prescribable(context.Background(), f.doctor, f.doctor.UserID, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sel.Items) != 2 || sel.Diagnostic != nil {
		t.Errorf("expected 2 prescribable, got %d", len(sel.Items))
	}
}

func TestService_Prescribable_Diagnostics(t *testing.T) {
	f := newFixture()
	f.consultation(StatusCompleted)

	sel, _ := f.svc.Prescribable(context.Background(), f.doctor, f.doctor.UserID, true)
	if sel.Diagnostic != nil {
		t.Fatal("diagnostics must stay off unless enabled on the service")
	}

	f.svc.EnableDiagnostics(true)
	sel, _ = f.svc.Prescribable(context.Background(), f.doctor, f.doctor.UserID, true)
	if sel.Diagnostic == nil || len(sel.Diagnostic.Items) != 1 {
		t.Fatalf("expected diagnostic view, got %+v", sel)
	}
	if len(sel.Items) != 0 {
		t.Error("items must stay filtered")
	}
}

func TestService_Prescribable_OtherDoctor(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Prescribable(context.Background(), f.doctor, uuid.New(), false)
	var fe *apperr.ForbiddenError
	if !errors.As(err, &fe) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestService_UpdateStatus(t *testing.T) {
	f := newFixture()
	c := f.consultation(StatusActive)

	got, err := f.svc.UpdateStatus(context.Background(), f.doctor, c.ID, "ended")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != StatusEnded {
		t.Errorf("expected ENDED, got %s", got.Status)
	}

	if _, err := f.svc.UpdateStatus(context.Background(), f.doctor, c.ID, StatusActive); !apperr.IsValidation(err) {
		t.Errorf("expected reopening to fail, got %v", err)
	}
}

func TestService_UpdateStatus_Patient(t *testing.T) {
	f := newFixture()
	c := f.consultation(StatusActive)

	_, err := f.svc.UpdateStatus(context.Background(), f.patient, c.ID, StatusEnded)
	var fe *apperr.ForbiddenError
	if !errors.As(err, &fe) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}
