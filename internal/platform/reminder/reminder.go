// Package reminder pushes a consultation.reminder event to both participants
// when an appointment's join window is about to open.
package reminder

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/carelink/carelink/internal/platform/events"
)

// Due is an appointment whose join window opens within the polled horizon.
type Due struct {
	AppointmentID uuid.UUID
	PatientID     uuid.UUID
	DoctorID      uuid.UUID
	StartTime     time.Time
	EndTime       time.Time
}

// Source lists the appointments to remind about at now.
type Source interface {
	DueReminders(ctx context.Context, now time.Time, horizon time.Duration) ([]Due, error)
}

type Metrics struct {
	sent   prometheus.Counter
	errors prometheus.Counter
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		sent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "consultation_reminders_sent_total",
			Help:      "Consultation reminders published.",
		}),
		errors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "consultation_reminder_errors_total",
			Help:      "Reminder polls or publishes that failed.",
		}),
	}
}

func (m *Metrics) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(m.sent, m.errors)
}

// Poller checks Source every Interval and sends each reminder once.
type Poller struct {
	source  Source
	events  events.Publisher
	logger  zerolog.Logger
	metrics *Metrics
	now     func() time.Time

	// Interval is both the polling period and the look-ahead horizon.
	Interval time.Duration

	mu     sync.Mutex
	sent   map[uuid.UUID]time.Time // appointment id -> end time
	cancel context.CancelFunc
	done   chan struct{}
}

func NewPoller(source Source, pub events.Publisher, interval time.Duration, logger zerolog.Logger) *Poller {
	return &Poller{
		source:   source,
		events:   pub,
		logger:   logger.With().Str("component", "reminder").Logger(),
		now:      time.Now,
		Interval: interval,
		sent:     make(map[uuid.UUID]time.Time),
	}
}

func (p *Poller) SetMetrics(m *Metrics) { p.metrics = m }

func (p *Poller) SetClock(now func() time.Time) { p.now = now }

var errAlreadyStarted = errors.New("reminder poller already started")

// Start runs the poller in the background until Stop is called or ctx ends.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return errAlreadyStarted
	}
	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})
	go func() {
		defer close(p.done)
		p.Run(ctx)
	}()
	return nil
}

// Stop cancels the poller and blocks until its goroutine has returned. It
// is safe to call more than once, and the poller can be started again
// afterwards.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done

	p.mu.Lock()
	if p.done == done {
		p.cancel, p.done = nil, nil
	}
	p.mu.Unlock()
}

// Run polls until ctx is cancelled. It always returns nil so it can sit in
// an errgroup next to the HTTP server.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	p.logger.Info().Dur("interval", p.Interval).Msg("reminder poller started")
	p.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			p.logger.Info().Msg("reminder poller stopped")
			return nil
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	now := p.now()
	due, err := p.source.DueReminders(ctx, now, p.Interval)
	if err != nil {
		if ctx.Err() == nil {
			p.logger.Error().Err(err).Msg("listing due reminders")
			p.countError()
		}
		return
	}

	p.mu.Lock()
	for id, end := range p.sent {
		if end.Before(now) {
			delete(p.sent, id)
		}
	}
	var pending []Due
	for _, d := range due {
		if _, ok := p.sent[d.AppointmentID]; !ok {
			pending = append(pending, d)
		}
	}
	p.mu.Unlock()

	for _, d := range pending {
		if err := p.send(ctx, d); err != nil {
			p.logger.Warn().Err(err).Str("appointment_id", d.AppointmentID.String()).Msg("reminder not delivered")
			p.countError()
			continue
		}
		p.mu.Lock()
		p.sent[d.AppointmentID] = d.EndTime
		p.mu.Unlock()
		if p.metrics != nil {
			p.metrics.sent.Inc()
		}
	}
}

func (p *Poller) send(ctx context.Context, d Due) error {
	ev, err := events.New(events.ConsultationReminder, "Appointment", d.AppointmentID, map[string]interface{}{
		"start_time": d.StartTime,
		"end_time":   d.EndTime,
	})
	if err != nil {
		return err
	}
	return events.ToUsers(ctx, p.events, ev, d.PatientID, d.DoctorID)
}

func (p *Poller) countError() {
	if p.metrics != nil {
		p.metrics.errors.Inc()
	}
}

// Remembered reports how many sent reminders are kept for deduplication.
func (p *Poller) Remembered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sent)
}
