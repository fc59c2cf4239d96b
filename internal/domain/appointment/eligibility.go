package appointment

import (
	"fmt"
	"time"
)

// JoinLeadTime is how long before the start a consultation may be joined.
const JoinLeadTime = 5 * time.Minute

type Window string

const (
	WindowUnscheduled Window = "unscheduled"
	WindowUpcoming    Window = "upcoming"
	WindowOpen        Window = "open"
	WindowEnded       Window = "ended"
)

// Labels shown for the non-countdown windows.
const (
	LabelReady       = "ready"
	LabelEnded       = "Ended"
	LabelUnscheduled = "Unscheduled"
	LabelStarted     = "Started"
)

// Eligibility is the gate output for one appointment at one instant.
type Eligibility struct {
	Eligible bool   `json:"eligible"`
	Window   Window `json:"window"`
	Label    string `json:"label"`
	// OpensInSeconds is set only while the window is upcoming.
	OpensInSeconds int64 `json:"opens_in_seconds,omitempty"`
}

// Evaluate decides whether now falls inside [start-JoinLeadTime, end]. Both
// bounds are inclusive. Missing times are never guessed from legacy fields.
func Evaluate(start, end *time.Time, now time.Time) Eligibility {
	if start == nil || end == nil || start.IsZero() || end.IsZero() {
		return Eligibility{Window: WindowUnscheduled, Label: LabelUnscheduled}
	}

	opens := start.Add(-JoinLeadTime)
	switch {
	case now.Before(opens):
		return Eligibility{
			Window:         WindowUpcoming,
			Label:          Countdown(*start, now),
			OpensInSeconds: int64(opens.Sub(now) / time.Second),
		}
	case now.After(*end):
		return Eligibility{Window: WindowEnded, Label: LabelEnded}
	}
	return Eligibility{Eligible: true, Window: WindowOpen, Label: LabelReady}
}

// Countdown renders the time left until start, floored to whole minutes.
func Countdown(start, now time.Time) string {
	remaining := start.Sub(now)
	if remaining <= 0 {
		return LabelStarted
	}
	hours := int(remaining / time.Hour)
	minutes := int((remaining % time.Hour) / time.Minute)
	if hours > 0 {
		return fmt.Sprintf("Starts in %dh %dm", hours, minutes)
	}
	return fmt.Sprintf("Starts in %dm", minutes)
}

// Join refusal reasons.
const (
	ReasonUnknownStatus = "unknown_status"
	ReasonNotApproved   = "not_approved"
	ReasonUnscheduled   = "unscheduled"
	ReasonTooEarly      = "too_early"
	ReasonEnded         = "ended"
)

// JoinDecision combines the canonical status with the time window.
type JoinDecision struct {
	Allowed     bool        `json:"allowed"`
	Reason      string      `json:"reason,omitempty"`
	Status      Status      `json:"canonical_status"`
	Eligibility Eligibility `json:"eligibility"`
}

// Decide allows joining only an APPROVED appointment whose window is open.
func Decide(a *Appointment, now time.Time) JoinDecision {
	d := JoinDecision{
		Status:      Normalize(a.Status),
		Eligibility: Evaluate(a.StartTime, a.EndTime, now),
	}

	switch {
	case d.Status == StatusUnknown:
		d.Reason = ReasonUnknownStatus
	case d.Status != StatusApproved:
		d.Reason = ReasonNotApproved
	case d.Eligibility.Window == WindowUnscheduled:
		d.Reason = ReasonUnscheduled
	case d.Eligibility.Window == WindowUpcoming:
		d.Reason = ReasonTooEarly
	case d.Eligibility.Window == WindowEnded:
		d.Reason = ReasonEnded
	default:
		d.Allowed = true
	}
	return d
}
