package consultation

import (
	"strings"

	"github.com/carelink/carelink/internal/platform/apperr"
)

// Consultation statuses. Stored values outside this set are tolerated and
// treated as not prescribable.
const (
	StatusActive    = "ACTIVE"
	StatusEnded     = "ENDED"
	StatusCompleted = "COMPLETED"
)

// NormalizeStatus trims and upper-cases a stored consultation_status.
func NormalizeStatus(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// Prescribable reports whether a prescription may be written against a
// consultation in status.
func Prescribable(status string) bool {
	switch NormalizeStatus(status) {
	case StatusActive, StatusEnded:
		return true
	}
	return false
}

// DiagnosticLabel marks an unfiltered listing returned for visibility.
const DiagnosticLabel = "diagnostic: no prescribable consultations, showing all"

type SelectOptions struct {
	// Diagnostics allows the unfiltered fallback when nothing is prescribable.
	Diagnostics bool
}

// DiagnosticView is the complete, unfiltered list, kept apart from Items so
// it can never be mistaken for a prescribable selection.
type DiagnosticView struct {
	Label string          `json:"label"`
	Items []*Consultation `json:"items"`
}

type Selection struct {
	Items      []*Consultation `json:"items"`
	Diagnostic *DiagnosticView `json:"diagnostic,omitempty"`
}

// SelectPrescribable keeps the prescribable consultations of all in order.
func SelectPrescribable(all []*Consultation, opts SelectOptions) Selection {
	sel := Selection{Items: make([]*Consultation, 0, len(all))}
	for _, c := range all {
		if c != nil && Prescribable(c.Status) {
			sel.Items = append(sel.Items, c)
		}
	}
	if len(sel.Items) == 0 && opts.Diagnostics && len(all) > 0 {
		sel.Diagnostic = &DiagnosticView{Label: DiagnosticLabel, Items: all}
	}
	return sel
}

var transitions = map[string][]string{
	StatusActive: {StatusEnded, StatusCompleted},
	StatusEnded:  {StatusCompleted},
}

// CheckTransition validates moving a consultation from one status to another.
func CheckTransition(from, to string) error {
	from, to = NormalizeStatus(from), NormalizeStatus(to)
	for _, next := range transitions[from] {
		if next == to {
			return nil
		}
	}
	if _, ok := transitions[from]; !ok && from != StatusCompleted {
		return apperr.Validation("consultation status %q is not recognized", from)
	}
	return apperr.Validation("cannot move consultation from %s to %s", from, to)
}
