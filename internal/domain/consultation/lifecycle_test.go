package consultation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carelink/carelink/internal/platform/apperr"
)

func TestPrescribable(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{"ACTIVE", true},
		{"ENDED", true},
		{" active ", true},
		{"ended", true},
		{"COMPLETED", false},
		{"", false},
		{"PAUSED", false},
		{"CANCELLED", false},
	}
	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			assert.Equal(t, tt.want, Prescribable(tt.status))
		})
	}
}

func statuses(cs []*Consultation) []string {
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.Status)
	}
	return out
}

func withStatuses(ss ...string) []*Consultation {
	out := make([]*Consultation, 0, len(ss))
	for _, s := range ss {
		out = append(out, &Consultation{Status: s})
	}
	return out
}

func TestSelectPrescribable_KeepsOrder(t *testing.T) {
	all := withStatuses("ENDED", "COMPLETED", "ACTIVE", "weird", "ENDED")

	sel := SelectPrescribable(all, SelectOptions{})
	assert.Equal(t, []string{"ENDED", "ACTIVE", "ENDED"}, statuses(sel.Items))
	assert.Nil(t, sel.Diagnostic)
}

func TestSelectPrescribable_NeverWidensItems(t *testing.T) {
	all := withStatuses("COMPLETED", "COMPLETED")

	sel := SelectPrescribable(all, SelectOptions{Diagnostics: true})
	assert.Empty(t, sel.Items)
	require.NotNil(t, sel.Diagnostic)
	assert.Equal(t, DiagnosticLabel, sel.Diagnostic.Label)
	assert.Len(t, sel.Diagnostic.Items, 2)
}

func TestSelectPrescribable_NoFallbackWithoutOptIn(t *testing.T) {
	sel := SelectPrescribable(withStatuses("COMPLETED"), SelectOptions{})
	assert.Empty(t, sel.Items)
	assert.Nil(t, sel.Diagnostic)
}

func TestSelectPrescribable_NoFallbackWhenSomethingMatches(t *testing.T) {
	sel := SelectPrescribable(withStatuses("COMPLETED", "ACTIVE"), SelectOptions{Diagnostics: true})
	assert.Len(t, sel.Items, 1)
	assert.Nil(t, sel.Diagnostic)
}

func TestSelectPrescribable_Empty(t *testing.T) {
	sel := SelectPrescribable(nil, SelectOptions{Diagnostics: true})
	assert.NotNil(t, sel.Items)
	assert.Empty(t, sel.Items)
	assert.Nil(t, sel.Diagnostic)
}

func TestCheckTransition(t *testing.T) {
	tests := []struct {
		from, to string
		ok       bool
	}{
		{"ACTIVE", "ENDED", true},
		{"ACTIVE", "COMPLETED", true},
		{"ENDED", "COMPLETED", true},
		{"active", "ended", true},
		{"ENDED", "ACTIVE", false},
		{"COMPLETED", "ACTIVE", false},
		{"ACTIVE", "ACTIVE", false},
		{"PAUSED", "ENDED", false},
	}
	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			err := CheckTransition(tt.from, tt.to)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.True(t, apperr.IsValidation(err), "expected validation error, got %v", err)
		})
	}
}
