package vitals

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func TestAssess(t *testing.T) {
	tests := []struct {
		name    string
		record  VitalRecord
		level   string
		reasons []string
	}{
		{"no readings", VitalRecord{Weight: floatPtr(70)}, AlertNormal, nil},
		{"healthy", VitalRecord{
			HeartRate: intPtr(72), Systolic: intPtr(120), Diastolic: intPtr(80),
			Temperature: floatPtr(36.8), OxygenSaturation: intPtr(98),
		}, AlertNormal, nil},
		{"tachycardia", VitalRecord{HeartRate: intPtr(115)}, AlertWarning, []string{"heart rate high (warning)"}},
		{"hypoxia", VitalRecord{OxygenSaturation: intPtr(88)}, AlertCritical, []string{"oxygen saturation low (critical)"}},
		{"fever", VitalRecord{Temperature: floatPtr(38.2)}, AlertWarning, []string{"temperature high (warning)"}},
		{"hypertensive crisis", VitalRecord{Systolic: intPtr(185), Diastolic: intPtr(121)}, AlertCritical,
			[]string{"systolic pressure high (critical)", "diastolic pressure high (critical)"}},
		{"worst level wins", VitalRecord{HeartRate: intPtr(115), OxygenSaturation: intPtr(88)}, AlertCritical,
			[]string{"heart rate high (warning)", "oxygen saturation low (critical)"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Assess(&tt.record)
			assert.Equal(t, tt.level, a.Level)
			assert.Equal(t, tt.reasons, a.Reasons)
		})
	}
}

func TestAssess_HeartRateBoundaries(t *testing.T) {
	tests := []struct {
		bpm   int
		level string
	}{
		{39, AlertCritical},
		{40, AlertWarning},
		{49, AlertWarning},
		{50, AlertNormal},
		{110, AlertNormal},
		{111, AlertWarning},
		{130, AlertWarning},
		{131, AlertCritical},
	}
	for _, tt := range tests {
		a := Assess(&VitalRecord{HeartRate: intPtr(tt.bpm)})
		assert.Equal(t, tt.level, a.Level, "heart rate %d", tt.bpm)
	}
}

func TestAssess_TemperatureBoundaries(t *testing.T) {
	tests := []struct {
		celsius float64
		level   string
	}{
		{34.9, AlertCritical},
		{35.5, AlertWarning},
		{36.0, AlertNormal},
		{37.9, AlertNormal},
		{38.0, AlertWarning},
		{39.4, AlertWarning},
		{39.5, AlertCritical},
	}
	for _, tt := range tests {
		a := Assess(&VitalRecord{Temperature: floatPtr(tt.celsius)})
		assert.Equal(t, tt.level, a.Level, "temperature %.1f", tt.celsius)
	}
}
