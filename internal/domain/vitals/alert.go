package vitals

// Alert levels, ordered by severity.
const (
	AlertNormal   = "normal"
	AlertWarning  = "warning"
	AlertCritical = "critical"
)

var severity = map[string]int{AlertNormal: 0, AlertWarning: 1, AlertCritical: 2}

// band is a threshold on a single measurement. A value below low or above
// high triggers the level.
type band struct {
	name      string
	low, high float64
}

var (
	criticalBands = map[string]band{
		"heart_rate":        {"heart rate", 40, 130},
		"systolic":          {"systolic pressure", 90, 179},
		"diastolic":         {"diastolic pressure", 40, 119},
		"temperature":       {"temperature", 35, 39.4},
		"oxygen_saturation": {"oxygen saturation", 90, 100},
	}
	warningBands = map[string]band{
		"heart_rate":        {"heart rate", 50, 110},
		"systolic":          {"systolic pressure", 100, 139},
		"diastolic":         {"diastolic pressure", 60, 89},
		"temperature":       {"temperature", 36, 37.9},
		"oxygen_saturation": {"oxygen saturation", 95, 100},
	}
)

// measurementOrder fixes the order reasons are reported in.
var measurementOrder = []string{"heart_rate", "systolic", "diastolic", "temperature", "oxygen_saturation"}

// Assessment is the alert level of a vital record and what caused it.
type Assessment struct {
	Level   string   `json:"alert_level"`
	Reasons []string `json:"alert_reasons,omitempty"`
}

// Assess classifies the measurements present on v. Missing measurements are
// ignored.
func Assess(v *VitalRecord) Assessment {
	values := map[string]float64{}
	if v.HeartRate != nil {
		values["heart_rate"] = float64(*v.HeartRate)
	}
	if v.Systolic != nil {
		values["systolic"] = float64(*v.Systolic)
	}
	if v.Diastolic != nil {
		values["diastolic"] = float64(*v.Diastolic)
	}
	if v.Temperature != nil {
		values["temperature"] = *v.Temperature
	}
	if v.OxygenSaturation != nil {
		values["oxygen_saturation"] = float64(*v.OxygenSaturation)
	}

	a := Assessment{Level: AlertNormal}
	for _, key := range measurementOrder {
		val, ok := values[key]
		if !ok {
			continue
		}
		level := ""
		b := criticalBands[key]
		if val < b.low || val > b.high {
			level = AlertCritical
		} else if b = warningBands[key]; val < b.low || val > b.high {
			level = AlertWarning
		}
		if level == "" {
			continue
		}
		dir := "high"
		if val < b.low {
			dir = "low"
		}
		a.Reasons = append(a.Reasons, b.name+" "+dir+" ("+level+")")
		if severity[level] > severity[a.Level] {
			a.Level = level
		}
	}
	return a
}
