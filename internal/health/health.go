// Package health turns one set of vital-sign and motion readings into a
// list of out-of-band findings.
package health

import "fmt"

// Issue labels. Each issue string starts with one of these.
const (
	LabelLowSpO2         = "Low SpO2"
	LabelLowHeartRate    = "Low heart rate"
	LabelHighHeartRate   = "High heart rate"
	LabelLowMotion       = "Low motion"
	LabelExcessiveMotion = "Excessive motion"
)

// Thresholds are the safe bands. SpO2Max is carried for display and
// telemetry; a high SpO2 is never an issue.
type Thresholds struct {
	SpO2Min      int
	SpO2Max      int
	HeartRateMin int
	HeartRateMax int
	MotionMin    float64
	MotionMax    float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		SpO2Min:      90,
		SpO2Max:      100,
		HeartRateMin: 60,
		HeartRateMax: 180,
		MotionMin:    0.3,
		MotionMax:    5.0,
	}
}

// AbnormalReading is the outcome of one analysis.
type AbnormalReading struct {
	Count  int
	Issues []string
}

// Analyze checks each reading against t. A zero SpO2 or heart rate means the
// sensor gave nothing and is not judged; motion has no such exemption.
func Analyze(spo2, heartRate int, motion float64, t Thresholds) AbnormalReading {
	var r AbnormalReading

	if spo2 > 0 && spo2 < t.SpO2Min {
		r.add(fmt.Sprintf("%s: %d%%", LabelLowSpO2, spo2))
	}

	if heartRate > 0 && heartRate < t.HeartRateMin {
		r.add(fmt.Sprintf("%s: %d BPM", LabelLowHeartRate, heartRate))
	} else if heartRate > t.HeartRateMax {
		r.add(fmt.Sprintf("%s: %d BPM", LabelHighHeartRate, heartRate))
	}

	if motion < t.MotionMin {
		r.add(fmt.Sprintf("%s: %.2f", LabelLowMotion, motion))
	} else if motion > t.MotionMax {
		r.add(fmt.Sprintf("%s: %.2f", LabelExcessiveMotion, motion))
	}

	return r
}

func (r *AbnormalReading) add(issue string) {
	r.Count++
	r.Issues = append(r.Issues, issue)
}

// Abnormal reports whether the reading meets the alert trigger.
func (r AbnormalReading) Abnormal(trigger int) bool {
	return r.Count > 0 && r.Count >= trigger
}
