package health

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnalyze(t *testing.T) {
	th := DefaultThresholds()
	tests := []struct {
		name      string
		spo2      int
		hr        int
		motion    float64
		wantCount int
		wantIssue []string
	}{
		{"all normal", 97, 80, 1.0, 0, nil},
		{"low spo2 only", 85, 75, 1.0, 1, []string{"Low SpO2: 85%"}},
		{"zero vitals exempt, motion low", 0, 0, 0.0, 1, []string{"Low motion: 0.00"}},
		{"low heart rate", 95, 40, 1.0, 1, []string{"Low heart rate: 40 BPM"}},
		{"high heart rate", 95, 200, 1.0, 1, []string{"High heart rate: 200 BPM"}},
		{"excessive motion", 95, 80, 7.25, 1, []string{"Excessive motion: 7.25"}},
		{"everything off", 80, 190, 0.1, 3, []string{"Low SpO2: 80%", "High heart rate: 190 BPM", "Low motion: 0.10"}},
		{"boundaries are safe", 90, 60, 0.3, 0, nil},
		{"upper boundaries are safe", 100, 180, 5.0, 0, nil},
		{"spo2 above max is not an issue", 101, 80, 1.0, 0, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Analyze(tt.spo2, tt.hr, tt.motion, th)
			assert.Equal(t, tt.wantCount, got.Count)
			assert.Equal(t, tt.wantIssue, got.Issues)
		})
	}
}

func TestAnalyze_IssuesStartWithLabel(t *testing.T) {
	got := Analyze(85, 75, 1.0, DefaultThresholds())
	assert.Len(t, got.Issues, 1)
	assert.True(t, strings.HasPrefix(got.Issues[0], LabelLowSpO2))
}

func TestAnalyze_CustomThresholds(t *testing.T) {
	th := Thresholds{SpO2Min: 95, HeartRateMin: 70, HeartRateMax: 120, MotionMin: 0, MotionMax: 2}
	got := Analyze(94, 130, 0, th)
	assert.Equal(t, 2, got.Count)
	assert.Equal(t, []string{"Low SpO2: 94%", "High heart rate: 130 BPM"}, got.Issues)
}

func TestAbnormalReading_Abnormal(t *testing.T) {
	assert.False(t, AbnormalReading{}.Abnormal(0))
	assert.False(t, AbnormalReading{Count: 1}.Abnormal(2))
	assert.True(t, AbnormalReading{Count: 2}.Abnormal(2))
	assert.True(t, AbnormalReading{Count: 3}.Abnormal(2))
}
