package vitals

// Sample is one pulse-oximeter reading. Zero means no value.
type Sample struct {
	Source string `json:"source"` // "max30102" or "simulated"

	SpO2      int `json:"spo2"`       // %
	HeartRate int `json:"heart_rate"` // BPM
}

type Source interface {
	Read() (Sample, error)
}
