package imu

import "math"

// Sample is one motion reading in physical units.
type Sample struct {
	Source string `json:"source"` // "mpu6050" or "simulated"

	Ax float64 `json:"ax"` // accel, m/s²
	Ay float64 `json:"ay"`
	Az float64 `json:"az"`

	Gx float64 `json:"gx"` // gyro, °/s
	Gy float64 `json:"gy"`
	Gz float64 `json:"gz"`

	TempC float64 `json:"temp_c"` // die temperature
}

// Magnitude is the activity figure the health rules use: |ax|+|ay|+|az|.
func (s Sample) Magnitude() float64 {
	return math.Abs(s.Ax) + math.Abs(s.Ay) + math.Abs(s.Az)
}

type Source interface {
	Read() (Sample, error)
}
