package orientation

import (
	"math"

	"github.com/relabs-tech/pet_monitor/internal/imu"
)

// Pose is the collar's tilt, in degrees.
type Pose struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
}

// ComputePoseFromAccel computes roll and pitch from accelerometer data only.
// Units do not matter, only the ratios.
//
//	roll  = atan2(ay, az)
//	pitch = atan2(-ax, sqrt(ay² + az²))
func ComputePoseFromAccel(ax, ay, az float64) Pose {
	rollRad := math.Atan2(ay, az)
	pitchRad := math.Atan2(-ax, math.Sqrt(ay*ay+az*az))

	return Pose{
		Roll:  rollRad * 180.0 / math.Pi,
		Pitch: pitchRad * 180.0 / math.Pi,
	}
}

// FromSample is ComputePoseFromAccel on a motion sample.
func FromSample(s imu.Sample) Pose {
	return ComputePoseFromAccel(s.Ax, s.Ay, s.Az)
}

// Lying reports whether the pose is far enough from upright that the
// animal is probably lying on its side.
func (p Pose) Lying() bool {
	return math.Abs(p.Roll) > 60 || math.Abs(p.Pitch) > 60
}
