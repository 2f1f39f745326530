package sensors

import (
	"math/rand/v2"

	"github.com/relabs-tech/pet_monitor/internal/imu"
	"github.com/relabs-tech/pet_monitor/internal/vitals"
)

// SimulatedVitals produces SpO2 in 85-100 and heart rate in 60-160.
type SimulatedVitals struct {
	rng *rand.Rand
}

func NewSimulatedVitals(seed uint64) *SimulatedVitals {
	return &SimulatedVitals{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *SimulatedVitals) Read() (vitals.Sample, error) {
	return vitals.Sample{
		Source:    "simulated",
		SpO2:      85 + s.rng.IntN(16),
		HeartRate: 60 + s.rng.IntN(101),
	}, nil
}

// SimulatedMotion produces a motion magnitude in 0.2-2.0, all on the Z axis.
type SimulatedMotion struct {
	rng *rand.Rand
}

func NewSimulatedMotion(seed uint64) *SimulatedMotion {
	return &SimulatedMotion{rng: rand.New(rand.NewPCG(seed, seed^0xbf58476d1ce4e5b9))}
}

func (s *SimulatedMotion) Read() (imu.Sample, error) {
	return imu.Sample{
		Source: "simulated",
		Az:     0.2 + s.rng.Float64()*1.8,
		TempC:  30,
	}, nil
}
