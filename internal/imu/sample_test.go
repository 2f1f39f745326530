package imu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSample_Magnitude(t *testing.T) {
	assert.InDelta(t, 0.0, Sample{}.Magnitude(), 1e-12)
	assert.InDelta(t, 9.81, Sample{Az: 9.81}.Magnitude(), 1e-12)
	assert.InDelta(t, 6.0, Sample{Ax: -1, Ay: 2, Az: -3, Gx: 100}.Magnitude(), 1e-12)
}
