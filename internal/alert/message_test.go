package alert

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/relabs-tech/pet_monitor/internal/gps"
)

func TestLocationMessage(t *testing.T) {
	fix := fixAt(-33.8688, 151.209297)

	want := "PET HEALTH ALERT!\n\nHealth Issues:\n" +
		"• Low SpO2: 85%\n" +
		"• High heart rate: 190 BPM\n" +
		"\nGPS Location:\n" +
		"Latitude: -33.868800°\n" +
		"Longitude: 151.209297°\n" +
		"Altitude: 545.4m\n" +
		"Satellites: 8\n" +
		"\nView Location:\nhttps://www.google.com/maps?q=-33.868800,151.209297"
	assert.Equal(t, want, LocationMessage(issues, fix, true))

	noLink := LocationMessage(issues, fix, false)
	assert.NotContains(t, noLink, "View Location")
	assert.Contains(t, noLink, "Satellites: 8\n")
}

func TestLocationMessage_NoAltitude(t *testing.T) {
	lat, lon := 1.0, 2.0
	fix := &gps.PositionFix{Latitude: &lat, Longitude: &lon, HasFix: true}
	assert.Contains(t, LocationMessage([]string{"Low motion: 0.00"}, fix, false), "Altitude: 0.0m\n")
}

func TestBasicMessage(t *testing.T) {
	want := "PET HEALTH ALERT!\n\nHealth Issues:\n• Low motion: 0.10\n\nGPS location unavailable"
	assert.Equal(t, want, BasicMessage([]string{"Low motion: 0.10"}))
}
