package gps

import (
	"fmt"
	"time"

	nmea "github.com/adrianmo/go-nmea"
)

// SentenceKind names the sentence type that last decided HasFix.
type SentenceKind string

const (
	KindNone SentenceKind = ""
	KindGGA  SentenceKind = nmea.TypeGGA
	KindRMC  SentenceKind = nmea.TypeRMC
	KindGSA  SentenceKind = nmea.TypeGSA
)

// PositionFix is the receiver's latest known state, suitable for JSON and MQTT.
//
// Optional values are pointers. The decoder always stores fresh pointers and
// never writes through an existing one, so a value copy of a PositionFix is a
// stable snapshot.
type PositionFix struct {
	Latitude   *float64     `json:"lat,omitempty"`        // decimal degrees, south negative
	Longitude  *float64     `json:"lon,omitempty"`        // decimal degrees, west negative
	Altitude   *float64     `json:"alt_m,omitempty"`      // meters above MSL
	SpeedKmh   *float64     `json:"speed_kmh,omitempty"`  // speed over ground
	CourseDeg  *float64     `json:"course_deg,omitempty"` // course over ground
	HDOP       *float64     `json:"hdop,omitempty"`       // horizontal dilution
	Time       string       `json:"time,omitempty"`       // raw hhmmss.ss
	Date       string       `json:"date,omitempty"`       // raw ddmmyy
	Satellites int          `json:"satellites"`           // satellites in use
	FixQuality int          `json:"fix_quality"`          // 0 = none
	HasFix     bool         `json:"has_fix"`              // last writer wins
	FixSource  SentenceKind `json:"fix_source,omitempty"` // sentence kind that set HasFix

	LastUpdate time.Time `json:"last_update,omitempty"`
}

// HasCoordinates reports whether both latitude and longitude are known.
func (f *PositionFix) HasCoordinates() bool {
	return f.Latitude != nil && f.Longitude != nil
}

// Location returns a copy of the fix when the receiver reports one, nil otherwise.
func (f *PositionFix) Location() *PositionFix {
	if f == nil || !f.HasFix {
		return nil
	}
	c := *f
	return &c
}

// CoordinatesString formats the position for log lines and the status display.
func (f *PositionFix) CoordinatesString() string {
	if f == nil || !f.HasFix || !f.HasCoordinates() {
		return "No GPS fix"
	}
	return fmt.Sprintf("%.6f, %.6f", *f.Latitude, *f.Longitude)
}

// MapsURL returns a Google Maps link for the position, or "" without a fix.
func (f *PositionFix) MapsURL() string {
	if f == nil || !f.HasFix || !f.HasCoordinates() {
		return ""
	}
	return fmt.Sprintf("https://www.google.com/maps?q=%.6f,%.6f", *f.Latitude, *f.Longitude)
}
