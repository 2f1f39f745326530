package gps

import (
	"testing"
	"time"

	nmea "github.com/adrianmo/go-nmea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 1, 12, 35, 19, 0, time.UTC)

// nmeaLine wraps body in "$" and a valid checksum.
func nmeaLine(body string) string {
	return "$" + body + "*" + nmea.Checksum(body)
}

const (
	ggaMunich  = "GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,"
	ggaNoFix   = "GPGGA,123520,,,,,0,00,,,M,,M,,"
	rmcValid   = "GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W"
	rmcVoid    = "GPRMC,123521,V,,,,,,,230394,,"
	gsa3D      = "GPGSA,A,3,04,05,,09,12,,,24,,,,,2.5,1.3,2.1"
	gsaNoFix   = "GNGSA,A,1,,,,,,,,,,,,,,,"
	gsaNoValue = "GPGSA,A,,,,,,,,,,,,,,,,"
)

func mustApply(t *testing.T, fix *PositionFix, body string) Result {
	t.Helper()
	res, err := Apply(fix, nmeaLine(body), testNow)
	require.NoError(t, err)
	return res
}

func TestApply_GGAFix(t *testing.T) {
	var fix PositionFix
	res := mustApply(t, &fix, ggaMunich)

	assert.Equal(t, Result{Kind: KindGGA, Updated: true}, res)
	assert.True(t, fix.HasFix)
	assert.Equal(t, KindGGA, fix.FixSource)
	require.True(t, fix.HasCoordinates())
	assert.InDelta(t, 48.1173, *fix.Latitude, 1e-4)
	assert.InDelta(t, 11.5167, *fix.Longitude, 1e-4)
	require.NotNil(t, fix.Altitude)
	assert.InDelta(t, 545.4, *fix.Altitude, 1e-9)
	require.NotNil(t, fix.HDOP)
	assert.InDelta(t, 0.9, *fix.HDOP, 1e-9)
	assert.Equal(t, 8, fix.Satellites)
	assert.Equal(t, 1, fix.FixQuality)
	assert.Equal(t, testNow, fix.LastUpdate)
}

func TestApply_ChecksumMismatchLeavesFixUnchanged(t *testing.T) {
	var fix PositionFix
	mustApply(t, &fix, ggaMunich)
	before := fix

	for _, body := range []string{rmcVoid, ggaNoFix, gsaNoFix} {
		line := nmeaLine(body)
		bad := line[:len(line)-2] + "00"
		if bad == line {
			bad = line[:len(line)-2] + "FF"
		}
		_, err := Apply(&fix, bad, testNow.Add(time.Second))
		assert.ErrorIs(t, err, ErrChecksum)
		assert.Equal(t, before, fix)
	}
}

func TestApply_ChecksumCaseInsensitive(t *testing.T) {
	var fix PositionFix
	line := "$" + gsa3D + "*" + "39"
	require.Equal(t, "39", nmea.Checksum(gsa3D))

	_, err := Apply(&fix, line, testNow)
	require.NoError(t, err)

	lower := "$" + rmcValid + "*" + lowerHex(nmea.Checksum(rmcValid))
	require.Equal(t, "$"+rmcValid+"*6a", lower)
	_, err = Apply(&fix, lower, testNow)
	require.NoError(t, err)
	assert.Equal(t, KindRMC, fix.FixSource)
}

func lowerHex(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'F' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

func TestApply_ChecksumOptional(t *testing.T) {
	var fix PositionFix
	res, err := Apply(&fix, "$"+ggaMunich, testNow)
	require.NoError(t, err)
	assert.True(t, res.Updated)
	assert.True(t, fix.HasFix)
}

func TestApply_RMCVoidClearsFix(t *testing.T) {
	var fix PositionFix
	mustApply(t, &fix, ggaMunich)
	lat := *fix.Latitude

	res := mustApply(t, &fix, rmcVoid)
	assert.Equal(t, Result{Kind: KindRMC, Updated: false}, res)
	assert.False(t, fix.HasFix)
	assert.Equal(t, KindRMC, fix.FixSource)
	assert.Equal(t, lat, *fix.Latitude)
	assert.Empty(t, fix.Date)
}

func TestApply_RMCValid(t *testing.T) {
	var fix PositionFix
	res := mustApply(t, &fix, rmcValid)

	assert.True(t, res.Updated)
	assert.True(t, fix.HasFix)
	require.NotNil(t, fix.SpeedKmh)
	assert.InDelta(t, 22.4*1.852, *fix.SpeedKmh, 1e-9)
	require.NotNil(t, fix.CourseDeg)
	assert.InDelta(t, 84.4, *fix.CourseDeg, 1e-9)
	assert.Equal(t, "230394", fix.Date)
	assert.Equal(t, "123519", fix.Time)
	assert.InDelta(t, 48.1173, *fix.Latitude, 1e-4)
	assert.Nil(t, fix.Altitude)
	assert.Equal(t, 0, fix.FixQuality)
}

func TestApply_GSA(t *testing.T) {
	var fix PositionFix

	res := mustApply(t, &fix, gsa3D)
	assert.Equal(t, Result{Kind: KindGSA, Updated: true}, res)
	assert.True(t, fix.HasFix)
	assert.False(t, fix.HasCoordinates())

	mustApply(t, &fix, gsaNoFix)
	assert.False(t, fix.HasFix)

	mustApply(t, &fix, gsa3D)
	mustApply(t, &fix, gsaNoValue)
	assert.False(t, fix.HasFix)
	assert.Equal(t, testNow, fix.LastUpdate)
}

func TestApply_GGANoFix(t *testing.T) {
	var fix PositionFix
	mustApply(t, &fix, ggaMunich)
	before := fix

	res := mustApply(t, &fix, ggaNoFix)
	assert.Equal(t, Result{Kind: KindGGA, Updated: false}, res)
	assert.False(t, fix.HasFix)
	assert.Equal(t, 0, fix.FixQuality)
	assert.Equal(t, before.Latitude, fix.Latitude)
	assert.Equal(t, before.Satellites, fix.Satellites)
	assert.Equal(t, before.Altitude, fix.Altitude)
}

// A GGA granting a fix without coordinate fields still sets HasFix and
// leaves the coordinates as they were, absent here.
func TestApply_GGAFixWithoutCoordinates(t *testing.T) {
	var fix PositionFix
	res := mustApply(t, &fix, "GPGGA,123519,,,,,1,04,1.5,,M,,M,,")

	assert.True(t, res.Updated)
	assert.True(t, fix.HasFix)
	assert.False(t, fix.HasCoordinates())
	assert.Equal(t, 4, fix.Satellites)
	assert.Nil(t, fix.Location().Latitude)
	assert.Equal(t, "No GPS fix", fix.CoordinatesString())
	assert.Empty(t, fix.MapsURL())
}

func TestApply_LastWriterWins(t *testing.T) {
	var fix PositionFix

	mustApply(t, &fix, ggaMunich)
	assert.True(t, fix.HasFix)

	mustApply(t, &fix, gsaNoFix)
	assert.False(t, fix.HasFix)
	assert.Equal(t, KindGSA, fix.FixSource)

	mustApply(t, &fix, rmcValid)
	assert.True(t, fix.HasFix)
	assert.Equal(t, KindRMC, fix.FixSource)

	mustApply(t, &fix, ggaNoFix)
	assert.False(t, fix.HasFix)
	assert.Equal(t, KindGGA, fix.FixSource)
}

func TestApply_Rejected(t *testing.T) {
	tests := []struct {
		name string
		line string
		want error
	}{
		{"no start marker", ggaMunich, ErrNotSentence},
		{"encapsulated", "!AIVDM,1,1,,A,13aEOK?P00PD2wVMdLDRhgvL289?,0*26", ErrNotSentence},
		{"glonass talker", nmeaLine("GLGSA,A,3,65,66,,,,,,,,,,,2.5,1.3,2.1"), ErrUnsupported},
		{"vtg", nmeaLine("GPVTG,054.7,T,034.4,M,005.5,N,010.2,K"), ErrUnsupported},
		{"short gga", nmeaLine("GPGGA,123519,4807.038,N,01131.000,E,1"), ErrShortSentence},
		{"short rmc", nmeaLine("GPRMC,123519,A,4807.038,N"), ErrShortSentence},
		{"short gsa", nmeaLine("GPGSA,A,3,04,05"), ErrShortSentence},
		{"bad quality", nmeaLine("GPGGA,123519,4807.038,N,01131.000,E,x,08,0.9,545.4,M,46.9,M,,"), ErrMalformedField},
		{"bad altitude", nmeaLine("GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,5x5.4,M,46.9,M,,"), ErrMalformedField},
		{"bad speed", nmeaLine("GPRMC,123519,A,4807.038,N,01131.000,E,fast,084.4,230394,003.1,W"), ErrMalformedField},
		{"bad fix type", nmeaLine("GPGSA,A,z,04,05,,09,12,,,24,,,,,2.5,1.3,2.1"), ErrMalformedField},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var fix PositionFix
			mustApply(t, &fix, rmcValid)
			before := fix

			_, err := Apply(&fix, tt.line, testNow.Add(time.Minute))
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, before, fix)
		})
	}
}

func TestApply_BadCoordinateBecomesUnknown(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		latNil  bool
		lonNil  bool
		wantLat float64
	}{
		{"garbled latitude", "GPGGA,123600,48x7.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,", true, false, 0},
		{"garbled longitude", "GPGGA,123600,4807.100,N,011x1.000,E,1,08,0.9,545.4,M,46.9,M,,", false, true, 48.118333},
		{"latitude without decimal point", "GPRMC,123600,A,4807,N,01131.000,E,022.4,084.4,230394,003.1,W", true, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var fix PositionFix
			mustApply(t, &fix, ggaMunich)

			res := mustApply(t, &fix, tt.body)
			assert.True(t, res.Updated)
			assert.True(t, fix.HasFix)
			if tt.latNil {
				assert.Nil(t, fix.Latitude)
			} else {
				require.NotNil(t, fix.Latitude)
				assert.InDelta(t, tt.wantLat, *fix.Latitude, 1e-5)
			}
			if tt.lonNil {
				assert.Nil(t, fix.Longitude)
			} else {
				assert.NotNil(t, fix.Longitude)
			}
			// a fix with a coordinate missing reports no position
			assert.Equal(t, "No GPS fix", fix.CoordinatesString())
			assert.Empty(t, fix.MapsURL())
		})
	}
}

func TestPositionFix_SnapshotIsStable(t *testing.T) {
	var fix PositionFix
	mustApply(t, &fix, ggaMunich)
	snap := fix

	mustApply(t, &fix, "GPGGA,123600,3352.128,S,15112.558,E,2,10,0.7,20.0,M,46.9,M,,")
	assert.InDelta(t, 48.1173, *snap.Latitude, 1e-4)
	assert.InDelta(t, -33.8688, *fix.Latitude, 1e-4)
}

func TestPositionFix_Helpers(t *testing.T) {
	var fix PositionFix
	assert.Nil(t, fix.Location())
	assert.Equal(t, "No GPS fix", fix.CoordinatesString())
	assert.Empty(t, fix.MapsURL())

	mustApply(t, &fix, ggaMunich)
	loc := fix.Location()
	require.NotNil(t, loc)
	assert.Equal(t, fix.Satellites, loc.Satellites)
	assert.Equal(t, "48.117300, 11.516667", fix.CoordinatesString())
	assert.Equal(t, "https://www.google.com/maps?q=48.117300,11.516667", fix.MapsURL())
}
