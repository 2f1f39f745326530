package gps

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	nmea "github.com/adrianmo/go-nmea"
)

var (
	ErrNotSentence    = errors.New("gps: not an NMEA sentence")
	ErrChecksum       = errors.New("gps: checksum mismatch")
	ErrUnsupported    = errors.New("gps: unsupported sentence")
	ErrShortSentence  = errors.New("gps: too few fields")
	ErrMalformedField = errors.New("gps: malformed field")
)

// Minimum field counts, counting the address field and splitting the whole
// line (checksum included) on commas.
const (
	minFieldsGGA = 15
	minFieldsRMC = 12
	minFieldsGSA = 18
)

const knotsToKmh = 1.852

// Result describes what an accepted sentence did to the fix.
type Result struct {
	Kind    SentenceKind
	Updated bool // position data changed; false for "no fix" reports
}

// Apply validates one sentence and folds it into fix.
//
// GGA, RMC and GSA from GP and GN talkers are understood. The three kinds
// each decide HasFix on their own and the last one applied wins; FixSource
// records which one it was. Any error leaves fix untouched.
func Apply(fix *PositionFix, line string, now time.Time) (Result, error) {
	if !strings.HasPrefix(line, nmea.SentenceStart) {
		return Result{}, ErrNotSentence
	}
	if i := strings.LastIndex(line, nmea.ChecksumSep); i >= 0 {
		want := line[i+1:]
		if got := nmea.Checksum(line[1:i]); !strings.EqualFold(got, want) {
			return Result{}, fmt.Errorf("%w: got %s, want %s", ErrChecksum, got, want)
		}
	}

	fields := strings.Split(line, nmea.FieldSep)
	kind, err := sentenceKind(fields[0])
	if err != nil {
		return Result{}, err
	}

	var updated bool
	switch kind {
	case KindGGA:
		updated, err = applyGGA(fix, fields)
	case KindRMC:
		updated, err = applyRMC(fix, fields)
	case KindGSA:
		updated, err = applyGSA(fix, fields)
	}
	if err != nil {
		return Result{}, err
	}
	if updated {
		fix.LastUpdate = now
	}
	return Result{Kind: kind, Updated: updated}, nil
}

func sentenceKind(address string) (SentenceKind, error) {
	address = strings.TrimPrefix(address, nmea.SentenceStart)
	if len(address) != 5 {
		return KindNone, fmt.Errorf("%w: %q", ErrUnsupported, address)
	}
	switch talker := address[:2]; talker {
	case "GP", "GN":
	default:
		return KindNone, fmt.Errorf("%w: talker %q", ErrUnsupported, talker)
	}
	switch kind := SentenceKind(address[2:]); kind {
	case KindGGA, KindRMC, KindGSA:
		return kind, nil
	default:
		return KindNone, fmt.Errorf("%w: %q", ErrUnsupported, address)
	}
}

// applyGGA handles fix data. Quality 0 clears HasFix and changes nothing else.
func applyGGA(fix *PositionFix, f []string) (bool, error) {
	if len(f) < minFieldsGGA {
		return false, fmt.Errorf("%w: GGA has %d", ErrShortSentence, len(f))
	}
	quality, err := optInt(f[6], 0)
	if err != nil {
		return false, malformed("GGA quality", f[6])
	}
	if quality <= 0 {
		fix.FixQuality = quality
		fix.HasFix = false
		fix.FixSource = KindGGA
		return false, nil
	}

	sats, err := optInt(f[7], -1)
	if err != nil {
		return false, malformed("GGA satellites", f[7])
	}
	hdop, err := optFloat(f[8])
	if err != nil {
		return false, malformed("GGA hdop", f[8])
	}
	alt, err := optFloat(f[9])
	if err != nil {
		return false, malformed("GGA altitude", f[9])
	}

	fix.FixQuality = quality
	fix.HasFix = true
	fix.FixSource = KindGGA
	setCoordinates(fix, f[2], f[3], f[4], f[5])
	if alt != nil {
		fix.Altitude = alt
	}
	if sats >= 0 {
		fix.Satellites = sats
	}
	if hdop != nil {
		fix.HDOP = hdop
	}
	return true, nil
}

// applyRMC handles the recommended minimum. Status other than A clears HasFix.
func applyRMC(fix *PositionFix, f []string) (bool, error) {
	if len(f) < minFieldsRMC {
		return false, fmt.Errorf("%w: RMC has %d", ErrShortSentence, len(f))
	}
	if f[2] != "A" {
		fix.HasFix = false
		fix.FixSource = KindRMC
		return false, nil
	}

	knots, err := optFloat(f[7])
	if err != nil {
		return false, malformed("RMC speed", f[7])
	}
	course, err := optFloat(f[8])
	if err != nil {
		return false, malformed("RMC course", f[8])
	}

	fix.HasFix = true
	fix.FixSource = KindRMC
	setCoordinates(fix, f[3], f[4], f[5], f[6])
	if knots != nil {
		kmh := *knots * knotsToKmh
		fix.SpeedKmh = &kmh
	}
	if course != nil {
		fix.CourseDeg = course
	}
	if f[9] != "" {
		fix.Date = f[9]
	}
	if f[1] != "" {
		fix.Time = f[1]
	}
	return true, nil
}

// applyGSA handles the DOP sentence: fix type 2 or 3 means a fix, empty means 1.
func applyGSA(fix *PositionFix, f []string) (bool, error) {
	if len(f) < minFieldsGSA {
		return false, fmt.Errorf("%w: GSA has %d", ErrShortSentence, len(f))
	}
	fixType, err := optInt(f[2], 1)
	if err != nil {
		return false, malformed("GSA fix type", f[2])
	}
	fix.HasFix = fixType > 1
	fix.FixSource = KindGSA
	return true, nil
}

// setCoordinates converts each coordinate whose value and hemisphere are
// both present. One that fails to convert becomes unknown.
func setCoordinates(fix *PositionFix, lat, ns, lon, ew string) {
	if lat != "" && ns != "" {
		fix.Latitude = convertOrNil(lat, ns)
	}
	if lon != "" && ew != "" {
		fix.Longitude = convertOrNil(lon, ew)
	}
}

func convertOrNil(raw, hemisphere string) *float64 {
	v, ok := ConvertCoordinate(raw, hemisphere)
	if !ok {
		return nil
	}
	return &v
}

func optInt(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	return strconv.Atoi(s)
}

func optFloat(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func malformed(field, value string) error {
	return fmt.Errorf("%w: %s %q", ErrMalformedField, field, value)
}
