package gps

import (
	"strconv"
	"strings"
)

// ConvertCoordinate turns an NMEA ddmm.mmmm / dddmm.mmmm value and its
// hemisphere letter into signed decimal degrees. S and W are negative, any
// other letter positive. ok is false on malformed input.
func ConvertCoordinate(raw, hemisphere string) (deg float64, ok bool) {
	dot := strings.IndexByte(raw, '.')
	if dot < 3 || !allDigits(raw[:dot]) {
		return 0, false
	}
	split := dot - 2

	degrees, err := strconv.Atoi(raw[:split])
	if err != nil {
		return 0, false
	}
	minutes, err := strconv.ParseFloat(raw[split:], 64)
	if err != nil {
		return 0, false
	}

	deg = float64(degrees) + minutes/60
	if hemisphere == "S" || hemisphere == "W" {
		deg = -deg
	}
	return deg, true
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
