package alert

import (
	"fmt"
	"strings"

	"github.com/relabs-tech/pet_monitor/internal/gps"
)

const messageHeader = "PET HEALTH ALERT!\n\nHealth Issues:\n"

func writeIssues(b *strings.Builder, issues []string) {
	b.WriteString(messageHeader)
	for _, issue := range issues {
		fmt.Fprintf(b, "• %s\n", issue)
	}
}

// LocationMessage is the text sent when the collar has a position.
// fix must have coordinates.
func LocationMessage(issues []string, fix *gps.PositionFix, mapsLink bool) string {
	var b strings.Builder
	writeIssues(&b, issues)

	var alt float64
	if fix.Altitude != nil {
		alt = *fix.Altitude
	}
	b.WriteString("\nGPS Location:\n")
	fmt.Fprintf(&b, "Latitude: %.6f°\n", *fix.Latitude)
	fmt.Fprintf(&b, "Longitude: %.6f°\n", *fix.Longitude)
	fmt.Fprintf(&b, "Altitude: %.1fm\n", alt)
	fmt.Fprintf(&b, "Satellites: %d\n", fix.Satellites)
	if mapsLink {
		fmt.Fprintf(&b, "\nView Location:\nhttps://www.google.com/maps?q=%.6f,%.6f", *fix.Latitude, *fix.Longitude)
	}
	return b.String()
}

// BasicMessage is the text sent without a position.
func BasicMessage(issues []string) string {
	var b strings.Builder
	writeIssues(&b, issues)
	b.WriteString("\nGPS location unavailable")
	return b.String()
}
