package app

import (
	"fmt"
	"image"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
)

// 7x13 font on a 128x64 panel.
const (
	displayCols   = 18
	displayLineDY = 13
)

// panel is the part of *ssd1306.Dev the status screen draws on.
type panel interface {
	Bounds() image.Rectangle
	Draw(r image.Rectangle, src image.Image, sp image.Point) error
	Halt() error
}

// StatusDisplay renders the monitor status on an SSD1306 OLED.
type StatusDisplay struct {
	dev panel
}

// OpenStatusDisplay initializes the OLED at its fixed address 0x3C on bus and
// shows the splash screen. bus is usually a multiplexer channel.
func OpenStatusDisplay(bus i2c.Bus) (*StatusDisplay, error) {
	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		return nil, fmt.Errorf("display: init ssd1306 on %s: %w", bus, err)
	}
	d := &StatusDisplay{dev: dev}
	if err := d.drawLines(splashLines()); err != nil {
		return nil, fmt.Errorf("display: splash: %w", err)
	}
	return d, nil
}

func (d *StatusDisplay) Show(s Status) error {
	return d.drawLines(statusLines(s))
}

// Close blanks the panel.
func (d *StatusDisplay) Close() error {
	return d.dev.Halt()
}

func (d *StatusDisplay) drawLines(lines [4]string) error {
	img := image1bit.NewVerticalLSB(d.dev.Bounds())

	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	for i, line := range lines {
		drawer.Dot = fixed.P(0, displayLineDY*(i+1))
		drawer.DrawBytes([]byte(line))
	}

	return d.dev.Draw(d.dev.Bounds(), img, image.Point{})
}

func splashLines() [4]string {
	return [4]string{"  Pet Monitor", "", " Waiting for", "   sensors"}
}

// statusLines lays out the four text rows of the status screen.
func statusLines(s Status) [4]string {
	var lines [4]string
	r := s.Reading

	if r.VitalsErr != nil || (r.Vitals.SpO2 == 0 && r.Vitals.HeartRate == 0) {
		lines[0] = "SpO2 --   HR --"
	} else {
		lines[0] = fmt.Sprintf("SpO2 %d%%  HR %d", r.Vitals.SpO2, r.Vitals.HeartRate)
	}

	switch {
	case r.MotionErr != nil:
		lines[1] = "Motion --"
	case r.Pose.Lying():
		lines[1] = fmt.Sprintf("Motion %.2f lying", r.MotionMagnitude())
	default:
		lines[1] = fmt.Sprintf("Motion %.2f", r.MotionMagnitude())
	}

	switch {
	case s.Fix == nil:
		lines[2] = "GPS off"
	case s.Fix.HasFix && s.Fix.HasCoordinates():
		lines[2] = formatLatLon(*s.Fix.Latitude, *s.Fix.Longitude)
	default:
		lines[2] = fmt.Sprintf("GPS no fix (%d sat)", s.Fix.Satellites)
	}

	switch {
	case s.Analysis.Count > 0:
		lines[3] = "!" + s.Analysis.Issues[0]
	case s.LastAlert != nil:
		lines[3] = "Alerted " + s.LastAlert.At.Format("15:04:05")
	default:
		lines[3] = "Status OK"
	}

	for i := range lines {
		lines[i] = truncate(lines[i], displayCols)
	}
	return lines
}

func formatLatLon(lat, lon float64) string {
	latDir := "N"
	if lat < 0 {
		latDir = "S"
		lat = -lat
	}
	lonDir := "E"
	if lon < 0 {
		lonDir = "W"
		lon = -lon
	}
	return fmt.Sprintf("%.4f%s %.4f%s", lat, latDir, lon, lonDir)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
