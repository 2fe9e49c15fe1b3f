package ui

import "github.com/law-makers/quake/internal/quake"

// ANSI color and style constants for CLI output
const (
	ColorReset = "\033[0m"
	ColorBold  = "\033[1m"
	ColorDim   = "\033[2m"

	ColorBlue    = "\033[34m"
	ColorCyan    = "\033[36m"
	ColorGreen   = "\033[32m"
	ColorYellow  = "\033[33m"
	ColorMagenta = "\033[35m"
	ColorWhite   = "\033[97m"
	ColorRed     = "\033[31m"
	ColorBoldRed = "\033[1;31m"
)

// Enabled turns styling off when false (non-terminal output, --json)
var Enabled = true

func style(code, s string) string {
	if !Enabled {
		return s
	}
	return code + s + ColorReset
}

func Bold(s string) string {
	return style(ColorBold, s)
}

func Success(s string) string {
	return style(ColorGreen, s)
}

func Info(s string) string {
	return style(ColorDim+ColorYellow, s)
}

func Error(s string) string {
	return style(ColorRed, s)
}

func Dim(s string) string {
	return style(ColorDim, s)
}

// MagnitudeColor returns the color of a magnitude band, from dim for micro
// quakes to bold red for major ones
func MagnitudeColor(m float64) string {
	switch quake.Classify(m) {
	case quake.Major:
		return ColorBoldRed
	case quake.Strong:
		return ColorRed
	case quake.Moderate:
		return ColorMagenta
	case quake.Light:
		return ColorYellow
	case quake.Minor:
		return ColorBlue
	default:
		return ColorDim
	}
}

// Magnitude colors s by the band of m
func Magnitude(m float64, s string) string {
	return style(MagnitudeColor(m), s)
}
