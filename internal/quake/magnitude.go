// Package quake holds presentation helpers over scraped earthquake lists:
// magnitude classes, bulletin dates, filtering and summary statistics.
package quake

// Class is a magnitude band
type Class int

const (
	Micro Class = iota
	Minor
	Light
	Moderate
	Strong
	Major
)

var classNames = [...]string{"Micro", "Minor", "Light", "Moderate", "Strong", "Major"}

// String returns the label used in listings
func (c Class) String() string {
	if c < Micro || c > Major {
		return "Unknown"
	}
	return classNames[c]
}

// Classify returns the band m falls in
func Classify(m float64) Class {
	switch {
	case m >= 7:
		return Major
	case m >= 6:
		return Strong
	case m >= 5:
		return Moderate
	case m >= 4:
		return Light
	case m >= 3:
		return Minor
	default:
		return Micro
	}
}

// MagnitudeLabel returns the band label of m, e.g. "Moderate" for 5.2
func MagnitudeLabel(m float64) string {
	return Classify(m).String()
}

// Significant reports whether m counts towards the "major" statistic
func Significant(m float64) bool {
	return m >= 5
}
