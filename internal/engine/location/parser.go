// Package location decomposes the "Location" text of a bulletin into
// coordinates and an epicenter description.
//
// Parsing is an ordered sequence of attempts. Each attempt either matches or
// hands over to the next one; the last resort treats the whole text as a
// place name, so Parse never fails.
package location

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/law-makers/quake/pkg/models"
)

// Degree is the glyph every non-ASCII rune is normalised to
const Degree = "°"

var (
	coordinatesPattern = regexp.MustCompile(`([\d.]+)°[NS], ([\d.]+)°[EW] - (.+)`)
	epicenterPattern   = regexp.MustCompile(`^(\d+ km) (.+) of (.+)$`)
)

// Result is the decomposed Location text
type Result struct {
	Latitude  *string
	Longitude *string
	Epicenter models.Epicenter
}

type coordinates struct {
	latitude  string
	longitude string
	rest      string
}

// Parse runs the attempts in order: coordinates, then epicenter on the
// remainder, falling back to place-only at either step.
func Parse(text string) Result {
	normalized := Normalize(text)

	coords, ok := matchCoordinates(normalized)
	if !ok {
		return Result{Epicenter: placeOnly(normalized)}
	}

	lat, lon := coords.latitude, coords.longitude
	res := Result{Latitude: &lat, Longitude: &lon}

	if epi, ok := matchEpicenter(coords.rest); ok {
		res.Epicenter = epi
	} else {
		res.Epicenter = placeOnly(coords.rest)
	}
	return res
}

// Normalize replaces every non-ASCII rune with a plain degree sign.
// Upstream emits the degree glyph in assorted broken encodings; this assumes
// nothing else non-ASCII ever appears in the field.
func Normalize(text string) string {
	var sb strings.Builder
	sb.Grow(len(text))
	for _, r := range text {
		if r >= utf8.RuneSelf {
			sb.WriteString(Degree)
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func matchCoordinates(s string) (coordinates, bool) {
	m := coordinatesPattern.FindStringSubmatch(s)
	if m == nil {
		return coordinates{}, false
	}
	return coordinates{latitude: m[1], longitude: m[2], rest: m[3]}, true
}

func matchEpicenter(rest string) (models.Epicenter, bool) {
	m := epicenterPattern.FindStringSubmatch(rest)
	if m == nil {
		return models.Epicenter{}, false
	}
	return models.Epicenter{Distance: m[1], Direction: m[2], Place: m[3]}, true
}

// placeOnly is the fallback branch: no distance or direction, the whole text is the place
func placeOnly(s string) models.Epicenter {
	return models.Epicenter{Place: s}
}
