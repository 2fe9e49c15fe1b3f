// Package summary extracts earthquake rows from the bulletin index page.
package summary

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	urlutil "github.com/law-makers/quake/internal/utils/url"
	"github.com/law-makers/quake/pkg/models"
	"github.com/rs/zerolog/log"
)

// RowSelector selects every row of the bulletin tables
const RowSelector = "table tr"

// Column order of the summary table
const (
	colDate = iota
	colLatitude
	colLongitude
	colDepth
	colMagnitude
	colLocation
	columnCount
)

var (
	// month section headers share the row tag, e.g. "NOVEMBER 2025"
	monthHeaderPattern = regexp.MustCompile(`^[A-Z]+\s20\d{2}$`)
	leadingFloat       = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)
)

// Parse returns one summary per data row in document order. origin is the
// scheme://host that relative bulletin links are resolved against.
func Parse(doc *goquery.Document, origin string) []models.EarthquakeSummary {
	if doc == nil {
		return nil
	}

	quakes := make([]models.EarthquakeSummary, 0)

	doc.Find(RowSelector).Each(func(i int, row *goquery.Selection) {
		if q, ok := parseRow(row, origin); ok {
			quakes = append(quakes, q)
		}
	})

	return quakes
}

func parseRow(row *goquery.Selection, origin string) (models.EarthquakeSummary, bool) {
	cells := row.Find("td")
	if cells.Length() < columnCount {
		return models.EarthquakeSummary{}, false
	}

	text := func(col int) string {
		return strings.TrimSpace(cells.Eq(col).Text())
	}

	date := text(colDate)
	if !admitDate(date) {
		return models.EarthquakeSummary{}, false
	}

	magnitude, ok := ParseFloat(text(colMagnitude))
	if !ok {
		return models.EarthquakeSummary{}, false
	}

	q := models.EarthquakeSummary{
		Date:      date,
		Magnitude: magnitude,
		Latitude:  coordinate(text(colLatitude), "latitude", date),
		Longitude: coordinate(text(colLongitude), "longitude", date),
		Depth:     text(colDepth),
		Location:  text(colLocation),
	}

	if href, exists := cells.Eq(colDate).Find("a").First().Attr("href"); exists {
		if href = strings.TrimSpace(href); href != "" {
			resolved := urlutil.ResolveUpstreamPath(origin, href)
			q.DetailsURL = &resolved
		}
	}

	return q, true
}

func admitDate(date string) bool {
	return date != "" && !monthHeaderPattern.MatchString(date)
}

// ParseFloat reads the leading decimal number of s, ignoring any trailing
// text ("4.5", "14.20°"). It reports false when s does not start with one.
func ParseFloat(s string) (float64, bool) {
	m := leadingFloat.FindString(strings.TrimSpace(s))
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// coordinate keeps rows with a malformed position; the value is NaN so it
// serializes as null rather than a plausible 0
func coordinate(s, field, date string) models.Coordinate {
	v, ok := ParseFloat(s)
	if !ok {
		log.Debug().
			Str("field", field).
			Str("value", s).
			Str("date", date).
			Msg("Unparseable coordinate")
		return models.Coordinate(math.NaN())
	}
	return models.Coordinate(v)
}
