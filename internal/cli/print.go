package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/law-makers/quake/internal/quake"
	"github.com/law-makers/quake/internal/ui"
	"github.com/law-makers/quake/pkg/models"
)

// printQuakes writes a page of summaries as an aligned table. Padding is
// applied before styling so escape codes do not skew columns.
func printQuakes(w io.Writer, page quake.Page, now time.Time) {
	if page.Total == 0 {
		fmt.Fprintln(w, ui.Info("No earthquakes matched."))
		return
	}

	fmt.Fprintf(w, "%s\n", ui.Bold(fmt.Sprintf("%-42s %-5s %-10s %-6s %s", "DATE (PST)", "MAG", "CLASS", "DEPTH", "LOCATION")))
	for _, q := range page.Items {
		when := q.Date
		if t, err := quake.ParseDate(q.Date); err == nil {
			when = fmt.Sprintf("%s (%s)", q.Date, quake.RelativeTime(t, now))
		}
		fmt.Fprintf(w, "%-42s %s %-10s %-6s %s\n",
			truncate(when, 42),
			ui.Magnitude(q.Magnitude, fmt.Sprintf("%-5.1f", q.Magnitude)),
			quake.MagnitudeLabel(q.Magnitude),
			q.Depth,
			q.Location)
	}

	fmt.Fprintln(w, ui.Dim(fmt.Sprintf("page %d/%d, %d matching", page.Page, page.TotalPages, page.Total)))
}

// printStats writes the one-paragraph overview of a list
func printStats(w io.Writer, s quake.Stats) {
	fmt.Fprintf(w, "\n%s %d total, %d of magnitude 5+, %d in the last 24h\n",
		ui.Bold("Summary:"), s.Total, s.Major, s.Recent24h)
	if s.Strongest != nil {
		fmt.Fprintf(w, "%s %s %s\n",
			ui.Bold("Strongest:"),
			ui.Magnitude(s.Strongest.Magnitude, fmt.Sprintf("M%.1f", s.Strongest.Magnitude)),
			s.Strongest.Location)
	}
	if s.Period != nil {
		fmt.Fprintf(w, "%s %s\n", ui.Bold("Period:"), s.Period.MonthYear)
	}
}

// printDetail writes every bulletin field, "-" for absent ones
func printDetail(w io.Writer, d *models.EarthquakeDetail) {
	epicenter := ""
	if d.Epicenter != nil {
		epicenter = strings.TrimSpace(strings.Join([]string{d.Epicenter.Distance, d.Epicenter.Direction, "of", d.Epicenter.Place}, " "))
		if d.Epicenter.Distance == "" {
			epicenter = d.Epicenter.Place
		}
	}

	rows := []struct {
		label string
		value *string
	}{
		{"Date/Time", d.DateTime},
		{"Magnitude", d.Magnitude},
		{"Depth (km)", d.Depth},
		{"Latitude", d.Latitude},
		{"Longitude", d.Longitude},
		{"Epicenter", optional(epicenter)},
		{"Expecting damage", d.ExpectingDamage},
		{"Expecting aftershocks", d.ExpectingAftershocks},
		{"Issued on", d.IssuedOn},
		{"Prepared by", d.PreparedBy},
		{"Map image", d.MapImage},
	}

	fmt.Fprintln(w, ui.Bold(d.URL))
	for _, r := range rows {
		value := ui.Dim("-")
		if r.value != nil {
			value = *r.value
		}
		fmt.Fprintf(w, "  %-22s %s\n", r.label+":", value)
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "~"
}
