package quake

import (
	"time"

	"github.com/law-makers/quake/pkg/models"
)

// Stats summarises a list of earthquakes
type Stats struct {
	Total     int                       `json:"total"`
	Major     int                       `json:"major"`
	Recent24h int                       `json:"recent24h"`
	Strongest *models.EarthquakeSummary `json:"strongest,omitempty"`
	Period    *Period                   `json:"period,omitempty"`
}

// Period is the time span covered by a list
type Period struct {
	MonthYear      string    `json:"monthYear"`
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
	IsCurrentMonth bool      `json:"isCurrentMonth"`
}

// Summarize counts quakes of magnitude 5 or more, quakes dated within 24h
// before now and picks the strongest (first on ties)
func Summarize(quakes []models.EarthquakeSummary, now time.Time) Stats {
	s := Stats{Total: len(quakes)}
	dayAgo := now.Add(-24 * time.Hour)

	var dates []time.Time
	for i := range quakes {
		q := quakes[i]
		if Significant(q.Magnitude) {
			s.Major++
		}
		if s.Strongest == nil || q.Magnitude > s.Strongest.Magnitude {
			s.Strongest = &quakes[i]
		}
		if t, err := ParseDate(q.Date); err == nil {
			dates = append(dates, t)
			if !t.Before(dayAgo) {
				s.Recent24h++
			}
		}
	}

	s.Period = period(dates, now)
	return s
}

func period(dates []time.Time, now time.Time) *Period {
	if len(dates) == 0 {
		return nil
	}

	start, end := dates[0], dates[0]
	for _, t := range dates[1:] {
		if t.Before(start) {
			start = t
		}
		if t.After(end) {
			end = t
		}
	}

	local := now.In(Manila)
	return &Period{
		MonthYear:      end.Format("January 2006"),
		Start:          start,
		End:            end,
		IsCurrentMonth: end.Month() == local.Month() && end.Year() == local.Year(),
	}
}
