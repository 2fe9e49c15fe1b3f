package output

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/law-makers/quake/pkg/models"
)

// SummaryHeader is the header row written by WriteCSV
var SummaryHeader = []string{"date", "magnitude", "latitude", "longitude", "depth", "location", "detailsUrl"}

// SaveCSV writes quakes to a CSV file. Returns an error on failure.
func SaveCSV(quakes []models.EarthquakeSummary, filepath string) error {
	file, err := os.Create(filepath)
	if err != nil {
		return err
	}
	defer file.Close()

	return WriteCSV(file, quakes)
}

// WriteCSV writes a header row and one row per quake
func WriteCSV(w io.Writer, quakes []models.EarthquakeSummary) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(SummaryHeader); err != nil {
		return err
	}

	for _, q := range quakes {
		details := ""
		if q.DetailsURL != nil {
			details = *q.DetailsURL
		}
		row := []string{
			q.Date,
			strconv.FormatFloat(q.Magnitude, 'f', -1, 64),
			q.Latitude.String(),
			q.Longitude.String(),
			q.Depth,
			q.Location,
			details,
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}
