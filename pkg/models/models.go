package models

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"time"
)

// Coordinate is a summary-table latitude or longitude in decimal degrees.
// NaN marks a cell that did not hold a number and is encoded as null.
type Coordinate float64

// Valid reports whether c holds a parsed value
func (c Coordinate) Valid() bool {
	return !math.IsNaN(float64(c))
}

// String formats c for text output; an invalid coordinate is ""
func (c Coordinate) String() string {
	if !c.Valid() {
		return ""
	}
	return strconv.FormatFloat(float64(c), 'f', -1, 64)
}

func (c Coordinate) MarshalJSON() ([]byte, error) {
	if !c.Valid() {
		return []byte("null"), nil
	}
	return json.Marshal(float64(c))
}

func (c *Coordinate) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*c = Coordinate(math.NaN())
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*c = Coordinate(v)
	return nil
}

// EarthquakeSummary is one row of the upstream bulletin summary table
type EarthquakeSummary struct {
	Date       string     `json:"date"`
	Magnitude  float64    `json:"magnitude"`
	Latitude   Coordinate `json:"latitude"`
	Longitude  Coordinate `json:"longitude"`
	Depth      string     `json:"depth"`
	Location   string     `json:"location"`
	DetailsURL *string    `json:"detailsUrl"`
}

// EarthquakeList is the response body of the latest endpoint
type EarthquakeList struct {
	Count int                 `json:"count"`
	Data  []EarthquakeSummary `json:"data"`
}

// Epicenter is the decomposed "N km DIR of PLACE" description of a location
type Epicenter struct {
	Distance  string `json:"distance"`
	Direction string `json:"direction"`
	Place     string `json:"place"`
}

// EarthquakeDetail is the structured content of a single bulletin page.
// Every pointer field is nil when its label was absent from the page.
type EarthquakeDetail struct {
	URL                  string     `json:"url"`
	DateTime             *string    `json:"dateTime"`
	Latitude             *string    `json:"latitude"`
	Longitude            *string    `json:"longitude"`
	Epicenter            *Epicenter `json:"epicenter"`
	Depth                *string    `json:"depth"`
	Magnitude            *string    `json:"magnitude"`
	ExpectingDamage      *string    `json:"expectingDamage"`
	ExpectingAftershocks *string    `json:"expectingAftershocks"`
	IssuedOn             *string    `json:"issuedOn"`
	PreparedBy           *string    `json:"preparedBy"`
	MapImage             *string    `json:"mapImage"`
}

// DetailResult pairs a bulletin URL with its fetch outcome (batch export)
type DetailResult struct {
	URL    string
	Detail *EarthquakeDetail
	Error  error
}

// ExportRecord is a summary row enriched with its bulletin, if one was fetched
type ExportRecord struct {
	EarthquakeSummary
	Details *EarthquakeDetail `json:"details,omitempty"`
	Error   string            `json:"error,omitempty"`
}

// Export is the document written by the export command
type Export struct {
	FetchedAt time.Time      `json:"fetchedAt"`
	Source    string         `json:"source"`
	Count     int            `json:"count"`
	Records   []ExportRecord `json:"records"`
}
