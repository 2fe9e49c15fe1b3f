package summary

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

const origin = "https://earthquake.phivolcs.dost.gov.ph"

const indexPage = `<html><body><div>
<table><tr><td>header table without enough cells</td></tr></table>
<table class="MsoNormalTable">
<tbody>
<tr><th>Date - Time</th><th>Latitude</th><th>Longitude</th><th>Depth</th><th>Mag</th><th>Location</th></tr>
<tr><td>NOVEMBER 2025</td><td>14.20</td><td>121.10</td><td>10</td><td>4.5</td><td>Section header</td></tr>
<tr>
  <td><a href="2025_Earthquake_Information\November\2025_1127_0204_B2.html">27 November 2025 - 10:04 AM</a></td>
  <td>14.20</td><td>121.10</td><td>010</td><td>2.1</td>
  <td>005 km N 45° W of Manila (Metro Manila)</td>
</tr>
<tr>
  <td>27 November 2025 - 09:15 AM</td>
  <td>09.83</td><td>126.31</td><td>021</td><td> 4.0 </td>
  <td>  022 km S 72° E of General Luna (Surigao Del Norte) </td>
</tr>
<tr><td>27 November 2025 - 08:00 AM</td><td>10.00</td><td>125.00</td><td>5</td><td></td><td>no magnitude</td></tr>
<tr><td>27 November 2025 - 07:00 AM</td><td>10.00</td><td>125.00</td><td>5</td><td>-</td><td>dash magnitude</td></tr>
<tr><td></td><td>10.00</td><td>125.00</td><td>5</td><td>3.3</td><td>empty date</td></tr>
<tr><td>&nbsp;</td><td></td><td></td><td></td><td></td><td></td></tr>
</tbody>
</table>
</div></body></html>`

func parse(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestParse_AdmitsDataRowsOnly(t *testing.T) {
	quakes := Parse(parse(t, indexPage), origin)
	require.Len(t, quakes, 2)

	first := quakes[0]
	require.Equal(t, "27 November 2025 - 10:04 AM", first.Date)
	require.Equal(t, 2.1, first.Magnitude)
	require.EqualValues(t, 14.20, first.Latitude)
	require.EqualValues(t, 121.10, first.Longitude)
	require.Equal(t, "010", first.Depth, "depth stays raw text")
	require.Equal(t, "005 km N 45° W of Manila (Metro Manila)", first.Location)
	require.NotNil(t, first.DetailsURL)
	require.Equal(t, origin+"/2025_Earthquake_Information/November/2025_1127_0204_B2.html", *first.DetailsURL)

	second := quakes[1]
	require.Equal(t, 4.0, second.Magnitude)
	require.Equal(t, "022 km S 72° E of General Luna (Surigao Del Norte)", second.Location)
	require.Nil(t, second.DetailsURL)
}

func TestParse_UnparseableCoordinateIsNull(t *testing.T) {
	html := `<table>
<tr><td>27 November 2025 - 10:04 AM</td><td>N/A</td><td>121.10</td><td>010</td><td>2.1</td><td>Manila</td></tr>
</table>`

	quakes := Parse(parse(t, html), origin)
	require.Len(t, quakes, 1, "the row is kept")
	require.False(t, quakes[0].Latitude.Valid())
	require.True(t, quakes[0].Longitude.Valid())

	raw, err := json.Marshal(quakes[0])
	require.NoError(t, err)
	require.Contains(t, string(raw), `"latitude":null`)
	require.Contains(t, string(raw), `"longitude":121.1`)
}

func TestParse_MonthHeadersAlwaysExcluded(t *testing.T) {
	html := `<table>
<tr><td>DECEMBER 2024</td><td>1</td><td>2</td><td>3</td><td>9.9</td><td>x</td></tr>
<tr><td>JANUARY 2026</td><td>1</td><td>2</td><td>3</td><td>5.0</td><td>x</td></tr>
<tr><td>May 2025</td><td>1</td><td>2</td><td>3</td><td>5.0</td><td>lowercase is data</td></tr>
</table>`

	quakes := Parse(parse(t, html), origin)
	require.Len(t, quakes, 1)
	require.Equal(t, "lowercase is data", quakes[0].Location)
}

func TestParse_EmptyDocument(t *testing.T) {
	quakes := Parse(parse(t, "<html></html>"), origin)
	require.NotNil(t, quakes)
	require.Empty(t, quakes)
	require.Nil(t, Parse(nil, origin))
}

func TestParse_Idempotent(t *testing.T) {
	doc := parse(t, indexPage)

	a, err := json.Marshal(Parse(doc, origin))
	require.NoError(t, err)
	b, err := json.Marshal(Parse(doc, origin))
	require.NoError(t, err)
	require.JSONEq(t, string(a), string(b))
}

func TestParseFloat(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"4.5", 4.5, true},
		{" 14.20° ", 14.20, true},
		{".5", 0.5, true},
		{"-1", -1, true},
		{"", 0, false},
		{"-", 0, false},
		{"N/A", 0, false},
	}

	for _, tt := range tests {
		got, ok := ParseFloat(tt.in)
		require.Equal(t, tt.ok, ok, tt.in)
		require.Equal(t, tt.want, got, tt.in)
	}
}
