// Package detail extracts the label/value table of a single bulletin page.
package detail

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/law-makers/quake/internal/engine/location"
	urlutil "github.com/law-makers/quake/internal/utils/url"
	"github.com/law-makers/quake/pkg/models"
	"golang.org/x/net/html"
)

// Labels as printed in the first column of the bulletin table
const (
	LabelDateTime             = "Date/Time"
	LabelLocation             = "Location"
	LabelDepth                = "Depth of Focus (Km)"
	LabelMagnitude            = "Magnitude"
	LabelExpectingDamage      = "Expecting Damage"
	LabelExpectingAftershocks = "Expecting Aftershocks"
	LabelIssuedOn             = "Issued On"
	LabelPreparedBy           = "Prepared by"
)

// Parse builds the detail record of the bulletin at pageURL. Missing labels
// yield nil fields; nothing here is an error.
func Parse(doc *goquery.Document, pageURL string) *models.EarthquakeDetail {
	d := &models.EarthquakeDetail{URL: pageURL}
	if doc == nil {
		return d
	}

	fields := Fields(doc)
	lookup := func(label string) *string {
		if v, ok := fields[label]; ok {
			return &v
		}
		return nil
	}

	d.DateTime = lookup(LabelDateTime)
	d.Depth = lookup(LabelDepth)
	d.Magnitude = lookup(LabelMagnitude)
	d.ExpectingDamage = lookup(LabelExpectingDamage)
	d.ExpectingAftershocks = lookup(LabelExpectingAftershocks)
	d.IssuedOn = lookup(LabelIssuedOn)
	d.PreparedBy = lookup(LabelPreparedBy)

	if loc := lookup(LabelLocation); loc != nil {
		parsed := location.Parse(*loc)
		d.Latitude = parsed.Latitude
		d.Longitude = parsed.Longitude
		epicenter := parsed.Epicenter
		d.Epicenter = &epicenter
	}

	if src, ok := doc.Find("img").First().Attr("src"); ok && src != "" {
		mapImage := urlutil.ResolveURL(pageURL, src)
		d.MapImage = &mapImage
	}

	return d
}

// Fields maps every label of the page to its value. Rows need two cells;
// rows with an empty label or value are ignored and a repeated label keeps
// its last value.
func Fields(doc *goquery.Document) map[string]string {
	fields := make(map[string]string)

	doc.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() < 2 {
			return
		}

		label := strings.TrimSpace(strings.TrimSuffix(CellText(cells.Eq(0)), ":"))
		value := CellText(cells.Eq(1))
		if label != "" && value != "" {
			fields[label] = value
		}
	})

	return fields
}

// CellText joins the text of every child node of the cell (comments
// excluded) with single spaces and collapses whitespace
func CellText(cell *goquery.Selection) string {
	var parts []string
	cell.Contents().Each(func(_ int, child *goquery.Selection) {
		if n := child.Get(0); n != nil && n.Type == html.CommentNode {
			return
		}
		parts = append(parts, child.Text())
	})
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}
