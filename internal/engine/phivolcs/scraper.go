// Package phivolcs scrapes the PHIVOLCS earthquake bulletin site.
package phivolcs

import (
	"context"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/law-makers/quake/internal/engine"
	"github.com/law-makers/quake/internal/engine/detail"
	"github.com/law-makers/quake/internal/engine/static"
	"github.com/law-makers/quake/internal/engine/summary"
	urlutil "github.com/law-makers/quake/internal/utils/url"
	"github.com/law-makers/quake/pkg/models"
	"github.com/rs/zerolog/log"
)

// DefaultURL is the public bulletin index
const DefaultURL = "https://earthquake.phivolcs.dost.gov.ph"

// Scraper implements engine.Source. Each call performs exactly one upstream
// request followed by a synchronous parse; it keeps no state between calls.
type Scraper struct {
	fetcher  *static.Fetcher
	indexURL string
	origin   string
}

var _ engine.Source = (*Scraper)(nil)

// New creates a Scraper reading the index at indexURL (DefaultURL when empty)
func New(fetcher *static.Fetcher, indexURL string) *Scraper {
	if indexURL == "" {
		indexURL = DefaultURL
	}
	return &Scraper{
		fetcher:  fetcher,
		indexURL: indexURL,
		origin:   urlutil.Origin(indexURL),
	}
}

// Name returns the name of this scraper
func (s *Scraper) Name() string {
	return "PhivolcsScraper"
}

// IndexURL returns the summary page address
func (s *Scraper) IndexURL() string {
	return s.indexURL
}

// FetchLatest retrieves the summary table in upstream (newest-first) order
func (s *Scraper) FetchLatest(ctx context.Context) (*models.EarthquakeList, error) {
	start := time.Now()

	doc, err := s.fetcher.Fetch(ctx, s.indexURL)
	if err != nil {
		return nil, err
	}

	quakes := summary.Parse(doc, s.origin)

	log.Debug().
		Str("url", s.indexURL).
		Int("count", len(quakes)).
		Dur("duration", time.Since(start)).
		Msg("Latest earthquakes extracted")

	return &models.EarthquakeList{Count: len(quakes), Data: quakes}, nil
}

// FetchDetails retrieves one bulletin page
func (s *Scraper) FetchDetails(ctx context.Context, pageURL string) (*models.EarthquakeDetail, error) {
	d, _, err := s.FetchDetailsWithDoc(ctx, pageURL)
	return d, err
}

// FetchDetailsWithDoc is FetchDetails that also returns the parsed page, for
// callers that export the bulletin itself
func (s *Scraper) FetchDetailsWithDoc(ctx context.Context, pageURL string) (*models.EarthquakeDetail, *goquery.Document, error) {
	if err := urlutil.ValidateURL(pageURL); err != nil {
		return nil, nil, engine.NewEngineError(engine.ErrCodeInvalidURL, "bulletin URL must be absolute", err)
	}

	doc, err := s.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, nil, err
	}

	d := detail.Parse(doc, pageURL)

	log.Debug().
		Str("url", pageURL).
		Bool("has_location", d.Epicenter != nil).
		Msg("Bulletin extracted")

	return d, doc, nil
}
