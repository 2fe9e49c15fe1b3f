package engine

import (
	"context"

	"github.com/law-makers/quake/pkg/models"
)

// Source is implemented by every earthquake bulletin scraper
type Source interface {
	// FetchLatest retrieves the summary table of the bulletin index
	FetchLatest(ctx context.Context) (*models.EarthquakeList, error)

	// FetchDetails retrieves and parses a single bulletin page
	FetchDetails(ctx context.Context, pageURL string) (*models.EarthquakeDetail, error)

	// Name returns the name of the scraper implementation
	Name() string
}
