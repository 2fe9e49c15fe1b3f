// internal/engine/batch/scraper.go
package batch

import (
	"context"
	"net/url"
	"sync"

	"github.com/law-makers/quake/pkg/models"
)

// DetailFetcher is the part of engine.Source the batch scraper needs
type DetailFetcher interface {
	FetchDetails(ctx context.Context, pageURL string) (*models.EarthquakeDetail, error)
}

// Scraper wraps a DetailFetcher to fetch many bulletins concurrently
type Scraper struct {
	fetcher     DetailFetcher
	concurrency int
}

// New creates a new batch Scraper.
// If concurrency <= 0, it auto-tunes based on system resources
func New(fetcher DetailFetcher, concurrency int) *Scraper {
	if concurrency <= 0 {
		concurrency = OptimalConcurrency()
	}
	return &Scraper{
		fetcher:     fetcher,
		concurrency: concurrency,
	}
}

// Concurrency returns the worker limit
func (s *Scraper) Concurrency() int {
	return s.concurrency
}

// GroupByHost groups bulletin URLs by host so each host gets its own
// bounded set of workers
func GroupByHost(urls []string) map[string][]string {
	groups := make(map[string][]string)

	for _, u := range urls {
		parsed, err := url.Parse(u)
		if err != nil || parsed.Host == "" {
			groups["default"] = append(groups["default"], u)
			continue
		}
		groups[parsed.Host] = append(groups[parsed.Host], u)
	}

	return groups
}

// ScrapeBatch fetches every URL and streams one result per URL in completion
// order. The channel is closed once all started fetches have finished; URLs
// not started before ctx is cancelled are reported with ctx's error.
func (s *Scraper) ScrapeBatch(ctx context.Context, urls []string) <-chan models.DetailResult {
	results := make(chan models.DetailResult, len(urls))

	groups := GroupByHost(urls)

	go func() {
		var wg sync.WaitGroup

		for _, group := range groups {
			sem := make(chan struct{}, s.concurrency)

			for _, u := range group {
				if err := ctx.Err(); err != nil {
					results <- models.DetailResult{URL: u, Error: err}
					continue
				}

				select {
				case <-ctx.Done():
					results <- models.DetailResult{URL: u, Error: ctx.Err()}
					continue
				case sem <- struct{}{}:
				}

				wg.Add(1)
				go func(pageURL string) {
					defer wg.Done()
					defer func() { <-sem }()

					d, err := s.fetcher.FetchDetails(ctx, pageURL)
					results <- models.DetailResult{URL: pageURL, Detail: d, Error: err}
				}(u)
			}
		}

		wg.Wait()
		close(results)
	}()

	return results
}

// Collect runs ScrapeBatch and returns the results in the order of urls
func (s *Scraper) Collect(ctx context.Context, urls []string, progress func(models.DetailResult)) []models.DetailResult {
	index := make(map[string][]int, len(urls))
	for i, u := range urls {
		index[u] = append(index[u], i)
	}

	ordered := make([]models.DetailResult, len(urls))
	for res := range s.ScrapeBatch(ctx, urls) {
		slots := index[res.URL]
		if len(slots) == 0 {
			continue
		}
		ordered[slots[0]] = res
		index[res.URL] = slots[1:]

		if progress != nil {
			progress(res)
		}
	}

	return ordered
}
