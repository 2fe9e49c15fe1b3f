package batch

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/law-makers/quake/pkg/models"
	"github.com/stretchr/testify/require"
)

type mockFetcher struct {
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (m *mockFetcher) FetchDetails(ctx context.Context, pageURL string) (*models.EarthquakeDetail, error) {
	n := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		p := m.peak.Load()
		if n <= p || m.peak.CompareAndSwap(p, n) {
			break
		}
	}

	time.Sleep(10 * time.Millisecond)
	if pageURL == "https://a.example/error" {
		return nil, errors.New("fetch error")
	}
	return &models.EarthquakeDetail{URL: pageURL}, nil
}

func TestBatchScraper(t *testing.T) {
	fetcher := &mockFetcher{}
	batch := New(fetcher, 2)

	urls := []string{
		"https://a.example/1",
		"https://a.example/2",
		"https://a.example/3",
		"https://a.example/error",
	}

	results := batch.ScrapeBatch(context.Background(), urls)

	count := 0
	errs := 0
	for res := range results {
		count++
		if res.Error != nil {
			errs++
			continue
		}
		require.NotNil(t, res.Detail)
		require.Equal(t, res.URL, res.Detail.URL)
	}

	require.Equal(t, 4, count)
	require.Equal(t, 1, errs)
	require.LessOrEqual(t, fetcher.peak.Load(), int32(2), "at most 2 concurrent fetches")
}

func TestCollect_KeepsInputOrder(t *testing.T) {
	batch := New(&mockFetcher{}, 4)

	var urls []string
	for i := 0; i < 10; i++ {
		urls = append(urls, fmt.Sprintf("https://a.example/%d", i))
	}
	urls = append(urls, urls[0])

	var seen int
	results := batch.Collect(context.Background(), urls, func(models.DetailResult) { seen++ })

	require.Len(t, results, len(urls))
	require.Equal(t, len(urls), seen)
	for i, res := range results {
		require.Equal(t, urls[i], res.URL, "result %d", i)
	}
}

func TestScrapeBatch_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := New(&mockFetcher{}, 1).Collect(ctx, []string{"https://a.example/1", "https://a.example/2"}, nil)

	for _, res := range results {
		require.ErrorIs(t, res.Error, context.Canceled, res.URL)
	}
}

func TestGroupByHost(t *testing.T) {
	groups := GroupByHost([]string{"https://a.example/1", "https://b.example/1", "https://a.example/2", "::bad"})

	require.Len(t, groups["a.example"], 2)
	require.Len(t, groups["b.example"], 1)
	require.Len(t, groups["default"], 1)
}

func TestOptimalConcurrency(t *testing.T) {
	c := OptimalConcurrency()
	require.GreaterOrEqual(t, c, 2)
	require.LessOrEqual(t, c, MaxConcurrency)
	require.Equal(t, OptimalConcurrency(), New(&mockFetcher{}, 0).Concurrency(), "zero concurrency auto-tunes")
}
