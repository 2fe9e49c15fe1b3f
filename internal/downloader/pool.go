// internal/downloader/pool.go
package downloader

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// WorkerPool downloads many files with a bounded number of workers
type WorkerPool struct {
	downloader  *Downloader
	concurrency int
}

// NewWorkerPool creates a new worker pool with specified concurrency
func NewWorkerPool(d *Downloader, concurrency int) *WorkerPool {
	if concurrency <= 0 {
		concurrency = 4
	}
	if concurrency > 16 {
		concurrency = 16
	}

	return &WorkerPool{
		downloader:  d,
		concurrency: concurrency,
	}
}

// DownloadBatch downloads every URL and returns one result per URL in input
// order. URLs not started before ctx is cancelled report ctx's error.
func (wp *WorkerPool) DownloadBatch(ctx context.Context, urls []string, opts DownloadOptions) []*DownloadResult {
	results := make([]*DownloadResult, len(urls))
	if len(urls) == 0 {
		return results
	}

	jobs := make(chan int, len(urls))
	for i := range urls {
		jobs <- i
	}
	close(jobs)

	var wg sync.WaitGroup
	for w := 1; w <= wp.concurrency; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			wp.worker(ctx, id, urls, jobs, results, opts)
		}(w)
	}
	wg.Wait()

	return results
}

// worker processes download jobs; each slot of results is written by
// exactly one worker
func (wp *WorkerPool) worker(ctx context.Context, id int, urls []string, jobs <-chan int, results []*DownloadResult, opts DownloadOptions) {
	log.Debug().Int("worker_id", id).Msg("Worker started")

	for i := range jobs {
		if err := ctx.Err(); err != nil {
			results[i] = &DownloadResult{URL: urls[i], Error: err}
			continue
		}

		log.Debug().
			Int("worker_id", id).
			Str("url", urls[i]).
			Msg("Worker processing download")

		results[i] = wp.downloader.Download(ctx, urls[i], opts)
	}

	log.Debug().Int("worker_id", id).Msg("Worker finished")
}
