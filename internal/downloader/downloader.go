// internal/downloader/downloader.go
package downloader

import (
	"context"
	"fmt"
	"hash/fnv"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/law-makers/quake/internal/retry"
	"github.com/rs/zerolog/log"
)

// DownloadResult represents the result of a download operation
type DownloadResult struct {
	URL       string
	FilePath  string
	Size      int64
	Success   bool
	Error     error
	StartTime time.Time
	Duration  time.Duration
}

// DownloadOptions configures the download behavior
type DownloadOptions struct {
	OutputDir string
	Filename  string
	// ImagesOnly rejects responses whose Content-Type is set and not image/*
	ImagesOnly bool
	Headers    http.Header
}

// Downloader streams remote files (bulletin map images) to disk
type Downloader struct {
	client    *http.Client
	userAgent string
	retry     retry.Policy
}

// NewDownloader creates a Downloader on top of client, which should be the
// upstream fetcher's client so the same TLS and proxy policy applies
func NewDownloader(client *http.Client, userAgent string) *Downloader {
	if client == nil {
		client = http.DefaultClient
	}
	if userAgent == "" {
		userAgent = "Mozilla/5.0"
	}
	return &Downloader{
		client:    client,
		userAgent: userAgent,
		retry:     retry.DefaultPolicy(),
	}
}

// SetRetry replaces the retry policy used for each download
func (d *Downloader) SetRetry(p retry.Policy) {
	d.retry = p
}

// Download downloads a single file with streaming I/O
func (d *Downloader) Download(ctx context.Context, fileURL string, opts DownloadOptions) *DownloadResult {
	result := &DownloadResult{
		URL:       fileURL,
		StartTime: time.Now(),
	}
	fail := func(err error) *DownloadResult {
		result.Error = err
		result.Duration = time.Since(result.StartTime)
		return result
	}

	parsed, err := url.Parse(fileURL)
	if err != nil || parsed.Host == "" {
		return fail(fmt.Errorf("invalid URL %q", fileURL))
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return fail(fmt.Errorf("failed to create output directory: %w", err))
	}

	filename := opts.Filename
	if filename == "" {
		filename = sanitizeFilename(fileURL, parsed)
	} else {
		filename = sanitizeFilename(filename, nil)
	}

	filePath := filepath.Join(opts.OutputDir, filename)
	result.FilePath = filePath

	var bytesWritten int64
	err = retry.Do(ctx, d.retry, func() error {
		n, err := d.fetch(ctx, fileURL, filePath, opts)
		bytesWritten = n
		return err
	})
	if err != nil {
		return fail(err)
	}

	result.Size = bytesWritten
	result.Success = true
	result.Duration = time.Since(result.StartTime)

	log.Debug().
		Str("url", fileURL).
		Str("file", filePath).
		Int64("bytes", bytesWritten).
		Dur("duration", result.Duration).
		Msg("Download completed")

	return result
}

// fetch performs one download attempt. Failures that another attempt
// cannot fix are marked permanent; a partial file is removed.
func (d *Downloader) fetch(ctx context.Context, fileURL, filePath string, opts DownloadOptions) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return 0, retry.Permanent(fmt.Errorf("failed to create request: %w", err))
	}

	req.Header.Set("User-Agent", d.userAgent)
	for key, values := range opts.Headers {
		req.Header.Del(key)
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, &retry.StatusError{Code: resp.StatusCode, Status: resp.Status}
	}

	if ct := resp.Header.Get("Content-Type"); opts.ImagesOnly && ct != "" {
		if mediaType, _, err := mime.ParseMediaType(ct); err != nil || !strings.HasPrefix(mediaType, "image/") {
			return 0, retry.Permanent(fmt.Errorf("not an image: %s", ct))
		}
	}

	outFile, err := os.Create(filePath)
	if err != nil {
		return 0, retry.Permanent(fmt.Errorf("failed to create file: %w", err))
	}
	defer outFile.Close()

	n, err := io.Copy(outFile, resp.Body)
	if err != nil {
		os.Remove(filePath)
		return 0, fmt.Errorf("failed to write file: %w", err)
	}
	return n, nil
}

// sanitizeFilename prevents path traversal. When u is set the name is taken
// from its last path segment, with a hash of the query to keep names unique.
func sanitizeFilename(input string, u *url.URL) string {
	var queryHash string
	if u != nil {
		input = u.Path[strings.LastIndex(u.Path, "/")+1:]
		if u.RawQuery != "" {
			queryHash = "_" + hashString(u.RawQuery)
		}
	}

	replacer := strings.NewReplacer(
		"/", "_", "\\", "_", "..", "_", ":", "_", "*", "_",
		"?", "_", "\"", "_", "<", "_", ">", "_", "|", "_",
	)
	input = replacer.Replace(input)
	input = strings.Trim(strings.TrimSpace(input), ".")

	if queryHash != "" {
		ext := filepath.Ext(input)
		input = strings.TrimSuffix(input, ext) + queryHash + ext
	}

	if input == "" {
		input = fmt.Sprintf("download_%d", time.Now().UnixNano())
	}
	if len(input) > 200 {
		input = input[:200]
	}

	return input
}

// hashString returns a short stable hash for unique filenames
func hashString(s string) string {
	h := fnv.New32a()
	h.Write([]byte(s))
	return fmt.Sprintf("%08x", h.Sum32())
}
