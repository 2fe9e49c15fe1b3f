package downloader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/law-makers/quake/internal/retry"
	"github.com/stretchr/testify/require"
)

func TestDownload_Success(t *testing.T) {
	content := "\xff\xd8\xff map"
	var gotUA string
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte(content))
	}))
	defer server.Close()

	tempDir := t.TempDir()
	dl := NewDownloader(server.Client(), "Test/1.0")

	result := dl.Download(context.Background(), server.URL+"/2025_Earthquake_Information/November/q1.jpg", DownloadOptions{
		OutputDir:  tempDir,
		ImagesOnly: true,
	})

	require.True(t, result.Success, "download failed: %v", result.Error)
	require.Equal(t, "q1.jpg", filepath.Base(result.FilePath))
	require.Equal(t, "Test/1.0", gotUA)

	data, err := os.ReadFile(result.FilePath)
	require.NoError(t, err)
	require.Equal(t, content, string(data))
}

func TestDownload_Failures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/page.html":
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte("<html></html>"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	dl := NewDownloader(nil, "")
	opts := DownloadOptions{OutputDir: t.TempDir(), ImagesOnly: true}

	for _, u := range []string{server.URL + "/missing.jpg", server.URL + "/page.html", "not a url"} {
		result := dl.Download(context.Background(), u, opts)
		require.False(t, result.Success, u)
		require.Error(t, result.Error, u)
		if result.FilePath != "" {
			require.NoFileExists(t, result.FilePath, "%s: no file is left behind", u)
		}
	}
}

func TestDownload_RetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("png"))
	}))
	defer server.Close()

	dl := NewDownloader(server.Client(), "")
	dl.SetRetry(retry.Policy{Attempts: 3, Backoff: time.Millisecond, RetryableStatus: []int{http.StatusServiceUnavailable}})

	result := dl.Download(context.Background(), server.URL+"/map.png", DownloadOptions{OutputDir: t.TempDir(), ImagesOnly: true})
	require.True(t, result.Success, "download failed: %v", result.Error)
	require.EqualValues(t, 2, calls.Load())
}

func TestSanitizeFilename_Security(t *testing.T) {
	dangerous := []string{
		"../../etc/passwd",
		"/etc/shadow",
		"file:with:colons",
		"..",
	}

	for _, input := range dangerous {
		t.Run(input, func(t *testing.T) {
			result := sanitizeFilename(input, nil)
			require.NotEmpty(t, result)
			require.NotContains(t, result, "/")
			require.NotContains(t, result, "\\")
			require.NotContains(t, result, "..")
		})
	}
}

func TestSanitizeFilename_QueryHash(t *testing.T) {
	u, err := url.Parse("https://example.com/maps/q1.jpg?v=2")
	require.NoError(t, err)

	name := sanitizeFilename(u.String(), u)
	require.True(t, strings.HasPrefix(name, "q1_"), name)
	require.True(t, strings.HasSuffix(name, ".jpg"), name)
	require.Equal(t, name, sanitizeFilename(u.String(), u), "hash is stable")
}

func TestWorkerPool_Concurrency(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(10 * time.Millisecond)
		w.Write([]byte("data"))
	}))
	defer server.Close()

	tempDir := t.TempDir()
	urls := []string{
		server.URL + "/1.jpg",
		server.URL + "/2.jpg",
		server.URL + "/3.jpg",
	}

	pool := NewWorkerPool(NewDownloader(server.Client(), "Test/1.0"), 2)

	results := pool.DownloadBatch(context.Background(), urls, DownloadOptions{
		OutputDir: tempDir,
	})

	require.Len(t, results, len(urls))
	for i, result := range results {
		require.Equal(t, urls[i], result.URL, "result %d out of order", i)
		require.True(t, result.Success, "download %s failed: %v", result.URL, result.Error)
	}
}

func TestWorkerPool_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := NewWorkerPool(NewDownloader(nil, ""), 2).DownloadBatch(ctx, []string{"https://a.example/1.jpg"}, DownloadOptions{OutputDir: t.TempDir()})
	require.NotNil(t, results[0])
	require.Error(t, results[0].Error)
}

func BenchmarkSanitizeFilename(b *testing.B) {
	input := "https://example.com/path/to/map.jpg?query=param"
	u, _ := url.Parse(input)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		sanitizeFilename(input, u)
	}
}
