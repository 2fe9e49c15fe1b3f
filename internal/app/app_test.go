package app

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/law-makers/quake/internal/config"
	"github.com/law-makers/quake/internal/server"
	"github.com/stretchr/testify/require"
)

func TestNew_RequiresConfig(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
}

func TestNew_RejectsBadProxyList(t *testing.T) {
	cfg := config.Default()
	cfg.Proxy = "::not a proxy"

	_, err := New(cfg)
	require.Error(t, err)
}

func TestServer_WiresLimiterAndCache(t *testing.T) {
	cfg := config.Default()
	cfg.LogLevel = "error"
	cfg.LatestLimit = 1
	cfg.CacheTTL = 0
	// unreachable Redis falls back to the memory store
	cfg.RedisAddr = "127.0.0.1:1"

	a, err := New(cfg)
	require.NoError(t, err)

	srv, err := a.Server(context.Background())
	require.NoError(t, err)

	_, err = a.Server(context.Background())
	require.Error(t, err, "only one server per application")

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, server.PathHealth, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	// the limiter is exercised before any upstream call
	req := httptest.NewRequest(http.MethodGet, server.PathDetails, nil)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "30", rec.Header().Get("X-RateLimit-Limit"))

	require.NoError(t, a.Close(context.Background()))
}

const bulletinHTML = `<html><body><table>
<tr><td>Date/Time:</td><td>27 Nov 2025 - 10:04 AM</td></tr>
<tr><td>Magnitude:</td><td>Ms 2.1</td></tr>
</table></body></html>`

func newBulletinServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(bulletinHTML))
	}))
	t.Cleanup(server.Close)
	return server
}

func newThrottledApp(t *testing.T, rps float64, burst int) *Application {
	t.Helper()
	cfg := config.Default()
	cfg.LogLevel = "error"
	cfg.UpstreamRPS = rps
	cfg.UpstreamBurst = burst

	a, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close(context.Background()) })
	return a
}

func TestBatch(t *testing.T) {
	a := newThrottledApp(t, config.DefaultUpstreamRPS, config.DefaultUpstreamBurst)

	require.Equal(t, 3, a.Batch(3).Concurrency())
	require.Same(t, a.Fetcher.Client(), a.HTTPClient())
	require.NotNil(t, a.Upstream)
}

func TestBatch_WaitsOnUpstreamLimiter(t *testing.T) {
	upstream := newBulletinServer(t)
	a := newThrottledApp(t, 20, 1)

	urls := make([]string, 5)
	for i := range urls {
		urls[i] = fmt.Sprintf("%s/q%d.html", upstream.URL, i)
	}

	start := time.Now()
	results := a.Batch(5).Collect(context.Background(), urls, nil)
	elapsed := time.Since(start)

	require.Len(t, results, 5)
	for _, res := range results {
		require.NoError(t, res.Error, res.URL)
	}
	// one token up front, then one every 50ms
	require.GreaterOrEqual(t, elapsed, 150*time.Millisecond)
}

func TestNew_ZeroUpstreamRateDisablesLimiter(t *testing.T) {
	a := newThrottledApp(t, 0, 0)
	require.Nil(t, a.Upstream)
	require.Equal(t, 2, a.Batch(2).Concurrency())
}

func TestServer_DistinctClientsAreNotSerialized(t *testing.T) {
	upstream := newBulletinServer(t)
	// a batch limiter this tight would take 19s for 20 fetches
	a := newThrottledApp(t, 1, 1)

	srv, err := a.Server(context.Background())
	require.NoError(t, err)

	const clients = 20
	codes := make([]int, clients)
	var wg sync.WaitGroup

	start := time.Now()
	for i := range clients {
		wg.Add(1)
		go func() {
			defer wg.Done()
			target := server.PathDetails + "?url=" + upstream.URL + "/q1.html"
			req := httptest.NewRequest(http.MethodGet, target, nil)
			req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i+1))
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, req)
			codes[i] = rec.Code
		}()
	}
	wg.Wait()

	for i, code := range codes {
		require.Equal(t, http.StatusOK, code, "client %d", i)
	}
	require.Less(t, time.Since(start), 3*time.Second)
}
