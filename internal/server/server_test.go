package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/law-makers/quake/internal/cache"
	"github.com/law-makers/quake/internal/engine"
	"github.com/law-makers/quake/internal/ratelimit"
	"github.com/law-makers/quake/pkg/models"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	latestErr  error
	detailsErr error
	latestHits atomic.Int32
	lastURL    atomic.Value
	// ctx.Err() seen by the last upstream call, "" when still live
	ctxErr atomic.Value
}

func (f *fakeSource) observe(ctx context.Context) {
	state := ""
	if err := ctx.Err(); err != nil {
		state = err.Error()
	}
	f.ctxErr.Store(state)
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) FetchLatest(ctx context.Context) (*models.EarthquakeList, error) {
	f.latestHits.Add(1)
	f.observe(ctx)
	if f.latestErr != nil {
		return nil, f.latestErr
	}
	href := "https://earthquake.phivolcs.dost.gov.ph/2025_Earthquake_Information/November/q1.html"
	return &models.EarthquakeList{Count: 2, Data: []models.EarthquakeSummary{
		{Date: "27 November 2025 - 10:04 AM", Magnitude: 2.1, Latitude: 14.2, Longitude: 121.1, Depth: "010",
			Location: "005 km N 45° W of Manila (Metro Manila)", DetailsURL: &href},
		{Date: "27 November 2025 - 09:15 AM", Magnitude: 4, Latitude: 9.83, Longitude: 126.31, Depth: "021",
			Location: "022 km S 72° E of General Luna (Surigao Del Norte)"},
	}}, nil
}

func (f *fakeSource) FetchDetails(ctx context.Context, pageURL string) (*models.EarthquakeDetail, error) {
	f.lastURL.Store(pageURL)
	f.observe(ctx)
	if f.detailsErr != nil {
		return nil, f.detailsErr
	}
	mag := "Ms 2.1"
	return &models.EarthquakeDetail{URL: pageURL, Magnitude: &mag}, nil
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	server *Server
	source *fakeSource
	clock  *clock
}

func newFixture(t *testing.T, latestMax, detailsMax int, c cache.Cache, ttl time.Duration) *fixture {
	t.Helper()
	clk := &clock{now: time.Date(2025, 11, 27, 2, 0, 0, 0, time.UTC)}
	src := &fakeSource{}
	lim := ratelimit.NewWindowLimiter(nil, ratelimit.WithClock(clk.Now))

	srv := New(src, lim, c, Options{
		LatestPolicy:  ratelimit.Policy{Window: 5 * time.Minute, MaxRequests: latestMax},
		DetailsPolicy: ratelimit.Policy{Window: 5 * time.Minute, MaxRequests: detailsMax},
		CacheTTL:      ttl,
		Now:           clk.Now,
	})
	return &fixture{server: srv, source: src, clock: clk}
}

func (f *fixture) get(target string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestLatest_Success(t *testing.T) {
	f := newFixture(t, 20, 30, nil, 0)

	rec := f.get(PathLatest)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.Equal(t, "20", rec.Header().Get("X-RateLimit-Limit"))
	require.Equal(t, "19", rec.Header().Get("X-RateLimit-Remaining"))
	reset := f.clock.Now().Add(5 * time.Minute).UnixMilli()
	require.Equal(t, strconv.FormatInt(reset, 10), rec.Header().Get("X-RateLimit-Reset"))
	require.Empty(t, rec.Header().Get("X-Cache"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.EqualValues(t, 2, body["count"])

	data := body["data"].([]interface{})
	first := data[0].(map[string]interface{})
	require.Equal(t, "27 November 2025 - 10:04 AM", first["date"])
	require.Equal(t, "010", first["depth"])
	require.NotNil(t, first["detailsUrl"])
	second := data[1].(map[string]interface{})
	v, present := second["detailsUrl"]
	require.True(t, present)
	require.Nil(t, v)
}

func TestLatest_RateLimited(t *testing.T) {
	f := newFixture(t, 2, 30, nil, 0)
	ip := []string{"X-Forwarded-For", "203.0.113.7, 10.0.0.1"}

	require.Equal(t, http.StatusOK, f.get(PathLatest, ip...).Code)
	require.Equal(t, http.StatusOK, f.get(PathLatest, ip...).Code)

	f.clock.Advance(90*time.Second + 500*time.Millisecond)
	rec := f.get(PathLatest, ip...)

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "210", rec.Header().Get("Retry-After"))
	require.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	require.Equal(t, int32(2), f.source.latestHits.Load(), "rejected request must not reach upstream")

	var body RateLimitBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "Too many requests", body.Error)
	require.Equal(t, "Rate limit exceeded. Please try again in 210 seconds.", body.Message)
	require.Equal(t, 2, body.Limit)
	require.Equal(t, 0, body.Remaining)
	require.Equal(t, "2025-11-27T02:05:00.000Z", body.ResetAt)

	// other clients and other endpoints are unaffected
	require.Equal(t, http.StatusOK, f.get(PathLatest, "X-Real-IP", "198.51.100.1").Code)
	require.Equal(t, http.StatusOK, f.get(PathDetails+"?url=https://example.com/q.html", ip...).Code)

	// a new window opens after the reset instant
	f.clock.Advance(210 * time.Second)
	require.Equal(t, http.StatusOK, f.get(PathLatest, ip...).Code)
}

func TestLatest_UpstreamFailure(t *testing.T) {
	f := newFixture(t, 20, 30, nil, 0)
	f.source.latestErr = engine.NewEngineError(engine.ErrCodeUpstreamStatus, "upstream answered 503", engine.ErrUpstreamStatus)

	rec := f.get(PathLatest)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.JSONEq(t, `{"error":"Failed to fetch PHIVOLCS data"}`, rec.Body.String())
	require.Equal(t, "19", rec.Header().Get("X-RateLimit-Remaining"))
}

func TestLatest_Cache(t *testing.T) {
	mc := cache.NewMemoryCache(0)
	t.Cleanup(mc.Close)
	f := newFixture(t, 20, 30, mc, time.Minute)

	first := f.get(PathLatest)
	require.Equal(t, "MISS", first.Header().Get("X-Cache"))

	second := f.get(PathLatest)
	require.Equal(t, "HIT", second.Header().Get("X-Cache"))
	require.Equal(t, first.Body.String(), second.Body.String())
	require.Equal(t, int32(1), f.source.latestHits.Load())
	require.Equal(t, "18", second.Header().Get("X-RateLimit-Remaining"), "cached responses still count")
}

func TestDetails(t *testing.T) {
	f := newFixture(t, 20, 30, nil, 0)

	target := "https://earthquake.phivolcs.dost.gov.ph/2025_Earthquake_Information/November/q1.html"
	rec := f.get(PathDetails + "?url=" + target)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "30", rec.Header().Get("X-RateLimit-Limit"))
	require.Equal(t, target, f.source.lastURL.Load())

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, target, body["url"])
	require.Equal(t, "Ms 2.1", body["magnitude"])
	require.Contains(t, body, "expectingAftershocks")
	require.Nil(t, body["expectingAftershocks"])
}

func TestDetails_BadRequests(t *testing.T) {
	f := newFixture(t, 20, 30, nil, 0)

	rec := f.get(PathDetails)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.JSONEq(t, `{"error":"Missing url parameter"}`, rec.Body.String())
	require.Equal(t, "29", rec.Header().Get("X-RateLimit-Remaining"))

	rec = f.get(PathDetails + "?url=/relative/q1.html")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.JSONEq(t, `{"error":"Invalid url parameter"}`, rec.Body.String())
	require.Nil(t, f.source.lastURL.Load())
}

func TestDetails_RateLimitCheckedFirst(t *testing.T) {
	f := newFixture(t, 20, 1, nil, 0)

	require.Equal(t, http.StatusBadRequest, f.get(PathDetails).Code)
	require.Equal(t, http.StatusTooManyRequests, f.get(PathDetails).Code)
}

func TestDetails_UpstreamFailureIsNotEchoed(t *testing.T) {
	f := newFixture(t, 20, 30, nil, 0)
	f.source.detailsErr = errors.New("dial tcp 10.0.0.1:443: connection refused")

	rec := f.get(PathDetails + "?url=https://example.com/q.html")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.JSONEq(t, `{"error":"Failed to fetch details"}`, rec.Body.String())
}

func TestRequestID(t *testing.T) {
	f := newFixture(t, 20, 30, nil, 0)

	rec := f.get(PathHealth)
	_, err := uuid.Parse(rec.Header().Get(RequestIDHeader))
	require.NoError(t, err)

	rec = f.get(PathHealth, RequestIDHeader, "client-id-1")
	require.Equal(t, "client-id-1", rec.Header().Get(RequestIDHeader))
}

func TestHealth(t *testing.T) {
	mc := cache.NewMemoryCache(0)
	t.Cleanup(mc.Close)
	f := newFixture(t, 20, 30, mc, time.Minute)
	f.clock.Advance(90 * time.Second)

	rec := f.get(PathHealth)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, rec.Header().Get("X-RateLimit-Limit"))

	var body HealthBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "ok", body.Status)
	require.Equal(t, "fake", body.Source)
	require.Equal(t, "1m30s", body.Uptime)
	require.NotNil(t, body.Cache)
}

func TestCORSAndRouting(t *testing.T) {
	f := newFixture(t, 20, 30, nil, 0)

	req := httptest.NewRequest(http.MethodOptions, PathLatest, nil)
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	require.Equal(t, http.StatusNotFound, f.get("/api/unknown").Code)

	req = httptest.NewRequest(http.MethodPost, PathLatest, nil)
	rec = httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRecovery(t *testing.T) {
	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}), Recovery, RequestID)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRetryAfterSeconds(t *testing.T) {
	now := time.Unix(0, 0)
	require.Equal(t, 1, retryAfterSeconds(now.Add(time.Millisecond), now))
	require.Equal(t, 300, retryAfterSeconds(now.Add(5*time.Minute), now))
	require.Equal(t, 0, retryAfterSeconds(now.Add(-time.Second), now))
}

func TestServeAndShutdown(t *testing.T) {
	f := newFixture(t, 20, 30, nil, 0)
	ts := httptest.NewUnstartedServer(nil)
	ln := ts.Listener

	errCh := make(chan error, 1)
	go func() { errCh <- f.server.Serve(ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + PathHealth)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, f.server.Shutdown(ctx))
	require.NoError(t, <-errCh)
}

func TestUpstreamFetch_OutlivesAbandonedRequest(t *testing.T) {
	f := newFixture(t, 20, 30, nil, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, target := range []string{
		PathLatest,
		PathDetails + "?url=https://earthquake.phivolcs.dost.gov.ph/q1.html",
	} {
		req := httptest.NewRequest(http.MethodGet, target, nil).WithContext(ctx)
		rec := httptest.NewRecorder()
		f.server.Handler().ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, target)
		require.Equal(t, "", f.source.ctxErr.Load(), target)
	}
}

// failLevel returns the level of the handler's failure line in logs
func failLevel(t *testing.T, logs *bytes.Buffer) string {
	t.Helper()
	for _, line := range bytes.Split(logs.Bytes(), []byte("\n")) {
		var entry map[string]interface{}
		if json.Unmarshal(line, &entry) != nil || entry["message"] != "Failed to fetch PHIVOLCS data" {
			continue
		}
		return entry["level"].(string)
	}
	t.Fatalf("no failure line in logs:\n%s", logs.String())
	return ""
}

func TestFail_LogLevelByErrorKind(t *testing.T) {
	var buf bytes.Buffer
	logger := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = logger })

	f := newFixture(t, 20, 30, nil, 0)

	f.source.latestErr = engine.NewEngineError(engine.ErrCodeUpstreamStatus, "upstream answered 503", engine.ErrUpstreamStatus)
	require.Equal(t, http.StatusInternalServerError, f.get(PathLatest).Code)
	require.Equal(t, "warn", failLevel(t, &buf))
	require.Contains(t, buf.String(), `"code":"UPSTREAM_STATUS"`)

	buf.Reset()
	f.source.latestErr = errors.New("encoder exploded")
	require.Equal(t, http.StatusInternalServerError, f.get(PathLatest).Code)
	require.Equal(t, "error", failLevel(t, &buf))
}
