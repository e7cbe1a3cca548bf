package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	server "github.com/armieahmed7/halalcities-sub003/internal/adapters/http_server"
	"github.com/armieahmed7/halalcities-sub003/internal/adapters/observability"
	redisad "github.com/armieahmed7/halalcities-sub003/internal/adapters/redis"
	"github.com/armieahmed7/halalcities-sub003/internal/app"
	"github.com/armieahmed7/halalcities-sub003/internal/catalog"
	"github.com/armieahmed7/halalcities-sub003/internal/domain"
)

type stack struct {
	ts      *httptest.Server
	mr      *miniredis.Miniredis
	tracker *app.Tracker
	store   *redisad.TrackingStore
}

// newStack wires the API the way cmd/api does, against the embedded seed
// catalog and an in-process redis.
func newStack(t *testing.T) *stack {
	t.Helper()
	snap, err := catalog.LoadFile("")
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rc.Close() })

	cache := redisad.NewFromClient(rc)
	store := redisad.NewTrackingStore(rc)
	tracker := app.NewTracker(store, 8, time.Second)
	now := func() time.Time { return time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC) }

	srv := server.New(server.Options{})
	srv.Mount("/metrics", observability.MetricsHandler(observability.InitRegistry()))
	srv.MountHandlers(&server.Handlers{
		Q: app.NewQueryService(snap, cache, 15*time.Minute, 500),
		L: app.NewListingService(snap, store, now),
		T: tracker,
	})
	ts := httptest.NewServer(srv.Mux())
	t.Cleanup(ts.Close)
	t.Cleanup(tracker.Close)
	return &stack{ts: ts, mr: mr, tracker: tracker, store: store}
}

func (s *stack) get(t *testing.T, path string, dst any) int {
	t.Helper()
	res, err := http.Get(s.ts.URL + path)
	require.NoError(t, err)
	defer res.Body.Close()
	if dst != nil && res.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(res.Body).Decode(dst))
	}
	return res.StatusCode
}

func (s *stack) post(t *testing.T, path, body string) int {
	t.Helper()
	res, err := http.Post(s.ts.URL+path, "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, res.Body)
	return res.StatusCode
}

func TestHTTP_EndToEnd_CitiesAreCached(t *testing.T) {
	s := newStack(t)

	var page domain.CitiesPage
	require.Equal(t, http.StatusOK, s.get(t, "/api/cities?limit=3", &page))
	assert.Equal(t, 12, page.Total)
	require.Len(t, page.Cities, 3)
	assert.Equal(t, "kuala-lumpur", page.Cities[0].Slug) // overall 92
	assert.Equal(t, "istanbul", page.Cities[1].Slug)     // overall 91
	assert.True(t, page.HasMore)

	keys := s.mr.Keys()
	require.Len(t, keys, 1)
	assert.True(t, strings.HasPrefix(keys[0], "cities:"))

	var again domain.CitiesPage
	require.Equal(t, http.StatusOK, s.get(t, "/api/cities?limit=3", &again))
	assert.Equal(t, page, again)

	var detail domain.CityDetail
	require.Equal(t, http.StatusOK, s.get(t, "/api/cities/istanbul", &detail))
	assert.Equal(t, "Turkey", detail.Country)
	assert.NotEmpty(t, detail.Mosques)
	assert.Equal(t, http.StatusNotFound, s.get(t, "/api/cities/atlantis", nil))
}

func TestHTTP_EndToEnd_SponsoredTracking(t *testing.T) {
	s := newStack(t)

	var p app.Placement
	require.Equal(t, http.StatusOK, s.get(t, "/api/sponsored?city=istanbul", &p))
	require.Len(t, p.Listings, 3)
	assert.Equal(t, domain.TierElite, p.Listings[0].Tier)
	assert.Equal(t, domain.TierPremium, p.Listings[1].Tier)
	assert.Equal(t, domain.TierBasic, p.Listings[2].Tier)

	// inactive london elite listing never shows
	require.Equal(t, http.StatusOK, s.get(t, "/api/sponsored?city=london", &p))
	for _, l := range p.Listings {
		assert.NotEqual(t, "sp-lon-2", l.ID)
	}

	var before domain.ListingStats
	require.Equal(t, http.StatusOK, s.get(t, "/api/sponsored/sp-ist-1/stats", &before))

	for i := 0; i < 4; i++ {
		require.Equal(t, http.StatusOK, s.post(t, "/api/sponsored/impression", `{"listingId":"sp-ist-1"}`))
	}
	require.Equal(t, http.StatusOK, s.post(t, "/api/sponsored/click", `{"listingId":"sp-ist-1"}`))
	require.Equal(t, http.StatusOK, s.post(t, "/api/analytics/affiliate-click",
		`{"partner":"booking","category":"hotels","city":"Istanbul","country":"Turkey"}`))
	require.Equal(t, http.StatusBadRequest, s.post(t, "/api/sponsored/click", `{}`))

	// recording is asynchronous; poll until the counters land
	require.Eventually(t, func() bool {
		var st domain.ListingStats
		s.get(t, "/api/sponsored/sp-ist-1/stats", &st)
		return st.Impressions == before.Impressions+4 && st.Clicks == before.Clicks+1
	}, 2*time.Second, 20*time.Millisecond)

	require.Eventually(t, func() bool {
		clicks, err := s.store.RecentAffiliateClicks(context.Background(), 10)
		return err == nil && len(clicks) == 1
	}, 2*time.Second, 20*time.Millisecond)
}

func TestHTTP_EndToEnd_Metrics(t *testing.T) {
	s := newStack(t)
	s.get(t, "/api/cities", nil)

	res, err := http.Get(s.ts.URL + "/metrics")
	require.NoError(t, err)
	defer res.Body.Close()
	body, _ := io.ReadAll(res.Body)
	assert.Contains(t, string(body), `halalcities_http_requests_total{method="GET",route="/api/cities",status="200"}`)
	assert.Contains(t, string(body), "halalcities_cache_events_total")
}
