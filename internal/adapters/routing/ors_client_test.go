package routing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
	"vehicle-sync-service/internal/domain"
	"vehicle-sync-service/internal/platform/httpclient"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const directionsBody = `{
  "features": [{
    "geometry": {"coordinates": [[0,0],[0.5,0],[1,0],[1,0.5],[1,1]]},
    "properties": {
      "segments": [{"distance": 1200.4, "duration": 90.6}, {"distance": 800.5, "duration": 60.2}],
      "way_points": [0, 2, 4]
    }
  }]
}`

func TestGetRouteForWaypointsSplitsSegments(t *testing.T) {
	var got directionsRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/directions/driving-car/geojson", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(directionsBody))
	}))
	defer srv.Close()

	c, err := NewORSClient("key", WithBaseURL(srv.URL))
	require.NoError(t, err)

	points := []domain.Coordinates{{Lon: 0, Lat: 0}, {Lon: 1, Lat: 0}, {Lon: 1, Lat: 1}}
	routes, err := c.GetRouteForWaypoints(context.Background(), points)
	require.NoError(t, err)

	assert.Equal(t, [][]float64{{0, 0}, {1, 0}, {1, 1}}, got.Coordinates)

	require.Len(t, routes, 2)
	assert.Equal(t, 1200, routes[0].DistanceMeters)
	assert.Equal(t, 91*time.Second, routes[0].Duration)
	assert.Equal(t, []domain.Coordinates{{Lon: 0, Lat: 0}, {Lon: 0.5, Lat: 0}, {Lon: 1, Lat: 0}}, routes[0].Polyline)
	assert.Equal(t, 801, routes[1].DistanceMeters)
	assert.Equal(t, []domain.Coordinates{{Lon: 1, Lat: 0}, {Lon: 1, Lat: 0.5}, {Lon: 1, Lat: 1}}, routes[1].Polyline)
}

func TestGetRouteForWaypointsRejectsSegmentMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(directionsBody))
	}))
	defer srv.Close()

	c, err := NewORSClient("key", WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = c.GetRouteForWaypoints(context.Background(), []domain.Coordinates{{}, {Lon: 1}})
	assert.ErrorContains(t, err, "expected 1 segments, got 2")
}

func TestGetRouteForWaypointsNeedsTwoPoints(t *testing.T) {
	c, err := NewORSClient("key")
	require.NoError(t, err)

	_, err = c.GetRouteForWaypoints(context.Background(), []domain.Coordinates{{}})
	assert.Error(t, err)
}

func TestNewORSClientRequiresKey(t *testing.T) {
	_, err := NewORSClient("")
	assert.Error(t, err)
}

type memGeocodeCache struct {
	mu sync.Mutex
	m  map[domain.GeocodeKey]domain.Coordinates
}

func (c *memGeocodeCache) Lookup(_ context.Context, key domain.GeocodeKey) (domain.Coordinates, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.m[key]
	return v, ok, nil
}

func (c *memGeocodeCache) Store(_ context.Context, key domain.GeocodeKey, at domain.Coordinates) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = at
	return nil
}

func TestGeocodeUsesCacheAfterFirstLookup(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "/geocode/search", r.URL.Path)
		assert.Equal(t, "1 Main St", r.URL.Query().Get("text"))
		assert.Equal(t, "US", r.URL.Query().Get("boundary.country"))
		_, _ = w.Write([]byte(`{"features":[{"geometry":{"coordinates":[-122.4,37.7]}}]}`))
	}))
	defer srv.Close()

	cache := &memGeocodeCache{m: map[domain.GeocodeKey]domain.Coordinates{}}
	c, err := NewORSClient("key", WithBaseURL(srv.URL), WithGeocodeCache(cache))
	require.NoError(t, err)

	for _, typed := range []string{"  1   Main St ", "1 MAIN ST"} {
		got, err := c.Geocode(context.Background(), typed)
		require.NoError(t, err)
		assert.Equal(t, domain.Coordinates{Lon: -122.4, Lat: 37.7}, got)
	}
	assert.Equal(t, 1, calls)
	assert.Contains(t, cache.m, domain.NewGeocodeKey("US", "1 main st"))
}

func TestGeocodeCacheIsScopedToCountry(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "CA", r.URL.Query().Get("boundary.country"))
		_, _ = w.Write([]byte(`{"features":[{"geometry":{"coordinates":[-79.4,43.6]}}]}`))
	}))
	defer srv.Close()

	// An entry resolved under a US-bounded search must not answer a CA one.
	cache := &memGeocodeCache{m: map[domain.GeocodeKey]domain.Coordinates{
		domain.NewGeocodeKey("US", "1 Main St"): {Lon: -122.4, Lat: 37.7},
	}}
	c, err := NewORSClient("key", WithBaseURL(srv.URL), WithCountry("CA"), WithGeocodeCache(cache))
	require.NoError(t, err)

	got, err := c.Geocode(context.Background(), "1 Main St")
	require.NoError(t, err)
	assert.Equal(t, domain.Coordinates{Lon: -79.4, Lat: 43.6}, got)
	assert.Equal(t, 1, calls)
	assert.Len(t, cache.m, 2)
}

func TestGeocodeNoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"features":[]}`))
	}))
	defer srv.Close()

	c, err := NewORSClient("key", WithBaseURL(srv.URL), WithHTTPOptions(httpclient.WithRetry(1, 0)))
	require.NoError(t, err)

	_, err = c.Geocode(context.Background(), "nowhere")
	assert.ErrorContains(t, err, "no geocode results")
}

func TestMockRouteSourceLegs(t *testing.T) {
	m := NewMockRouteSource(36)
	routes, err := m.GetRouteForWaypoints(context.Background(), []domain.Coordinates{
		{Lon: 0, Lat: 0}, {Lon: 0, Lat: 0.01}, {Lon: 0.01, Lat: 0.01},
	})
	require.NoError(t, err)
	require.Len(t, routes, 2)

	// 0.01 degrees of latitude is about 1112 m; 36 km/h is 10 m/s.
	assert.InDelta(t, 1112, routes[0].DistanceMeters, 2)
	assert.InDelta(t, 111*time.Second, routes[0].Duration, float64(time.Second))
	assert.Len(t, m.Calls(), 1)
}
