package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
	"vehicle-sync-service/internal/domain"
	"vehicle-sync-service/internal/platform/httpclient"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL, WithToken("secret"), WithHTTPOptions(httpclient.WithRetry(3, time.Millisecond)))
	require.NoError(t, err)
	return c
}

func TestGetPlanForVehicle(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/vehicles/v%201/plan", r.URL.EscapedPath())
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"steps":[
			{"trip_id":"t1","step_id":"s0","kind":"DRIVE_TO_LOCATION","position":{"lat":37.7,"lng":-122.4}},
			{"trip_id":"t1","step_id":"s1","kind":"PICKUP_RIDER","position":{"lat":37.7,"lng":-122.4},
			 "resource":{"passenger_count":2,"contact_name":"Ana"}}
		]}`)
	})

	steps, err := c.GetPlanForVehicle(context.Background(), "v 1")
	require.NoError(t, err)
	require.Len(t, steps, 2)

	assert.Equal(t, domain.StepDriveToLocation, steps[0].Kind)
	assert.Equal(t, domain.Coordinates{Lon: -122.4, Lat: 37.7}, steps[0].Position)
	assert.Nil(t, steps[0].Resource)

	assert.Equal(t, domain.StepPickupRider, steps[1].Kind)
	require.NotNil(t, steps[1].Resource)
	assert.Equal(t, 2, steps[1].Resource.PassengerCount)
	assert.Equal(t, "Ana", steps[1].Resource.ContactName)
}

func TestGetPlanForVehicleEmptyPlan(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"steps":[]}`)
	})

	steps, err := c.GetPlanForVehicle(context.Background(), "v1")
	require.NoError(t, err)
	assert.Empty(t, steps)
}

func TestGetPlanForVehicleRejectsStepWithoutID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"steps":[{"trip_id":"t1","kind":"PICKUP_RIDER"}]}`)
	})

	_, err := c.GetPlanForVehicle(context.Background(), "v1")
	assert.Error(t, err)
}

func TestGetPlanForVehicleRetriesUnavailable(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, `{"steps":[]}`)
	})

	_, err := c.GetPlanForVehicle(context.Background(), "v1")
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestUpdateVehicleRoute(t *testing.T) {
	var got routeRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/v1/vehicles/v1/route", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	})

	from := domain.Identity{TripID: "t1", StepID: "s1"}
	legs := []domain.RouteLeg{
		{To: domain.Identity{TripID: "t1", StepID: "s0"}, Route: domain.Route{
			Polyline: []domain.Coordinates{{Lon: 1, Lat: 2}}, Duration: 90 * time.Second, DistanceMeters: 1200,
		}},
		{From: &from, To: domain.Identity{TripID: "t2", StepID: "s2"}},
	}
	require.NoError(t, c.UpdateVehicleRoute(context.Background(), "v1", legs))

	require.Len(t, got.Legs, 2)
	assert.Nil(t, got.Legs[0].From)
	assert.Equal(t, int64(90000), got.Legs[0].DurationMs)
	assert.Equal(t, []pointDTO{{Lat: 2, Lng: 1}}, got.Legs[0].Polyline)
	require.NotNil(t, got.Legs[1].From)
	assert.Equal(t, "s1", got.Legs[1].From.StepID)
}

func TestUpdateVehicleLocation(t *testing.T) {
	var got locationDTO
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/vehicles/v1/location", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	})

	at := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	loc := domain.Location{Point: domain.Coordinates{Lon: 3, Lat: 4}, HeadingDegrees: 90, SpeedKmh: 40, RecordedAt: at}
	require.NoError(t, c.UpdateVehicleLocation(context.Background(), "v1", loc))

	assert.Equal(t, pointDTO{Lat: 4, Lng: 3}, got.Position)
	assert.Equal(t, 90.0, got.HeadingDegrees)
	assert.True(t, at.Equal(got.RecordedAt))
}

func TestFinishSteps(t *testing.T) {
	var got finishStepsRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/vehicles/v1/trips/t1/finish-steps", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	})

	require.NoError(t, c.FinishSteps(context.Background(), "v1", "t1", []string{"s0", "s1"}))
	assert.Equal(t, []string{"s0", "s1"}, got.StepIDs)

	assert.Error(t, c.FinishSteps(context.Background(), "v1", "t1", nil))
}

func TestFinishStepsConflictIsNotRetried(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "already finished", http.StatusConflict)
	})

	err := c.FinishSteps(context.Background(), "v1", "t1", []string{"s0"})
	var se *httpclient.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusConflict, se.Code)
	assert.Equal(t, 1, calls)
}

func TestCreateTrip(t *testing.T) {
	var got createTripRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/trips", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, `{"trip_id":"trip-9"}`)
	})

	id, err := c.CreateTrip(context.Background(), domain.TripRequest{
		RequestID:        "req-1",
		Pickup:           domain.Coordinates{Lon: 1, Lat: 2},
		DropOff:          domain.Coordinates{Lon: 3, Lat: 4},
		PassengerCount:   2,
		VehicleSelection: "xl",
	})
	require.NoError(t, err)
	assert.Equal(t, "trip-9", id)
	assert.Equal(t, "req-1", got.RequestID)
	assert.Equal(t, pointDTO{Lat: 4, Lng: 3}, got.DropOff)
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	_, err := NewClient("")
	assert.Error(t, err)
}
