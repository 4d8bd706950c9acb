package dto

import (
	"time"
	"vehicle-sync-service/internal/domain"
)

type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func FromCoordinates(c domain.Coordinates) Point { return Point{Lat: c.Lat, Lng: c.Lon} }

func (p Point) Coordinates() domain.Coordinates { return domain.Coordinates{Lon: p.Lng, Lat: p.Lat} }

type WaypointResponse struct {
	TripID         string   `json:"trip_id"`
	StepIDs        []string `json:"step_ids"`
	Action         string   `json:"action"`
	Destination    Point    `json:"destination"`
	PassengerCount int      `json:"passenger_count,omitempty"`
	ContactName    string   `json:"contact_name,omitempty"`
}

type DisplayResponse struct {
	Kind     string             `json:"kind"`
	Waypoint *WaypointResponse  `json:"waypoint,omitempty"`
	Plan     []WaypointResponse `json:"plan,omitempty"`
}

type LegResponse struct {
	From            string `json:"from,omitempty"`
	DistanceMeters  int    `json:"distance_meters"`
	DurationSeconds int    `json:"duration_seconds"`
	Points          int    `json:"points"`
}

type MainViewResponse struct {
	Step    string          `json:"step"`
	TaskID  string          `json:"task_id,omitempty"`
	Display DisplayResponse `json:"display"`
	Leg     *LegResponse    `json:"leg,omitempty"`
}

type CompleteWaypointRequest struct {
	TaskID string `json:"task_id"`
}

type BackResponse struct {
	Restored bool `json:"restored"`
}

func FromWaypoint(w domain.Waypoint) WaypointResponse {
	res := WaypointResponse{
		TripID:      w.TripID,
		StepIDs:     w.StepIDs,
		Action:      w.Action.Kind.String(),
		Destination: FromCoordinates(w.Action.Destination),
	}
	if r := w.Action.Resource; r != nil {
		res.PassengerCount = r.PassengerCount
		res.ContactName = r.ContactName
	}
	return res
}

func FromDisplayState(d domain.DisplayState) DisplayResponse {
	res := DisplayResponse{Kind: d.Kind.String()}
	if d.Waypoint != nil {
		w := FromWaypoint(*d.Waypoint)
		res.Waypoint = &w
	}
	if d.Plan != nil {
		res.Plan = make([]WaypointResponse, 0, len(d.Plan.Waypoints))
		for _, w := range d.Plan.Waypoints {
			res.Plan = append(res.Plan, FromWaypoint(w))
		}
	}
	return res
}

func FromLeg(l domain.RouteLeg) *LegResponse {
	res := &LegResponse{
		DistanceMeters:  l.Route.DistanceMeters,
		DurationSeconds: int(l.Route.Duration / time.Second),
		Points:          len(l.Route.Polyline),
	}
	if l.From != nil {
		res.From = l.From.String()
	}
	return res
}
