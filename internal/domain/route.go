package domain

import "time"

// Driving route between two consecutive points of a waypoint chain.
type Route struct {
	Polyline       []Coordinates
	Duration       time.Duration
	DistanceMeters int
}

// Represents one leg of the route pushed upstream for a vehicle.
// From is nil for the first leg, which starts at the vehicle's position.
// To is keyed by the destination waypoint's identity; From uses the previous
// waypoint's last step id.
type RouteLeg struct {
	From  *Identity
	To    Identity
	Route Route
}
