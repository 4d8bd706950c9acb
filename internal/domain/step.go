package domain

import "fmt"

// StepKind is the backend's per-step action type.
type StepKind int

const (
	StepDriveToLocation StepKind = iota + 1
	StepPickupRider
	StepDropoffRider
)

func (k StepKind) String() string {
	switch k {
	case StepDriveToLocation:
		return "DRIVE_TO_LOCATION"
	case StepPickupRider:
		return "PICKUP_RIDER"
	case StepDropoffRider:
		return "DROPOFF_RIDER"
	default:
		return fmt.Sprintf("StepKind(%d)", int(k))
	}
}

// ParseStepKind maps the backend string form onto a StepKind.
func ParseStepKind(s string) (StepKind, error) {
	switch s {
	case "DRIVE_TO_LOCATION":
		return StepDriveToLocation, nil
	case "PICKUP_RIDER":
		return StepPickupRider, nil
	case "DROPOFF_RIDER":
		return StepDropoffRider, nil
	}
	return 0, fmt.Errorf("parse step kind: unknown kind %q", s)
}

// Represents one entry of the flat, ordered step list the backend assigns to a
// vehicle. Several steps are folded into a single Waypoint for display.
type Step struct {
	TripID   string
	StepID   string
	Position Coordinates
	Kind     StepKind
	Resource *ResourceInfo
}

// Rider-facing request to create a trip.
type TripRequest struct {
	RequestID        string
	Pickup           Coordinates
	DropOff          Coordinates
	PassengerCount   int
	VehicleSelection string
}
