package rider

import (
	"fmt"
	"vehicle-sync-service/internal/domain"
)

type PreTripStep int

const (
	StepSelectPickup PreTripStep = iota
	StepSelectDropOff
	StepSelectVehicle
	StepConfirm
	StepTripCreated
)

func (s PreTripStep) String() string {
	switch s {
	case StepSelectPickup:
		return "SELECT_PICKUP"
	case StepSelectDropOff:
		return "SELECT_DROP_OFF"
	case StepSelectVehicle:
		return "SELECT_VEHICLE"
	case StepConfirm:
		return "CONFIRM"
	case StepTripCreated:
		return "TRIP_CREATED"
	default:
		return fmt.Sprintf("PreTripStep(%d)", int(s))
	}
}

// PreTripState is the rider's booking draft. Fields are filled in step order;
// TripID is set only once the trip exists.
type PreTripState struct {
	Step             PreTripStep
	Pickup           *domain.Coordinates
	DropOff          *domain.Coordinates
	PassengerCount   int
	VehicleSelection string
	// RequestID identifies this booking attempt to the backend; it is fixed
	// once the vehicle is chosen.
	RequestID string
	TripID    string
}

func initialDraft() PreTripState {
	return PreTripState{Step: StepSelectPickup, PassengerCount: 1}
}

func sameStep(a, b PreTripState) bool { return a.Step == b.Step }

func isCreated(s PreTripState) bool { return s.Step == StepTripCreated }

func at(step PreTripStep) func(PreTripState) bool {
	return func(s PreTripState) bool { return s.Step == step }
}
