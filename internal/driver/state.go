package driver

import (
	"fmt"
	"vehicle-sync-service/internal/domain"
)

// MainStep is the screen the driver's main view is on.
type MainStep int

const (
	StepIdle MainStep = iota
	StepNavigating
	StepWaitingForPassenger
	StepTripDetails
)

func (s MainStep) String() string {
	switch s {
	case StepIdle:
		return "IDLE"
	case StepNavigating:
		return "NAVIGATING"
	case StepWaitingForPassenger:
		return "WAITING_FOR_PASSENGER"
	case StepTripDetails:
		return "TRIP_DETAILS"
	default:
		return fmt.Sprintf("MainStep(%d)", int(s))
	}
}

// MainViewState is the value held by the main view's state machine.
// TaskID is the identity of Active, empty while idle.
type MainViewState struct {
	Step    MainStep
	TaskID  string
	Active  *domain.Waypoint
	Display domain.DisplayState
}

func idleView() MainViewState {
	return MainViewState{Step: StepIdle, Display: domain.IdleState()}
}

// viewFor maps a display state coming from the sync loop onto the main view.
func viewFor(d domain.DisplayState) MainViewState {
	v := MainViewState{Display: d}

	switch d.Kind {
	case domain.DisplayDrivingToPickup, domain.DisplayDrivingToDropOff:
		v.Step = StepNavigating
	case domain.DisplayWaitingForPassenger:
		v.Step = StepWaitingForPassenger
	default:
		return idleView()
	}

	if d.Waypoint != nil {
		w := *d.Waypoint
		v.Active = &w
		v.TaskID = w.Identity().String()
	}
	return v
}

// History only keeps the screen the driver left to open trip details; backend
// driven steps replace each other.
func sameScreen(prev, next MainViewState) bool {
	return next.Step != StepTripDetails || prev.Step == StepTripDetails
}

func historyEnds(s MainViewState) bool {
	return s.Step != StepTripDetails
}
