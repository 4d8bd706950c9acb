package domain

// DisplayKind tags the variant held by a DisplayState.
type DisplayKind int

const (
	DisplayIdle DisplayKind = iota
	DisplayDrivingToPickup
	DisplayDrivingToDropOff
	DisplayWaitingForPassenger
	DisplayTripDetails
)

func (k DisplayKind) String() string {
	switch k {
	case DisplayIdle:
		return "IDLE"
	case DisplayDrivingToPickup:
		return "DRIVING_TO_PICKUP"
	case DisplayDrivingToDropOff:
		return "DRIVING_TO_DROP_OFF"
	case DisplayWaitingForPassenger:
		return "WAITING_FOR_PASSENGER"
	case DisplayTripDetails:
		return "TRIP_DETAILS"
	default:
		return "UNKNOWN"
	}
}

// DisplayState is what the driver screen shows. Waypoint is set for the three
// navigation variants, Plan only for TRIP_DETAILS.
type DisplayState struct {
	Kind     DisplayKind
	Waypoint *Waypoint
	Plan     *VehiclePlan
}

func IdleState() DisplayState { return DisplayState{Kind: DisplayIdle} }

func DrivingToPickup(w Waypoint) DisplayState {
	return DisplayState{Kind: DisplayDrivingToPickup, Waypoint: &w}
}

func DrivingToDropOff(w Waypoint) DisplayState {
	return DisplayState{Kind: DisplayDrivingToDropOff, Waypoint: &w}
}

func WaitingForPassenger(w Waypoint) DisplayState {
	return DisplayState{Kind: DisplayWaitingForPassenger, Waypoint: &w}
}

func TripDetails(p VehiclePlan) DisplayState {
	return DisplayState{Kind: DisplayTripDetails, Plan: &p}
}

// DeriveDisplayState depends only on the plan head. Entries past the head never
// change the result, so reshuffling later stops does not move the driver off the
// current screen.
func DeriveDisplayState(plan VehiclePlan) DisplayState {
	head, ok := plan.Head()
	if !ok {
		return IdleState()
	}

	switch head.Action.Kind {
	case ActionDriveToPickup:
		return DrivingToPickup(head)
	case ActionDriveToDropOff:
		return DrivingToDropOff(head)
	case ActionLoadResource:
		return WaitingForPassenger(head)
	default:
		return IdleState()
	}
}

// Equal is the distinct-until-changed comparator for display emissions.
func (s DisplayState) Equal(o DisplayState) bool {
	if s.Kind != o.Kind {
		return false
	}
	if (s.Waypoint == nil) != (o.Waypoint == nil) || (s.Plan == nil) != (o.Plan == nil) {
		return false
	}
	if s.Waypoint != nil && !s.Waypoint.Equal(*o.Waypoint) {
		return false
	}
	if s.Plan != nil && !s.Plan.Equal(*o.Plan) {
		return false
	}
	return true
}
