package domain

import (
	"fmt"
	"slices"
)

// ActionKind is what the driver does on reaching a waypoint.
type ActionKind int

const (
	ActionDriveToPickup ActionKind = iota + 1
	ActionDriveToDropOff
	// LoadResource is the passenger boarding at the pickup point. There is no
	// matching drop-off completion kind; the drop-off is carried entirely by the
	// preceding DRIVE_TO_DROP_OFF waypoint.
	ActionLoadResource
)

func (k ActionKind) String() string {
	switch k {
	case ActionDriveToPickup:
		return "DRIVE_TO_PICKUP"
	case ActionDriveToDropOff:
		return "DRIVE_TO_DROP_OFF"
	case ActionLoadResource:
		return "LOAD_RESOURCE"
	default:
		return fmt.Sprintf("ActionKind(%d)", int(k))
	}
}

// Routable reports whether reaching the waypoint requires a driving route.
func (k ActionKind) Routable() bool {
	return k == ActionDriveToPickup || k == ActionDriveToDropOff
}

// Passenger count and contact data attached to a rider step.
type ResourceInfo struct {
	PassengerCount int
	ContactName    string
	ContactPhone   string
}

// Action describes where a waypoint is and what happens there.
// Resource is nil when the backend sent no rider data.
type Action struct {
	Destination Coordinates
	Kind        ActionKind
	Resource    *ResourceInfo
}

func (a Action) Equal(o Action) bool {
	if a.Destination != o.Destination || a.Kind != o.Kind {
		return false
	}
	if a.Resource == nil || o.Resource == nil {
		return a.Resource == nil && o.Resource == nil
	}
	return *a.Resource == *o.Resource
}

// Identity keys a stop across polls: the trip plus one of its step ids.
type Identity struct {
	TripID string
	StepID string
}

func (i Identity) String() string { return i.TripID + "/" + i.StepID }

// Waypoint is a display-level stop grouping one or more backend steps.
// StepIDs keeps backend order and is never empty; the first id is canonical.
type Waypoint struct {
	TripID  string
	StepIDs []string
	Action  Action
}

// Identity returns (TripID, StepIDs[0]), the key used to decide whether two
// waypoints are the same stop.
func (w Waypoint) Identity() Identity {
	if len(w.StepIDs) == 0 {
		return Identity{TripID: w.TripID}
	}
	return Identity{TripID: w.TripID, StepID: w.StepIDs[0]}
}

// LastIdentity uses the final step id. Departure from a stop happens after all
// of its steps are done, so legs leaving this waypoint start from here.
func (w Waypoint) LastIdentity() Identity {
	if len(w.StepIDs) == 0 {
		return Identity{TripID: w.TripID}
	}
	return Identity{TripID: w.TripID, StepID: w.StepIDs[len(w.StepIDs)-1]}
}

func (w Waypoint) SameStop(o Waypoint) bool { return w.Identity() == o.Identity() }

func (w Waypoint) Equal(o Waypoint) bool {
	return w.TripID == o.TripID && slices.Equal(w.StepIDs, o.StepIDs) && w.Action.Equal(o.Action)
}

// VehiclePlan is the ordered list of stops assigned to a vehicle.
// A new plan is built on every poll; an empty plan means the vehicle is idle.
type VehiclePlan struct {
	Waypoints []Waypoint
}

func (p VehiclePlan) IsIdle() bool { return len(p.Waypoints) == 0 }

// Head returns the active waypoint, if any.
func (p VehiclePlan) Head() (Waypoint, bool) {
	if len(p.Waypoints) == 0 {
		return Waypoint{}, false
	}
	return p.Waypoints[0], true
}

// Routable returns the waypoints that need a driving route, in plan order.
func (p VehiclePlan) Routable() []Waypoint {
	out := make([]Waypoint, 0, len(p.Waypoints))
	for _, w := range p.Waypoints {
		if w.Action.Kind.Routable() {
			out = append(out, w)
		}
	}
	return out
}

func (p VehiclePlan) Equal(o VehiclePlan) bool {
	return slices.EqualFunc(p.Waypoints, o.Waypoints, Waypoint.Equal)
}
