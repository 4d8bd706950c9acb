package services

import (
	"log/slog"
	"vehicle-sync-service/internal/domain"
)

// AggregatePlan folds the backend's flat step list into display waypoints in a
// single left-to-right pass.
//
// A DRIVE_TO_LOCATION step is paired with the rider step that follows it for the
// same trip. Before a pickup it becomes DRIVE_TO_PICKUP and the pickup itself is
// then emitted as LOAD_RESOURCE. Before a drop-off both steps are merged into one
// DRIVE_TO_DROP_OFF waypoint; there is no separate drop-off completion action.
// Unpaired drives are logged and skipped rather than failing the whole plan.
func AggregatePlan(steps []domain.Step, logger *slog.Logger) domain.VehiclePlan {
	if logger == nil {
		logger = slog.Default()
	}

	waypoints := make([]domain.Waypoint, 0, len(steps))

	for i := 0; i < len(steps); i++ {
		step := steps[i]

		switch step.Kind {
		case domain.StepDriveToLocation:
			if i+1 >= len(steps) || steps[i+1].TripID != step.TripID {
				logger.Warn("plan anomaly: drive step without a following rider step, skipped",
					"trip_id", step.TripID, "step_id", step.StepID, "index", i)
				continue
			}

			next := steps[i+1]
			switch next.Kind {
			case domain.StepPickupRider:
				// The pickup step is visited on the next iteration as LOAD_RESOURCE.
				waypoints = append(waypoints, domain.Waypoint{
					TripID:  step.TripID,
					StepIDs: []string{step.StepID},
					Action: domain.Action{
						Destination: step.Position,
						Kind:        domain.ActionDriveToPickup,
						Resource:    resourceOf(next, step),
					},
				})
			case domain.StepDropoffRider:
				waypoints = append(waypoints, domain.Waypoint{
					TripID:  step.TripID,
					StepIDs: []string{step.StepID, next.StepID},
					Action: domain.Action{
						Destination: step.Position,
						Kind:        domain.ActionDriveToDropOff,
						Resource:    resourceOf(next, step),
					},
				})
				i++
			default:
				logger.Warn("plan anomaly: drive step followed by another drive, skipped",
					"trip_id", step.TripID, "step_id", step.StepID, "index", i)
			}

		case domain.StepPickupRider:
			waypoints = append(waypoints, domain.Waypoint{
				TripID:  step.TripID,
				StepIDs: []string{step.StepID},
				Action: domain.Action{
					Destination: step.Position,
					Kind:        domain.ActionLoadResource,
					Resource:    step.Resource,
				},
			})

		case domain.StepDropoffRider:
			// No preceding drive for this drop-off: treat it as the drive itself.
			logger.Warn("plan anomaly: drop-off without preceding drive, treated as DRIVE_TO_DROP_OFF",
				"trip_id", step.TripID, "step_id", step.StepID, "index", i)
			waypoints = append(waypoints, domain.Waypoint{
				TripID:  step.TripID,
				StepIDs: []string{step.StepID},
				Action: domain.Action{
					Destination: step.Position,
					Kind:        domain.ActionDriveToDropOff,
					Resource:    step.Resource,
				},
			})

		default:
			logger.Warn("plan anomaly: unknown step kind, skipped",
				"trip_id", step.TripID, "step_id", step.StepID, "kind", step.Kind.String())
		}
	}

	return domain.VehiclePlan{Waypoints: waypoints}
}

func resourceOf(preferred, fallback domain.Step) *domain.ResourceInfo {
	if preferred.Resource != nil {
		return preferred.Resource
	}
	return fallback.Resource
}
