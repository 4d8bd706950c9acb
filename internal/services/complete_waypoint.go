package services

import (
	"context"
	"errors"
	"fmt"
	"vehicle-sync-service/internal/domain"
	"vehicle-sync-service/internal/ports"
)

// Anything that can be asked to re-poll right away.
type ForceSyncer interface {
	ForceSync()
}

// CompleteWaypoint marks every step of w as finished and then forces a sync so
// the next plan reflects the change without waiting for the timer.
func CompleteWaypoint(
	ctx context.Context,
	updater ports.VehicleUpdater,
	syncer ForceSyncer,
	vehicleID string,
	w domain.Waypoint,
) error {
	if len(w.StepIDs) == 0 {
		return errors.New("complete waypoint: waypoint has no steps")
	}

	if err := updater.FinishSteps(ctx, vehicleID, w.TripID, w.StepIDs); err != nil {
		return fmt.Errorf("complete waypoint %s: finish steps: %w", w.Identity(), err)
	}

	if syncer != nil {
		syncer.ForceSync()
	}
	return nil
}
