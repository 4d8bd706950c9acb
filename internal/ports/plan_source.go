package ports

import (
	"context"
	"vehicle-sync-service/internal/domain"
)

// Port: a boundary for retrieving the plan currently assigned to a vehicle.
type PlanSource interface {
	// Return the vehicle's remaining steps in backend order.
	// An empty slice is a valid idle plan.
	GetPlanForVehicle(ctx context.Context, vehicleID string) ([]domain.Step, error)
}
