package messaging

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
	"vehicle-sync-service/internal/domain"
	"vehicle-sync-service/internal/ports"
)

// Publisher is the part of *nats.Conn the mirror needs.
type Publisher interface {
	Publish(subj string, data []byte) error
}

var _ ports.VehicleUpdater = (*MirrorUpdater)(nil)

// MirrorUpdater forwards every push to the wrapped updater and, when that
// succeeds, publishes the same update on NATS for live dashboards. Publish
// failures are logged only.
type MirrorUpdater struct {
	next   ports.VehicleUpdater
	pub    Publisher
	logger *slog.Logger
}

func NewMirrorUpdater(next ports.VehicleUpdater, pub Publisher, logger *slog.Logger) *MirrorUpdater {
	if logger == nil {
		logger = slog.Default()
	}
	return &MirrorUpdater{next: next, pub: pub, logger: logger}
}

type locationEvent struct {
	VehicleID      string    `json:"vehicle_id"`
	Lon            float64   `json:"lon"`
	Lat            float64   `json:"lat"`
	HeadingDegrees float64   `json:"heading_degrees"`
	SpeedKmh       float64   `json:"speed_kmh"`
	RecordedAt     time.Time `json:"recorded_at"`
}

type routeEvent struct {
	VehicleID string          `json:"vehicle_id"`
	Legs      []routeLegEvent `json:"legs"`
}

type routeLegEvent struct {
	To             string `json:"to"`
	From           string `json:"from,omitempty"`
	DurationMs     int64  `json:"duration_ms"`
	DistanceMeters int    `json:"distance_meters"`
}

func (m *MirrorUpdater) UpdateVehicleLocation(ctx context.Context, vehicleID string, loc domain.Location) error {
	if err := m.next.UpdateVehicleLocation(ctx, vehicleID, loc); err != nil {
		return err
	}
	m.publish(LocationSubject(vehicleID), locationEvent{
		VehicleID:      vehicleID,
		Lon:            loc.Point.Lon,
		Lat:            loc.Point.Lat,
		HeadingDegrees: loc.HeadingDegrees,
		SpeedKmh:       loc.SpeedKmh,
		RecordedAt:     loc.RecordedAt,
	})
	return nil
}

func (m *MirrorUpdater) UpdateVehicleRoute(ctx context.Context, vehicleID string, legs []domain.RouteLeg) error {
	if err := m.next.UpdateVehicleRoute(ctx, vehicleID, legs); err != nil {
		return err
	}
	ev := routeEvent{VehicleID: vehicleID, Legs: make([]routeLegEvent, 0, len(legs))}
	for _, l := range legs {
		le := routeLegEvent{
			To:             l.To.String(),
			DurationMs:     l.Route.Duration.Milliseconds(),
			DistanceMeters: l.Route.DistanceMeters,
		}
		if l.From != nil {
			le.From = l.From.String()
		}
		ev.Legs = append(ev.Legs, le)
	}
	m.publish(RouteSubject(vehicleID), ev)
	return nil
}

func (m *MirrorUpdater) FinishSteps(ctx context.Context, vehicleID string, tripID string, stepIDs []string) error {
	return m.next.FinishSteps(ctx, vehicleID, tripID, stepIDs)
}

func (m *MirrorUpdater) publish(subject string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		m.logger.Warn("mirror: encode failed", "subject", subject, "error", err)
		return
	}
	if err := m.pub.Publish(subject, b); err != nil {
		m.logger.Warn("mirror: publish failed", "subject", subject, "error", err)
	}
}
