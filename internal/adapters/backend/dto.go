package backend

import (
	"time"
	"vehicle-sync-service/internal/domain"
)

type pointDTO struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func toPointDTO(c domain.Coordinates) pointDTO { return pointDTO{Lat: c.Lat, Lng: c.Lon} }

func (p pointDTO) coordinates() domain.Coordinates { return domain.Coordinates{Lon: p.Lng, Lat: p.Lat} }

type resourceDTO struct {
	PassengerCount int    `json:"passenger_count"`
	ContactName    string `json:"contact_name,omitempty"`
	ContactPhone   string `json:"contact_phone,omitempty"`
}

type stepDTO struct {
	TripID   string       `json:"trip_id"`
	StepID   string       `json:"step_id"`
	Kind     string       `json:"kind"`
	Position pointDTO     `json:"position"`
	Resource *resourceDTO `json:"resource,omitempty"`
}

type planResponse struct {
	Steps []stepDTO `json:"steps"`
}

type locationDTO struct {
	Position       pointDTO  `json:"position"`
	HeadingDegrees float64   `json:"heading_degrees"`
	SpeedKmh       float64   `json:"speed_kmh"`
	AccuracyMeters float64   `json:"accuracy_meters"`
	RecordedAt     time.Time `json:"recorded_at"`
}

type identityDTO struct {
	TripID string `json:"trip_id"`
	StepID string `json:"step_id"`
}

type legDTO struct {
	From           *identityDTO `json:"from"`
	To             identityDTO  `json:"to"`
	Polyline       []pointDTO   `json:"polyline"`
	DurationMs     int64        `json:"duration_ms"`
	DistanceMeters int          `json:"distance_meters"`
}

type routeRequest struct {
	Legs []legDTO `json:"legs"`
}

type finishStepsRequest struct {
	StepIDs []string `json:"step_ids"`
}

type createTripRequest struct {
	RequestID        string   `json:"request_id"`
	Pickup           pointDTO `json:"pickup"`
	DropOff          pointDTO `json:"drop_off"`
	PassengerCount   int      `json:"passenger_count"`
	VehicleSelection string   `json:"vehicle_selection"`
}

type createTripResponse struct {
	TripID string `json:"trip_id"`
}

func toLegDTOs(legs []domain.RouteLeg) []legDTO {
	out := make([]legDTO, 0, len(legs))
	for _, l := range legs {
		d := legDTO{
			To:             identityDTO{TripID: l.To.TripID, StepID: l.To.StepID},
			Polyline:       make([]pointDTO, 0, len(l.Route.Polyline)),
			DurationMs:     l.Route.Duration.Milliseconds(),
			DistanceMeters: l.Route.DistanceMeters,
		}
		if l.From != nil {
			d.From = &identityDTO{TripID: l.From.TripID, StepID: l.From.StepID}
		}
		for _, c := range l.Route.Polyline {
			d.Polyline = append(d.Polyline, toPointDTO(c))
		}
		out = append(out, d)
	}
	return out
}
