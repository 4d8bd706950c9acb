package cache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
	"vehicle-sync-service/internal/domain"
)

// Polyline is stored as a JSON array of [lon, lat] pairs.
func encodePolyline(points []domain.Coordinates) (string, error) {
	pairs := make([][]float64, 0, len(points))
	for _, p := range points {
		pairs = append(pairs, p.CoordsToList())
	}
	b, err := json.Marshal(pairs)
	if err != nil {
		return "", fmt.Errorf("encode polyline: %w", err)
	}
	return string(b), nil
}

func decodePolyline(s string) ([]domain.Coordinates, error) {
	var pairs [][]float64
	if err := json.Unmarshal([]byte(s), &pairs); err != nil {
		return nil, fmt.Errorf("decode polyline: %w", err)
	}
	out := make([]domain.Coordinates, 0, len(pairs))
	for i, p := range pairs {
		if len(p) != 2 {
			return nil, fmt.Errorf("decode polyline: point %d has %d values", i, len(p))
		}
		out = append(out, domain.Coordinates{Lon: p[0], Lat: p[1]})
	}
	return out, nil
}

// legRow mirrors one route_leg_cache row.
type legRow struct {
	fromTrip, fromStep sql.NullString
	polyline           string
	durationMs         int64
	distanceMeters     int
}

func (r legRow) leg(to domain.Identity) (domain.RouteLeg, error) {
	poly, err := decodePolyline(r.polyline)
	if err != nil {
		return domain.RouteLeg{}, err
	}

	leg := domain.RouteLeg{
		To: to,
		Route: domain.Route{
			Polyline:       poly,
			Duration:       time.Duration(r.durationMs) * time.Millisecond,
			DistanceMeters: r.distanceMeters,
		},
	}
	if r.fromTrip.Valid {
		leg.From = &domain.Identity{TripID: r.fromTrip.String, StepID: r.fromStep.String}
	}
	return leg, nil
}

func fromColumns(l domain.RouteLeg) (sql.NullString, sql.NullString) {
	if l.From == nil {
		return sql.NullString{}, sql.NullString{}
	}
	return sql.NullString{String: l.From.TripID, Valid: true}, sql.NullString{String: l.From.StepID, Valid: true}
}
