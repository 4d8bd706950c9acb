package routing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"
	"vehicle-sync-service/internal/domain"
	"vehicle-sync-service/internal/platform/obs"
)

type directionsRequest struct {
	Coordinates [][]float64 `json:"coordinates"`
}

type directionsResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates [][]float64 `json:"coordinates"`
		} `json:"geometry"`
		Properties struct {
			Segments []struct {
				Distance float64 `json:"distance"`
				Duration float64 `json:"duration"`
			} `json:"segments"`
			WayPoints []int `json:"way_points"`
		} `json:"properties"`
	} `json:"features"`
}

// GetRouteForWaypoints asks ORS for one route through all points and splits it
// into one Route per consecutive pair using the returned way point indices.
func (o *ORSClient) GetRouteForWaypoints(
	ctx context.Context,
	points []domain.Coordinates,
) (_ []domain.Route, err error) {
	defer obs.Time(ctx, o.logger, "ors.GetRouteForWaypoints")(&err)

	if len(points) < 2 {
		return nil, errors.New("get ORS directions: need at least two points")
	}

	body := directionsRequest{Coordinates: make([][]float64, 0, len(points))}
	for _, p := range points {
		body.Coordinates = append(body.Coordinates, p.CoordsToList())
	}

	var dr directionsResponse
	path := fmt.Sprintf("/v2/directions/%s/geojson", o.profile)
	if err := o.http.DoJSON(ctx, http.MethodPost, path, body, &dr); err != nil {
		return nil, fmt.Errorf("directions request failed: %w", err)
	}

	return splitDirections(dr, len(points)-1)
}

func splitDirections(dr directionsResponse, legs int) ([]domain.Route, error) {
	if len(dr.Features) == 0 {
		return nil, errors.New("directions response has no route")
	}

	f := dr.Features[0]
	segments := f.Properties.Segments
	wayPoints := f.Properties.WayPoints
	geometry := f.Geometry.Coordinates

	if len(segments) != legs {
		return nil, fmt.Errorf("expected %d segments, got %d", legs, len(segments))
	}
	if len(wayPoints) != legs+1 {
		return nil, fmt.Errorf("expected %d way points, got %d", legs+1, len(wayPoints))
	}

	out := make([]domain.Route, 0, legs)
	for i, seg := range segments {
		start, end := wayPoints[i], wayPoints[i+1]
		if start < 0 || end < start || end >= len(geometry) {
			return nil, fmt.Errorf("way point range [%d, %d] outside geometry of %d points", start, end, len(geometry))
		}

		polyline := make([]domain.Coordinates, 0, end-start+1)
		for _, c := range geometry[start : end+1] {
			if len(c) < 2 {
				return nil, fmt.Errorf("invalid coordinate in segment %d", i)
			}
			polyline = append(polyline, domain.Coordinates{Lon: c[0], Lat: c[1]})
		}

		// ORS returns float metrics; round to nearest integer for domain consistency.
		out = append(out, domain.Route{
			Polyline:       polyline,
			Duration:       time.Duration(math.Round(seg.Duration)) * time.Second,
			DistanceMeters: int(math.Round(seg.Distance)),
		})
	}

	return out, nil
}
