package routing

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"vehicle-sync-service/internal/domain"
	"vehicle-sync-service/internal/platform/obs"
)

type geocodeResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"features"`
}

// Geocode resolves a single address, consulting the persistent cache first.
func (o *ORSClient) Geocode(ctx context.Context, address string) (_ domain.Coordinates, err error) {
	defer obs.Time(ctx, o.logger, "ors.Geocode")(&err)

	text := strings.Join(strings.Fields(address), " ")
	if text == "" {
		return domain.Coordinates{}, errors.New("geocode: address must be non-empty")
	}
	key := domain.NewGeocodeKey(o.country, text)

	if o.geocodeCache != nil {
		c, ok, err := o.geocodeCache.Lookup(ctx, key)
		if err != nil {
			return domain.Coordinates{}, fmt.Errorf("ORS geocode cache lookup: %w", err)
		}
		if ok {
			return c, nil
		}
	}

	c, err := o.geocodeSearch(ctx, text)
	if err != nil {
		return domain.Coordinates{}, err
	}

	if o.geocodeCache != nil {
		if err := o.geocodeCache.Store(ctx, key, c); err != nil {
			o.logger.Warn("geocode cache write failed", "key", key.String(), "error", err)
		}
	}

	return c, nil
}

func (o *ORSClient) geocodeSearch(ctx context.Context, text string) (domain.Coordinates, error) {
	q := url.Values{}
	q.Set("text", text)
	if o.country != "" {
		q.Set("boundary.country", o.country)
	}
	q.Set("size", "1")

	var decoded geocodeResponse
	if err := o.http.DoJSON(ctx, http.MethodGet, "/geocode/search?"+q.Encode(), nil, &decoded); err != nil {
		return domain.Coordinates{}, fmt.Errorf("geocode %q: %w", text, err)
	}

	if len(decoded.Features) == 0 {
		return domain.Coordinates{}, fmt.Errorf("no geocode results for %q", text)
	}

	coords := decoded.Features[0].Geometry.Coordinates
	if len(coords) != 2 {
		return domain.Coordinates{}, fmt.Errorf("invalid coordinate format for %q", text)
	}

	return domain.Coordinates{Lon: coords[0], Lat: coords[1]}, nil
}
