package routing

import (
	"errors"
	"log/slog"
	"vehicle-sync-service/internal/platform/httpclient"
	"vehicle-sync-service/internal/ports"
)

const defaultORSBaseURL = "https://api.openrouteservice.org"

// ORSClient implements RouteSource and Geocoder using OpenRouteService.
//
// It coordinates:
//   - Directions requests through an ordered chain of points
//   - Address normalization and persistent geocode caching
//   - External API calls with retry/backoff
//
// The client is safe for concurrent use.
type ORSClient struct {
	http         *httpclient.Client
	profile      string
	country      string
	geocodeCache ports.GeocodeCache
	logger       *slog.Logger
}

type ORSOption func(*orsSettings)

type orsSettings struct {
	baseURL      string
	profile      string
	country      string
	geocodeCache ports.GeocodeCache
	logger       *slog.Logger
	httpOpts     []httpclient.Option
}

func WithBaseURL(u string) ORSOption {
	return func(s *orsSettings) { s.baseURL = u }
}

// WithProfile selects the ORS routing profile, e.g. driving-car.
func WithProfile(p string) ORSOption {
	return func(s *orsSettings) { s.profile = p }
}

// WithCountry restricts geocoding to an ISO country code.
func WithCountry(c string) ORSOption {
	return func(s *orsSettings) { s.country = c }
}

func WithGeocodeCache(c ports.GeocodeCache) ORSOption {
	return func(s *orsSettings) { s.geocodeCache = c }
}

func WithLogger(l *slog.Logger) ORSOption {
	return func(s *orsSettings) { s.logger = l }
}

func WithHTTPOptions(opts ...httpclient.Option) ORSOption {
	return func(s *orsSettings) { s.httpOpts = append(s.httpOpts, opts...) }
}

func NewORSClient(apiKey string, opts ...ORSOption) (*ORSClient, error) {
	if apiKey == "" {
		return nil, errors.New("ORS api key is empty")
	}

	s := orsSettings{
		baseURL: defaultORSBaseURL,
		profile: "driving-car",
		country: "US",
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(&s)
	}

	httpOpts := append([]httpclient.Option{httpclient.WithHeader("Authorization", apiKey)}, s.httpOpts...)

	return &ORSClient{
		http:         httpclient.New(s.baseURL, httpOpts...),
		profile:      s.profile,
		country:      s.country,
		geocodeCache: s.geocodeCache,
		logger:       s.logger,
	}, nil
}
