// Package backend talks to the ride-hail backend over JSON/HTTP. It is the
// plan source, the vehicle push sinks and the trip creator.
package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"vehicle-sync-service/internal/domain"
	"vehicle-sync-service/internal/platform/httpclient"
	"vehicle-sync-service/internal/platform/obs"
	"vehicle-sync-service/internal/ports"
)

var (
	_ ports.PlanSource     = (*Client)(nil)
	_ ports.VehicleUpdater = (*Client)(nil)
	_ ports.TripCreator    = (*Client)(nil)
)

// Client is safe for concurrent use.
type Client struct {
	http   *httpclient.Client
	logger *slog.Logger
}

type Option func(*settings)

type settings struct {
	token    string
	logger   *slog.Logger
	httpOpts []httpclient.Option
}

// WithToken sends a static bearer token. Obtaining it is up to the caller.
func WithToken(token string) Option {
	return func(s *settings) { s.token = token }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *settings) { s.logger = l }
}

func WithHTTPOptions(opts ...httpclient.Option) Option {
	return func(s *settings) { s.httpOpts = append(s.httpOpts, opts...) }
}

func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("backend client: base url is empty")
	}

	s := settings{logger: slog.Default()}
	for _, opt := range opts {
		opt(&s)
	}

	httpOpts := s.httpOpts
	if s.token != "" {
		httpOpts = append([]httpclient.Option{httpclient.WithHeader("Authorization", "Bearer "+s.token)}, httpOpts...)
	}

	return &Client{
		http:   httpclient.New(baseURL, httpOpts...),
		logger: s.logger,
	}, nil
}

func vehiclePath(vehicleID, suffix string) string {
	return "/v1/vehicles/" + url.PathEscape(vehicleID) + suffix
}

// GetPlanForVehicle implements ports.PlanSource.
func (c *Client) GetPlanForVehicle(ctx context.Context, vehicleID string) (_ []domain.Step, err error) {
	defer obs.Time(ctx, c.logger, "backend.GetPlanForVehicle")(&err)

	var resp planResponse
	if err := c.http.DoJSON(ctx, http.MethodGet, vehiclePath(vehicleID, "/plan"), nil, &resp); err != nil {
		return nil, fmt.Errorf("get plan for vehicle %q: %w", vehicleID, err)
	}

	steps := make([]domain.Step, 0, len(resp.Steps))
	for i, s := range resp.Steps {
		kind, err := domain.ParseStepKind(s.Kind)
		if err != nil {
			// Unknown kinds are passed through as zero and skipped by aggregation.
			c.logger.Warn("backend plan: unknown step kind", "vehicle_id", vehicleID, "index", i, "kind", s.Kind)
		}
		if s.TripID == "" || s.StepID == "" {
			return nil, fmt.Errorf("get plan for vehicle %q: step %d has no trip or step id", vehicleID, i)
		}

		step := domain.Step{
			TripID:   s.TripID,
			StepID:   s.StepID,
			Kind:     kind,
			Position: s.Position.coordinates(),
		}
		if s.Resource != nil {
			step.Resource = &domain.ResourceInfo{
				PassengerCount: s.Resource.PassengerCount,
				ContactName:    s.Resource.ContactName,
				ContactPhone:   s.Resource.ContactPhone,
			}
		}
		steps = append(steps, step)
	}

	return steps, nil
}

// UpdateVehicleLocation implements ports.VehicleUpdater.
func (c *Client) UpdateVehicleLocation(ctx context.Context, vehicleID string, loc domain.Location) (err error) {
	defer obs.Time(ctx, c.logger, "backend.UpdateVehicleLocation")(&err)

	body := locationDTO{
		Position:       toPointDTO(loc.Point),
		HeadingDegrees: loc.HeadingDegrees,
		SpeedKmh:       loc.SpeedKmh,
		AccuracyMeters: loc.AccuracyMeters,
		RecordedAt:     loc.RecordedAt,
	}
	if err := c.http.DoJSON(ctx, http.MethodPut, vehiclePath(vehicleID, "/location"), body, nil); err != nil {
		return fmt.Errorf("update location of vehicle %q: %w", vehicleID, err)
	}
	return nil
}

// UpdateVehicleRoute implements ports.VehicleUpdater.
func (c *Client) UpdateVehicleRoute(ctx context.Context, vehicleID string, legs []domain.RouteLeg) (err error) {
	defer obs.Time(ctx, c.logger, "backend.UpdateVehicleRoute")(&err)

	body := routeRequest{Legs: toLegDTOs(legs)}
	if err := c.http.DoJSON(ctx, http.MethodPut, vehiclePath(vehicleID, "/route"), body, nil); err != nil {
		return fmt.Errorf("update route of vehicle %q: %w", vehicleID, err)
	}
	return nil
}

// FinishSteps implements ports.VehicleUpdater.
func (c *Client) FinishSteps(ctx context.Context, vehicleID string, tripID string, stepIDs []string) (err error) {
	defer obs.Time(ctx, c.logger, "backend.FinishSteps")(&err)

	if tripID == "" || len(stepIDs) == 0 {
		return errors.New("finish steps: trip id and step ids must be non-empty")
	}

	path := vehiclePath(vehicleID, "/trips/"+url.PathEscape(tripID)+"/finish-steps")
	if err := c.http.DoJSON(ctx, http.MethodPost, path, finishStepsRequest{StepIDs: stepIDs}, nil); err != nil {
		return fmt.Errorf("finish steps %v of trip %q: %w", stepIDs, tripID, err)
	}
	return nil
}

// CreateTrip implements ports.TripCreator. The request id makes retries
// idempotent on the backend.
func (c *Client) CreateTrip(ctx context.Context, req domain.TripRequest) (_ string, err error) {
	defer obs.Time(ctx, c.logger, "backend.CreateTrip")(&err)

	body := createTripRequest{
		RequestID:        req.RequestID,
		Pickup:           toPointDTO(req.Pickup),
		DropOff:          toPointDTO(req.DropOff),
		PassengerCount:   req.PassengerCount,
		VehicleSelection: req.VehicleSelection,
	}

	var resp createTripResponse
	if err := c.http.DoJSON(ctx, http.MethodPost, "/v1/trips", body, &resp); err != nil {
		return "", fmt.Errorf("create trip: %w", err)
	}
	if resp.TripID == "" {
		return "", errors.New("create trip: response has no trip id")
	}
	return resp.TripID, nil
}
