package dto

// LocationRequest carries either a point or a free-form address.
type LocationRequest struct {
	Lat     *float64 `json:"lat"`
	Lng     *float64 `json:"lng"`
	Address string   `json:"address"`
}

type VehicleRequest struct {
	Selection  string `json:"selection"`
	Passengers int    `json:"passengers"`
}

type PreTripResponse struct {
	Step             string `json:"step"`
	Pickup           *Point `json:"pickup,omitempty"`
	DropOff          *Point `json:"drop_off,omitempty"`
	PassengerCount   int    `json:"passenger_count"`
	VehicleSelection string `json:"vehicle_selection,omitempty"`
	TripID           string `json:"trip_id,omitempty"`
}

type TripCreatedResponse struct {
	TripID string `json:"trip_id"`
}
