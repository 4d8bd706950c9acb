package domain

import (
	"math"
	"time"
)

// Immutable geographic coordinates (longitude, latitude).
type Coordinates struct {
	Lon float64
	Lat float64
}

// Return coordinates as [lon, lat] for external API compatibility.
func (c Coordinates) CoordsToList() []float64 { return []float64{c.Lon, c.Lat} }

// A single device fix reported by the locator.
// Heading is degrees clockwise from true north.
type Location struct {
	Point          Coordinates
	HeadingDegrees float64
	SpeedKmh       float64
	AccuracyMeters float64
	RecordedAt     time.Time
}

const earthRadiusMeters = 6371000.0

func radians(d float64) float64 { return d * math.Pi / 180 }

// DistanceMeters is the great-circle (haversine) distance to o.
func (c Coordinates) DistanceMeters(o Coordinates) float64 {
	dLat := radians(o.Lat - c.Lat)
	dLon := radians(o.Lon - c.Lon)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(c.Lat))*math.Cos(radians(o.Lat))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(h))
}

// BearingDegrees is the initial bearing towards o, clockwise from true north
// in [0, 360).
func (c Coordinates) BearingDegrees(o Coordinates) float64 {
	lat1, lat2 := radians(c.Lat), radians(o.Lat)
	dLon := radians(o.Lon - c.Lon)
	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)
	deg := math.Atan2(y, x) * 180 / math.Pi
	return math.Mod(deg+360, 360)
}
