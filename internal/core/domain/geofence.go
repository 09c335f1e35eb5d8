package domain

import (
	"encoding/json"
	"math"

	"go.trai.ch/zerr"
)

const (
	// EarthRadiusMeters is the mean Earth radius used by the haversine distance.
	EarthRadiusMeters = 6_371_000.0

	// DefaultBufferMeters is the tolerance applied when a fence does not declare one.
	DefaultBufferMeters = 20.0
)

// FenceStatus is the outcome of a geo-fence check.
type FenceStatus string

const (
	// FenceInside means the location is within radius plus buffer.
	FenceInside FenceStatus = "INSIDE"
	// FenceOutside means the location is beyond radius plus buffer.
	FenceOutside FenceStatus = "OUTSIDE"
)

// Coordinate is a WGS84 latitude/longitude pair in degrees.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Validate checks that the coordinate is within the valid degree ranges.
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Latitude) || c.Latitude < -90 || c.Latitude > 90 {
		return zerr.With(zerr.Wrap(ErrInvalidCoordinates, "latitude out of range"), "latitude", c.Latitude)
	}
	if math.IsNaN(c.Longitude) || c.Longitude < -180 || c.Longitude > 180 {
		return zerr.With(zerr.Wrap(ErrInvalidCoordinates, "longitude out of range"), "longitude", c.Longitude)
	}
	return nil
}

// GeoFenceSpec describes a project's site boundary.
type GeoFenceSpec struct {
	Enabled      bool       `json:"enabled"`
	Center       Coordinate `json:"center"`
	RadiusMeters float64    `json:"radiusMeters"`
	BufferMeters float64    `json:"bufferMeters"`
}

// Validate checks the fence for a usable center and non-negative distances.
func (f GeoFenceSpec) Validate() error {
	if f.RadiusMeters < 0 || math.IsNaN(f.RadiusMeters) {
		return zerr.With(zerr.Wrap(ErrInvalidGeoFence, "radius must not be negative"), "radius_meters", f.RadiusMeters)
	}
	if f.BufferMeters < 0 || math.IsNaN(f.BufferMeters) {
		return zerr.With(zerr.Wrap(ErrInvalidGeoFence, "buffer must not be negative"), "buffer_meters", f.BufferMeters)
	}
	if !f.Enabled {
		return nil
	}
	if err := f.Center.Validate(); err != nil {
		return zerr.Wrap(err, "invalid fence center")
	}
	return nil
}

// GeoFenceResult is the outcome of validating a location against a fence.
type GeoFenceResult struct {
	DistanceMeters int         `json:"distanceMeters"`
	Status         FenceStatus `json:"status"`
	Violation      bool        `json:"violation"`
}

// Distance returns the great-circle distance in meters between two points.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := toRadians(lat1)
	phi2 := toRadians(lat2)
	dPhi := toRadians(lat2 - lat1)
	dLambda := toRadians(lon2 - lon1)

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusMeters * c
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Validate checks a location against a fence.
// A disabled fence accepts everything. Otherwise the location is accepted
// iff its unrounded distance to the center is at most radius plus buffer.
// A distance or limit that is not a finite number is a violation with
// DistanceMeters left at zero.
func Validate(lat, lon float64, fence GeoFenceSpec) GeoFenceResult {
	if !fence.Enabled {
		return GeoFenceResult{Status: FenceInside}
	}
	d := Distance(lat, lon, fence.Center.Latitude, fence.Center.Longitude)
	limit := fence.RadiusMeters + fence.BufferMeters
	if math.IsNaN(d) || math.IsInf(d, 0) || math.IsNaN(limit) {
		return GeoFenceResult{Status: FenceOutside, Violation: true}
	}
	res := GeoFenceResult{DistanceMeters: int(math.Round(d)), Status: FenceInside}
	if d > limit {
		res.Status = FenceOutside
		res.Violation = true
	}
	return res
}

// CheckLocation validates the inputs and then the location against the fence.
func CheckLocation(at Coordinate, fence GeoFenceSpec) (GeoFenceResult, error) {
	if err := at.Validate(); err != nil {
		return GeoFenceResult{}, err
	}
	if err := fence.Validate(); err != nil {
		return GeoFenceResult{}, err
	}
	return Validate(at.Latitude, at.Longitude, fence), nil
}

type fenceDTO struct {
	Enabled      *bool       `json:"enabled"`
	Center       *Coordinate `json:"center"`
	RadiusMeters *float64    `json:"radiusMeters"`
	BufferMeters *float64    `json:"bufferMeters"`

	SiteLatitude     *float64 `json:"siteLatitude"`
	SiteLongitude    *float64 `json:"siteLongitude"`
	SiteRadiusMeters *float64 `json:"siteRadiusMeters"`
}

// ParseProjectFence decodes a project's fence from its JSON settings.
// It understands the current {enabled, center, radiusMeters, bufferMeters}
// shape and the legacy {siteLatitude, siteLongitude, siteRadiusMeters} shape.
// A legacy fence is enabled. A missing buffer defaults to DefaultBufferMeters.
// A document with neither shape yields a disabled fence.
func ParseProjectFence(data []byte) (GeoFenceSpec, error) {
	var dto fenceDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return GeoFenceSpec{}, zerr.With(zerr.Wrap(ErrInvalidGeoFence, "failed to decode geo-fence"), "cause", err.Error())
	}

	fence := GeoFenceSpec{BufferMeters: DefaultBufferMeters}
	if dto.BufferMeters != nil {
		fence.BufferMeters = *dto.BufferMeters
	}

	switch {
	case dto.Center != nil:
		fence.Enabled = dto.Enabled == nil || *dto.Enabled
		fence.Center = *dto.Center
		if dto.RadiusMeters != nil {
			fence.RadiusMeters = *dto.RadiusMeters
		}
	case dto.SiteLatitude != nil && dto.SiteLongitude != nil:
		fence.Enabled = true
		fence.Center = Coordinate{Latitude: *dto.SiteLatitude, Longitude: *dto.SiteLongitude}
		if dto.SiteRadiusMeters != nil {
			fence.RadiusMeters = *dto.SiteRadiusMeters
		}
	default:
		return GeoFenceSpec{BufferMeters: fence.BufferMeters}, nil
	}

	if err := fence.Validate(); err != nil {
		return GeoFenceSpec{}, err
	}
	return fence, nil
}
