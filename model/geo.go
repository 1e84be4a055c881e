package model

import (
	"math"

	"github.com/headStarter-Travel-app/travelAppBackend/apierror"
)

// DefaultMargin is the half-width, in degrees, of the box searched around an
// origin.
const DefaultMargin = 0.05

// EdgeTolerance absorbs floating point drift in box edges computed as
// origin ± margin, so a point on the nominal edge stays inside.
const EdgeTolerance = 1e-9

var errEmptyAddress = apierror.Validation("entry has no address")

// Point is a latitude/longitude pair in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Validate returns a validation error if p is not a coordinate on Earth.
func (p Point) Validate() error {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lon, 0) {
		return apierror.Validation("coordinates must be finite")
	}
	if p.Lat < -90 || p.Lat > 90 {
		return apierror.Validation("latitude %v out of range", p.Lat)
	}
	if p.Lon < -180 || p.Lon > 180 {
		return apierror.Validation("longitude %v out of range", p.Lon)
	}
	return nil
}

// BoundingBox is an axis-aligned latitude/longitude rectangle. All edges are
// inclusive.
type BoundingBox struct {
	LatMin float64 `json:"latMin"`
	LatMax float64 `json:"latMax"`
	LonMin float64 `json:"lonMin"`
	LonMax float64 `json:"lonMax"`
}

// NewBoundingBox returns the box extending margin degrees from origin along
// each axis.
func NewBoundingBox(origin Point, margin float64) BoundingBox {
	return BoundingBox{
		LatMin: origin.Lat - margin,
		LatMax: origin.Lat + margin,
		LonMin: origin.Lon - margin,
		LonMax: origin.Lon + margin,
	}
}

func (b BoundingBox) Validate() error {
	for _, v := range [...]float64{b.LatMin, b.LatMax, b.LonMin, b.LonMax} {
		if math.IsNaN(v) {
			return apierror.Validation("bounding box has NaN edge")
		}
	}
	if b.LatMin > b.LatMax {
		return apierror.Validation("latMin %v > latMax %v", b.LatMin, b.LatMax)
	}
	if b.LonMin > b.LonMax {
		return apierror.Validation("lonMin %v > lonMax %v", b.LonMin, b.LonMax)
	}
	return nil
}

// Widen returns b grown by d degrees on every side.
func (b BoundingBox) Widen(d float64) BoundingBox {
	return BoundingBox{
		LatMin: b.LatMin - d,
		LatMax: b.LatMax + d,
		LonMin: b.LonMin - d,
		LonMax: b.LonMax + d,
	}
}

// Contains reports whether p lies inside or on the edge of b, within
// EdgeTolerance.
func (b BoundingBox) Contains(p Point) bool {
	w := b.Widen(EdgeTolerance)
	return p.Lat >= w.LatMin && p.Lat <= w.LatMax &&
		p.Lon >= w.LonMin && p.Lon <= w.LonMax
}
