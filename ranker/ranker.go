// Package ranker orders location entries by planar distance from an origin.
//
// Distances are squared Euclidean distances in degree space. This is not
// geodesic distance; it is meant for ordering places within a few kilometres
// of each other.
package ranker

import (
	"slices"
	"sort"

	"github.com/headStarter-Travel-app/travelAppBackend/apierror"
	"github.com/headStarter-Travel-app/travelAppBackend/model"
)

// Centroid returns the arithmetic mean of points. Coordinates are summed in
// ascending order, so every ordering of the same points yields exactly the
// same result.
func Centroid(points []model.Point) (model.Point, error) {
	if len(points) == 0 {
		return model.Point{}, apierror.Validation("no points to average")
	}
	lats := make([]float64, len(points))
	lons := make([]float64, len(points))
	for i, p := range points {
		if err := p.Validate(); err != nil {
			return model.Point{}, err
		}
		lats[i] = p.Lat
		lons[i] = p.Lon
	}
	n := float64(len(points))
	return model.Point{
		Lat: sortedSum(lats) / n,
		Lon: sortedSum(lons) / n,
	}, nil
}

func sortedSum(vals []float64) float64 {
	slices.Sort(vals)
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum
}

// SquaredDistance returns the squared planar distance between a and b.
func SquaredDistance(a, b model.Point) float64 {
	dLat := a.Lat - b.Lat
	dLon := a.Lon - b.Lon
	return dLat*dLat + dLon*dLon
}

// Rank returns entries as candidates sorted by ascending distance from
// origin. Entries at equal distance keep their input order. If topK is
// positive, at most topK candidates are returned.
func Rank(entries []model.LocationEntry, origin model.Point, topK int) []model.Candidate {
	cands := make([]model.Candidate, len(entries))
	for i, e := range entries {
		cands[i] = model.Candidate{
			LocationEntry: e,
			Distance:      SquaredDistance(e.Point(), origin),
		}
	}
	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].Distance < cands[j].Distance
	})
	if topK > 0 && topK < len(cands) {
		cands = cands[:topK]
	}
	return cands
}

