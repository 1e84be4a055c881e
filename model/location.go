package model

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// LocationEntry describes a cached point of interest.
type LocationEntry struct {
	// ID is the opaque key assigned when the entry is first stored.
	ID string `json:"id"`
	// Name is the display name of the place.
	Name string `json:"name"`
	// Category is the search category that produced the entry, such as
	// "food" or "nature/park".
	Category string `json:"category,omitempty"`
	// Latitude in degrees.
	Latitude float64 `json:"latitude"`
	// Longitude in degrees.
	Longitude float64 `json:"longitude"`
	// Address is the display address. Its normalized form is the key used to
	// detect duplicate places.
	Address string `json:"address"`
	// URL is the place's web site, if known.
	URL string `json:"url,omitempty"`
	// Rating is the provider rating, 0 when unknown.
	Rating float64 `json:"rating"`
	// Hours holds the weekly opening hours, one description per day.
	Hours []string `json:"hours"`
	// Photos is a set of photo URLs.
	Photos []string `json:"photos"`
	// UpdatedAt is the time the entry was last written.
	UpdatedAt time.Time `json:"updatedAt"`
}

// Candidate is a LocationEntry annotated with its distance from a request
// origin.
type Candidate struct {
	LocationEntry
	// Distance is the squared planar distance, in degrees squared, from the
	// origin the candidate was ranked against.
	Distance float64 `json:"distance"`
}

// AggregationRequest asks for places in each category near Origin.
type AggregationRequest struct {
	Origin     Point
	Categories []string
}

// Point returns the entry's coordinates.
func (e LocationEntry) Point() Point {
	return Point{Lat: e.Latitude, Lon: e.Longitude}
}

// AddressKey returns the normalized address used for deduplication.
func (e LocationEntry) AddressKey() string {
	return NormalizeAddress(e.Address)
}

// Normalize fills in defaults for optional fields and removes duplicate
// photos, keeping the first occurrence of each.
func (e *LocationEntry) Normalize() {
	if e.Hours == nil {
		e.Hours = []string{}
	}
	if len(e.Photos) == 0 {
		e.Photos = []string{}
		return
	}
	seen := make(map[string]struct{}, len(e.Photos))
	photos := e.Photos[:0:0]
	for _, p := range e.Photos {
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		photos = append(photos, p)
	}
	e.Photos = photos
}

// Validate checks that the entry can be stored.
func (e LocationEntry) Validate() error {
	if e.AddressKey() == "" {
		return errEmptyAddress
	}
	return e.Point().Validate()
}

// NormalizeAddress case-folds s, trims it, and collapses runs of whitespace
// into a single space.
func NormalizeAddress(s string) string {
	return strings.Join(strings.Fields(cases.Fold().String(s)), " ")
}
