package model_test

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/headStarter-Travel-app/travelAppBackend/apierror"
	"github.com/headStarter-Travel-app/travelAppBackend/model"
	"github.com/stretchr/testify/require"
)

func TestNormalizeAddress(t *testing.T) {
	require.Equal(t, "1 market st, san francisco", model.NormalizeAddress("  1 Market St,\tSan   Francisco \n"))
	require.Equal(t, model.NormalizeAddress("ÉCOLE 5"), model.NormalizeAddress("école 5"))
	require.Equal(t, "", model.NormalizeAddress(" \t "))

	e := model.LocationEntry{Address: "10  Main St"}
	require.Equal(t, "10 main st", e.AddressKey())
}

func TestBoundingBox(t *testing.T) {
	origin := model.Point{Lat: 37.78, Lon: -122.43}
	bbox := model.NewBoundingBox(origin, model.DefaultMargin)
	require.NoError(t, bbox.Validate())
	require.InDelta(t, 37.73, bbox.LatMin, 1e-9)
	require.InDelta(t, 37.83, bbox.LatMax, 1e-9)
	require.InDelta(t, -122.48, bbox.LonMin, 1e-9)
	require.InDelta(t, -122.38, bbox.LonMax, 1e-9)

	require.True(t, bbox.Contains(origin))
	require.True(t, bbox.Contains(model.Point{Lat: bbox.LatMax, Lon: bbox.LonMin}))
	require.False(t, bbox.Contains(model.Point{Lat: 37.90, Lon: -122.43}))

	// Nominal edges are inside even though origin-margin drifts past them.
	require.True(t, bbox.Contains(model.Point{Lat: 37.73, Lon: -122.43}))
	require.True(t, bbox.Contains(model.Point{Lat: 37.78, Lon: -122.38}))
	require.False(t, bbox.Contains(model.Point{Lat: 37.7299, Lon: -122.43}))

	// Degenerate box contains only its point.
	pt := model.NewBoundingBox(origin, 0)
	require.NoError(t, pt.Validate())
	require.True(t, pt.Contains(origin))

	bad := model.BoundingBox{LatMin: 2, LatMax: 1}
	err := bad.Validate()
	require.ErrorIs(t, err, apierror.ErrValidation)

	bad = model.BoundingBox{LonMin: 2, LonMax: 1}
	require.ErrorIs(t, bad.Validate(), apierror.ErrValidation)

	bad = model.BoundingBox{LatMin: math.NaN()}
	require.ErrorIs(t, bad.Validate(), apierror.ErrValidation)
}

func TestPointValidate(t *testing.T) {
	require.NoError(t, model.Point{Lat: 90, Lon: -180}.Validate())
	require.ErrorIs(t, model.Point{Lat: 90.1}.Validate(), apierror.ErrValidation)
	require.ErrorIs(t, model.Point{Lon: 181}.Validate(), apierror.ErrValidation)
	require.ErrorIs(t, model.Point{Lat: math.Inf(1)}.Validate(), apierror.ErrValidation)
}

func TestEntryNormalize(t *testing.T) {
	var e model.LocationEntry
	e.Normalize()
	require.NotNil(t, e.Hours)
	require.NotNil(t, e.Photos)

	data, err := json.Marshal(e)
	require.NoError(t, err)
	require.Contains(t, string(data), `"hours":[]`)
	require.Contains(t, string(data), `"photos":[]`)

	e.Photos = []string{"a.jpg", "b.jpg", "a.jpg", "", "c.jpg", "b.jpg"}
	e.Normalize()
	require.Equal(t, []string{"a.jpg", "b.jpg", "c.jpg"}, e.Photos)
}

func TestEntryValidate(t *testing.T) {
	e := model.LocationEntry{Name: "Cafe", Latitude: 1, Longitude: 2}
	require.ErrorIs(t, e.Validate(), apierror.ErrValidation)

	e.Address = "1 Main St"
	require.NoError(t, e.Validate())

	e.Latitude = 100
	require.ErrorIs(t, e.Validate(), apierror.ErrValidation)
}
