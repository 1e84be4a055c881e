package client_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/headStarter-Travel-app/travelAppBackend/aggregator"
	"github.com/headStarter-Travel-app/travelAppBackend/apierror"
	"github.com/headStarter-Travel-app/travelAppBackend/client"
	"github.com/headStarter-Travel-app/travelAppBackend/geocache"
	"github.com/headStarter-Travel-app/travelAppBackend/internal/test"
	"github.com/headStarter-Travel-app/travelAppBackend/model"
	"github.com/headStarter-Travel-app/travelAppBackend/recommend"
	"github.com/headStarter-Travel-app/travelAppBackend/server"
	"github.com/headStarter-Travel-app/travelAppBackend/store/dsstore"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*client.Client, *test.MockProvider) {
	gc, err := geocache.New(dsstore.NewMemory())
	require.NoError(t, err)
	mp := test.NewMockProvider("mock")
	agg, err := aggregator.New(gc, aggregator.WithProvider(mp))
	require.NoError(t, err)
	svc, err := recommend.New(gc, agg)
	require.NoError(t, err)
	s, err := server.New("127.0.0.1:0", svc)
	require.NoError(t, err)

	ts := httptest.NewServer(s)
	t.Cleanup(ts.Close)

	c, err := client.New(ts.URL, client.WithClient(ts.Client()))
	require.NoError(t, err)
	return c, mp
}

func TestRecommendations(t *testing.T) {
	ctx := context.Background()
	c, mp := setup(t)
	require.NoError(t, c.Health(ctx))

	mp.SetResults("food",
		test.Entry("Cafe", "1 Main St", 37.781, -122.431),
		test.Entry("Diner", "2 Main St", 37.79, -122.44))
	mp.SetError("park", errors.New("upstream down"))

	origin := model.Point{Lat: 37.78, Lon: -122.43}
	resp, err := c.Recommendations(ctx, origin, []string{"food", "park"}, 1)
	require.NoError(t, err)
	require.False(t, resp.Cached)
	require.Len(t, resp.Recommendations, 1)
	require.Equal(t, "Cafe", resp.Recommendations[0].Name)
	require.NotEmpty(t, resp.Recommendations[0].ID)
	require.Len(t, resp.Failures, 1)
	require.Equal(t, "park", resp.Failures[0].Category)

	resp, err = c.Recommendations(ctx, origin, []string{"food"}, 0)
	require.NoError(t, err)
	require.True(t, resp.Cached)
	require.Len(t, resp.Recommendations, 2)

	resp, err = c.ProximityRecommendations(ctx, server.ProximityRequest{
		Locations: []model.Point{{Lat: 37.77, Lon: -122.42}, {Lat: 37.79, Lon: -122.44}},
		Interests: []string{"food"},
	})
	require.NoError(t, err)
	require.True(t, resp.Cached)
	require.InDelta(t, 37.78, resp.Origin.Lat, 1e-9)
}

func TestErrors(t *testing.T) {
	ctx := context.Background()
	c, mp := setup(t)
	mp.SetError("food", errors.New("upstream down"))

	_, err := c.Recommendations(ctx, model.Point{Lat: 10, Lon: 10}, []string{"food"}, 0)
	require.Equal(t, http.StatusNotFound, apierror.StatusOf(err))
	require.ErrorContains(t, err, "upstream down")

	_, err = c.Recommendations(ctx, model.Point{Lat: 95, Lon: 10}, nil, 0)
	require.Equal(t, http.StatusBadRequest, apierror.StatusOf(err))

	_, err = c.PlaceDetails(ctx, "Nowhere", "")
	require.Equal(t, http.StatusNotFound, apierror.StatusOf(err))

	status, err := c.TokenStatus(ctx)
	require.NoError(t, err)
	require.Equal(t, "empty", status.State)

	_, err = client.New("ftp://example.com")
	require.Error(t, err)
}
