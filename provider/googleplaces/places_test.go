package googleplaces_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/headStarter-Travel-app/travelAppBackend/apierror"
	"github.com/headStarter-Travel-app/travelAppBackend/model"
	"github.com/headStarter-Travel-app/travelAppBackend/provider"
	"github.com/headStarter-Travel-app/travelAppBackend/provider/googleplaces"
	"github.com/stretchr/testify/require"
)

const placesBody = `{
  "places": [
    {
      "id": "ChIJ1",
      "displayName": {"text": "Golden Gate Park", "languageCode": "en"},
      "formattedAddress": "San Francisco, CA, USA",
      "location": {"latitude": 37.7694, "longitude": -122.4862},
      "rating": 4.8,
      "websiteUri": "https://goldengatepark.com",
      "currentOpeningHours": {"weekdayDescriptions": ["Monday: Open 24 hours", "Tuesday: Open 24 hours"]},
      "photos": [{"name": "places/ChIJ1/photos/A"}, {"name": "places/ChIJ1/photos/A"}, {"name": "places/ChIJ1/photos/B"}]
    },
    {
      "id": "ChIJ2",
      "displayName": {"text": "Unrated Spot"},
      "formattedAddress": "1 Nowhere Ln",
      "location": {"latitude": 37.77, "longitude": -122.48}
    },
    {
      "id": "ChIJ3",
      "displayName": {"text": "No location"}
    }
  ]
}`

func TestSearch(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/places:searchText", r.URL.Path)
		require.Equal(t, "secret-key", r.Header.Get("X-Goog-Api-Key"))
		require.Contains(t, r.Header.Get("X-Goog-FieldMask"), "places.location")
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		io.WriteString(w, placesBody)
	}))
	defer srv.Close()

	c, err := googleplaces.New("secret-key", provider.WithBaseURL(srv.URL), provider.WithLimit(7))
	require.NoError(t, err)
	require.Equal(t, "googleplaces", c.Name())

	entries, err := c.Search(context.Background(), provider.Query{
		Text:   "nature/park",
		Origin: model.Point{Lat: 37.77, Lon: -122.48},
	})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	require.Equal(t, "nature/park", got["textQuery"])
	require.Equal(t, float64(7), got["maxResultCount"])
	center := got["locationBias"].(map[string]any)["circle"].(map[string]any)["center"].(map[string]any)
	require.Equal(t, 37.77, center["latitude"])

	park := entries[0]
	require.Equal(t, "Golden Gate Park", park.Name)
	require.Equal(t, "nature/park", park.Category)
	require.Equal(t, 4.8, park.Rating)
	require.Equal(t, []string{"Monday: Open 24 hours", "Tuesday: Open 24 hours"}, park.Hours)
	require.Equal(t, []string{
		srv.URL + "/v1/places/ChIJ1/photos/A/media?maxWidthPx=400",
		srv.URL + "/v1/places/ChIJ1/photos/B/media?maxWidthPx=400",
	}, park.Photos)

	spot := entries[1]
	require.Zero(t, spot.Rating)
	require.Equal(t, []string{}, spot.Hours)
	require.Equal(t, []string{}, spot.Photos)
}

func TestFindPlace(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req["textQuery"] == "nothing here" {
			io.WriteString(w, `{}`)
			return
		}
		require.Equal(t, float64(1), req["maxResultCount"])
		require.Nil(t, req["locationBias"])
		io.WriteString(w, placesBody)
	}))
	defer srv.Close()

	c, err := googleplaces.New("k", provider.WithBaseURL(srv.URL))
	require.NoError(t, err)

	e, found, err := c.FindPlace(context.Background(), "Golden Gate Park San Francisco")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "Golden Gate Park", e.Name)

	_, found, err = c.FindPlace(context.Background(), "nothing here")
	require.NoError(t, err)
	require.False(t, found)
}

func TestSearchUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":403,"message":"API key not valid"}}`, http.StatusForbidden)
	}))
	defer srv.Close()

	c, err := googleplaces.New("bad", provider.WithBaseURL(srv.URL))
	require.NoError(t, err)
	_, err = c.Search(context.Background(), provider.Query{Text: "food"})
	require.Equal(t, http.StatusForbidden, apierror.StatusOf(err))
	require.ErrorContains(t, err, "API key not valid")

	_, err = googleplaces.New("")
	require.Error(t, err)
}
