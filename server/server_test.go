package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/headStarter-Travel-app/travelAppBackend/aggregator"
	"github.com/headStarter-Travel-app/travelAppBackend/apierror"
	"github.com/headStarter-Travel-app/travelAppBackend/internal/test"
	"github.com/headStarter-Travel-app/travelAppBackend/model"
	"github.com/headStarter-Travel-app/travelAppBackend/ranker"
	"github.com/headStarter-Travel-app/travelAppBackend/recommend"
	"github.com/headStarter-Travel-app/travelAppBackend/server"
	"github.com/stretchr/testify/require"
)

type fakeRecommender struct {
	mu         sync.Mutex
	entries    []model.LocationEntry
	failures   []aggregator.Failure
	err        error
	origin     model.Point
	categories []string
	topK       int
}

func (f *fakeRecommender) RecommendationsNear(_ context.Context, origin model.Point, categories []string, topK int) (recommend.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.origin = origin
	f.categories = categories
	f.topK = topK
	if f.err != nil {
		return recommend.Result{Failures: f.failures}, f.err
	}
	return recommend.Result{Candidates: ranker.Rank(f.entries, origin, topK), Failures: f.failures}, nil
}

func (f *fakeRecommender) ProximityRecommendations(_ context.Context, points []model.Point, interests []string, topK int) (model.Point, recommend.Result, error) {
	center, err := ranker.Centroid(points)
	if err != nil {
		return model.Point{}, recommend.Result{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.categories = interests
	f.topK = topK
	return center, recommend.Result{Candidates: ranker.Rank(f.entries, center, topK), Cached: true}, nil
}

func (f *fakeRecommender) PlaceDetails(_ context.Context, name, address string) (model.LocationEntry, error) {
	for _, e := range f.entries {
		if e.Name == name || (address != "" && e.AddressKey() == model.NormalizeAddress(address)) {
			return e, nil
		}
	}
	if name == "" && address == "" {
		return model.LocationEntry{}, apierror.Validation("name or address required")
	}
	return model.LocationEntry{}, apierror.NotFound("no place matches %q", name)
}

func (f *fakeRecommender) TokenStatus() recommend.TokenStatus {
	return recommend.TokenStatus{State: "valid", ExpiresAt: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func newServer(t *testing.T, f *fakeRecommender) *server.Server {
	s, err := server.New("127.0.0.1:0", f, server.WithMaxLimit(50))
	require.NoError(t, err)
	return s
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	s := newServer(t, &fakeRecommender{})
	w := do(t, s, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestInitialRecommendations(t *testing.T) {
	f := &fakeRecommender{
		entries: []model.LocationEntry{
			test.Entry("Far", "2 Far St", 37.80, -122.45),
			test.Entry("Near", "1 Near St", 37.781, -122.431),
			test.Entry("Mid", "3 Mid St", 37.79, -122.44),
		},
		failures: []aggregator.Failure{{
			Category: "entertainment",
			Provider: "applemaps",
			Err:      apierror.Provider(errors.New("timeout")),
		}},
	}
	s := newServer(t, f)

	w := do(t, s, http.MethodGet, "/initial-recommendations?lat=37.78&lon=-122.43&categories=food,nature/park&limit=2", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, model.Point{Lat: 37.78, Lon: -122.43}, f.origin)
	require.Equal(t, []string{"food", "nature/park"}, f.categories)
	require.Equal(t, 2, f.topK)

	var resp server.RecommendationsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Recommendations, 2)
	require.Equal(t, "Near", resp.Recommendations[0].Name)
	require.Equal(t, "Mid", resp.Recommendations[1].Name)
	require.Equal(t, []string{}, resp.Recommendations[0].Photos)
	require.Len(t, resp.Failures, 1)
	require.Equal(t, "entertainment", resp.Failures[0].Category)
	require.Contains(t, resp.Failures[0].Error, "timeout")
}

func TestInitialRecommendationsErrors(t *testing.T) {
	f := &fakeRecommender{}
	s := newServer(t, f)

	for _, target := range []string{
		"/initial-recommendations?lon=1",
		"/initial-recommendations?lat=abc&lon=1",
		"/initial-recommendations?lat=1&lon=1&limit=500",
		"/initial-recommendations?lat=1&lon=1&limit=-1",
	} {
		w := do(t, s, http.MethodGet, target, "")
		require.Equal(t, http.StatusBadRequest, w.Code, target)
		err := apierror.DecodeError(w.Body.Bytes())
		require.Equal(t, http.StatusBadRequest, apierror.StatusOf(err))
	}

	f.err = apierror.NotFound("no places found")
	f.failures = []aggregator.Failure{{Category: "food", Err: apierror.Provider(errors.New("upstream down"))}}
	w := do(t, s, http.MethodGet, "/initial-recommendations?lat=1&lon=1", "")
	require.Equal(t, http.StatusNotFound, w.Code)
	var msg apierror.ErrorMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &msg))
	require.Equal(t, http.StatusNotFound, msg.Status)
	require.Len(t, msg.Failures, 1)
	require.Contains(t, msg.Failures[0], "upstream down")

	f.err = apierror.Auth(errors.New("no token"))
	f.failures = nil
	w = do(t, s, http.MethodGet, "/initial-recommendations?lat=1&lon=1", "")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	f.err = errors.New("unclassified")
	w = do(t, s, http.MethodGet, "/initial-recommendations?lat=1&lon=1", "")
	require.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestProximityRecommendations(t *testing.T) {
	f := &fakeRecommender{
		entries: []model.LocationEntry{
			test.Entry("A", "1 A St", 1.0, 1.0),
			test.Entry("B", "1 B St", 1.02, 1.02),
		},
	}
	s := newServer(t, f)

	w := do(t, s, http.MethodPost, "/proximity-recommendations",
		`{"locations":[{"lat":0,"lon":0},{"lat":2,"lon":2}],"interests":["museum"],"limit":1}`)
	require.Equal(t, http.StatusOK, w.Code)
	var resp server.RecommendationsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, model.Point{Lat: 1, Lon: 1}, resp.Origin)
	require.True(t, resp.Cached)
	require.Len(t, resp.Recommendations, 1)
	require.Equal(t, "A", resp.Recommendations[0].Name)
	require.Equal(t, []string{"museum"}, f.categories)
	require.Equal(t, 1, f.topK)

	w = do(t, s, http.MethodPost, "/proximity-recommendations", `{"locations":[]}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, http.MethodPost, "/proximity-recommendations", `{"locations":`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, http.MethodPost, "/proximity-recommendations", `{"locations":[{"lat":0,"lon":0}],"limit":51}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPlaceDetails(t *testing.T) {
	f := &fakeRecommender{
		entries: []model.LocationEntry{test.Entry("Tartine", "600 Guerrero St", 37.76, -122.42)},
	}
	s := newServer(t, f)

	w := do(t, s, http.MethodPost, "/place-details", `{"name":"","address":"600 guerrero st"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var e model.LocationEntry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &e))
	require.Equal(t, "Tartine", e.Name)

	w = do(t, s, http.MethodPost, "/place-details", `{"name":"Nope"}`)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, s, http.MethodPost, "/place-details", `{}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTokenStatus(t *testing.T) {
	s := newServer(t, &fakeRecommender{})
	w := do(t, s, http.MethodGet, "/token-status", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"state":"valid","expiresAt":"2030-01-01T00:00:00Z"}`, w.Body.String())
}

func TestStartShutdown(t *testing.T) {
	s := newServer(t, &fakeRecommender{})
	require.NoError(t, s.Start())
	require.NotEqual(t, "127.0.0.1:0", s.Addr())

	resp, err := http.Get("http://" + s.Addr() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))
}

func TestNewErrors(t *testing.T) {
	_, err := server.New(":0", nil)
	require.Error(t, err)
	_, err = server.New(":0", &fakeRecommender{}, server.WithMaxLimit(0))
	require.Error(t, err)
}
