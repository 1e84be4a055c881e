package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/headStarter-Travel-app/travelAppBackend/apierror"
	"github.com/stretchr/testify/require"
)

func TestQueryReportsServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write(apierror.EncodeError(apierror.NotFound("no places near origin")))
	}))
	defer ts.Close()

	serverURL = ts.URL
	queryLat, queryLon = 37.78, -122.43
	defer func() { serverURL = "http://localhost:8000" }()

	var out bytes.Buffer
	queryCmd.SetOut(&out)
	queryCmd.SetContext(context.Background())
	err := runQuery(queryCmd, nil)
	require.EqualError(t, err, "server responded 404 Not Found: not found: no places near origin")
	require.Zero(t, out.Len())
}
