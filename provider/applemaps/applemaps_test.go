package applemaps_test

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/headStarter-Travel-app/travelAppBackend/apierror"
	"github.com/headStarter-Travel-app/travelAppBackend/model"
	"github.com/headStarter-Travel-app/travelAppBackend/provider"
	"github.com/headStarter-Travel-app/travelAppBackend/provider/applemaps"
	"github.com/stretchr/testify/require"
)

const searchBody = `{
  "results": [
    {
      "name": "Tartine Bakery",
      "coordinate": {"latitude": 37.7614, "longitude": -122.4241},
      "formattedAddressLines": ["600 Guerrero St", "San Francisco, CA  94110", "United States"],
      "poiCategory": "Bakery",
      "url": "https://tartinebakery.com"
    },
    {
      "name": "No coordinates"
    },
    {
      "name": "Dolores Park",
      "coordinate": {"latitude": 37.7596, "longitude": -122.4269},
      "formattedAddressLines": ["Dolores St & 19th St", "San Francisco, CA"]
    }
  ]
}`

type invalidatingSource struct {
	token       string
	invalidated atomic.Int32
}

func (s *invalidatingSource) Token(context.Context) (string, error) {
	return s.token, nil
}

func (s *invalidatingSource) Invalidate() {
	s.invalidated.Add(1)
}

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/search", r.URL.Path)
		require.Equal(t, "Bearer access-1", r.Header.Get("Authorization"))
		q := r.URL.Query()
		require.Equal(t, "food", q.Get("q"))
		require.Equal(t, "37.78,-122.43", q.Get("searchLocation"))
		require.Equal(t, "en-US", q.Get("lang"))
		require.Equal(t, "5", q.Get("limit"))
		io.WriteString(w, searchBody)
	}))
	defer srv.Close()

	c, err := applemaps.New(provider.StaticToken("access-1"), provider.WithBaseURL(srv.URL))
	require.NoError(t, err)
	require.Equal(t, "applemaps", c.Name())

	entries, err := c.Search(context.Background(), provider.Query{
		Text:   "food",
		Origin: model.Point{Lat: 37.78, Lon: -122.43},
	})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	e := entries[0]
	require.Equal(t, "Tartine Bakery", e.Name)
	require.Equal(t, "food", e.Category)
	require.Equal(t, "600 Guerrero St, San Francisco, CA  94110, United States", e.Address)
	require.Equal(t, "https://tartinebakery.com", e.URL)
	require.Equal(t, 37.7614, e.Latitude)
	require.Zero(t, e.Rating)
	require.NotNil(t, e.Hours)
	require.NotNil(t, e.Photos)
	require.Empty(t, e.Photos)

	require.Equal(t, "Dolores Park", entries[1].Name)
}

func TestSearchErrors(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusUnauthorized)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		code := int(status.Load())
		if code != http.StatusOK {
			http.Error(w, "token expired", code)
			return
		}
		io.WriteString(w, "{not json")
	}))
	defer srv.Close()

	ts := &invalidatingSource{token: "stale"}
	c, err := applemaps.New(ts, provider.WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = c.Search(context.Background(), provider.Query{Text: "food"})
	require.Error(t, err)
	require.Equal(t, http.StatusUnauthorized, apierror.StatusOf(err))
	require.Equal(t, int32(1), ts.invalidated.Load())

	status.Store(http.StatusInternalServerError)
	_, err = c.Search(context.Background(), provider.Query{Text: "food"})
	require.Equal(t, http.StatusInternalServerError, apierror.StatusOf(err))
	require.Equal(t, int32(1), ts.invalidated.Load())

	status.Store(http.StatusOK)
	_, err = c.Search(context.Background(), provider.Query{Text: "food"})
	require.ErrorContains(t, err, "cannot decode")
}

func TestSearchRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		io.WriteString(w, searchBody)
	}))
	defer srv.Close()

	c, err := applemaps.New(provider.StaticToken("t"),
		provider.WithBaseURL(srv.URL),
		provider.WithRetry(3, time.Millisecond, 5*time.Millisecond))
	require.NoError(t, err)

	entries, err := c.Search(context.Background(), provider.Query{Text: "food", Limit: 2})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, int32(3), calls.Load())
}

func newKeyPEM(t *testing.T) (*ecdsa.PrivateKey, []byte) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)
	return key, pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})
}

func TestIssuer(t *testing.T) {
	key, keyPEM := newKeyPEM(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/token", r.URL.Path)
		auth := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")

		var claims jwt.RegisteredClaims
		parsed, err := jwt.ParseWithClaims(auth, &claims, func(tk *jwt.Token) (any, error) {
			return &key.PublicKey, nil
		}, jwt.WithValidMethods([]string{"ES256"}))
		if err != nil || !parsed.Valid {
			http.Error(w, "bad auth token", http.StatusUnauthorized)
			return
		}
		require.Equal(t, "KEY123", parsed.Header["kid"])
		require.Equal(t, "TEAM42", claims.Issuer)
		io.WriteString(w, `{"accessToken":"access-xyz","expiresInSeconds":1800}`)
	}))
	defer srv.Close()

	iss, err := applemaps.NewIssuer("TEAM42", "KEY123", keyPEM, provider.WithBaseURL(srv.URL))
	require.NoError(t, err)

	before := time.Now()
	tok, err := iss.Issue(context.Background())
	require.NoError(t, err)
	require.Equal(t, "access-xyz", tok.Value)
	require.WithinDuration(t, before.Add(30*time.Minute), tok.ExpiresAt, 5*time.Second)
}

func TestIssuerRejected(t *testing.T) {
	_, keyPEM := newKeyPEM(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	iss, err := applemaps.NewIssuer("TEAM42", "KEY123", keyPEM, provider.WithBaseURL(srv.URL))
	require.NoError(t, err)
	_, err = iss.Issue(context.Background())
	require.ErrorContains(t, err, "invalid key")
	require.Equal(t, http.StatusUnauthorized, apierror.StatusOf(err))
}

func TestNewIssuerErrors(t *testing.T) {
	_, keyPEM := newKeyPEM(t)
	_, err := applemaps.NewIssuer("", "KEY123", keyPEM)
	require.Error(t, err)
	_, err = applemaps.NewIssuer("TEAM42", "KEY123", []byte("not a key"))
	require.ErrorContains(t, err, "cannot parse maps private key")
	_, err = applemaps.NewIssuer("TEAM42", "KEY123", keyPEM, provider.WithBaseURL("ftp://x"))
	require.Error(t, err)
}
