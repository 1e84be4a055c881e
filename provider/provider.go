// Package provider defines the interface to external place-search services
// and the HTTP plumbing shared by their adapters.
package provider

import (
	"context"
	"io"
	"net/http"

	"github.com/headStarter-Travel-app/travelAppBackend/apierror"
	"github.com/headStarter-Travel-app/travelAppBackend/model"
)

// Query asks a provider for places matching Text near Origin.
type Query struct {
	// Text is the search text, usually a category such as "food".
	Text string
	// Origin biases results toward this point.
	Origin model.Point
	// Limit is the maximum number of results wanted. 0 uses the provider
	// default.
	Limit int
}

// Provider searches an external place database. Implementations map their
// own response schema to LocationEntry values, filling unknown ratings with
// 0 and missing hours and photos with empty lists.
type Provider interface {
	// Name identifies the provider in logs and diagnostics.
	Name() string
	// Search returns the places matching q. The Category of each returned
	// entry is q.Text. Search must return promptly once ctx is done.
	Search(ctx context.Context, q Query) ([]model.LocationEntry, error)
}

// TokenSource supplies the bearer credential for provider requests.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource that always returns the same token.
type StaticToken string

func (s StaticToken) Token(context.Context) (string, error) {
	return string(s), nil
}

// InvalidateToken tells ts that its current token was rejected, if ts
// supports being told.
func InvalidateToken(ts TokenSource) {
	if inv, ok := ts.(interface{ Invalidate() }); ok {
		inv.Invalidate()
	}
}

// Do sends req and returns the response body. A response status other than
// 2xx is returned as an apierror.Error carrying the status and body text.
func Do(client *http.Client, req *http.Request) ([]byte, error) {
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apierror.FromResponse(resp.StatusCode, body)
	}
	return body, nil
}

// IsUnauthorized reports whether err is a 401 response.
func IsUnauthorized(err error) bool {
	return apierror.StatusOf(err) == http.StatusUnauthorized
}
