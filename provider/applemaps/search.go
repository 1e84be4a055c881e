// Package applemaps searches for places with the Apple Maps Server API and
// issues the access tokens that API requires.
package applemaps

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/headStarter-Travel-app/travelAppBackend/model"
	"github.com/headStarter-Travel-app/travelAppBackend/provider"
	logging "github.com/ipfs/go-log/v2"
)

var log = logging.Logger("applemaps")

const (
	// DefaultBaseURL is the Apple Maps Server API endpoint.
	DefaultBaseURL = "https://maps-api.apple.com"

	searchPath = "/v1/search"
	language   = "en-US"
)

type searchResponse struct {
	Results []place `json:"results"`
}

type place struct {
	Name                  string      `json:"name"`
	Coordinate            *coordinate `json:"coordinate"`
	FormattedAddressLines []string    `json:"formattedAddressLines"`
	PoiCategory           string      `json:"poiCategory"`
	URL                   string      `json:"url"`
}

type coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Client is a provider.Provider that queries Apple Maps search.
type Client struct {
	cfg    provider.Config
	url    *url.URL
	client *http.Client
	tokens provider.TokenSource
}

var _ provider.Provider = (*Client)(nil)

// New creates a Client that authenticates with tokens from ts.
func New(ts provider.TokenSource, options ...provider.Option) (*Client, error) {
	if ts == nil {
		return nil, errors.New("nil token source")
	}
	cfg, err := provider.GetOpts(DefaultBaseURL, options)
	if err != nil {
		return nil, err
	}
	u, err := cfg.ParseBaseURL()
	if err != nil {
		return nil, err
	}
	return &Client{
		cfg:    cfg,
		url:    u.JoinPath(searchPath),
		client: cfg.NewHTTPClient(),
		tokens: ts,
	}, nil
}

func (c *Client) Name() string {
	return "applemaps"
}

func (c *Client) Search(ctx context.Context, q provider.Query) ([]model.LocationEntry, error) {
	tok, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	limit := q.Limit
	if limit == 0 {
		limit = c.cfg.Limit
	}
	u := *c.url
	params := url.Values{}
	params.Set("q", q.Text)
	params.Set("searchLocation", fmt.Sprintf("%s,%s",
		strconv.FormatFloat(q.Origin.Lat, 'f', -1, 64),
		strconv.FormatFloat(q.Origin.Lon, 'f', -1, 64)))
	params.Set("lang", language)
	params.Set("limit", strconv.Itoa(limit))
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	c.cfg.AddHeaders(req)
	req.Header.Set("Authorization", "Bearer "+tok)

	body, err := provider.Do(c.client, req)
	if err != nil {
		if provider.IsUnauthorized(err) {
			provider.InvalidateToken(c.tokens)
		}
		return nil, err
	}

	var resp searchResponse
	if err = json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("cannot decode search response: %w", err)
	}

	entries := make([]model.LocationEntry, 0, len(resp.Results))
	for _, p := range resp.Results {
		if p.Coordinate == nil {
			log.Debugw("Skipping result without coordinates", "name", p.Name)
			continue
		}
		e := model.LocationEntry{
			Name:      p.Name,
			Category:  q.Text,
			Latitude:  p.Coordinate.Latitude,
			Longitude: p.Coordinate.Longitude,
			Address:   strings.Join(p.FormattedAddressLines, ", "),
			URL:       p.URL,
		}
		e.Normalize()
		entries = append(entries, e)
	}
	return entries, nil
}
