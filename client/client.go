// Package client is an HTTP client for the recommendation API served by
// package server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/headStarter-Travel-app/travelAppBackend/apierror"
	"github.com/headStarter-Travel-app/travelAppBackend/model"
	"github.com/headStarter-Travel-app/travelAppBackend/recommend"
	"github.com/headStarter-Travel-app/travelAppBackend/server"
)

const (
	healthPath    = "health"
	initialPath   = "initial-recommendations"
	proximityPath = "proximity-recommendations"
	detailsPath   = "place-details"
	tokenPath     = "token-status"
)

// Client calls a recommendation server.
type Client struct {
	c            *http.Client
	healthURL    *url.URL
	initialURL   *url.URL
	proximityURL *url.URL
	detailsURL   *url.URL
	tokenURL     *url.URL
}

// New creates a new recommendation API client.
func New(baseURL string, options ...Option) (*Client, error) {
	opts, err := getOpts(options)
	if err != nil {
		return nil, err
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("url must have http or https scheme: %s", baseURL)
	}
	u.Path = ""

	return &Client{
		c:            opts.httpClient,
		healthURL:    u.JoinPath(healthPath),
		initialURL:   u.JoinPath(initialPath),
		proximityURL: u.JoinPath(proximityPath),
		detailsURL:   u.JoinPath(detailsPath),
		tokenURL:     u.JoinPath(tokenPath),
	}, nil
}

// Health returns nil if the server reports that it is healthy.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, c.healthURL.String(), nil)
	return err
}

// Recommendations asks for places near origin. Empty categories use the
// server's defaults, and a limit of 0 uses the server's default limit.
func (c *Client) Recommendations(ctx context.Context, origin model.Point, categories []string, limit int) (*server.RecommendationsResponse, error) {
	u := *c.initialURL
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(origin.Lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(origin.Lon, 'f', -1, 64))
	if len(categories) != 0 {
		q.Set("categories", strings.Join(categories, ","))
	}
	if limit != 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	u.RawQuery = q.Encode()

	body, err := c.do(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	var resp server.RecommendationsResponse
	if err = json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ProximityRecommendations asks for places near the centroid of a group of
// locations.
func (c *Client) ProximityRecommendations(ctx context.Context, req server.ProximityRequest) (*server.RecommendationsResponse, error) {
	data, err := json.Marshal(&req)
	if err != nil {
		return nil, err
	}
	body, err := c.do(ctx, http.MethodPost, c.proximityURL.String(), data)
	if err != nil {
		return nil, err
	}
	var resp server.RecommendationsResponse
	if err = json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// PlaceDetails looks up a place by name and address.
func (c *Client) PlaceDetails(ctx context.Context, name, address string) (model.LocationEntry, error) {
	data, err := json.Marshal(&server.PlaceDetailsRequest{Name: name, Address: address})
	if err != nil {
		return model.LocationEntry{}, err
	}
	body, err := c.do(ctx, http.MethodPost, c.detailsURL.String(), data)
	if err != nil {
		return model.LocationEntry{}, err
	}
	var entry model.LocationEntry
	if err = json.Unmarshal(body, &entry); err != nil {
		return model.LocationEntry{}, err
	}
	return entry, nil
}

// TokenStatus returns the state of the server's provider credential.
func (c *Client) TokenStatus(ctx context.Context) (recommend.TokenStatus, error) {
	body, err := c.do(ctx, http.MethodGet, c.tokenURL.String(), nil)
	if err != nil {
		return recommend.TokenStatus{}, err
	}
	var status recommend.TokenStatus
	if err = json.Unmarshal(body, &status); err != nil {
		return recommend.TokenStatus{}, err
	}
	return status, nil
}

func (c *Client) do(ctx context.Context, method, u string, data []byte) ([]byte, error) {
	var reqBody io.Reader
	if data != nil {
		reqBody = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Add("Accept", "application/json")
	if data != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp.StatusCode, body)
	}
	return body, nil
}

// decodeError returns the error encoded in a server error response, keeping
// the response status.
func decodeError(status int, body []byte) error {
	var msg apierror.ErrorMessage
	if json.Unmarshal(body, &msg) != nil || msg.Message == "" {
		return apierror.FromResponse(status, body)
	}
	err := errors.New(msg.Message)
	if len(msg.Failures) != 0 {
		err = fmt.Errorf("%w (failed: %s)", err, strings.Join(msg.Failures, "; "))
	}
	return apierror.New(err, status)
}
