// Package googleplaces searches for places with the Google Places API (New).
package googleplaces

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/headStarter-Travel-app/travelAppBackend/model"
	"github.com/headStarter-Travel-app/travelAppBackend/provider"
	logging "github.com/ipfs/go-log/v2"
)

var log = logging.Logger("googleplaces")

const (
	// DefaultBaseURL is the Places API endpoint.
	DefaultBaseURL = "https://places.googleapis.com"

	searchTextPath = "/v1/places:searchText"

	fieldMask = "places.id,places.displayName,places.formattedAddress,places.location," +
		"places.rating,places.websiteUri,places.currentOpeningHours.weekdayDescriptions,places.photos"

	// biasRadius is the radius, in metres, of the circle results are biased
	// toward.
	biasRadius = 5000.0
	// photoWidth is the maximum width requested for photo media.
	photoWidth = 400
	maxPhotos  = 5
)

type searchTextRequest struct {
	TextQuery      string        `json:"textQuery"`
	MaxResultCount int           `json:"maxResultCount,omitempty"`
	LocationBias   *locationBias `json:"locationBias,omitempty"`
}

type locationBias struct {
	Circle circle `json:"circle"`
}

type circle struct {
	Center latLng  `json:"center"`
	Radius float64 `json:"radius"`
}

type latLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type searchTextResponse struct {
	Places []place `json:"places"`
}

type place struct {
	ID          string `json:"id"`
	DisplayName *struct {
		Text string `json:"text"`
	} `json:"displayName"`
	FormattedAddress    string   `json:"formattedAddress"`
	Location            *latLng  `json:"location"`
	Rating              *float64 `json:"rating"`
	WebsiteURI          string   `json:"websiteUri"`
	CurrentOpeningHours *struct {
		WeekdayDescriptions []string `json:"weekdayDescriptions"`
	} `json:"currentOpeningHours"`
	Photos []struct {
		Name string `json:"name"`
	} `json:"photos"`
}

// Client is a provider.Provider backed by Places text search. It also looks
// up details for a single place.
type Client struct {
	cfg    provider.Config
	base   *url.URL
	url    *url.URL
	client *http.Client
	apiKey string
}

var _ provider.Provider = (*Client)(nil)

// New creates a Client that authenticates with apiKey.
func New(apiKey string, options ...provider.Option) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("google places api key required")
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
		base:   u,
		url:    u.JoinPath(searchTextPath),
		client: cfg.NewHTTPClient(),
		apiKey: apiKey,
	}, nil
}

func (c *Client) Name() string {
	return "googleplaces"
}

func (c *Client) Search(ctx context.Context, q provider.Query) ([]model.LocationEntry, error) {
	limit := q.Limit
	if limit == 0 {
		limit = c.cfg.Limit
	}
	places, err := c.searchText(ctx, searchTextRequest{
		TextQuery:      q.Text,
		MaxResultCount: limit,
		LocationBias: &locationBias{
			Circle: circle{
				Center: latLng{Latitude: q.Origin.Lat, Longitude: q.Origin.Lon},
				Radius: biasRadius,
			},
		},
	})
	if err != nil {
		return nil, err
	}
	entries := make([]model.LocationEntry, 0, len(places))
	for _, p := range places {
		e, ok := c.toEntry(p)
		if !ok {
			continue
		}
		e.Category = q.Text
		entries = append(entries, e)
	}
	return entries, nil
}

// FindPlace returns the best match for text, typically a place name and
// address. Found is false if there is no match.
func (c *Client) FindPlace(ctx context.Context, text string) (model.LocationEntry, bool, error) {
	places, err := c.searchText(ctx, searchTextRequest{
		TextQuery:      text,
		MaxResultCount: 1,
	})
	if err != nil {
		return model.LocationEntry{}, false, err
	}
	for _, p := range places {
		if e, ok := c.toEntry(p); ok {
			return e, true, nil
		}
	}
	return model.LocationEntry{}, false, nil
}

func (c *Client) searchText(ctx context.Context, body searchTextRequest) ([]place, error) {
	data, err := json.Marshal(&body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url.String(), bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	c.cfg.AddHeaders(req)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", c.apiKey)
	req.Header.Set("X-Goog-FieldMask", fieldMask)

	respData, err := provider.Do(c.client, req)
	if err != nil {
		return nil, err
	}
	var resp searchTextResponse
	if err = json.Unmarshal(respData, &resp); err != nil {
		return nil, fmt.Errorf("cannot decode places response: %w", err)
	}
	return resp.Places, nil
}

func (c *Client) toEntry(p place) (model.LocationEntry, bool) {
	if p.Location == nil {
		log.Debugw("Skipping place without location", "id", p.ID)
		return model.LocationEntry{}, false
	}
	e := model.LocationEntry{
		Latitude:  p.Location.Latitude,
		Longitude: p.Location.Longitude,
		Address:   p.FormattedAddress,
		URL:       p.WebsiteURI,
	}
	if p.DisplayName != nil {
		e.Name = p.DisplayName.Text
	}
	if p.Rating != nil {
		e.Rating = *p.Rating
	}
	if p.CurrentOpeningHours != nil {
		e.Hours = p.CurrentOpeningHours.WeekdayDescriptions
	}
	for _, photo := range p.Photos {
		if len(e.Photos) == maxPhotos {
			break
		}
		if photo.Name == "" {
			continue
		}
		u := c.base.JoinPath("v1", photo.Name, "media")
		u.RawQuery = fmt.Sprintf("maxWidthPx=%d", photoWidth)
		e.Photos = append(e.Photos, u.String())
	}
	e.Normalize()
	return e, true
}
