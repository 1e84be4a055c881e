package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/headStarter-Travel-app/travelAppBackend/aggregator"
	"github.com/headStarter-Travel-app/travelAppBackend/apierror"
	"github.com/headStarter-Travel-app/travelAppBackend/model"
	"github.com/headStarter-Travel-app/travelAppBackend/recommend"
)

// RecommendationsResponse is the body returned by both recommendation
// endpoints.
type RecommendationsResponse struct {
	Origin          model.Point       `json:"origin"`
	Recommendations []model.Candidate `json:"recommendations"`
	Cached          bool              `json:"cached"`
	Failures        []FailureInfo     `json:"failures,omitempty"`
}

// FailureInfo describes a category that could not be searched.
type FailureInfo struct {
	Category string `json:"category"`
	Provider string `json:"provider,omitempty"`
	Error    string `json:"error"`
}

// ProximityRequest is the body of a proximity recommendations request.
type ProximityRequest struct {
	Locations []model.Point `json:"locations"`
	Interests []string      `json:"interests"`
	Limit     int           `json:"limit"`
}

// PlaceDetailsRequest is the body of a place details request.
type PlaceDetailsRequest struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) initialRecommendations(c *gin.Context) {
	lat, err := parseCoord(c, "lat")
	if err != nil {
		writeError(c, err)
		return
	}
	lon, err := parseCoord(c, "lon")
	if err != nil {
		writeError(c, err)
		return
	}
	limit, err := s.parseLimit(c.Query("limit"))
	if err != nil {
		writeError(c, err)
		return
	}
	var categories []string
	if v := c.Query("categories"); v != "" {
		categories = strings.Split(v, ",")
	}

	origin := model.Point{Lat: lat, Lon: lon}
	res, err := s.svc.RecommendationsNear(c.Request.Context(), origin, categories, limit)
	if err != nil {
		writeError(c, err, res.Failures...)
		return
	}
	c.JSON(http.StatusOK, newResponse(origin, res, limit))
}

func (s *Server) proximityRecommendations(c *gin.Context) {
	var req ProximityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apierror.Validation("cannot decode request: %s", err))
		return
	}
	if req.Limit < 0 || req.Limit > s.maxLimit {
		writeError(c, apierror.Validation("limit must be between 0 and %d", s.maxLimit))
		return
	}
	center, res, err := s.svc.ProximityRecommendations(c.Request.Context(), req.Locations, req.Interests, req.Limit)
	if err != nil {
		writeError(c, err, res.Failures...)
		return
	}
	c.JSON(http.StatusOK, newResponse(center, res, 0))
}

func (s *Server) placeDetails(c *gin.Context) {
	var req PlaceDetailsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apierror.Validation("cannot decode request: %s", err))
		return
	}
	entry, err := s.svc.PlaceDetails(c.Request.Context(), req.Name, req.Address)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (s *Server) tokenStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.svc.TokenStatus())
}

func parseCoord(c *gin.Context, name string) (float64, error) {
	v := c.Query(name)
	if v == "" {
		return 0, apierror.Validation("missing %s", name)
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, apierror.Validation("invalid %s: %q", name, v)
	}
	return f, nil
}

func (s *Server) parseLimit(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 || n > s.maxLimit {
		return 0, apierror.Validation("limit must be between 0 and %d", s.maxLimit)
	}
	return n, nil
}

func newResponse(origin model.Point, res recommend.Result, limit int) RecommendationsResponse {
	cands := res.Candidates
	if limit > 0 && limit < len(cands) {
		cands = cands[:limit]
	}
	if cands == nil {
		cands = []model.Candidate{}
	}
	resp := RecommendationsResponse{
		Origin:          origin,
		Recommendations: cands,
		Cached:          res.Cached,
	}
	for _, f := range res.Failures {
		resp.Failures = append(resp.Failures, FailureInfo{
			Category: f.Category,
			Provider: f.Provider,
			Error:    f.Err.Error(),
		})
	}
	return resp
}

func writeError(c *gin.Context, err error, failures ...aggregator.Failure) {
	errs := make([]error, len(failures))
	for i, f := range failures {
		errs[i] = f
	}
	c.Data(apierror.StatusOf(err), "application/json", apierror.EncodeError(err, errs...))
}
