// Package server exposes the recommendation service over HTTP.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/headStarter-Travel-app/travelAppBackend/model"
	"github.com/headStarter-Travel-app/travelAppBackend/recommend"
	logging "github.com/ipfs/go-log/v2"
)

var log = logging.Logger("server")

// Recommender is the service the HTTP handlers call.
type Recommender interface {
	RecommendationsNear(ctx context.Context, origin model.Point, categories []string, topK int) (recommend.Result, error)
	ProximityRecommendations(ctx context.Context, points []model.Point, interests []string, topK int) (model.Point, recommend.Result, error)
	PlaceDetails(ctx context.Context, name, address string) (model.LocationEntry, error)
	TokenStatus() recommend.TokenStatus
}

// Server serves the recommendation API.
type Server struct {
	svc      Recommender
	engine   *gin.Engine
	server   *http.Server
	listener net.Listener
	maxLimit int
}

var _ http.Handler = (*Server)(nil)

// New creates a Server that listens on address once Start is called.
func New(address string, svc Recommender, options ...Option) (*Server, error) {
	if svc == nil {
		return nil, errors.New("nil recommender")
	}
	opts, err := getOpts(options)
	if err != nil {
		return nil, err
	}

	if opts.debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery(), logRequests())

	s := &Server{
		svc:      svc,
		engine:   engine,
		maxLimit: opts.maxLimit,
	}
	s.routes()

	s.server = &http.Server{
		Addr:         address,
		Handler:      engine,
		ReadTimeout:  opts.readTimeout,
		WriteTimeout: opts.writeTimeout,
	}
	return s, nil
}

func (s *Server) routes() {
	s.engine.GET("/health", s.health)
	s.engine.GET("/initial-recommendations", s.initialRecommendations)
	s.engine.POST("/proximity-recommendations", s.proximityRecommendations)
	s.engine.POST("/place-details", s.placeDetails)
	s.engine.GET("/token-status", s.tokenStatus)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.engine.ServeHTTP(w, r)
}

// Start listens on the configured address and serves requests in the
// background.
func (s *Server) Start() error {
	l, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return err
	}
	s.listener = l
	log.Infow("HTTP server listening", "addr", l.Addr().String())
	go func() {
		if err := s.server.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorw("HTTP server stopped", "err", err)
		}
	}()
	return nil
}

// Addr returns the address the server is listening on, or the configured
// address if it has not been started.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.server.Addr
}

// Shutdown stops accepting requests and waits for active ones to finish, or
// for ctx to be done.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		status := c.Writer.Status()
		if status >= http.StatusInternalServerError {
			log.Warnw("Request failed", "method", c.Request.Method, "path", c.Request.URL.Path, "status", status)
			return
		}
		log.Debugw("Request served", "method", c.Request.Method, "path", c.Request.URL.Path, "status", status)
	}
}
