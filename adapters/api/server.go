// Package api exposes the statistical methods and the battery runner over
// HTTP.
package api

import (
	"encoding/json"
	"net/http"

	"microbiogeo/internal"
	"microbiogeo/internal/battery"
	"microbiogeo/internal/errors"
	"microbiogeo/ports"

	"github.com/gin-gonic/gin"
)

// Server routes HTTP requests to the battery runner and the result store
type Server struct {
	router *gin.Engine
	runner *battery.Runner
	repo   ports.ResultRepository
	logger *internal.Logger
}

// NewServer creates the API server. repo may be nil, in which case the
// result endpoints answer 404.
func NewServer(runner *battery.Runner, repo ports.ResultRepository, logger *internal.Logger) *Server {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	s := &Server{
		router: gin.New(),
		runner: runner,
		repo:   repo,
		logger: logger.With("api"),
	}
	s.router.Use(gin.Recovery(), s.requestLogger())
	s.setupRoutes()
	return s
}

// Handler returns the server's http.Handler
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.GET("/healthz", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	v1.POST("/mantel", s.handleMethod(battery.MethodMantel))
	v1.POST("/partial-mantel", s.handleMethod(battery.MethodPartialMantel))
	v1.POST("/correlogram", s.handleMethod(battery.MethodCorrelogram))
	v1.POST("/anosim", s.handleMethod(battery.MethodAnosim))
	v1.POST("/permanova", s.handleMethod(battery.MethodPermanova))
	v1.POST("/bioenv", s.handleMethod(battery.MethodBioEnv))
	v1.POST("/morans-i", s.handleMethod(battery.MethodMoransI))
	v1.POST("/battery", s.handleBattery)
	v1.GET("/runs", s.handleListRuns)
	v1.GET("/results/:runID", s.handleGetResults)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		s.logger.Debug("%s %s -> %d", c.Request.Method, c.Request.URL.Path, c.Writer.Status())
	}
}

// respond encodes v before writing it so that an unencodable body becomes
// a proper 500 instead of a truncated 200.
func (s *Server) respond(c *gin.Context, status int, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("encode response for %s: %v", c.Request.URL.Path, err)
		s.fail(c, errors.InternalError("response could not be encoded"))
		return
	}
	c.Data(status, "application/json; charset=utf-8", body)
}

// fail answers with the status and code err maps to.
func (s *Server) fail(c *gin.Context, err error) {
	code := errors.GetCode(err)
	status := errors.HTTPStatus(code)
	if status >= http.StatusInternalServerError {
		s.logger.Error("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(status, ErrorResponse{Error: err.Error(), Code: code})
}
