// Package server exposes the diagnostics HTTP API: worker health, the
// discoverable flow definitions, and a WebSocket stream of invocation
// lifecycle events. It is operator tooling; the activity itself is driven
// by the surrounding job system, not by HTTP.
package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	glog "github.com/gin-contrib/slog"
	"github.com/gin-gonic/gin"

	"github.com/copperline/docflow/internal/events"
	"github.com/copperline/docflow/internal/loader"
	"github.com/copperline/docflow/pkg/api"
)

// Server implements the diagnostics HTTP API
type Server struct {
	loader *loader.Loader
	hub    *events.Hub
}

var (
	ErrListFlows = errors.New("failed to list flows")
	ErrGetFlow   = errors.New("failed to get flow")
)

// NewServer creates a diagnostics server over the given loader and hub
func NewServer(ld *loader.Loader, hub *events.Hub) *Server {
	return &Server{
		loader: ld,
		hub:    hub,
	}
}

// SetupRoutes configures and returns the HTTP router with all endpoints
func (s *Server) SetupRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(glog.SetLogger(
		glog.WithLogger(func(c *gin.Context, l *slog.Logger) *slog.Logger {
			return slog.Default()
		}),
	))

	router.GET("/health", s.handleHealth)
	router.GET("/flows", s.listFlows)
	router.GET("/flows/:name", s.getFlow)
	router.GET("/ws", s.handleWebSocket)

	return router
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) listFlows(c *gin.Context) {
	flows, err := s.loader.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{
			Error:  fmt.Sprintf("%s: %v", ErrListFlows, err),
			Status: http.StatusInternalServerError,
		})
		return
	}

	c.JSON(http.StatusOK, api.FlowsListResponse{
		Flows: flows,
		Count: len(flows),
	})
}

func (s *Server) getFlow(c *gin.Context) {
	name := c.Param("name")
	flow, err := s.loader.LoadByName(c.Request.Context(), name)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, api.ErrFlowNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, api.ErrorResponse{
			Error:  fmt.Sprintf("%s: %v", ErrGetFlow, err),
			Status: status,
		})
		return
	}

	c.JSON(http.StatusOK, flow)
}
