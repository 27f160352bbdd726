package httpserver

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"

	"yashubustudio/sentiment/internal/metrics"
)

func (s *Server) registerRoutes(reg *prometheus.Registry) {
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	if reg != nil {
		s.echo.GET("/metrics", echo.WrapHandler(metrics.Handler(reg)))
	}

	s.echo.GET("/", s.handleIndex)

	limited := s.rateLimiter()

	gradioAPI := s.echo.Group("/gradio_api", limited)
	gradioAPI.POST("/call/"+apiName, s.handleGradioSubmit)
	gradioAPI.GET("/call/"+apiName+"/:event_id", s.handleGradioResult)

	api := s.echo.Group("/api", limited)
	api.POST("/"+apiName, s.handleAnalyze)
	if s.chat != nil {
		api.POST("/messages", s.handlePostMessage)
		api.GET("/messages", s.handleListMessages)
	}
}
