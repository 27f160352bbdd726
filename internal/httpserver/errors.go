package httpserver

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"yashubustudio/sentiment/internal/chat"
	"yashubustudio/sentiment/internal/gradio"
	"yashubustudio/sentiment/internal/sentiment"
)

func jsonError(c echo.Context, status int, msg string) error {
	return c.JSON(status, map[string]string{"error": msg})
}

// handleError maps domain errors onto HTTP responses. Anything unrecognised
// is logged and reported as a generic 500.
func (s *Server) handleError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, chat.ErrInvalidMessage):
		return jsonError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, gradio.ErrEventNotFound):
		return jsonError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, sentiment.ErrClassifierClosed), errors.Is(err, gradio.ErrQueueClosed):
		return jsonError(c, http.StatusServiceUnavailable, "service is shutting down")
	case errors.Is(err, context.DeadlineExceeded):
		return jsonError(c, http.StatusGatewayTimeout, "request timed out")
	case errors.Is(err, context.Canceled):
		// Client went away; nothing useful to send.
		return nil
	}
	s.logger.Error("Request failed",
		zap.String("path", c.Path()),
		zap.Error(err))
	return jsonError(c, http.StatusInternalServerError, "internal server error")
}
