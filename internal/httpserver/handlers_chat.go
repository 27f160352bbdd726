package httpserver

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

type postMessageRequest struct {
	Text     string `json:"text"`
	Nickname string `json:"nickname"`
}

func (s *Server) handlePostMessage(c echo.Context) error {
	var req postMessageRequest
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid JSON body")
	}
	msg, err := s.chat.Post(c.Request().Context(), req.Nickname, req.Text)
	if err != nil {
		return s.handleError(c, err)
	}
	return c.JSON(http.StatusCreated, msg)
}

func (s *Server) handleListMessages(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return jsonError(c, http.StatusBadRequest, "limit must be an integer")
		}
		limit = n
	}
	msgs, err := s.chat.List(c.Request().Context(), limit)
	if err != nil {
		return s.handleError(c, err)
	}
	return c.JSON(http.StatusOK, msgs)
}
