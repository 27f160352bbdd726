package httpserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"yashubustudio/sentiment/internal/gradio"
	"yashubustudio/sentiment/internal/sentiment"
)

type analyzeRequest struct {
	Text string `json:"text"`
}

type analyzeResponse struct {
	Label   string           `json:"label"`
	Scores  sentiment.Scores `json:"scores"`
	Empty   bool             `json:"empty"`
	Display string           `json:"display"`
}

type gradioCallRequest struct {
	Data []json.RawMessage `json:"data"`
}

type gradioCallResponse struct {
	EventID string `json:"event_id"`
}

type indexData struct {
	Title   string
	APIName string
}

func (s *Server) handleIndex(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(http.StatusOK)
	return s.index.Execute(c.Response(), indexData{Title: s.opts.Title, APIName: apiName})
}

// handleAnalyze is the structured form of analyze_sentiment.
func (s *Server) handleAnalyze(c echo.Context) error {
	var req analyzeRequest
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid JSON body")
	}
	res, err := s.analyzer.Score(c.Request().Context(), req.Text)
	if err != nil {
		return s.handleError(c, err)
	}
	return c.JSON(http.StatusOK, analyzeResponse{
		Label:   res.Label,
		Scores:  res.Scores,
		Empty:   res.Empty,
		Display: sentiment.Format(res),
	})
}

func (s *Server) handleGradioSubmit(c echo.Context) error {
	var req gradioCallRequest
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return jsonError(c, http.StatusUnprocessableEntity, "invalid JSON body")
	}
	if len(req.Data) == 0 {
		return jsonError(c, http.StatusUnprocessableEntity, "data must contain one string")
	}
	var text string
	if err := json.Unmarshal(req.Data[0], &text); err != nil {
		return jsonError(c, http.StatusUnprocessableEntity, "data[0] must be a string")
	}

	id, err := s.queue.Submit(text)
	if err != nil {
		return s.handleError(c, err)
	}
	return c.JSON(http.StatusOK, gradioCallResponse{EventID: id})
}

// handleGradioResult streams the outcome of a queued call as SSE, sending
// heartbeats while the call is still running.
func (s *Server) handleGradioResult(c echo.Context) error {
	id := c.Param("event_id")
	done, err := s.queue.Done(id)
	if err != nil {
		return s.handleError(c, err)
	}

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	ctx := c.Request().Context()
	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-done:
			outcome, err := s.queue.Await(ctx, id)
			if err != nil {
				// Expired between Done and Await.
				outcome = gradio.Outcome{Err: err}
			}
			if err := gradio.WriteOutcome(w, outcome); err != nil {
				return nil
			}
			w.Flush()
			return nil
		case <-ticker.C:
			if err := gradio.WriteEvent(w, gradio.EventHeartbeat, []byte("null")); err != nil {
				return nil
			}
			w.Flush()
		}
	}
}
