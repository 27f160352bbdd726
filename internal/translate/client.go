package translate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// DefaultURL is the public MyMemory endpoint.
const DefaultURL = "https://api.mymemory.translated.net/get"

// Observer receives translation outcomes.
type Observer interface {
	ObserveTranslation(outcome string)
	SetBreakerState(state int)
}

type nopObserver struct{}

func (nopObserver) ObserveTranslation(string) {}
func (nopObserver) SetBreakerState(int)       {}

// Response is the subset of the MyMemory reply we read.
type Response struct {
	ResponseData struct {
		TranslatedText string `json:"translatedText"`
	} `json:"responseData"`
	ResponseStatus json.RawMessage `json:"responseStatus"`
}

// Client is a MyMemory HTTP client guarded by a circuit breaker.
type Client struct {
	baseURL    string
	langPair   string
	httpClient *http.Client
	cb         *gobreaker.CircuitBreaker
	obs        Observer
	logger     *zap.Logger
}

// NewClient creates a translation client for langPair (e.g. "tr|en").
func NewClient(baseURL, langPair string, timeout time.Duration, obs Observer, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	if obs == nil {
		obs = nopObserver{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		baseURL:  baseURL,
		langPair: langPair,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		obs:    obs,
		logger: logger,
	}
	c.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "translate",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 5 && float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("Circuit breaker state changed",
				zap.String("component", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
			c.obs.SetBreakerState(int(to))
		},
	})
	return c
}

// Translate returns the translation of text. On any failure the original
// text is returned together with the error.
func (c *Client) Translate(ctx context.Context, text string) (string, error) {
	out, err := c.cb.Execute(func() (interface{}, error) {
		return c.fetch(ctx, text)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			c.obs.ObserveTranslation("rejected")
		} else {
			c.obs.ObserveTranslation("error")
		}
		return text, err
	}
	c.obs.ObserveTranslation("ok")
	return out.(string), nil
}

// State exposes the breaker state for health reporting.
func (c *Client) State() gobreaker.State {
	return c.cb.State()
}

func (c *Client) fetch(ctx context.Context, text string) (string, error) {
	q := url.Values{}
	q.Set("q", text)
	q.Set("langpair", c.langPair)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("translation service returned status %d: %s", resp.StatusCode, string(body))
	}

	var result Response
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	// Quota and langpair errors arrive as HTTP 200 with the reason in translatedText.
	if status, ok := responseStatus(result.ResponseStatus); ok && status != http.StatusOK {
		return "", fmt.Errorf("translation service reported status %d: %s", status, result.ResponseData.TranslatedText)
	}
	if result.ResponseData.TranslatedText == "" {
		return "", errors.New("translation service returned no text")
	}
	return result.ResponseData.TranslatedText, nil
}

// responseStatus reads MyMemory's responseStatus, which is sent either as a
// number or as a numeric string. ok is false when the field is absent.
func responseStatus(raw json.RawMessage) (int, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, false
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return n, true
		}
	}
	// Present but unreadable: treat as a failure.
	return -1, true
}

// Nop returns text unchanged. It is used when translation is disabled.
type Nop struct{}

func (Nop) Translate(_ context.Context, text string) (string, error) {
	return text, nil
}
