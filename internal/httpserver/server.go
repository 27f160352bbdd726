package httpserver

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"yashubustudio/sentiment/internal/chat"
	"yashubustudio/sentiment/internal/gradio"
	"yashubustudio/sentiment/internal/metrics"
	"yashubustudio/sentiment/internal/sentiment"
)

//go:embed templates/*.html
var templateFiles embed.FS

const (
	apiName           = "analyze_sentiment"
	heartbeatInterval = 15 * time.Second
)

// Analyzer scores a single text.
type Analyzer interface {
	Score(ctx context.Context, text string) (sentiment.Result, error)
}

// ChatService posts and lists chat messages.
type ChatService interface {
	Post(ctx context.Context, nickname, text string) (chat.Message, error)
	List(ctx context.Context, limit int) ([]chat.Message, error)
}

// HealthCheck is a named readiness check.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Options tunes the HTTP surface.
type Options struct {
	Addr             string
	AllowedOrigins   []string
	RateLimit        float64
	EventTTL         time.Duration
	QueueConcurrency int
	Title            string
}

// Deps are the collaborators the server routes to. Chat and Registry are optional.
type Deps struct {
	Analyzer     Analyzer
	Chat         ChatService
	Registry     *prometheus.Registry
	HealthChecks []HealthCheck
	Logger       *zap.Logger
}

// Server is the HTTP front end: the web form, the queued Gradio call API,
// the JSON endpoints, health checks and metrics.
type Server struct {
	echo      *echo.Echo
	opts      Options
	analyzer  Analyzer
	chat      ChatService
	queue     *gradio.Queue
	checks    []HealthCheck
	logger    *zap.Logger
	index     *template.Template
	startTime time.Time
	heartbeat time.Duration
}

// New builds the echo router and the call queue. deps.Analyzer is required.
func New(opts Options, deps Deps) (*Server, error) {
	if deps.Analyzer == nil {
		return nil, errors.New("analyzer is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.EventTTL <= 0 {
		opts.EventTTL = 10 * time.Minute
	}
	if opts.Title == "" {
		opts.Title = "3-Class Sentiment Analyzer (Positive / Neutral / Negative)"
	}

	index, err := template.ParseFS(templateFiles, "templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse index template: %w", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:      e,
		opts:      opts,
		analyzer:  deps.Analyzer,
		chat:      deps.Chat,
		checks:    deps.HealthChecks,
		logger:    logger,
		index:     index,
		startTime: time.Now(),
		heartbeat: heartbeatInterval,
	}
	s.queue = gradio.NewQueue(s.analyzeDisplay, opts.EventTTL, opts.QueueConcurrency, logger)

	var httpMetrics *metrics.HTTPMetrics
	if deps.Registry != nil {
		httpMetrics = metrics.NewHTTPMetrics(deps.Registry)
	}
	s.registerMiddleware(httpMetrics)
	s.registerRoutes(deps.Registry)
	return s, nil
}

// analyzeDisplay is the queued form of the operation: text in, display string out.
func (s *Server) analyzeDisplay(ctx context.Context, text string) (string, error) {
	res, err := s.analyzer.Score(ctx, text)
	if err != nil {
		return "", err
	}
	return sentiment.Format(res), nil
}

// ServeHTTP lets tests drive the router directly.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Start listens on opts.Addr and blocks until the server stops. A clean
// Shutdown returns nil.
func (s *Server) Start() error {
	s.logger.Info("Starting server", zap.String("address", s.opts.Addr))
	err := s.echo.Start(s.opts.Addr)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting requests, then drains queued calls.
func (s *Server) Shutdown(ctx context.Context) error {
	httpErr := s.echo.Shutdown(ctx)
	queueErr := s.queue.Shutdown(ctx)
	return errors.Join(httpErr, queueErr)
}
