// Package dashboard serves the metrics dashboard page and its JSON API.
package dashboard

import (
	"context"
	"embed"
	"errors"
	"io/fs"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/template/html/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/openlearnnitj/openlearn-dashboard/internal/handler"
	"github.com/openlearnnitj/openlearn-dashboard/internal/history"
	"github.com/openlearnnitj/openlearn-dashboard/internal/models"
	"github.com/openlearnnitj/openlearn-dashboard/internal/poller"
	"github.com/openlearnnitj/openlearn-dashboard/pkg/logger"
	"github.com/openlearnnitj/openlearn-dashboard/pkg/metrics"
)

//go:embed templates
var templates embed.FS

// UptimeReader reports archive-derived availability of an endpoint.
type UptimeReader interface {
	GetUptime(ctx context.Context, endpoint string) (*models.UptimeReport, error)
}

// Server is the HTTP front of the dashboard.
type Server struct {
	handler *handler.Handler
	history *history.Buffer
	uptime  UptimeReader
	metrics *metrics.Manager
	logger  logger.Logger
	polling string
	now     func() time.Time

	app *fiber.App
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithUptime enables /api/uptime.
func WithUptime(r UptimeReader) Option {
	return func(s *Server) {
		s.uptime = r
	}
}

// WithMetrics sets the metrics manager served on /metrics.
func WithMetrics(m *metrics.Manager) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithPolling sets the human readable polling mode shown on the page, e.g. "every 10s".
func WithPolling(desc string) Option {
	return func(s *Server) {
		s.polling = desc
	}
}

// WithClock replaces the clock used for relative times.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// NewServer creates the fiber app and registers every route.
func NewServer(h *handler.Handler, buf *history.Buffer, opts ...Option) (*Server, error) {
	s := &Server{
		handler: h,
		history: buf,
		logger:  logger.Nop(),
		polling: "once",
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	sub, err := fs.Sub(templates, "templates")
	if err != nil {
		return nil, err
	}

	engine := html.NewFileSystem(http.FS(sub), ".html")
	engine.AddFunc("ago", func(t time.Time) string {
		if t.IsZero() {
			return "never"
		}
		return humanize.RelTime(t, s.now(), "ago", "from now")
	})

	s.app = fiber.New(fiber.Config{
		Views:                 engine,
		AppName:               "OpenLearn Dashboard",
		DisableStartupMessage: true,
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}
			if code >= fiber.StatusInternalServerError {
				s.logger.Error(c.UserContext(), "request failed",
					logger.String("path", c.Path()), logger.Error(err))
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	s.routes()

	return s, nil
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown is called.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown stops the server, waiting for active requests until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) routes() {
	s.app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "[${ip}]:${port} ${status} - ${method} ${path} ${latency}\n",
	}))
	s.app.Use(recover.New())
	s.app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))
	s.app.Use(compress.New())
	s.app.Use(s.observe)

	s.app.Get("/", s.index)

	api := s.app.Group("/api")
	api.Get("/metrics", s.getMetrics)
	api.Get("/sentiment", s.getSentiment)
	api.Get("/history.xlsx", s.getHistoryXLSX)
	api.Get("/uptime", s.getUptime)
	api.Post("/poll", s.postPoll)

	s.app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "openlearn-dashboard",
		})
	})

	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{})))
}

// observe records request counts and latency per route.
func (s *Server) observe(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	status := c.Response().StatusCode()
	var e *fiber.Error
	if errors.As(err, &e) {
		status = e.Code
	} else if err != nil {
		status = fiber.StatusInternalServerError
	}

	s.metrics.ObserveHTTP(c.Method(), c.Route().Path, status, time.Since(start))
	return err
}

// endpointView is the JSON form of a poller.View.
type endpointView[T any] struct {
	State       poller.Phase `json:"state"`
	Error       string       `json:"error,omitempty"`
	Current     *T           `json:"current"`
	LastKnown   *T           `json:"lastKnown"`
	LastUpdated *time.Time   `json:"lastUpdated"`
}

func newEndpointView[T any](v poller.View[T]) endpointView[T] {
	ev := endpointView[T]{State: v.State.Phase()}

	switch st := v.State.(type) {
	case poller.Ready[T]:
		current := st.Value
		ev.Current = &current
	case poller.Failed:
		ev.Error = st.Message
	}

	if v.HasLastKnown {
		last := v.LastKnown
		updated := v.LastUpdated
		ev.LastKnown = &last
		ev.LastUpdated = &updated
	}

	return ev
}

type metricsResponse struct {
	endpointView[models.MetricsSnapshot]
	History []models.HistoryPoint `json:"history"`
}

func (s *Server) getMetrics(c *fiber.Ctx) error {
	return c.JSON(metricsResponse{
		endpointView: newEndpointView(s.handler.Metrics().View()),
		History:      s.history.Points(),
	})
}

func (s *Server) getSentiment(c *fiber.Ctx) error {
	p := s.handler.Sentiment()
	if p == nil {
		return fiber.NewError(fiber.StatusNotFound, "sentiment is not configured")
	}
	return c.JSON(newEndpointView(p.View()))
}

func (s *Server) getHistoryXLSX(c *fiber.Ctx) error {
	now := s.now()
	c.Attachment("metrics-history-" + now.Format("20060102-150405") + ".xlsx")
	return WriteXLSX(c, s.history.Points(), now)
}

func (s *Server) getUptime(c *fiber.Ctx) error {
	if s.uptime == nil {
		return fiber.NewError(fiber.StatusNotFound, "archive is not configured")
	}

	report, err := s.uptime.GetUptime(c.UserContext(), s.handler.Metrics().Name())
	if err != nil {
		return err
	}
	return c.JSON(report)
}

func (s *Server) postPoll(c *fiber.Ctx) error {
	if err := s.handler.Handle(c.UserContext()); err != nil {
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
	return c.JSON(fiber.Map{
		"message": "Poll completed successfully",
	})
}

func (s *Server) index(c *fiber.Ctx) error {
	v := s.handler.Metrics().View()

	p := page{
		Title:       "OpenLearn Metrics Dashboard",
		Polling:     s.polling,
		State:       v.State.Phase(),
		HasData:     v.HasLastKnown,
		LastUpdated: v.LastUpdated,
		History:     newHistoryRows(s.history.Points()),
	}
	if f, ok := v.State.(poller.Failed); ok {
		p.Error = f.Message
		p.Stale = v.HasLastKnown
	}
	if v.HasLastKnown {
		p.Cards = newCards(v.LastKnown)
	}
	if sp := s.handler.Sentiment(); sp != nil {
		p.Sentiment = newSentimentView(sp.View())
	}

	return c.Render("dashboard", p)
}
