// Package web serves the summarization form and its JSON twin over HTTP.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const bodyLimit = "1M"

// Runner executes one summarization invocation.
type Runner interface {
	Run(ctx context.Context, credential string, rawURL string) (string, error)
}

type Server struct {
	echo   *echo.Echo
	runner Runner
	addr   string
	log    *slog.Logger
}

func New(addr string, runner Runner, gatherer prometheus.Gatherer, log *slog.Logger) (*Server, error) {
	renderer, err := newPageRenderer()
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = renderer

	s := &Server{
		echo:   e,
		runner: runner,
		addr:   addr,
		log:    log,
	}

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			return c.Request().URL.Path == "/healthz"
		},
		LogStatus:     true,
		LogURI:        true,
		LogError:      true,
		LogMethod:     true,
		LogLatency:    true,
		HandleError:   true,
		LogValuesFunc: s.logRequest,
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit(bodyLimit))

	e.GET("/", s.handleIndex)
	e.POST("/", s.handleForm)
	e.POST("/api/summarize", s.handleAPI)
	e.GET("/healthz", s.handleHealth)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	return s, nil
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start blocks until the server stops. A graceful shutdown is not an error.
func (s *Server) Start() error {
	err := s.echo.Start(s.addr)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}

	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) logRequest(c echo.Context, v middleware.RequestLoggerValues) error {
	ctx := c.Request().Context()

	if v.Error == nil {
		s.log.InfoContext(ctx, "Request is completed",
			"method", v.Method,
			"uri", v.URI,
			"status", v.Status,
			"latencyMs", v.Latency.Milliseconds())

		return nil
	}

	s.log.ErrorContext(ctx, "Request is failed",
		"error", v.Error,
		"method", v.Method,
		"uri", v.URI,
		"status", v.Status,
		"latencyMs", v.Latency.Milliseconds())

	return nil
}
