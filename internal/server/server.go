package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/northroute/internal/agent"
	"github.com/northroute/internal/classifier"
	"github.com/northroute/pkg/schema"
)

// Config contains the HTTP service settings.
type Config struct {
	Port         int
	CORSOrigins  []string
	RateLimitRPS float64
}

// Server is the assistant backend: location extraction and reply generation
// behind a small JSON API.
type Server struct {
	echo       *echo.Echo
	port       int
	classifier *classifier.Classifier
	agent      *agent.Agent
}

// New creates the API server with its middleware stack and routes.
func New(config Config, cls *classifier.Classifier, agt *agent.Agent) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod: true,
		LogURI:    true,
		LogStatus: true,
		LogError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			evt := log.Info()
			if v.Error != nil {
				evt = log.Warn().Err(v.Error)
			}
			evt.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Msg("Request")
			return nil
		},
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     config.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderContentType},
		AllowCredentials: true,
	}))
	if config.RateLimitRPS > 0 {
		e.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rate.Limit(config.RateLimitRPS))))
	}

	server := &Server{
		echo:       e,
		port:       config.Port,
		classifier: cls,
		agent:      agt,
	}

	server.setupRoutes()

	return server
}

func (s *Server) setupRoutes() {
	s.echo.GET("/healthz", s.healthz)
	s.echo.POST("/chat", s.chat)
	s.echo.POST("/extract-location", s.extractLocation)
}

func (s *Server) healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) chat(c echo.Context) error {
	var req schema.ChatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := validateMessagePayload(req.Message, req.History); err != nil {
		return err
	}

	reply := s.agent.Reply(c.Request().Context(), req.Message, req.History)
	return c.JSON(http.StatusOK, schema.ChatResponse{Reply: reply})
}

func (s *Server) extractLocation(c echo.Context) error {
	var req schema.ExtractLocationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := validateMessagePayload(req.Message, req.History); err != nil {
		return err
	}

	location := s.classifier.Extract(c.Request().Context(), req.Message, req.History)
	return c.JSON(http.StatusOK, schema.ExtractLocationResponse{Location: location})
}

// validateMessagePayload enforces the request schema: a 1..10000 char message
// and history entries with a known role and non-empty bounded content.
func validateMessagePayload(message string, history []schema.HistoryItem) error {
	if message == "" {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "message must not be empty")
	}
	if len(message) > schema.MaxMessageLen {
		return echo.NewHTTPError(http.StatusUnprocessableEntity,
			fmt.Sprintf("message exceeds %d characters", schema.MaxMessageLen))
	}
	for i, h := range history {
		if !schema.ValidRole(h.Role) {
			return echo.NewHTTPError(http.StatusUnprocessableEntity,
				fmt.Sprintf("history[%d] has invalid role %q", i, h.Role))
		}
		if h.Content == "" {
			return echo.NewHTTPError(http.StatusUnprocessableEntity,
				fmt.Sprintf("history[%d] content must not be empty", i))
		}
		if len(h.Content) > schema.MaxMessageLen {
			return echo.NewHTTPError(http.StatusUnprocessableEntity,
				fmt.Sprintf("history[%d] content exceeds %d characters", i, schema.MaxMessageLen))
		}
	}
	return nil
}

// ServeHTTP lets tests drive the server through httptest without a listener.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Start runs the server until SIGINT/SIGTERM, then shuts down gracefully.
func (s *Server) Start() error {
	go func() {
		if err := s.echo.Start(fmt.Sprintf(":%d", s.port)); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Shutting down the server")
		}
	}()
	log.Info().Int("port", s.port).Msg("Backend service listening")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.echo.Shutdown(ctx)
}
