// Package httpapi exposes the decoder process's liveness and metrics
// surface, adapted from the teacher's signal server.
package httpapi

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"solana-tx-decoder/internal/decoderapp"
)

// Summarizer is the subset of *decoderapp.Metrics the HTTP surface
// needs, so tests can substitute a fake counter set.
type Summarizer interface {
	Summary() string
	TxsProcessed() uint64
}

// Server hosts /healthz and /metrics for one decoder process.
type Server struct {
	app       *fiber.App
	metrics   Summarizer
	startedAt time.Time
	healthyAfter time.Duration
	host      string
	port      int
}

// NewServer builds a Server bound to host:port. healthyAfter is the
// fallback liveness window (HEALTH_AFTER_SECONDS): /healthz reports
// healthy once the consumer has processed at least one message, or
// once this much time has elapsed since startup, whichever comes
// first — a dependency-free liveness check, since RPC/Kafka failures
// are already handled by the retry/DLQ path rather than by failing
// liveness.
func NewServer(host string, port int, metrics Summarizer, healthyAfter time.Duration) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ReadTimeout:           5 * time.Second,
		WriteTimeout:          5 * time.Second,
	})

	s := &Server{
		app:          app,
		metrics:      metrics,
		startedAt:    time.Now(),
		healthyAfter: healthyAfter,
		host:         host,
		port:         port,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.app.Get("/healthz", s.handleHealthz)
	s.app.Get("/metrics", s.handleMetrics)
}

func (s *Server) isHealthy() bool {
	if s.metrics.TxsProcessed() > 0 {
		return true
	}
	return time.Since(s.startedAt) >= s.healthyAfter
}

func (s *Server) handleHealthz(c *fiber.Ctx) error {
	if !s.isHealthy() {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "starting"})
	}
	return c.JSON(fiber.Map{"status": "ok", "time": time.Now().Unix()})
}

func (s *Server) handleMetrics(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	return c.SendString(s.metrics.Summary())
}

// Start runs the HTTP server, blocking until it stops or errors.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	log.Info().Str("addr", addr).Msg("starting decoder http api")
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

var _ Summarizer = (*decoderapp.Metrics)(nil)
