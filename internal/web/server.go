package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"pricefinder/internal/aggregate"
	"pricefinder/internal/metrics"
	"pricefinder/internal/product"
	"pricefinder/internal/ratelimit"
)

// LookupService is the aggregation boundary the server talks to.
type LookupService interface {
	Lookup(ctx context.Context, barcode string) (*product.Record, error)
}

// Options configure the HTTP server.
type Options struct {
	ListenAddr      string
	ShutdownTimeout time.Duration
}

// Server is the inbound HTTP boundary: barcode validation, the sliding-window
// admission gate, and JSON envelopes around the aggregation engine.
type Server struct {
	opts    Options
	service LookupService
	window  *ratelimit.Window
	logger  zerolog.Logger
	router  *gin.Engine
}

// NewServer constructs the HTTP server.
func NewServer(opts Options, service LookupService, window *ratelimit.Window, logger zerolog.Logger) *Server {
	if opts.ListenAddr == "" {
		opts.ListenAddr = ":8000"
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		opts:    opts,
		service: service,
		window:  window,
		logger:  logger.With().Str("component", "web_server").Logger(),
		router:  router,
	}

	router.GET("/healthz", s.handleHealth)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/lookup/:barcode", s.handleLookup)

	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.opts.ListenAddr,
		Handler: s.router,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error().Err(err).Msg("graceful shutdown failed")
		}
		return ctx.Err()
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleLookup(c *gin.Context) {
	barcode := c.Param("barcode")

	if !product.ValidBarcode(barcode) {
		metrics.Lookups.WithLabelValues("invalid").Inc()
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid barcode",
			"message": "Barcode must contain only numbers",
		})
		return
	}

	if !s.window.Allow() {
		metrics.Lookups.WithLabelValues("rate_limited").Inc()
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":   "Rate limit exceeded",
			"message": "Please wait before making another request",
		})
		return
	}

	record, err := s.service.Lookup(c.Request.Context(), barcode)
	switch {
	case errors.Is(err, aggregate.ErrNoData):
		metrics.Lookups.WithLabelValues("not_found").Inc()
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Product not found",
			"message": "No data found for this barcode",
			"barcode": barcode,
		})
	case err != nil:
		metrics.Lookups.WithLabelValues("error").Inc()
		s.logger.Error().Err(err).Str("barcode", barcode).Msg("lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Server error",
			"message": err.Error(),
			"barcode": barcode,
		})
	default:
		metrics.Lookups.WithLabelValues("ok").Inc()
		record.RequestTime = time.Now().UTC()
		c.JSON(http.StatusOK, record)
	}
}
