package proxy

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

// Config holds the proxy service configuration.
type Config struct {
	Addr string
	LLM  ProviderConfig

	// RequestsPerHour bounds each anonymous client inside a sliding window.
	RequestsPerHour int
	// GlobalQPS caps total throughput regardless of client spread.
	GlobalQPS float64
	// RequestTimeout bounds one upstream LLM call.
	RequestTimeout time.Duration
}

// Server is the reflection proxy HTTP service.
type Server struct {
	engine         *gin.Engine
	limiter        *SlidingLimiter
	provider       Provider
	metrics        *Metrics
	logger         *slog.Logger
	addr           string
	requestTimeout time.Duration
}

// NewServer wires the proxy routes, limiter, and metrics.
func NewServer(cfg Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	provider, err := NewProvider(cfg.LLM)
	if err != nil {
		return nil, err
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	addr := cfg.Addr
	if addr == "" {
		addr = ":8090"
	}

	if err := registerValidations(); err != nil {
		return nil, fmt.Errorf("failed to register request validations: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())

	s := &Server{
		limiter:        NewSlidingLimiter(cfg.RequestsPerHour, time.Hour, cfg.GlobalQPS),
		provider:       provider,
		metrics:        NewMetrics(registry),
		logger:         logger,
		addr:           addr,
		requestTimeout: timeout,
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), corsMiddleware(), requestLogger(logger))

	engine.POST("/generate", s.handleGenerate)
	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	s.engine = engine
	return s, nil
}

// Run serves until the context is canceled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.limiter.StartCleanup(ctx, time.Minute)
		return nil
	})
	g.Go(func() error {
		s.logger.Info("reflection proxy listening", "addr", s.addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("proxy server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// registerValidations adds the rfc3339 tag used by GenerateRequest to gin's
// shared validator engine. Registration is idempotent.
func registerValidations() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
	}
	return v.RegisterValidation("rfc3339", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(time.RFC3339, fl.Field().String())
		return err == nil
	})
}

// corsMiddleware answers extension preflights. The endpoint is public by
// design; rate limiting, not origin checks, is the abuse control.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, X-Client-ID")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds())
	}
}
