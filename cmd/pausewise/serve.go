package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/pausewise/pausewise/internal/bus"
	"github.com/pausewise/pausewise/internal/common"
	"github.com/pausewise/pausewise/internal/coordinator"
	"github.com/pausewise/pausewise/internal/model"
	"github.com/pausewise/pausewise/internal/reflection"
	"github.com/pausewise/pausewise/internal/service"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local companion service for the browser extension",
		Long: `Runs the WebSocket bus the extension connects to, plus a small REST
API for settings, goals, history, and savings stats. Purchase decisions are
made here; the page side only detects and shields.`,
		RunE: runServe,
	}
	cmd.Flags().String("addr", "127.0.0.1:8091", "listen address")
	_ = viper.BindPFlag("serve.addr", cmd.Flags().Lookup("addr"))
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	logger := slog.Default()

	store, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	clientID, err := loadClientID()
	if err != nil {
		return err
	}

	reflector, err := reflection.NewClient(reflection.Config{
		BaseURL:  viper.GetString("proxy.base_url"),
		ClientID: clientID,
		Timeout:  viper.GetDuration("proxy.timeout"),
	}, logger)
	if err != nil {
		return err
	}

	coord := coordinator.New(store, reflector, coordinator.WithLogger(logger))

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	api := &companionAPI{store: store, coord: coord}
	engine.GET("/ws", bus.ServeWS(coord, logger))
	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": version})
	})

	v1 := engine.Group("/v1")
	v1.POST("/detections", bus.PostDetection(coord))
	v1.POST("/outcomes", bus.PostOutcome(coord))

	group := engine.Group("/api")
	group.GET("/settings", api.getSettings)
	group.PUT("/settings", api.putSettings)
	group.GET("/stats", api.getStats)
	group.GET("/history", api.getHistory)
	group.GET("/goals", api.getGoals)
	group.POST("/goals", api.postGoal)
	group.GET("/cooling-off", api.getCoolingOff)
	group.DELETE("/cooling-off/:id", api.deleteCoolingOff)

	addr := viper.GetString("serve.addr")
	srv := &http.Server{
		Addr:              addr,
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("companion service listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("companion server failed: %w", err)
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

// loadClientID returns the stable anonymous identifier sent to the proxy,
// creating one on first run. It is a random UUID with no tie to the user.
func loadClientID() (string, error) {
	if id := viper.GetString("client.id"); id != "" {
		return id, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	path := filepath.Join(home, ".config", "pausewise", "client-id")

	if data, err := os.ReadFile(path); err == nil {
		if id := strings.TrimSpace(string(data)); id != "" {
			return id, nil
		}
	}

	id := uuid.NewString()
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(id+"\n"), 0600); err != nil {
		return "", fmt.Errorf("failed to persist client id: %w", err)
	}
	return id, nil
}

type companionAPI struct {
	store service.Storage
	coord service.Coordinator
}

func (a *companionAPI) getSettings(c *gin.Context) {
	settings, err := a.store.GetSettings(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	enabled, err := a.store.GetEnabled(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"enabled": enabled, "settings": settings})
}

func (a *companionAPI) putSettings(c *gin.Context) {
	var body struct {
		Enabled  *bool           `json:"enabled"`
		Settings *model.Settings `json:"settings"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	ctx := c.Request.Context()
	if body.Enabled != nil {
		if err := a.store.SetEnabled(ctx, *body.Enabled); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}
	if body.Settings != nil {
		if err := a.store.SaveSettings(ctx, *body.Settings); err != nil {
			status := http.StatusInternalServerError
			if _, ok := common.AsUserError(err); ok {
				status = http.StatusBadRequest
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
	}
	c.Status(http.StatusNoContent)
}

func (a *companionAPI) getStats(c *gin.Context) {
	stats, err := a.store.GetStats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (a *companionAPI) getHistory(c *gin.Context) {
	filter := service.EventFilter{Limit: 50}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		filter.Limit = limit
	}
	if raw := c.Query("outcome"); raw != "" {
		outcome := model.Outcome(raw)
		if !outcome.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid outcome"})
			return
		}
		filter.Outcome = outcome
	}
	filter.Site = c.Query("site")

	events, err := a.store.GetPurchaseEvents(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

func (a *companionAPI) getGoals(c *gin.Context) {
	goals, err := a.store.GetGoals(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"goals": goals})
}

func (a *companionAPI) postGoal(c *gin.Context) {
	var body struct {
		Name         string  `json:"name" binding:"required,max=100"`
		TargetAmount float64 `json:"targetAmount" binding:"required,gt=0"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	goal := &model.FinancialGoal{
		ID:           uuid.NewString(),
		Name:         body.Name,
		TargetAmount: body.TargetAmount,
		CreatedAt:    time.Now(),
	}
	if err := a.store.SaveGoal(c.Request.Context(), goal); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, goal)
}

func (a *companionAPI) getCoolingOff(c *gin.Context) {
	items, err := a.store.GetCoolingOffItems(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (a *companionAPI) deleteCoolingOff(c *gin.Context) {
	err := a.store.RemoveCoolingOffItem(c.Request.Context(), c.Param("id"))
	switch {
	case err == nil:
		c.Status(http.StatusNoContent)
	case common.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": "cooling-off item not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
