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
	echoMiddleware "github.com/labstack/echo/v4/middleware"

	"crm-calendar-api/core/cache"
	"crm-calendar-api/core/config"
	"crm-calendar-api/core/database"
	"crm-calendar-api/core/logger"
	"crm-calendar-api/modules/calendar"
	calendarRepository "crm-calendar-api/modules/calendar/repository"
	"crm-calendar-api/modules/member"
	"crm-calendar-api/modules/worker"
)

// Run boots config, storage, cache, the HTTP surface and the background
// refresh worker, then blocks until SIGINT/SIGTERM.
func Run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	db, err := database.InitDB(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	redisCache, err := cache.NewRedisCache(cfg.Redis)
	if err != nil {
		return err
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.RequestID())

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// Module wiring
	memberSvc := member.Init(e, db)
	tokenSvc := calendar.Init(e, db, redisCache, memberSvc)

	// Background proactive token refresh
	w := worker.New(cfg.Redis, calendarRepository.NewCalendarRepository(db), tokenSvc)
	if err := w.Start(); err != nil {
		logger.Error("Server:Run:WorkerStart:Error", "error", err)
	} else {
		defer w.Shutdown()
	}

	// Start server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		logger.Info("Server:Run:Listening", "addr", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Error("Server:Run:Start:Error", "error", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Server:Run:ShuttingDown")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(ctx)
}
