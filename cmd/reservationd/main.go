package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"

	"resource-reservation-backend/config"
	"resource-reservation-backend/internal/api"
	"resource-reservation-backend/internal/audit"
	"resource-reservation-backend/internal/clock"
	"resource-reservation-backend/internal/commandq"
	"resource-reservation-backend/internal/db"
	"resource-reservation-backend/internal/notification"
	"resource-reservation-backend/internal/realtime"
	"resource-reservation-backend/internal/scheduler"
	"resource-reservation-backend/internal/store"
	"resource-reservation-backend/internal/worker"
)

func main() {
	logger := log.New(os.Stdout, "reservationd ", log.LstdFlags)

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

	var webpushOptions *webpush.Options
	if cfg.Push.PublicKey != "" && cfg.Push.PrivateKey != "" {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
	} else {
		logger.Println("VAPID keys not configured; web push notifications are disabled")
	}

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	logger.Println("database initialized successfully")

	if cfg.Seed.Enabled {
		if err := db.Seed(gormDB); err != nil {
			logger.Fatalf("failed to seed demo data: %v", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB)
	clk := clock.System()
	recorder := audit.NewRecorder(gormDB, clk)
	commands := commandq.New(appStore, clk)

	hub := realtime.NewHub()
	go hub.Run(ctx)

	var notifier scheduler.AvailabilityNotifier
	var pool *notification.WorkerPool
	if webpushOptions != nil {
		pool = notification.NewWorkerPool(cfg.WorkerPool.Size, gormDB, webpushOptions)
		pool.Start(ctx)
		notifier = pool
	}

	schedSvc := scheduler.New(scheduler.Deps{
		Store:    appStore,
		Clock:    clk,
		Commands: commands,
		Audit:    recorder,
		Bus:      hub,
		Notifier: notifier,
	}, scheduler.Config{
		DefaultDuration: time.Duration(cfg.Reservation.DefaultDurationMinutes) * time.Minute,
		MinDuration:     time.Duration(cfg.Reservation.MinDurationMinutes) * time.Minute,
		MaxDuration:     time.Duration(cfg.Reservation.MaxDurationMinutes) * time.Minute,
		Grace:           time.Duration(cfg.Reservation.GraceSeconds) * time.Second,
	})

	reconciler := worker.New(
		schedSvc,
		recorder,
		clk,
		time.Duration(cfg.Reservation.CheckIntervalSeconds)*time.Second,
		time.Duration(cfg.Audit.RetentionDays)*24*time.Hour,
	)
	go reconciler.Run(ctx)

	router := api.NewRouter(api.Deps{
		Store:     appStore,
		Scheduler: schedSvc,
		Commands:  commands,
		Audit:     recorder,
		Clock:     clk,
		Hub:       hub,
		WebPush:   webpushOptions,
		Config:    cfg,
	})
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Println("Shutdown signal received, stopping services...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}

	logger.Println("Server gracefully stopped")
}
