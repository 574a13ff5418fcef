package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zoff-tech/time-capsule/pkg/api"
	"github.com/zoff-tech/time-capsule/pkg/config"
	"github.com/zoff-tech/time-capsule/pkg/mailer"
	"github.com/zoff-tech/time-capsule/pkg/scheduler"
	"github.com/zoff-tech/time-capsule/pkg/store"
	"github.com/zoff-tech/time-capsule/pkg/telemetry"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration from file or environment
	cfg, err := config.LoadFromFile("./cmd/capsule-server")
	if err != nil {
		log.Fatal("Error loading configuration: ", err)
	}

	// Initialize telemetry (tracing)
	shutdownTelemetry, err := telemetry.Init(cfg.Observability)
	if err != nil {
		log.Fatal("Failed to initialize telemetry: ", err)
	}
	defer shutdownTelemetry()

	// Initialize the capsule repository
	repo, err := store.NewRepository(ctx, cfg.Database)
	if err != nil {
		log.Fatal("Failed to initialize repository: ", err)
	}

	// Initialize the mail backend
	m, err := mailer.NewMailer(cfg.Mailer)
	if err != nil {
		log.Fatal("Failed to initialize mailer: ", err)
	}
	defer m.Close()

	// Create the delivery scheduler and run it in the background
	sched := scheduler.New(repo, m, cfg)
	go sched.Start(ctx)
	defer sched.Stop()

	// Wire the HTTP surface
	router := chi.NewRouter()
	api.RegisterCapsuleRoutes(router, api.NewCapsuleHandler(repo, sched))

	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP shutdown error: %v", err)
		}
	}()

	log.Printf("Listening on %s", cfg.Server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("HTTP server error: ", err)
	}
}
