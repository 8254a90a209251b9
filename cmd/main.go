// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/FlowBondTech/harmonious-habitats-sub000/internal/config"
	"github.com/FlowBondTech/harmonious-habitats-sub000/internal/database"
	"github.com/FlowBondTech/harmonious-habitats-sub000/internal/handler"
	"github.com/FlowBondTech/harmonious-habitats-sub000/internal/logger"
	"github.com/FlowBondTech/harmonious-habitats-sub000/internal/repository"
	"github.com/FlowBondTech/harmonious-habitats-sub000/internal/service"
)

func main() {
	ctx := context.Background()
	cfg := config.Load()

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		os.Exit(1)
	}
	defer log.Sync()

	// ── 1. Pick the store ────────────────────────────────────────────────
	var (
		eventStore    service.EventStore
		registryStore service.RegistryStore
		claimStore    service.ClaimStore
	)
	switch cfg.Store {
	case config.StoreMemory:
		log.Warn("using in-memory store, nothing will survive a restart")
		mem := repository.NewMemoryStore(log)
		eventStore, registryStore, claimStore = mem, mem, mem
	default:
		pool, err := database.NewPool(ctx, cfg.DB)
		if err != nil {
			log.Fatal("database connection failed", "error", err)
		}
		defer pool.Close()
		if err := database.Migrate(cfg.DB); err != nil {
			log.Fatal("migrations failed", "error", err)
		}
		log.Info("connected to postgres", "host", cfg.DB.Host, "db", cfg.DB.Name)

		eventStore = repository.NewEventRepository(pool)
		registryStore = repository.NewRegistryRepository(pool)
		claimStore = repository.NewClaimRepository(pool, log)
	}

	// ── 2. Wire up layers ────────────────────────────────────────────────
	capacityCache := service.NewCapacityCache()
	registrySvc := service.NewRegistryService(eventStore, registryStore, claimStore, capacityCache, log)
	claimSvc := service.NewClaimService(eventStore, registryStore, claimStore, capacityCache, log)
	h := handler.NewRegistryHandler(registrySvc, claimSvc)

	// ── 3. Build the router ──────────────────────────────────────────────
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer) // recover from panics, return 500
	r.Use(chimiddleware.RequestID) // attach request IDs
	r.Use(chimiddleware.RealIP)    // trust X-Forwarded-For
	r.Use(handler.Logger(log))     // structured access log
	r.Use(handler.CORS)            // permissive CORS for browser clients

	r.Get("/health", handler.HealthCheck)
	r.Get("/templates", h.GetTemplate)

	r.Route("/events", func(r chi.Router) {
		r.Post("/", h.CreateEvent)
		r.Get("/{eventID}", h.GetEvent)
		r.Get("/{eventID}/registry", h.GetRegistry)
		r.Patch("/{eventID}/registry/config", h.UpdateConfig)
		r.Post("/{eventID}/registry/template", h.ReplaceFromTemplate)
		r.Post("/{eventID}/registry/materials", h.AddMaterial)
	})

	r.Route("/materials/{materialID}", func(r chi.Router) {
		r.Patch("/", h.UpdateMaterial)
		r.Delete("/", h.RemoveMaterial)
		r.Get("/capacity", h.GetRemainingCapacity)
		r.Post("/claims", h.ClaimMaterial)
	})

	r.Route("/claims/{claimID}", func(r chi.Router) {
		r.Patch("/", h.UpdateClaim)
		r.Delete("/", h.UnclaimMaterial)
	})

	// ── 4. Start server with graceful shutdown ───────────────────────────
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server listening", "addr", cfg.Addr, "store", cfg.Store)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", "error", err)
		}
	}()

	// Block until SIGINT or SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("graceful shutdown failed", "error", err)
	}
	log.Info("server stopped")
}
