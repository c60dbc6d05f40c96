package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"cookduel/apps/server/internal/auth"
	"cookduel/apps/server/internal/catalog"
	"cookduel/apps/server/internal/config"
	"cookduel/apps/server/internal/gateway"
	"cookduel/apps/server/internal/ledger"
	"cookduel/apps/server/internal/lobby"
	"cookduel/apps/server/internal/logger"
	"cookduel/apps/server/internal/metrics"
	"cookduel/art"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	log := logger.Init(logger.Config{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		ServiceName: "cookduel-relay",
		Version:     cfg.Version,
		Environment: cfg.Environment,
	})

	if err := run(cfg, log); err != nil {
		log.Error("Server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ledgerService, err := ledger.NewService(cfg.LedgerMode, cfg.LedgerDSN, cfg.SQLitePath)
	if err != nil {
		return err
	}
	defer ledgerService.Close()

	tickets := auth.NewManager(cfg.TicketTTL)
	lby := lobby.New(lobby.Options{MaxRooms: cfg.MaxRooms, IdleTTL: cfg.RoomIdleTTL, Logger: log}, tickets)
	gw := gateway.New(lby, tickets, ledgerService, cfg.AllowedOrigins, log)
	lby.OnExpire(gw.CloseRoom)
	defer gw.Close()

	artService := art.NewService(newGenerator(cfg), art.Options{Logger: log})

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ws", gw.HandleWebSocket)
	lobby.NewHTTPHandler(lby).RegisterRoutes(r)
	ledger.NewHTTPHandler(ledgerService, log).RegisterRoutes(r)
	catalog.NewHTTPHandler(artService).RegisterRoutes(r)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("Starting relay", "addr", cfg.Addr, "ledger", cfg.LedgerMode, "version", cfg.Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		lby.Run(ctx, time.Minute)
		return nil
	})
	if cfg.ArtEndpoint != "" {
		g.Go(func() error {
			if err := artService.Prefetch(ctx, art.CatalogKeys()); err != nil {
				log.Warn("Art prefetch incomplete", "error", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-ctx.Done()
		log.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		// hijacked websockets are not tracked by Shutdown
		gw.Close()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func newGenerator(cfg *config.Config) art.Generator {
	if cfg.ArtEndpoint == "" {
		return art.GeneratorFunc(func(context.Context, string) (string, error) {
			return "", art.ErrNoImage
		})
	}
	return art.NewHTTPGenerator(cfg.ArtEndpoint, cfg.ArtAPIKey, cfg.ArtModel)
}
