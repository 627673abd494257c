package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/deppfellow/endpoint-bridge/internal/config"
	"github.com/deppfellow/endpoint-bridge/internal/database"
	"github.com/deppfellow/endpoint-bridge/internal/endpoint"
	"github.com/deppfellow/endpoint-bridge/internal/handler"
	"github.com/deppfellow/endpoint-bridge/internal/logger"
	"github.com/deppfellow/endpoint-bridge/internal/middleware"
	"github.com/deppfellow/endpoint-bridge/internal/repository"
	"github.com/deppfellow/endpoint-bridge/internal/router"
	"github.com/deppfellow/endpoint-bridge/internal/routing"
	"github.com/deppfellow/endpoint-bridge/internal/server"
	"github.com/deppfellow/endpoint-bridge/internal/service"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config: "+err.Error())
		os.Exit(1)
	}

	loggerService := logger.NewLoggerService(cfg.Observability)
	defer loggerService.Shutdown()

	log := logger.NewLoggerWithService(cfg.Observability, loggerService)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Primary.Env != "local" {
		if err := database.Migrate(ctx, &log, cfg); err != nil {
			log.Fatal().Err(err).Msg("failed to migrate database")
		}
	}

	srv, err := server.New(cfg, &log, loggerService)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize server")
	}

	repos := repository.NewRepositories(srv)
	registry := endpoint.Chain{
		endpoint.FromConfig(cfg.Endpoint.StaticRules),
		repos.Endpoints,
	}

	mw := middleware.NewMiddlewares(srv)
	endpointHandlers := handler.NewEndpointHandlers(srv, registry)

	table := routing.NewRoutingTable(
		routing.NewBridge(registry, cfg.Endpoint.ExtraMethod, &log),
		nil,
		router.EndpointBuilder(mw, endpointHandlers, &log),
		&log,
		srv.Metrics,
	)
	invalidator := routing.NewInvalidator(srv.Redis, cfg.Endpoint.InvalidationChannel, table, &log, srv.Metrics)

	services := service.NewServices(srv, repos, invalidator)
	handlers := handler.NewHandlers(srv, services, table)

	srv.SetupHTTPServer(router.NewRouter(srv, handlers, mw, table))

	if _, err := table.Refresh(ctx); err != nil {
		log.Error().Err(err).Msg("initial routing build failed, retrying on first request")
	}

	go table.Watch(ctx, cfg.Endpoint.RefreshInterval)
	go invalidator.Listen(ctx)

	if err := srv.StartJobs(); err != nil {
		log.Fatal().Err(err).Msg("failed to start job server")
	}

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
