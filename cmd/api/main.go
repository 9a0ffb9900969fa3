package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/convexa-app/backoffice-backend/api/routes"
	"github.com/convexa-app/backoffice-backend/internal/affiliates"
	"github.com/convexa-app/backoffice-backend/internal/catalog"
	"github.com/convexa-app/backoffice-backend/internal/finance"
	"github.com/convexa-app/backoffice-backend/internal/invoices"
	"github.com/convexa-app/backoffice-backend/internal/proposals"
	"github.com/convexa-app/backoffice-backend/pkg/config"
	"github.com/convexa-app/backoffice-backend/pkg/db"
	"github.com/convexa-app/backoffice-backend/pkg/logger"
	"github.com/convexa-app/backoffice-backend/pkg/migrate"
	"github.com/convexa-app/backoffice-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	retry := db.NewRetryPolicy(cfg.DB)

	catalogSvc, err := catalog.NewService(catalog.ServiceParams{
		Repo:  catalog.NewRepository(dbClient.DB()),
		Retry: retry,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	affiliateSvc, err := affiliates.NewService(affiliates.ServiceParams{
		Repo:    affiliates.NewRepository(dbClient.DB()),
		Billing: cfg.Billing,
		Retry:   retry,
		Logger:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create affiliate service", err)
		os.Exit(1)
	}

	invoiceSvc, err := invoices.NewService(invoices.ServiceParams{
		Repo:    invoices.NewRepository(dbClient.DB()),
		Billing: cfg.Billing,
		Retry:   retry,
		Logger:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create invoice service", err)
		os.Exit(1)
	}

	proposalSvc, err := proposals.NewService(proposals.ServiceParams{
		Repo:     proposals.NewRepository(dbClient.DB()),
		Catalog:  catalogSvc,
		Coupons:  affiliateSvc,
		Invoices: invoiceSvc,
		Tx:       dbClient,
		Retry:    retry,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create proposal service", err)
		os.Exit(1)
	}

	financeSvc, err := finance.NewService(finance.ServiceParams{
		Invoices: invoiceSvc,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create finance service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	router := routes.NewRouter(cfg, logg, routes.Dependencies{
		DB:    dbClient,
		Redis: redisClient,
		Store: redisClient,
	}, routes.Services{
		Catalog:    catalogSvc,
		Affiliates: affiliateSvc,
		Proposals:  proposalSvc,
		Invoices:   invoiceSvc,
		Finance:    financeSvc,
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		<-shutdownCtx.Done()
		graceCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(graceCtx); err != nil {
			logg.Error(ctx, "error during server shutdown", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "api server shut down gracefully")
}
