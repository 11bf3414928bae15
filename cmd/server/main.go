package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/izerwaren/b2bportal/internal/api"
	"github.com/izerwaren/b2bportal/internal/config"
	"github.com/izerwaren/b2bportal/internal/pricing"
	"github.com/izerwaren/b2bportal/internal/repository/postgres"
	"github.com/izerwaren/b2bportal/internal/service"
	"github.com/izerwaren/b2bportal/internal/shopify"
	applog "github.com/izerwaren/b2bportal/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := applog.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Connect to database
	db, err := postgres.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := postgres.Migrate(context.Background(), db); err != nil {
			logger.Fatal("Failed to apply migrations", zap.Error(err))
		}
	}
	repos := postgres.NewRepositories(db, logger)

	policies, err := loadPolicies(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to load pricing policy", zap.Error(err))
	}

	// The Shopify store is both the live catalog and the checkout target when configured
	var (
		storefront service.CatalogLookup
		gateway    service.CheckoutGateway
	)
	if cfg.Shopify.Enabled() {
		client := shopify.NewClient(cfg.Shopify, logger)
		storefront = client
		gateway = client
	} else {
		logger.Warn("Shopify is not configured, using the local catalog and disabling checkout")
	}

	catalog := service.NewCatalogService(storefront, repos, logger)
	services := service.NewServices(cfg, repos, catalog, gateway, policies, logger, nil)
	router := api.NewRouter(cfg, repos, services, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server starting", zap.String("port", cfg.Port), zap.String("environment", cfg.Environment))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown failed", zap.Error(err))
	}
}

func loadPolicies(cfg *config.Config, logger *zap.Logger) (*pricing.PolicyStore, error) {
	store, err := pricing.NewPolicyStore(pricing.DefaultPolicy(), logger)
	if err != nil {
		return nil, err
	}
	if cfg.Pricing.StrictStock {
		store.ForceStrictStock()
	}
	if cfg.Pricing.PolicyFile != "" {
		if err := store.WatchFile(cfg.Pricing.PolicyFile); err != nil {
			return nil, err
		}
		logger.Info("Pricing policy loaded", zap.String("file", cfg.Pricing.PolicyFile))
	}
	return store, nil
}
