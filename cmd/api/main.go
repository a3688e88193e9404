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

	_ "github.com/joho/godotenv/autoload"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/octobees/leads-discovery/internal/collector"
	"github.com/octobees/leads-discovery/internal/config"
	"github.com/octobees/leads-discovery/internal/contact"
	"github.com/octobees/leads-discovery/internal/database"
	"github.com/octobees/leads-discovery/internal/discovery"
	"github.com/octobees/leads-discovery/internal/handler"
	"github.com/octobees/leads-discovery/internal/intent"
	"github.com/octobees/leads-discovery/internal/llm"
	"github.com/octobees/leads-discovery/internal/logging"
	"github.com/octobees/leads-discovery/internal/metrics"
	middlewarepkg "github.com/octobees/leads-discovery/internal/middleware"
	"github.com/octobees/leads-discovery/internal/pattern"
	"github.com/octobees/leads-discovery/internal/repository"
	"github.com/octobees/leads-discovery/internal/router"
	"github.com/octobees/leads-discovery/internal/search"
	"github.com/octobees/leads-discovery/internal/service"
	"github.com/octobees/leads-discovery/internal/session"
	"github.com/octobees/leads-discovery/internal/verify"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.LogMode, cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to connect database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.RunMigrations(pool, logger); err != nil {
		logger.Fatal("failed to migrate database", zap.Error(err))
	}

	// A missing credential is not fatal: the catalogue endpoints keep working
	// and every discovery request reports the failure.
	model, err := llm.New(cfg.LLM, logger)
	if err != nil {
		if !errors.Is(err, llm.ErrMissingCredential) {
			logger.Fatal("failed to configure llm", zap.Error(err))
		}
		logger.Warn("text inference disabled", zap.Error(err))
		model = nil
	}

	aggregator, closeSearch := buildSearch(ctx, cfg.Search, logger)
	defer closeSearch()

	sessions, closeSessions, err := buildSessions(cfg.Scraper)
	if err != nil {
		logger.Fatal("failed to configure scraper sessions", zap.Error(err))
	}
	defer closeSessions()

	httpClient := &http.Client{Timeout: 15 * time.Second}
	recorder := metrics.New()

	companiesRepo := repository.NewPGXCompaniesRepository(pool)
	patternsRepo := repository.NewPGXPatternsRepository(pool)
	contactsRepo := repository.NewPGXContactsRepository(pool)
	emailsRepo := repository.NewPGXEmailsRepository(pool)
	requestsRepo := repository.NewPGXRequestsRepository(pool)

	var evidence search.Aggregator
	if _, disabled := aggregator.(search.Disabled); !disabled {
		evidence = aggregator
	}

	deps := discovery.Dependencies{
		Stores: discovery.Stores{
			Companies: companiesRepo,
			Patterns:  patternsRepo,
			Contacts:  contactsRepo,
			Emails:    emailsRepo,
			Requests:  requestsRepo,
		},
		Model:    model,
		Intent:   intent.NewResolver(model, intent.NewIPAPI(httpClient, cfg.Discovery.GeoIPBaseURL), cfg.Discovery.DefaultLocation, logger),
		Sessions: sessions,
		Collector: collector.New(collector.Config{
			URLTemplate:   cfg.Scraper.ListingURLTemplate,
			MaxPages:      cfg.Scraper.MaxPages,
			MaxEmptyPages: cfg.Scraper.MaxEmptyPages,
			PageDelay:     cfg.Scraper.PageDelay,
			PageJitter:    cfg.Scraper.PageJitter,
			PhoneRegion:   cfg.Discovery.PhoneRegion,
		}, logger),
		Patterns: pattern.NewEngine(model, evidence, logger, pattern.WithBatchSize(cfg.Discovery.PatternBatchSize)),
		Contacts: contact.NewResolver(aggregator, model, contact.Config{
			MaxResults:       cfg.Discovery.ContactMaxResults,
			MinConfidence:    cfg.Discovery.ContactMinConfidence,
			EmailsPerContact: cfg.Discovery.EmailsPerContact,
			Mode:             cfg.Discovery.ContactExtraction,
		}, logger),
		Metrics: recorder,
	}
	if cfg.Discovery.ValidateEmails {
		validator, err := buildValidator(cfg.Discovery.DNSServers, logger)
		if err != nil {
			logger.Fatal("failed to configure email validation", zap.Error(err))
		}
		deps.Validator = validator
	}

	orchestrator := discovery.New(deps, discovery.Config{
		InterCompanyDelay: cfg.Discovery.InterCompanyDelay,
		FetchTimeout:      cfg.Scraper.FetchTimeout,
	}, logger)

	companiesService := service.NewCompaniesService(companiesRepo, patternsRepo, contactsRepo, emailsRepo)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middlewarepkg.RequestID())
	e.Use(middlewarepkg.Logging(logger))
	e.Use(echoMiddleware.Recover())

	router.Register(e, cfg, router.Handlers{
		Discovery: handler.NewDiscoveryHandler(orchestrator, logger),
		Companies: handler.NewCompaniesHandler(companiesService),
		Health:    handler.Health(pool),
		Metrics:   recorder.Handler(),
	})

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("port", cfg.Port), zap.String("scraper_mode", cfg.Scraper.Mode))
		serverErr <- e.Start(":" + cfg.Port)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
		}
		return
	}

	// Open discovery streams observe the cancelled request context, record
	// themselves as cancelled and release their sessions.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
	}
}

func buildSearch(ctx context.Context, cfg config.SearchConfig, logger *zap.Logger) (search.Aggregator, func()) {
	google, err := search.NewGoogle(ctx, cfg.GoogleAPIKey, cfg.GoogleCX, cfg.Pages, cfg.Timeout, logger)
	if err != nil {
		logger.Warn("search aggregator disabled", zap.Error(err))
		return search.Disabled{}, func() {}
	}
	if cfg.RedisAddr == "" {
		return google, func() {}
	}

	cache, err := search.NewRedisCache(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("search cache disabled", zap.Error(err))
		return google, func() {}
	}
	return search.NewCached(google, cache, cfg.CacheTTL, logger), func() { _ = cache.Close() }
}

func buildSessions(cfg config.ScraperConfig) (session.Manager, func(), error) {
	switch cfg.Mode {
	case "chrome":
		m := session.NewChromeManager(cfg.ChromeWSURL)
		return m, m.Close, nil
	case "http":
		return session.NewHTTPManager(&http.Client{Timeout: cfg.FetchTimeout}), func() {}, nil
	default:
		m, err := session.NewRemoteManager(nil, cfg.BaseURL, 2*cfg.FetchTimeout)
		if err != nil {
			return nil, nil, err
		}
		return m, func() {}, nil
	}
}

func buildValidator(servers []string, logger *zap.Logger) (*verify.Validator, error) {
	if len(servers) == 0 {
		return verify.New(logger), nil
	}
	resolver, err := verify.NewServerResolver(servers)
	if err != nil {
		return nil, err
	}
	return verify.New(logger, verify.WithDNSResolver(resolver)), nil
}
