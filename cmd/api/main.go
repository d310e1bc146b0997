package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"storystudio/internal/adapter/repo"
	"storystudio/internal/generation"
	"storystudio/internal/http/handlers"
	httpapi "storystudio/internal/http/httpapi"
	"storystudio/internal/infra"
	"storystudio/internal/infra/credentials"
	"storystudio/internal/infra/geoip"
	"storystudio/internal/middleware"
	"storystudio/internal/realtime"
	"storystudio/internal/storage"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, "api")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: db connection failed")
	}
	defer pool.Close()

	runner := infra.NewSQLRunner(pool, logger)
	stories := repo.NewStoryRepository(runner)

	token := cfg.TriggerToken
	if token == "" {
		if token, err = credentials.NewStore(runner).TriggerToken(ctx); err != nil {
			logger.Warn().Err(err).Msg("api: trigger token lookup failed")
		}
	}
	if token == "" {
		logger.Warn().Msg("api: no trigger token configured, webhook calls are unauthenticated")
	}
	trigger := generation.NewHTTPTrigger(cfg.TriggerURL, token, cfg.TriggerTimeout, logger)

	poller := &generation.Poller{
		Store:       stories,
		Interval:    cfg.PollInterval,
		MaxAttempts: cfg.PollMaxAttempts,
	}
	sessions := generation.NewSessions(ctx, generation.ControllerDeps{
		Trigger:   trigger,
		Poller:    poller,
		Assembler: &generation.Assembler{Store: stories},
		Logger:    logger,
	}, stories, cfg.SessionTTL, logger)

	hub := realtime.NewHub(logger)
	var publisher realtime.Publisher = hub
	if cfg.RedisURL != "" {
		bus, err := realtime.NewRedisBus(ctx, cfg.RedisURL, cfg.RedisChannel, 5, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("api: redis connection failed")
		}
		defer bus.Close()
		if err := bus.StartForwarder(ctx, hub.Broadcast); err != nil {
			logger.Fatal().Err(err).Msg("api: redis subscribe failed")
		}
		publisher = bus
	}
	sessions.Observe(func(c *generation.Controller) {
		realtime.Attach(c, publisher, logger)
	})

	var lookup middleware.CountryLookup
	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("api: geoip disabled")
	} else if resolver != nil {
		defer resolver.Close()
		lookup = resolver.CountryCode
	}

	files, err := storage.NewFileStore(cfg.StoragePath, cfg.StorageBaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: storage init failed")
	}

	app := handlers.NewApp(stories, sessions, hub, files, logger)
	app.Ping = pool.Ping

	router := httpapi.NewRouter(app, httpapi.Options{
		Logger:          logger,
		AllowedOrigins:  cfg.AllowedOrigins,
		DefaultLocale:   cfg.DefaultLocale,
		CountryLookup:   lookup,
		RateLimitPerMin: cfg.RateLimitPerMin,
	})
	server := infra.NewHTTPServer(cfg, router)
	server.OnShutdown(sessions.Shutdown)
	server.OnShutdown(hub.Close)

	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Dur("poll_interval", cfg.PollInterval).
			Int("poll_max_attempts", cfg.PollMaxAttempts).
			Dur("poll_budget", cfg.PollBudget()).
			Msg("api: listening")
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("api: http server failed")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("api: shutdown failed")
	}

	waited := make(chan struct{})
	go func() {
		trigger.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-time.After(cfg.TriggerTimeout):
		logger.Warn().Msg("api: trigger requests still in flight at exit")
	}
	logger.Info().Msg("api: stopped")
}
