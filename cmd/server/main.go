// The main file of Tracker.

package main

import (
	"Tracker/internal/access"
	"Tracker/internal/auth"
	"Tracker/internal/config"
	"Tracker/internal/hub"
	"Tracker/internal/metrics"
	"Tracker/internal/notify"
	"Tracker/internal/presence"
	"Tracker/internal/session"
	"Tracker/internal/user"
	"Tracker/pkg/cleanup"
	"Tracker/pkg/db"
	"Tracker/pkg/log"
	"Tracker/pkg/validations"
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/coder/quartz"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/xid"
)

func main() {
	// Env file is optional, the environment alone is enough in containers.
	cfg, cfgerr := config.Load(os.Getenv("TRACKER_ENV_FILE"))
	logger := log.New(cfg.Version, cfg.Env)
	if cfgerr != nil {
		logger.Fatal().Err(cfgerr).Msg("Tracker configuration is invalid.")
	}
	logger.Info().Msgf("Welcome to Tracker: v%s", cfg.Version)
	logger.Info().Msgf("Tracker Environment: %s", cfg.Env)

	// This is the preferred mode used by gin server in DEV environment.
	if cfg.Env == "DEV" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Sending a PING request to DB for connection status check.
	dbConnWrp, dberr := db.NewDbConnection(ctx, logger, db.Options{
		Addr:         cfg.RedisURL(),
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		TxMaxRetries: cfg.RedisTxMaxRetries,
	})
	if dberr != nil {
		logger.Fatal().Err(dberr).Msg("Redis client couldn't be created.")
	}
	if dberr = dbConnWrp.CheckDbConnection(ctx, logger); dberr != nil {
		logger.Fatal().Err(dberr).Msg("Redis client couldn't PING the redis-server.")
	}

	// Registering custom validations used by govalidator.
	validations.RegisterCustomValidations(ctx, logger)
	notify.RegisterCustomValidations(ctx, logger)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	var broker hub.Broker
	switch cfg.Broker {
	case config.BrokerRedis:
		broker = hub.NewRedisBroker(dbConnWrp, logger)
	default:
		broker = hub.NewMemoryBroker()
	}
	dispatcher, dsperr := hub.NewDispatcher(ctx, hub.NewRegistry(), broker, hub.Options{
		DeliveryTimeout:   cfg.DeliveryTimeout,
		Concurrency:       cfg.FanoutConcurrency,
		DropSlowConsumers: cfg.DropSlowConsumers,
	}, m, logger)
	if dsperr != nil {
		logger.Fatal().Err(dsperr).Str("broker", cfg.Broker).Msg("Broadcast dispatcher couldn't subscribe to the broker.")
	}

	clock := quartz.NewReal()
	var presenceOpts []presence.Option
	var presenceRepo presence.Repository
	var presenceSink *presence.RedisSink
	if cfg.PresencePersist {
		presenceRepo = presence.NewRepository(dbConnWrp, cfg.PresenceRetention)
		presenceSink = presence.NewRedisSink(presenceRepo, logger, 1024)
		go presenceSink.Run(ctx)
		presenceOpts = append(presenceOpts, presence.WithSink(presenceSink))
	}
	presenceStore := presence.NewStore(append(presenceOpts, presence.WithClock(clock))...)
	go presenceStore.RunJanitor(ctx, time.Minute, cfg.PresenceRetention)
	presenceService := presence.NewService(presenceStore, presenceRepo, cfg.PresenceRetention, logger)

	userService := user.NewService(user.NewRepository(dbConnWrp), logger)
	accessService := access.NewService(access.NewRepository(dbConnWrp), logger)
	sessionService := session.NewService(session.Deps{
		Verifier:   auth.NewVerifier(cfg.AccessTokenSecret),
		Users:      userService,
		Access:     accessService,
		Dispatcher: dispatcher,
		Presence:   presenceStore,
		Metrics:    m,
		Clock:      clock,
		Logger:     logger,
	}, session.Options{
		MaxMessageBytes: cfg.MaxMessageBytes,
		SendQueueSize:   cfg.SendQueueSize,
		PingInterval:    cfg.PingInterval,
		WriteTimeout:    cfg.WriteTimeout,
	})
	notifyService := notify.NewService(dispatcher, logger)

	hostname, _ := os.Hostname()
	instance := hostname + "-" + xid.New().String()
	metricsService := metrics.NewService(instance, sessionService.Len, metrics.NewRepository(dbConnWrp), clock, logger)
	reporterCtx, stopReporter := context.WithCancel(ctx)
	reporterDone := make(chan struct{})
	go func() {
		defer close(reporterDone)
		metricsService.RunReporter(reporterCtx, 15*time.Second)
	}()

	// Initializing the gin server.
	server := gin.New()
	Router(server, cfg, routerServices{
		session:  sessionService,
		notify:   notifyService,
		metrics:  metricsService,
		user:     userService,
		access:   accessService,
		presence: presenceService,
	}, registry, logger)

	// Running the server with defined addr and port.
	srv := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           server,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ListenAndServe is a blocking operation, putting it a goroutine
	go func() {
		logger.Info().Str("addr", srv.Addr).Str("instance", instance).Msg("Tracker is listening.")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Tracker server stopped unexpectedly.")
		}
	}()

	// Graceful shutdown of Tracker server triggered due to system interruptions.
	// Hijacked websocket connections are not tracked by srv.Shutdown, Sessions closes them.
	wait := cleanup.GracefulShutdown(ctx, logger, cfg.ShutdownTimeout, map[string]cleanup.Operation{
		"Gin": func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
		"Sessions": func(ctx context.Context) error {
			return sessionService.Shutdown(ctx)
		},
	})
	<-wait

	// Everything below depends on the sessions being gone.
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelShutdown()
	stopReporter()
	<-reporterDone
	if err := broker.Close(); err != nil {
		logger.Error().Err(err).Msg("Broker shutdown failed.")
	}
	if presenceSink != nil {
		if err := presenceSink.Close(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("Presence sink shutdown failed.")
		}
	}
	cancel()
	if err := dbConnWrp.CloseDbConnection(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Redis-server shutdown failed.")
	}
	logger.Info().Msg("Tracker stopped.")
}
