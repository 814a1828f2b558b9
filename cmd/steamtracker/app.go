package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v9"
	"golang.org/x/time/rate"

	"steamtracker/internal/client"
	"steamtracker/internal/configuration"
	"steamtracker/internal/database"
	"steamtracker/internal/logger"
	"steamtracker/internal/pricesync"
	"steamtracker/internal/server"
)

type app struct {
	config *configuration.Config
	logger *logger.Logger
	db     database.Database
	client client.Client
	syncer *pricesync.Syncer
}

// setup builds the application from the config file. The returned cleanup
// must be called even when err is not nil.
func setup(ctx context.Context, configPath string, envPath string) (*app, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	logOutput := io.Writer(os.Stdout)
	appLogger := logger.NewLogger(logger.LevelInfo, logOutput)

	config, err := configuration.GetConfig(configPath, envPath)
	if err != nil {
		appLogger.Error("Error getting configuration from", configPath+":", err)
		return nil, cleanup, err
	}

	if config.LogToFile {
		logFile, err := os.OpenFile("steamtracker.log", os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			appLogger.Error("Error opening log file:", err)
			return nil, cleanup, err
		}
		closers = append(closers, func() {
			if err := logFile.Close(); err != nil {
				appLogger.Error("Error closing log file:", err)
			}
		})
		logOutput = io.MultiWriter(logOutput, logFile)
	}
	appLogger = logger.NewLogger(config.LogLevel, logOutput)

	if config.LogLevel >= logger.LevelDebug {
		conf, err := json.MarshalIndent(config, "", "  ")
		if err != nil {
			appLogger.Error("Error marshalling Config to JSON:", err)
			return nil, cleanup, err
		}
		appLogger.Debugf("Config:\n%s", conf)
	}

	appLogger.Info("Connecting to DB at", config.DatabaseURI)
	dbConn, err := database.ConnectDB(ctx, config.DatabaseURI, config.DatabaseName)
	if err != nil {
		appLogger.Error("Error connecting to DB:", err)
		return nil, cleanup, err
	}
	closers = append(closers, func() {
		if err := dbConn.Disconnect(context.Background()); err != nil {
			appLogger.Error("Error disconnecting from DB:", err)
		}
	})
	db := database.Database{Database: dbConn.Database(config.DatabaseName)}

	var redisClient *redis.Client
	if config.RedisAddress != "" {
		appLogger.Info("Using Redis cache at", config.RedisAddress)
		redisClient = redis.NewClient(&redis.Options{Addr: config.RedisAddress})
		closers = append(closers, func() {
			if err := redisClient.Close(); err != nil {
				appLogger.Error("Error closing Redis client:", err)
			}
		})
	}

	c := client.Client{
		Client:           &http.Client{Timeout: 15 * time.Second},
		Redis:            redisClient,
		SteamLimiter:     rate.NewLimiter(rate.Limit(float64(config.SteamRequestsPerMinute)/60), 1),
		SteamCountryCode: config.SteamCountryCode,
		SteamLanguage:    config.SteamLanguage,
		MailjetAPIKey:    config.MailjetAPIKey,
		MailjetSecretKey: config.MailjetSecretKey,
		FromEmail:        config.FromEmail,
		FromName:         config.FromName,
		Logger:           appLogger,
	}

	return &app{
		config: config,
		logger: appLogger,
		db:     db,
		client: c,
		syncer: &pricesync.Syncer{
			Store:    db,
			Source:   c,
			Notifier: c,
			Logger:   appLogger,
			Config: pricesync.Config{
				Workers:        config.SyncWorkers,
				FetchTimeout:   config.FetchTimeout,
				NotifyCooldown: config.NotifyCooldown,
				AlertPolicy:    config.AlertPolicy,
			},
		},
	}, cleanup, nil
}

func runServe(configPath string, envPath string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, cleanup, err := setup(ctx, configPath, envPath)
	defer cleanup()
	if err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			a.logger.Errorf("APPLICATION CRASHED: %+v", r)
		}
	}()

	srv := server.Server{
		DB:            a.db,
		Client:        a.client,
		Syncer:        a.syncer,
		Logger:        a.logger,
		AuthSecretKey: a.config.AuthSecretKey,
	}

	a.logger.Info("Starting price sync with interval:", a.config.SyncInterval)
	ticker := time.NewTicker(a.config.SyncInterval)
	defer ticker.Stop()
	syncDone := make(chan struct{})
	go func() {
		a.syncer.SyncInInterval(ctx, ticker)
		close(syncDone)
	}()

	httpSrv := &http.Server{
		Handler:     srv.Router(),
		Addr:        a.config.ServerAddress,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 15 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("Serving on", httpSrv.Addr)
		serveErr <- httpSrv.ListenAndServe()
	}()

	select {
	case err = <-serveErr:
		a.logger.Error("HTTP server stopped:", err)
		stop()
	case <-ctx.Done():
		a.logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err = httpSrv.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("Error shutting down HTTP server:", err)
		}
	}
	<-syncDone
	return err
}

func runSync(configPath string, envPath string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, cleanup, err := setup(ctx, configPath, envPath)
	defer cleanup()
	if err != nil {
		return err
	}
	report, err := a.syncer.RunCycle(ctx)
	if err != nil {
		a.logger.Error("Sync cycle failed:", err)
		return err
	}
	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	a.logger.Infof("Cycle report:\n%s", out)
	return nil
}
