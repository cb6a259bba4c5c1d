package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-manager/internal/auth"
	"github.com/ukydev/fleet-manager/internal/cache"
	"github.com/ukydev/fleet-manager/internal/config"
	"github.com/ukydev/fleet-manager/internal/db"
	"github.com/ukydev/fleet-manager/internal/events"
	"github.com/ukydev/fleet-manager/internal/fleet"
	"github.com/ukydev/fleet-manager/internal/handlers"
	"github.com/ukydev/fleet-manager/internal/logger"
	"github.com/ukydev/fleet-manager/internal/middleware"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}
	logr := logger.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := db.ConnectMongo(ctx, cfg.Mongo)
	if err != nil {
		logr.WithError(err).Fatal("Failed to connect to MongoDB")
	}
	store := db.NewStore(client, cfg.Mongo.Database)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			logr.WithError(err).Warn("Failed to disconnect from MongoDB")
		}
	}()
	if err := store.EnsureIndexes(ctx); err != nil {
		logr.WithError(err).Fatal("Failed to create indexes")
	}
	logr.WithField("database", cfg.Mongo.Database).Info("Connected to MongoDB")

	var vehicleCache cache.VehicleCache = cache.Nop{}
	if cfg.Redis.Addr != "" {
		rdb, err := cache.Connect(ctx, cfg.Redis)
		if err != nil {
			logr.WithError(err).Fatal("Failed to connect to Redis")
		}
		defer rdb.Close()
		vehicleCache = cache.NewRedisVehicleCache(rdb, cfg.Redis.TTL)
		logr.WithField("addr", cfg.Redis.Addr).Info("Vehicle cache enabled")
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.MQTT.Broker != "" {
		p, err := events.Connect(cfg.MQTT, logr)
		if err != nil {
			logr.WithError(err).Fatal("Failed to connect to MQTT broker")
		}
		defer p.Close()
		publisher = p
	}

	svc := fleet.NewService(fleet.Deps{
		Users:    store.Users(),
		Vehicles: store.Vehicles(),
		Trips:    store.Trips(),
		Tx:       store,
		Cache:    vehicleCache,
		Events:   publisher,
		Policy:   cfg.Maintenance,
		Log:      logr,
	})
	logr.WithFields(log.Fields{
		"interval_km": svc.Policy().Interval,
		"basis":       svc.Policy().Basis,
	}).Info("Maintenance policy")

	if cfg.Redis.Addr != "" {
		go func() {
			if err := svc.WatchVehicles(ctx, store.Vehicles()); err != nil && !errors.Is(err, context.Canceled) {
				logr.WithError(err).Error("Vehicle change stream stopped")
			}
		}()
	}

	go func() {
		if err := svc.WatchTrips(ctx, store.Trips()); err != nil && !errors.Is(err, context.Canceled) {
			logr.WithError(err).Error("Trip change stream stopped")
		}
	}()

	authService := auth.NewService(cfg.Auth)
	if cfg.Auth.AdminEmail != "" {
		authHandler := handlers.NewAuthHandler(authService, store.Users(), store.Credentials(), store, logr)
		if _, err := authHandler.EnsureFleetManager(ctx, cfg.Auth.AdminName, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword); err != nil {
			logr.WithError(err).Fatal("Failed to create initial fleet manager")
		}
	}

	handler := newHandler(app{
		auth:        authService,
		users:       store.Users(),
		credentials: store.Credentials(),
		tx:          store,
		fleet:       svc,
		rateLimit:   cfg.Server.RateLimit,
		log:         logr,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logr.WithField("port", cfg.Server.Port).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.WithError(err).Fatal("HTTP server failed")
		}
	}()

	<-ctx.Done()
	logr.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.WithError(err).Error("Graceful shutdown failed")
	}
}

// app holds what the HTTP layer needs from the process.
type app struct {
	auth        *auth.Service
	users       db.UserCollection
	credentials db.CredentialCollection
	tx          db.Transactor
	fleet       handlers.FleetService
	rateLimit   int
	log         log.FieldLogger
}

func newHandler(a app) http.Handler {
	am := middleware.NewAuthMiddleware(a.auth, a.log)
	mux := http.NewServeMux()
	handlers.Routes(mux,
		handlers.NewAuthHandler(a.auth, a.users, a.credentials, a.tx, a.log),
		handlers.NewFleetHandler(a.fleet, a.log),
		am,
	)

	var h http.Handler = am.Authenticate(mux)
	h = middleware.NewRateLimitMiddleware().RateLimit(a.rateLimit, 60)(h)
	return middleware.RequestLogger(a.log)(h)
}
