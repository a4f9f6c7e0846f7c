// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ciclismo-epn/club-backend/internal/config"
	"github.com/ciclismo-epn/club-backend/internal/database"
	"github.com/ciclismo-epn/club-backend/internal/i18n"
	"github.com/ciclismo-epn/club-backend/internal/logging"
	"github.com/ciclismo-epn/club-backend/internal/queue"
	"github.com/ciclismo-epn/club-backend/internal/router"
	"github.com/ciclismo-epn/club-backend/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	logging.Setup(cfg.Environment, cfg.LogLevel)

	// Initialize database
	db, err := database.Initialize(cfg.Database)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize database")
	}
	defer database.Close(db)

	if cfg.Database.AutoMigrate {
		if err := database.RunMigrations(db); err != nil {
			logrus.WithError(err).Fatal("Failed to run migrations")
		}
	}
	if err := database.SeedAdmin(db, cfg.Admin); err != nil {
		logrus.WithError(err).Fatal("Failed to seed admin user")
	}

	// Initialize i18n
	if err := i18n.Initialize(cfg.I18n.DefaultLocale); err != nil {
		logrus.WithError(err).Fatal("Failed to initialize i18n")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dispatcher, closeQueue := startQueue(ctx, cfg)
	defer closeQueue()

	opts := router.Options{Dispatcher: dispatcher}
	if cfg.Payment.StripeSecretKey != "" {
		opts.Payments = services.NewStripeGateway(cfg.Payment.StripeSecretKey)
	} else {
		logrus.Warn("STRIPE_SECRET_KEY not set, card donations disabled")
	}

	// Set Gin mode
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r, err := router.Initialize(db, cfg, opts)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize router")
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		logrus.WithField("addr", srv.Addr).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("Failed to start server")
		}
	}()

	<-ctx.Done()
	logrus.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("Server forced to shutdown")
	}

	logrus.Info("Server exited")
}

// startQueue publishes to Kafka when brokers are configured and otherwise
// runs the notification handlers on an in-process worker pool.
func startQueue(ctx context.Context, cfg *config.Config) (queue.Dispatcher, func()) {
	if cfg.UsesKafka() {
		publisher := queue.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		logrus.WithFields(logrus.Fields{
			"brokers": cfg.Kafka.Brokers,
			"topic":   cfg.Kafka.Topic,
		}).Info("Deferred tasks published to Kafka")

		return publisher, func() {
			if err := publisher.Close(); err != nil {
				logrus.WithError(err).Warn("Failed to close Kafka publisher")
			}
		}
	}

	mux := queue.NewMux()
	services.NewNotificationService(cfg).Register(mux)

	pool := queue.NewWorkerPool(mux, cfg.Queue.Workers, cfg.Queue.Buffer)
	// The pool outlives the signal context so queued tasks can drain on Stop.
	pool.Start(context.WithoutCancel(ctx))
	logrus.WithField("workers", cfg.Queue.Workers).Info("Deferred tasks run in-process")

	return pool, pool.Stop
}
