// cmd/notifier/main.go
package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/ciclismo-epn/club-backend/internal/config"
	"github.com/ciclismo-epn/club-backend/internal/logging"
	"github.com/ciclismo-epn/club-backend/internal/queue"
	"github.com/ciclismo-epn/club-backend/internal/services"
)

// The notifier consumes deferred tasks published by the API when Kafka is
// configured and delivers them through Telegram and email.
func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	logging.Setup(cfg.Environment, cfg.LogLevel)

	if !cfg.UsesKafka() {
		logrus.Fatal("KAFKA_BROKERS is required for the notifier")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var dedup queue.Deduper = queue.NoopDeduper{}
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			logrus.WithError(err).Fatal("Failed to connect to Redis")
		}
		dedup = queue.NewRedisDeduper(rdb, "notifier")
	} else {
		logrus.Warn("REDIS_ADDR not set, redelivered tasks are not deduplicated")
	}

	mux := queue.NewMux()
	services.NewNotificationService(cfg).Register(mux)

	consumer := queue.NewKafkaConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.Topic, mux, dedup)

	logrus.WithFields(logrus.Fields{
		"brokers": cfg.Kafka.Brokers,
		"topic":   cfg.Kafka.Topic,
		"group":   cfg.Kafka.GroupID,
	}).Info("Notifier started")

	if err := consumer.Run(ctx); err != nil {
		logrus.WithError(err).Fatal("Notifier stopped")
	}
	logrus.Info("Notifier exited")
}
