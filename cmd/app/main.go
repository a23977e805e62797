package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"shipbooking/config"
	"shipbooking/internal/bootstrap"
	"shipbooking/internal/cache"
	"shipbooking/internal/identity"
	"shipbooking/internal/kafka"
	"shipbooking/internal/quota"
	"shipbooking/internal/repository"
	"shipbooking/internal/service/booking"
	"shipbooking/internal/service/voyages"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	redisCache := cache.NewRedisCache(cfg.Redis, time.Duration(cfg.Booking.VoyagesCacheTTLSeconds)*time.Second)
	quotaGate := quota.NewRedisGate(cfg.Redis, cfg.Booking.MonthlyQuota)
	provider := identity.NewProvider(cfg.JWT.Secret)
	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()

	voyageRepo := repository.NewVoyageRepository(pool)
	allocationRepo := repository.NewAllocationRepository(pool)
	bookingRepo := repository.NewBookingRepository(pool)
	ledgerRepo := repository.NewLedgerRepository()
	refGen := repository.NewReferenceGenerator(pool)
	txManager := repository.NewTxManager(pool)

	voyageService := voyages.NewVoyageService(voyageRepo, allocationRepo, redisCache)
	bookingService := booking.NewBookingService(
		bookingRepo,
		voyageRepo,
		allocationRepo,
		ledgerRepo,
		refGen,
		txManager,
		redisCache,
		producer,
		cfg.Kafka.BookingTopic,
		time.Duration(cfg.Booking.ReferenceLockTTLSeconds)*time.Second,
		booking.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
		booking.WithLogger(log.Logger),
	)

	if err := bootstrap.Run(ctx, cfg, log.Logger, voyageService, bookingService, provider, quotaGate); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}
