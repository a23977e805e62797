package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	kafkaGo "github.com/segmentio/kafka-go"

	"shipbooking/config"
	"shipbooking/internal/cache"
	"shipbooking/internal/email"
	"shipbooking/internal/kafka"
	"shipbooking/internal/repository"
	"shipbooking/internal/service/booking"
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()
	redisCache := cache.NewRedisCache(cfg.Redis, time.Duration(cfg.Booking.VoyagesCacheTTLSeconds)*time.Second)

	voyageRepo := repository.NewVoyageRepository(pool)
	allocationRepo := repository.NewAllocationRepository(pool)
	bookingRepo := repository.NewBookingRepository(pool)
	ledgerRepo := repository.NewLedgerRepository()
	refGen := repository.NewReferenceGenerator(pool)
	txManager := repository.NewTxManager(pool)

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

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic)
	defer consumer.Close()

	emailSender := email.NewSender()

	go func() {
		if err := consumer.Consume(ctx, func(ctx context.Context, msg kafkaGo.Message) error {
			var event kafka.BookingEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				log.Warn().Err(err).Msg("decode event")
				return nil
			}
			return emailSender.Send(ctx, event)
		}); err != nil {
			log.Warn().Err(err).Msg("consumer stopped")
		}
	}()

	settleTicker := time.NewTicker(time.Duration(cfg.Worker.SettlementSweepMinutes) * time.Minute)
	defer settleTicker.Stop()
	settlementAge := time.Duration(cfg.Worker.SettlementAgeMinutes) * time.Minute

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-settleTicker.C:
			settled, err := bookingService.SettlePendingBookings(ctx, settlementAge)
			if err != nil {
				log.Warn().Err(err).Msg("settle pending bookings")
				continue
			}
			if len(settled) > 0 {
				log.Info().Int("count", len(settled)).Msg("settled bookings")
			}
		case s := <-sig:
			log.Info().Str("signal", s.String()).Msg("shutting down")
			return
		}
	}
}
