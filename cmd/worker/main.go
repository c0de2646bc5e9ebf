package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Domenick1991/westbrook/config"
	"github.com/Domenick1991/westbrook/internal/bootstrap"
	"github.com/Domenick1991/westbrook/internal/email"
	"github.com/Domenick1991/westbrook/internal/kafka"
	"github.com/Domenick1991/westbrook/internal/logger"
	"github.com/Domenick1991/westbrook/internal/pkg/clock"
	"go.uber.org/zap"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	lg := logger.MustInstall(cfg.Log)
	defer func() { _ = lg.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clk := clock.NewRealClock()
	infra, err := bootstrap.NewInfra(ctx, cfg, clk, lg)
	if err != nil {
		lg.Fatal("init storage", zap.Error(err))
	}
	defer infra.Close()

	services, err := bootstrap.NewServices(cfg, infra, nil, nil, clk, lg)
	if err != nil {
		lg.Fatal("init services", zap.Error(err))
	}

	if cfg.Kafka.Enabled() {
		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic, lg.Named("kafka"))
		defer consumer.Close()

		emailSender := email.NewSender(cfg.Email, lg.Named("email"))

		go func() {
			err := consumer.ConsumeEvents(ctx, func(ctx context.Context, event kafka.BookingEvent) error {
				if event.Type != kafka.EventBookingConfirmed {
					return nil
				}
				if err := emailSender.Send(ctx, event); err != nil {
					lg.Error("confirmation email failed", zap.String("booking_id", event.BookingID), zap.Error(err))
				}
				return nil
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				lg.Error("consumer stopped", zap.Error(err))
			}
		}()
	} else {
		lg.Info("kafka not configured, confirmation consumer disabled")
	}

	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		bootstrap.RunSweeper(ctx, cfg.Worker.SweepInterval(), "sessions", services.Booking.ExpireStaleSessions, lg)
	default:
		// Redis expires keys itself; the memory backend is swept inside the app process.
		lg.Info("session sweep not needed for backend", zap.String("backend", cfg.Storage.Backend))
		<-ctx.Done()
	}
	lg.Info("shutting down worker")
}
