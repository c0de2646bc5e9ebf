package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/westbrook/api"
	"github.com/Domenick1991/westbrook/config"
	"github.com/Domenick1991/westbrook/internal/bootstrap"
	"github.com/Domenick1991/westbrook/internal/email"
	"github.com/Domenick1991/westbrook/internal/kafka"
	"github.com/Domenick1991/westbrook/internal/logger"
	"github.com/Domenick1991/westbrook/internal/metrics"
	"github.com/Domenick1991/westbrook/internal/pkg/clock"
	"github.com/Domenick1991/westbrook/internal/service/booking"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
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
	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clk := clock.NewRealClock()
	infra, err := bootstrap.NewInfra(ctx, cfg, clk, lg)
	if err != nil {
		lg.Fatal("init storage", zap.Error(err))
	}
	defer infra.Close()

	var notifier booking.Notifier
	if cfg.Kafka.Enabled() {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, lg.Named("kafka"))
		defer producer.Close()
		if err := producer.CheckConnection(ctx); err != nil {
			lg.Fatal("kafka unreachable", zap.Error(err))
		}
		notifier = kafka.NewNotifier(producer, cfg.Kafka.NotificationsTopic, cfg.Kafka.PublishAttempts, clk)
	} else {
		notifier = email.NewDirectNotifier(email.NewSender(cfg.Email, lg.Named("email")), clk)
	}

	bookingMetrics := metrics.NewBookingMetrics(prometheus.DefaultRegisterer)
	services, err := bootstrap.NewServices(cfg, infra, notifier, bookingMetrics, clk, lg)
	if err != nil {
		lg.Fatal("init services", zap.Error(err))
	}

	go bootstrap.RunSweeper(ctx, cfg.Worker.SweepInterval(), "local", infra.SweepLocal, lg)

	limiter := api.NewRateLimiter(cfg.HTTP.CheckoutPerMinute, lg)
	go limiter.RunEviction(ctx, time.Minute)
	router := bootstrap.NewRouter(cfg, lg, prometheus.DefaultGatherer,
		api.NewSessionHandler(services.Booking, lg, limiter.Middleware()),
		api.NewAvailabilityHandler(services.Availability, lg),
	)

	if err := bootstrap.Run(ctx, cfg, lg, router); err != nil {
		lg.Fatal("server error", zap.Error(err))
	}
}
