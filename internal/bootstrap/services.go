package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/Domenick1991/westbrook/config"
	"github.com/Domenick1991/westbrook/internal/cache"
	"github.com/Domenick1991/westbrook/internal/metrics"
	"github.com/Domenick1991/westbrook/internal/pkg/clock"
	"github.com/Domenick1991/westbrook/internal/repository"
	"github.com/Domenick1991/westbrook/internal/service/availability"
	"github.com/Domenick1991/westbrook/internal/service/booking"
	"github.com/Domenick1991/westbrook/internal/service/payment"
	"github.com/Domenick1991/westbrook/internal/storage"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// sessionCache is what both cache implementations offer besides storage.
type sessionCache interface {
	availability.Cache
	booking.Locker
}

// Infra holds the storage-side dependencies chosen by configuration.
type Infra struct {
	Store   *storage.Store
	Cache   sessionCache
	local   *cache.MemoryCache
	clock   clock.Clock
	closers []func()
}

// SweepLocal purges whatever this process holds in memory past its ttl:
// sessions on the memory backend, calendars, handoffs and checkout locks.
func (i *Infra) SweepLocal(ctx context.Context) (int64, error) {
	return i.local.Sweep(ctx, i.clock.Now())
}

func (i *Infra) Close() {
	for n := len(i.closers) - 1; n >= 0; n-- {
		i.closers[n]()
	}
}

// NewInfra connects the configured session backend, change feed and cache.
func NewInfra(ctx context.Context, cfg *config.Config, clk clock.Clock, logger *zap.Logger) (*Infra, error) {
	if clk == nil {
		clk = clock.NewRealClock()
	}
	mem := cache.NewMemoryCache(clk)
	infra := &Infra{local: mem, clock: clk}

	var redisCache *cache.RedisCache
	if cfg.Storage.Backend == config.BackendRedis || cfg.Storage.Feed == config.BackendRedis {
		redisCache = cache.NewRedisCache(cfg.Redis)
		if err := redisCache.Ping(ctx); err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		infra.closers = append(infra.closers, func() { _ = redisCache.Close() })
	}

	var backend storage.Backend
	switch cfg.Storage.Backend {
	case config.BackendRedis:
		backend = redisCache
	case config.BackendPostgres:
		pool, err := pgxpool.New(ctx, cfg.Database.DSN())
		if err != nil {
			infra.Close()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		infra.closers = append(infra.closers, pool.Close)
		repo := repository.NewSessionRepository(pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			infra.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		backend = repo
	default:
		backend = mem
	}

	var feed storage.ChangeFeed = mem
	infra.Cache = mem
	if redisCache != nil {
		infra.Cache = redisCache
		if cfg.Storage.Feed == config.BackendRedis {
			feed = redisCache
		}
	}

	infra.Store = storage.NewStore(backend, feed,
		storage.WithTTL(cfg.Storage.SessionTTL()),
		storage.WithClock(clk),
		storage.WithLogger(logger.Named("storage")),
	)
	logger.Info("session storage ready",
		zap.String("backend", cfg.Storage.Backend),
		zap.String("feed", cfg.Storage.Feed),
		zap.Duration("ttl", cfg.Storage.SessionTTL()),
	)
	return infra, nil
}

type Services struct {
	Availability *availability.AvailabilityService
	Booking      *booking.BookingService
}

// NewServices builds the availability and booking services on top of infra.
func NewServices(cfg *config.Config, infra *Infra, notifier booking.Notifier, m *metrics.BookingMetrics, clk clock.Clock, logger *zap.Logger) (*Services, error) {
	loc, err := cfg.Hotel.Location()
	if err != nil {
		return nil, err
	}

	weekend := make([]time.Weekday, len(cfg.Hotel.WeekendDays))
	for i, d := range cfg.Hotel.WeekendDays {
		weekend[i] = time.Weekday(d)
	}
	genOpts := []availability.GeneratorOption{
		availability.WithHorizonDays(cfg.Hotel.HorizonDays),
		availability.WithWeekendDays(weekend...),
		availability.WithBlackoutOffsets(cfg.Hotel.BlackoutOffsets...),
	}
	if cfg.Hotel.Seed != 0 {
		genOpts = append(genOpts, availability.WithSeed(cfg.Hotel.Seed))
	}
	generator := availability.NewGenerator(genOpts...)
	availabilitySvc := availability.NewAvailabilityService(generator, infra.Cache, cfg.Storage.SessionTTL(),
		availability.WithLocation(loc),
		availability.WithClock(clk),
		availability.WithWizardPage(cfg.HTTP.WizardPage),
		availability.WithLogger(logger.Named("availability")),
	)

	gateway := payment.NewSimulator(
		payment.WithDelay(cfg.Payment.Delay()),
		payment.WithSuccessRate(cfg.Payment.SuccessRate),
		payment.WithClock(clk),
		payment.WithLogger(logger.Named("payment")),
	)

	opts := []booking.BookingServiceOption{
		booking.WithLocker(infra.Cache, cfg.Storage.CheckoutLockTTL()),
		booking.WithIDGenerator(booking.NewIDGenerator(cfg.Hotel.BookingIDPrefix, 0)),
		booking.WithClock(clk),
		booking.WithMetrics(m),
		booking.WithLogger(logger.Named("booking")),
	}
	if notifier != nil {
		opts = append(opts, booking.WithNotifier(notifier))
	}
	bookingSvc := booking.NewBookingService(infra.Store, availabilitySvc, gateway,
		cfg.Hotel.RoomType, cfg.Hotel.BasePricePerNight, opts...)

	return &Services{Availability: availabilitySvc, Booking: bookingSvc}, nil
}
