package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. WESTBROOK_HTTP_ADDRESS.
const EnvPrefix = "WESTBROOK"

type Config struct {
	HTTP     HTTPConfig     `yaml:"http" envconfig:"http"`
	Database DatabaseConfig `yaml:"database" envconfig:"database"`
	Redis    RedisConfig    `yaml:"redis" envconfig:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka" envconfig:"kafka"`
	Storage  StorageConfig  `yaml:"storage" envconfig:"storage"`
	Hotel    HotelConfig    `yaml:"hotel" envconfig:"hotel"`
	Payment  PaymentConfig  `yaml:"payment" envconfig:"payment"`
	Email    EmailConfig    `yaml:"email" envconfig:"email"`
	Worker   WorkerConfig   `yaml:"worker" envconfig:"worker"`
	Log      LogConfig      `yaml:"log" envconfig:"log"`
}

type HTTPConfig struct {
	Address            string   `yaml:"address" envconfig:"address"`
	SwaggerDir         string   `yaml:"swagger_dir" envconfig:"swagger_dir"`
	AllowOrigins       []string `yaml:"allow_origins" envconfig:"allow_origins"`
	CheckoutPerMinute  int      `yaml:"checkout_per_minute" envconfig:"checkout_per_minute"`
	WizardPage         string   `yaml:"wizard_page" envconfig:"wizard_page"`
	ShutdownTimeoutSec int      `yaml:"shutdown_timeout_seconds" envconfig:"shutdown_timeout_seconds"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host" envconfig:"host"`
	Port     int    `yaml:"port" envconfig:"port"`
	User     string `yaml:"user" envconfig:"user"`
	Password string `yaml:"password" envconfig:"password"`
	Name     string `yaml:"name" envconfig:"name"`
	SSLMode  string `yaml:"ssl_mode" envconfig:"ssl_mode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Addr     string `yaml:"addr" envconfig:"addr"`
	Password string `yaml:"password" envconfig:"password"`
	DB       int    `yaml:"db" envconfig:"db"`
}

type KafkaConfig struct {
	Brokers            []string `yaml:"brokers" envconfig:"brokers"`
	NotificationsTopic string   `yaml:"notifications_topic" envconfig:"notifications_topic"`
	GroupID            string   `yaml:"group_id" envconfig:"group_id"`
	// PublishAttempts bounds how often a confirmation publish is tried.
	PublishAttempts int `yaml:"publish_attempts" envconfig:"publish_attempts"`
}

func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

type StorageConfig struct {
	// Backend is one of memory, redis, postgres.
	Backend string `yaml:"backend" envconfig:"backend"`
	// Feed carries change notifications: memory or redis.
	Feed              string `yaml:"feed" envconfig:"feed"`
	SessionTTLMinutes int    `yaml:"session_ttl_minutes" envconfig:"session_ttl_minutes"`
	CheckoutLockSec   int    `yaml:"checkout_lock_seconds" envconfig:"checkout_lock_seconds"`
}

func (s StorageConfig) SessionTTL() time.Duration {
	return time.Duration(s.SessionTTLMinutes) * time.Minute
}

func (s StorageConfig) CheckoutLockTTL() time.Duration {
	return time.Duration(s.CheckoutLockSec) * time.Second
}

type HotelConfig struct {
	Name              string `yaml:"name" envconfig:"name"`
	RoomType          string `yaml:"room_type" envconfig:"room_type"`
	BookingIDPrefix   string `yaml:"booking_id_prefix" envconfig:"booking_id_prefix"`
	BasePricePerNight int64  `yaml:"base_price_per_night" envconfig:"base_price_per_night"`
	Timezone          string `yaml:"timezone" envconfig:"timezone"`
	HorizonDays       int    `yaml:"horizon_days" envconfig:"horizon_days"`
	WeekendDays       []int  `yaml:"weekend_days" envconfig:"weekend_days"`
	BlackoutOffsets   []int  `yaml:"blackout_offsets" envconfig:"blackout_offsets"`
	// Seed makes availability generation reproducible when non-zero.
	Seed uint64 `yaml:"seed" envconfig:"seed"`
}

func (h HotelConfig) Location() (*time.Location, error) {
	if h.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(h.Timezone)
}

type PaymentConfig struct {
	DelayMillis int     `yaml:"delay_ms" envconfig:"delay_ms"`
	SuccessRate float64 `yaml:"success_rate" envconfig:"success_rate"`
}

func (p PaymentConfig) Delay() time.Duration {
	return time.Duration(p.DelayMillis) * time.Millisecond
}

type EmailConfig struct {
	FromName       string `yaml:"from_name" envconfig:"from_name"`
	FromAddress    string `yaml:"from_address" envconfig:"from_address"`
	SendGridAPIKey string `yaml:"sendgrid_api_key" envconfig:"sendgrid_api_key"`
	DelayMillis    int    `yaml:"delay_ms" envconfig:"delay_ms"`
}

func (e EmailConfig) Delay() time.Duration {
	return time.Duration(e.DelayMillis) * time.Millisecond
}

type WorkerConfig struct {
	ExpirationSweepMinutes int `yaml:"expiration_sweep_minutes" envconfig:"expiration_sweep_minutes"`
}

func (w WorkerConfig) SweepInterval() time.Duration {
	if w.ExpirationSweepMinutes <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(w.ExpirationSweepMinutes) * time.Minute
}

type LogConfig struct {
	Level       string `yaml:"level" envconfig:"level"`
	Development bool   `yaml:"development" envconfig:"development"`
}

// Default is the stock single-room setup with simulated payments and in-memory storage.
func Default() Config {
	return Config{
		HTTP: HTTPConfig{
			Address:            ":8080",
			AllowOrigins:       []string{"*"},
			CheckoutPerMinute:  20,
			WizardPage:         "book-now.html",
			ShutdownTimeoutSec: 5,
		},
		Database: DatabaseConfig{Host: "localhost", Port: 5432, SSLMode: "disable"},
		Redis:    RedisConfig{Addr: "localhost:6379"},
		Kafka: KafkaConfig{
			NotificationsTopic: "booking-notifications",
			GroupID:            "westbrook-worker",
			PublishAttempts:    3,
		},
		Storage: StorageConfig{
			Backend:           BackendMemory,
			Feed:              BackendMemory,
			SessionTTLMinutes: 60,
			CheckoutLockSec:   30,
		},
		Hotel: HotelConfig{
			Name:              "Westbrook Hotel",
			RoomType:          "Westbrook Deluxe",
			BookingIDPrefix:   "WD",
			BasePricePerNight: 65000,
			HorizonDays:       90,
			WeekendDays:       []int{int(time.Friday), int(time.Saturday)},
			BlackoutOffsets:   []int{15, 30, 45},
		},
		Payment: PaymentConfig{DelayMillis: 2500, SuccessRate: 0.9},
		Email: EmailConfig{
			FromName:    "Westbrook Hotel Team",
			FromAddress: "reservations@westbrookhotel.com",
			DelayMillis: 1000,
		},
		Worker: WorkerConfig{ExpirationSweepMinutes: 5},
		Log:    LogConfig{Level: "info"},
	}
}

// LoadConfig reads defaults, then the YAML file at path (if present), then
// .env and WESTBROOK_* environment overrides.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to apply env overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c Config) Validate() error {
	switch c.Storage.Backend {
	case BackendMemory, BackendRedis, BackendPostgres:
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	switch c.Storage.Feed {
	case BackendMemory, BackendRedis:
	default:
		return fmt.Errorf("unknown storage feed %q", c.Storage.Feed)
	}
	if c.Storage.SessionTTLMinutes <= 0 {
		return errors.New("storage.session_ttl_minutes must be positive")
	}
	if c.Kafka.Enabled() && c.Kafka.PublishAttempts <= 0 {
		return errors.New("kafka.publish_attempts must be positive")
	}
	if c.Hotel.BasePricePerNight <= 0 {
		return errors.New("hotel.base_price_per_night must be positive")
	}
	if c.Hotel.HorizonDays <= 0 {
		return errors.New("hotel.horizon_days must be positive")
	}
	if c.Payment.SuccessRate < 0 || c.Payment.SuccessRate > 1 {
		return errors.New("payment.success_rate must be within [0, 1]")
	}
	if _, err := c.Hotel.Location(); err != nil {
		return fmt.Errorf("hotel.timezone: %w", err)
	}
	return nil
}
