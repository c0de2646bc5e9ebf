package payment

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/Domenick1991/westbrook/internal/domain"
	"github.com/Domenick1991/westbrook/internal/pkg/clock"
	"go.uber.org/zap"
)

const (
	DefaultDelay       = 2500 * time.Millisecond
	DefaultSuccessRate = 0.9

	MessageSuccess  = "Payment successful"
	MessageDeclined = "Payment failed. Please try again."
)

var (
	ErrDeclined      = errors.New("payment declined")
	ErrUnknownMethod = errors.New("unknown payment method")
)

type ChargeRequest struct {
	Method     domain.PaymentMethod
	Amount     int64
	PayerEmail string
	BookingID  string
}

type Result struct {
	Success       bool   `json:"success"`
	TransactionID string `json:"transaction_id,omitempty"`
	Message       string `json:"message"`
}

// Gateway charges a payer. A declined charge returns a Result together with ErrDeclined.
type Gateway interface {
	Charge(ctx context.Context, req ChargeRequest) (*Result, error)
}

// Simulator settles every charge locally after a fixed delay with a fixed
// success probability. Card, Paystack and Flutterwave never leave the process.
type Simulator struct {
	delay       time.Duration
	successRate float64
	clock       clock.Clock
	logger      *zap.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

type SimulatorOption func(*Simulator)

func WithDelay(d time.Duration) SimulatorOption {
	return func(s *Simulator) {
		if d >= 0 {
			s.delay = d
		}
	}
}

func WithSuccessRate(rate float64) SimulatorOption {
	return func(s *Simulator) {
		s.successRate = rate
	}
}

func WithSeed(seed uint64) SimulatorOption {
	return func(s *Simulator) {
		s.rng = rand.New(rand.NewPCG(seed, seed))
	}
}

func WithClock(c clock.Clock) SimulatorOption {
	return func(s *Simulator) {
		s.clock = c
	}
}

func WithLogger(logger *zap.Logger) SimulatorOption {
	return func(s *Simulator) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewSimulator(opts ...SimulatorOption) *Simulator {
	s := &Simulator{
		delay:       DefaultDelay,
		successRate: DefaultSuccessRate,
		clock:       clock.NewRealClock(),
		logger:      zap.NewNop(),
		rng:         rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Simulator) Charge(ctx context.Context, req ChargeRequest) (*Result, error) {
	provider, err := providerName(req.Method)
	if err != nil {
		return nil, err
	}

	s.logger.Info("processing payment",
		zap.String("provider", provider),
		zap.Int64("amount", req.Amount),
		zap.String("payer_email", req.PayerEmail),
		zap.String("booking_id", req.BookingID),
	)

	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if !s.approve() {
		s.logger.Warn("payment declined", zap.String("provider", provider), zap.String("booking_id", req.BookingID))
		return &Result{Success: false, Message: MessageDeclined}, ErrDeclined
	}

	return &Result{
		Success:       true,
		TransactionID: fmt.Sprintf("TXN-%d", s.clock.Now().UnixMilli()),
		Message:       MessageSuccess,
	}, nil
}

func (s *Simulator) approve() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64() < s.successRate
}

func providerName(method domain.PaymentMethod) (string, error) {
	switch method {
	case domain.PaymentMethodCard:
		return "card", nil
	case domain.PaymentMethodPaystack:
		return "paystack", nil
	case domain.PaymentMethodFlutterwave:
		return "flutterwave", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMethod, method)
	}
}

var _ Gateway = (*Simulator)(nil)
