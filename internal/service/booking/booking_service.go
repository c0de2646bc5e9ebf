package booking

import (
	"context"
	"errors"
	"time"

	"github.com/Domenick1991/westbrook/internal/domain"
	"github.com/Domenick1991/westbrook/internal/metrics"
	"github.com/Domenick1991/westbrook/internal/pkg/clock"
	"github.com/Domenick1991/westbrook/internal/service/payment"
	"go.uber.org/zap"
)

type BookingUseCase interface {
	Start(ctx context.Context, sessionID string, prefill Prefill) (*domain.BookingState, error)
	Get(ctx context.Context, sessionID string) (*domain.BookingState, error)
	UpdateStay(ctx context.Context, sessionID string, in StayInput) (*domain.BookingState, error)
	Next(ctx context.Context, sessionID string) (*domain.BookingState, error)
	Prev(ctx context.Context, sessionID string) (*domain.BookingState, error)
	SubmitGuestInfo(ctx context.Context, sessionID string, info domain.GuestInfo) (*domain.BookingState, error)
	SelectPayment(ctx context.Context, sessionID string, sel PaymentSelection) (*domain.BookingState, error)
	Checkout(ctx context.Context, sessionID string) (*CheckoutResult, error)
	Reset(ctx context.Context, sessionID string) error
	Watch(ctx context.Context, sessionID string) (<-chan domain.BookingState, error)
	ExpireStaleSessions(ctx context.Context) (int64, error)
}

// SessionStore persists booking state per session.
type SessionStore interface {
	Save(ctx context.Context, sessionID string, state domain.BookingState) error
	Load(ctx context.Context, sessionID string) (*domain.BookingState, error)
	Remove(ctx context.Context, sessionID string) error
	Watch(ctx context.Context, sessionID string) (<-chan domain.BookingState, error)
	Sweep(ctx context.Context) (int64, error)
}

type CalendarSource interface {
	Calendar(ctx context.Context, sessionID string) (domain.AvailabilityMap, error)
}

// Locker guards a session against overlapping checkouts.
type Locker interface {
	AcquireCheckoutLock(ctx context.Context, sessionID string, ttl time.Duration) (bool, error)
	ReleaseCheckoutLock(ctx context.Context, sessionID string) error
}

// PaymentSelection updates whichever fields are set.
type PaymentSelection struct {
	Method   *domain.PaymentMethod `json:"paymentMethod"`
	PayLater *bool                 `json:"isPayLater"`
}

type CheckoutResult struct {
	State   domain.BookingState `json:"state"`
	Payment *payment.Result     `json:"payment,omitempty"`
}

type BookingService struct {
	store     SessionStore
	calendars CalendarSource
	payments  payment.Gateway
	notifier  Notifier
	locker    Locker
	lockTTL   time.Duration
	ids       *IDGenerator
	roomType  string
	basePrice int64
	clock     clock.Clock
	metrics   *metrics.BookingMetrics
	logger    *zap.Logger
}

type BookingServiceOption func(*BookingService)

func WithNotifier(n Notifier) BookingServiceOption {
	return func(s *BookingService) {
		s.notifier = n
	}
}

func WithLocker(l Locker, ttl time.Duration) BookingServiceOption {
	return func(s *BookingService) {
		s.locker = l
		if ttl > 0 {
			s.lockTTL = ttl
		}
	}
}

func WithIDGenerator(ids *IDGenerator) BookingServiceOption {
	return func(s *BookingService) {
		if ids != nil {
			s.ids = ids
		}
	}
}

func WithClock(c clock.Clock) BookingServiceOption {
	return func(s *BookingService) {
		s.clock = c
	}
}

func WithMetrics(m *metrics.BookingMetrics) BookingServiceOption {
	return func(s *BookingService) {
		s.metrics = m
	}
}

func WithLogger(logger *zap.Logger) BookingServiceOption {
	return func(s *BookingService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewBookingService(store SessionStore, calendars CalendarSource, payments payment.Gateway,
	roomType string, basePrice int64, opts ...BookingServiceOption) *BookingService {
	s := &BookingService{
		store:     store,
		calendars: calendars,
		payments:  payments,
		lockTTL:   30 * time.Second,
		ids:       NewIDGenerator("WD", 0),
		roomType:  roomType,
		basePrice: basePrice,
		clock:     clock.NewRealClock(),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start restores the session's saved state (or begins a fresh one), applies
// the query prefill on top and saves the result.
func (s *BookingService) Start(ctx context.Context, sessionID string, prefill Prefill) (*domain.BookingState, error) {
	saved, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	restored := saved != nil
	state := domain.NewBookingState(s.roomType, s.basePrice)
	if restored {
		state = *saved
	}

	w, err := s.wizard(ctx, sessionID, state)
	if err != nil {
		return nil, err
	}
	w.ApplyPrefill(prefill)

	out := w.State()
	if err := s.store.Save(ctx, sessionID, out); err != nil {
		return nil, err
	}
	s.metrics.ObserveSessionStart(restored)
	s.logger.Info("booking session started",
		zap.String("session_id", sessionID),
		zap.Bool("restored", restored),
		zap.Stringer("step", out.CurrentStep),
	)
	return &out, nil
}

func (s *BookingService) Get(ctx context.Context, sessionID string) (*domain.BookingState, error) {
	state, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, ErrSessionNotFound
	}
	return state, nil
}

func (s *BookingService) UpdateStay(ctx context.Context, sessionID string, in StayInput) (*domain.BookingState, error) {
	return s.mutate(ctx, sessionID, func(ctx context.Context, w *Wizard) error {
		return w.UpdateStay(ctx, in)
	})
}

func (s *BookingService) Next(ctx context.Context, sessionID string) (*domain.BookingState, error) {
	return s.mutate(ctx, sessionID, func(ctx context.Context, w *Wizard) error {
		return w.Next(ctx)
	})
}

func (s *BookingService) Prev(ctx context.Context, sessionID string) (*domain.BookingState, error) {
	return s.mutate(ctx, sessionID, func(ctx context.Context, w *Wizard) error {
		return w.Prev(ctx)
	})
}

func (s *BookingService) SubmitGuestInfo(ctx context.Context, sessionID string, info domain.GuestInfo) (*domain.BookingState, error) {
	return s.mutate(ctx, sessionID, func(ctx context.Context, w *Wizard) error {
		return w.SubmitGuestInfo(ctx, info)
	})
}

func (s *BookingService) SelectPayment(ctx context.Context, sessionID string, sel PaymentSelection) (*domain.BookingState, error) {
	return s.mutate(ctx, sessionID, func(ctx context.Context, w *Wizard) error {
		if sel.Method != nil {
			if err := w.SelectPaymentMethod(ctx, *sel.Method); err != nil {
				return err
			}
		}
		if sel.PayLater != nil {
			return w.SetPayLater(ctx, *sel.PayLater)
		}
		return nil
	})
}

// Checkout runs the payment step while holding the session's checkout lock.
// A second call arriving while one is in flight gets ErrCheckoutInProgress.
func (s *BookingService) Checkout(ctx context.Context, sessionID string) (*CheckoutResult, error) {
	if s.locker != nil {
		ok, err := s.locker.AcquireCheckoutLock(ctx, sessionID, s.lockTTL)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrCheckoutInProgress
		}
		defer func() {
			if err := s.locker.ReleaseCheckoutLock(context.WithoutCancel(ctx), sessionID); err != nil {
				s.logger.Warn("failed to release checkout lock", zap.String("session_id", sessionID), zap.Error(err))
			}
		}()
	}

	started := s.clock.Now()
	var (
		res    *payment.Result
		method domain.PaymentMethod
	)
	state, err := s.mutate(ctx, sessionID, func(ctx context.Context, w *Wizard) error {
		method = w.State().PaymentMethod
		var err error
		res, err = w.Checkout(ctx)
		return err
	})
	if state == nil {
		return nil, err
	}

	var perr *PaymentError
	outcome := string(state.PaymentStatus)
	if err != nil && !errors.As(err, &perr) {
		outcome = "rejected"
	}
	if state.IsPayLater {
		method = "pay_later"
	}
	s.metrics.ObserveCheckout(string(method), outcome, s.clock.Now().Sub(started).Seconds())

	if err != nil {
		if perr != nil {
			s.logger.Warn("checkout payment failed",
				zap.String("session_id", sessionID),
				zap.String("booking_id", state.BookingID),
				zap.Error(perr.Err),
			)
		}
		return &CheckoutResult{State: *state, Payment: res}, err
	}

	s.logger.Info("booking confirmed",
		zap.String("session_id", sessionID),
		zap.String("booking_id", state.BookingID),
		zap.String("payment_status", string(state.PaymentStatus)),
	)
	return &CheckoutResult{State: *state, Payment: res}, nil
}

func (s *BookingService) Reset(ctx context.Context, sessionID string) error {
	return s.store.Remove(ctx, sessionID)
}

func (s *BookingService) Watch(ctx context.Context, sessionID string) (<-chan domain.BookingState, error) {
	return s.store.Watch(ctx, sessionID)
}

func (s *BookingService) ExpireStaleSessions(ctx context.Context) (int64, error) {
	n, err := s.store.Sweep(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("expired stale booking sessions", zap.Int64("count", n))
	}
	return n, nil
}

// mutate loads the session, runs fn against a wizard built around it and
// returns the resulting state. The state is returned alongside fn's error
// whenever the session exists.
func (s *BookingService) mutate(ctx context.Context, sessionID string, fn func(context.Context, *Wizard) error) (*domain.BookingState, error) {
	saved, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if saved == nil {
		return nil, ErrSessionNotFound
	}

	w, err := s.wizard(ctx, sessionID, *saved)
	if err != nil {
		return nil, err
	}
	before := saved.CurrentStep
	opErr := fn(ctx, w)
	state := w.State()

	if state.CurrentStep != before {
		s.metrics.ObserveTransition(before.String(), state.CurrentStep.String())
	}
	var verr *domain.ValidationError
	if errors.As(opErr, &verr) {
		for field := range verr.Fields {
			s.metrics.ObserveValidationFailure(field)
		}
	}
	return &state, opErr
}

func (s *BookingService) wizard(ctx context.Context, sessionID string, state domain.BookingState) (*Wizard, error) {
	calendar, err := s.calendars.Calendar(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	persist := func(ctx context.Context, st domain.BookingState) error {
		return s.store.Save(ctx, sessionID, st)
	}
	logger := s.logger.With(zap.String("session_id", sessionID))
	return newWizard(state, calendar, s.payments, s.notifier, persist, s.ids, s.clock.Now, logger), nil
}

var _ BookingUseCase = (*BookingService)(nil)
