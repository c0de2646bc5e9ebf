package booking

import (
	"context"
	"errors"
	"time"

	"github.com/Domenick1991/westbrook/internal/domain"
	"github.com/Domenick1991/westbrook/internal/service/availability"
	"github.com/Domenick1991/westbrook/internal/service/payment"
	"github.com/Domenick1991/westbrook/internal/service/pricing"
	"go.uber.org/zap"
)

var (
	ErrSessionNotFound      = errors.New("booking session not found")
	ErrInvalidTransition    = errors.New("invalid step transition")
	ErrBookingClosed        = errors.New("booking is already confirmed")
	ErrPaymentRequired      = errors.New("payment step completes only through checkout")
	ErrCheckoutInProgress   = errors.New("checkout already in progress")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
)

const MessagePaymentRetry = "Payment failed. Please try again or choose another payment method."

// PaymentError is returned when a charge did not go through. The state is
// kept at the payment step, so the caller may retry.
type PaymentError struct {
	Message string
	Err     error
}

func (e *PaymentError) Error() string {
	return e.Message
}

func (e *PaymentError) Unwrap() error {
	return e.Err
}

func (e *PaymentError) Retryable() bool {
	return true
}

// Notifier dispatches the booking confirmation.
type Notifier interface {
	NotifyConfirmed(ctx context.Context, state domain.BookingState) error
}

// Prefill carries the query parameters a wizard page was opened with.
// Empty or unparsable values are ignored.
type Prefill struct {
	Checkin  string
	Checkout string
	Adults   *int
	Children *int
}

type StayInput struct {
	Checkin  string `json:"checkin"`
	Checkout string `json:"checkout"`
	Adults   int    `json:"adults"`
	Children int    `json:"children"`
}

type persistFunc func(ctx context.Context, state domain.BookingState) error

// Wizard drives one session's booking through review, guest info, payment
// and confirmation. It is not safe for concurrent use; the service builds a
// fresh one per request around the stored state.
type Wizard struct {
	state    domain.BookingState
	calendar domain.AvailabilityMap
	pricing  pricing.Calculator
	payments payment.Gateway
	notifier Notifier
	persist  persistFunc
	ids      *IDGenerator
	now      func() time.Time
	logger   *zap.Logger
}

func newWizard(state domain.BookingState, calendar domain.AvailabilityMap, payments payment.Gateway,
	notifier Notifier, persist persistFunc, ids *IDGenerator, now func() time.Time, logger *zap.Logger) *Wizard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Wizard{
		state:    state,
		calendar: calendar,
		pricing:  pricing.NewCalculator(state.BasePricePerNight),
		payments: payments,
		notifier: notifier,
		persist:  persist,
		ids:      ids,
		now:      now,
		logger:   logger,
	}
}

func (w *Wizard) State() domain.BookingState {
	return w.state
}

// ApplyPrefill overlays query parameters on the current state. A confirmed
// booking is left untouched.
func (w *Wizard) ApplyPrefill(p Prefill) {
	if w.state.CurrentStep == domain.StepConfirmation {
		return
	}
	checkin, checkout := w.state.Checkin, w.state.Checkout
	if d, err := domain.ParseDate(p.Checkin); err == nil {
		checkin = d
	}
	if d, err := domain.ParseDate(p.Checkout); err == nil {
		checkout = d
	}
	if checkin.IsZero() || checkout.IsZero() || checkin.DaysUntil(checkout) <= len(w.calendar) {
		w.state.Checkin, w.state.Checkout = checkin, checkout
	}
	if p.Adults != nil && *p.Adults >= 1 {
		w.state.Adults = *p.Adults
	}
	if p.Children != nil && *p.Children >= 0 {
		w.state.Children = *p.Children
	}
	w.recalculate()
}

// recalculate refreshes nights and price from the current dates.
func (w *Wizard) recalculate() domain.RangeCheck {
	if !w.state.HasDates() {
		return domain.RangeCheck{}
	}
	nights := w.state.Checkin.DaysUntil(w.state.Checkout)
	if nights < 0 {
		nights = 0
	}
	check := availability.CheckRange(w.calendar, w.state.Checkin, w.state.Checkout)
	quote := w.pricing.Quote(nights, check.Available && check.Limited)

	w.state.Nights = nights
	w.state.Subtotal = quote.Subtotal
	w.state.Tax = quote.Tax
	w.state.TotalPrice = quote.Total
	return check
}

func (w *Wizard) UpdateStay(ctx context.Context, in StayInput) error {
	if w.state.CurrentStep == domain.StepConfirmation {
		return ErrBookingClosed
	}

	verr := domain.NewValidationError()
	checkin, err := domain.ParseDate(in.Checkin)
	if err != nil || checkin.IsZero() {
		verr.Add("checkin", "Please select check-in date")
	}
	checkout, err := domain.ParseDate(in.Checkout)
	if err != nil || checkout.IsZero() {
		verr.Add("checkout", "Please select check-out date")
	}
	if in.Adults < 1 {
		verr.Add("adults", "At least one adult is required")
	}
	if in.Children < 0 {
		verr.Add("children", "Children cannot be negative")
	}
	if verr.Empty() && !checkout.After(checkin) {
		verr.Add("checkout", availability.MessageMinimumStay)
	}
	if err := verr.OrNil(); err != nil {
		return err
	}

	check := availability.CheckRange(w.calendar, checkin, checkout)
	if !check.Available {
		if len(check.UnavailableDates) == 0 {
			verr.Add("checkout", check.Message)
			return verr
		}
		return &domain.ConflictError{Dates: check.UnavailableDates, Message: check.Message}
	}

	w.state.Checkin = checkin
	w.state.Checkout = checkout
	w.state.Adults = in.Adults
	w.state.Children = in.Children
	w.recalculate()
	return w.save(ctx)
}

func (w *Wizard) Next(ctx context.Context) error {
	switch w.state.CurrentStep {
	case domain.StepReview:
		w.state.CurrentStep = domain.StepGuestInfo
	case domain.StepGuestInfo:
		if err := ValidateGuest(w.state.GuestInfo); err != nil {
			return err
		}
		w.state.CurrentStep = domain.StepPayment
	case domain.StepPayment:
		return ErrPaymentRequired
	case domain.StepConfirmation:
		return ErrBookingClosed
	default:
		return ErrInvalidTransition
	}
	return w.save(ctx)
}

func (w *Wizard) Prev(ctx context.Context) error {
	switch w.state.CurrentStep {
	case domain.StepGuestInfo:
		w.state.CurrentStep = domain.StepReview
	case domain.StepPayment:
		w.state.CurrentStep = domain.StepGuestInfo
	case domain.StepConfirmation:
		return ErrBookingClosed
	default:
		return ErrInvalidTransition
	}
	return w.save(ctx)
}

// SubmitGuestInfo validates the guest form, stores it and moves to payment.
func (w *Wizard) SubmitGuestInfo(ctx context.Context, info domain.GuestInfo) error {
	switch w.state.CurrentStep {
	case domain.StepGuestInfo:
	case domain.StepConfirmation:
		return ErrBookingClosed
	default:
		return ErrInvalidTransition
	}
	if err := ValidateGuest(info); err != nil {
		return err
	}
	w.state.GuestInfo = normalizeGuest(info)
	w.state.CurrentStep = domain.StepPayment
	return w.save(ctx)
}

func (w *Wizard) SelectPaymentMethod(ctx context.Context, method domain.PaymentMethod) error {
	if w.state.CurrentStep == domain.StepConfirmation {
		return ErrBookingClosed
	}
	if !method.Valid() {
		return ErrInvalidPaymentMethod
	}
	w.state.PaymentMethod = method
	return w.save(ctx)
}

func (w *Wizard) SetPayLater(ctx context.Context, payLater bool) error {
	if w.state.CurrentStep == domain.StepConfirmation {
		return ErrBookingClosed
	}
	w.state.IsPayLater = payLater
	return w.save(ctx)
}

// AssignBookingID sets the booking reference on first call and returns the
// existing one afterwards.
func (w *Wizard) AssignBookingID() string {
	if w.state.BookingID == "" {
		w.state.BookingID = w.ids.New(w.now())
	}
	return w.state.BookingID
}

// Checkout processes the booking. Pay-later bookings are confirmed with a
// pending payment and no gateway call.
func (w *Wizard) Checkout(ctx context.Context) (*payment.Result, error) {
	switch w.state.CurrentStep {
	case domain.StepPayment:
	case domain.StepConfirmation:
		return nil, ErrBookingClosed
	default:
		return nil, ErrInvalidTransition
	}

	bookingID := w.AssignBookingID()

	if w.state.IsPayLater {
		w.state.PaymentStatus = domain.PaymentStatusPending
		return nil, w.complete(ctx)
	}

	res, err := w.payments.Charge(ctx, payment.ChargeRequest{
		Method:     w.state.PaymentMethod,
		Amount:     pricing.Round(w.state.TotalPrice),
		PayerEmail: w.state.GuestInfo.Email,
		BookingID:  bookingID,
	})
	if err != nil {
		w.state.PaymentStatus = domain.PaymentStatusFailed
		if saveErr := w.save(context.WithoutCancel(ctx)); saveErr != nil {
			return res, errors.Join(&PaymentError{Message: MessagePaymentRetry, Err: err}, saveErr)
		}
		return res, &PaymentError{Message: MessagePaymentRetry, Err: err}
	}

	w.state.PaymentStatus = domain.PaymentStatusPaid
	w.state.TransactionID = res.TransactionID
	return res, w.complete(ctx)
}

// complete dispatches the confirmation once and writes the final state once.
// Both outlive the caller's context: the charge has already settled.
func (w *Wizard) complete(ctx context.Context) error {
	ctx = context.WithoutCancel(ctx)
	w.state.CurrentStep = domain.StepConfirmation
	if w.notifier != nil {
		if err := w.notifier.NotifyConfirmed(ctx, w.state); err != nil {
			w.logger.Error("confirmation dispatch failed",
				zap.String("booking_id", w.state.BookingID), zap.Error(err))
		}
	}
	return w.save(ctx)
}

func (w *Wizard) save(ctx context.Context) error {
	if w.persist == nil {
		return nil
	}
	return w.persist(ctx, w.state)
}
