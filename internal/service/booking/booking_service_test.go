package booking

import (
	"context"
	"testing"
	"time"

	"github.com/Domenick1991/westbrook/internal/cache"
	"github.com/Domenick1991/westbrook/internal/domain"
	"github.com/Domenick1991/westbrook/internal/pkg/clock"
	"github.com/Domenick1991/westbrook/internal/service/payment"
	"github.com/Domenick1991/westbrook/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockCalendarSource struct {
	mock.Mock
}

func (m *MockCalendarSource) Calendar(ctx context.Context, sessionID string) (domain.AvailabilityMap, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.AvailabilityMap), args.Error(1)
}

type MockLocker struct {
	mock.Mock
}

func (m *MockLocker) AcquireCheckoutLock(ctx context.Context, sessionID string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, sessionID, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockLocker) ReleaseCheckoutLock(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

type serviceFixture struct {
	svc      *BookingService
	store    *storage.Store
	mem      *cache.MemoryCache
	clock    *clock.MockClock
	gateway  *MockGateway
	notifier *MockNotifier
}

func newServiceFixture(t *testing.T, opts ...BookingServiceOption) serviceFixture {
	t.Helper()
	clk := clock.NewMockClock(fixedNow)
	mem := cache.NewMemoryCache(clk)
	store := storage.NewStore(mem, mem, storage.WithClock(clk))

	calendars := &MockCalendarSource{}
	calendars.On("Calendar", mock.Anything, mock.Anything).Return(testCalendar(), nil)

	gw := &MockGateway{}
	n := &MockNotifier{}
	opts = append([]BookingServiceOption{
		WithClock(clk),
		WithNotifier(n),
		WithLocker(mem, time.Minute),
		WithIDGenerator(NewIDGenerator("WD", 11)),
	}, opts...)
	svc := NewBookingService(store, calendars, gw, "Westbrook Deluxe", 65000, opts...)
	return serviceFixture{svc: svc, store: store, mem: mem, clock: clk, gateway: gw, notifier: n}
}

func TestBookingService_StartFreshWithPrefill(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	adults := 1

	state, err := f.svc.Start(ctx, "s1", Prefill{Checkin: "2025-06-01", Checkout: "2025-06-03", Adults: &adults})
	require.NoError(t, err)
	assert.Equal(t, domain.StepReview, state.CurrentStep)
	assert.Equal(t, "Westbrook Deluxe", state.RoomType)
	assert.Equal(t, 1, state.Adults)
	assert.Equal(t, domain.PaymentMethodCard, state.PaymentMethod)
	assert.InDelta(t, 153725.0, state.TotalPrice, 1e-6)

	saved, err := f.store.Load(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, state.TotalPrice, saved.TotalPrice)
}

func TestBookingService_StartRestoresRecentState(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	saved := paymentState()
	require.NoError(t, f.store.Save(ctx, "s1", saved))
	f.clock.Add(59 * time.Minute)

	state, err := f.svc.Start(ctx, "s1", Prefill{})
	require.NoError(t, err)
	assert.Equal(t, domain.StepPayment, state.CurrentStep)
	assert.Equal(t, saved.GuestInfo, state.GuestInfo)
}

func TestBookingService_StartDiscardsExpiredState(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	require.NoError(t, f.store.Save(ctx, "s1", paymentState()))
	f.clock.Add(time.Hour)

	state, err := f.svc.Start(ctx, "s1", Prefill{})
	require.NoError(t, err)
	assert.Equal(t, domain.StepReview, state.CurrentStep)
	assert.Empty(t, state.GuestInfo.FullName)
}

func TestBookingService_UnknownSession(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.svc.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = f.svc.Next(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestBookingService_FullFlowWithCard(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, err := f.svc.Start(ctx, "s1", Prefill{})
	require.NoError(t, err)
	_, err = f.svc.UpdateStay(ctx, "s1", StayInput{Checkin: "2025-06-03", Checkout: "2025-06-05", Adults: 2})
	require.NoError(t, err)
	_, err = f.svc.Next(ctx, "s1")
	require.NoError(t, err)
	state, err := f.svc.SubmitGuestInfo(ctx, "s1", validGuest())
	require.NoError(t, err)
	require.Equal(t, domain.StepPayment, state.CurrentStep)

	method := domain.PaymentMethodFlutterwave
	_, err = f.svc.SelectPayment(ctx, "s1", PaymentSelection{Method: &method})
	require.NoError(t, err)

	f.gateway.On("Charge", mock.Anything, mock.MatchedBy(func(r payment.ChargeRequest) bool {
		return r.Method == domain.PaymentMethodFlutterwave && r.Amount == 139750
	})).Return(&payment.Result{Success: true, TransactionID: "TXN-1", Message: payment.MessageSuccess}, nil).Once()
	f.notifier.On("NotifyConfirmed", mock.Anything, mock.Anything).Return(nil).Once()

	res, err := f.svc.Checkout(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.StepConfirmation, res.State.CurrentStep)
	assert.Equal(t, domain.PaymentStatusPaid, res.State.PaymentStatus)
	assert.Equal(t, "TXN-1", res.Payment.TransactionID)

	saved, err := f.store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.StepConfirmation, saved.CurrentStep)
	assert.Equal(t, res.State.BookingID, saved.BookingID)

	// the lock is released once checkout returns
	ok, err := f.mem.AcquireCheckoutLock(ctx, "s1", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	f.gateway.AssertExpectations(t)
	f.notifier.AssertExpectations(t)
}

func TestBookingService_CheckoutFailureIsPersisted(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Save(ctx, "s1", paymentState()))

	f.gateway.On("Charge", mock.Anything, mock.Anything).
		Return(&payment.Result{Message: payment.MessageDeclined}, payment.ErrDeclined).Once()

	res, err := f.svc.Checkout(ctx, "s1")
	var perr *PaymentError
	require.ErrorAs(t, err, &perr)
	require.NotNil(t, res)
	assert.Equal(t, domain.PaymentStatusFailed, res.State.PaymentStatus)

	saved, err := f.store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.StepPayment, saved.CurrentStep)
	assert.Equal(t, domain.PaymentStatusFailed, saved.PaymentStatus)
	assert.Equal(t, res.State.BookingID, saved.BookingID)
	f.notifier.AssertNotCalled(t, "NotifyConfirmed", mock.Anything, mock.Anything)
}

func TestBookingService_CheckoutRejectedWhileInFlight(t *testing.T) {
	locker := &MockLocker{}
	f := newServiceFixture(t, WithLocker(locker, time.Minute))
	require.NoError(t, f.store.Save(context.Background(), "s1", paymentState()))

	locker.On("AcquireCheckoutLock", mock.Anything, "s1", time.Minute).Return(false, nil).Once()

	_, err := f.svc.Checkout(context.Background(), "s1")
	assert.ErrorIs(t, err, ErrCheckoutInProgress)
	f.gateway.AssertNotCalled(t, "Charge", mock.Anything, mock.Anything)
	locker.AssertNotCalled(t, "ReleaseCheckoutLock", mock.Anything, mock.Anything)
}

func TestBookingService_PayLaterCheckout(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Save(ctx, "s1", paymentState()))

	payLater := true
	_, err := f.svc.SelectPayment(ctx, "s1", PaymentSelection{PayLater: &payLater})
	require.NoError(t, err)

	f.notifier.On("NotifyConfirmed", mock.Anything, mock.Anything).Return(nil).Once()

	res, err := f.svc.Checkout(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, res.Payment)
	assert.Equal(t, domain.PaymentStatusPending, res.State.PaymentStatus)
	assert.Equal(t, domain.StepConfirmation, res.State.CurrentStep)
	f.gateway.AssertNotCalled(t, "Charge", mock.Anything, mock.Anything)
}

func TestBookingService_ValidationErrorReturnsState(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	state := domain.NewBookingState("Westbrook Deluxe", 65000)
	state.CurrentStep = domain.StepGuestInfo
	require.NoError(t, f.store.Save(ctx, "s1", state))

	got, err := f.svc.SubmitGuestInfo(ctx, "s1", domain.GuestInfo{Phone: "08012345678"})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	require.NotNil(t, got)
	assert.Equal(t, domain.StepGuestInfo, got.CurrentStep)
	assert.Len(t, verr.Fields, 2)
}

func TestBookingService_ResetAndWatch(t *testing.T) {
	f := newServiceFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := f.svc.Start(ctx, "s1", Prefill{})
	require.NoError(t, err)

	updates, err := f.svc.Watch(ctx, "s1")
	require.NoError(t, err)

	_, err = f.svc.Next(ctx, "s1")
	require.NoError(t, err)

	select {
	case st := <-updates:
		assert.Equal(t, domain.StepGuestInfo, st.CurrentStep)
	case <-time.After(time.Second):
		t.Fatal("no state change observed")
	}

	require.NoError(t, f.svc.Reset(ctx, "s1"))
	_, err = f.svc.Get(ctx, "s1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestBookingService_ExpireStaleSessions(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	require.NoError(t, f.store.Save(ctx, "old", paymentState()))
	f.clock.Add(2 * time.Hour)
	require.NoError(t, f.store.Save(ctx, "new", paymentState()))

	n, err := f.svc.ExpireStaleSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

// ctxBackend refuses writes once the caller's context is done, like a real
// Redis or Postgres client.
type ctxBackend struct {
	*cache.MemoryCache
}

func (b ctxBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.MemoryCache.Set(ctx, key, value, ttl)
}

func TestBookingService_CheckoutPersistsAfterClientGoesAway(t *testing.T) {
	clk := clock.NewMockClock(fixedNow)
	mem := cache.NewMemoryCache(clk)
	store := storage.NewStore(ctxBackend{mem}, mem, storage.WithClock(clk))
	calendars := &MockCalendarSource{}
	calendars.On("Calendar", mock.Anything, mock.Anything).Return(testCalendar(), nil)
	gw := &MockGateway{}
	n := &MockNotifier{}
	svc := NewBookingService(store, calendars, gw, "Westbrook Deluxe", 65000,
		WithClock(clk), WithNotifier(n), WithLocker(mem, time.Minute), WithIDGenerator(NewIDGenerator("WD", 11)))

	require.NoError(t, store.Save(context.Background(), "s1", paymentState()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	gw.On("Charge", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { cancel() }).
		Return(&payment.Result{Success: true, TransactionID: "TXN-1748000000000", Message: payment.MessageSuccess}, nil).Once()
	n.On("NotifyConfirmed", mock.MatchedBy(func(c context.Context) bool { return c.Err() == nil }), mock.Anything).Return(nil).Once()

	res, err := svc.Checkout(ctx, "s1")
	require.NoError(t, err)

	saved, err := store.Load(context.Background(), "s1")
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, domain.StepConfirmation, saved.CurrentStep)
	assert.Equal(t, domain.PaymentStatusPaid, saved.PaymentStatus)
	assert.Equal(t, "TXN-1748000000000", saved.TransactionID)
	assert.Equal(t, res.State.BookingID, saved.BookingID)
	assert.NotEmpty(t, saved.BookingID)

	_, err = svc.Checkout(context.Background(), "s1")
	assert.ErrorIs(t, err, ErrBookingClosed)
	gw.AssertNumberOfCalls(t, "Charge", 1)
	n.AssertExpectations(t)
}
