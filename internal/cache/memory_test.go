package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Domenick1991/westbrook/internal/domain"
	"github.com/Domenick1991/westbrook/internal/pkg/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache_ExpiryAndSweep(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewMockClock(time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC))
	c := NewMemoryCache(clk)

	require.NoError(t, c.Set(ctx, "a", []byte("1"), time.Hour))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), 2*time.Hour))

	got, err := c.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), got)

	clk.Add(time.Hour)
	n, err := c.Sweep(ctx, clk.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err = c.Get(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = c.Get(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), got)
}

func TestMemoryCache_SweepPurgesSessionSideData(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewMockClock(time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC))
	c := NewMemoryCache(clk)

	calendar := domain.AvailabilityMap{"2025-06-01": {RoomsLeft: 4, Status: domain.AvailabilityAvailable}}
	for i := 0; i < 1000; i++ {
		id := fmt.Sprintf("s%d", i)
		require.NoError(t, c.Set(ctx, "westbrook_booking:"+id, []byte("{}"), time.Hour))
		require.NoError(t, c.SetAvailability(ctx, id, calendar, time.Hour))
		require.NoError(t, c.SetHandoff(ctx, id, domain.Handoff{Adults: 2}, time.Hour))
		_, err := c.AcquireCheckoutLock(ctx, id, 30*time.Second)
		require.NoError(t, err)
	}

	clk.Add(2 * time.Hour)
	n, err := c.Sweep(ctx, clk.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1000), n)
	assert.Empty(t, c.entries)
	assert.Empty(t, c.availability)
	assert.Empty(t, c.handoffs)
	assert.Empty(t, c.locks)
}

func TestMemoryCache_CalendarAndHandoffHonourTTL(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewMockClock(time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC))
	c := NewMemoryCache(clk)

	calendar := domain.AvailabilityMap{"2025-06-01": {RoomsLeft: 4, Status: domain.AvailabilityAvailable}}
	require.NoError(t, c.SetAvailability(ctx, "s1", calendar, time.Hour))
	require.NoError(t, c.SetHandoff(ctx, "s1", domain.Handoff{Adults: 2}, time.Hour))

	got, err := c.GetAvailability(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, calendar, got)

	clk.Add(time.Hour)
	got, err = c.GetAvailability(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, got)
	h, err := c.GetHandoff(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, h)
}

func TestMemoryCache_CheckoutLock(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewMockClock(time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC))
	c := NewMemoryCache(clk)

	ok, _ := c.AcquireCheckoutLock(ctx, "s1", 30*time.Second)
	assert.True(t, ok)
	ok, _ = c.AcquireCheckoutLock(ctx, "s1", 30*time.Second)
	assert.False(t, ok)

	clk.Add(31 * time.Second)
	ok, _ = c.AcquireCheckoutLock(ctx, "s1", 30*time.Second)
	assert.True(t, ok)
}

func TestMemoryCache_PublishReachesEverySubscriber(t *testing.T) {
	c := NewMemoryCache(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tabA, err := c.Subscribe(ctx, "k")
	require.NoError(t, err)
	tabB, err := c.Subscribe(ctx, "k")
	require.NoError(t, err)
	other, err := c.Subscribe(ctx, "other")
	require.NoError(t, err)

	require.NoError(t, c.Publish(ctx, "k"))

	for _, ch := range []<-chan struct{}{tabA, tabB} {
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Fatal("subscriber not notified")
		}
	}
	select {
	case <-other:
		t.Fatal("unrelated key notified")
	default:
	}
}
