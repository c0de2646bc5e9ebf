package availability

import (
	"testing"
	"time"

	"github.com/Domenick1991/westbrook/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mapOf(days map[string]int) domain.AvailabilityMap {
	m := make(domain.AvailabilityMap, len(days))
	for k, rooms := range days {
		m[k] = domain.DayAvailability{RoomsLeft: rooms, Status: domain.StatusForRooms(rooms)}
	}
	return m
}

func date(t *testing.T, s string) domain.Date {
	t.Helper()
	d, err := domain.ParseDate(s)
	require.NoError(t, err)
	return d
}

func TestGenerator_HorizonAndBlackouts(t *testing.T) {
	today := domain.NewDate(2025, time.June, 1)
	g := NewGenerator(WithSeed(7))

	m := g.Generate(today)

	require.Len(t, m, 90)
	for _, offset := range []int{15, 30, 45} {
		day, ok := m.Day(today.AddDays(offset))
		require.True(t, ok)
		assert.Equal(t, 0, day.RoomsLeft)
		assert.Equal(t, domain.AvailabilityBooked, day.Status)
	}
	_, ok := m.Day(today.AddDays(90))
	assert.False(t, ok, "horizon covers today plus 89 days")
}

func TestGenerator_RoomRanges(t *testing.T) {
	today := domain.NewDate(2025, time.June, 1)
	g := NewGenerator(WithSeed(99), WithBlackoutOffsets())

	for i := 0; i < 20; i++ {
		for key, day := range g.Generate(today) {
			d := date(t, key)
			if d.Weekday() == time.Friday || d.Weekday() == time.Saturday {
				assert.LessOrEqual(t, day.RoomsLeft, 2, key)
			} else {
				assert.LessOrEqual(t, day.RoomsLeft, 8, key)
			}
			assert.GreaterOrEqual(t, day.RoomsLeft, 0)
			assert.Equal(t, domain.StatusForRooms(day.RoomsLeft), day.Status)
		}
	}
}

func TestGenerator_SeedIsReproducible(t *testing.T) {
	today := domain.NewDate(2025, time.June, 1)
	a := NewGenerator(WithSeed(1234)).Generate(today)
	b := NewGenerator(WithSeed(1234)).Generate(today)
	assert.Equal(t, a, b)
}

func TestStatusForRooms(t *testing.T) {
	assert.Equal(t, domain.AvailabilityBooked, domain.StatusForRooms(0))
	assert.Equal(t, domain.AvailabilityLimited, domain.StatusForRooms(1))
	assert.Equal(t, domain.AvailabilityLimited, domain.StatusForRooms(2))
	assert.Equal(t, domain.AvailabilityAvailable, domain.StatusForRooms(3))
}

func TestCheckRange(t *testing.T) {
	m := mapOf(map[string]int{
		"2025-06-01": 5,
		"2025-06-02": 5,
		"2025-06-03": 1,
		"2025-06-04": 0,
		"2025-06-05": 6,
		"2025-06-06": 0,
		"2025-06-07": 4,
	})

	t.Run("available", func(t *testing.T) {
		res := CheckRange(m, date(t, "2025-06-01"), date(t, "2025-06-03"))
		assert.True(t, res.Available)
		assert.False(t, res.Limited)
		assert.Equal(t, 2, res.Nights)
		assert.Equal(t, MessageAvailable, res.Message)
	})

	t.Run("checkout day itself is not covered", func(t *testing.T) {
		res := CheckRange(m, date(t, "2025-06-03"), date(t, "2025-06-04"))
		assert.True(t, res.Available)
		assert.True(t, res.Limited)
		assert.Equal(t, []domain.Date{date(t, "2025-06-03")}, res.LimitedDates)
		assert.Equal(t, MessageLimited, res.Message)
	})

	t.Run("booked dates listed in range order", func(t *testing.T) {
		res := CheckRange(m, date(t, "2025-06-02"), date(t, "2025-06-07"))
		assert.False(t, res.Available)
		assert.Equal(t, []domain.Date{date(t, "2025-06-04"), date(t, "2025-06-06")}, res.UnavailableDates)
		assert.Equal(t, "Unavailable on: Jun 4, 2025, Jun 6, 2025", res.Message)
	})

	t.Run("dates beyond the horizon are unavailable", func(t *testing.T) {
		res := CheckRange(m, date(t, "2025-06-07"), date(t, "2025-06-09"))
		assert.False(t, res.Available)
		assert.Equal(t, []domain.Date{date(t, "2025-06-08")}, res.UnavailableDates)
	})

	t.Run("minimum stay", func(t *testing.T) {
		res := CheckRange(m, date(t, "2025-06-02"), date(t, "2025-06-02"))
		assert.False(t, res.Available)
		assert.Equal(t, MessageMinimumStay, res.Message)

		res = CheckRange(m, date(t, "2025-06-03"), date(t, "2025-06-01"))
		assert.False(t, res.Available)
		assert.Equal(t, MessageMinimumStay, res.Message)
	})

	t.Run("missing dates", func(t *testing.T) {
		res := CheckRange(m, domain.Date{}, date(t, "2025-06-02"))
		assert.False(t, res.Available)
		assert.Equal(t, MessageInvalidDates, res.Message)
	})
}

func TestCheckRange_AnyBookedDateInvalidatesRange(t *testing.T) {
	today := domain.NewDate(2025, time.June, 1)
	m := NewGenerator(WithSeed(5)).Generate(today)

	for start := 0; start < 80; start++ {
		for length := 1; length <= 7; length++ {
			checkin := today.AddDays(start)
			checkout := checkin.AddDays(length)

			var booked []domain.Date
			for d := checkin; d.Before(checkout); d = d.AddDays(1) {
				if day, _ := m.Day(d); day.Status == domain.AvailabilityBooked {
					booked = append(booked, d)
				}
			}

			res := CheckRange(m, checkin, checkout)
			if len(booked) > 0 {
				assert.False(t, res.Available)
				assert.Equal(t, booked, res.UnavailableDates)
			} else {
				assert.True(t, res.Available)
				assert.Equal(t, length, res.Nights)
			}
		}
	}
}

func TestDisabledDates(t *testing.T) {
	m := mapOf(map[string]int{
		"2025-06-06": 0,
		"2025-06-01": 0,
		"2025-06-03": 2,
	})
	assert.Equal(t, []domain.Date{date(t, "2025-06-01"), date(t, "2025-06-06")}, DisabledDates(m))
}

func TestCheckRange_StayLongerThanCalendar(t *testing.T) {
	today := domain.NewDate(2025, time.June, 1)
	m := NewGenerator(WithSeed(3), WithBlackoutOffsets()).Generate(today)

	start := time.Now()
	res := CheckRange(m, today, date(t, "9999-12-31"))

	assert.Less(t, time.Since(start), time.Second)
	assert.False(t, res.Available)
	assert.Empty(t, res.UnavailableDates)
	assert.Equal(t, MessageStayTooLong, res.Message)
	assert.Equal(t, 2912656, res.Nights)
}
