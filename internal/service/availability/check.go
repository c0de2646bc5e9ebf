package availability

import (
	"sort"
	"strings"

	"github.com/Domenick1991/westbrook/internal/domain"
)

const (
	MessageInvalidDates   = "Invalid dates"
	MessageMinimumStay    = "Minimum stay is 1 night"
	MessageLimited        = "Limited availability on selected dates"
	MessageAvailable      = "Available"
	MessageStayTooLong    = "Stay is longer than the booking window"
	messageUnavailablePre = "Unavailable on: "
)

// CheckRange validates [checkin, checkout) against m. A date that is booked
// or missing from m makes the whole range unavailable. Ranges longer than m
// are refused without walking them.
func CheckRange(m domain.AvailabilityMap, checkin, checkout domain.Date) domain.RangeCheck {
	if m == nil || checkin.IsZero() || checkout.IsZero() {
		return domain.RangeCheck{Message: MessageInvalidDates}
	}

	nights := checkin.DaysUntil(checkout)
	if nights < 1 {
		return domain.RangeCheck{Message: MessageMinimumStay}
	}
	// More nights than calendar entries means some night is off the calendar.
	if nights > len(m) {
		return domain.RangeCheck{Nights: nights, Message: MessageStayTooLong}
	}

	var unavailable, limited []domain.Date
	for d := checkin; d.Before(checkout); d = d.AddDays(1) {
		day, ok := m.Day(d)
		switch {
		case !ok || day.Status == domain.AvailabilityBooked:
			unavailable = append(unavailable, d)
		case day.Status == domain.AvailabilityLimited:
			limited = append(limited, d)
		}
	}

	if len(unavailable) > 0 {
		return domain.RangeCheck{
			Nights:           nights,
			UnavailableDates: unavailable,
			Message:          messageUnavailablePre + joinShort(unavailable),
		}
	}

	res := domain.RangeCheck{
		Available:    true,
		Limited:      len(limited) > 0,
		LimitedDates: limited,
		Nights:       nights,
		Message:      MessageAvailable,
	}
	if res.Limited {
		res.Message = MessageLimited
	}
	return res
}

// DisabledDates lists booked dates in calendar order.
func DisabledDates(m domain.AvailabilityMap) []domain.Date {
	out := make([]domain.Date, 0)
	for key, day := range m {
		if day.Status != domain.AvailabilityBooked {
			continue
		}
		d, err := domain.ParseDate(key)
		if err != nil {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

func joinShort(dates []domain.Date) string {
	parts := make([]string, len(dates))
	for i, d := range dates {
		parts[i] = d.Short()
	}
	return strings.Join(parts, ", ")
}
