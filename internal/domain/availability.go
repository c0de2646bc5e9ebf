package domain

type AvailabilityStatus string

const (
	AvailabilityAvailable AvailabilityStatus = "available"
	AvailabilityLimited   AvailabilityStatus = "limited"
	AvailabilityBooked    AvailabilityStatus = "booked"
)

// LimitedThreshold is the room count below which a night counts as limited.
const LimitedThreshold = 3

type DayAvailability struct {
	RoomsLeft int                `json:"rooms_left"`
	Status    AvailabilityStatus `json:"status"`
}

// StatusForRooms classifies a remaining room count.
func StatusForRooms(roomsLeft int) AvailabilityStatus {
	switch {
	case roomsLeft <= 0:
		return AvailabilityBooked
	case roomsLeft < LimitedThreshold:
		return AvailabilityLimited
	default:
		return AvailabilityAvailable
	}
}

// AvailabilityMap is keyed by ISO date (YYYY-MM-DD).
type AvailabilityMap map[string]DayAvailability

func (m AvailabilityMap) Day(d Date) (DayAvailability, bool) {
	day, ok := m[d.String()]
	return day, ok
}

// RangeCheck is the outcome of checking [Checkin, Checkout) against a map.
type RangeCheck struct {
	Available        bool   `json:"available"`
	Limited          bool   `json:"limited"`
	Nights           int    `json:"nights"`
	UnavailableDates []Date `json:"unavailable_dates,omitempty"`
	LimitedDates     []Date `json:"limited_dates,omitempty"`
	Message          string `json:"message"`
}
