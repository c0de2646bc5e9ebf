package kafka

import (
	"time"

	"github.com/Domenick1991/westbrook/internal/domain"
	"github.com/Domenick1991/westbrook/internal/service/pricing"
)

const EventBookingConfirmed = "booking_confirmed"

// BookingEvent is the confirmation payload the worker turns into an email.
// Money is in whole minor units.
type BookingEvent struct {
	Type            string    `json:"type"`
	BookingID       string    `json:"booking_id"`
	RoomType        string    `json:"room_type"`
	Checkin         string    `json:"checkin"`
	Checkout        string    `json:"checkout"`
	Adults          int       `json:"adults"`
	Children        int       `json:"children"`
	Nights          int       `json:"nights"`
	Total           int64     `json:"total"`
	PaymentMethod   string    `json:"payment_method"`
	PayLater        bool      `json:"pay_later"`
	PaymentStatus   string    `json:"payment_status"`
	TransactionID   string    `json:"transaction_id,omitempty"`
	GuestName       string    `json:"guest_name"`
	Email           string    `json:"email"`
	Phone           string    `json:"phone"`
	SpecialRequests string    `json:"special_requests,omitempty"`
	OccurredAt      time.Time `json:"occurred_at"`
}

func NewConfirmedEvent(state domain.BookingState, at time.Time) BookingEvent {
	return BookingEvent{
		Type:            EventBookingConfirmed,
		BookingID:       state.BookingID,
		RoomType:        state.RoomType,
		Checkin:         state.Checkin.String(),
		Checkout:        state.Checkout.String(),
		Adults:          state.Adults,
		Children:        state.Children,
		Nights:          state.Nights,
		Total:           pricing.Round(state.TotalPrice),
		PaymentMethod:   string(state.PaymentMethod),
		PayLater:        state.IsPayLater,
		PaymentStatus:   string(state.PaymentStatus),
		TransactionID:   state.TransactionID,
		GuestName:       state.GuestInfo.FullName,
		Email:           state.GuestInfo.Email,
		Phone:           state.GuestInfo.Phone,
		SpecialRequests: state.GuestInfo.SpecialRequests,
		OccurredAt:      at,
	}
}
