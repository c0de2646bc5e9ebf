package domain

type Step int

const (
	StepReview       Step = 1
	StepGuestInfo    Step = 2
	StepPayment      Step = 3
	StepConfirmation Step = 4
)

func (s Step) String() string {
	switch s {
	case StepReview:
		return "review"
	case StepGuestInfo:
		return "guest_info"
	case StepPayment:
		return "payment"
	case StepConfirmation:
		return "confirmation"
	default:
		return "unknown"
	}
}

type PaymentMethod string

const (
	PaymentMethodCard        PaymentMethod = "card"
	PaymentMethodPaystack    PaymentMethod = "paystack"
	PaymentMethodFlutterwave PaymentMethod = "flutterwave"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCard, PaymentMethodPaystack, PaymentMethodFlutterwave:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentStatusUnset   PaymentStatus = ""
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
)

type GuestInfo struct {
	FullName        string `json:"fullName"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	SpecialRequests string `json:"specialRequests"`
}

// BookingState is the single in-progress reservation of one session.
// Subtotal, Tax and TotalPrice are kept unrounded.
type BookingState struct {
	RoomType          string        `json:"roomType"`
	BasePricePerNight int64         `json:"basePrice"`
	Checkin           Date          `json:"checkin"`
	Checkout          Date          `json:"checkout"`
	Adults            int           `json:"adults"`
	Children          int           `json:"children"`
	Nights            int           `json:"nights"`
	Subtotal          float64       `json:"subtotal"`
	Tax               float64       `json:"tax"`
	TotalPrice        float64       `json:"totalPrice"`
	GuestInfo         GuestInfo     `json:"guestInfo"`
	PaymentMethod     PaymentMethod `json:"paymentMethod"`
	IsPayLater        bool          `json:"isPayLater"`
	PaymentStatus     PaymentStatus `json:"paymentStatus"`
	BookingID         string        `json:"bookingId,omitempty"`
	TransactionID     string        `json:"transactionId,omitempty"`
	CurrentStep       Step          `json:"currentStep"`
}

// NewBookingState returns the fresh state a session starts with.
func NewBookingState(roomType string, basePricePerNight int64) BookingState {
	return BookingState{
		RoomType:          roomType,
		BasePricePerNight: basePricePerNight,
		Adults:            2,
		PaymentMethod:     PaymentMethodCard,
		CurrentStep:       StepReview,
	}
}

func (s BookingState) HasDates() bool {
	return !s.Checkin.IsZero() && !s.Checkout.IsZero()
}
