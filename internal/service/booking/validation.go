package booking

import (
	"regexp"
	"strings"

	"github.com/Domenick1991/westbrook/internal/domain"
	"github.com/go-playground/validator/v10"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const (
	msgFullName = "Please enter your full name"
	msgEmail    = "Please enter a valid email address"
	msgPhone    = "Please enter a valid phone number"
)

type guestForm struct {
	FullName string `validate:"required"`
	Email    string `validate:"required,guestemail"`
	Phone    string `validate:"required,min=10"`
}

var fieldMessages = map[string]struct {
	key string
	msg string
}{
	"FullName": {"fullName", msgFullName},
	"Email":    {"email", msgEmail},
	"Phone":    {"phone", msgPhone},
}

func newGuestValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("guestemail", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	})
	return v
}

var guestValidator = newGuestValidator()

// normalizeGuest trims every field the way the form does before validating.
func normalizeGuest(info domain.GuestInfo) domain.GuestInfo {
	return domain.GuestInfo{
		FullName:        strings.TrimSpace(info.FullName),
		Email:           strings.TrimSpace(info.Email),
		Phone:           strings.TrimSpace(info.Phone),
		SpecialRequests: strings.TrimSpace(info.SpecialRequests),
	}
}

// ValidateGuest checks every required field and reports all failures together.
func ValidateGuest(info domain.GuestInfo) error {
	info = normalizeGuest(info)
	err := guestValidator.Struct(guestForm{FullName: info.FullName, Email: info.Email, Phone: info.Phone})
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	out := domain.NewValidationError()
	for _, fe := range verrs {
		if m, ok := fieldMessages[fe.StructField()]; ok {
			out.Add(m.key, m.msg)
		}
	}
	return out.OrNil()
}
