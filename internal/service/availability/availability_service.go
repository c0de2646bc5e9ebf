package availability

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/Domenick1991/westbrook/internal/domain"
	"github.com/Domenick1991/westbrook/internal/pkg/clock"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type AvailabilityUseCase interface {
	Calendar(ctx context.Context, sessionID string) (domain.AvailabilityMap, error)
	Check(ctx context.Context, sessionID string, checkin, checkout domain.Date) (domain.RangeCheck, error)
	DisabledDates(ctx context.Context, sessionID string) ([]domain.Date, error)
	Handoff(ctx context.Context, sessionID string, input HandoffInput) (*HandoffResult, error)
	GetHandoff(ctx context.Context, sessionID string) (*domain.Handoff, error)
}

// Cache keeps the per-session calendar and the room-page handoff.
type Cache interface {
	GetAvailability(ctx context.Context, sessionID string) (domain.AvailabilityMap, error)
	SetAvailability(ctx context.Context, sessionID string, m domain.AvailabilityMap, ttl time.Duration) error
	GetHandoff(ctx context.Context, sessionID string) (*domain.Handoff, error)
	SetHandoff(ctx context.Context, sessionID string, h domain.Handoff, ttl time.Duration) error
}

type HandoffInput struct {
	Checkin  string `json:"checkin"`
	Checkout string `json:"checkout"`
	Adults   int    `json:"adults"`
	Children int    `json:"children"`
}

type HandoffResult struct {
	Handoff     domain.Handoff `json:"handoff"`
	RedirectURL string         `json:"redirect_url"`
}

type AvailabilityService struct {
	generator  *Generator
	cache      Cache
	clock      clock.Clock
	location   *time.Location
	sessionTTL time.Duration
	wizardPage string
	logger     *zap.Logger
	group      singleflight.Group
}

type AvailabilityServiceOption func(*AvailabilityService)

func WithLocation(loc *time.Location) AvailabilityServiceOption {
	return func(s *AvailabilityService) {
		if loc != nil {
			s.location = loc
		}
	}
}

func WithClock(c clock.Clock) AvailabilityServiceOption {
	return func(s *AvailabilityService) {
		s.clock = c
	}
}

func WithWizardPage(page string) AvailabilityServiceOption {
	return func(s *AvailabilityService) {
		if page != "" {
			s.wizardPage = page
		}
	}
}

func WithLogger(logger *zap.Logger) AvailabilityServiceOption {
	return func(s *AvailabilityService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewAvailabilityService(generator *Generator, cache Cache, sessionTTL time.Duration, opts ...AvailabilityServiceOption) *AvailabilityService {
	s := &AvailabilityService{
		generator:  generator,
		cache:      cache,
		clock:      clock.NewRealClock(),
		location:   time.UTC,
		sessionTTL: sessionTTL,
		wizardPage: "book-now.html",
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Calendar returns the session's availability map, generating it on first use.
func (s *AvailabilityService) Calendar(ctx context.Context, sessionID string) (domain.AvailabilityMap, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetAvailability(ctx, sessionID); err == nil && cached != nil {
			return cached, nil
		} else if err != nil {
			s.logger.Warn("availability cache read failed", zap.String("session_id", sessionID), zap.Error(err))
		}
	}

	v, err, _ := s.group.Do(sessionID, func() (interface{}, error) {
		if s.cache != nil {
			if cached, err := s.cache.GetAvailability(ctx, sessionID); err == nil && cached != nil {
				return cached, nil
			}
		}
		m := s.generator.Generate(s.today())
		if s.cache != nil {
			if err := s.cache.SetAvailability(ctx, sessionID, m, s.sessionTTL); err != nil {
				s.logger.Warn("availability cache write failed", zap.String("session_id", sessionID), zap.Error(err))
			}
		}
		s.logger.Debug("availability generated", zap.String("session_id", sessionID), zap.Int("days", len(m)))
		return m, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(domain.AvailabilityMap), nil
}

func (s *AvailabilityService) Check(ctx context.Context, sessionID string, checkin, checkout domain.Date) (domain.RangeCheck, error) {
	m, err := s.Calendar(ctx, sessionID)
	if err != nil {
		return domain.RangeCheck{}, err
	}
	return CheckRange(m, checkin, checkout), nil
}

func (s *AvailabilityService) DisabledDates(ctx context.Context, sessionID string) ([]domain.Date, error) {
	m, err := s.Calendar(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return DisabledDates(m), nil
}

// Handoff validates the room-page form, checks the range and stores the
// tentative stay for the wizard page.
func (s *AvailabilityService) Handoff(ctx context.Context, sessionID string, input HandoffInput) (*HandoffResult, error) {
	verr := domain.NewValidationError()

	var checkin, checkout domain.Date
	if input.Checkin == "" {
		verr.Add("checkin", "Please select check-in date")
	} else if d, err := domain.ParseDate(input.Checkin); err != nil {
		verr.Add("checkin", "Please select check-in date")
	} else {
		checkin = d
	}
	if input.Checkout == "" {
		verr.Add("checkout", "Please select check-out date")
	} else if d, err := domain.ParseDate(input.Checkout); err != nil {
		verr.Add("checkout", "Please select check-out date")
	} else {
		checkout = d
	}
	if input.Adults < 1 {
		verr.Add("adults", "At least one adult is required")
	}
	if input.Children < 0 {
		verr.Add("children", "Children cannot be negative")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	check, err := s.Check(ctx, sessionID, checkin, checkout)
	if err != nil {
		return nil, err
	}
	if !check.Available {
		if len(check.UnavailableDates) == 0 {
			verr.Add("checkout", check.Message)
			return nil, verr
		}
		return nil, &domain.ConflictError{Dates: check.UnavailableDates, Message: check.Message}
	}

	h := domain.Handoff{
		Checkin:   checkin,
		Checkout:  checkout,
		Adults:    input.Adults,
		Children:  input.Children,
		Nights:    check.Nights,
		IsLimited: check.Limited,
	}
	if s.cache != nil {
		if err := s.cache.SetHandoff(ctx, sessionID, h, s.sessionTTL); err != nil {
			return nil, err
		}
	}

	return &HandoffResult{Handoff: h, RedirectURL: s.redirectURL(h)}, nil
}

func (s *AvailabilityService) GetHandoff(ctx context.Context, sessionID string) (*domain.Handoff, error) {
	if s.cache == nil {
		return nil, nil
	}
	return s.cache.GetHandoff(ctx, sessionID)
}

func (s *AvailabilityService) today() domain.Date {
	return domain.DateOf(s.clock.Now().In(s.location))
}

func (s *AvailabilityService) redirectURL(h domain.Handoff) string {
	return fmt.Sprintf("%s?checkin=%s&checkout=%s&adults=%d&children=%d",
		s.wizardPage, url.QueryEscape(h.Checkin.String()), url.QueryEscape(h.Checkout.String()), h.Adults, h.Children)
}

var _ AvailabilityUseCase = (*AvailabilityService)(nil)
