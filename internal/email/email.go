package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/Domenick1991/westbrook/config"
	"github.com/Domenick1991/westbrook/internal/domain"
	"github.com/Domenick1991/westbrook/internal/kafka"
	"github.com/Domenick1991/westbrook/internal/pkg/errs"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const subjectPrefix = "Your Westbrook Hotel Booking Confirmation - "

type mailClient interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// Message is a rendered confirmation email.
type Message struct {
	To      string
	ToName  string
	Subject string
	Text    string
	HTML    string
}

// Sender renders confirmation emails and delivers them through SendGrid when
// an API key is configured. Without one the send is simulated and logged.
type Sender struct {
	fromName    string
	fromAddress string
	delay       time.Duration
	client      mailClient
	logger      *zap.Logger
}

func NewSender(cfg config.EmailConfig, logger *zap.Logger) *Sender {
	var client mailClient
	if cfg.SendGridAPIKey != "" {
		client = sendgrid.NewSendClient(cfg.SendGridAPIKey)
	}
	return newSender(cfg, client, logger)
}

func newSender(cfg config.EmailConfig, client mailClient, logger *zap.Logger) *Sender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sender{
		fromName:    cfg.FromName,
		fromAddress: cfg.FromAddress,
		delay:       cfg.Delay(),
		client:      client,
		logger:      logger,
	}
}

func (s *Sender) Send(ctx context.Context, event kafka.BookingEvent) error {
	msg, err := Compose(event)
	if err != nil {
		return err
	}

	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if s.client == nil {
		s.logger.Info("confirmation email simulated",
			zap.String("to", msg.To), zap.String("subject", msg.Subject), zap.String("booking_id", event.BookingID))
		return nil
	}

	from := mail.NewEmail(s.fromName, s.fromAddress)
	to := mail.NewEmail(msg.ToName, msg.To)
	response, err := s.client.SendWithContext(ctx, mail.NewSingleEmail(from, msg.Subject, to, msg.Text, msg.HTML))
	if err != nil {
		return errs.Wrap(err, "sendgrid send")
	}
	if response.StatusCode >= 400 {
		return errs.Newf("sendgrid returned status %d", response.StatusCode)
	}

	s.logger.Info("confirmation email sent",
		zap.String("to", msg.To), zap.String("booking_id", event.BookingID), zap.Int("status", response.StatusCode))
	return nil
}

var printer = message.NewPrinter(language.English)

type templateData struct {
	kafka.BookingEvent
	CheckinLabel  string
	CheckoutLabel string
	TotalLabel    string
}

var htmlBody = template.Must(template.New("confirmation").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px;">
  <h2 style="color: #c19a5b;">Booking Confirmation</h2>
  <p>Dear {{.GuestName}},</p>
  <p>Thank you for choosing Westbrook Hotel. Your booking is confirmed.</p>
  <div style="background: #f5f5f5; padding: 20px; border-radius: 10px; margin: 20px 0;">
    <h3>Booking Details</h3>
    <p><strong>Booking ID:</strong> {{.BookingID}}</p>
    <p><strong>Room:</strong> {{.RoomType}}</p>
    <p><strong>Check-in:</strong> {{.CheckinLabel}}</p>
    <p><strong>Check-out:</strong> {{.CheckoutLabel}}</p>
    <p><strong>Guests:</strong> {{.Adults}} Adults, {{.Children}} Children</p>
    <p><strong>Total:</strong> {{.TotalLabel}}</p>
    <p><strong>Payment Status:</strong> {{.PaymentStatus}}</p>
  </div>
  <p>We look forward to welcoming you to Westbrook Hotel.</p>
  <p>Warm regards,<br>Westbrook Hotel Team</p>
</div>
`))

// Compose renders the confirmation for event.
func Compose(event kafka.BookingEvent) (Message, error) {
	if event.Email == "" {
		return Message{}, errs.Newf("booking %s has no guest email", event.BookingID)
	}
	data := templateData{
		BookingEvent:  event,
		CheckinLabel:  dateLabel(event.Checkin),
		CheckoutLabel: dateLabel(event.Checkout),
		TotalLabel:    FormatAmount(event.Total),
	}

	var html bytes.Buffer
	if err := htmlBody.Execute(&html, data); err != nil {
		return Message{}, errs.Wrap(err, "render confirmation email")
	}

	var text strings.Builder
	fmt.Fprintf(&text, "Dear %s,\n\nThank you for choosing Westbrook Hotel. Your booking is confirmed.\n\n", event.GuestName)
	fmt.Fprintf(&text, "Booking ID: %s\nRoom: %s\nCheck-in: %s\nCheck-out: %s\n", event.BookingID, event.RoomType, data.CheckinLabel, data.CheckoutLabel)
	fmt.Fprintf(&text, "Guests: %d Adults, %d Children\nTotal: %s\nPayment Status: %s\n", event.Adults, event.Children, data.TotalLabel, event.PaymentStatus)

	return Message{
		To:      event.Email,
		ToName:  event.GuestName,
		Subject: subjectPrefix + event.BookingID,
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}

// FormatAmount renders whole minor units the way the booking page does: ₦153,725.
func FormatAmount(amount int64) string {
	return "₦" + printer.Sprintf("%d", amount)
}

func dateLabel(iso string) string {
	d, err := domain.ParseDate(iso)
	if err != nil {
		return domain.Date{}.Short()
	}
	return d.Short()
}
