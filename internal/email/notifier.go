package email

import (
	"context"

	"github.com/Domenick1991/westbrook/internal/domain"
	"github.com/Domenick1991/westbrook/internal/kafka"
	"github.com/Domenick1991/westbrook/internal/pkg/clock"
)

// DirectNotifier sends the confirmation in-process, for deployments without Kafka.
type DirectNotifier struct {
	sender *Sender
	clock  clock.Clock
}

func NewDirectNotifier(sender *Sender, c clock.Clock) *DirectNotifier {
	if c == nil {
		c = clock.NewRealClock()
	}
	return &DirectNotifier{sender: sender, clock: c}
}

func (n *DirectNotifier) NotifyConfirmed(ctx context.Context, state domain.BookingState) error {
	return n.sender.Send(ctx, kafka.NewConfirmedEvent(state, n.clock.Now()))
}
