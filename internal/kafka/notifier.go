package kafka

import (
	"context"

	"github.com/Domenick1991/westbrook/internal/domain"
	"github.com/Domenick1991/westbrook/internal/pkg/clock"
)

type publisher interface {
	PublishWithRetry(ctx context.Context, topic, key string, payload interface{}, maxRetries int) error
}

// Notifier hands booking confirmations to the worker through Kafka.
type Notifier struct {
	producer publisher
	topic    string
	attempts int
	clock    clock.Clock
}

func NewNotifier(producer *Producer, topic string, attempts int, c clock.Clock) *Notifier {
	return newNotifier(producer, topic, attempts, c)
}

func newNotifier(producer publisher, topic string, attempts int, c clock.Clock) *Notifier {
	if c == nil {
		c = clock.NewRealClock()
	}
	if attempts < 1 {
		attempts = 1
	}
	return &Notifier{producer: producer, topic: topic, attempts: attempts, clock: c}
}

func (n *Notifier) NotifyConfirmed(ctx context.Context, state domain.BookingState) error {
	event := NewConfirmedEvent(state, n.clock.Now())
	return n.producer.PublishWithRetry(ctx, n.topic, state.BookingID, event, n.attempts)
}
