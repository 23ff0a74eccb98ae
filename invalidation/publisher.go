package invalidation

import (
	"context"
	"time"

	"github.com/dailyyoga/cachekit/kafka"
)

const headerOrigin = "origin"

// Broadcaster sends invalidation events to the other processes
type Broadcaster interface {
	Publish(ctx context.Context, e Event) error
}

// Publisher is the kafka Broadcaster
type Publisher struct {
	producer kafka.Producer
	topic    string
	origin   string
	now      func() time.Time
}

var _ Broadcaster = (*Publisher)(nil)

// NewPublisher creates a Publisher writing to cfg.Topic
func NewPublisher(producer kafka.Producer, cfg *Config) (*Publisher, error) {
	if producer == nil {
		return nil, ErrInvalidConfig
	}
	if cfg == nil {
		cfg = DefaultConfig()
	} else {
		cfg = cfg.MergeDefaults()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Publisher{
		producer: producer,
		topic:    cfg.Topic,
		origin:   cfg.Origin,
		now:      time.Now,
	}, nil
}

// Publish stamps e with this process's origin and the current time and sends it.
// The event kind is the message key so events of one kind stay ordered.
func (p *Publisher) Publish(ctx context.Context, e Event) error {
	e.Origin = p.origin
	e.At = p.now()
	if err := e.Validate(); err != nil {
		return err
	}

	value, err := e.Encode()
	if err != nil {
		return err
	}

	msg := &kafka.Message{
		Topic:   p.topic,
		Key:     []byte(e.Kind),
		Value:   value,
		Headers: []kafka.Header{{Key: headerOrigin, Value: []byte(p.origin)}},
	}
	if err := p.producer.Produce(ctx, msg); err != nil {
		return ErrPublish(e.Kind, err)
	}
	return nil
}
