// Package kafka is the confluent-kafka-go transport behind the cross-process invalidation bus.
package kafka

import (
	"context"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// Message is a transport-neutral kafka record
// Partition and Offset are only set on consumed messages
type Message struct {
	Topic     string
	Partition int32
	Offset    int64
	Key       []byte
	Value     []byte
	Headers   []Header
	Timestamp time.Time
}

// Header is a kafka record header
type Header struct {
	Key   string
	Value []byte
}

// PartitionAny lets the producer pick the partition from the key hash
const PartitionAny = kafka.PartitionAny

// GetHeader returns the value of the first header named k, or nil
func (m *Message) GetHeader(k string) []byte {
	for _, header := range m.Headers {
		if header.Key == k {
			return header.Value
		}
	}
	return nil
}

// Handler processes one consumed message
// A nil return commits the offset when auto commit is disabled
type Handler func(ctx context.Context, msg *Message) error

// Consumer delivers messages of the subscribed topics to a Handler
type Consumer interface {
	// Start launches the consume loop in the background and returns immediately
	Start(ctx context.Context, handler Handler) error
	Close() error
}

// Producer publishes messages asynchronously; delivery failures are logged
type Producer interface {
	Produce(ctx context.Context, msg *Message) error
	Close() error
}

func toKafkaMessage(msg *Message) *kafka.Message {
	topic := msg.Topic
	km := &kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     &topic,
			Partition: PartitionAny,
		},
		Key:   msg.Key,
		Value: msg.Value,
	}
	for _, h := range msg.Headers {
		km.Headers = append(km.Headers, kafka.Header{Key: h.Key, Value: h.Value})
	}
	return km
}

func fromKafkaMessage(km *kafka.Message) *Message {
	msg := &Message{
		Partition: km.TopicPartition.Partition,
		Offset:    int64(km.TopicPartition.Offset),
		Key:       km.Key,
		Value:     km.Value,
		Timestamp: km.Timestamp,
		Headers:   make([]Header, len(km.Headers)),
	}
	if km.TopicPartition.Topic != nil {
		msg.Topic = *km.TopicPartition.Topic
	}
	for i, h := range km.Headers {
		msg.Headers[i] = Header{Key: h.Key, Value: h.Value}
	}
	return msg
}
