package kafka

import "fmt"

var (
	// ErrTopicRequired is returned when a message has no topic
	ErrTopicRequired = fmt.Errorf("kafka: topic is required")
	// ErrValueRequired is returned when a message has no value
	ErrValueRequired = fmt.Errorf("kafka: value is required")
	// ErrClosed is returned when using a closed client
	ErrClosed = fmt.Errorf("kafka: client closed")
)

// ErrInvalidConfig Kafka configuration error
func ErrInvalidConfig(msg string) error {
	return fmt.Errorf("kafka: invalid config: %s", msg)
}

// ErrConnection Kafka connection error
func ErrConnection(err error) error {
	return fmt.Errorf("kafka: connection failed: %w", err)
}

// ErrSubscribe subscribe error
func ErrSubscribe(topics []string, err error) error {
	return fmt.Errorf("kafka: subscribe to topics %v failed: %w", topics, err)
}

// ErrConsume consume message error
func ErrConsume(err error) error {
	return fmt.Errorf("kafka: consume message failed: %w", err)
}

// ErrCommit commit message error
func ErrCommit(err error) error {
	return fmt.Errorf("kafka: commit offsets failed: %w", err)
}

// ErrProduce produce message error
func ErrProduce(topic string, err error) error {
	return fmt.Errorf("kafka: produce to topic %s failed: %w", topic, err)
}
