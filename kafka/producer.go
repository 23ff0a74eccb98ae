package kafka

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/dailyyoga/cachekit/logger"
	"github.com/dailyyoga/cachekit/routine"
	"go.uber.org/zap"
)

type defaultProducer struct {
	logger logger.Logger
	config *ProducerConfig

	p      *kafka.Producer
	runner routine.Runner
	done   chan struct{}
	closed atomic.Bool
}

// NewProducer connects a producer and starts its delivery report loop
func NewProducer(log logger.Logger, config *ProducerConfig) (Producer, error) {
	if config == nil {
		return nil, ErrInvalidConfig("producer config is required")
	}
	config = config.MergeDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if err := checkBrokers(log, config.Brokers); err != nil {
		return nil, err
	}

	p, err := retry(log, "producer", func() (*kafka.Producer, error) {
		return kafka.NewProducer(config.BuildConfigMap())
	})
	if err != nil {
		return nil, err
	}

	kp := &defaultProducer{
		logger: log,
		config: config,
		p:      p,
		runner: routine.New(log),
		done:   make(chan struct{}),
	}
	kp.runner.GoNamed("kafka-delivery-reports", kp.deliveryReports)

	log.Info("kafka producer initialized", zap.Strings("brokers", config.Brokers))
	return kp, nil
}

// deliveryReports logs the outcome of every asynchronous produce
func (kp *defaultProducer) deliveryReports() {
	for {
		select {
		case <-kp.done:
			return
		case e, ok := <-kp.p.Events():
			if !ok {
				return
			}
			switch ev := e.(type) {
			case *kafka.Message:
				msg := fromKafkaMessage(ev)
				if ev.TopicPartition.Error != nil {
					kp.logger.Error("kafka message delivery failed",
						zap.String("topic", msg.Topic),
						zap.ByteString("key", msg.Key),
						zap.Error(ev.TopicPartition.Error),
					)
					continue
				}
				kp.logger.Debug("kafka message delivered",
					zap.String("topic", msg.Topic),
					zap.Int32("partition", msg.Partition),
					zap.Int64("offset", msg.Offset),
				)
			case kafka.Error:
				kp.logger.Error("kafka producer error",
					zap.Int("code", int(ev.Code())),
					zap.String("error", ev.String()),
				)
			default:
				kp.logger.Debug("kafka producer event ignored", zap.String("type", fmt.Sprintf("%T", ev)))
			}
		}
	}
}

// Produce enqueues msg; the delivery outcome is reported asynchronously
func (kp *defaultProducer) Produce(ctx context.Context, msg *Message) error {
	if kp.closed.Load() {
		return ErrClosed
	}
	if msg.Topic == "" {
		return ErrTopicRequired
	}
	if msg.Value == nil {
		return ErrValueRequired
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := kp.p.Produce(toKafkaMessage(msg), nil); err != nil {
		return ErrProduce(msg.Topic, err)
	}
	return nil
}

// Close flushes outstanding messages and releases the producer
func (kp *defaultProducer) Close() error {
	if !kp.closed.CompareAndSwap(false, true) {
		return nil
	}

	remaining := kp.p.Flush(int(kp.config.FlushTimeout.Milliseconds()))
	if remaining > 0 {
		kp.logger.Warn("kafka producer closed with undelivered messages", zap.Int("remaining", remaining))
	}

	close(kp.done)
	kp.runner.Wait()
	kp.p.Close()
	kp.logger.Info("kafka producer closed")
	return nil
}
