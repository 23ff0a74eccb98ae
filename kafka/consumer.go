package kafka

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/dailyyoga/cachekit/logger"
	"github.com/dailyyoga/cachekit/routine"
	"go.uber.org/zap"
)

const restartBackoff = time.Second

type defaultConsumer struct {
	logger logger.Logger
	config *ConsumerConfig

	c      *kafka.Consumer
	runner routine.Runner

	started atomic.Bool
	closed  atomic.Bool
	stop    context.CancelFunc
}

// NewConsumer connects a consumer and subscribes it to the configured topics
func NewConsumer(log logger.Logger, config *ConsumerConfig) (Consumer, error) {
	if config == nil {
		return nil, ErrInvalidConfig("consumer config is required")
	}
	config = config.MergeDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if err := checkBrokers(log, config.Brokers); err != nil {
		return nil, err
	}

	c, err := retry(log, "consumer", func() (*kafka.Consumer, error) {
		return kafka.NewConsumer(config.BuildConfigMap())
	})
	if err != nil {
		return nil, err
	}
	if err := c.SubscribeTopics(config.Topics, nil); err != nil {
		c.Close()
		return nil, ErrSubscribe(config.Topics, err)
	}

	return &defaultConsumer{
		logger: log,
		config: config,
		c:      c,
		runner: routine.New(log),
		stop:   func() {},
	}, nil
}

// Start launches the consume loop; it runs until ctx is done or Close is called
func (c *defaultConsumer) Start(ctx context.Context, handler Handler) error {
	if c.closed.Load() {
		return ErrClosed
	}
	if !c.started.CompareAndSwap(false, true) {
		return nil
	}

	ctx, c.stop = context.WithCancel(ctx)
	// a panicking handler restarts the loop instead of silently ending consumption
	c.runner.GoSupervised(ctx, "kafka-consume-loop", restartBackoff, func(ctx context.Context) {
		if err := c.consumeLoop(ctx, handler); err != nil {
			c.logger.Error("kafka consume loop exited", zap.String("group_id", c.config.GroupID), zap.Error(err))
		}
	})

	c.logger.Info("kafka consumer started",
		zap.String("group_id", c.config.GroupID),
		zap.Strings("topics", c.config.Topics),
	)
	return nil
}

// Close stops the consume loop and leaves the group
func (c *defaultConsumer) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}

	c.stop()
	c.runner.Wait()
	if err := c.c.Close(); err != nil {
		return ErrConnection(err)
	}
	c.logger.Info("kafka consumer closed", zap.String("group_id", c.config.GroupID))
	return nil
}

func (c *defaultConsumer) consumeLoop(ctx context.Context, handler Handler) error {
	pollMs := int(c.config.PollTimeout.Milliseconds())
	for {
		if ctx.Err() != nil {
			return nil
		}

		switch e := c.c.Poll(pollMs).(type) {
		case nil:
		case *kafka.Message:
			if err := c.handle(ctx, e, handler); err != nil {
				msg := fromKafkaMessage(e)
				c.logger.Error("kafka message handling failed",
					zap.String("topic", msg.Topic),
					zap.Int32("partition", msg.Partition),
					zap.Int64("offset", msg.Offset),
					zap.Error(err),
				)
			}
		case kafka.Error:
			c.logger.Error("kafka consumer error", zap.Int("code", int(e.Code())), zap.String("error", e.String()))
			if e.Code() == kafka.ErrAllBrokersDown {
				return ErrConsume(e)
			}
		case kafka.OffsetsCommitted:
			if e.Error != nil {
				c.logger.Error("kafka offset commit failed", zap.Error(e.Error))
			}
		default:
			c.logger.Debug("kafka consumer event ignored", zap.String("type", fmt.Sprintf("%T", e)))
		}
	}
}

// handle runs handler with retries and commits the offset on success
func (c *defaultConsumer) handle(ctx context.Context, km *kafka.Message, handler Handler) error {
	start := time.Now()
	msg := fromKafkaMessage(km)

	var err error
	for attempt := 1; attempt <= c.config.MaxRetries; attempt++ {
		if err = handler(ctx, msg); err == nil {
			break
		}
	}
	if err != nil {
		return err
	}

	if !c.config.EnableAutoCommit {
		if _, err := c.c.CommitMessage(km); err != nil {
			return ErrCommit(err)
		}
	}

	c.logger.Debug("kafka message handled",
		zap.String("topic", msg.Topic),
		zap.Int64("offset", msg.Offset),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}
