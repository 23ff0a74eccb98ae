package kafka

import (
	"fmt"
	"strings"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/dailyyoga/cachekit/logger"
	"go.uber.org/zap"
)

const (
	connectAttempts = 3
	connectDelay    = 2 * time.Second
	metadataTimeout = 10 * time.Second
)

// retry calls fn up to connectAttempts times, sleeping between failures
func retry[T any](log logger.Logger, what string, fn func() (T, error)) (T, error) {
	var (
		v   T
		err error
	)
	for i := 0; i < connectAttempts; i++ {
		if v, err = fn(); err == nil {
			return v, nil
		}
		if i < connectAttempts-1 {
			log.Warn("kafka client creation failed, retrying",
				zap.String("client", what),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("max_attempts", connectAttempts),
			)
			time.Sleep(connectDelay)
		}
	}
	return v, ErrConnection(fmt.Errorf("%s after %d attempts: %w", what, connectAttempts, err))
}

// checkBrokers fails fast when no broker answers a metadata request
func checkBrokers(log logger.Logger, brokers []string) error {
	configMap := &kafka.ConfigMap{
		"bootstrap.servers":  strings.Join(brokers, ","),
		"request.timeout.ms": int(metadataTimeout.Milliseconds()),
	}

	admin, err := retry(log, "admin client", func() (*kafka.AdminClient, error) {
		return kafka.NewAdminClient(configMap)
	})
	if err != nil {
		return err
	}
	defer admin.Close()

	if _, err := admin.GetMetadata(nil, false, int(metadataTimeout.Milliseconds())); err != nil {
		return ErrConnection(err)
	}

	log.Info("kafka brokers reachable", zap.Strings("brokers", brokers))
	return nil
}
