package stream

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"feetfit/internal/db"
	"feetfit/internal/ingest"
	"feetfit/internal/metrics"
)

// StoreFunc persists a decoded batch.
type StoreFunc func(ctx context.Context, rows []db.SensorSample) error

// Consumer subscribes to gait/{device}/samples and stores every batch.
type Consumer struct {
	sub       Subscriber
	topic     string
	store     StoreFunc
	retention time.Duration
	logger    *zap.Logger
	now       func() time.Time

	ctx context.Context
}

// NewConsumer builds a consumer. Samples stored through it expire after
// retention; zero keeps them forever.
func NewConsumer(sub Subscriber, topic string, store StoreFunc, retention time.Duration, logger *zap.Logger) *Consumer {
	return &Consumer{
		sub:       sub,
		topic:     topic,
		store:     store,
		retention: retention,
		logger:    logger,
		now:       time.Now,
		ctx:       context.Background(),
	}
}

// Start subscribes and blocks until ctx is done.
func (c *Consumer) Start(ctx context.Context) error {
	c.ctx = ctx
	if err := c.sub.Subscribe(c.topic, 1, c.handleMessage); err != nil {
		return fmt.Errorf("subscribe to sample topic: %w", err)
	}
	c.logger.Info("MQTT consumer started", zap.String("topic", c.topic))

	<-ctx.Done()
	return nil
}

// Stop unsubscribes and disconnects from the broker.
func (c *Consumer) Stop() {
	if err := c.sub.Unsubscribe(c.topic); err != nil {
		c.logger.Error("Failed to unsubscribe", zap.Error(err))
	}
	c.sub.Disconnect()
	c.logger.Info("MQTT consumer stopped")
}

// deviceFromTopic returns the second topic segment.
func deviceFromTopic(topic string) (string, error) {
	parts := strings.Split(topic, "/")
	if len(parts) < 3 || parts[1] == "" {
		return "", fmt.Errorf("invalid topic format: %s", topic)
	}
	return parts[1], nil
}

func (c *Consumer) handleMessage(topic string, payload []byte) error {
	device, err := deviceFromTopic(topic)
	if err != nil {
		return err
	}

	decoded, err := ingest.DecodeSampleBatch(payload, device)
	if err != nil {
		metrics.ObserveIngest(metrics.SourceMQTT, 0, 1)
		return fmt.Errorf("decode batch from %s: %w", device, err)
	}

	if c.retention > 0 {
		exp := c.now().Add(c.retention)
		for i := range decoded.Samples {
			decoded.Samples[i].ExpiresAt = &exp
		}
	}

	if len(decoded.Samples) > 0 {
		if err := c.store(c.ctx, decoded.Samples); err != nil {
			metrics.ObserveIngest(metrics.SourceMQTT, 0, decoded.Skipped)
			return fmt.Errorf("store batch from %s: %w", device, err)
		}
	}
	metrics.ObserveIngest(metrics.SourceMQTT, len(decoded.Samples), decoded.Skipped)

	c.logger.Debug("Stored MQTT batch",
		zap.String("device", device),
		zap.Int("stored", len(decoded.Samples)),
		zap.Int("skipped", decoded.Skipped),
	)
	return nil
}
