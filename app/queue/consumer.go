package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-verification-mailer/app/dto"
	"github.com/vibast-solutions/ms-go-verification-mailer/app/entity"
)

type VerificationConsumer struct {
	client       *redis.Client
	stream       string
	group        string
	consumerName string
	pollInterval time.Duration
	logger       logrus.FieldLogger
}

// NewVerificationConsumer constructs a Redis stream consumer for verification entries.
func NewVerificationConsumer(client *redis.Client, stream, group, consumerName string, logger logrus.FieldLogger) *VerificationConsumer {
	return &VerificationConsumer{
		client:       client,
		stream:       stream,
		group:        group,
		consumerName: consumerName,
		pollInterval: PollInterval,
		logger: logger.WithFields(logrus.Fields{
			"stream":   stream,
			"group":    group,
			"consumer": consumerName,
		}),
	}
}

// Run creates the consumer group and forwards new entries to out until the
// context is cancelled. A failed stream read is returned as an error.
func (c *VerificationConsumer) Run(ctx context.Context, out chan<- entity.VerificationMessage) error {
	if err := c.EnsureGroup(ctx); err != nil {
		return err
	}

	c.logger.Info("Waiting for verification requests")

	for {
		if err := c.Poll(ctx, out); err != nil {
			if ctx.Err() != nil {
				c.logger.Info("Consumer shutting down")
				return nil
			}
			return err
		}

		select {
		case <-ctx.Done():
			c.logger.Info("Consumer shutting down")
			return nil
		case <-time.After(c.pollInterval):
		}
	}
}

// EnsureGroup creates the consumer group at the stream tail. An existing group
// keeps its cursor.
func (c *VerificationConsumer) EnsureGroup(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, c.stream, c.group, groupStartID).Err()
	if err == nil {
		c.logger.Info("Consumer group created")
		return nil
	}
	if strings.HasPrefix(err.Error(), "BUSYGROUP") {
		c.logger.WithError(err).Warn("Consumer group already exists")
		return nil
	}
	return fmt.Errorf("create consumer group %s on %s: %w", c.group, c.stream, err)
}

// Poll reads one batch of new entries and processes them in broker order.
func (c *VerificationConsumer) Poll(ctx context.Context, out chan<- entity.VerificationMessage) error {
	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.group,
		Consumer: c.consumerName,
		Streams:  []string{c.stream, newEntriesID},
		Block:    noBlock,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("read stream %s: %w", c.stream, err)
	}

	for _, stream := range streams {
		for _, msg := range stream.Messages {
			c.processMessage(ctx, msg, out)
		}
	}
	return nil
}

// processMessage forwards a parsed entry and acks it whatever the outcome.
func (c *VerificationConsumer) processMessage(ctx context.Context, msg redis.XMessage, out chan<- entity.VerificationMessage) {
	logger := c.logger.WithField("entry_id", msg.ID)
	logger.Debug("Received verification request")

	entry, err := dto.FromStreamValues(msg.ID, msg.Values)
	if err != nil {
		logger.WithError(err).Warn("Discarding entry without usable verification data")
	} else {
		select {
		case out <- entry.Message():
		case <-ctx.Done():
			logger.Warn("Hand-off interrupted, verification request dropped")
		}
	}

	// Ack even when the context is already cancelled.
	if err := c.client.XAck(context.WithoutCancel(ctx), c.stream, c.group, msg.ID).Err(); err != nil {
		logger.WithError(err).Warn("Failed to ack entry")
		return
	}
	logger.Debug("Entry acked")
}
