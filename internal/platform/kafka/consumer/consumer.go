// Package consumer runs a franz-go consumer group and hands each record to a Handler.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Message is a consumed record, decoupled from the client library.
type Message struct {
	Topic     string
	Key       []byte
	Value     []byte
	Partition int32
	Offset    int64
	Timestamp time.Time
}

// Handler processes one message. A returned error is treated as transient:
// the same record is retried with backoff until it succeeds or the consumer
// stops, and nothing after it on the partition is committed meanwhile.
// Malformed input should be logged and acknowledged with nil.
type Handler interface {
	Handle(ctx context.Context, msg *Message) error
}

type Config struct {
	Brokers []string
	Group   string
	Topics  []string
}

const (
	defaultMinBackoff = 200 * time.Millisecond
	defaultMaxBackoff = 30 * time.Second
)

type Consumer struct {
	client  *kgo.Client
	handler Handler
	logger  *slog.Logger

	minBackoff time.Duration
	maxBackoff time.Duration
}

func New(cfg Config, handler Handler, logger *slog.Logger) (*Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka consumer: no brokers configured")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ConsumerGroup(cfg.Group),
		kgo.ConsumeTopics(cfg.Topics...),
		kgo.DisableAutoCommit(),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer client: %w", err)
	}
	return &Consumer{
		client:     client,
		handler:    handler,
		logger:     logger,
		minBackoff: defaultMinBackoff,
		maxBackoff: defaultMaxBackoff,
	}, nil
}

// Run polls until ctx is cancelled. Records of a partition are handled in
// order and committed once handled.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() || ctx.Err() != nil {
			return nil
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			c.logger.ErrorContext(ctx, "kafka fetch error",
				"topic", topic,
				"partition", partition,
				"error", err,
			)
		})

		var handled []*kgo.Record
		fetches.EachPartition(func(p kgo.FetchTopicPartition) {
			handled = append(handled, c.handlePartition(ctx, p.Records)...)
		})

		if len(handled) > 0 {
			if err := c.client.CommitRecords(ctx, handled...); err != nil && ctx.Err() == nil {
				c.logger.ErrorContext(ctx, "kafka commit failed", "error", err)
			}
		}
	}
}

// handlePartition handles records in order and returns the handled prefix.
// It is shorter than records only when ctx ends during a retry.
func (c *Consumer) handlePartition(ctx context.Context, records []*kgo.Record) []*kgo.Record {
	for i, record := range records {
		if err := c.handleWithRetry(ctx, record); err != nil {
			return records[:i]
		}
	}
	return records
}

func (c *Consumer) handleWithRetry(ctx context.Context, record *kgo.Record) error {
	msg := &Message{
		Topic:     record.Topic,
		Key:       record.Key,
		Value:     record.Value,
		Partition: record.Partition,
		Offset:    record.Offset,
		Timestamp: record.Timestamp,
	}
	backoff := c.minBackoff
	for attempt := 1; ; attempt++ {
		err := c.handler.Handle(ctx, msg)
		if err == nil {
			return nil
		}
		c.logger.ErrorContext(ctx, "kafka message handling failed",
			"topic", record.Topic,
			"partition", record.Partition,
			"offset", record.Offset,
			"attempt", attempt,
			"retry_in", backoff.String(),
			"error", err,
		)
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		backoff = min(backoff*2, c.maxBackoff)
	}
}

func (c *Consumer) Close() {
	c.client.Close()
}
