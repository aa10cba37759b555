// Package queue moves bestie actions through Kafka so fan-out can run in a separate worker.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"peek/backend/internal/logging"
	"peek/backend/internal/notify"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageWriter is the subset of *kafka.Writer the producer uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// MessageReader is the subset of *kafka.Reader the consumer uses.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes actions keyed by actor id. It implements notify.Dispatcher.
type Producer struct {
	writer MessageWriter
}

func NewProducer(brokers []string, topic string) *Producer {
	return NewProducerWithWriter(&kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	})
}

func NewProducerWithWriter(w MessageWriter) *Producer {
	return &Producer{writer: w}
}

func (p *Producer) Dispatch(ctx context.Context, a notify.Action) error {
	if err := a.Validate(); err != nil {
		return err
	}
	value, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to marshal action: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatUint(uint64(a.Actor.ID), 10)),
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("failed to publish action: %w", err)
	}
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

// Fanouter runs the delivery for one action.
type Fanouter interface {
	Fanout(ctx context.Context, a notify.Action) (*notify.Result, error)
}

// Consumer reads actions and hands each one to a Fanouter.
type Consumer struct {
	reader  MessageReader
	timeout time.Duration
}

func NewConsumer(brokers []string, topic, groupID string, timeout time.Duration) *Consumer {
	return NewConsumerWithReader(kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	}), timeout)
}

func NewConsumerWithReader(r MessageReader, timeout time.Duration) *Consumer {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Consumer{reader: r, timeout: timeout}
}

// Run consumes until ctx is cancelled. Messages are committed after their fan-out
// finishes; malformed messages are logged and committed so they do not block the partition.
func (c *Consumer) Run(ctx context.Context, f Fanouter) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to fetch message: %w", err)
		}

		c.handle(ctx, f, msg)

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to commit offset %d: %w", msg.Offset, err)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, f Fanouter, msg kafka.Message) {
	var a notify.Action
	if err := json.Unmarshal(msg.Value, &a); err != nil {
		logging.Error("Dropping malformed action",
			zap.Int("partition", msg.Partition), zap.Int64("offset", msg.Offset), zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if _, err := f.Fanout(ctx, a); err != nil {
		logging.Error("Failed to fan out action",
			zap.String("action", string(a.ActionType)),
			zap.Int64("offset", msg.Offset),
			zap.Error(err))
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
