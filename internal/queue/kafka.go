package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher hands tasks to a Kafka topic for the notifier process.
type KafkaPublisher struct {
	w messageWriter
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Async:        true,
			Completion: func(messages []kafka.Message, err error) {
				if err != nil {
					logrus.WithError(err).WithField("messages", len(messages)).Error("Kafka publish failed")
				}
			},
		},
	}
}

func (p *KafkaPublisher) Enqueue(ctx context.Context, t Task) error {
	value, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode task: %w", err)
	}

	return p.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(t.Type),
		Value: value,
		Time:  t.OccurredAt,
		Headers: []kafka.Header{
			{Key: "task_type", Value: []byte(t.Type)},
			{Key: "producer", Value: []byte(t.Producer)},
		},
	})
}

func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}

// KafkaConsumer reads tasks from the topic and dispatches them. Offsets are
// committed after every message, failed or not: side effects are never retried.
type KafkaConsumer struct {
	r     messageReader
	mux   *Mux
	dedup Deduper
}

func NewKafkaConsumer(brokers []string, groupID, topic string, mux *Mux, dedup Deduper) *KafkaConsumer {
	return &KafkaConsumer{
		r: kafka.NewReader(kafka.ReaderConfig{
			Brokers:        brokers,
			GroupID:        groupID,
			Topic:          topic,
			MinBytes:       1,
			MaxBytes:       10e6,
			CommitInterval: 0, // manual commit
		}),
		mux:   mux,
		dedup: dedup,
	}
}

func (c *KafkaConsumer) Run(ctx context.Context) error {
	defer c.r.Close()

	for {
		m, err := c.r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("fetch message: %w", err)
		}

		if err := c.HandleMessage(ctx, m); err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"partition": m.Partition,
				"offset":    m.Offset,
			}).Error("Task failed")
		}

		if err := c.r.CommitMessages(ctx, m); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logrus.WithError(err).WithField("offset", m.Offset).Warn("Commit failed")
			time.Sleep(200 * time.Millisecond)
		}
	}
}

// HandleMessage decodes one message and runs its task unless it was seen before.
func (c *KafkaConsumer) HandleMessage(ctx context.Context, m kafka.Message) error {
	var t Task
	if err := json.Unmarshal(m.Value, &t); err != nil {
		return fmt.Errorf("decode task envelope: %w", err)
	}

	seen, err := c.dedup.Seen(ctx, t.ID)
	if err != nil {
		logrus.WithError(err).WithField("task_id", t.ID).Warn("Dedup lookup failed")
	}
	if seen {
		logrus.WithField("task_id", t.ID).Debug("Skipping duplicate task")
		return nil
	}

	if err := c.mux.Dispatch(ctx, t); err != nil {
		return fmt.Errorf("task %s (%s): %w", t.ID, t.Type, err)
	}

	if err := c.dedup.Mark(ctx, t.ID); err != nil {
		logrus.WithError(err).WithField("task_id", t.ID).Warn("Dedup mark failed")
	}
	return nil
}
