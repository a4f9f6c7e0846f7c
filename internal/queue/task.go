// Package queue carries side effects (notifications) out of the request path.
// Tasks are JSON envelopes handled either by an in-process worker pool or,
// when Kafka is configured, by the notifier process.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	TaskOrderCreated           = "order.created"
	TaskOrderPaid              = "order.paid"
	TaskOrderCancelled         = "order.cancelled"
	TaskSponsorApplied         = "sponsor.applied"
	TaskDonationReceived       = "donation.received"
	TaskPasswordReset          = "password.reset"
	TaskMembershipReactivation = "membership.reactivation"
)

const producerName = "club-api"

var (
	ErrNoHandler = errors.New("no handler registered for task type")
	ErrQueueFull = errors.New("task queue is full")
	ErrClosed    = errors.New("task queue is closed")
)

type Task struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Producer   string          `json:"producer"`
	Payload    json.RawMessage `json:"payload"`
}

func NewTask(taskType string, payload any) (Task, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Task{}, fmt.Errorf("encode %s payload: %w", taskType, err)
	}

	return Task{
		ID:         uuid.NewString(),
		Type:       taskType,
		OccurredAt: time.Now().UTC(),
		Producer:   producerName,
		Payload:    b,
	}, nil
}

// Decode unwraps a task payload into T.
func Decode[T any](t Task) (T, error) {
	var out T
	if err := json.Unmarshal(t.Payload, &out); err != nil {
		return out, fmt.Errorf("decode %s payload: %w", t.Type, err)
	}
	return out, nil
}

// Dispatcher accepts tasks for deferred execution. Enqueue must not block
// on the task itself running.
type Dispatcher interface {
	Enqueue(ctx context.Context, t Task) error
}

type Handler func(ctx context.Context, t Task) error

// Mux routes tasks to handlers by type.
type Mux struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewMux() *Mux {
	return &Mux{handlers: make(map[string]Handler)}
}

func (m *Mux) Handle(taskType string, h Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[taskType] = h
}

func (m *Mux) Dispatch(ctx context.Context, t Task) error {
	m.mu.RLock()
	h, ok := m.handlers[t.Type]
	m.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrNoHandler, t.Type)
	}
	return h(ctx, t)
}
