package queue

import (
	"context"
	"time"
)

// DLQPurger is implemented by queue backends that can drop dead-lettered
// messages older than the given retention, returning how many were purged.
type DLQPurger interface {
	PurgeOlderThan(ctx context.Context, retention time.Duration) (int, error)
}

// MessageInterface abstracts a delivered reminder job so workers can be
// tested against mock deliveries.
type MessageInterface interface {
	Ack() error
	Nack(requeue bool) error
	GetJob() *Job
}

// JobQueue is the transport for reminder jobs between the API server
// (producer) and the worker (consumer).
type JobQueue interface {
	// Enqueue publishes a job. Jobs carrying a NotBefore hint are routed
	// through the delayed queue and surface only once the hint elapses.
	Enqueue(ctx context.Context, job *Job) error

	// Dequeue pulls a single message, or nil when the queue is empty.
	// The caller must ack or nack the returned message.
	//
	// Deprecated: prefer Consume, which uses server pushes instead of polling.
	Dequeue(ctx context.Context) (*Message, error)

	// Consume streams messages until ctx is cancelled. prefetchCount bounds
	// how many unacknowledged messages the consumer holds at once; the caller
	// must ack or nack each message.
	Consume(ctx context.Context, prefetchCount int) (<-chan *Message, <-chan error, error)

	// Close tears down the underlying connection.
	Close() error

	// HealthCheck reports whether the broker connection is usable.
	HealthCheck(ctx context.Context) error
}
